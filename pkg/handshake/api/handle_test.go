package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/device-trust/pkg/devicefp"
	"github.com/tendant/device-trust/pkg/handshake"
	"github.com/tendant/device-trust/pkg/keymanager"
	"github.com/tendant/device-trust/pkg/securestore"
)

// setupHandler wires a handler over a client whose upstream is unreachable
func setupHandler(t *testing.T) *HandshakeHandler {
	store := securestore.New(securestore.NewInMemEntryRepository())
	t.Cleanup(store.Close)
	handshake.ConfigureStore(store, "test-secret")

	keys := keymanager.NewService(store)
	collector := devicefp.NewCollector(devicefp.StaticSource{D: devicefp.Descriptor{
		OSName:     "linux",
		DeviceType: "desktop",
		Timezone:   "UTC",
	}})

	client := handshake.NewClient(store, keys, collector,
		handshake.NewHTTPTransport("http://127.0.0.1:1"))
	return NewHandshakeHandler(client)
}

func TestGetStatus_Idle(t *testing.T) {
	handler := setupHandler(t)
	ts := httptest.NewServer(handler.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "idle", body.State)
	assert.Empty(t, body.DeviceID)
	assert.Empty(t, body.Error)
}

func TestStartHandshake_UpstreamUnreachable(t *testing.T) {
	handler := setupHandler(t)
	ts := httptest.NewServer(handler.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/handshake", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "error", body.Status)
	assert.NotEmpty(t, body.Error)

	// The failure shows up in the status afterwards
	statusResp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()

	var status StatusResponse
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.Equal(t, "failed", status.State)
	assert.NotEmpty(t, status.Error)
}

func TestResetDevice(t *testing.T) {
	handler := setupHandler(t)
	ts := httptest.NewServer(handler.Routes())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body ActionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "idle", body.State)
}
