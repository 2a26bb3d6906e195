package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodePropagation(t *testing.T) {
	base := New(ErrCodeSessionInvalid, "session id missing")
	assert.True(t, IsCode(base, ErrCodeSessionInvalid))
	assert.False(t, IsCode(base, ErrCodeTransport))
	assert.Equal(t, ErrCodeSessionInvalid, GetCode(base))

	// Wrapping with fmt.Errorf keeps the code reachable
	wrapped := fmt.Errorf("start failed: %w", base)
	assert.True(t, IsCode(wrapped, ErrCodeSessionInvalid))
	assert.Equal(t, ErrCodeSessionInvalid, GetCode(wrapped))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, ErrCodeTransport, "initiate request failed")

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "initiate request failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetCode_PlainError(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetCode(fmt.Errorf("plain")))
}

func TestFamilyHelpers(t *testing.T) {
	assert.True(t, IsTransport(New(ErrCodeServerUnreachable, "down")))
	assert.True(t, IsTransport(New(ErrCodeTimeout, "slow")))
	assert.False(t, IsTransport(New(ErrCodeDecryptionFailed, "bad")))

	assert.True(t, IsCrypto(New(ErrCodeDecryptionFailed, "bad")))
	assert.True(t, IsCrypto(New(ErrCodeKeyMalformed, "bad")))
	assert.False(t, IsCrypto(New(ErrCodeProtocol, "bad")))

	assert.True(t, IsProtocol(New(ErrCodeSessionInvalid, "bad")))
	assert.False(t, IsProtocol(New(ErrCodeTransport, "bad")))
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, MapErrorCodeToHTTPStatus(ErrCodeNotFound))
	assert.Equal(t, http.StatusBadRequest, MapErrorCodeToHTTPStatus(ErrCodeInvalidInput))
	assert.Equal(t, http.StatusConflict, MapErrorCodeToHTTPStatus(ErrCodeConflict))
	assert.Equal(t, http.StatusBadGateway, MapErrorCodeToHTTPStatus(ErrCodeServerUnreachable))
	assert.Equal(t, http.StatusInternalServerError, MapErrorCodeToHTTPStatus(ErrCodeInternal))
}
