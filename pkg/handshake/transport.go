package handshake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tendant/device-trust/pkg/errors"
)

// Transport is the wire boundary of the handshake protocol
type Transport interface {
	ServerKey(ctx context.Context) (ServerPublicKey, error)
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error)
	Complete(ctx context.Context, req CompleteRequest) (CompleteResponse, error)
}

// HTTPTransport implements Transport over JSON/HTTP
type HTTPTransport struct {
	Base string
	HTTP *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport against the given base URL
func NewHTTPTransport(base string) *HTTPTransport {
	return &HTTPTransport{
		Base: base,
		HTTP: &http.Client{Timeout: 30 * time.Second},
	}
}

// ServerKey fetches the server's published encryption key record
func (t *HTTPTransport) ServerKey(ctx context.Context) (ServerPublicKey, error) {
	var out ServerPublicKey
	if err := t.get(ctx, "/server-public-key", &out); err != nil {
		return ServerPublicKey{}, err
	}
	if out.PublicKey == "" {
		return ServerPublicKey{}, errors.Protocol("server key response missing public key")
	}
	return out, nil
}

// Initiate sends the device public key to the initiate endpoint
func (t *HTTPTransport) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	var out InitiateResponse
	if err := t.post(ctx, "/initiate-handshake", req, &out); err != nil {
		return InitiateResponse{}, err
	}
	return out, nil
}

// Complete sends the encrypted device token and metadata to the completion
// endpoint
func (t *HTTPTransport) Complete(ctx context.Context, req CompleteRequest) (CompleteResponse, error) {
	var out CompleteResponse
	if err := t.post(ctx, "/complete-handshake", req, &out); err != nil {
		return CompleteResponse{}, err
	}
	return out, nil
}

func (t *HTTPTransport) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.InternalWrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Base+path, bytes.NewReader(raw))
	if err != nil {
		return errors.InternalWrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	return t.do(req, out)
}

func (t *HTTPTransport) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.Base+path, nil)
	if err != nil {
		return errors.InternalWrap(err, "failed to build request")
	}
	return t.do(req, out)
}

func (t *HTTPTransport) do(req *http.Request, out interface{}) error {
	client := t.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Transport(err, fmt.Sprintf("request to %s failed", req.URL.Path))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return errors.Newf(errors.ErrCodeServerUnreachable, "server error on %s: %s", req.URL.Path, resp.Status)
	}
	if resp.StatusCode >= 400 {
		return errors.Newf(errors.ErrCodeUnexpectedResponse, "request to %s rejected: %s", req.URL.Path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrCodeUnexpectedResponse, "failed to decode response")
	}
	return nil
}
