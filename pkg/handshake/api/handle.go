package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/device-trust/pkg/errors"
	"github.com/tendant/device-trust/pkg/handshake"
)

// HandshakeHandler exposes the handshake subsystem's data to the host
// application: current state, issued identity, and the start/retry/reset
// actions
type HandshakeHandler struct {
	client *handshake.Client
}

// NewHandshakeHandler creates a new handshake handler
func NewHandshakeHandler(client *handshake.Client) *HandshakeHandler {
	return &HandshakeHandler{
		client: client,
	}
}

// StatusResponse represents the response body for the status endpoint
type StatusResponse struct {
	Status   string `json:"status"`
	State    string `json:"state"`
	DeviceID string `json:"device_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ActionResponse represents the response body for handshake actions
type ActionResponse struct {
	Status  string `json:"status"`
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Routes mounts the handler on a chi router
func (h *HandshakeHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.GetStatus)
	r.Post("/handshake", h.StartHandshake)
	r.Post("/handshake/retry", h.RetryHandshake)
	r.Delete("/", h.ResetDevice)
	return r
}

// GetStatus reports the machine state and the issued identity
func (h *HandshakeHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status: "success",
		State:  string(h.client.State()),
	}
	if identity, ok := h.client.Identity(r.Context()); ok {
		resp.DeviceID = identity
	}
	if err := h.client.LastError(); err != nil {
		resp.Error = err.Error()
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// StartHandshake runs a handshake attempt
func (h *HandshakeHandler) StartHandshake(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Start(r.Context()); err != nil {
		slog.Error("Handshake failed", "error", err)
		renderError(w, r, err, "Handshake failed")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ActionResponse{
		Status: "success",
		State:  string(h.client.State()),
	})
}

// RetryHandshake re-enters the machine after a failure
func (h *HandshakeHandler) RetryHandshake(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Retry(r.Context()); err != nil {
		slog.Error("Handshake retry failed", "error", err)
		renderError(w, r, err, "Handshake retry failed")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ActionResponse{
		Status: "success",
		State:  string(h.client.State()),
	})
}

// ResetDevice erases the device's trust material
func (h *HandshakeHandler) ResetDevice(w http.ResponseWriter, r *http.Request) {
	h.client.Reset(r.Context())

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ActionResponse{
		Status:  "success",
		State:   string(h.client.State()),
		Message: "device trust material cleared",
	})
}

// renderError writes an error response with the status mapped from the
// error code
func renderError(w http.ResponseWriter, r *http.Request, err error, message string) {
	render.Status(r, errors.MapErrorCodeToHTTPStatus(errors.GetCode(err)))
	render.JSON(w, r, ErrorResponse{
		Status:  "error",
		Message: message,
		Error:   err.Error(),
	})
}
