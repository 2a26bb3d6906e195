package handshake

import (
	"github.com/tendant/device-trust/pkg/devicefp"
)

// Next-step values the server may return from the initiate endpoint
const (
	NextStepComplete = "complete_handshake"
)

// ServerPublicKey is the server's published encryption key record
type ServerPublicKey struct {
	PublicKey string `json:"publicKey"`
	Algorithm string `json:"algorithm"`
	Encoding  string `json:"encoding"`
	KeyID     string `json:"keyId"`
}

// InitiateRequest starts a handshake attempt
type InitiateRequest struct {
	DevicePublicKey string `json:"devicePublicKey"`
}

// InitiateResponse is the server hello
type InitiateResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	SessionID       string `json:"sessionId"`
	ServerPublicKey string `json:"serverPublicKey"`
	NextStep        string `json:"nextStep"`
}

// DeviceMeta bundles the descriptor and collaborator-supplied attributes
// sent with the completion request
type DeviceMeta struct {
	Descriptor           devicefp.Descriptor `json:"descriptor"`
	NotificationsEnabled bool                `json:"notificationsEnabled"`
	RoutingID            string              `json:"routingId"`
	FingerprintDigest    string              `json:"fingerprintDigest"`
	Locale               string              `json:"locale"`
}

// CompleteRequest finishes a handshake attempt
type CompleteRequest struct {
	SessionID            string     `json:"sessionId"`
	DevicePublicKey      string     `json:"devicePublicKey"`
	EncryptedDeviceToken string     `json:"encryptedDeviceToken"`
	DeviceMeta           DeviceMeta `json:"deviceMeta"`
}

// CompleteResponse carries the issued identity, encrypted under the
// device's own public key
type CompleteResponse struct {
	Success            bool   `json:"success"`
	Message            string `json:"message,omitempty"`
	DeviceID           string `json:"deviceId"` // Ciphertext
	DeviceHash         string `json:"deviceHash"`
	HandshakeCompleted bool   `json:"handshakeCompleted"`
}
