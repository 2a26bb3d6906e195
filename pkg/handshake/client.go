package handshake

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/device-trust/pkg/devicefp"
	"github.com/tendant/device-trust/pkg/errors"
	"github.com/tendant/device-trust/pkg/keymanager"
	"github.com/tendant/device-trust/pkg/notify"
	"github.com/tendant/device-trust/pkg/securestore"
)

const (
	// DefaultMinSessionIDLength is the minimal well-formed session id.
	// A guard against obviously broken responses, not a security control.
	DefaultMinSessionIDLength = 6

	// DefaultTakingLongAfter raises the advisory "taking long" signal
	DefaultTakingLongAfter = 8 * time.Second
)

// Config tunes the handshake client
type Config struct {
	// SettleDelay pauses between key generation and the initiate call.
	// The store persists synchronously, so this defaults to zero; the
	// knob remains for hosts whose storage backend completes writes
	// asynchronously.
	SettleDelay time.Duration

	// TakingLongAfter raises the advisory signal while a round trip is
	// still pending. Purely informational; the request is not aborted.
	TakingLongAfter time.Duration

	// MinSessionIDLength below which a session id is treated as absent
	MinSessionIDLength int

	// Locale travels in the device metadata
	Locale string
}

func (c *Config) applyDefaults() {
	if c.TakingLongAfter <= 0 {
		c.TakingLongAfter = DefaultTakingLongAfter
	}
	if c.MinSessionIDLength <= 0 {
		c.MinSessionIDLength = DefaultMinSessionIDLength
	}
}

// Client runs the two-round-trip protocol that turns a public key and a
// device descriptor into a server-issued Device Identity.
//
// The machine is Idle → AwaitingServerHello → AwaitingCompletion →
// Registered | Failed. There is no automatic retry: a failed attempt
// parks in Failed until the caller re-enters through Retry.
type Client struct {
	keys      *keymanager.Service
	collector *devicefp.Collector
	store     *securestore.Store
	transport Transport
	push      notify.Provider
	config    Config

	onTakingLong func()

	mutex    sync.Mutex
	state    State
	session  *Session
	attempt  int64
	inFlight bool
	lastErr  error
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithConfig overrides the default client configuration
func WithConfig(config Config) ClientOption {
	return func(c *Client) {
		c.config = config
	}
}

// WithPushProvider attaches the external push delivery provider
func WithPushProvider(provider notify.Provider) ClientOption {
	return func(c *Client) {
		c.push = provider
	}
}

// OnTakingLong registers the advisory slow-handshake callback
func OnTakingLong(fn func()) ClientOption {
	return func(c *Client) {
		c.onTakingLong = fn
	}
}

// NewClient creates a handshake client. The caller owns the wiring of the
// store, key manager, collector and transport; the client holds no hidden
// global state.
func NewClient(store *securestore.Store, keys *keymanager.Service, collector *devicefp.Collector, transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		keys:      keys,
		collector: collector,
		store:     store,
		transport: transport,
		push:      notify.NoopProvider{},
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.config.applyDefaults()
	return c
}

// State returns the current machine state
func (c *Client) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}

// LastError returns the failure reason after the machine entered Failed
func (c *Client) LastError() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lastErr
}

// Identity returns the persisted Device Identity, if one has been issued
func (c *Client) Identity(ctx context.Context) (string, bool) {
	id, ok := securestore.GetJSON[string](ctx, c.store, KeyIdentity)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Start runs a handshake attempt from Idle (or Failed, via Retry).
// It ensures a device key pair exists, initiates with the server, and,
// when the server requests completion, finishes the exchange. The machine
// lands in Registered, Failed, or parks in AwaitingServerHello when the
// server defers completion.
func (c *Client) Start(ctx context.Context) error {
	c.mutex.Lock()
	if c.inFlight {
		c.mutex.Unlock()
		return errors.New(errors.ErrCodeConflict, "handshake already in flight")
	}
	c.inFlight = true
	c.attempt++
	attempt := c.attempt
	c.session = nil
	c.lastErr = nil
	c.state = StateIdle
	c.mutex.Unlock()

	defer func() {
		c.mutex.Lock()
		c.inFlight = false
		c.mutex.Unlock()
	}()

	stopAdvisory := c.armTakingLong()
	defer stopAdvisory()

	// Precondition: a device key pair exists. The store persists
	// synchronously, so the pair is durable once EnsureKeyPair returns;
	// SettleDelay remains for asynchronous backends.
	pair, err := c.keys.EnsureKeyPair(ctx)
	if err != nil {
		return c.conclude(attempt, fail(err))
	}
	if c.config.SettleDelay > 0 {
		select {
		case <-time.After(c.config.SettleDelay):
		case <-ctx.Done():
			return c.conclude(attempt, fail(errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "handshake canceled")))
		}
	}

	c.setState(attempt, StateAwaitingServerHello)

	result := c.doInitiate(ctx, attempt, pair)
	if result.err != nil || result.next != StateAwaitingCompletion {
		return c.conclude(attempt, result)
	}
	c.setState(attempt, StateAwaitingCompletion)

	return c.conclude(attempt, c.doComplete(ctx, attempt, pair))
}

// Retry re-enters the machine after a failure. Explicit and caller-driven;
// the client never retries on its own.
func (c *Client) Retry(ctx context.Context) error {
	c.mutex.Lock()
	if c.state != StateFailed && c.state != StateIdle && c.state != StateAwaitingServerHello {
		state := c.state
		c.mutex.Unlock()
		return errors.Newf(errors.ErrCodeConflict, "cannot retry from state %s", state)
	}
	c.state = StateIdle
	c.mutex.Unlock()

	return c.Start(ctx)
}

// Reset erases the device's trust material: key pair, identity, server
// key, device token. The machine returns to Idle.
func (c *Client) Reset(ctx context.Context) {
	c.mutex.Lock()
	c.state = StateIdle
	c.session = nil
	c.lastErr = nil
	c.mutex.Unlock()

	c.keys.Clear(ctx)
	c.store.Delete(ctx, KeyIdentity)
	c.store.Delete(ctx, KeyServerKey)
	c.store.Delete(ctx, KeyDeviceToken)
	slog.Info("Device trust material cleared")
}

// doInitiate sends the device public key and handles the server hello
func (c *Client) doInitiate(ctx context.Context, attempt int64, pair keymanager.KeyPair) transition {
	resp, err := c.transport.Initiate(ctx, InitiateRequest{
		DevicePublicKey: pair.PublicKeyPEM,
	})
	if err != nil {
		return fail(err)
	}
	if c.isStale(attempt) {
		return fail(errors.New(errors.ErrCodeConflict, "stale initiate response discarded"))
	}

	if !resp.Success {
		return fail(errors.Newf(errors.ErrCodeHandshakeFailed, "initiate rejected: %s", resp.Message))
	}
	if len(resp.SessionID) < c.config.MinSessionIDLength {
		return fail(errors.New(errors.ErrCodeSessionInvalid, "session id missing or too short"))
	}
	if resp.ServerPublicKey == "" {
		return fail(errors.Protocol("server hello missing public key"))
	}

	// Persist the server key immediately; later attempts and other
	// subsystems encrypt against it
	record := ServerPublicKey{
		PublicKey: resp.ServerPublicKey,
		Algorithm: "RSA-OAEP-256",
		Encoding:  "pem",
	}
	if err := securestore.SetJSON(ctx, c.store, KeyServerKey, record); err != nil {
		return fail(errors.InternalWrap(err, "failed to persist server key"))
	}

	c.mutex.Lock()
	c.session = &Session{
		ID:              resp.SessionID,
		ServerPublicKey: resp.ServerPublicKey,
		NextStep:        resp.NextStep,
	}
	c.mutex.Unlock()

	if resp.NextStep != NextStepComplete {
		// Extension point for additional negotiation rounds: park with
		// no further automatic action
		slog.Info("Handshake parked awaiting server", "next_step", resp.NextStep)
		return advance(StateAwaitingServerHello)
	}

	return advance(StateAwaitingCompletion)
}

// doComplete encrypts the device token under the server key, sends the
// completion request and accepts the identity only after it decrypts
// locally
func (c *Client) doComplete(ctx context.Context, attempt int64, pair keymanager.KeyPair) transition {
	c.mutex.Lock()
	session := c.session
	c.mutex.Unlock()

	// Local guards before any network call
	if session == nil || len(session.ID) < c.config.MinSessionIDLength {
		return fail(errors.New(errors.ErrCodeSessionInvalid, "no well-formed session for completion"))
	}
	if session.ServerPublicKey == "" {
		return fail(errors.New(errors.ErrCodeMissingRequired, "no server public key for completion"))
	}

	descriptor := c.collector.Collect()
	if !descriptor.IsComplete() {
		return fail(errors.New(errors.ErrCodeMissingRequired, "device descriptor incomplete"))
	}
	digest := devicefp.Hash(descriptor)

	grant, err := c.push.RequestPermission(ctx)
	if err != nil {
		slog.Warn("Push permission request failed", "error", err)
		grant = notify.PermissionDenied
	}
	routingID := ""
	if grant == notify.PermissionGranted {
		routingID, err = c.push.Token(ctx)
		if err != nil {
			slog.Warn("Push token fetch failed", "error", err)
		}
	}

	c.persistDeviceFacts(ctx, descriptor, digest, routingID)

	deviceToken := c.ensureDeviceToken(ctx)
	encryptedToken, err := c.keys.EncryptFor(deviceToken, session.ServerPublicKey)
	if err != nil {
		return fail(err)
	}

	resp, err := c.transport.Complete(ctx, CompleteRequest{
		SessionID:            session.ID,
		DevicePublicKey:      pair.PublicKeyPEM,
		EncryptedDeviceToken: encryptedToken,
		DeviceMeta: DeviceMeta{
			Descriptor:           descriptor,
			NotificationsEnabled: grant == notify.PermissionGranted,
			RoutingID:            routingID,
			FingerprintDigest:    digest,
			Locale:               c.config.Locale,
		},
	})
	if err != nil {
		return fail(err)
	}
	if c.isStale(attempt) {
		return fail(errors.New(errors.ErrCodeConflict, "stale completion response discarded"))
	}

	if !resp.HandshakeCompleted || resp.DeviceID == "" {
		return fail(errors.Newf(errors.ErrCodeHandshakeFailed, "completion rejected: %s", resp.Message))
	}

	// The identity arrives ciphertext-only; accept it only after a
	// successful local decryption. On failure any previously stored
	// identity stays untouched.
	identity, err := c.keys.DecryptWithOwn(ctx, resp.DeviceID)
	if err != nil {
		slog.Error("Failed to decrypt issued identity, keeping previous", "error", err)
		return fail(err)
	}

	if err := securestore.SetJSON(ctx, c.store, KeyIdentity, identity); err != nil {
		return fail(errors.InternalWrap(err, "failed to persist identity"))
	}

	slog.Info("Device registered", "device_hash", resp.DeviceHash)
	return advance(StateRegistered)
}

// persistDeviceFacts stores the descriptor, digest and routing id for the
// rest of the application
func (c *Client) persistDeviceFacts(ctx context.Context, descriptor devicefp.Descriptor, digest, routingID string) {
	if err := securestore.SetJSON(ctx, c.store, KeyDescriptor, descriptor); err != nil {
		slog.Warn("Failed to persist descriptor", "error", err)
	}
	if err := securestore.SetJSON(ctx, c.store, KeyFingerprint, digest); err != nil {
		slog.Warn("Failed to persist fingerprint digest", "error", err)
	}
	if signal := c.collector.Signal(); signal != "" {
		if err := securestore.SetJSON(ctx, c.store, KeyFingerprintRaw, signal); err != nil {
			slog.Warn("Failed to persist fingerprint signal", "error", err)
		}
	}
	if routingID != "" {
		if err := securestore.SetJSON(ctx, c.store, KeyRoutingID, routingID); err != nil {
			slog.Warn("Failed to persist routing id", "error", err)
		}
	}
}

// ensureDeviceToken returns the opaque per-device token, generating it on
// first use
func (c *Client) ensureDeviceToken(ctx context.Context) string {
	if token, ok := securestore.GetJSON[string](ctx, c.store, KeyDeviceToken); ok && token != "" {
		return token
	}
	token := uuid.New().String()
	if err := securestore.SetJSON(ctx, c.store, KeyDeviceToken, token); err != nil {
		slog.Warn("Failed to persist device token", "error", err)
	}
	return token
}

// conclude applies a transition result to the machine unless a newer
// attempt has superseded this one
func (c *Client) conclude(attempt int64, result transition) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.attempt != attempt {
		slog.Debug("Discarding result of superseded attempt", "attempt", attempt)
		return result.err
	}

	c.state = result.next
	c.lastErr = result.err
	if result.err != nil {
		slog.Warn("Handshake failed", "state", c.state, "error", result.err)
	}
	return result.err
}

// setState moves the machine unless the attempt has been superseded
func (c *Client) setState(attempt int64, next State) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.attempt != attempt {
		return
	}
	c.state = next
}

// isStale reports whether a newer attempt has started since this one
func (c *Client) isStale(attempt int64) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.attempt != attempt
}

// armTakingLong starts the advisory slow-handshake timer
func (c *Client) armTakingLong() func() {
	if c.onTakingLong == nil {
		return func() {}
	}
	timer := time.AfterFunc(c.config.TakingLongAfter, c.onTakingLong)
	return func() {
		timer.Stop()
	}
}
