package notify

import (
	"context"
)

// PermissionGrant is the outcome of a push permission request
type PermissionGrant string

const (
	PermissionGranted PermissionGrant = "granted"
	PermissionDenied  PermissionGrant = "denied"
)

// Provider is the narrow boundary to an external push delivery system.
// Token returns the opaque messaging-delivery routing id that feeds the
// handshake's device metadata.
type Provider interface {
	RequestPermission(ctx context.Context) (PermissionGrant, error)
	Token(ctx context.Context) (string, error)
}

// NoopProvider denies permission and returns no token, for deployments
// without push delivery
type NoopProvider struct{}

// RequestPermission always denies
func (NoopProvider) RequestPermission(ctx context.Context) (PermissionGrant, error) {
	return PermissionDenied, nil
}

// Token always returns empty
func (NoopProvider) Token(ctx context.Context) (string, error) {
	return "", nil
}

// StaticProvider returns fixed values, for tests and hosts that obtain
// their routing id out of band
type StaticProvider struct {
	Grant        PermissionGrant
	RoutingToken string
}

// RequestPermission returns the configured grant
func (p StaticProvider) RequestPermission(ctx context.Context) (PermissionGrant, error) {
	return p.Grant, nil
}

// Token returns the configured routing token
func (p StaticProvider) Token(ctx context.Context) (string, error) {
	return p.RoutingToken, nil
}
