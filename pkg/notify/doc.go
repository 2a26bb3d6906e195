// Package notify defines the boundary to an external push delivery
// provider. The handshake only consumes two operations: a permission
// request and an opaque routing token that travels in the device metadata.
package notify
