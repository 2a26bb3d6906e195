// Package errors provides structured error handling for device-trust.
//
// Errors carry a stable ErrorCode grouped into four families that callers
// dispatch on:
//
//   - Transport: network or server reachability failures, user-retryable
//   - Protocol: well-formed but semantically invalid responses
//   - Crypto: malformed ciphertext or key mismatch
//   - Validation: stored content failing shape validation
//
// # Basic Usage
//
//	import "github.com/tendant/device-trust/pkg/errors"
//
//	// Create errors
//	err := errors.New(errors.ErrCodeSessionInvalid, "session id too short")
//
//	// Wrap underlying errors
//	err = errors.Wrap(netErr, errors.ErrCodeTransport, "initiate handshake")
//
//	// Check error families
//	if errors.IsTransport(err) {
//		// surface to the user for retry
//	}
//	if errors.IsCode(err, errors.ErrCodeDecryptionFailed) {
//		// keep the previously stored identity
//	}
//
// # HTTP Mapping
//
//	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
//	http.Error(w, err.Error(), status)
package errors
