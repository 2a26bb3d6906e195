package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Common error codes used across all packages
const (
	// Generic errors
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"

	// Transport errors (network/server unreachable - user retryable)
	ErrCodeTransport          ErrorCode = "TRANSPORT_ERROR"
	ErrCodeServerUnreachable  ErrorCode = "SERVER_UNREACHABLE"
	ErrCodeUnexpectedResponse ErrorCode = "UNEXPECTED_RESPONSE"

	// Protocol errors (well-formed but semantically invalid response)
	ErrCodeProtocol        ErrorCode = "PROTOCOL_ERROR"
	ErrCodeSessionInvalid  ErrorCode = "SESSION_INVALID"
	ErrCodeSessionExpired  ErrorCode = "SESSION_EXPIRED"
	ErrCodeUnexpectedStep  ErrorCode = "UNEXPECTED_STEP"
	ErrCodeHandshakeFailed ErrorCode = "HANDSHAKE_FAILED"

	// Crypto errors (malformed ciphertext or key mismatch)
	ErrCodeCrypto           ErrorCode = "CRYPTO_ERROR"
	ErrCodeKeyGeneration    ErrorCode = "KEY_GENERATION_FAILED"
	ErrCodeKeyMalformed     ErrorCode = "KEY_MALFORMED"
	ErrCodeDecryptionFailed ErrorCode = "DECRYPTION_FAILED"
	ErrCodeEncryptionFailed ErrorCode = "ENCRYPTION_FAILED"

	// Validation errors (stored content fails shape validation)
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidFormat    ErrorCode = "INVALID_FORMAT"
	ErrCodeMissingRequired  ErrorCode = "MISSING_REQUIRED"
	ErrCodeValueTooShort    ErrorCode = "VALUE_TOO_SHORT"

	// Storage errors
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeQuotaExceeded      ErrorCode = "QUOTA_EXCEEDED"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an existing error with code and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// IsTransport reports whether the error is in the transport family
// (user-retryable network or server reachability failures)
func IsTransport(err error) bool {
	switch GetCode(err) {
	case ErrCodeTransport, ErrCodeServerUnreachable, ErrCodeTimeout:
		return true
	}
	return false
}

// IsCrypto reports whether the error is in the crypto family
func IsCrypto(err error) bool {
	switch GetCode(err) {
	case ErrCodeCrypto, ErrCodeKeyGeneration, ErrCodeKeyMalformed,
		ErrCodeDecryptionFailed, ErrCodeEncryptionFailed:
		return true
	}
	return false
}

// IsProtocol reports whether the error is in the protocol family
func IsProtocol(err error) bool {
	switch GetCode(err) {
	case ErrCodeProtocol, ErrCodeSessionInvalid, ErrCodeSessionExpired,
		ErrCodeUnexpectedStep, ErrCodeHandshakeFailed:
		return true
	}
	return false
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	// 400 Bad Request
	case ErrCodeInvalidInput, ErrCodeValidationFailed, ErrCodeInvalidFormat,
		ErrCodeMissingRequired, ErrCodeValueTooShort, ErrCodeSessionInvalid:
		return http.StatusBadRequest

	// 404 Not Found
	case ErrCodeNotFound:
		return http.StatusNotFound

	// 409 Conflict
	case ErrCodeConflict, ErrCodeAlreadyExists:
		return http.StatusConflict

	// 422 Unprocessable Entity
	case ErrCodeProtocol, ErrCodeUnexpectedStep, ErrCodeHandshakeFailed,
		ErrCodeCrypto, ErrCodeDecryptionFailed, ErrCodeEncryptionFailed,
		ErrCodeKeyMalformed:
		return http.StatusUnprocessableEntity

	// 502 Bad Gateway
	case ErrCodeTransport, ErrCodeServerUnreachable, ErrCodeUnexpectedResponse:
		return http.StatusBadGateway

	// 503 Service Unavailable
	case ErrCodeStorageUnavailable, ErrCodeQuotaExceeded, ErrCodeTimeout:
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default)
	case ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors for frequently used errors

// NotFound creates a "not found" error
func NotFound(resourceType, identifier string) *Error {
	return Newf(ErrCodeNotFound, "%s not found: %s", resourceType, identifier)
}

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

// Internal creates an "internal error"
func Internal(message string) *Error {
	return New(ErrCodeInternal, message)
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// Transport creates a transport error wrapping a network failure
func Transport(err error, message string) *Error {
	return Wrap(err, ErrCodeTransport, message)
}

// Protocol creates a protocol error for a semantically invalid response
func Protocol(message string) *Error {
	return New(ErrCodeProtocol, message)
}

// Crypto wraps a cryptographic failure
func Crypto(err error, message string) *Error {
	return Wrap(err, ErrCodeCrypto, message)
}
