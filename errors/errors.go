package errors

import (
	"errors"
	"fmt"
)

// CredentialError means the vendor rejected the supplied account secrets.
// It is never retried and the message is safe to surface to the caller.
type CredentialError struct {
	Vendor  string
	Message string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s: %s", e.Vendor, e.Message)
}

// SessionExpiredError means a previously issued vendor session was rejected.
// Adapters invalidate the cached session and retry the full handshake once;
// a second occurrence is promoted to a TransportError.
type SessionExpiredError struct {
	Vendor string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("%s: session expired", e.Vendor)
}

// NoDataError means the vendor is reachable and the credentials are valid,
// but there is nothing to report yet (e.g. a sensor still warming up).
type NoDataError struct {
	Vendor  string
	Message string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s: %s", e.Vendor, e.Message)
}

// TransportError covers timeouts, malformed payloads and unexpected vendor
// responses. StatusCode is zero when the failure happened below HTTP.
type TransportError struct {
	Vendor     string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Vendor, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Vendor, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func NewCredential(vendor, message string) error {
	return &CredentialError{Vendor: vendor, Message: message}
}

func NewSessionExpired(vendor string) error {
	return &SessionExpiredError{Vendor: vendor}
}

func NewNoData(vendor, message string) error {
	return &NoDataError{Vendor: vendor, Message: message}
}

func NewTransport(vendor string, statusCode int, message string) error {
	return &TransportError{Vendor: vendor, StatusCode: statusCode, Message: message}
}

func WrapTransport(vendor, message string, err error) error {
	return &TransportError{Vendor: vendor, Message: message, Err: err}
}

func IsCredential(err error) bool {
	var e *CredentialError
	return errors.As(err, &e)
}

func IsSessionExpired(err error) bool {
	var e *SessionExpiredError
	return errors.As(err, &e)
}

func IsNoData(err error) bool {
	var e *NoDataError
	return errors.As(err, &e)
}

func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}
