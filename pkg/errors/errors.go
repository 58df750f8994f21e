// Package errors defines the gateway's error taxonomy and its mapping to
// HTTP statuses. Handlers translate these into JSON error envelopes; stores
// and the credential bridge wrap backend failures into them so no raw error
// ever crosses a component boundary.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a gateway failure.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeUpstream     Code = "upstream_error"
	CodeStore        Code = "store_error"
	CodeInternal     Code = "internal"
)

// GatewayError is the structured error carried between components.
type GatewayError struct {
	Code    Code
	Message string
	cause   error
}

func (e *GatewayError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.cause }

// New creates a GatewayError with the given code and message.
func New(code Code, message string) error {
	return &GatewayError{Code: code, Message: message}
}

// Newf creates a GatewayError with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &GatewayError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause so callers can still errors.Is/As through it.
func Wrap(code Code, message string, cause error) error {
	return &GatewayError{Code: code, Message: message, cause: cause}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var gw *GatewayError
	if errors.As(err, &gw) {
		return gw.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// errors that did not originate in this package.
func CodeOf(err error) Code {
	var gw *GatewayError
	if errors.As(err, &gw) {
		return gw.Code
	}
	return CodeInternal
}

// MessageOf extracts the human-readable message from err.
func MessageOf(err error) string {
	var gw *GatewayError
	if errors.As(err, &gw) {
		return gw.Message
	}
	return err.Error()
}

// ToHTTPStatus maps an error code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeStore:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
