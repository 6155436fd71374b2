package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrorType categorizes transport failures.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeDNS
	ErrTypeTimeout
	ErrTypeCanceled
	ErrTypeHTTPStatus
	ErrTypeInvalidResponse
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeDNS:
		return "dns"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeCanceled:
		return "canceled"
	case ErrTypeHTTPStatus:
		return "http_status"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// ClientError is a transport-level failure talking to the inference server.
// Message is meant to be shown to a user as is.
type ClientError struct {
	Type       ErrorType
	Code       string // e.g. "ECONNREFUSED", "ETIMEDOUT", "HTTP_404"
	Message    string
	StatusCode int // set for ErrTypeHTTPStatus
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is an upstream timeout.
func IsTimeout(err error) bool {
	return hasType(err, ErrTypeTimeout)
}

// IsConnectionError reports whether the inference server could not be reached.
func IsConnectionError(err error) bool {
	return hasType(err, ErrTypeConnection) || hasType(err, ErrTypeDNS)
}

// IsCanceled reports whether the request was canceled by the caller.
func IsCanceled(err error) bool {
	return hasType(err, ErrTypeCanceled)
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}

func hasType(err error, t ErrorType) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == t
}

// classify turns an error from net/http into a ClientError with a readable message.
func classify(err error, target string) *ClientError {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce
	}

	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.Is(err, context.Canceled):
		return &ClientError{
			Type:    ErrTypeCanceled,
			Code:    "ECANCELED",
			Message: "request to " + target + " was canceled",
			Cause:   err,
		}
	case errors.As(err, &dnsErr):
		return &ClientError{
			Type:    ErrTypeDNS,
			Code:    "ENOTFOUND",
			Message: fmt.Sprintf("cannot resolve Ollama host %q", dnsErr.Name),
			Cause:   err,
		}
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return &ClientError{
			Type:    ErrTypeTimeout,
			Code:    "ETIMEDOUT",
			Message: "request to Ollama at " + target + " timed out",
			Cause:   err,
		}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &ClientError{
			Type:    ErrTypeConnection,
			Code:    "ECONNREFUSED",
			Message: "cannot connect to Ollama at " + target + " (connection refused). Is the server running?",
			Cause:   err,
		}
	case errors.Is(err, syscall.ECONNRESET):
		return &ClientError{
			Type:    ErrTypeConnection,
			Code:    "ECONNRESET",
			Message: "connection to Ollama at " + target + " was reset",
			Cause:   err,
		}
	default:
		return &ClientError{
			Type:    ErrTypeConnection,
			Code:    "ECONNECTION",
			Message: "error communicating with Ollama at " + target,
			Cause:   err,
		}
	}
}
