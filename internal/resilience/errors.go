// Package resilience classifies failures from the remote services the
// pipeline talks to.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// TransportError is a failed request to a remote service: either a
// non-success HTTP status or a network-level failure.
type TransportError struct {
	Service    string // "aftership", "nominatim", "google"
	Op         string // human-readable request description
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", e.Service, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError builds a TransportError. statusCode is 0 for failures
// that never produced a response.
func NewTransportError(service, op string, statusCode int, err error) *TransportError {
	return &TransportError{Service: service, Op: op, StatusCode: statusCode, Err: err}
}

// AsTransportError returns the first TransportError in err's chain.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsTransient reports whether err is likely to succeed when the run is
// repeated later: throttling, 5xx responses, timeouts, connection resets and
// DNS failures. Nothing retries automatically; the CLI uses this to tell the
// operator that a rerun will resume where the cache left off.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if te, ok := AsTransportError(err); ok && te.StatusCode != 0 {
		return IsTransientHTTPStatus(te.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
