package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the availability probe failed. Callers may
	// retry later; the core never retries on its own.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrStartFailed means transport establishment failed, for example a
	// spawn failure or a missing model.
	ErrStartFailed = errors.New("provider start failed")

	// ErrSessionNotActive means an operation required an Active session.
	ErrSessionNotActive = errors.New("session not active")

	// ErrTimeout means a transport round trip exceeded the configured
	// bound. The session stays Active and its log is unchanged.
	ErrTimeout = errors.New("response timed out")

	// ErrMultilineInput means a message contained embedded newlines,
	// which the line-oriented subprocess transport does not support.
	ErrMultilineInput = errors.New("multi-line input not supported by line-oriented transport")
)

// TransportError is a non-timeout I/O or protocol failure, such as a
// non-2xx HTTP status or a broken pipe.
type TransportError struct {
	Provider string
	Op       string
	Status   int // HTTP status, 0 for non-HTTP failures
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s: HTTP %d: %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
