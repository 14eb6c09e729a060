package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Limiter gates outbound requests.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// ErrorKind classifies a per-list failure.
type ErrorKind string

const (
	ErrorKindTransport ErrorKind = "transport"
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindStatus    ErrorKind = "status"
	ErrorKindParse     ErrorKind = "parse"
	ErrorKindCancelled ErrorKind = "cancelled"
	ErrorKindInput     ErrorKind = "input"
)

// RemoteError describes why a list lookup failed. StatusCode is 0 when no
// response was received.
type RemoteError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// classifyTransportError maps a client.Do failure to an error kind.
func classifyTransportError(err error) ErrorKind {
	if errors.Is(err, context.Canceled) {
		return ErrorKindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorKindTimeout
	}
	return ErrorKindTransport
}
