package eventlistener

import (
	"errors"
	"fmt"
)

var (
	ErrListenerClosed = errors.New("listener closed")
	ErrTruncated      = errors.New("truncated event payload")
)

// TransportError reports a socket failure. It is never fatal: the listener
// schedules a reconnect after reporting it.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("websocket %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports a log line that could not be turned into an event.
type DecodeError struct {
	Signature string
	Line      string
	Err       error
}

func (e *DecodeError) Error() string {
	if e.Signature != "" {
		return fmt.Sprintf("decode event in %s: %v", e.Signature, e.Err)
	}
	return fmt.Sprintf("decode event: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
