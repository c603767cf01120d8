package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned once the bridge has stopped.
	ErrClosed = errors.New("bridge closed")
	// ErrConnectionLost is the cause reported to a login that never saw a result.
	ErrConnectionLost = errors.New("network error, please restart the application")
	// ErrHandshakeDone is returned by Login after the handshake already ran.
	ErrHandshakeDone = errors.New("login handshake already performed")
	// ErrNotAuthenticated is returned by Drain before a successful login.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// TransportError reports a connection that could not be established or
// failed afterwards. It is fatal to the bridge.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolRejection carries the excuse the server gave for refusing a login.
type ProtocolRejection struct {
	Reason string
}

func (e *ProtocolRejection) Error() string {
	return e.Reason
}
