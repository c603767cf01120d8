// Package bridge multiplexes host actions and server responses over a single
// server connection and gates the response stream behind the login handshake.
package bridge

import "context"

// ReadSide is the receiving half of the server connection.
type ReadSide interface {
	// Read returns the next text frame.
	// Returns io.EOF when the connection is closed.
	Read(ctx context.Context) ([]byte, error)
}

// WriteSide is the sending half of the server connection.
type WriteSide interface {
	// Write sends data as a single text frame.
	Write(ctx context.Context, data []byte) error
}
