// Package ws provides the WebSocket client transport for the bridge.
package ws

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/omochice/ng-bridge/internal/bridge"
)

// Conn is a client WebSocket connection carrying text frames.
type Conn struct {
	conn       net.Conn
	endpoint   string
	reader     *wsutil.Reader
	control    wsutil.FrameHandlerFunc
	readMu     sync.Mutex
	writeMu    sync.Mutex
	closeOnce  sync.Once
	remoteAddr string
}

// Dial connects to endpoint, which must be a ws:// or wss:// URL.
// Failures are reported as *bridge.TransportError.
func Dial(ctx context.Context, endpoint string) (*Conn, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &bridge.TransportError{Op: "dial", Err: fmt.Errorf("invalid endpoint %q: %w", endpoint, err)}
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, &bridge.TransportError{Op: "dial", Err: fmt.Errorf("invalid endpoint %q: unsupported scheme %q", endpoint, u.Scheme)}
	}

	conn, br, _, err := ws.Dial(ctx, endpoint)
	if err != nil {
		return nil, &bridge.TransportError{Op: "dial", Err: fmt.Errorf("failed to connect to server: %w", err)}
	}

	return newConn(conn, br, endpoint), nil
}

func newConn(conn net.Conn, br *bufio.Reader, endpoint string) *Conn {
	var src io.Reader = conn
	if br != nil {
		// The server sent frames together with the handshake response.
		src = io.MultiReader(br, conn)
	}

	c := &Conn{
		conn:       conn,
		endpoint:   endpoint,
		remoteAddr: conn.RemoteAddr().String(),
	}
	c.control = wsutil.ControlFrameHandler(lockedWriter{c}, ws.StateClientSide)
	c.reader = &wsutil.Reader{
		Source:         src,
		State:          ws.StateClientSide,
		CheckUTF8:      true,
		OnIntermediate: c.control,
	}
	return c
}

// Read returns the payload of the next text frame. Control frames are
// answered internally and binary frames are skipped. A close from the server
// is reported as io.EOF.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := c.bindDeadline(ctx, c.conn.SetReadDeadline)
	defer stop()

	for {
		hdr, err := c.reader.NextFrame()
		if err != nil {
			return nil, c.readErr(ctx, err)
		}

		if hdr.OpCode.IsControl() {
			if err := c.control(hdr, c.reader); err != nil {
				return nil, c.readErr(ctx, err)
			}
			continue
		}

		if hdr.OpCode != ws.OpText {
			if err := c.reader.Discard(); err != nil {
				return nil, c.readErr(ctx, err)
			}
			continue
		}

		data, err := io.ReadAll(c.reader)
		if err != nil {
			return nil, c.readErr(ctx, err)
		}
		return data, nil
	}
}

// Write sends data as one text frame.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	stop := c.bindDeadline(ctx, c.conn.SetWriteDeadline)
	defer stop()

	if err := wsutil.WriteClientText(c.conn, data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Close sends a normal closure frame and closes the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// RemoteAddr returns the server address.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// Endpoint returns the URL the connection was dialed with.
func (c *Conn) Endpoint() string {
	return c.endpoint
}

// Split returns the read and write halves of the connection.
func (c *Conn) Split() (bridge.ReadSide, bridge.WriteSide) {
	return readHalf{c}, writeHalf{c}
}

type readHalf struct{ c *Conn }

func (h readHalf) Read(ctx context.Context) ([]byte, error) { return h.c.Read(ctx) }

type writeHalf struct{ c *Conn }

func (h writeHalf) Write(ctx context.Context, data []byte) error { return h.c.Write(ctx, data) }

// lockedWriter serializes control frame replies with regular writes.
type lockedWriter struct{ c *Conn }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.writeMu.Lock()
	defer w.c.writeMu.Unlock()
	return w.c.conn.Write(p)
}

// bindDeadline applies the context deadline to the connection and interrupts
// blocked I/O when the context is canceled.
func (c *Conn) bindDeadline(ctx context.Context, set func(time.Time) error) func() {
	if deadline, ok := ctx.Deadline(); ok {
		_ = set(deadline)
	} else {
		_ = set(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = set(time.Unix(1, 0))
	})
	return func() { stop() }
}

func (c *Conn) readErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var closed wsutil.ClosedError
	if errors.As(err, &closed) {
		return io.EOF
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return io.EOF
	}
	return err
}
