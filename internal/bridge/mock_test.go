package bridge_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/omochice/ng-bridge/internal/bridge"
	"github.com/omochice/ng-bridge/pkg/protocol"
)

// mockConn is a mock implementation of both connection halves for testing.
type mockConn struct {
	readCh    chan []byte
	readErr   error
	closeOnce sync.Once

	writtenMu sync.Mutex
	written   [][]byte
	writeErr  error
	// gate, when set, must receive a value before each Write completes.
	gate     chan struct{}
	writeCh  chan []byte
	closed   chan struct{}
	closeErr error
}

func newMockConn() *mockConn {
	return &mockConn{
		readCh:  make(chan []byte, 512),
		writeCh: make(chan []byte, 512),
		closed:  make(chan struct{}),
	}
}

func (m *mockConn) Read(ctx context.Context) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-m.readCh:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

func (m *mockConn) Write(ctx context.Context, data []byte) error {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writtenMu.Lock()
	copied := make([]byte, len(data))
	copy(copied, data)
	m.written = append(m.written, copied)
	m.writtenMu.Unlock()
	m.writeCh <- copied
	return nil
}

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return m.closeErr
}

func (m *mockConn) GetWritten() [][]byte {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	return append([][]byte(nil), m.written...)
}

// feed queues responses for the bridge to read.
func (m *mockConn) feed(t *testing.T, responses ...protocol.Response) {
	t.Helper()
	for _, r := range responses {
		data, err := protocol.EncodeResponse(r)
		if err != nil {
			t.Fatalf("failed to encode %T: %v", r, err)
		}
		m.readCh <- data
	}
}

func (m *mockConn) feedRaw(frames ...string) {
	for _, f := range frames {
		m.readCh <- []byte(f)
	}
}

// hangUp simulates the server closing the connection.
func (m *mockConn) hangUp() {
	close(m.readCh)
}

// Compile-time check that mockConn implements both halves
var (
	_ bridge.ReadSide  = (*mockConn)(nil)
	_ bridge.WriteSide = (*mockConn)(nil)
)

type event struct {
	name    string
	payload any
}

// recorder collects notifications.
type recorder struct {
	mu      sync.Mutex
	events  []event
	servers int
}

func (r *recorder) Notify(name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == bridge.EventServer {
		r.servers++
		return
	}
	r.events = append(r.events, event{name: name, payload: payload})
}

func (r *recorder) Events() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (r *recorder) ServerEvents() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.servers
}

func newBridge(t *testing.T, conn *mockConn, opts ...bridge.Option) (*bridge.Bridge, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]bridge.Option{bridge.WithCloser(conn)}, opts...)
	b := bridge.New(conn, conn, bridge.NewQueues(0, 0), rec, opts...)
	b.Start()
	t.Cleanup(func() { b.Close() })
	return b, rec
}

// waitWritten waits until n frames were written.
func waitWritten(t *testing.T, conn *mockConn, n int) [][]byte {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if got := conn.GetWritten(); len(got) >= n {
			return got
		}
		select {
		case <-conn.writeCh:
		case <-deadline:
			t.Fatalf("timeout waiting for %d written frames, got %d", n, len(conn.GetWritten()))
		}
	}
}

func waitDone(t *testing.T, b *bridge.Bridge) {
	t.Helper()
	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for bridge to stop")
	}
}

func waitServerEvents(t *testing.T, rec *recorder, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for rec.ServerEvents() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d server events, got %d", n, rec.ServerEvents())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
