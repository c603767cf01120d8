// Package testserver runs a scripted ng game server over WebSocket.
// Tests drive each accepted client through a Peer; Lobby serves them as a
// minimal game server for local runs.
package testserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/omochice/ng-bridge/pkg/protocol"
	"nhooyr.io/websocket"
)

// Server accepts WebSocket clients and hands them out as Peers.
type Server struct {
	address  string
	listener net.Listener
	server   *http.Server
	hub      *Hub
	peers    chan *Peer
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Server that will listen on address (":0" for any port).
func New(address string) *Server {
	return &Server{
		address: address,
		hub:     NewHub(),
		peers:   make(chan *Peer, 10),
		quit:    make(chan struct{}),
	}
}

// Start begins listening and serving in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	s.server = &http.Server{Handler: mux}

	slog.Debug("test server started", "address", listener.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("test server stopped", "error", err)
		}
	}()
	return nil
}

// Stop closes every peer and the listener.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.hub.CloseAll()
		if s.server != nil {
			_ = s.server.Shutdown(context.Background())
		}
		s.wg.Wait()
	})
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// URL returns the ws:// endpoint of the server.
func (s *Server) URL() string {
	return "ws://" + s.Addr() + "/"
}

// PeerCount returns the number of connected peers.
func (s *Server) PeerCount() int {
	return s.hub.Count()
}

// Accept waits for the next client to connect.
func (s *Server) Accept(ctx context.Context) (*Peer, error) {
	select {
	case p := <-s.peers:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.quit:
		return nil, errors.New("server stopped")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("failed to accept WebSocket connection", "error", err)
		return
	}

	peer := newPeer(conn, r.RemoteAddr)
	s.hub.Register(peer)
	defer s.hub.Unregister(peer)

	select {
	case s.peers <- peer:
	case <-s.quit:
		peer.Close()
		return
	}

	select {
	case <-peer.closed:
	case <-s.quit:
		peer.Close()
	}
}

// Peer is one connected client as seen by the server.
type Peer struct {
	conn       *websocket.Conn
	remoteAddr string
	closed     chan struct{}
	closeOnce  sync.Once
}

func newPeer(conn *websocket.Conn, addr string) *Peer {
	return &Peer{
		conn:       conn,
		remoteAddr: addr,
		closed:     make(chan struct{}),
	}
}

// RemoteAddr returns the client address.
func (p *Peer) RemoteAddr() string {
	return p.remoteAddr
}

// Send writes a response as a text frame.
func (p *Peer) Send(ctx context.Context, r protocol.Response) error {
	data, err := protocol.EncodeResponse(r)
	if err != nil {
		return err
	}
	return p.SendRaw(ctx, data)
}

// SendRaw writes data as a text frame without encoding it.
func (p *Peer) SendRaw(ctx context.Context, data []byte) error {
	return p.conn.Write(ctx, websocket.MessageText, data)
}

// SendBinary writes data as a binary frame.
func (p *Peer) SendBinary(ctx context.Context, data []byte) error {
	return p.conn.Write(ctx, websocket.MessageBinary, data)
}

// Receive reads and decodes the next action from the client.
func (p *Peer) Receive(ctx context.Context) (protocol.Action, error) {
	_, data, err := p.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeAction(data)
}

// Close closes the connection with a normal closure status.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.conn.Close(websocket.StatusNormalClosure, "")
		close(p.closed)
	})
	return err
}
