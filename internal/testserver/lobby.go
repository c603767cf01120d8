package testserver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/omochice/ng-bridge/pkg/protocol"
)

const sendTimeout = 5 * time.Second

// Lobby is a minimal ng server: it handles logins, chat and ready state,
// broadcasting the resulting responses to every logged-in peer. Game rounds
// are not simulated.
type Lobby struct {
	logger *slog.Logger

	mu      sync.RWMutex
	players map[*Peer]string
}

// NewLobby creates an empty Lobby.
func NewLobby(logger *slog.Logger) *Lobby {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lobby{
		logger:  logger,
		players: make(map[*Peer]string),
	}
}

// Serve accepts peers from srv until ctx is done or the server stops.
func (l *Lobby) Serve(ctx context.Context, srv *Server) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		peer, err := srv.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.handlePeer(ctx, peer)
		}()
	}
}

// Players returns the number of logged-in peers.
func (l *Lobby) Players() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.players)
}

func (l *Lobby) handlePeer(ctx context.Context, peer *Peer) {
	logger := l.logger.With("remote", peer.RemoteAddr())
	defer peer.Close()

	var name string
	defer func() {
		if name == "" {
			return
		}
		l.mu.Lock()
		delete(l.players, peer)
		l.mu.Unlock()
		logger.Info("player left", "name", name)
		l.broadcast(protocol.PlayerQuit{Name: name})
	}()

	for {
		action, err := peer.Receive(ctx)
		if err != nil {
			var decodeErr *protocol.DecodeError
			if errors.As(err, &decodeErr) {
				logger.Warn("failed to decode action", "error", err)
				continue
			}
			return
		}

		if name == "" {
			login, ok := action.(protocol.Login)
			if !ok {
				logger.Debug("ignoring action before login", "kind", action.Kind())
				continue
			}
			if excuse := l.join(peer, login.Name); excuse != "" {
				l.send(peer, protocol.LoginResult{Excuse: &excuse})
				continue
			}
			name = login.Name
			logger.Info("player joined", "name", name)
			l.send(peer, protocol.LoginResult{})
			l.broadcast(protocol.PlayerJoin{Name: name})
			continue
		}

		switch a := action.(type) {
		case protocol.Send:
			l.broadcast(protocol.MessageFrom{Sender: name, Content: a.Text})
		case protocol.SetReady:
			l.broadcast(protocol.PlayerReady{Name: name})
		case protocol.CancelReady:
			l.broadcast(protocol.PlayerNotReady{Name: name})
		case protocol.RequestAbort:
			l.broadcast(protocol.StartVoteAbort{})
		case protocol.VoteAbort:
			l.broadcast(protocol.VotedAbort{Abort: a.Abort, Voter: name})
		case protocol.Login:
			excuse := "already logged in"
			l.send(peer, protocol.LoginResult{Excuse: &excuse})
		default:
			logger.Debug("ignoring action", "kind", action.Kind())
		}
	}
}

// join registers name for peer and returns an excuse when it is refused.
func (l *Lobby) join(peer *Peer, name string) string {
	if name == "" {
		return "name must not be empty"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, taken := range l.players {
		if taken == name {
			return "name taken"
		}
	}
	l.players[peer] = name
	return ""
}

func (l *Lobby) send(peer *Peer, r protocol.Response) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := peer.Send(ctx, r); err != nil {
		l.logger.Warn("failed to send response", "remote", peer.RemoteAddr(), "kind", r.Kind(), "error", err)
	}
}

// broadcast sends r to every logged-in peer.
func (l *Lobby) broadcast(r protocol.Response) {
	l.mu.RLock()
	peers := make([]*Peer, 0, len(l.players))
	for p := range l.players {
		peers = append(peers, p)
	}
	l.mu.RUnlock()

	for _, p := range peers {
		l.send(p, r)
	}
}
