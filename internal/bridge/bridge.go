package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Overflow selects what the dispatcher does when the response queue is full.
type Overflow int

const (
	// OverflowBlock stalls the reader until the consumer catches up.
	OverflowBlock Overflow = iota
	// OverflowDrop discards the response and keeps reading.
	OverflowDrop
)

// String returns the string representation of Overflow
func (o Overflow) String() string {
	switch o {
	case OverflowBlock:
		return "block"
	case OverflowDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// ParseOverflow parses "block" or "drop".
func ParseOverflow(s string) (Overflow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block", "":
		return OverflowBlock, nil
	case "drop":
		return OverflowDrop, nil
	default:
		return OverflowBlock, fmt.Errorf("unknown overflow policy %q", s)
	}
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the base logger. The bridge adds a session attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithOverflow sets the inbound overflow policy.
func WithOverflow(o Overflow) Option {
	return func(b *Bridge) {
		b.overflow = o
	}
}

// WithCloser sets the connection to close when the bridge stops.
func WithCloser(c io.Closer) Option {
	return func(b *Bridge) {
		b.closer = c
	}
}

// Bridge owns one server connection for its whole lifetime.
type Bridge struct {
	id       uuid.UUID
	rd       ReadSide
	wr       WriteSide
	closer   io.Closer
	queues   *Queues
	notifier Notifier
	overflow Overflow
	logger   *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
	wg        sync.WaitGroup
	errMu     sync.Mutex
	err       error

	// consumeMu is held by whichever of Login and Drain owns the response queue.
	consumeMu sync.Mutex
	stateMu   sync.RWMutex
	state     GateState
}

// New creates a Bridge over the given connection halves. Call Start to run it.
func New(rd ReadSide, wr WriteSide, queues *Queues, notifier Notifier, opts ...Option) *Bridge {
	if queues == nil {
		queues = NewQueues(DefaultCapacity, DefaultCapacity)
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		id:       uuid.New(),
		rd:       rd,
		wr:       wr,
		queues:   queues,
		notifier: notifier,
		overflow: OverflowBlock,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    AwaitingResult,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("session", b.id.String())
	return b
}

// ID returns the session id used in log records.
func (b *Bridge) ID() uuid.UUID {
	return b.id
}

// Start launches the read and write loops. Calling it again has no effect.
func (b *Bridge) Start() {
	b.startOnce.Do(func() {
		b.logger.Info("bridge started", "overflow", b.overflow.String())
		b.wg.Add(2)
		go b.readLoop()
		go b.writeLoop()
	})
}

// Done returns a channel that is closed when the bridge stops.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Err returns the error that stopped the bridge. It is nil while the bridge
// runs and after the server closed the connection cleanly.
func (b *Bridge) Err() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.err
}

// Wait blocks until both loops have exited and returns Err.
func (b *Bridge) Wait() error {
	<-b.done
	b.wg.Wait()
	return b.Err()
}

// Close stops the bridge and closes the connection.
func (b *Bridge) Close() error {
	b.shutdown(nil)
	b.wg.Wait()
	return nil
}

// shutdown records the terminal error once and stops both loops.
func (b *Bridge) shutdown(err error) {
	b.doneOnce.Do(func() {
		b.errMu.Lock()
		b.err = err
		b.errMu.Unlock()

		if err != nil {
			b.logger.Error("bridge stopped", "error", err)
		} else {
			b.logger.Info("bridge stopped")
		}

		close(b.done)
		b.cancel()
		if b.closer != nil {
			if cerr := b.closer.Close(); cerr != nil {
				b.logger.Debug("failed to close connection", "error", cerr)
			}
		}
	})
}
