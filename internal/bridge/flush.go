package bridge

import (
	"errors"

	"github.com/omochice/ng-bridge/pkg/protocol"
)

// Drain waits for the next response and delivers it to the notifier.
// It returns ErrNotAuthenticated before a successful Login and ErrClosed
// once the connection is gone and every queued response was delivered.
func (b *Bridge) Drain() error {
	b.consumeMu.Lock()
	defer b.consumeMu.Unlock()

	if b.State() != Authenticated {
		return ErrNotAuthenticated
	}

	response, ok := <-b.queues.responses
	if !ok {
		return ErrClosed
	}
	b.deliver(response)
	return nil
}

// Flush drains responses until the connection closes. It returns nil when
// the stream ends and an error only if called before a successful Login.
func (b *Bridge) Flush() error {
	for {
		err := b.Drain()
		if errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (b *Bridge) deliver(response protocol.Response) {
	event, payload := response.Event()
	if event == "" {
		b.logger.Debug("ignoring response", "kind", response.Kind())
		return
	}
	b.notifier.Notify(event, payload)
}
