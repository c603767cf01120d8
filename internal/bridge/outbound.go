package bridge

import (
	"fmt"

	"github.com/omochice/ng-bridge/pkg/protocol"
)

// Submit encodes an action and queues it for the server. It blocks while
// the outbound queue is full and never drops a queued action. Actions the
// codec cannot encode are rejected here. Write failures surface through
// Err, not through the Submit call that queued the action.
func (b *Bridge) Submit(action protocol.Action) error {
	if action == nil {
		return fmt.Errorf("failed to submit: nil action")
	}
	data, err := protocol.EncodeAction(action)
	if err != nil {
		return fmt.Errorf("failed to submit: %w", err)
	}

	select {
	case <-b.done:
		return &TransportError{Op: "submit", Err: ErrClosed}
	default:
	}

	select {
	case b.queues.actions <- frame{kind: action.Kind(), data: data}:
		return nil
	case <-b.done:
		return &TransportError{Op: "submit", Err: ErrClosed}
	}
}

// Send submits a chat message.
func (b *Bridge) Send(text string) error {
	return b.Submit(protocol.Send{Text: text})
}

// AssignWord submits the word chosen for the assignee.
func (b *Bridge) AssignWord(word string) error {
	return b.Submit(protocol.AssignWord{Word: word})
}

// Suicide submits a give-up.
func (b *Bridge) Suicide() error {
	return b.Submit(protocol.Suicide{})
}

// RequestAbort asks the room to vote on aborting the game.
func (b *Bridge) RequestAbort() error {
	return b.Submit(protocol.RequestAbort{})
}

// SetReady marks the player ready.
func (b *Bridge) SetReady() error {
	return b.Submit(protocol.SetReady{})
}

// CancelReady withdraws readiness.
func (b *Bridge) CancelReady() error {
	return b.Submit(protocol.CancelReady{})
}

// VoteAbort votes in a running abort vote.
func (b *Bridge) VoteAbort(abort bool) error {
	return b.Submit(protocol.VoteAbort{Abort: abort})
}

// writeLoop sends queued actions in submission order. It is the only
// goroutine writing to the connection.
func (b *Bridge) writeLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		case f := <-b.queues.actions:
			if err := b.wr.Write(b.ctx, f.data); err != nil {
				select {
				case <-b.done:
				default:
					b.shutdown(&TransportError{Op: "write", Err: err})
				}
				return
			}
			b.logger.Debug("action sent", "kind", f.kind)
		}
	}
}
