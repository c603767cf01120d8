package bridge

import (
	"github.com/omochice/ng-bridge/pkg/protocol"
)

// GateState is the state of the login handshake.
type GateState int

const (
	AwaitingResult GateState = iota
	Authenticated
	Rejected
	Disconnected
)

// String returns the string representation of GateState
func (s GateState) String() string {
	switch s {
	case AwaitingResult:
		return "AWAITING_RESULT"
	case Authenticated:
		return "AUTHENTICATED"
	case Rejected:
		return "REJECTED"
	case Disconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// State returns the current handshake state.
func (b *Bridge) State() GateState {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.state
}

func (b *Bridge) setState(s GateState) {
	b.stateMu.Lock()
	b.state = s
	b.stateMu.Unlock()
}

// Login runs the one-shot login handshake.
//
// Every response that arrives before the LoginResult is held back. On
// success the held responses are delivered to the notifier in arrival order
// before Login returns, and the response queue passes to Drain. On rejection
// the held responses are discarded, the bridge stops and closes the
// connection since nothing would consume further responses, and a
// *ProtocolRejection is returned. If
// the connection closes first a *TransportError wrapping ErrConnectionLost is
// returned. Only the first call runs the handshake; later calls return
// ErrHandshakeDone.
func (b *Bridge) Login(name string) error {
	b.consumeMu.Lock()
	defer b.consumeMu.Unlock()

	if b.State() != AwaitingResult {
		return ErrHandshakeDone
	}

	if err := b.Submit(protocol.Login{Name: name}); err != nil {
		b.setState(Disconnected)
		return err
	}
	b.logger.Info("login sent", "name", name)

	var pending []protocol.Response
	for response := range b.queues.responses {
		result, ok := response.(protocol.LoginResult)
		if !ok {
			pending = append(pending, response)
			continue
		}

		if result.Excuse != nil {
			b.setState(Rejected)
			b.logger.Info("login rejected", "reason", *result.Excuse, "discarded", len(pending))
			b.shutdown(nil)
			return &ProtocolRejection{Reason: *result.Excuse}
		}

		b.setState(Authenticated)
		b.logger.Info("login accepted", "buffered", len(pending))
		for _, p := range pending {
			b.deliver(p)
		}
		return nil
	}

	b.setState(Disconnected)
	b.logger.Warn("connection lost during login", "discarded", len(pending))
	return &TransportError{Op: "login", Err: ErrConnectionLost}
}
