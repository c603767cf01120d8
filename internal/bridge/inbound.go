package bridge

import (
	"errors"
	"io"

	"github.com/omochice/ng-bridge/pkg/protocol"
)

// readLoop decodes incoming frames into the response queue until the
// connection goes away. It is the only producer of the response queue and
// closes it on exit.
func (b *Bridge) readLoop() {
	defer b.wg.Done()
	defer close(b.queues.responses)

	for {
		data, err := b.rd.Read(b.ctx)
		if err != nil {
			switch {
			case b.ctx.Err() != nil:
				b.shutdown(nil)
			case errors.Is(err, io.EOF):
				b.logger.Info("server closed connection")
				b.shutdown(nil)
			default:
				b.shutdown(&TransportError{Op: "read", Err: err})
			}
			return
		}

		b.logger.Debug("frame received", "frame", string(data))

		response, err := protocol.DecodeResponse(data)
		if err != nil {
			b.logger.Debug("dropping frame", "error", err)
			continue
		}

		if !b.push(response) {
			select {
			case <-b.done:
				return
			default:
				continue
			}
		}
		b.notifier.Notify(EventServer, nil)
	}
}

// push queues a response according to the overflow policy and reports
// whether it was queued.
func (b *Bridge) push(response protocol.Response) bool {
	if b.overflow == OverflowDrop {
		select {
		case b.queues.responses <- response:
			return true
		default:
			b.logger.Warn("response queue full, dropping response", "kind", response.Kind())
			return false
		}
	}

	select {
	case b.queues.responses <- response:
		return true
	case <-b.done:
		return false
	}
}
