package bridge

import "github.com/omochice/ng-bridge/pkg/protocol"

// DefaultCapacity is the queue capacity used when none is configured.
const DefaultCapacity = 100

// Queues holds the outbound action queue and the inbound response queue.
// It is built once at startup and handed to the bridge.
type Queues struct {
	actions   chan frame
	responses chan protocol.Response
}

// NewQueues creates both queues. Non-positive capacities fall back to
// DefaultCapacity.
func NewQueues(outbound, inbound int) *Queues {
	if outbound <= 0 {
		outbound = DefaultCapacity
	}
	if inbound <= 0 {
		inbound = DefaultCapacity
	}
	return &Queues{
		actions:   make(chan frame, outbound),
		responses: make(chan protocol.Response, inbound),
	}
}

// Pending returns the number of queued actions and responses.
func (q *Queues) Pending() (actions, responses int) {
	return len(q.actions), len(q.responses)
}

// frame is an action already encoded for the wire.
type frame struct {
	kind protocol.ActionKind
	data []byte
}
