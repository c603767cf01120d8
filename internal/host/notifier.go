// Package host provides thin bindings between the bridge and a terminal:
// notifiers that render host events and a parser for typed commands.
package host

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/omochice/ng-bridge/internal/bridge"
)

// JSONLinesNotifier writes each event as one JSON object per line.
type JSONLinesNotifier struct {
	mu     sync.Mutex
	enc    *json.Encoder
	logger *slog.Logger
	// SkipServerEvents suppresses the per-frame server_event notifications.
	SkipServerEvents bool
}

type line struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// NewJSONLinesNotifier creates a notifier writing to w.
func NewJSONLinesNotifier(w io.Writer, logger *slog.Logger) *JSONLinesNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLinesNotifier{enc: json.NewEncoder(w), logger: logger}
}

// Notify implements bridge.Notifier.
func (n *JSONLinesNotifier) Notify(event string, payload any) {
	if n.SkipServerEvents && event == bridge.EventServer {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.enc.Encode(line{Event: event, Payload: payload}); err != nil {
		n.logger.Warn("failed to write event", "event", event, "error", err)
	}
}

// LogNotifier reports events through a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier logging to logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements bridge.Notifier. server_event is logged at debug level.
func (n *LogNotifier) Notify(event string, payload any) {
	if event == bridge.EventServer {
		n.logger.Debug("server event")
		return
	}
	n.logger.Info("event", "name", event, "payload", payload)
}

var (
	_ bridge.Notifier = (*JSONLinesNotifier)(nil)
	_ bridge.Notifier = (*LogNotifier)(nil)
)
