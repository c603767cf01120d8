package bridge

// EventServer is raised each time a response is queued.
const EventServer = "server_event"

// Notifier delivers events to the host.
type Notifier interface {
	Notify(event string, payload any)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(event string, payload any)

func (f NotifierFunc) Notify(event string, payload any) {
	f(event, payload)
}

type discardNotifier struct{}

func (discardNotifier) Notify(string, any) {}
