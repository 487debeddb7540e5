package notification

import (
	"sync"

	"github.com/AurumGate/AurumGate-Portal/services/monitoring/logging"
)

// Notifier is the presentation boundary. Core services report every
// terminal outcome through it and never format user-facing copy beyond the
// title/detail pair.
type Notifier interface {
	Success(title string, detail string)
	Error(title string, detail string)
	Info(title string, detail string)
}

// LogNotifier is the default implementation: outcomes land in the portal
// log. The UI layer swaps in its own dialog-backed implementation.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(title string, detail string) {
	n.logger.WithField("title", title).Info(detail)
}

func (n *LogNotifier) Error(title string, detail string) {
	n.logger.WithField("title", title).Error(detail)
}

func (n *LogNotifier) Info(title string, detail string) {
	n.logger.WithField("title", title).Info(detail)
}

// Event is one recorded notification.
type Event struct {
	Kind   string // success | error | info
	Title  string
	Detail string
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Success(title string, detail string) { r.record("success", title, detail) }
func (r *Recorder) Error(title string, detail string)   { r.record("error", title, detail) }
func (r *Recorder) Info(title string, detail string)    { r.record("info", title, detail) }

func (r *Recorder) record(kind, title, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Event{Kind: kind, Title: title, Detail: detail})
}

// Last returns the most recent event, if any.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Events) == 0 {
		return Event{}, false
	}
	return r.Events[len(r.Events)-1], true
}
