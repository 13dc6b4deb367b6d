// Package telemetry records the controller's analytics events under a stable
// name taxonomy. Hosts either drain the bounded buffer or attach a sink; the
// controller itself never ships events anywhere.
package telemetry

import (
	"sync"
	"time"
)

// Event names. These are the stable taxonomy reported to the host's
// analytics pipeline; renaming one is a breaking change.
const (
	GenerationTriggered = "generation_triggered"
	GenerationSuccess   = "generation_success"
	GenerationError     = "generation_error"
	GenerationCancelled = "generation_cancelled"
	EditStarted         = "edit_started"
	EditSuccess         = "edit_success"
	EditError           = "edit_error"
	Dismiss             = "post_generation_dismiss"
	Continue            = "post_generation_continue"
	Run                 = "post_generation_run"
	ToolAutoApproved    = "tool_auto_approved"
	ToolRejected        = "tool_rejected"
	SessionCreateFailed = "session_create_failed"
)

// Field is one key-value pair of event metadata.
type Field struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Event is one recorded analytics event.
type Event struct {
	Name   string    `json:"name"`
	At     time.Time `json:"at"`
	Fields []Field   `json:"fields,omitempty"`
}

const defaultBufferSize = 256

// Tracker is a bounded in-memory recorder. The zero value is not usable;
// create one with NewTracker. A nil *Tracker is safe: Record is a no-op, so
// callers never guard their telemetry calls.
type Tracker struct {
	mu      sync.Mutex
	enabled map[string]bool // nil enables everything
	buf     []Event
	max     int
	sink    func(Event)
}

// NewTracker creates a tracker recording all event names.
func NewTracker() *Tracker {
	return &Tracker{max: defaultBufferSize}
}

// SetEnabled restricts recording to the named events. An empty list
// re-enables everything.
func (t *Tracker) SetEnabled(names []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(names) == 0 {
		t.enabled = nil
		return
	}
	t.enabled = make(map[string]bool, len(names))
	for _, n := range names {
		t.enabled[n] = true
	}
}

// SetSink attaches a callback invoked for every recorded event, in addition
// to buffering. The sink runs on the recording goroutine and must not block.
func (t *Tracker) SetSink(sink func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
}

// Record stores an event if its name is enabled.
func (t *Tracker) Record(name string, fields ...Field) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.enabled != nil && !t.enabled[name] {
		t.mu.Unlock()
		return
	}
	ev := Event{Name: name, At: time.Now(), Fields: fields}
	t.buf = append(t.buf, ev)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink(ev)
	}
}

// Drain returns the buffered events and clears the buffer.
func (t *Tracker) Drain() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.buf
	t.buf = nil
	return out
}
