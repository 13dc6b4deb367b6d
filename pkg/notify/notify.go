// Package notify carries user-visible toast requests from the controller to
// the host. The controller never renders anything; it hands the host a small
// request and moves on.
package notify

// Severity of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one toast request.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Severity    Severity `json:"severity"`
}

// Notifier is the host-supplied sink. Implementations must not block; the
// controller calls Notify from its dispatch path.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to a Notifier.
type Func func(Notification)

// Notify calls f.
func (f Func) Notify(n Notification) { f(n) }

// Discard drops all notifications.
var Discard Notifier = Func(func(Notification) {})

// Channel is a buffered, non-blocking Notifier for hosts that drain
// notifications from a goroutine. When the buffer is full the oldest
// notification is dropped.
type Channel struct {
	ch chan Notification
}

// NewChannel creates a Channel with the given buffer size.
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = 16
	}
	return &Channel{ch: make(chan Notification, size)}
}

// Notify enqueues the notification, evicting the oldest on overflow.
func (c *Channel) Notify(n Notification) {
	for {
		select {
		case c.ch <- n:
			return
		default:
			select {
			case <-c.ch:
			default:
			}
		}
	}
}

// C returns the receive side for the host to drain.
func (c *Channel) C() <-chan Notification { return c.ch }
