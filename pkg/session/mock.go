package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// GenerateRequest is what a Mock script sees for each message or edit
// request sent into a session.
type GenerateRequest struct {
	SessionID  string
	Prompt     string
	IsEdit     bool
	ToolCallID string
	Params     CreateParams
}

// Mock is a scripted Service for tests and the headless mock mode. The
// Generate hook decides which events a message produces; the default echoes
// the prompt back as a single paragraph block.
type Mock struct {
	mu       sync.Mutex
	sessions map[string]*mockSession

	// Generate produces the events for a message or edit request.
	Generate func(req GenerateRequest) []Event
	// OnToolResult, if set, produces follow-up events after the host
	// reports a tool result.
	OnToolResult func(sessionID, toolCallID string, success bool, result string) []Event
	// CreateErr, if set, makes CreateSession fail.
	CreateErr error
}

type mockSession struct {
	params    CreateParams
	queue     *Queue
	cancelled bool
}

// NewMock creates a mock service with the default echo script.
func NewMock() *Mock {
	return &Mock{
		sessions: make(map[string]*mockSession),
		Generate: func(req GenerateRequest) []Event {
			return []Event{{
				Type:       EventBlocksGenerated,
				ToolCallID: uuid.New().String(),
				Blocks: []GeneratedBlock{{
					Type:    "paragraph",
					Content: req.Prompt,
				}},
			}}
		},
	}
}

// CreateSession opens a scripted session.
func (m *Mock) CreateSession(_ context.Context, params CreateParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	id := uuid.New().String()
	m.sessions[id] = &mockSession{params: params}
	return id, nil
}

// Subscribe registers the event callback for a session.
func (m *Mock) Subscribe(sessionID string, fn func(Event)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("subscribe %q: %w", sessionID, ErrSessionNotFound)
	}
	sess.queue = NewQueue(fn)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if s, ok := m.sessions[sessionID]; ok && s.queue != nil {
			s.queue.Close()
			s.queue = nil
		}
	}, nil
}

// SendMessage runs the script for a fresh prompt.
func (m *Mock) SendMessage(_ context.Context, sessionID, text string) error {
	return m.runScript(GenerateRequest{SessionID: sessionID, Prompt: text})
}

// SendEditRequest runs the script for a revision request.
func (m *Mock) SendEditRequest(_ context.Context, sessionID, editPrompt, toolCallID string) error {
	return m.runScript(GenerateRequest{
		SessionID:  sessionID,
		Prompt:     editPrompt,
		IsEdit:     true,
		ToolCallID: toolCallID,
	})
}

// SendToolResult reports a tool outcome back into the script.
func (m *Mock) SendToolResult(_ context.Context, sessionID, toolCallID string, success bool, result string) error {
	m.mu.Lock()
	hook := m.OnToolResult
	sess, ok := m.sessions[sessionID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("tool result %q: %w", sessionID, ErrSessionNotFound)
	}
	if hook == nil {
		return nil
	}
	go m.emit(sess, hook(sessionID, toolCallID, success, result))
	return nil
}

// CancelSession emits a cancelled event for the session.
func (m *Mock) CancelSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		sess.cancelled = true
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("cancel %q: %w", sessionID, ErrSessionNotFound)
	}
	go m.emit(sess, []Event{{Type: EventCancelled}})
	return nil
}

// DestroySession tears the session down.
func (m *Mock) DestroySession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("destroy %q: %w", sessionID, ErrSessionNotFound)
	}
	if sess.queue != nil {
		sess.queue.Close()
	}
	delete(m.sessions, sessionID)
	return nil
}

// Live reports whether a session still exists. Test helper.
func (m *Mock) Live(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	return ok
}

func (m *Mock) runScript(req GenerateRequest) error {
	m.mu.Lock()
	sess, ok := m.sessions[req.SessionID]
	gen := m.Generate
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("send %q: %w", req.SessionID, ErrSessionNotFound)
	}
	req.Params = sess.params
	go m.emit(sess, gen(req))
	return nil
}

// emit delivers scripted events through the session queue, preserving order.
func (m *Mock) emit(sess *mockSession, events []Event) {
	for _, ev := range events {
		m.mu.Lock()
		q := sess.queue
		cancelled := sess.cancelled
		m.mu.Unlock()
		if q == nil || cancelled && ev.Type != EventCancelled {
			continue
		}
		q.Push(ev)
	}
}
