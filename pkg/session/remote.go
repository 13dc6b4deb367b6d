package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const createTimeout = 30 * time.Second

// Remote is a Service backed by a generator endpoint over websocket. Each
// session gets its own connection; the single connection gives the in-order,
// one-at-a-time event delivery the controller relies on.
type Remote struct {
	endpoint string

	mu    sync.Mutex
	conns map[string]*remoteConn
}

// wireFrame is the frame shape exchanged with the generator endpoint.
type wireFrame struct {
	Type       string        `json:"type"`
	SessionID  string        `json:"sessionId,omitempty"`
	Params     *CreateParams `json:"params,omitempty"`
	Text       string        `json:"text,omitempty"`
	EditPrompt string        `json:"editPrompt,omitempty"`
	ToolCallID string        `json:"toolCallId,omitempty"`
	Success    *bool         `json:"success,omitempty"`
	Result     string        `json:"result,omitempty"`
	Event      *Event        `json:"event,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Outbound frame types.
const (
	frameCreateSession = "create_session"
	frameMessage       = "message"
	frameEditRequest   = "edit_request"
	frameToolResult    = "tool_result"
	frameCancel        = "cancel"
	frameDestroy       = "destroy"
)

// Inbound frame types.
const (
	frameSessionCreated = "session_created"
	frameEvent          = "event"
)

type remoteConn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc

	mu      sync.Mutex
	queue   *Queue
	pending []Event // events that arrived before Subscribe
}

// NewRemote creates a remote service with a default endpoint. Sessions whose
// CreateParams carry their own Endpoint override it.
func NewRemote(endpoint string) *Remote {
	return &Remote{
		endpoint: endpoint,
		conns:    make(map[string]*remoteConn),
	}
}

// CreateSession dials the endpoint, performs the create handshake and starts
// the reader for the session's event stream.
func (r *Remote) CreateSession(ctx context.Context, params CreateParams) (string, error) {
	endpoint := params.Endpoint
	if endpoint == "" {
		endpoint = r.endpoint
	}
	if endpoint == "" {
		return "", fmt.Errorf("create session: no generator endpoint configured")
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, createTimeout)
	defer cancelDial()

	ws, _, err := websocket.Dial(dialCtx, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("dial generator endpoint: %w", err)
	}
	ws.SetReadLimit(1 << 22) // generated documents can carry large snapshots

	if err := wsjson.Write(dialCtx, ws, wireFrame{Type: frameCreateSession, Params: &params}); err != nil {
		ws.Close(websocket.StatusInternalError, "create failed")
		return "", fmt.Errorf("send create frame: %w", err)
	}

	var reply wireFrame
	if err := wsjson.Read(dialCtx, ws, &reply); err != nil {
		ws.Close(websocket.StatusInternalError, "create failed")
		return "", fmt.Errorf("read create reply: %w", err)
	}
	if reply.Type != frameSessionCreated || reply.SessionID == "" {
		ws.Close(websocket.StatusProtocolError, "bad create reply")
		if reply.Error != "" {
			return "", fmt.Errorf("create session: %s", reply.Error)
		}
		return "", fmt.Errorf("create session: unexpected reply %q", reply.Type)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	conn := &remoteConn{ws: ws, cancel: cancel}

	r.mu.Lock()
	r.conns[reply.SessionID] = conn
	r.mu.Unlock()

	go r.readLoop(connCtx, reply.SessionID, conn)
	return reply.SessionID, nil
}

// Subscribe registers the event callback. Events that raced ahead of the
// subscription are replayed first, preserving order.
func (r *Remote) Subscribe(sessionID string, fn func(Event)) (func(), error) {
	conn, err := r.conn(sessionID)
	if err != nil {
		return nil, err
	}

	conn.mu.Lock()
	conn.queue = NewQueue(fn)
	for _, ev := range conn.pending {
		conn.queue.Push(ev)
	}
	conn.pending = nil
	conn.mu.Unlock()

	return func() {
		conn.mu.Lock()
		if conn.queue != nil {
			conn.queue.Close()
			conn.queue = nil
		}
		conn.mu.Unlock()
	}, nil
}

// SendMessage sends the user's prompt text.
func (r *Remote) SendMessage(ctx context.Context, sessionID, text string) error {
	return r.send(ctx, sessionID, wireFrame{Type: frameMessage, SessionID: sessionID, Text: text})
}

// SendEditRequest asks for a revision of the previous output.
func (r *Remote) SendEditRequest(ctx context.Context, sessionID, editPrompt, toolCallID string) error {
	return r.send(ctx, sessionID, wireFrame{
		Type:       frameEditRequest,
		SessionID:  sessionID,
		EditPrompt: editPrompt,
		ToolCallID: toolCallID,
	})
}

// SendToolResult reports a tool outcome.
func (r *Remote) SendToolResult(ctx context.Context, sessionID, toolCallID string, success bool, result string) error {
	return r.send(ctx, sessionID, wireFrame{
		Type:       frameToolResult,
		SessionID:  sessionID,
		ToolCallID: toolCallID,
		Success:    &success,
		Result:     result,
	})
}

// CancelSession asks the service to stop the in-flight generation. The
// cancelled event comes back on the event stream.
func (r *Remote) CancelSession(ctx context.Context, sessionID string) error {
	return r.send(ctx, sessionID, wireFrame{Type: frameCancel, SessionID: sessionID})
}

// DestroySession sends the destroy frame and closes the connection.
func (r *Remote) DestroySession(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	conn, ok := r.conns[sessionID]
	delete(r.conns, sessionID)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("destroy %q: %w", sessionID, ErrSessionNotFound)
	}

	// Best effort: the connection is going away either way.
	if err := wsjson.Write(ctx, conn.ws, wireFrame{Type: frameDestroy, SessionID: sessionID}); err != nil {
		slog.Debug("destroy frame not delivered", "session", sessionID, "error", err)
	}
	conn.cancel()
	conn.ws.Close(websocket.StatusNormalClosure, "session destroyed")

	conn.mu.Lock()
	if conn.queue != nil {
		conn.queue.Close()
		conn.queue = nil
	}
	conn.mu.Unlock()
	return nil
}

func (r *Remote) conn(sessionID string) (*remoteConn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
	}
	return conn, nil
}

func (r *Remote) send(ctx context.Context, sessionID string, frame wireFrame) error {
	conn, err := r.conn(sessionID)
	if err != nil {
		return err
	}
	if err := wsjson.Write(ctx, conn.ws, frame); err != nil {
		return fmt.Errorf("send %s frame: %w", frame.Type, err)
	}
	return nil
}

// readLoop pumps inbound frames into the session's queue until the
// connection drops. A drop while the session is still registered surfaces as
// an error event so the controller can unwind its state.
func (r *Remote) readLoop(ctx context.Context, sessionID string, conn *remoteConn) {
	for {
		var frame wireFrame
		if err := wsjson.Read(ctx, conn.ws, &frame); err != nil {
			r.mu.Lock()
			_, live := r.conns[sessionID]
			r.mu.Unlock()
			if live {
				slog.Warn("generator connection lost", "session", sessionID, "error", err)
				conn.deliver(Event{Type: EventError, Message: "connection to generator lost"})
			}
			return
		}
		if frame.Type != frameEvent || frame.Event == nil {
			slog.Warn("unexpected frame from generator", "session", sessionID, "type", frame.Type)
			continue
		}
		conn.deliver(*frame.Event)
	}
}

func (c *remoteConn) deliver(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queue != nil {
		c.queue.Push(ev)
		return
	}
	c.pending = append(c.pending, ev)
}
