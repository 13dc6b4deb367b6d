// Package rpc is the host bridge: a line-delimited JSON command protocol the
// host shell drives the controller with, plus server-initiated pushes for
// notifications and telemetry. One command per line in, one JSON object per
// line out.
package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"log/slog"
)

// Handlers is the controller surface the server exposes. Nil handlers make
// their command report an error.
type Handlers struct {
	Key              func(req KeyRequest) (bool, error)
	StartGeneration  func(req StartGenerationRequest) error
	CancelGeneration func() error
	StartEdit        func() error
	UpdateEditPrompt func(text string) error
	CancelEdit       func() error
	SubmitEdit       func() error
	GetState         func() (StateInfo, error)
	GetDocument      func() (any, error)
	SetBlockText     func(blockID, text string) error
}

// Server reads commands from in and writes responses and pushes to out.
type Server struct {
	in       io.Reader
	out      io.Writer
	writeMu  sync.Mutex
	handlers Handlers
}

// NewServer creates a server over the given streams.
func NewServer(in io.Reader, out io.Writer, handlers Handlers) *Server {
	return &Server{in: in, out: out, handlers: handlers}
}

// Run reads commands until the stream closes or a shutdown command arrives.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<22)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var cmd Command
		if err := json.Unmarshal(line, &cmd); err != nil {
			s.write(Response{Type: "response", Success: false, Error: fmt.Sprintf("parse command: %v", err)})
			continue
		}

		resp := s.handle(cmd)
		s.write(resp)

		if cmd.Type == CommandShutdown {
			return nil
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("read command stream: %w", err)
	}
	return nil
}

// PushNotification sends a notification push.
func (s *Server) PushNotification(data any) {
	s.write(Push{Type: PushNotification, Data: data})
}

// PushTelemetry sends a telemetry push.
func (s *Server) PushTelemetry(data any) {
	s.write(Push{Type: PushTelemetry, Data: data})
}

func (s *Server) handle(cmd Command) Response {
	switch cmd.Type {
	case CommandPing:
		return s.ok(cmd, "pong")

	case CommandShutdown:
		return s.ok(cmd, nil)

	case CommandKey:
		if s.handlers.Key == nil {
			return s.fail(cmd, "no key handler registered")
		}
		var req KeyRequest
		if err := unmarshalData(cmd.Data, &req); err != nil {
			return s.fail(cmd, err.Error())
		}
		consumed, err := s.handlers.Key(req)
		if err != nil {
			return s.fail(cmd, err.Error())
		}
		return s.ok(cmd, StateInfo{Consumed: consumed})

	case CommandStartGeneration:
		if s.handlers.StartGeneration == nil {
			return s.fail(cmd, "no start_generation handler registered")
		}
		var req StartGenerationRequest
		if err := unmarshalData(cmd.Data, &req); err != nil {
			return s.fail(cmd, err.Error())
		}
		if err := s.handlers.StartGeneration(req); err != nil {
			return s.fail(cmd, err.Error())
		}
		return s.ok(cmd, nil)

	case CommandCancelGeneration:
		if s.handlers.CancelGeneration == nil {
			return s.fail(cmd, "no cancel_generation handler registered")
		}
		if err := s.handlers.CancelGeneration(); err != nil {
			return s.fail(cmd, err.Error())
		}
		return s.ok(cmd, nil)

	case CommandStartEdit:
		if s.handlers.StartEdit == nil {
			return s.fail(cmd, "no start_edit handler registered")
		}
		if err := s.handlers.StartEdit(); err != nil {
			return s.fail(cmd, err.Error())
		}
		return s.ok(cmd, nil)

	case CommandUpdateEditPrompt:
		if s.handlers.UpdateEditPrompt == nil {
			return s.fail(cmd, "no update_edit_prompt handler registered")
		}
		var req UpdateEditPromptRequest
		if err := unmarshalData(cmd.Data, &req); err != nil {
			return s.fail(cmd, err.Error())
		}
		if err := s.handlers.UpdateEditPrompt(req.Text); err != nil {
			return s.fail(cmd, err.Error())
		}
		return s.ok(cmd, nil)

	case CommandCancelEdit:
		if s.handlers.CancelEdit == nil {
			return s.fail(cmd, "no cancel_edit handler registered")
		}
		if err := s.handlers.CancelEdit(); err != nil {
			return s.fail(cmd, err.Error())
		}
		return s.ok(cmd, nil)

	case CommandSubmitEdit:
		if s.handlers.SubmitEdit == nil {
			return s.fail(cmd, "no submit_edit handler registered")
		}
		if err := s.handlers.SubmitEdit(); err != nil {
			return s.fail(cmd, err.Error())
		}
		return s.ok(cmd, nil)

	case CommandGetState:
		if s.handlers.GetState == nil {
			return s.fail(cmd, "no get_state handler registered")
		}
		info, err := s.handlers.GetState()
		if err != nil {
			return s.fail(cmd, err.Error())
		}
		return s.ok(cmd, info)

	case CommandGetDocument:
		if s.handlers.GetDocument == nil {
			return s.fail(cmd, "no get_document handler registered")
		}
		doc, err := s.handlers.GetDocument()
		if err != nil {
			return s.fail(cmd, err.Error())
		}
		return s.ok(cmd, doc)

	case CommandSetBlockText:
		if s.handlers.SetBlockText == nil {
			return s.fail(cmd, "no set_block_text handler registered")
		}
		var req SetBlockTextRequest
		if err := unmarshalData(cmd.Data, &req); err != nil {
			return s.fail(cmd, err.Error())
		}
		if err := s.handlers.SetBlockText(req.BlockID, req.Text); err != nil {
			return s.fail(cmd, err.Error())
		}
		return s.ok(cmd, nil)

	default:
		return s.fail(cmd, fmt.Sprintf("unknown command %q", cmd.Type))
	}
}

func (s *Server) ok(cmd Command, data any) Response {
	return Response{ID: cmd.ID, Type: "response", Command: cmd.Type, Success: true, Data: data}
}

func (s *Server) fail(cmd Command, msg string) Response {
	return Response{ID: cmd.ID, Type: "response", Command: cmd.Type, Success: false, Error: msg}
}

// write marshals and writes one line, serializing concurrent pushes against
// responses.
func (s *Server) write(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal rpc message failed", "error", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.out.Write(append(data, '\n'))
}

func unmarshalData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing command data")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid command data: %v", err)
	}
	return nil
}
