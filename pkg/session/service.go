// Package session wraps the external AI generation service: session
// lifecycle calls plus the ordered event subscription channel the controller
// consumes. The service itself (model choice, prompting, billing) is an
// external collaborator; this package only speaks its contract.
package session

import (
	"context"
	"errors"

	"github.com/runbooklabs/inlinegen/pkg/document"
)

// ErrSessionNotFound is returned for calls naming an unknown session ID.
var ErrSessionNotFound = errors.New("session: not found")

// Event type constants.
const (
	EventBlocksGenerated = "blocks_generated"
	EventError           = "error"
	EventCancelled       = "cancelled"
	EventToolsRequested  = "tools_requested"
)

// Event is one event delivered on a session's subscription channel. Type is
// the discriminator; the remaining fields are populated per type, matching
// the wire shape of the generator endpoint.
type Event struct {
	Type string `json:"type"`

	// blocks_generated
	Blocks     []GeneratedBlock `json:"blocks,omitempty"`
	ToolCallID string           `json:"toolCallId,omitempty"`

	// error
	Message string `json:"message,omitempty"`

	// tools_requested
	Calls []ToolCall `json:"calls,omitempty"`
}

// GeneratedBlock is a unit of content produced by the service. It carries no
// document ID; the document assigns one at insertion.
type GeneratedBlock struct {
	Type    string            `json:"type"`
	Content string            `json:"content"`
	Props   map[string]string `json:"props,omitempty"`
}

// ToolCall is a structured request from the service asking the host to
// perform an action and report the result before generation continues.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// BlockInfo describes one registered block type. It is passed through to the
// service at session creation and never interpreted locally.
type BlockInfo struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// CreateParams is everything the service needs to open a generator session.
type CreateParams struct {
	RunbookID     string           `json:"runbookId"`
	Model         string           `json:"model,omitempty"`
	BlockInfos    []BlockInfo      `json:"blockInfos"`
	Document      []document.Block `json:"document"`
	AnchorBlockID string           `json:"anchorBlockId"`
	Username      string           `json:"username"`
	ChargeTarget  string           `json:"chargeTarget,omitempty"`
	Endpoint      string           `json:"endpoint,omitempty"`
}

// Service is the session API of the external AI generation service. All
// calls may fail and may take arbitrarily long; callers must not invoke them
// from a dispatch path they cannot afford to block.
type Service interface {
	// CreateSession opens a session and returns its ID.
	CreateSession(ctx context.Context, params CreateParams) (string, error)
	// Subscribe registers the event callback for a session. Events are
	// delivered in emission order, one at a time. The returned function
	// unsubscribes.
	Subscribe(sessionID string, fn func(Event)) (func(), error)
	// SendMessage sends the user's prompt text into the session.
	SendMessage(ctx context.Context, sessionID, text string) error
	// SendEditRequest asks the session to revise its previous output,
	// continuing the same tool-call conversation.
	SendEditRequest(ctx context.Context, sessionID, editPrompt, toolCallID string) error
	// SendToolResult reports the outcome of a requested tool call.
	SendToolResult(ctx context.Context, sessionID, toolCallID string, success bool, result string) error
	// CancelSession asks the service to stop the in-flight generation.
	CancelSession(ctx context.Context, sessionID string) error
	// DestroySession tears the session down.
	DestroySession(ctx context.Context, sessionID string) error
}
