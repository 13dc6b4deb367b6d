package rpc

import "encoding/json"

// Command is one request received on the command stream.
type Command struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is the reply to a command.
type Response struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"` // always "response"
	Command string `json:"command"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Push is a server-initiated message: a notification toast or a telemetry
// event the host should forward.
type Push struct {
	Type string `json:"type"` // "notification" or "telemetry"
	Data any    `json:"data,omitempty"`
}

// Command type constants.
const (
	CommandKey              = "key"
	CommandStartGeneration  = "start_generation"
	CommandCancelGeneration = "cancel_generation"
	CommandStartEdit        = "start_edit"
	CommandUpdateEditPrompt = "update_edit_prompt"
	CommandCancelEdit       = "cancel_edit"
	CommandSubmitEdit       = "submit_edit"
	CommandGetState         = "get_state"
	CommandGetDocument      = "get_document"
	CommandSetBlockText     = "set_block_text"
	CommandPing             = "ping"
	CommandShutdown         = "shutdown"
)

// Push type constants.
const (
	PushNotification = "notification"
	PushTelemetry    = "telemetry"
)

// KeyRequest is the payload of a key command.
type KeyRequest struct {
	Name    string `json:"name"`
	Primary bool   `json:"primary,omitempty"`
	Shift   bool   `json:"shift,omitempty"`
	Alt     bool   `json:"alt,omitempty"`
}

// StartGenerationRequest is the payload of a start_generation command.
type StartGenerationRequest struct {
	BlockID            string `json:"blockId"`
	ReplacePromptBlock bool   `json:"replacePromptBlock,omitempty"`
}

// UpdateEditPromptRequest is the payload of an update_edit_prompt command.
type UpdateEditPromptRequest struct {
	Text string `json:"text"`
}

// SetBlockTextRequest is the payload of a set_block_text command, used by
// hosts (and the mock mode) to model user edits to the document.
type SetBlockTextRequest struct {
	BlockID string `json:"blockId"`
	Text    string `json:"text"`
}

// StateInfo is the snapshot returned by get_state.
type StateInfo struct {
	State             string   `json:"state"`
	SessionID         string   `json:"sessionId,omitempty"`
	GeneratedBlockIDs []string `json:"generatedBlockIds,omitempty"`
	EditPrompt        string   `json:"editPrompt,omitempty"`
	Consumed          bool     `json:"consumed,omitempty"`
}
