package genstate

// Action is an input to the reducer. Like State, the set is closed by the
// unexported marker method.
type Action interface {
	action()
	// Name returns the stable name of the action for logging.
	Name() string
}

// StartGenerate begins a new generation against a freshly created session.
type StartGenerate struct {
	PromptBlockID      string
	Prompt             string
	SessionID          string
	ReplacePromptBlock bool
}

// GenerationCancelled records that the in-flight generation was cancelled,
// either explicitly or because the prompt block drifted.
type GenerationCancelled struct{}

// GenerationSuccess records that generated blocks were inserted into the
// document.
type GenerationSuccess struct {
	BlockIDs   []string
	ToolCallID string
}

// GenerationError records that the generation failed or inserted nothing.
type GenerationError struct{}

// FinishCancelledDisplay ends the transient Cancelled display.
type FinishCancelledDisplay struct{}

// StartEditing opens the follow-up instruction input.
type StartEditing struct{}

// UpdateEditPrompt replaces the follow-up instruction text.
type UpdateEditPrompt struct {
	Text string
}

// CancelEditing abandons the follow-up instruction and returns to the
// post-generation decision.
type CancelEditing struct{}

// SubmitEdit sends the follow-up instruction. Rejected while the instruction
// is empty.
type SubmitEdit struct{}

// EditSuccess records that replacement blocks were inserted.
type EditSuccess struct {
	BlockIDs   []string
	ToolCallID string
}

// EditError records that the edit failed; the typed instruction is preserved.
type EditError struct{}

// Clear dismisses the generation outcome and tears the session down.
type Clear struct{}

func (StartGenerate) action()          {}
func (GenerationCancelled) action()    {}
func (GenerationSuccess) action()      {}
func (GenerationError) action()        {}
func (FinishCancelledDisplay) action() {}
func (StartEditing) action()           {}
func (UpdateEditPrompt) action()       {}
func (CancelEditing) action()          {}
func (SubmitEdit) action()             {}
func (EditSuccess) action()            {}
func (EditError) action()              {}
func (Clear) action()                  {}

func (StartGenerate) Name() string          { return "start_generate" }
func (GenerationCancelled) Name() string    { return "generation_cancelled" }
func (GenerationSuccess) Name() string      { return "generation_success" }
func (GenerationError) Name() string        { return "generation_error" }
func (FinishCancelledDisplay) Name() string { return "finish_cancelled_display" }
func (StartEditing) Name() string           { return "start_editing" }
func (UpdateEditPrompt) Name() string       { return "update_edit_prompt" }
func (CancelEditing) Name() string          { return "cancel_editing" }
func (SubmitEdit) Name() string             { return "submit_edit" }
func (EditSuccess) Name() string            { return "edit_success" }
func (EditError) Name() string              { return "edit_error" }
func (Clear) Name() string                  { return "clear" }
