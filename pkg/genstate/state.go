package genstate

// State is the inline-generation lifecycle state. Exactly one variant is
// active at a time; variants are closed over by the unexported marker method
// so the set cannot grow outside this package.
type State interface {
	state()
	// Name returns the stable name of the variant, used for logging,
	// telemetry and the host get_state surface.
	Name() string
}

// Idle means no generation is in progress.
type Idle struct{}

// Generating means a session is live and streaming block content.
type Generating struct {
	PromptBlockID      string
	OriginalPrompt     string
	SessionID          string
	ReplacePromptBlock bool
}

// Cancelled is a transient state shown briefly after a cancellation before
// the machine reverts to Idle.
type Cancelled struct{}

// PostGeneration means generated blocks were inserted and await a user
// decision (accept, edit or dismiss).
type PostGeneration struct {
	GeneratedBlockIDs []string
	SessionID         string
	ToolCallID        string
}

// Editing means the user is composing a follow-up instruction to revise the
// generated blocks.
type Editing struct {
	GeneratedBlockIDs []string
	EditPrompt        string
	SessionID         string
	ToolCallID        string
}

// SubmittingEdit means the follow-up instruction was sent and the machine is
// awaiting replacement blocks.
type SubmittingEdit struct {
	GeneratedBlockIDs []string
	EditPrompt        string
	SessionID         string
	ToolCallID        string
}

func (Idle) state()           {}
func (Generating) state()     {}
func (Cancelled) state()      {}
func (PostGeneration) state() {}
func (Editing) state()        {}
func (SubmittingEdit) state() {}

// State name constants.
const (
	StateIdle           = "idle"
	StateGenerating     = "generating"
	StateCancelled      = "cancelled"
	StatePostGeneration = "post_generation"
	StateEditing        = "editing"
	StateSubmittingEdit = "submitting_edit"
)

func (Idle) Name() string           { return StateIdle }
func (Generating) Name() string     { return StateGenerating }
func (Cancelled) Name() string      { return StateCancelled }
func (PostGeneration) Name() string { return StatePostGeneration }
func (Editing) Name() string        { return StateEditing }
func (SubmittingEdit) Name() string { return StateSubmittingEdit }

// LiveSessionID returns the session ID attached to the state, if the state
// holds a live session. Idle and Cancelled hold none.
func LiveSessionID(s State) (string, bool) {
	switch v := s.(type) {
	case Generating:
		return v.SessionID, true
	case PostGeneration:
		return v.SessionID, true
	case Editing:
		return v.SessionID, true
	case SubmittingEdit:
		return v.SessionID, true
	default:
		return "", false
	}
}
