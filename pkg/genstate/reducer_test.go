package genstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postGen() PostGeneration {
	return PostGeneration{
		GeneratedBlockIDs: []string{"b1", "b2"},
		SessionID:         "sess1",
		ToolCallID:        "tool1",
	}
}

func TestStartGenerateFromIdle(t *testing.T) {
	next, effects, ok := Reduce(Idle{}, StartGenerate{
		PromptBlockID: "blockA",
		Prompt:        "write a postgres query",
		SessionID:     "sess1",
	})
	require.True(t, ok)
	require.Empty(t, effects)

	gen, isGen := next.(Generating)
	require.True(t, isGen)
	assert.Equal(t, "blockA", gen.PromptBlockID)
	assert.Equal(t, "write a postgres query", gen.OriginalPrompt)
	assert.Equal(t, "sess1", gen.SessionID)
	assert.False(t, gen.ReplacePromptBlock)
}

func TestStartGenerateOverLiveSessionDestroysPrior(t *testing.T) {
	liveStates := []State{
		Generating{SessionID: "old"},
		PostGeneration{SessionID: "old"},
		Editing{SessionID: "old"},
		SubmittingEdit{SessionID: "old"},
	}
	for _, prior := range liveStates {
		next, effects, ok := Reduce(prior, StartGenerate{SessionID: "new"})
		require.True(t, ok, "from %s", prior.Name())
		require.Len(t, effects, 1, "from %s", prior.Name())
		assert.Equal(t, DestroySession{SessionID: "old"}, effects[0])

		gen, isGen := next.(Generating)
		require.True(t, isGen)
		assert.Equal(t, "new", gen.SessionID)
	}
}

func TestStartGenerateFromCancelledHasNoEffect(t *testing.T) {
	_, effects, ok := Reduce(Cancelled{}, StartGenerate{SessionID: "new"})
	require.True(t, ok)
	assert.Empty(t, effects)
}

func TestGenerationLifecycle(t *testing.T) {
	gen := Generating{PromptBlockID: "blockA", OriginalPrompt: "p", SessionID: "sess1"}

	t.Run("success", func(t *testing.T) {
		next, effects, ok := Reduce(gen, GenerationSuccess{BlockIDs: []string{"n1"}, ToolCallID: "tool1"})
		require.True(t, ok)
		assert.Empty(t, effects)
		assert.Equal(t, PostGeneration{
			GeneratedBlockIDs: []string{"n1"},
			SessionID:         "sess1",
			ToolCallID:        "tool1",
		}, next)
	})

	t.Run("error", func(t *testing.T) {
		next, effects, ok := Reduce(gen, GenerationError{})
		require.True(t, ok)
		assert.Equal(t, Idle{}, next)
		require.Len(t, effects, 1)
		assert.Equal(t, DestroySession{SessionID: "sess1"}, effects[0])
	})

	t.Run("cancelled", func(t *testing.T) {
		next, effects, ok := Reduce(gen, GenerationCancelled{})
		require.True(t, ok)
		assert.Equal(t, Cancelled{}, next)
		require.Len(t, effects, 1)
		assert.Equal(t, DestroySession{SessionID: "sess1"}, effects[0])
	})
}

func TestFinishCancelledDisplay(t *testing.T) {
	next, effects, ok := Reduce(Cancelled{}, FinishCancelledDisplay{})
	require.True(t, ok)
	assert.Equal(t, Idle{}, next)
	assert.Empty(t, effects)

	// No-op from every other state.
	others := []State{Idle{}, Generating{SessionID: "s"}, postGen(), Editing{SessionID: "s"}, SubmittingEdit{SessionID: "s"}}
	for _, s := range others {
		next, effects, ok := Reduce(s, FinishCancelledDisplay{})
		assert.False(t, ok, "from %s", s.Name())
		assert.Equal(t, s, next)
		assert.Empty(t, effects)
	}
}

func TestEditingRoundTrip(t *testing.T) {
	// StartEditing -> UpdateEditPrompt -> CancelEditing returns to the
	// original PostGeneration with a FocusEditor effect.
	start := postGen()

	s1, effects, ok := Reduce(start, StartEditing{})
	require.True(t, ok)
	assert.Empty(t, effects)
	ed, isEd := s1.(Editing)
	require.True(t, isEd)
	assert.Equal(t, "", ed.EditPrompt)
	assert.Equal(t, start.GeneratedBlockIDs, ed.GeneratedBlockIDs)
	assert.Equal(t, start.ToolCallID, ed.ToolCallID)

	s2, effects, ok := Reduce(s1, UpdateEditPrompt{Text: "x"})
	require.True(t, ok)
	assert.Empty(t, effects)
	assert.Equal(t, "x", s2.(Editing).EditPrompt)

	s3, effects, ok := Reduce(s2, CancelEditing{})
	require.True(t, ok)
	require.Len(t, effects, 1)
	assert.Equal(t, FocusEditor{}, effects[0])
	assert.Equal(t, start, s3)
}

func TestSubmitEditRequiresPrompt(t *testing.T) {
	ed := Editing{GeneratedBlockIDs: []string{"b1"}, SessionID: "sess1", ToolCallID: "tool1"}

	for _, prompt := range []string{"", "   ", "\t\n"} {
		ed.EditPrompt = prompt
		next, effects, ok := Reduce(ed, SubmitEdit{})
		assert.False(t, ok, "prompt %q", prompt)
		assert.Equal(t, ed, next)
		assert.Empty(t, effects)
	}

	ed.EditPrompt = "make it faster"
	next, effects, ok := Reduce(ed, SubmitEdit{})
	require.True(t, ok)
	assert.Empty(t, effects)
	assert.Equal(t, SubmittingEdit{
		GeneratedBlockIDs: []string{"b1"},
		EditPrompt:        "make it faster",
		SessionID:         "sess1",
		ToolCallID:        "tool1",
	}, next)
}

func TestSubmittingEditOutcomes(t *testing.T) {
	sub := SubmittingEdit{
		GeneratedBlockIDs: []string{"b1", "b2"},
		EditPrompt:        "tighten it",
		SessionID:         "sess1",
		ToolCallID:        "tool1",
	}

	t.Run("success swaps block ids and tool call", func(t *testing.T) {
		next, effects, ok := Reduce(sub, EditSuccess{BlockIDs: []string{"n1"}, ToolCallID: "tool2"})
		require.True(t, ok)
		assert.Empty(t, effects)
		assert.Equal(t, PostGeneration{
			GeneratedBlockIDs: []string{"n1"},
			SessionID:         "sess1",
			ToolCallID:        "tool2",
		}, next)
	})

	t.Run("error preserves the typed prompt", func(t *testing.T) {
		next, effects, ok := Reduce(sub, EditError{})
		require.True(t, ok)
		assert.Empty(t, effects)
		assert.Equal(t, Editing{
			GeneratedBlockIDs: []string{"b1", "b2"},
			EditPrompt:        "tighten it",
			SessionID:         "sess1",
			ToolCallID:        "tool1",
		}, next)
	})
}

func TestClear(t *testing.T) {
	next, effects, ok := Reduce(postGen(), Clear{})
	require.True(t, ok)
	assert.Equal(t, Idle{}, next)
	require.Len(t, effects, 1)
	assert.Equal(t, DestroySession{SessionID: "sess1"}, effects[0])

	ed := Editing{GeneratedBlockIDs: []string{"b1"}, SessionID: "sess1"}
	next, effects, ok = Reduce(ed, Clear{})
	require.True(t, ok)
	assert.Equal(t, Idle{}, next)
	require.Len(t, effects, 1)

	// Clear from Idle is a no-op.
	next, effects, ok = Reduce(Idle{}, Clear{})
	assert.False(t, ok)
	assert.Equal(t, Idle{}, next)
	assert.Empty(t, effects)
}

// TestUnlistedPairsAreNoOps sweeps every (state, action) pair and checks
// that anything outside the transition table leaves the state untouched
// with no effects, and that every accepted transition lands on a variant of
// the defined union.
func TestUnlistedPairsAreNoOps(t *testing.T) {
	states := []State{
		Idle{},
		Generating{PromptBlockID: "blockA", OriginalPrompt: "p", SessionID: "sess1"},
		Cancelled{},
		postGen(),
		Editing{GeneratedBlockIDs: []string{"b1"}, EditPrompt: "x", SessionID: "sess1", ToolCallID: "tool1"},
		SubmittingEdit{GeneratedBlockIDs: []string{"b1"}, EditPrompt: "x", SessionID: "sess1", ToolCallID: "tool1"},
	}
	actions := []Action{
		StartGenerate{SessionID: "sess2"},
		GenerationCancelled{},
		GenerationSuccess{BlockIDs: []string{"n1"}, ToolCallID: "t"},
		GenerationError{},
		FinishCancelledDisplay{},
		StartEditing{},
		UpdateEditPrompt{Text: "y"},
		CancelEditing{},
		SubmitEdit{},
		EditSuccess{BlockIDs: []string{"n1"}, ToolCallID: "t"},
		EditError{},
		Clear{},
	}

	// The accepted pairs, keyed by state name then action name.
	accepted := map[string]map[string]bool{
		StateIdle:           {"start_generate": true},
		StateGenerating:     {"start_generate": true, "generation_cancelled": true, "generation_success": true, "generation_error": true},
		StateCancelled:      {"start_generate": true, "finish_cancelled_display": true},
		StatePostGeneration: {"start_generate": true, "start_editing": true, "clear": true},
		StateEditing:        {"start_generate": true, "update_edit_prompt": true, "cancel_editing": true, "submit_edit": true, "clear": true},
		StateSubmittingEdit: {"start_generate": true, "edit_success": true, "edit_error": true},
	}

	for _, s := range states {
		for _, a := range actions {
			next, effects, ok := Reduce(s, a)
			want := accepted[s.Name()][a.Name()]
			assert.Equal(t, want, ok, "state=%s action=%s", s.Name(), a.Name())
			if !ok {
				assert.Equal(t, s, next, "rejected state=%s action=%s must not change state", s.Name(), a.Name())
				assert.Empty(t, effects, "rejected state=%s action=%s must not emit effects", s.Name(), a.Name())
				continue
			}
			// Accepted transitions stay within the union.
			switch next.(type) {
			case Idle, Generating, Cancelled, PostGeneration, Editing, SubmittingEdit:
			default:
				t.Fatalf("state=%s action=%s produced unknown state %T", s.Name(), a.Name(), next)
			}
		}
	}
}

func TestLiveSessionID(t *testing.T) {
	for _, s := range []State{Idle{}, Cancelled{}} {
		_, live := LiveSessionID(s)
		assert.False(t, live, "state %s", s.Name())
	}
	for _, s := range []State{
		Generating{SessionID: "sess1"},
		postGen(),
		Editing{SessionID: "sess1"},
		SubmittingEdit{SessionID: "sess1"},
	} {
		id, live := LiveSessionID(s)
		require.True(t, live, "state %s", s.Name())
		assert.Equal(t, "sess1", id)
	}
}
