package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runbooklabs/inlinegen/pkg/document"
	"github.com/runbooklabs/inlinegen/pkg/genstate"
	"github.com/runbooklabs/inlinegen/pkg/session"
)

func TestEscapeDismissesGeneratedBlocks(t *testing.T) {
	f := newFixture(t, nil)
	st := f.startAndFinish()

	require.True(t, f.ctrl.HandleKey(Key{Name: KeyEscape}))

	assert.Equal(t, genstate.Idle{}, f.ctrl.State())
	for _, id := range st.GeneratedBlockIDs {
		assert.False(t, f.doc.Contains(id))
	}
	assert.True(t, f.doc.Contains(f.promptID))
	waitFor(t, "session destroyed", func() bool {
		return !f.svc.Live(st.SessionID)
	})
}

func TestTabAcceptsAndContinues(t *testing.T) {
	f := newFixture(t, nil)
	st := f.startAndFinish()
	lastGen := st.GeneratedBlockIDs[len(st.GeneratedBlockIDs)-1]

	require.True(t, f.ctrl.HandleKey(Key{Name: KeyTab}))

	assert.Equal(t, genstate.Idle{}, f.ctrl.State())
	assert.True(t, f.doc.Contains(lastGen), "accepted blocks stay in the document")

	// A fresh paragraph opens below the generated set, holding the cursor.
	cursor := f.doc.CursorBlockID()
	require.NotEmpty(t, cursor)
	assert.NotEqual(t, lastGen, cursor)
	blk, ok := f.doc.Block(cursor)
	require.True(t, ok)
	assert.Equal(t, "paragraph", blk.Type)
	prev, ok := f.doc.PrecedingBlockID(cursor)
	require.True(t, ok)
	assert.Equal(t, lastGen, prev)
}

func TestShiftTabIsNotConsumed(t *testing.T) {
	f := newFixture(t, nil)
	f.startAndFinish()

	assert.False(t, f.ctrl.HandleKey(Key{Name: KeyTab, Shift: true}))
	_, ok := f.ctrl.State().(genstate.PostGeneration)
	assert.True(t, ok)
}

func TestPrimaryEnterRunsExecutableBlock(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.Generate = func(session.GenerateRequest) []session.Event {
		return []session.Event{{Type: session.EventBlocksGenerated, ToolCallID: "t1",
			Blocks: []session.GeneratedBlock{{Type: "postgres", Content: "select 1"}}}}
	}
	st := f.startAndFinish()
	genID := st.GeneratedBlockIDs[0]

	require.True(t, f.ctrl.HandleKey(Key{Name: KeyEnter, Primary: true}))

	assert.Equal(t, genstate.Idle{}, f.ctrl.State())
	waitFor(t, "block run", func() bool {
		ran := f.ranBlocks()
		return len(ran) == 1 && ran[0] == genID
	})

	// Same trailing-paragraph cleanup as accept.
	cursor := f.doc.CursorBlockID()
	prev, ok := f.doc.PrecedingBlockID(cursor)
	require.True(t, ok)
	assert.Equal(t, genID, prev)
}

func TestPrimaryEnterRefusesMultipleBlocks(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.Generate = func(session.GenerateRequest) []session.Event {
		return []session.Event{{Type: session.EventBlocksGenerated, ToolCallID: "t1",
			Blocks: []session.GeneratedBlock{
				{Type: "postgres", Content: "select 1"},
				{Type: "postgres", Content: "select 2"},
			}}}
	}
	f.startAndFinish()

	require.True(t, f.ctrl.HandleKey(Key{Name: KeyEnter, Primary: true}))

	assert.Equal(t, genstate.Idle{}, f.ctrl.State())
	assert.Empty(t, f.ranBlocks())

	notes := f.notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "Multiple blocks generated", notes[0].Title)
	assert.Equal(t, "Running multiple blocks in series is not supported.", notes[0].Description)
}

func TestPrimaryEnterOnUnexecutableBlock(t *testing.T) {
	f := newFixture(t, nil)
	// Default echo script generates a paragraph, which is not executable.
	st := f.startAndFinish()

	require.True(t, f.ctrl.HandleKey(Key{Name: KeyEnter, Primary: true}))

	assert.Equal(t, genstate.Idle{}, f.ctrl.State())
	assert.Empty(t, f.ranBlocks())
	assert.True(t, f.doc.Contains(st.GeneratedBlockIDs[0]), "block is kept, just not run")

	notes := f.notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "Cannot run block", notes[0].Title)
}

func TestStaleGeneratedBlocksCollapseToIdle(t *testing.T) {
	f := newFixture(t, nil)
	st := f.startAndFinish()

	// The user deletes a generated block out from under the decision UI.
	require.NoError(t, f.doc.Remove(st.GeneratedBlockIDs[0]))

	// "e" means nothing in Idle, so the key falls through unconsumed.
	assert.False(t, f.ctrl.HandleKey(Key{Name: "e"}))
	assert.Equal(t, genstate.Idle{}, f.ctrl.State())
	waitFor(t, "session destroyed", func() bool {
		return !f.svc.Live(st.SessionID)
	})
}

func TestStaleBlocksFallThroughToIdleShortcut(t *testing.T) {
	f := newFixture(t, nil)
	st := f.startAndFinish()
	require.NoError(t, f.doc.Remove(st.GeneratedBlockIDs[0]))

	// Cursor sits in the prompt paragraph, so the same keystroke that would
	// have run the stale block starts a fresh generation instead.
	f.doc.SetCursorToEnd(f.promptID)
	assert.True(t, f.ctrl.HandleKey(Key{Name: KeyEnter, Primary: true}))
	waitFor(t, "fresh generation", func() bool {
		st2, ok := f.ctrl.State().(genstate.PostGeneration)
		return ok && st2.SessionID != st.SessionID
	})
}

func TestIdlePrimaryEnterStartsGeneration(t *testing.T) {
	f := newFixture(t, nil)

	assert.True(t, f.ctrl.HandleKey(Key{Name: KeyEnter, Primary: true}))
	waitFor(t, "post-generation state", func() bool {
		_, ok := f.ctrl.State().(genstate.PostGeneration)
		return ok
	})
}

func TestIdleKeysNotConsumed(t *testing.T) {
	f := newFixture(t, nil)

	// Plain Enter belongs to the editor.
	assert.False(t, f.ctrl.HandleKey(Key{Name: KeyEnter}))
	// Printable keys too.
	assert.False(t, f.ctrl.HandleKey(Key{Name: "e"}))
	assert.False(t, f.ctrl.HandleKey(Key{Name: KeyEscape}))
	assert.Equal(t, genstate.Idle{}, f.ctrl.State())
}

func TestIdleEnterIgnoredOnEmptyOrNonTextBlock(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.doc.SetText(f.promptID, ""))
	assert.False(t, f.ctrl.HandleKey(Key{Name: KeyEnter, Primary: true}))

	sqlID, err := f.doc.InsertAfter(f.promptID, document.Block{Type: "postgres", Content: "select 1"})
	require.NoError(t, err)
	f.doc.SetCursorToEnd(sqlID)
	assert.False(t, f.ctrl.HandleKey(Key{Name: KeyEnter, Primary: true}))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, genstate.Idle{}, f.ctrl.State())
}

func TestEditingPassesKeysThrough(t *testing.T) {
	f := newFixture(t, nil)
	f.startAndFinish()
	require.True(t, f.ctrl.HandleKey(Key{Name: "e"}))

	// The edit input owns the keyboard: nothing is consumed, including the
	// shortcuts that mean something in other states.
	assert.False(t, f.ctrl.HandleKey(Key{Name: KeyEscape}))
	assert.False(t, f.ctrl.HandleKey(Key{Name: KeyTab}))
	assert.False(t, f.ctrl.HandleKey(Key{Name: KeyEnter, Primary: true}))
	_, editing := f.ctrl.State().(genstate.Editing)
	assert.True(t, editing)
}

func TestModifiedEKeyNotConsumed(t *testing.T) {
	f := newFixture(t, nil)
	f.startAndFinish()

	assert.False(t, f.ctrl.HandleKey(Key{Name: "e", Primary: true}))
	assert.False(t, f.ctrl.HandleKey(Key{Name: "e", Alt: true}))
	_, ok := f.ctrl.State().(genstate.PostGeneration)
	assert.True(t, ok)
}
