package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	var out []Event
	for len(out) < n {
		select {
		case ev := <-ch:
			out = append(out, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestMockDefaultScriptEchoesPrompt(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	id, err := m.CreateSession(ctx, CreateParams{RunbookID: "rb1"})
	require.NoError(t, err)
	require.True(t, m.Live(id))

	events := make(chan Event, 8)
	unsub, err := m.Subscribe(id, func(ev Event) { events <- ev })
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, m.SendMessage(ctx, id, "hello there"))

	got := collectEvents(t, events, 1)[0]
	assert.Equal(t, EventBlocksGenerated, got.Type)
	assert.NotEmpty(t, got.ToolCallID)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, "paragraph", got.Blocks[0].Type)
	assert.Equal(t, "hello there", got.Blocks[0].Content)
}

func TestMockScriptedGenerate(t *testing.T) {
	m := NewMock()
	m.Generate = func(req GenerateRequest) []Event {
		if req.IsEdit {
			return []Event{{
				Type:       EventBlocksGenerated,
				ToolCallID: "tool2",
				Blocks:     []GeneratedBlock{{Type: "postgres", Content: "select 2"}},
			}}
		}
		return []Event{
			{Type: EventToolsRequested, Calls: []ToolCall{{ID: "call1", Name: "read_document"}}},
			{Type: EventBlocksGenerated, ToolCallID: "tool1", Blocks: []GeneratedBlock{{Type: "postgres", Content: "select 1"}}},
		}
	}
	ctx := context.Background()

	id, err := m.CreateSession(ctx, CreateParams{RunbookID: "rb1"})
	require.NoError(t, err)
	events := make(chan Event, 8)
	unsub, err := m.Subscribe(id, func(ev Event) { events <- ev })
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, m.SendMessage(ctx, id, "query the users table"))
	got := collectEvents(t, events, 2)
	assert.Equal(t, EventToolsRequested, got[0].Type)
	assert.Equal(t, EventBlocksGenerated, got[1].Type)

	require.NoError(t, m.SendEditRequest(ctx, id, "use table accounts", "tool1"))
	edit := collectEvents(t, events, 1)[0]
	assert.Equal(t, "tool2", edit.ToolCallID)
	assert.Equal(t, "select 2", edit.Blocks[0].Content)
}

func TestMockCancelSuppressesLaterEvents(t *testing.T) {
	m := NewMock()
	release := make(chan struct{})
	m.Generate = func(GenerateRequest) []Event {
		<-release
		return []Event{{
			Type:   EventBlocksGenerated,
			Blocks: []GeneratedBlock{{Type: "paragraph", Content: "late"}},
		}}
	}
	ctx := context.Background()

	id, err := m.CreateSession(ctx, CreateParams{})
	require.NoError(t, err)
	events := make(chan Event, 8)
	unsub, err := m.Subscribe(id, func(ev Event) { events <- ev })
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, m.SendMessage(ctx, id, "slow prompt"))
	require.NoError(t, m.CancelSession(ctx, id))
	close(release)

	got := collectEvents(t, events, 1)[0]
	assert.Equal(t, EventCancelled, got.Type)

	select {
	case ev := <-events:
		t.Fatalf("expected no event after cancel, got %q", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMockToolResultHook(t *testing.T) {
	m := NewMock()
	m.OnToolResult = func(sessionID, toolCallID string, success bool, result string) []Event {
		return []Event{{Type: EventError, Message: toolCallID + ":" + result}}
	}
	ctx := context.Background()

	id, err := m.CreateSession(ctx, CreateParams{})
	require.NoError(t, err)
	events := make(chan Event, 8)
	unsub, err := m.Subscribe(id, func(ev Event) { events <- ev })
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, m.SendToolResult(ctx, id, "call1", true, "done"))
	got := collectEvents(t, events, 1)[0]
	assert.Equal(t, "call1:done", got.Message)
}

func TestMockUnknownSession(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	_, err := m.Subscribe("nope", func(Event) {})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.SendMessage(ctx, "nope", "x"), ErrSessionNotFound)
	assert.ErrorIs(t, m.SendEditRequest(ctx, "nope", "x", "t"), ErrSessionNotFound)
	assert.ErrorIs(t, m.SendToolResult(ctx, "nope", "t", true, ""), ErrSessionNotFound)
	assert.ErrorIs(t, m.CancelSession(ctx, "nope"), ErrSessionNotFound)
	assert.ErrorIs(t, m.DestroySession(ctx, "nope"), ErrSessionNotFound)
}

func TestMockDestroySession(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	id, err := m.CreateSession(ctx, CreateParams{})
	require.NoError(t, err)
	_, err = m.Subscribe(id, func(Event) {})
	require.NoError(t, err)

	require.NoError(t, m.DestroySession(ctx, id))
	assert.False(t, m.Live(id))
}

func TestMockCreateErr(t *testing.T) {
	m := NewMock()
	m.CreateErr = assert.AnError

	_, err := m.CreateSession(context.Background(), CreateParams{})
	assert.ErrorIs(t, err, assert.AnError)
}
