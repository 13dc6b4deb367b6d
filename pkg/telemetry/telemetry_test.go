package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordAndDrain(t *testing.T) {
	tr := NewTracker()
	tr.Record(GenerationTriggered, Field{Key: "block_type", Value: "paragraph"})
	tr.Record(GenerationSuccess, Field{Key: "blocks", Value: 2})

	events := tr.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, GenerationTriggered, events[0].Name)
	assert.Equal(t, GenerationSuccess, events[1].Name)
	assert.False(t, events[0].At.IsZero())
	require.Len(t, events[0].Fields, 1)
	assert.Equal(t, "block_type", events[0].Fields[0].Key)

	// Drain clears the buffer.
	assert.Empty(t, tr.Drain())
}

func TestTrackerEnabledFilter(t *testing.T) {
	tr := NewTracker()
	tr.SetEnabled([]string{GenerationError})

	tr.Record(GenerationTriggered)
	tr.Record(GenerationError)

	events := tr.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, GenerationError, events[0].Name)

	// Empty list re-enables everything.
	tr.SetEnabled(nil)
	tr.Record(GenerationTriggered)
	assert.Len(t, tr.Drain(), 1)
}

func TestTrackerBounded(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < defaultBufferSize+50; i++ {
		tr.Record(GenerationTriggered, Field{Key: "i", Value: i})
	}

	events := tr.Drain()
	require.Len(t, events, defaultBufferSize)
	// Oldest events were evicted.
	assert.Equal(t, 50, events[0].Fields[0].Value)
}

func TestTrackerSink(t *testing.T) {
	tr := NewTracker()
	var seen []string
	tr.SetSink(func(ev Event) {
		seen = append(seen, ev.Name)
	})

	tr.Record(EditStarted)
	tr.Record(EditSuccess)

	assert.Equal(t, []string{EditStarted, EditSuccess}, seen)
	// Sink does not replace buffering.
	assert.Len(t, tr.Drain(), 2)
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tr *Tracker
	tr.Record(GenerationTriggered)
}
