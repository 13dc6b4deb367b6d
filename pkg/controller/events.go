package controller

import (
	"context"

	"log/slog"

	"github.com/google/uuid"
	"github.com/runbooklabs/inlinegen/pkg/document"
	"github.com/runbooklabs/inlinegen/pkg/genstate"
	"github.com/runbooklabs/inlinegen/pkg/session"
	"github.com/runbooklabs/inlinegen/pkg/telemetry"
)

// handleSessionEvent is the event interpreter: it validates each session
// event against the current state, performs the document edits, and
// dispatches the matching action. The session queue delivers events one at
// a time in emission order.
func (c *Controller) handleSessionEvent(sessionID string, ev session.Event) {
	switch ev.Type {
	case session.EventBlocksGenerated:
		c.onBlocksGenerated(sessionID, ev)
	case session.EventError:
		c.onError(sessionID, ev)
	case session.EventCancelled:
		c.onCancelled(sessionID)
	case session.EventToolsRequested:
		c.onToolsRequested(sessionID, ev)
	default:
		slog.Warn("unknown session event", "session", sessionID, "type", ev.Type)
	}
}

// matchesLocked reports whether sessionID is the live session of the current
// state. Events from torn-down sessions can still be in flight; they are
// dropped here.
func (c *Controller) matchesLocked(sessionID string) bool {
	live, ok := genstate.LiveSessionID(c.state)
	return ok && live == sessionID
}

func (c *Controller) onBlocksGenerated(sessionID string, ev session.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.matchesLocked(sessionID) {
		slog.Warn("blocks for stale session dropped", "session", sessionID)
		return
	}

	switch st := c.state.(type) {
	case genstate.Generating:
		c.finishGenerationLocked(st, ev)
	case genstate.SubmittingEdit:
		c.finishEditLocked(st, ev)
	default:
		slog.Warn("blocks in unexpected state dropped",
			"session", sessionID, "state", c.state.Name())
	}
}

// finishGenerationLocked inserts freshly generated blocks after the prompt
// block. Caller holds c.mu.
func (c *Controller) finishGenerationLocked(gen genstate.Generating, ev session.Event) {
	// The user may have rewritten or deleted the prompt while the
	// generation streamed; treat any change as a cancellation. Exact string
	// comparison, trailing whitespace included.
	if !gen.ReplacePromptBlock {
		cur, ok := c.doc.Block(gen.PromptBlockID)
		if !ok || cur.Content != gen.OriginalPrompt {
			c.dispatchLocked(genstate.GenerationCancelled{})
			c.scheduleCancelledRevert()
			c.track(telemetry.GenerationCancelled, telemetry.Field{Key: "reason", Value: "prompt_changed"})
			return
		}
	}

	blocks := c.capBlocks(ev.Blocks)

	guard := c.BeginProgrammaticEdit()
	defer guard.Release()

	inserted := c.insertGenerated(blocks, gen.PromptBlockID, false)
	if gen.ReplacePromptBlock && len(inserted) > 0 {
		if err := c.doc.Remove(gen.PromptBlockID); err != nil {
			slog.Warn("remove prompt block failed", "block", gen.PromptBlockID, "error", err)
		}
	}

	if len(inserted) == 0 {
		c.dispatchLocked(genstate.GenerationError{})
		c.notifyFailureLocked("Generation failed", "The AI service returned no usable blocks.")
		c.track(telemetry.GenerationError, telemetry.Field{Key: "error", Value: "no blocks inserted"})
		return
	}

	c.doc.SetCursorToEnd(inserted[len(inserted)-1])
	c.dispatchLocked(genstate.GenerationSuccess{BlockIDs: inserted, ToolCallID: ev.ToolCallID})
	c.track(telemetry.GenerationSuccess, telemetry.Field{Key: "block_count", Value: len(inserted)})
}

// finishEditLocked swaps the previous generated blocks for the revised set.
// Caller holds c.mu.
func (c *Controller) finishEditLocked(sub genstate.SubmittingEdit, ev session.Event) {
	blocks := c.capBlocks(ev.Blocks)

	guard := c.BeginProgrammaticEdit()
	defer guard.Release()

	// Anchor for the replacement set is whatever precedes the old set.
	anchorID := ""
	atStart := true
	if len(sub.GeneratedBlockIDs) > 0 {
		if prev, ok := c.doc.PrecedingBlockID(sub.GeneratedBlockIDs[0]); ok {
			anchorID = prev
			atStart = false
		}
	}
	for _, id := range sub.GeneratedBlockIDs {
		if err := c.doc.Remove(id); err != nil {
			slog.Warn("remove generated block failed", "block", id, "error", err)
		}
	}

	inserted := c.insertGenerated(blocks, anchorID, atStart)
	if len(inserted) == 0 {
		c.dispatchLocked(genstate.EditError{})
		c.notifyFailureLocked("Edit failed", "The AI service returned no usable blocks.")
		c.track(telemetry.EditError, telemetry.Field{Key: "error", Value: "no blocks inserted"})
		return
	}

	c.doc.SetCursorToEnd(inserted[len(inserted)-1])
	c.dispatchLocked(genstate.EditSuccess{BlockIDs: inserted, ToolCallID: ev.ToolCallID})
	c.track(telemetry.EditSuccess, telemetry.Field{Key: "block_count", Value: len(inserted)})
}

// capBlocks enforces the generated-block cap.
func (c *Controller) capBlocks(blocks []session.GeneratedBlock) []session.GeneratedBlock {
	if len(blocks) <= c.maxBlocks {
		return blocks
	}
	slog.Warn("generated blocks truncated", "got", len(blocks), "cap", c.maxBlocks)
	return blocks[:c.maxBlocks]
}

// insertGenerated inserts blocks sequentially, each anchored on the previous
// insertion. Failed insertions are skipped; the IDs of the blocks that made
// it in are returned in document order.
func (c *Controller) insertGenerated(blocks []session.GeneratedBlock, anchorID string, atStart bool) []string {
	var inserted []string
	for _, gb := range blocks {
		b := document.Block{Type: gb.Type, Content: gb.Content, Props: gb.Props}
		var id string
		var err error
		if atStart {
			id, err = c.doc.InsertAtStart(b)
		} else {
			id, err = c.doc.InsertAfter(anchorID, b)
		}
		if err != nil {
			slog.Warn("insert generated block failed", "type", gb.Type, "error", err)
			continue
		}
		atStart = false
		anchorID = id
		inserted = append(inserted, id)
	}
	return inserted
}

func (c *Controller) onError(sessionID string, ev session.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.matchesLocked(sessionID) {
		slog.Warn("error for stale session dropped", "session", sessionID, "message", ev.Message)
		return
	}

	switch c.state.(type) {
	case genstate.Generating:
		c.dispatchLocked(genstate.GenerationError{})
		c.track(telemetry.GenerationError, telemetry.Field{Key: "error", Value: ev.Message})
	case genstate.SubmittingEdit:
		c.dispatchLocked(genstate.EditError{})
		c.track(telemetry.EditError, telemetry.Field{Key: "error", Value: ev.Message})
	default:
		slog.Warn("error in unexpected state dropped", "state", c.state.Name(), "message", ev.Message)
		return
	}
	c.notifyFailureLocked("Generation failed", ev.Message)
}

func (c *Controller) onCancelled(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.matchesLocked(sessionID) {
		return
	}
	if c.dispatchLocked(genstate.GenerationCancelled{}) {
		c.scheduleCancelledRevert()
		c.track(telemetry.GenerationCancelled, telemetry.Field{Key: "reason", Value: "service"})
	}
}

// onToolsRequested auto-executes each requested call through the allow-list
// runner and reports every result back, approved or not. Tool execution runs
// on the event queue's goroutine, so requests are answered in order without
// holding the controller lock.
func (c *Controller) onToolsRequested(sessionID string, ev session.Event) {
	c.mu.Lock()
	match := c.matchesLocked(sessionID)
	c.mu.Unlock()
	if !match {
		slog.Warn("tool request for stale session dropped", "session", sessionID)
		return
	}

	ctx := context.Background()
	for _, call := range ev.Calls {
		callID := call.ID
		if callID == "" {
			callID = uuid.New().String()
		}

		res := c.runner.Run(ctx, call.Name, call.Arguments)
		if res.Success {
			c.track(telemetry.ToolAutoApproved, telemetry.Field{Key: "tool", Value: call.Name})
		} else {
			c.track(telemetry.ToolRejected, telemetry.Field{Key: "tool", Value: call.Name})
		}

		if err := c.svc.SendToolResult(ctx, sessionID, callID, res.Success, res.Output); err != nil {
			slog.Warn("send tool result failed", "session", sessionID, "tool", call.Name, "error", err)
		}
	}
}
