package controller

import (
	"fmt"
	"strings"

	"log/slog"

	"github.com/runbooklabs/inlinegen/pkg/document"
	"github.com/runbooklabs/inlinegen/pkg/genstate"
	"github.com/runbooklabs/inlinegen/pkg/notify"
	"github.com/runbooklabs/inlinegen/pkg/telemetry"
)

// Key is one keyboard event as the host reports it. Name is "Escape",
// "Tab", "Enter" or the printable key itself ("e"). Primary is the
// platform's primary modifier: Cmd on macOS, Ctrl elsewhere; the host sets
// it so the controller stays platform-agnostic.
type Key struct {
	Name    string
	Primary bool
	Shift   bool
	Alt     bool
}

// Key name constants for the non-printable keys the dispatcher cares about.
const (
	KeyEscape = "Escape"
	KeyTab    = "Tab"
	KeyEnter  = "Enter"
)

// textBlockTypes are the block types whose text can serve as a prompt.
var textBlockTypes = map[string]bool{
	"paragraph": true,
	"heading":   true,
}

// HandleKey interprets a keyboard event against the current state and
// returns whether the event was consumed. Unconsumed events belong to the
// editor.
func (c *Controller) HandleKey(k Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch st := c.state.(type) {
	case genstate.PostGeneration:
		// Generated blocks may have been deleted externally; a stale set
		// collapses to Idle and the key is re-read from there.
		if c.anyBlockMissingLocked(st.GeneratedBlockIDs) {
			slog.Debug("generated blocks stale, clearing")
			c.dispatchLocked(genstate.Clear{})
			return c.handleIdleKeyLocked(k)
		}
		return c.handlePostGenerationKeyLocked(st, k)

	case genstate.Editing:
		// The edit text input owns the keyboard while editing.
		return false

	case genstate.Idle:
		return c.handleIdleKeyLocked(k)

	default:
		return false
	}
}

func (c *Controller) anyBlockMissingLocked(ids []string) bool {
	for _, id := range ids {
		if !c.doc.Contains(id) {
			return true
		}
	}
	return false
}

func (c *Controller) handlePostGenerationKeyLocked(st genstate.PostGeneration, k Key) bool {
	switch {
	case k.Name == KeyEscape:
		c.dismissLocked(st)
		return true

	case strings.EqualFold(k.Name, "e") && !k.Primary && !k.Alt:
		c.startEditingLocked(st)
		return true

	case k.Name == KeyTab && !k.Primary && !k.Shift && !k.Alt:
		c.acceptAndContinueLocked(st, "tab")
		return true

	case k.Name == KeyEnter && k.Primary:
		c.runGeneratedLocked(st)
		return true
	}
	return false
}

// dismissLocked deletes the generated blocks and clears the state.
func (c *Controller) dismissLocked(st genstate.PostGeneration) {
	guard := c.BeginProgrammaticEdit()
	defer guard.Release()

	for _, id := range st.GeneratedBlockIDs {
		if err := c.doc.Remove(id); err != nil {
			slog.Warn("remove generated block failed", "block", id, "error", err)
		}
	}
	c.dispatchLocked(genstate.Clear{})
	c.track(telemetry.Dismiss, telemetry.Field{Key: "block_count", Value: len(st.GeneratedBlockIDs)})
}

// acceptAndContinueLocked keeps the generated blocks, opens a fresh
// paragraph below them and clears the state.
func (c *Controller) acceptAndContinueLocked(st genstate.PostGeneration, shortcut string) {
	c.insertTrailingParagraphLocked(st.GeneratedBlockIDs[len(st.GeneratedBlockIDs)-1])
	c.dispatchLocked(genstate.Clear{})
	c.track(telemetry.Continue,
		telemetry.Field{Key: "block_count", Value: len(st.GeneratedBlockIDs)},
		telemetry.Field{Key: "shortcut", Value: shortcut})
}

// runGeneratedLocked executes the single generated block, if it is runnable,
// then performs the normal post-generation cleanup.
func (c *Controller) runGeneratedLocked(st genstate.PostGeneration) {
	if len(st.GeneratedBlockIDs) > 1 {
		c.notifier.Notify(notify.Notification{
			Title:       "Multiple blocks generated",
			Description: "Running multiple blocks in series is not supported.",
			Severity:    notify.SeverityWarning,
		})
		c.dispatchLocked(genstate.Clear{})
		c.track(telemetry.Run,
			telemetry.Field{Key: "block_count", Value: len(st.GeneratedBlockIDs)},
			telemetry.Field{Key: "executed", Value: false})
		return
	}

	blockID := st.GeneratedBlockIDs[0]
	blk, ok := c.doc.Block(blockID)
	if !ok {
		c.dispatchLocked(genstate.Clear{})
		return
	}

	executed := false
	if c.executable[blk.Type] && c.runBlock != nil {
		executed = true
		run := c.runBlock
		go func() {
			if err := run(blockID); err != nil {
				slog.Warn("run generated block failed", "block", blockID, "error", err)
			}
		}()
	} else if !c.executable[blk.Type] {
		c.notifier.Notify(notify.Notification{
			Title:       "Cannot run block",
			Description: fmt.Sprintf("Blocks of type %q cannot be executed.", blk.Type),
			Severity:    notify.SeverityWarning,
		})
	}

	c.insertTrailingParagraphLocked(blockID)
	c.dispatchLocked(genstate.Clear{})
	c.track(telemetry.Run,
		telemetry.Field{Key: "block_type", Value: blk.Type},
		telemetry.Field{Key: "executed", Value: executed})
}

func (c *Controller) insertTrailingParagraphLocked(afterID string) {
	guard := c.BeginProgrammaticEdit()
	defer guard.Release()

	id, err := c.doc.InsertAfter(afterID, document.Block{Type: "paragraph"})
	if err != nil {
		slog.Warn("insert trailing paragraph failed", "after", afterID, "error", err)
		return
	}
	c.doc.SetCursorToEnd(id)
}

// handleIdleKeyLocked starts a generation when the primary-modifier Enter is
// pressed with the cursor in a non-empty text block.
func (c *Controller) handleIdleKeyLocked(k Key) bool {
	if k.Name != KeyEnter || !k.Primary {
		return false
	}
	blockID := c.doc.CursorBlockID()
	if blockID == "" {
		return false
	}
	blk, ok := c.doc.Block(blockID)
	if !ok || !textBlockTypes[blk.Type] || strings.TrimSpace(blk.Content) == "" {
		return false
	}
	c.StartGeneration(blockID, false)
	return true
}
