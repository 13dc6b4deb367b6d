// Package controller implements the inline-generation workflow controller:
// a deterministic state machine (pkg/genstate) plus the adapters that talk
// to the session service, mutate the host document, and interpret keyboard
// input contextually.
//
// All transitions are serialized through one mutex-guarded dispatch path.
// Session events re-enter through the per-session ordered queue, timers
// re-enter through time.AfterFunc, and the slow service calls (create, send,
// destroy) run on detached goroutines so dispatch never blocks on them.
package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/runbooklabs/inlinegen/pkg/config"
	"github.com/runbooklabs/inlinegen/pkg/document"
	"github.com/runbooklabs/inlinegen/pkg/genstate"
	"github.com/runbooklabs/inlinegen/pkg/notify"
	"github.com/runbooklabs/inlinegen/pkg/session"
	"github.com/runbooklabs/inlinegen/pkg/telemetry"
	"github.com/runbooklabs/inlinegen/pkg/tools"
)

// Options wires a controller to its host.
type Options struct {
	Document document.Document
	Service  session.Service
	Notifier notify.Notifier
	Tracker  *telemetry.Tracker
	Tools    *tools.Runner

	// Controller tunables; zero values fall back to config defaults.
	Controller config.ControllerConfig

	// Session creation metadata, passed through to the service.
	RunbookID    string
	Model        string
	Username     string
	ChargeTarget string
	Endpoint     string
	BlockInfos   []session.BlockInfo

	// RunBlock executes a generated block (SQL, HTTP, ...). Optional; when
	// nil the run shortcut only notifies.
	RunBlock func(blockID string) error
	// FocusEditor returns keyboard focus to the document editor. Optional.
	FocusEditor func()
}

// Controller owns one editor surface's generation state. Create one per
// surface and Close it when the surface goes away.
type Controller struct {
	mu    sync.Mutex
	state genstate.State

	doc      document.Document
	svc      session.Service
	notifier notify.Notifier
	tracker  *telemetry.Tracker
	runner   *tools.Runner

	maxBlocks        int
	cancelledDisplay time.Duration
	executable       map[string]bool

	runbookID    string
	model        string
	username     string
	chargeTarget string
	endpoint     string
	blockInfos   []session.BlockInfo

	runBlock    func(blockID string) error
	focusEditor func()

	subs          map[string]func() // sessionID -> unsubscribe
	errorNotified bool              // one failure toast per session
	progEdits     int               // programmatic-edit depth, guarded by editMu
	editMu        sync.Mutex
	closed        bool
}

// New creates a controller in the Idle state.
func New(opts Options) *Controller {
	ctrl := opts.Controller
	if ctrl.MaxGeneratedBlocks <= 0 {
		ctrl.MaxGeneratedBlocks = 3
	}
	if ctrl.CancelledDisplayMillis <= 0 {
		ctrl.CancelledDisplayMillis = 1500
	}
	executable := make(map[string]bool, len(ctrl.ExecutableBlockTypes))
	for _, t := range ctrl.ExecutableBlockTypes {
		executable[t] = true
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	runner := opts.Tools
	if runner == nil {
		runner = tools.NewRunner(tools.NewRegistry(), ctrl.AutoApprovedTools)
	}

	return &Controller{
		state:            genstate.Idle{},
		doc:              opts.Document,
		svc:              opts.Service,
		notifier:         notifier,
		tracker:          opts.Tracker,
		runner:           runner,
		maxBlocks:        ctrl.MaxGeneratedBlocks,
		cancelledDisplay: ctrl.CancelledDisplay(),
		executable:       executable,
		runbookID:        opts.RunbookID,
		model:            opts.Model,
		username:         opts.Username,
		chargeTarget:     opts.ChargeTarget,
		endpoint:         opts.Endpoint,
		blockInfos:       opts.BlockInfos,
		runBlock:         opts.RunBlock,
		focusEditor:      opts.FocusEditor,
		subs:             make(map[string]func()),
	}
}

// State returns the current state.
func (c *Controller) State() genstate.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close tears the controller down: the live session, if any, is destroyed
// best effort, and further input is ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = genstate.Idle{}
	subs := c.subs
	c.subs = make(map[string]func())
	c.mu.Unlock()

	for id, unsub := range subs {
		go c.teardownSession(id, unsub)
	}
}

// StartGeneration begins a generation using the prompt block's current text
// as the instruction. replacePromptBlock deletes the prompt block once
// blocks arrive. The session is created on a detached goroutine; the state
// does not move to Generating until creation succeeds.
func (c *Controller) StartGeneration(promptBlockID string, replacePromptBlock bool) {
	blk, ok := c.doc.Block(promptBlockID)
	if !ok {
		slog.Warn("start generation: prompt block missing", "block", promptBlockID)
		return
	}
	prompt := blk.Content
	if strings.TrimSpace(prompt) == "" {
		slog.Debug("start generation: empty prompt ignored", "block", promptBlockID)
		return
	}

	c.track(telemetry.GenerationTriggered,
		telemetry.Field{Key: "prompt_length", Value: len(prompt)},
		telemetry.Field{Key: "block_type", Value: blk.Type})

	go c.createAndStart(promptBlockID, prompt, replacePromptBlock)
}

// createAndStart performs the asynchronous part of StartGeneration.
func (c *Controller) createAndStart(promptBlockID, prompt string, replacePromptBlock bool) {
	ctx := context.Background()
	sessionID, err := c.svc.CreateSession(ctx, session.CreateParams{
		RunbookID:     c.runbookID,
		Model:         c.model,
		BlockInfos:    c.blockInfos,
		Document:      c.doc.Blocks(),
		AnchorBlockID: promptBlockID,
		Username:      c.username,
		ChargeTarget:  c.chargeTarget,
		Endpoint:      c.endpoint,
	})
	if err != nil {
		slog.Error("session creation failed", "error", err)
		c.track(telemetry.SessionCreateFailed, telemetry.Field{Key: "error", Value: err.Error()})
		c.notifier.Notify(notify.Notification{
			Title:       "Generation failed",
			Description: "Could not start an AI session. Please try again.",
			Severity:    notify.SeverityError,
		})
		return
	}

	unsub, err := c.svc.Subscribe(sessionID, func(ev session.Event) {
		c.handleSessionEvent(sessionID, ev)
	})
	if err != nil {
		slog.Error("session subscribe failed", "session", sessionID, "error", err)
		go c.teardownSession(sessionID, nil)
		c.notifier.Notify(notify.Notification{
			Title:       "Generation failed",
			Description: "Could not start an AI session. Please try again.",
			Severity:    notify.SeverityError,
		})
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		go c.teardownSession(sessionID, unsub)
		return
	}
	applied := c.dispatchLocked(genstate.StartGenerate{
		PromptBlockID:      promptBlockID,
		Prompt:             prompt,
		SessionID:          sessionID,
		ReplacePromptBlock: replacePromptBlock,
	})
	if applied {
		c.subs[sessionID] = unsub
		c.errorNotified = false
	}
	c.mu.Unlock()

	if !applied {
		go c.teardownSession(sessionID, unsub)
		return
	}

	if err := c.svc.SendMessage(ctx, sessionID, prompt); err != nil {
		slog.Error("send prompt failed", "session", sessionID, "error", err)
		c.mu.Lock()
		c.dispatchLocked(genstate.GenerationError{})
		c.notifyFailureLocked("Generation failed", "The AI service did not accept the request.")
		c.mu.Unlock()
		c.track(telemetry.GenerationError, telemetry.Field{Key: "error", Value: err.Error()})
	}
}

// CancelGeneration asks the service to stop the in-flight generation. The
// state change arrives with the service's cancelled event.
func (c *Controller) CancelGeneration() {
	c.mu.Lock()
	gen, ok := c.state.(genstate.Generating)
	c.mu.Unlock()
	if !ok {
		return
	}
	go func() {
		if err := c.svc.CancelSession(context.Background(), gen.SessionID); err != nil {
			slog.Warn("cancel session failed", "session", gen.SessionID, "error", err)
		}
	}()
}

// StartEdit opens the follow-up instruction input from the post-generation
// review. The keyboard shortcut and any host edit affordance both land here.
func (c *Controller) StartEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.state.(genstate.PostGeneration)
	if !ok {
		return
	}
	c.startEditingLocked(st)
}

// startEditingLocked enters Editing from PostGeneration. Caller holds c.mu.
func (c *Controller) startEditingLocked(st genstate.PostGeneration) {
	if c.dispatchLocked(genstate.StartEditing{}) {
		c.track(telemetry.EditStarted, telemetry.Field{Key: "block_count", Value: len(st.GeneratedBlockIDs)})
	}
}

// UpdateEditPrompt replaces the follow-up instruction text while editing.
func (c *Controller) UpdateEditPrompt(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatchLocked(genstate.UpdateEditPrompt{Text: text})
}

// CancelEdit abandons the follow-up instruction and returns to the
// post-generation decision.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatchLocked(genstate.CancelEditing{})
}

// SubmitEdit sends the typed follow-up instruction to the session. Rejected
// while the instruction is empty.
func (c *Controller) SubmitEdit() {
	c.mu.Lock()
	ed, isEditing := c.state.(genstate.Editing)
	if !isEditing || !c.dispatchLocked(genstate.SubmitEdit{}) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	go func() {
		err := c.svc.SendEditRequest(context.Background(), ed.SessionID, ed.EditPrompt, ed.ToolCallID)
		if err == nil {
			return
		}
		slog.Error("send edit request failed", "session", ed.SessionID, "error", err)
		c.mu.Lock()
		c.dispatchLocked(genstate.EditError{})
		c.notifyFailureLocked("Edit failed", "The AI service did not accept the edit request.")
		c.mu.Unlock()
		c.track(telemetry.EditError, telemetry.Field{Key: "error", Value: err.Error()})
	}()
}

// dispatchLocked applies an action through the reducer and runs the
// resulting effects. Caller holds c.mu. Rejected transitions are logged and
// leave the state untouched; under async events that is the expected answer
// to a stale action, not a bug.
func (c *Controller) dispatchLocked(a genstate.Action) bool {
	next, effects, ok := genstate.Reduce(c.state, a)
	if !ok {
		slog.Warn("transition rejected", "state", c.state.Name(), "action", a.Name())
		return false
	}
	slog.Debug("transition", "from", c.state.Name(), "action", a.Name(), "to", next.Name())
	c.state = next
	for _, eff := range effects {
		c.runEffectLocked(eff)
	}
	return true
}

// runEffectLocked executes one reducer-declared effect. Caller holds c.mu.
func (c *Controller) runEffectLocked(eff genstate.Effect) {
	switch e := eff.(type) {
	case genstate.DestroySession:
		unsub := c.subs[e.SessionID]
		delete(c.subs, e.SessionID)
		c.errorNotified = false
		go c.teardownSession(e.SessionID, unsub)
	case genstate.FocusEditor:
		if c.focusEditor != nil {
			c.focusEditor()
		}
	}
}

// teardownSession unsubscribes and destroys a session, best effort. Failures
// are logged, never surfaced.
func (c *Controller) teardownSession(sessionID string, unsub func()) {
	if unsub != nil {
		unsub()
	}
	if err := c.svc.DestroySession(context.Background(), sessionID); err != nil {
		slog.Warn("destroy session failed", "session", sessionID, "error", err)
	}
}

// notifyFailureLocked shows one failure toast per session. Caller holds c.mu.
func (c *Controller) notifyFailureLocked(title, description string) {
	if c.errorNotified {
		return
	}
	c.errorNotified = true
	c.notifier.Notify(notify.Notification{
		Title:       title,
		Description: description,
		Severity:    notify.SeverityError,
	})
}

// scheduleCancelledRevert dispatches FinishCancelledDisplay after the
// configured display window.
func (c *Controller) scheduleCancelledRevert() {
	time.AfterFunc(c.cancelledDisplay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.dispatchLocked(genstate.FinishCancelledDisplay{})
	})
}

func (c *Controller) track(name string, fields ...telemetry.Field) {
	c.tracker.Record(name, fields...)
}
