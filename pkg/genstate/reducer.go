package genstate

import "strings"

// This file is the canonical implementation of the inline-generation state
// machine. The transition table:
//
//	start_generate            Idle (or any live state)   -> Generating      [DestroySession(prior) if one was live]
//	generation_cancelled      Generating                 -> Cancelled       [DestroySession]
//	generation_success        Generating                 -> PostGeneration
//	generation_error          Generating                 -> Idle            [DestroySession]
//	finish_cancelled_display  Cancelled                  -> Idle
//	start_editing             PostGeneration             -> Editing
//	update_edit_prompt        Editing                    -> Editing
//	cancel_editing            Editing                    -> PostGeneration  [FocusEditor]
//	submit_edit               Editing (non-empty prompt) -> SubmittingEdit
//	edit_success              SubmittingEdit             -> PostGeneration
//	edit_error                SubmittingEdit             -> Editing
//	clear                     PostGeneration | Editing   -> Idle            [DestroySession]
//
// Every other (state, action) pair is rejected unchanged. Events arrive
// asynchronously and the document may have moved underneath the machine, so
// rejection is the expected steady-state answer to a stale action.

// Reduce applies an action to a state and returns the next state together
// with the effects to run. The third result reports whether the transition
// was accepted; on rejection the input state is returned unchanged with no
// effects, and the caller decides how loudly to log it.
func Reduce(s State, a Action) (State, []Effect, bool) {
	switch act := a.(type) {
	case StartGenerate:
		next := Generating{
			PromptBlockID:      act.PromptBlockID,
			OriginalPrompt:     act.Prompt,
			SessionID:          act.SessionID,
			ReplacePromptBlock: act.ReplacePromptBlock,
		}
		// At most one live session per controller: starting over a live
		// state tears the prior session down first.
		if prior, live := LiveSessionID(s); live {
			return next, []Effect{DestroySession{SessionID: prior}}, true
		}
		return next, nil, true

	case GenerationCancelled:
		if gen, ok := s.(Generating); ok {
			return Cancelled{}, []Effect{DestroySession{SessionID: gen.SessionID}}, true
		}

	case GenerationSuccess:
		if gen, ok := s.(Generating); ok {
			return PostGeneration{
				GeneratedBlockIDs: act.BlockIDs,
				SessionID:         gen.SessionID,
				ToolCallID:        act.ToolCallID,
			}, nil, true
		}

	case GenerationError:
		if gen, ok := s.(Generating); ok {
			return Idle{}, []Effect{DestroySession{SessionID: gen.SessionID}}, true
		}

	case FinishCancelledDisplay:
		if _, ok := s.(Cancelled); ok {
			return Idle{}, nil, true
		}

	case StartEditing:
		if post, ok := s.(PostGeneration); ok {
			return Editing{
				GeneratedBlockIDs: post.GeneratedBlockIDs,
				EditPrompt:        "",
				SessionID:         post.SessionID,
				ToolCallID:        post.ToolCallID,
			}, nil, true
		}

	case UpdateEditPrompt:
		if ed, ok := s.(Editing); ok {
			ed.EditPrompt = act.Text
			return ed, nil, true
		}

	case CancelEditing:
		if ed, ok := s.(Editing); ok {
			return PostGeneration{
				GeneratedBlockIDs: ed.GeneratedBlockIDs,
				SessionID:         ed.SessionID,
				ToolCallID:        ed.ToolCallID,
			}, []Effect{FocusEditor{}}, true
		}

	case SubmitEdit:
		if ed, ok := s.(Editing); ok {
			if strings.TrimSpace(ed.EditPrompt) == "" {
				break
			}
			return SubmittingEdit{
				GeneratedBlockIDs: ed.GeneratedBlockIDs,
				EditPrompt:        ed.EditPrompt,
				SessionID:         ed.SessionID,
				ToolCallID:        ed.ToolCallID,
			}, nil, true
		}

	case EditSuccess:
		if sub, ok := s.(SubmittingEdit); ok {
			return PostGeneration{
				GeneratedBlockIDs: act.BlockIDs,
				SessionID:         sub.SessionID,
				ToolCallID:        act.ToolCallID,
			}, nil, true
		}

	case EditError:
		if sub, ok := s.(SubmittingEdit); ok {
			return Editing{
				GeneratedBlockIDs: sub.GeneratedBlockIDs,
				EditPrompt:        sub.EditPrompt,
				SessionID:         sub.SessionID,
				ToolCallID:        sub.ToolCallID,
			}, nil, true
		}

	case Clear:
		switch v := s.(type) {
		case PostGeneration:
			return Idle{}, []Effect{DestroySession{SessionID: v.SessionID}}, true
		case Editing:
			return Idle{}, []Effect{DestroySession{SessionID: v.SessionID}}, true
		}
	}

	return s, nil, false
}
