package controller

import "time"

// EditGuard marks a machine-driven document mutation so the host's
// document-change listener can tell it apart from a user edit and skip its
// own side effects. Release schedules the clear on the next timer turn
// rather than doing it synchronously: listeners that run synchronously with
// the mutation must still observe the flag as set.
type EditGuard struct {
	c        *Controller
	released bool
}

// BeginProgrammaticEdit raises the programmatic-edit flag. Guards nest.
func (c *Controller) BeginProgrammaticEdit() *EditGuard {
	c.editMu.Lock()
	c.progEdits++
	c.editMu.Unlock()
	return &EditGuard{c: c}
}

// Release lowers the flag on the next turn. Safe to call more than once.
func (g *EditGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	time.AfterFunc(0, func() {
		g.c.editMu.Lock()
		g.c.progEdits--
		g.c.editMu.Unlock()
	})
}

// IsProgrammaticEdit reports whether a machine-driven document mutation is
// in progress (or was, within the current turn).
func (c *Controller) IsProgrammaticEdit() bool {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	return c.progEdits > 0
}
