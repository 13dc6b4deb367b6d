package genstate

// Effect is a side effect the reducer requests. The reducer never performs
// I/O itself; effects are returned as data and run by the controller's
// effect runner after the new state is committed.
type Effect interface {
	effect()
}

// DestroySession tears down the named session, best effort.
type DestroySession struct {
	SessionID string
}

// FocusEditor returns keyboard focus to the document editor.
type FocusEditor struct{}

func (DestroySession) effect() {}
func (FocusEditor) effect()    {}
