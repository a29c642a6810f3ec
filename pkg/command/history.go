package command

// History applies an operation stream recorded by another stack to a local
// stack. It mirrors the local histories and also records executes that
// could not be applied here, so a later undo or redo of such an entry moves
// only the record and leaves the stack alone.
//
// History observes its stack, so operations made on the stack directly are
// tracked too. Like Stack it is not safe for concurrent use.
type History struct {
	stack *Stack
	// true marks an entry backed by a command on the stack.
	undo []bool
	redo []bool
}

// NewHistory attaches a history to s. Commands already on s are treated as
// applied. Call Close to stop observing s.
func NewHistory(s *Stack) *History {
	h := &History{
		stack: s,
		undo:  filled(len(s.undo)),
		redo:  filled(len(s.redo)),
	}
	s.AddObserver(h)
	return h
}

func filled(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

// Close detaches h from its stack.
func (h *History) Close() { h.stack.removeHistory(h) }

// Len returns the sizes of the recorded undo and redo histories, skipped
// entries included.
func (h *History) Len() (undo, redo int) { return len(h.undo), len(h.redo) }

// Apply runs op and reports whether the stack changed. A nil or no-op cmd
// for OpExecute records an execute that could not be applied here. An
// execute that fails is recorded the same way and its error returned. Undo
// and redo of a skipped entry only move the record.
func (h *History) Apply(op Op, cmd Command) (bool, error) {
	switch op {
	case OpExecute:
		if cmd == nil || cmd.IsNoOp() {
			h.Skip()
			return false, nil
		}
		if err := h.stack.Execute(cmd); err != nil {
			h.Skip()
			return false, err
		}
		return true, nil
	case OpUndo:
		if n := len(h.undo); n > 0 && !h.undo[n-1] {
			h.undo = h.undo[:n-1]
			h.redo = append(h.redo, false)
			return false, nil
		}
		c, err := h.stack.Undo()
		return c != nil && err == nil, err
	case OpRedo:
		if n := len(h.redo); n > 0 && !h.redo[n-1] {
			h.redo = h.redo[:n-1]
			h.undo = append(h.undo, false)
			return false, nil
		}
		c, err := h.stack.Redo()
		return c != nil && err == nil, err
	}
	return false, nil
}

// Skip records an execute that was not applied. As on the recording stack,
// it discards the redo history.
func (h *History) Skip() {
	h.stack.dropRedo()
	h.redo = h.redo[:0]
	h.undo = append(h.undo, false)
}

// Applied implements Observer.
func (h *History) Applied(op Op, cmd Command) {
	switch op {
	case OpExecute:
		if cmd == nil || cmd.IsVolatile() {
			return
		}
		h.redo = h.redo[:0]
		h.undo = append(h.undo, true)
	case OpUndo:
		h.undo = moveApplied(h.undo, &h.redo)
	case OpRedo:
		h.redo = moveApplied(h.redo, &h.undo)
	}
}

// moveApplied removes the topmost applied entry of from and pushes it onto
// to. Skipped entries above it stay in place.
func moveApplied(from []bool, to *[]bool) []bool {
	for i := len(from) - 1; i >= 0; i-- {
		if from[i] {
			*to = append(*to, true)
			return append(from[:i], from[i+1:]...)
		}
	}
	return from
}
