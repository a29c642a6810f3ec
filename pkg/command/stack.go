package command

// Op identifies a stack operation reported to observers.
type Op string

// Stack operations.
const (
	OpExecute Op = "execute"
	OpUndo    Op = "undo"
	OpRedo    Op = "redo"
)

// Observer is notified after a command ran successfully through a stack.
// Volatile commands are reported too; observers filter with IsVolatile.
type Observer interface {
	Applied(op Op, cmd Command)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(op Op, cmd Command)

func (f ObserverFunc) Applied(op Op, cmd Command) { f(op, cmd) }

// Stack is the undo/redo history of one document. It is not safe for
// concurrent use; a document has a single writer.
type Stack struct {
	undo      []Command
	redo      []Command
	observers []Observer
}

// NewStack returns an empty stack notifying observers.
func NewStack(observers ...Observer) *Stack {
	return &Stack{observers: observers}
}

// AddObserver registers o for future operations.
func (s *Stack) AddObserver(o Observer) {
	if o != nil {
		s.observers = append(s.observers, o)
	}
}

func (s *Stack) removeHistory(h *History) {
	for i, cur := range s.observers {
		if ch, ok := cur.(*History); ok && ch == h {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// dropRedo clears the redo history without keeping the commands reachable.
func (s *Stack) dropRedo() {
	clear(s.redo)
	s.redo = s.redo[:0]
}

// Execute runs cmd unless it is nil or a no-op. A non-volatile command
// clears the redo history and is pushed for undo. When cmd fails the
// history is left untouched and the error is returned.
func (s *Stack) Execute(cmd Command) error {
	if cmd == nil || cmd.IsNoOp() {
		return nil
	}
	if err := cmd.Execute(); err != nil {
		return err
	}
	if !cmd.IsVolatile() {
		s.dropRedo()
		s.undo = append(s.undo, cmd)
	}
	s.notify(OpExecute, cmd)
	return nil
}

// Undo reverses the most recent command and moves it to the redo history.
// Returns nil when there is nothing to undo.
func (s *Stack) Undo() (Command, error) {
	if len(s.undo) == 0 {
		return nil, nil
	}
	cmd := s.undo[len(s.undo)-1]
	if err := cmd.Undo(); err != nil {
		return cmd, err
	}
	s.undo[len(s.undo)-1] = nil
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, cmd)
	s.notify(OpUndo, cmd)
	return cmd, nil
}

// Redo re-applies the most recently undone command. Returns nil when there
// is nothing to redo.
func (s *Stack) Redo() (Command, error) {
	if len(s.redo) == 0 {
		return nil, nil
	}
	cmd := s.redo[len(s.redo)-1]
	if err := cmd.Redo(); err != nil {
		return cmd, err
	}
	s.redo[len(s.redo)-1] = nil
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, cmd)
	s.notify(OpRedo, cmd)
	return cmd, nil
}

func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

// Len returns the sizes of the undo and redo histories.
func (s *Stack) Len() (undo, redo int) { return len(s.undo), len(s.redo) }

// Clear drops both histories.
func (s *Stack) Clear() {
	s.undo = nil
	s.redo = nil
}

// Apply runs op through the stack: execute runs cmd, undo and redo ignore
// it and act on the history.
func (s *Stack) Apply(op Op, cmd Command) error {
	switch op {
	case OpExecute:
		return s.Execute(cmd)
	case OpUndo:
		_, err := s.Undo()
		return err
	case OpRedo:
		_, err := s.Redo()
		return err
	}
	return nil
}

func (s *Stack) notify(op Op, cmd Command) {
	for _, o := range s.observers {
		o.Applied(op, cmd)
	}
}
