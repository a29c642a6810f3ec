package command

import (
	"fmt"
)

const keyCommands = "commands"

// Compound runs an ordered sequence of commands as one edit. Undo runs the
// children in reverse order.
type Compound struct {
	commands []Command
}

// NewCompound returns a compound of cmds. Nil entries are dropped.
func NewCompound(cmds ...Command) *Compound {
	c := &Compound{}
	for _, cmd := range cmds {
		c.Add(cmd)
	}
	return c
}

// Add appends cmd.
func (c *Compound) Add(cmd Command) {
	if cmd != nil {
		c.commands = append(c.commands, cmd)
	}
}

// Commands returns the children in execution order.
func (c *Compound) Commands() []Command {
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

func (c *Compound) TypeName() string { return TypeCompound }

// IsVolatile reports whether every child is volatile.
func (c *Compound) IsVolatile() bool {
	for _, cmd := range c.commands {
		if !cmd.IsVolatile() {
			return false
		}
	}
	return len(c.commands) > 0
}

// IsNoOp reports whether every child is a no-op.
func (c *Compound) IsNoOp() bool {
	for _, cmd := range c.commands {
		if !cmd.IsNoOp() {
			return false
		}
	}
	return true
}

// Execute runs the children in order. When a child fails the children
// already run are undone in reverse order and the error is returned.
func (c *Compound) Execute() error {
	return c.forward(Command.Execute)
}

func (c *Compound) Redo() error {
	return c.forward(Command.Redo)
}

// Undo runs the children in reverse order. When a child fails the children
// already undone are redone.
func (c *Compound) Undo() error {
	for i := len(c.commands) - 1; i >= 0; i-- {
		cmd := c.commands[i]
		if cmd.IsNoOp() {
			continue
		}
		if err := cmd.Undo(); err != nil {
			for j := i + 1; j < len(c.commands); j++ {
				if !c.commands[j].IsNoOp() {
					_ = c.commands[j].Redo()
				}
			}
			return fmt.Errorf("undo %s[%d]: %w", cmd.TypeName(), i, err)
		}
	}
	return nil
}

func (c *Compound) forward(run func(Command) error) error {
	for i, cmd := range c.commands {
		if cmd.IsNoOp() {
			continue
		}
		if err := run(cmd); err != nil {
			for j := i - 1; j >= 0; j-- {
				if !c.commands[j].IsNoOp() {
					_ = c.commands[j].Undo()
				}
			}
			return fmt.Errorf("%s[%d]: %w", cmd.TypeName(), i, err)
		}
	}
	return nil
}

func (c *Compound) ToObject() map[string]any {
	children := make([]any, 0, len(c.commands))
	for _, cmd := range c.commands {
		children = append(children, cmd.ToObject())
	}
	return map[string]any{
		KeyType:     TypeCompound,
		keyCommands: children,
	}
}

type compoundWire struct {
	Commands []map[string]any `mapstructure:"commands"`
}

// decodeCompound rebuilds every child through r. Any child that fails to
// decode fails the compound.
func (r *Registry) decodeCompound(data map[string]any, ctx Context) (Command, bool) {
	var w compoundWire
	if err := decodeWire(data, &w); err != nil {
		return decodeFailed(ctx, TypeCompound, err)
	}
	c := NewCompound()
	for _, child := range w.Commands {
		cmd, ok := r.Decode(child, ctx)
		if !ok {
			return nil, false
		}
		c.Add(cmd)
	}
	return c, true
}
