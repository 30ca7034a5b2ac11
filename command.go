package cardstack

import "log/slog"

// Command is a reversible edit. Do applies it (and re-applies it on redo);
// Undo reverts it. Both report whether anything was applied.
type Command interface {
	Do() bool
	Undo() bool
	Name() string
}

// CommandGroup runs member commands as one undo step: Do in declaration
// order, Undo in reverse. A failing member does not stop the others and
// nothing is rolled back; Do reports success when at least one member
// applied, so the partial edit stays undoable.
type CommandGroup struct {
	name     string
	commands []Command
}

// NewCommandGroup creates a group of cmds under one undo name.
func NewCommandGroup(name string, cmds ...Command) *CommandGroup {
	return &CommandGroup{name: name, commands: cmds}
}

// Name returns the undo name.
func (g *CommandGroup) Name() string { return g.name }

// Commands returns the members. The slice must not be mutated.
func (g *CommandGroup) Commands() []Command { return g.commands }

// Do applies every member front to back.
func (g *CommandGroup) Do() bool {
	applied := false
	for _, c := range g.commands {
		if c.Do() {
			applied = true
		}
	}
	return applied
}

// Undo reverts every member back to front.
func (g *CommandGroup) Undo() bool {
	reverted := false
	for i := len(g.commands) - 1; i >= 0; i-- {
		if g.commands[i].Undo() {
			reverted = true
		}
	}
	return reverted
}

// CommandLog is the undo/redo history. Commands before the cursor are
// undoable, commands at and after it are redoable. Not safe for concurrent
// use; call it from the coordinating goroutine.
type CommandLog struct {
	commands []Command
	cursor   int
	root     *Entity
	logger   *slog.Logger
}

// NewCommandLog creates an empty log. root is marked clean whenever nothing
// is left to undo; it may be nil.
func NewCommandLog(root *Entity, logger *slog.Logger) *CommandLog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CommandLog{root: root, logger: logger}
}

// Submit applies cmd. When storeIt is true and cmd applied, the redo tail is
// discarded and cmd becomes the newest undoable entry. Returns cmd.Do().
func (l *CommandLog) Submit(cmd Command, storeIt bool) bool {
	if !cmd.Do() {
		l.logger.Debug("command not applied", "command", cmd.Name())
		return false
	}
	if !storeIt {
		return true
	}
	clear(l.commands[l.cursor:])
	l.commands = append(l.commands[:l.cursor], cmd)
	l.cursor = len(l.commands)
	l.logger.Debug("command submitted", "command", cmd.Name(), "len", len(l.commands))
	return true
}

// Undo reverts the command before the cursor and moves the cursor back. Once
// nothing is undoable the root entity is marked clean.
func (l *CommandLog) Undo() bool {
	if l.cursor == 0 {
		return false
	}
	cmd := l.commands[l.cursor-1]
	if !cmd.Undo() {
		l.logger.Debug("undo failed", "command", cmd.Name())
		return false
	}
	l.cursor--
	l.logger.Debug("undo", "command", cmd.Name(), "cursor", l.cursor)
	if l.cursor == 0 && l.root != nil {
		l.root.SetDirty(false)
	}
	return true
}

// Redo re-applies the command at the cursor and advances.
func (l *CommandLog) Redo() bool {
	if l.cursor == len(l.commands) {
		return false
	}
	cmd := l.commands[l.cursor]
	if !cmd.Do() {
		l.logger.Debug("redo failed", "command", cmd.Name())
		return false
	}
	l.cursor++
	l.logger.Debug("redo", "command", cmd.Name(), "cursor", l.cursor)
	return true
}

// CanUndo reports whether Undo has anything to revert.
func (l *CommandLog) CanUndo() bool { return l.cursor > 0 }

// CanRedo reports whether Redo has anything to re-apply.
func (l *CommandLog) CanRedo() bool { return l.cursor < len(l.commands) }

// UndoName returns the name of the next command Undo would revert, or "".
func (l *CommandLog) UndoName() string {
	if !l.CanUndo() {
		return ""
	}
	return l.commands[l.cursor-1].Name()
}

// RedoName returns the name of the next command Redo would apply, or "".
func (l *CommandLog) RedoName() string {
	if !l.CanRedo() {
		return ""
	}
	return l.commands[l.cursor].Name()
}

// Len returns the number of stored commands, undoable or redoable.
func (l *CommandLog) Len() int { return len(l.commands) }

// Clear drops the whole history and marks the root clean.
func (l *CommandLog) Clear() {
	clear(l.commands)
	l.commands = l.commands[:0]
	l.cursor = 0
	if l.root != nil {
		l.root.SetDirty(false)
	}
}
