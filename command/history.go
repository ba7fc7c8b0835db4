package command

// History is the host side undo manager: a done stack and an undone stack.
type History struct {
	done   []Command
	undone []Command
	limit  int
}

// NewHistory keeps at most limit commands, 0 meaning no limit.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Push records an already performed command and forgets anything undone.
func (h *History) Push(c Command) {
	h.done = append(h.done, c)
	h.undone = nil
	if h.limit > 0 && len(h.done) > h.limit {
		h.done = append([]Command(nil), h.done[len(h.done)-h.limit:]...)
	}
}

func (h *History) Undo() bool {
	if len(h.done) == 0 {
		return false
	}
	c := h.done[len(h.done)-1]
	h.done = h.done[:len(h.done)-1]
	c.Undo()
	h.undone = append(h.undone, c)
	return true
}

func (h *History) Redo() bool {
	if len(h.undone) == 0 {
		return false
	}
	c := h.undone[len(h.undone)-1]
	h.undone = h.undone[:len(h.undone)-1]
	c.Redo()
	h.done = append(h.done, c)
	return true
}

func (h *History) CanUndo() bool { return len(h.done) != 0 }
func (h *History) CanRedo() bool { return len(h.undone) != 0 }
func (h *History) Len() int      { return len(h.done) }
