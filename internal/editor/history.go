package editor

// DefaultMaxHistory bounds the undo stack when no depth is configured.
const DefaultMaxHistory = 50

// History is a pair of bounded snapshot stacks. The top of the undo stack is
// always the current state, so undo is possible once two snapshots exist.
type History struct {
	undo     []string
	redo     []string
	maxDepth int
}

func NewHistory(maxDepth int) *History {
	if maxDepth < 2 {
		maxDepth = DefaultMaxHistory
	}
	return &History{maxDepth: maxDepth}
}

// Push records s as the new current state. A snapshot equal to the current
// one is ignored; anything else clears the redo stack.
func (h *History) Push(s string) bool {
	if n := len(h.undo); n > 0 && h.undo[n-1] == s {
		return false
	}
	h.undo = append(h.undo, s)
	if over := len(h.undo) - h.maxDepth; over > 0 {
		h.undo = append(h.undo[:0], h.undo[over:]...)
	}
	h.redo = h.redo[:0]
	return true
}

// Undo moves the current state to the redo stack and returns the state below it.
func (h *History) Undo() (string, bool) {
	if !h.CanUndo() {
		return "", false
	}
	n := len(h.undo)
	h.redo = append(h.redo, h.undo[n-1])
	h.undo = h.undo[:n-1]
	return h.undo[n-2], true
}

// Redo moves the most recently undone state back and returns it.
func (h *History) Redo() (string, bool) {
	if !h.CanRedo() {
		return "", false
	}
	n := len(h.redo)
	s := h.redo[n-1]
	h.redo = h.redo[:n-1]
	h.undo = append(h.undo, s)
	return s, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 1 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Reset drops all history and records s as the only state.
func (h *History) Reset(s string) {
	h.undo = append(h.undo[:0], s)
	h.redo = h.redo[:0]
}

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) {
	return len(h.undo), len(h.redo)
}
