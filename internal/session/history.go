package session

// History is the per-session back/forward stack. The cursor always
// points at the URL currently loaded through this tracker, or -1 when
// nothing has been recorded yet: -1 <= index <= len(entries)-1.
//
// History is not safe for concurrent use; the owning Session
// serializes access.
type History struct {
	entries []string
	index   int
}

// NewHistory returns an empty tracker.
func NewHistory() *History {
	return &History{index: -1}
}

// Record notes a completed navigation. Navigating from the middle of
// history discards the forward branch, matching standard browser
// semantics.
func (h *History) Record(url string) {
	h.entries = append(h.entries[:h.index+1], url)
	h.index = len(h.entries) - 1
}

// CanBack reports whether a back navigation is possible.
func (h *History) CanBack() bool {
	return h.index > 0
}

// CanForward reports whether a forward navigation is possible.
func (h *History) CanForward() bool {
	return h.index < len(h.entries)-1
}

// Back moves the cursor one entry back. Returns false, without
// moving, when there is nothing to go back to; that is a normal
// outcome, not an error.
func (h *History) Back() bool {
	if !h.CanBack() {
		return false
	}
	h.index--
	return true
}

// Forward moves the cursor one entry forward. Returns false when the
// forward branch is empty.
func (h *History) Forward() bool {
	if !h.CanForward() {
		return false
	}
	h.index++
	return true
}

// Current returns the URL at the cursor, or "" if nothing was
// recorded yet.
func (h *History) Current() string {
	if h.index < 0 {
		return ""
	}
	return h.entries[h.index]
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Index returns the cursor position.
func (h *History) Index() int {
	return h.index
}
