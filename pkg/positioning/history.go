package positioning

// History is a bounded FIFO of recent estimates. The oldest entry is evicted
// first once the bound is reached. Not safe for concurrent use on its own;
// Engine guards it.
type History struct {
	entries []PositionEstimate
	limit   int
}

// NewHistory creates a history holding at most limit estimates.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{
		entries: make([]PositionEstimate, 0, limit),
		limit:   limit,
	}
}

// Push appends an estimate, evicting the oldest when full.
func (h *History) Push(e PositionEstimate) {
	if len(h.entries) == h.limit {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.limit-1]
	}
	h.entries = append(h.entries, e.Clone())
}

// Latest returns the newest estimate.
func (h *History) Latest() (PositionEstimate, bool) {
	if len(h.entries) == 0 {
		return PositionEstimate{}, false
	}
	return h.entries[len(h.entries)-1].Clone(), true
}

// Len returns the number of retained estimates.
func (h *History) Len() int {
	return len(h.entries)
}

// Limit returns the configured bound.
func (h *History) Limit() int {
	return h.limit
}

// Entries returns a copy of the retained estimates, oldest first.
func (h *History) Entries() []PositionEstimate {
	out := make([]PositionEstimate, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Clone()
	}
	return out
}

// Reset drops all entries.
func (h *History) Reset() {
	h.entries = h.entries[:0]
}
