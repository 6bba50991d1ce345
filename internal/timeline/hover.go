package timeline

// HoverState is the phase of the hover/pin state machine.
type HoverState int

const (
	HoverIdle HoverState = iota
	HoverHovering
	HoverPinned
)

func (s HoverState) String() string {
	switch s {
	case HoverHovering:
		return "hovering"
	case HoverPinned:
		return "pinned"
	default:
		return "idle"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s HoverState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Hover tracks which bucket is highlighted and whether a click pinned it.
// The zero value is idle.
type Hover struct {
	index  int
	active bool
	pinned bool
}

// Move highlights bucket i unless a bucket is pinned.
func (h *Hover) Move(i int) {
	if h.pinned {
		return
	}
	h.index, h.active = i, true
}

// Leave clears the highlight unless a bucket is pinned.
func (h *Hover) Leave() {
	if h.pinned {
		return
	}
	h.Clear()
}

// Click pins bucket i. Clicking the pinned bucket again unpins it;
// clicking another bucket moves the pin there.
func (h *Hover) Click(i int) {
	if h.pinned && h.index == i {
		h.Clear()
		return
	}
	h.index, h.active, h.pinned = i, true, true
}

// Unpin returns to idle whatever the current state.
func (h *Hover) Unpin() { h.Clear() }

// Clear returns to idle.
func (h *Hover) Clear() { *h = Hover{} }

func (h *Hover) State() HoverState {
	switch {
	case h.pinned:
		return HoverPinned
	case h.active:
		return HoverHovering
	default:
		return HoverIdle
	}
}

// Index returns the highlighted bucket; ok is false when idle.
func (h *Hover) Index() (i int, ok bool) {
	return h.index, h.active
}

func (h *Hover) Pinned() bool { return h.pinned }
