// Package arbitration provides arbiters that grant shared resources to
// competing requesters.
package arbitration

// An Arbiter picks at most one winner among competing requesters per cycle.
// Slots identify the requesters; the request function reports whether a slot
// is requesting and eligible this cycle.
type Arbiter interface {
	// Grant scans the slots and returns the winning slot. The second return
	// value is false when no slot is requesting.
	Grant(requesting func(slot int) bool) (int, bool)

	// NumSlots returns the number of slots the arbiter serves.
	NumSlots() int

	// Reset restores the arbiter to its initial priority.
	Reset()
}

// NewRoundRobin creates an Arbiter that rotates priority after every grant.
// The scan starts at the slot after the previous winner and grants the first
// requesting slot, so a slot that keeps requesting is served within
// numSlots grants of any competitor.
func NewRoundRobin(numSlots int) Arbiter {
	if numSlots <= 0 {
		panic("arbiter requires at least one slot")
	}

	return &roundRobin{numSlots: numSlots}
}

type roundRobin struct {
	numSlots int
	pointer  int
}

func (a *roundRobin) Grant(requesting func(slot int) bool) (int, bool) {
	for i := 0; i < a.numSlots; i++ {
		slot := (a.pointer + i) % a.numSlots
		if !requesting(slot) {
			continue
		}

		a.pointer = (slot + 1) % a.numSlots

		return slot, true
	}

	return -1, false
}

func (a *roundRobin) NumSlots() int {
	return a.numSlots
}

func (a *roundRobin) Reset() {
	a.pointer = 0
}
