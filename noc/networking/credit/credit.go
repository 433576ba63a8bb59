// Package credit implements credit-based flow control between adjacent
// routers.
package credit

import "log"

// A Tracker counts the free buffer slots of the virtual channels at the
// downstream side of one link. The upstream router consumes a credit for
// every flit it sends; the downstream router returns the credit when the
// flit vacates its input buffer.
//
// The tracker is the only state shared between two adjacent routers, which
// is what keeps cross-router interaction free of races and hidden channels.
type Tracker struct {
	name   string
	depth  int
	counts []int
}

// NewTracker creates a Tracker for numVCs virtual channels, each backed by a
// downstream buffer of the given depth.
func NewTracker(name string, numVCs, depth int) *Tracker {
	if numVCs <= 0 {
		panic("credit tracker requires at least one virtual channel")
	}
	if depth <= 0 {
		panic("credit tracker requires a positive buffer depth")
	}

	t := &Tracker{
		name:   name,
		depth:  depth,
		counts: make([]int, numVCs),
	}
	t.Reset()

	return t
}

// Name returns the name of the tracker.
func (t *Tracker) Name() string {
	return t.name
}

// TryReserve consumes one credit on the given virtual channel. It returns
// false, without mutating the tracker, when no credit is available. A false
// return is the backpressure signal that gates the switch allocator.
func (t *Tracker) TryReserve(vc int) bool {
	if t.counts[vc] == 0 {
		return false
	}

	t.counts[vc]--

	return true
}

// Release returns one credit on the given virtual channel. Releasing beyond
// the buffer depth means the downstream router freed a slot it never held,
// which is an accounting bug, so it panics.
func (t *Tracker) Release(vc int) {
	if t.counts[vc] >= t.depth {
		log.Panicf("credit overflow on %s vc %d", t.name, vc)
	}

	t.counts[vc]++
}

// Peek returns the number of credits currently available on the given
// virtual channel.
func (t *Tracker) Peek(vc int) int {
	return t.counts[vc]
}

// Depth returns the downstream buffer depth that the tracker mirrors.
func (t *Tracker) Depth() int {
	return t.depth
}

// NumVCs returns the number of virtual channels tracked.
func (t *Tracker) NumVCs() int {
	return len(t.counts)
}

// Reset refills every virtual channel to the full buffer depth.
func (t *Tracker) Reset() {
	for vc := range t.counts {
		t.counts[vc] = t.depth
	}
}
