package router

import (
	"log"

	"github.com/sarchlab/wormhole/noc/networking/arbitration"
	"github.com/sarchlab/wormhole/noc/networking/credit"
	"github.com/sarchlab/wormhole/noc/networking/routing"
)

// An outputUnit tracks the downstream-facing state of one output port: which
// output VCs are owned by in-flight packets, how many downstream buffer
// slots remain, and the arbiter that shares the crossbar slot of this port.
type outputUnit struct {
	dir routing.Direction

	// credits mirrors the buffer occupancy at the receiving side of this
	// output. For a neighbor-facing port it is the tracker owned by the
	// link; for the local port it mirrors the ejection buffer. It stays nil
	// on mesh-edge ports that have no neighbor, which dimension-order
	// routing never selects.
	credits *credit.Tracker
	busy    []bool
	arbiter arbitration.Arbiter

	// link is nil for the local port and for mesh-edge ports.
	link *Link
}

func newOutputUnit(
	dir routing.Direction,
	numVCs, numInputSlots int,
) *outputUnit {
	return &outputUnit{
		dir:     dir,
		busy:    make([]bool, numVCs),
		arbiter: arbitration.NewRoundRobin(numInputSlots),
	}
}

// allocVC claims a free output VC for a packet. The lowest free index wins,
// which keeps allocation deterministic. It returns false when every VC is
// owned.
func (o *outputUnit) allocVC() (int, bool) {
	for vc, b := range o.busy {
		if b {
			continue
		}

		o.busy[vc] = true

		return vc, true
	}

	return -1, false
}

// releaseVC returns an output VC to the free pool after the owning packet's
// tail flit traversed the switch.
func (o *outputUnit) releaseVC(vc int) {
	if !o.busy[vc] {
		log.Panicf("releasing output VC %d of %s that is not allocated",
			vc, o.dir)
	}

	o.busy[vc] = false
}

func (o *outputUnit) reset() {
	for vc := range o.busy {
		o.busy[vc] = false
	}

	if o.credits != nil {
		o.credits.Reset()
	}
	o.arbiter.Reset()

	if o.link != nil {
		o.link.Reset()
	}
}
