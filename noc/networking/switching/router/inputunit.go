package router

import (
	"fmt"
	"log"

	"github.com/sarchlab/wormhole/noc/messaging"
	"github.com/sarchlab/wormhole/noc/networking/routing"
	"github.com/sarchlab/wormhole/sim"
)

// VCState is the state of one input virtual channel.
type VCState int

// An input VC is idle until a head flit claims it, waits for route
// computation and VC allocation, then drains flits one per switch grant
// until the tail departs.
const (
	VCIdle VCState = iota
	VCRouting
	VCAllocated
	VCActive
)

// String returns the name of the state.
func (s VCState) String() string {
	switch s {
	case VCIdle:
		return "Idle"
	case VCRouting:
		return "Routing"
	case VCAllocated:
		return "VCAllocated"
	case VCActive:
		return "Active"
	default:
		return fmt.Sprintf("VCState(%d)", int(s))
	}
}

// An inputUnit holds the buffered flits and the state of one input virtual
// channel. Only the owning router mutates it.
type inputUnit struct {
	buf sim.Buffer

	state         VCState
	ownerPacketID string
	routeResolved bool
	route         routing.Direction
	outVC         int
}

func newInputUnit(name string, depth int) *inputUnit {
	return &inputUnit{
		buf:   sim.NewBuffer(name, depth),
		outVC: -1,
	}
}

// accept buffers an arriving flit and runs the flit-arrival state
// transitions. Violations of the wormhole protocol are bugs in the upstream
// router's allocation, so they panic.
func (u *inputUnit) accept(f *messaging.Flit) {
	if f.Kind.IsHead() {
		if u.state != VCIdle {
			log.Panicf(
				"wormhole violation: head of packet %s arrived on a VC owned by packet %s",
				f.PacketID, u.ownerPacketID)
		}

		u.state = VCRouting
		u.ownerPacketID = f.PacketID
		u.routeResolved = false
	} else if u.state == VCIdle || u.ownerPacketID != f.PacketID {
		log.Panicf(
			"wormhole violation: %s flit of packet %s interleaved into packet %s",
			f.Kind, f.PacketID, u.ownerPacketID)
	}

	u.buf.Push(f)
}

// peek returns the flit at the front of the FIFO without removing it.
func (u *inputUnit) peek() *messaging.Flit {
	item := u.buf.Peek()
	if item == nil {
		return nil
	}

	return item.(*messaging.Flit)
}

// dequeue removes and returns the head flit. It is used only after a
// successful switch-allocation grant.
func (u *inputUnit) dequeue() *messaging.Flit {
	item := u.buf.Pop()
	if item == nil {
		panic("dequeue on an empty input unit")
	}

	return item.(*messaging.Flit)
}

// release returns the VC to idle after the tail flit departed.
func (u *inputUnit) release() {
	u.state = VCIdle
	u.ownerPacketID = ""
	u.routeResolved = false
	u.outVC = -1
}

func (u *inputUnit) reset() {
	u.buf.Clear()
	u.release()
}

// occupancy returns the number of buffered flits.
func (u *inputUnit) occupancy() int {
	return u.buf.Size()
}
