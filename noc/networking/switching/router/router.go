// Package router implements a virtual-channel wormhole router for a 2D
// mesh. Each flit passes through a four-stage pipeline: route computation,
// VC allocation, switch allocation, and switch traversal, with credit-based
// flow control toward every neighbor.
package router

import (
	"errors"
	"log"

	"github.com/sarchlab/wormhole/noc/messaging"
	"github.com/sarchlab/wormhole/noc/networking/routing"
	"github.com/sarchlab/wormhole/sim"
)

// ErrNoFreeVC is returned by Inject when no idle virtual channel is
// available at the local input port. The caller is expected to retry on a
// later cycle.
var ErrNoFreeVC = errors.New("no free virtual channel")

// Comp is a router node of a 2D mesh. It moves flits from its input
// virtual channels to its output ports, one hop per cycle.
type Comp struct {
	*sim.TickingComponent

	coord                 routing.Coord
	meshWidth, meshHeight int
	numVCs                int
	bufferDepth           int
	flitPayloadBytes      int

	table     routing.Table
	localPort sim.Port
	deviceDst sim.RemotePort

	inputs  [routing.NumDirections][]*inputUnit
	outputs [routing.NumDirections]*outputUnit
	inLinks [routing.NumDirections]*Link

	// pendingInjection holds, per local VC, the flits of an injected packet
	// that did not fit in the local input buffer yet.
	pendingInjection [][]*messaging.Flit

	assembler *messaging.Assembler

	lastReport      CycleReport
	grantCounts     [routing.NumDirections]uint64
	packetLatencies map[string]uint64
	numInjected     uint64
	numDelivered    uint64
}

type grant struct {
	in  routing.Direction
	vc  int
	out routing.Direction
}

// Coord returns the position of the router in the mesh.
func (c *Comp) Coord() routing.Coord {
	return c.coord
}

// LocalPort returns the port that the node served by this router plugs into.
func (c *Comp) LocalPort() sim.Port {
	return c.localPort
}

// SetDeviceDst tells the router where to deliver reassembled packets. When
// unset, deliveries are only visible through the cycle report.
func (c *Comp) SetDeviceDst(dst sim.RemotePort) {
	c.deviceDst = dst
}

// ConnectLink attaches the outgoing and incoming links toward the neighbor
// in direction d.
func (c *Comp) ConnectLink(d routing.Direction, out, in *Link) {
	if d == routing.Local {
		panic("local port does not use links")
	}

	c.outputs[d].link = out
	c.outputs[d].credits = out.Credits()
	c.inLinks[d] = in
}

// Inject admits a new packet at the local port. It returns the packet ID,
// or ErrNoFreeVC when every local input VC is claimed, in which case the
// caller retries later.
func (c *Comp) Inject(dst routing.Coord, payload []byte) (string, error) {
	pkt := messaging.NewPacket(c.coord, dst, payload)

	if err := c.injectPacket(pkt); err != nil {
		return "", err
	}

	c.TickLater()

	return pkt.ID, nil
}

func (c *Comp) injectPacket(pkt *messaging.Packet) error {
	c.dstMustBeInMesh(pkt.Dst)

	vc := c.freeLocalVC()
	if vc < 0 {
		return ErrNoFreeVC
	}

	pkt.InjectCycle = c.currentCycle()
	flits := messaging.Split(pkt, c.flitPayloadBytes)

	// The head claims the VC immediately; the rest streams into the buffer
	// as slots free up.
	u := c.inputs[routing.Local][vc]
	u.accept(flits[0])
	for _, f := range flits[1:] {
		if u.buf.CanPush() {
			u.accept(f)
			continue
		}

		c.pendingInjection[vc] = append(c.pendingInjection[vc], f)
	}

	c.numInjected++

	return nil
}

func (c *Comp) freeLocalVC() int {
	for vc, u := range c.inputs[routing.Local] {
		if u.state == VCIdle && len(c.pendingInjection[vc]) == 0 {
			return vc
		}
	}

	return -1
}

func (c *Comp) dstMustBeInMesh(dst routing.Coord) {
	if dst.X < 0 || dst.X >= c.meshWidth ||
		dst.Y < 0 || dst.Y >= c.meshHeight {
		log.Panicf("destination %s is outside the %dx%d mesh",
			dst, c.meshWidth, c.meshHeight)
	}
}

func (c *Comp) currentCycle() uint64 {
	return c.Freq.Cycle(c.Engine.CurrentTime())
}

// Tick runs one cycle of the router. The six phases always run in the same
// order: credit maturation and flit admission, route computation, VC
// allocation, switch allocation, switch traversal, and credit return (the
// return is recorded as part of traversal). No phase observes the results
// of a later phase in the same cycle.
func (c *Comp) Tick() bool {
	cycle := c.currentCycle()

	report := CycleReport{
		Cycle:           cycle,
		CreditsReleased: make(map[routing.Direction]int),
	}

	madeProgress := false

	madeProgress = c.matureCredits(cycle) || madeProgress
	madeProgress = c.admit(cycle) || madeProgress
	madeProgress = c.computeRoutes() || madeProgress
	madeProgress = c.allocateVCs() || madeProgress

	grants := c.allocateSwitch()
	madeProgress = c.traverse(grants, cycle, &report) || madeProgress

	c.lastReport = report

	return madeProgress
}

// matureCredits makes the credits returned by downstream routers in earlier
// cycles spendable.
func (c *Comp) matureCredits(cycle uint64) bool {
	applied := 0
	for d := routing.Local + 1; d < routing.NumDirections; d++ {
		if c.outputs[d].link == nil {
			continue
		}

		applied += c.outputs[d].link.MatureCredits(cycle)
	}

	return applied > 0
}

// admit runs phase one: it moves locally injected packets and flits arriving
// from the neighbors into the input buffers.
func (c *Comp) admit(cycle uint64) bool {
	madeProgress := false

	for {
		item := c.localPort.PeekIncoming()
		if item == nil {
			break
		}

		pktMsg := item.(*messaging.PacketMsg)
		if err := c.injectPacket(pktMsg.Packet); err != nil {
			// No free VC; the message stays in the port and backpressure
			// propagates to the device.
			break
		}

		c.localPort.RetrieveIncoming()
		madeProgress = true
	}

	for vc := range c.pendingInjection {
		u := c.inputs[routing.Local][vc]
		for len(c.pendingInjection[vc]) > 0 && u.buf.CanPush() {
			u.accept(c.pendingInjection[vc][0])
			c.pendingInjection[vc] = c.pendingInjection[vc][1:]
			madeProgress = true
		}
	}

	for d := routing.Local + 1; d < routing.NumDirections; d++ {
		if c.inLinks[d] == nil {
			continue
		}

		f := c.inLinks[d].Recv(cycle)
		if f == nil {
			continue
		}

		c.inputs[d][f.VCID].accept(f)
		madeProgress = true
	}

	return madeProgress
}

// computeRoutes runs phase two: every VC holding an unrouted head flit
// resolves its output direction.
func (c *Comp) computeRoutes() bool {
	madeProgress := false

	for d := routing.Direction(0); d < routing.NumDirections; d++ {
		for _, u := range c.inputs[d] {
			if u.state != VCRouting || u.routeResolved {
				continue
			}

			head := u.peek()
			if head == nil {
				continue
			}

			u.route = c.table.FindDirection(head.PktDst)
			u.routeResolved = true
			madeProgress = true
		}
	}

	return madeProgress
}

// allocateVCs runs phase three: routed head flits claim an output VC. A VC
// that finds every output VC owned stays in the routing state and retries
// next cycle; nothing has moved, so wormhole ordering is unaffected.
func (c *Comp) allocateVCs() bool {
	madeProgress := false

	for d := routing.Direction(0); d < routing.NumDirections; d++ {
		for _, u := range c.inputs[d] {
			if u.state != VCRouting || !u.routeResolved {
				continue
			}

			outVC, ok := c.outputs[u.route].allocVC()
			if !ok {
				continue
			}

			u.state = VCAllocated
			u.outVC = outVC
			madeProgress = true
		}
	}

	return madeProgress
}

// allocateSwitch runs phase four: each output port grants its crossbar slot
// to at most one requesting input VC, picked round-robin and gated by
// downstream credit.
func (c *Comp) allocateSwitch() []grant {
	var grants []grant

	for o := routing.Direction(0); o < routing.NumDirections; o++ {
		out := c.outputs[o]
		if out.credits == nil {
			continue
		}

		slot, ok := out.arbiter.Grant(func(slot int) bool {
			return c.slotIsRequesting(slot, o)
		})
		if !ok {
			continue
		}

		grants = append(grants, grant{
			in:  routing.Direction(slot / c.numVCs),
			vc:  slot % c.numVCs,
			out: o,
		})
	}

	return grants
}

func (c *Comp) slotIsRequesting(slot int, o routing.Direction) bool {
	d := routing.Direction(slot / c.numVCs)
	vc := slot % c.numVCs
	u := c.inputs[d][vc]

	if u.state != VCAllocated && u.state != VCActive {
		return false
	}

	if u.route != o {
		return false
	}

	if u.peek() == nil {
		return false
	}

	out := c.outputs[o]
	if out.credits.Peek(u.outVC) == 0 {
		return false
	}

	if out.link != nil && !out.link.CanSend() {
		return false
	}

	if o == routing.Local && c.deviceDst != "" && !c.localPort.CanSend() {
		return false
	}

	return true
}

// traverse runs phases five and six: granted flits cross the crossbar into
// the egress register of their output port, and the credits for the
// vacated input slots are returned upstream.
func (c *Comp) traverse(
	grants []grant,
	cycle uint64,
	report *CycleReport,
) bool {
	for _, g := range grants {
		u := c.inputs[g.in][g.vc]
		out := c.outputs[g.out]

		f := u.dequeue()
		f.VCID = u.outVC
		u.state = VCActive

		if !out.credits.TryReserve(u.outVC) {
			log.Panicf("%s: switch granted %s without downstream credit",
				c.Name(), g.out)
		}

		c.grantCounts[g.out]++

		if g.out == routing.Local {
			c.ejectFlit(f, cycle, report)
			// The ejection buffer drains within the cycle.
			out.credits.Release(u.outVC)
		} else {
			out.link.Send(f, cycle)
		}

		if g.in != routing.Local {
			c.inLinks[g.in].ReturnCredit(g.vc, cycle)
			report.CreditsReleased[g.in]++
		}

		if f.Kind.IsTail() {
			out.releaseVC(u.outVC)
			u.release()
		}
	}

	return len(grants) > 0
}

func (c *Comp) ejectFlit(
	f *messaging.Flit,
	cycle uint64,
	report *CycleReport,
) {
	report.DeliveredFlits = append(report.DeliveredFlits, f)

	pkt, err := c.assembler.Accept(f)
	if err != nil {
		log.Panicf("%s: %v", c.Name(), err)
	}
	if pkt == nil {
		return
	}

	c.numDelivered++
	c.packetLatencies[pkt.ID] = cycle - pkt.InjectCycle
	report.DeliveredPackets = append(report.DeliveredPackets, pkt)

	if c.deviceDst == "" {
		return
	}

	msg := messaging.PacketMsgBuilder{}.
		WithSrc(c.localPort.AsRemote()).
		WithDst(c.deviceDst).
		WithPacket(pkt).
		Build()
	if sendErr := c.localPort.Send(msg); sendErr != nil {
		log.Panicf("%s: local port rejected a gated delivery", c.Name())
	}
}

// CycleReport returns the report of the most recent cycle.
func (c *Comp) CycleReport() CycleReport {
	return c.lastReport
}

// VCStatuses returns a snapshot of every input virtual channel.
func (c *Comp) VCStatuses() []VCStatus {
	var statuses []VCStatus

	for d := routing.Direction(0); d < routing.NumDirections; d++ {
		for vc, u := range c.inputs[d] {
			statuses = append(statuses, VCStatus{
				Port:      d,
				VC:        vc,
				State:     u.state,
				Occupancy: u.occupancy(),
			})
		}
	}

	return statuses
}

// Stats returns the counters accumulated since construction or the last
// reset.
func (c *Comp) Stats() Stats {
	s := Stats{
		GrantCounts:         make(map[routing.Direction]uint64),
		PacketLatencies:     make(map[string]uint64),
		NumPacketsInjected:  c.numInjected,
		NumPacketsDelivered: c.numDelivered,
	}

	for d := routing.Direction(0); d < routing.NumDirections; d++ {
		if c.grantCounts[d] > 0 {
			s.GrantCounts[d] = c.grantCounts[d]
		}
	}

	for id, latency := range c.packetLatencies {
		s.PacketLatencies[id] = latency
	}

	return s
}

// Reset clears all VC states to idle, drops buffered flits, and refills
// every credit counter. It is a hard discontinuity, not a drain.
func (c *Comp) Reset() {
	for d := routing.Direction(0); d < routing.NumDirections; d++ {
		for _, u := range c.inputs[d] {
			u.reset()
		}

		c.outputs[d].reset()
		c.grantCounts[d] = 0
	}

	for vc := range c.pendingInjection {
		c.pendingInjection[vc] = nil
	}

	c.assembler = messaging.NewAssembler()
	c.packetLatencies = make(map[string]uint64)
	c.numInjected = 0
	c.numDelivered = 0
	c.lastReport = CycleReport{}
}
