package router

import (
	"github.com/sarchlab/wormhole/noc/messaging"
	"github.com/sarchlab/wormhole/noc/networking/routing"
)

// A CycleReport summarizes what one router did in one cycle.
type CycleReport struct {
	Cycle uint64

	// DeliveredFlits are the flits that traversed the switch to the local
	// port this cycle.
	DeliveredFlits []*messaging.Flit

	// DeliveredPackets are the packets completed at this node this cycle.
	DeliveredPackets []*messaging.Packet

	// CreditsReleased counts the credits returned to each upstream neighbor
	// this cycle, keyed by the input direction the flits arrived on.
	CreditsReleased map[routing.Direction]int
}

// VCStatus is a read-only snapshot of one input virtual channel.
type VCStatus struct {
	Port      routing.Direction
	VC        int
	State     VCState
	Occupancy int
}

// Stats is a read-only snapshot of the counters a router accumulates. None
// of the queries that produce it mutate the router.
type Stats struct {
	// GrantCounts counts switch-allocation grants per output port.
	GrantCounts map[routing.Direction]uint64

	// PacketLatencies maps the ID of every packet delivered at this node to
	// its latency in cycles, from injection at the source to local delivery
	// here.
	PacketLatencies map[string]uint64

	NumPacketsInjected  uint64
	NumPacketsDelivered uint64
}
