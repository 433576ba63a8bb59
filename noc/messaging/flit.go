// Package messaging defines the data units that are transferred through the
// network.
package messaging

import (
	"fmt"

	"github.com/sarchlab/wormhole/noc/networking/routing"
	"github.com/sarchlab/wormhole/sim"
)

// FlitKind marks the position of a flit within its packet.
type FlitKind int

// A packet is decomposed into one head flit, zero or more body flits, and one
// tail flit. A packet that fits in a single flit uses a head-tail flit.
const (
	FlitHead FlitKind = iota
	FlitBody
	FlitTail
	FlitHeadTail
)

// String returns the name of the flit kind.
func (k FlitKind) String() string {
	switch k {
	case FlitHead:
		return "Head"
	case FlitBody:
		return "Body"
	case FlitTail:
		return "Tail"
	case FlitHeadTail:
		return "HeadTail"
	default:
		return fmt.Sprintf("FlitKind(%d)", int(k))
	}
}

// IsHead returns true if the flit opens a packet.
func (k FlitKind) IsHead() bool {
	return k == FlitHead || k == FlitHeadTail
}

// IsTail returns true if the flit closes a packet.
func (k FlitKind) IsTail() bool {
	return k == FlitTail || k == FlitHeadTail
}

// Flit is the smallest transferring unit on a network. One flit crosses one
// hop per cycle.
type Flit struct {
	sim.MsgMeta

	Kind            FlitKind
	PacketID        string
	SeqID           int
	NumFlitInPacket int
	PktDst          routing.Coord
	Payload         []byte
	Packet          *Packet

	// VCID is the output virtual channel the flit travels on. It is assigned
	// by the VC allocator of the upstream router before the flit crosses a
	// link.
	VCID int
}

// Meta returns the meta data associated with the Flit.
func (f *Flit) Meta() *sim.MsgMeta {
	return &f.MsgMeta
}

// Clone returns a cloned Flit with a different ID.
func (f *Flit) Clone() sim.Msg {
	cloneMsg := *f
	cloneMsg.ID = fmt.Sprintf("flit-%d-pkt-%s-%s",
		cloneMsg.SeqID, cloneMsg.PacketID,
		sim.GetIDGenerator().Generate())

	return &cloneMsg
}

// FlitBuilder can build flits.
type FlitBuilder struct {
	kind            FlitKind
	packet          *Packet
	seqID           int
	numFlitInPacket int
	payload         []byte
}

// WithKind sets the kind of the flit to build.
func (b FlitBuilder) WithKind(kind FlitKind) FlitBuilder {
	b.kind = kind
	return b
}

// WithPacket sets the packet that the flit belongs to.
func (b FlitBuilder) WithPacket(p *Packet) FlitBuilder {
	b.packet = p
	return b
}

// WithSeqID sets the sequence number of the flit within its packet.
func (b FlitBuilder) WithSeqID(i int) FlitBuilder {
	b.seqID = i
	return b
}

// WithNumFlitInPacket sets the total number of flits of the packet.
func (b FlitBuilder) WithNumFlitInPacket(n int) FlitBuilder {
	b.numFlitInPacket = n
	return b
}

// WithPayload sets the payload bytes carried by the flit.
func (b FlitBuilder) WithPayload(payload []byte) FlitBuilder {
	b.payload = payload
	return b
}

// Build creates a new flit.
func (b FlitBuilder) Build() *Flit {
	f := &Flit{}
	f.ID = fmt.Sprintf("flit-%d-pkt-%s-%s",
		b.seqID, b.packet.ID,
		sim.GetIDGenerator().Generate())
	f.Kind = b.kind
	f.PacketID = b.packet.ID
	f.SeqID = b.seqID
	f.NumFlitInPacket = b.numFlitInPacket
	f.PktDst = b.packet.Dst
	f.Payload = b.payload
	f.Packet = b.packet
	f.VCID = -1
	f.TrafficClass = "messaging.Flit"
	f.TrafficBytes = len(b.payload)

	return f
}
