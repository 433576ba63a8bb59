package messaging

import (
	"errors"
	"fmt"

	"github.com/sarchlab/wormhole/noc/networking/routing"
	"github.com/sarchlab/wormhole/sim"
)

// ErrMalformedPacket is returned when a flit sequence violates the
// head-body-tail protocol.
var ErrMalformedPacket = errors.New("malformed packet")

// A Packet is a unit of data injected into the network. It is carried across
// the network as a sequence of flits.
type Packet struct {
	ID       string
	Src, Dst routing.Coord
	Payload  []byte

	// InjectCycle is stamped by the source router when the packet enters
	// the network. The destination router uses it to compute the packet's
	// latency.
	InjectCycle uint64
}

// NewPacket creates a packet with a generated ID.
func NewPacket(src, dst routing.Coord, payload []byte) *Packet {
	return &Packet{
		ID:      sim.GetIDGenerator().Generate(),
		Src:     src,
		Dst:     dst,
		Payload: payload,
	}
}

// Split decomposes a packet into flits. Each flit carries at most
// flitPayloadBytes bytes of the payload. The flits are returned in wire
// order: head, bodies, tail. A packet whose payload fits in one flit produces
// a single head-tail flit.
func Split(p *Packet, flitPayloadBytes int) []*Flit {
	if flitPayloadBytes <= 0 {
		panic("flit payload size must be positive")
	}

	numFlit := (len(p.Payload)-1)/flitPayloadBytes + 1
	if len(p.Payload) == 0 {
		numFlit = 1
	}

	flits := make([]*Flit, numFlit)
	for i := 0; i < numFlit; i++ {
		start := i * flitPayloadBytes
		end := start + flitPayloadBytes
		if end > len(p.Payload) {
			end = len(p.Payload)
		}

		flits[i] = FlitBuilder{}.
			WithKind(flitKindAt(i, numFlit)).
			WithPacket(p).
			WithSeqID(i).
			WithNumFlitInPacket(numFlit).
			WithPayload(p.Payload[start:end]).
			Build()
	}

	return flits
}

func flitKindAt(i, numFlit int) FlitKind {
	switch {
	case numFlit == 1:
		return FlitHeadTail
	case i == 0:
		return FlitHead
	case i == numFlit-1:
		return FlitTail
	default:
		return FlitBody
	}
}

// An Assembler rebuilds packets from the flits that arrive at a node. Flits
// of one packet must arrive in order, but flits of different packets may
// interleave when they travel on different virtual channels.
type Assembler struct {
	inFlight map[string]*assemblingPacket
}

type assemblingPacket struct {
	packet      *Packet
	nextSeqID   int
	numFlit     int
	tailArrived bool
}

// NewAssembler creates an Assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		inFlight: make(map[string]*assemblingPacket),
	}
}

// Accept consumes one arriving flit. When the flit completes its packet, the
// packet is returned. Out-of-protocol sequences are rejected with
// ErrMalformedPacket.
func (a *Assembler) Accept(f *Flit) (*Packet, error) {
	ap, started := a.inFlight[f.PacketID]

	if f.Kind.IsHead() {
		if started {
			return nil, fmt.Errorf(
				"%w: second head for packet %s without tail",
				ErrMalformedPacket, f.PacketID)
		}

		ap = &assemblingPacket{
			packet:  f.Packet,
			numFlit: f.NumFlitInPacket,
		}
		a.inFlight[f.PacketID] = ap
	} else if !started {
		return nil, fmt.Errorf(
			"%w: %s flit for packet %s without preceding head",
			ErrMalformedPacket, f.Kind, f.PacketID)
	}

	if f.SeqID != ap.nextSeqID {
		return nil, fmt.Errorf(
			"%w: packet %s expects flit %d, got %d",
			ErrMalformedPacket, f.PacketID, ap.nextSeqID, f.SeqID)
	}
	ap.nextSeqID++

	if !f.Kind.IsTail() {
		return nil, nil
	}

	if ap.nextSeqID != ap.numFlit {
		return nil, fmt.Errorf(
			"%w: packet %s tail arrived after %d of %d flits",
			ErrMalformedPacket, f.PacketID, ap.nextSeqID, ap.numFlit)
	}

	delete(a.inFlight, f.PacketID)

	return ap.packet, nil
}

// Reassemble rebuilds a single packet from a complete flit sequence.
func Reassemble(flits []*Flit) (*Packet, error) {
	a := NewAssembler()

	var packet *Packet
	for _, f := range flits {
		p, err := a.Accept(f)
		if err != nil {
			return nil, err
		}
		if p != nil {
			packet = p
		}
	}

	if packet == nil {
		return nil, fmt.Errorf("%w: flit sequence has no tail",
			ErrMalformedPacket)
	}

	return packet, nil
}
