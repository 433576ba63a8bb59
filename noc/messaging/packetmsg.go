package messaging

import "github.com/sarchlab/wormhole/sim"

// PacketMsg carries a packet over a port, either from a device into its
// router for injection, or from a router to the device it serves after
// reassembly.
type PacketMsg struct {
	sim.MsgMeta

	Packet *Packet
}

// Meta returns the meta data of the message.
func (m *PacketMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a cloned PacketMsg with a different ID.
func (m *PacketMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// PacketMsgBuilder can build packet messages.
type PacketMsgBuilder struct {
	src, dst sim.RemotePort
	packet   *Packet
}

// WithSrc sets the source port of the message to build.
func (b PacketMsgBuilder) WithSrc(src sim.RemotePort) PacketMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination port of the message to build.
func (b PacketMsgBuilder) WithDst(dst sim.RemotePort) PacketMsgBuilder {
	b.dst = dst
	return b
}

// WithPacket sets the packet the message carries.
func (b PacketMsgBuilder) WithPacket(p *Packet) PacketMsgBuilder {
	b.packet = p
	return b
}

// Build creates a new PacketMsg.
func (b PacketMsgBuilder) Build() *PacketMsg {
	m := &PacketMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.Packet = b.packet
	m.TrafficClass = "messaging.PacketMsg"
	m.TrafficBytes = len(b.packet.Payload)

	return m
}
