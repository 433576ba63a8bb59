// Package acceptance provides a traffic harness for exercising whole
// meshes.
package acceptance

import (
	"github.com/sarchlab/wormhole/noc/messaging"
	"github.com/sarchlab/wormhole/noc/networking/routing"
	"github.com/sarchlab/wormhole/sim"
)

// Agent is the device attached to one mesh tile. It injects the packets
// queued on it and records the packets delivered to it.
type Agent struct {
	*sim.TickingComponent

	test  *Test
	coord routing.Coord

	AgentPort     sim.Port
	PacketsToSend []*messaging.Packet
	routerDst     sim.RemotePort
}

// NewAgent creates a new agent.
func NewAgent(
	engine sim.Engine,
	freq sim.Freq,
	name string,
	coord routing.Coord,
	test *Test,
) *Agent {
	a := &Agent{}
	a.test = test
	a.coord = coord
	a.TickingComponent = sim.NewTickingComponent(name, engine, freq, a)

	a.AgentPort = sim.NewPort(a, 4, 4, name+".Port")
	a.AddPort("Port", a.AgentPort)

	return a
}

// Coord returns the mesh coordinate the agent sits at.
func (a *Agent) Coord() routing.Coord {
	return a.coord
}

// SetRouterDst tells the agent which router port to send packets to.
func (a *Agent) SetRouterDst(dst sim.RemotePort) {
	a.routerDst = dst
}

// Tick tries to send pending packets out and to receive delivered packets.
func (a *Agent) Tick() bool {
	madeProgress := false
	madeProgress = a.send() || madeProgress
	madeProgress = a.recv() || madeProgress

	return madeProgress
}

func (a *Agent) send() bool {
	if len(a.PacketsToSend) == 0 {
		return false
	}

	msg := messaging.PacketMsgBuilder{}.
		WithSrc(a.AgentPort.AsRemote()).
		WithDst(a.routerDst).
		WithPacket(a.PacketsToSend[0]).
		Build()

	err := a.AgentPort.Send(msg)
	if err != nil {
		return false
	}

	a.PacketsToSend = a.PacketsToSend[1:]

	return true
}

func (a *Agent) recv() bool {
	madeProgress := false

	for {
		msg := a.AgentPort.RetrieveIncoming()
		if msg == nil {
			break
		}

		pktMsg := msg.(*messaging.PacketMsg)
		a.test.receivePacket(pktMsg.Packet, a)

		madeProgress = true
	}

	return madeProgress
}
