package acceptance

import (
	"bytes"
	"fmt"
	"log"
	"math/rand"

	"github.com/sarchlab/wormhole/noc/messaging"
)

// Test is a traffic test case. It tracks every generated packet and asserts
// that each one is delivered at its destination exactly once, with its
// payload intact.
type Test struct {
	agents          []*Agent
	packets         []*messaging.Packet
	receivedPackets []*messaging.Packet
	receivedTable   map[string]bool
	payloads        map[string][]byte
}

// NewTest creates a new test.
func NewTest() *Test {
	return &Test{
		receivedTable: make(map[string]bool),
		payloads:      make(map[string][]byte),
	}
}

// RegisterAgent adds an agent to the Test.
func (t *Test) RegisterAgent(agent *Agent) {
	t.agents = append(t.agents, agent)
}

// GenerateMsgs queues n packets, each from a random source agent to a
// different random destination agent, with random payload sizes.
func (t *Test) GenerateMsgs(n uint64, rng *rand.Rand) {
	for i := uint64(0); i < n; i++ {
		srcAgent := t.agents[rng.Intn(len(t.agents))]

		dstAgent := t.agents[rng.Intn(len(t.agents))]
		for dstAgent == srcAgent {
			dstAgent = t.agents[rng.Intn(len(t.agents))]
		}

		payload := make([]byte, 1+rng.Intn(256))
		rng.Read(payload)

		t.queuePacket(srcAgent, dstAgent, payload)
	}
}

// GenerateAllToAll queues packets from every agent to every other agent.
func (t *Test) GenerateAllToAll(payloadBytes int) {
	payload := make([]byte, payloadBytes)

	for _, src := range t.agents {
		for _, dst := range t.agents {
			if src == dst {
				continue
			}

			t.queuePacket(src, dst, payload)
		}
	}
}

func (t *Test) queuePacket(src, dst *Agent, payload []byte) {
	pkt := messaging.NewPacket(src.Coord(), dst.Coord(), payload)

	src.PacketsToSend = append(src.PacketsToSend, pkt)
	t.packets = append(t.packets, pkt)
	t.payloads[pkt.ID] = append([]byte(nil), payload...)
}

// receivePacket marks that a packet is received.
func (t *Test) receivePacket(pkt *messaging.Packet, agent *Agent) {
	t.packetMustBeAtItsDestination(pkt, agent)
	t.packetMustNotBeReceivedBefore(pkt)
	t.payloadMustBeIntact(pkt)

	t.receivedPackets = append(t.receivedPackets, pkt)
}

func (t *Test) packetMustBeAtItsDestination(
	pkt *messaging.Packet,
	agent *Agent,
) {
	if pkt.Dst != agent.Coord() {
		panic(fmt.Sprintf("packet %s for %s delivered at %s",
			pkt.ID, pkt.Dst, agent.Coord()))
	}
}

func (t *Test) packetMustNotBeReceivedBefore(pkt *messaging.Packet) {
	if t.receivedTable[pkt.ID] {
		panic("packet is double delivered")
	}

	t.receivedTable[pkt.ID] = true
}

func (t *Test) payloadMustBeIntact(pkt *messaging.Packet) {
	if !bytes.Equal(t.payloads[pkt.ID], pkt.Payload) {
		panic(fmt.Sprintf("packet %s payload corrupted", pkt.ID))
	}
}

// NumReceived returns the number of packets received so far.
func (t *Test) NumReceived() int {
	return len(t.receivedPackets)
}

// MustHaveReceivedAllMsgs asserts that all the packets sent are received.
func (t *Test) MustHaveReceivedAllMsgs() {
	if len(t.packets) == len(t.receivedPackets) {
		return
	}

	for _, pkt := range t.packets {
		if !t.receivedTable[pkt.ID] {
			log.Printf("packet %s expected, but not received\n", pkt.ID)
		}
	}

	panic("some packets are not delivered")
}
