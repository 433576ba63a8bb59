package router

import (
	"fmt"

	"github.com/sarchlab/wormhole/noc/messaging"
	"github.com/sarchlab/wormhole/noc/networking/credit"
	"github.com/sarchlab/wormhole/noc/networking/routing"
	"github.com/sarchlab/wormhole/sim"
)

// Builder can build routers. All the configuration is fixed at construction
// time; routers are immutable in shape afterwards.
type Builder struct {
	engine                sim.Engine
	freq                  sim.Freq
	coord                 routing.Coord
	meshWidth, meshHeight int
	numVCs                int
	bufferDepth           int
	flitPayloadBytes      int
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:             1 * sim.GHz,
		meshWidth:        1,
		meshHeight:       1,
		numVCs:           2,
		bufferDepth:      4,
		flitPayloadBytes: 32,
	}
}

// WithEngine sets the engine that the router to build uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency that the router to build works at.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithCoord sets the position of the router in the mesh.
func (b Builder) WithCoord(c routing.Coord) Builder {
	b.coord = c
	return b
}

// WithMeshSize sets the dimensions of the mesh the router belongs to.
func (b Builder) WithMeshSize(width, height int) Builder {
	b.meshWidth = width
	b.meshHeight = height
	return b
}

// WithNumVCs sets the number of virtual channels per physical port.
func (b Builder) WithNumVCs(n int) Builder {
	b.numVCs = n
	return b
}

// WithBufferDepth sets the per-VC input buffer depth in flits.
func (b Builder) WithBufferDepth(n int) Builder {
	b.bufferDepth = n
	return b
}

// WithFlitPayloadBytes sets how many payload bytes one flit carries.
func (b Builder) WithFlitPayloadBytes(n int) Builder {
	b.flitPayloadBytes = n
	return b
}

// Build creates a new router.
func (b Builder) Build(name string) *Comp {
	b.engineMustBeGiven()
	b.freqMustNotBeZero()
	b.meshMustBeValid()
	b.vcConfigMustBeValid()

	c := &Comp{
		coord:            b.coord,
		meshWidth:        b.meshWidth,
		meshHeight:       b.meshHeight,
		numVCs:           b.numVCs,
		bufferDepth:      b.bufferDepth,
		flitPayloadBytes: b.flitPayloadBytes,
		table:            routing.NewXYTable(b.coord),
		assembler:        messaging.NewAssembler(),
		packetLatencies:  make(map[string]uint64),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	numInputSlots := int(routing.NumDirections) * b.numVCs
	for d := routing.Direction(0); d < routing.NumDirections; d++ {
		c.inputs[d] = make([]*inputUnit, b.numVCs)
		for vc := 0; vc < b.numVCs; vc++ {
			unitName := fmt.Sprintf("%s.Input[%s][%d]", name, d, vc)
			c.inputs[d][vc] = newInputUnit(unitName, b.bufferDepth)
		}

		c.outputs[d] = newOutputUnit(d, b.numVCs, numInputSlots)
	}

	// The ejection path at the local port has its own buffer mirror so that
	// switch allocation treats all output ports uniformly.
	c.outputs[routing.Local].credits = credit.NewTracker(
		name+".EjectCredits", b.numVCs, b.bufferDepth)

	c.pendingInjection = make([][]*messaging.Flit, b.numVCs)

	c.localPort = sim.NewPort(c, b.bufferDepth, b.bufferDepth,
		name+".LocalPort")
	c.AddPort("Local", c.localPort)

	return c
}

func (b Builder) engineMustBeGiven() {
	if b.engine == nil {
		panic("router requires an engine to operate")
	}
}

func (b Builder) freqMustNotBeZero() {
	if b.freq == 0 {
		panic("router frequency cannot be 0")
	}
}

func (b Builder) meshMustBeValid() {
	if b.meshWidth < 1 || b.meshHeight < 1 {
		panic("mesh dimensions must be at least 1x1")
	}

	if b.coord.X < 0 || b.coord.X >= b.meshWidth ||
		b.coord.Y < 0 || b.coord.Y >= b.meshHeight {
		panic("router coordinate is outside the mesh")
	}
}

func (b Builder) vcConfigMustBeValid() {
	if b.numVCs < 1 {
		panic("router requires at least one virtual channel per port")
	}

	if b.bufferDepth < 1 {
		panic("router requires a positive per-VC buffer depth")
	}

	if b.flitPayloadBytes < 1 {
		panic("router requires a positive flit payload size")
	}
}
