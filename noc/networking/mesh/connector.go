// Package mesh assembles wormhole routers into a 2D mesh network.
package mesh

import (
	"fmt"

	"github.com/sarchlab/wormhole/noc/networking/routing"
	"github.com/sarchlab/wormhole/noc/networking/switching/router"
	"github.com/sarchlab/wormhole/sim"
)

// A Connector builds a mesh of routers and connects devices to them.
type Connector struct {
	engine           sim.Engine
	freq             sim.Freq
	numVCs           int
	bufferDepth      int
	flitPayloadBytes int

	name          string
	width, height int
	routers       map[routing.Coord]*router.Comp
	connections   []*sim.DirectConnection
}

// NewConnector creates a Connector with default parameters.
func NewConnector() *Connector {
	return &Connector{
		freq:             1 * sim.GHz,
		numVCs:           2,
		bufferDepth:      4,
		flitPayloadBytes: 32,
	}
}

// WithEngine sets the engine that the mesh to build uses.
func (c *Connector) WithEngine(engine sim.Engine) *Connector {
	c.engine = engine
	return c
}

// WithFreq sets the frequency of the routers in the mesh.
func (c *Connector) WithFreq(freq sim.Freq) *Connector {
	c.freq = freq
	return c
}

// WithNumVCs sets the number of virtual channels per port.
func (c *Connector) WithNumVCs(n int) *Connector {
	c.numVCs = n
	return c
}

// WithBufferDepth sets the per-VC buffer depth of every router.
func (c *Connector) WithBufferDepth(n int) *Connector {
	c.bufferDepth = n
	return c
}

// WithFlitPayloadBytes sets the payload bytes carried per flit.
func (c *Connector) WithFlitPayloadBytes(n int) *Connector {
	c.flitPayloadBytes = n
	return c
}

// CreateNetwork builds the routers of a width x height mesh and the links
// between them.
func (c *Connector) CreateNetwork(name string, width, height int) {
	if c.engine == nil {
		panic("mesh connector requires an engine")
	}
	if width < 1 || height < 1 {
		panic("mesh dimensions must be at least 1x1")
	}

	c.name = name
	c.width = width
	c.height = height
	c.routers = make(map[routing.Coord]*router.Comp)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			coord := routing.Coord{X: x, Y: y}
			r := router.MakeBuilder().
				WithEngine(c.engine).
				WithFreq(c.freq).
				WithCoord(coord).
				WithMeshSize(width, height).
				WithNumVCs(c.numVCs).
				WithBufferDepth(c.bufferDepth).
				WithFlitPayloadBytes(c.flitPayloadBytes).
				Build(fmt.Sprintf("%s.Router[%d][%d]", name, x, y))
			c.routers[coord] = r
		}
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width-1 {
				c.connectNeighbors(
					routing.Coord{X: x, Y: y},
					routing.Coord{X: x + 1, Y: y},
					routing.East,
				)
			}

			if y < height-1 {
				c.connectNeighbors(
					routing.Coord{X: x, Y: y},
					routing.Coord{X: x, Y: y + 1},
					routing.North,
				)
			}
		}
	}
}

// connectNeighbors creates the two directed links between routers a and b,
// where d is the direction from a to b.
func (c *Connector) connectNeighbors(
	a, b routing.Coord,
	d routing.Direction,
) {
	ra := c.routers[a]
	rb := c.routers[b]

	aToB := router.NewLink(
		fmt.Sprintf("%s.Link%s-%s", c.name, a, b),
		c.numVCs, c.bufferDepth)
	bToA := router.NewLink(
		fmt.Sprintf("%s.Link%s-%s", c.name, b, a),
		c.numVCs, c.bufferDepth)

	aToB.SetNotify(ra.TickLater, rb.TickLater)
	bToA.SetNotify(rb.TickLater, ra.TickLater)

	ra.ConnectLink(d, aToB, bToA)
	rb.ConnectLink(d.Opposite(), bToA, aToB)
}

// AddTile plugs a device port into the router at the given coordinate.
// Packets that the device sends to the router's local port are injected into
// the network; packets delivered at the coordinate are sent back to the
// device port.
func (c *Connector) AddTile(coord routing.Coord, devicePort sim.Port) {
	r := c.routerAt(coord)

	conn := sim.NewDirectConnection(
		fmt.Sprintf("%s.TileConn%s", c.name, coord),
		c.engine, c.freq)
	conn.PlugIn(r.LocalPort())
	conn.PlugIn(devicePort)

	r.SetDeviceDst(devicePort.AsRemote())

	c.connections = append(c.connections, conn)
}

// Router returns the router at the given coordinate.
func (c *Connector) Router(coord routing.Coord) *router.Comp {
	return c.routerAt(coord)
}

// Routers returns all the routers in row-major order.
func (c *Connector) Routers() []*router.Comp {
	list := make([]*router.Comp, 0, c.width*c.height)
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			list = append(list, c.routers[routing.Coord{X: x, Y: y}])
		}
	}

	return list
}

func (c *Connector) routerAt(coord routing.Coord) *router.Comp {
	r, found := c.routers[coord]
	if !found {
		panic(fmt.Sprintf("no router at %s", coord))
	}

	return r
}
