package sim

// DirectConnection connects components without latency.
type DirectConnection struct {
	*TickingComponent

	ports      []Port
	portMap    map[RemotePort]Port
	nextPortID int
}

// NewDirectConnection creates a new DirectConnection.
func NewDirectConnection(
	name string,
	engine Engine,
	freq Freq,
) *DirectConnection {
	c := new(DirectConnection)
	c.TickingComponent = NewSecondaryTickingComponent(name, engine, freq, c)
	c.portMap = make(map[RemotePort]Port)

	return c
}

// PlugIn marks the port as connected to this DirectConnection.
func (c *DirectConnection) PlugIn(port Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	c.portMap[port.AsRemote()] = port

	port.SetConnection(c)
}

// Unplug marks the port as no longer connected to this DirectConnection.
func (c *DirectConnection) Unplug(_ Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to notify that the connection can
// deliver to the port again.
func (c *DirectConnection) NotifyAvailable(p Port) {
	for _, port := range c.ports {
		if port == p {
			continue
		}

		port.NotifyAvailable()
	}

	c.TickNow()
}

// NotifySend is called by a port to notify that the connection can start to
// tick now.
func (c *DirectConnection) NotifySend() {
	c.TickNow()
}

// Tick updates the states of the connection and delivers messages.
func (c *DirectConnection) Tick() bool {
	madeProgress := false

	for i := 0; i < len(c.ports); i++ {
		portID := (i + c.nextPortID) % len(c.ports)
		port := c.ports[portID]
		madeProgress = c.forwardMany(port) || madeProgress
	}

	c.nextPortID = (c.nextPortID + 1) % len(c.ports)

	return madeProgress
}

func (c *DirectConnection) forwardMany(port Port) bool {
	madeProgress := false

	for {
		head := port.PeekOutgoing()
		if head == nil {
			break
		}

		dstPort, found := c.portMap[head.Meta().Dst]
		if !found {
			panic("destination port is not connected to the connection")
		}

		err := dstPort.Deliver(head)
		if err != nil {
			break
		}

		madeProgress = true

		port.RetrieveOutgoing()
	}

	return madeProgress
}
