package sim

// A Connection is a physical interconnect that moves messages from port to
// port.
type Connection interface {
	Named
	Hookable

	// PlugIn connects a port to the connection.
	PlugIn(port Port)

	// Unplug removes the association of a port and the connection.
	Unplug(port Port)

	// NotifyAvailable is called by a port to notify the connection that the
	// port can receive messages again.
	NotifyAvailable(port Port)

	// NotifySend is called by a port to notify the connection that there are
	// messages waiting to be sent.
	NotifySend()
}
