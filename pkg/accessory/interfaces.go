package accessory

import "github.com/gizmo-config/gizmo-go/pkg/model"

// Transport is the outbound side of the link. Calls request an action and
// return without waiting for it; outcomes arrive through EventSink.
type Transport interface {
	// Connect requests a connection to the peripheral.
	Connect(instanceID string) error

	// Disconnect requests the connection to be closed.
	Disconnect(instanceID string) error

	// Write sends a raw parameter value.
	Write(instanceID, wireID string, data []byte) error

	// SetDiscoveryFilter restarts discovery scoped to the capability ids.
	SetDiscoveryFilter(capabilityIDs []string) error
}

// EventSink is the inbound side of the link. Calls for one instance must
// be delivered in the order the transport observed them.
type EventSink interface {
	HandleDiscovered(instanceID, name string, capabilityIDs []string)
	HandleConnected(instanceID string)
	HandleDisconnected(instanceID string)
	HandleValueRead(instanceID, wireID string, data []byte)
	HandleWriteResult(instanceID, wireID string, err error)
}

// SchemaSource resolves schema IDs. It is satisfied by
// *directory.Directory.
type SchemaSource interface {
	Device(id string) (*model.Device, bool)
}
