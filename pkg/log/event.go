package log

import (
	"time"
)

// FileExtension is the conventional extension of protocol log files.
const FileExtension = ".glog"

// Event is a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the link session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole indicates whether the local side is the central or the peripheral.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// InstanceID is the transport-assigned peripheral instance id.
	InstanceID string `cbor:"8,keyasint,omitempty"`

	// SchemaID is the matched device schema, if any.
	SchemaID string `cbor:"9,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Value       *ValueEvent       `cbor:"13,keyasint,omitempty"`
	Write       *WriteEvent       `cbor:"14,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"15,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the link layer (frames and link messages).
	LayerTransport Layer = 0
	// LayerCodec is the parameter value layer.
	LayerCodec Layer = 1
	// LayerSession is the accessory state machine.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerCodec:
		return "CODEC"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryWrite   Category = 2
	CategoryError   Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryWrite:
		return "WRITE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates which side of the link logged the event.
type Role uint8

const (
	RoleCentral    Role = 0
	RolePeripheral Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleCentral:
		return "CENTRAL"
	case RolePeripheral:
		return "PERIPHERAL"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded link message.
type MessageEvent struct {
	// Op is the link operation name (e.g. "READ", "WRITE_ACK").
	Op string `cbor:"1,keyasint"`

	// WireID is the parameter the message refers to, if any.
	WireID string `cbor:"2,keyasint,omitempty"`

	// Status is the result code of responses.
	Status *uint8 `cbor:"3,keyasint,omitempty"`

	// Size is the payload size in bytes.
	Size int `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures accessory and link lifecycle events.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	StateEntityLink      StateEntity = 0
	StateEntityAccessory StateEntity = 1
	StateEntityDiscovery StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLink:
		return "LINK"
	case StateEntityAccessory:
		return "ACCESSORY"
	case StateEntityDiscovery:
		return "DISCOVERY"
	default:
		return "UNKNOWN"
	}
}

// ValueEvent captures a parameter value as received from the peripheral.
type ValueEvent struct {
	// WireID is the parameter identifier.
	WireID string `cbor:"1,keyasint"`

	// Data is the raw value bytes.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Decoded is the display form of the decoded value, if the
	// parameter is known.
	Decoded string `cbor:"3,keyasint,omitempty"`
}

// WriteEvent captures a parameter write and its outcome.
type WriteEvent struct {
	WireID string `cbor:"1,keyasint"`
	Data   []byte `cbor:"2,keyasint,omitempty"`

	// Acked is set on write result events.
	Acked *bool `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the error code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
