package transport

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Message errors.
var (
	ErrInvalidOp     = errors.New("invalid operation")
	ErrMissingWireID = errors.New("missing wire id")
	ErrWriteRejected = errors.New("write rejected by peripheral")
	ErrReadRejected  = errors.New("read rejected by peripheral")
	ErrMalformed     = errors.New("malformed message")
)

// Op identifies a link message.
type Op uint8

const (
	// OpList asks the peripheral for its readable characteristics.
	OpList Op = iota + 1

	// OpListResponse carries the readable wire ids.
	OpListResponse

	// OpRead asks for the current value of one characteristic.
	OpRead

	// OpValue carries a characteristic value, either as a read reply or
	// as an unsolicited notification.
	OpValue

	// OpWrite replaces a characteristic value.
	OpWrite

	// OpWriteAck reports the outcome of a write.
	OpWriteAck
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpList:
		return "LIST"
	case OpListResponse:
		return "LIST_RESPONSE"
	case OpRead:
		return "READ"
	case OpValue:
		return "VALUE"
	case OpWrite:
		return "WRITE"
	case OpWriteAck:
		return "WRITE_ACK"
	default:
		return fmt.Sprintf("OP(%d)", uint8(o))
	}
}

// IsValid returns true for the declared operations.
func (o Op) IsValid() bool {
	return o >= OpList && o <= OpWriteAck
}

// Status is the result code carried by OpValue and OpWriteAck.
type Status uint8

const (
	StatusOK Status = iota
	StatusUnknownCharacteristic
	StatusNotReadable
	StatusNotWritable
	StatusInvalidValue
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusUnknownCharacteristic:
		return "UNKNOWN_CHARACTERISTIC"
	case StatusNotReadable:
		return "NOT_READABLE"
	case StatusNotWritable:
		return "NOT_WRITABLE"
	case StatusInvalidValue:
		return "INVALID_VALUE"
	default:
		return fmt.Sprintf("STATUS(%d)", uint8(s))
	}
}

// Message is the single CBOR frame payload exchanged on the link.
//
// CBOR encoding:
//
//	{
//	  1: op,       // uint8
//	  2: wireId,   // string, required except for LIST and LIST_RESPONSE
//	  3: data,     // bytes
//	  4: status,   // uint8, 0 = OK
//	  5: wireIds   // [string], LIST_RESPONSE only
//	}
type Message struct {
	Op      Op       `cbor:"1,keyasint"`
	WireID  string   `cbor:"2,keyasint,omitempty"`
	Data    []byte   `cbor:"3,keyasint,omitempty"`
	Status  Status   `cbor:"4,keyasint,omitempty"`
	WireIDs []string `cbor:"5,keyasint,omitempty"`
}

// Validate checks the operation and the presence of the wire id.
func (m *Message) Validate() error {
	if !m.Op.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidOp, m.Op)
	}
	switch m.Op {
	case OpRead, OpValue, OpWrite, OpWriteAck:
		if m.WireID == "" {
			return fmt.Errorf("%w: %s", ErrMissingWireID, m.Op)
		}
	}
	return nil
}

// Err converts a non-OK status into an error.
func (m *Message) Err() error {
	if m.Status == StatusOK {
		return nil
	}
	base := ErrWriteRejected
	if m.Op == OpValue {
		base = ErrReadRejected
	}
	return fmt.Errorf("%w: %s %s", base, m.WireID, m.Status)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient for forward compatibility.
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// EncodeMessage validates and encodes a message.
func EncodeMessage(m *Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return encMode.Marshal(m)
}

// DecodeMessage decodes and validates a message.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := decMode.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &m, nil
}
