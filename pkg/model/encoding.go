package model

import (
	"errors"
	"fmt"
)

// Enum parsing errors.
var (
	ErrUnknownEncoding = errors.New("unknown encoding")
	ErrUnknownEndian   = errors.New("unknown endian")
	ErrUnknownAccess   = errors.New("unknown access")
)

// Encoding is the wire representation of a datum value.
type Encoding uint8

const (
	EncodingUint8 Encoding = iota
	EncodingUint16
	EncodingUint32
	EncodingInt8
	EncodingInt16
	EncodingInt32
	EncodingBool
	EncodingString
)

var encodingNames = [...]string{
	EncodingUint8:  "Unsigned Integer 8",
	EncodingUint16: "Unsigned Integer 16",
	EncodingUint32: "Unsigned Integer 32",
	EncodingInt8:   "Integer 8",
	EncodingInt16:  "Integer 16",
	EncodingInt32:  "Integer 32",
	EncodingBool:   "Boolean",
	EncodingString: "String",
}

// Encodings lists all encodings in declaration order.
func Encodings() []Encoding {
	return []Encoding{
		EncodingUint8, EncodingUint16, EncodingUint32,
		EncodingInt8, EncodingInt16, EncodingInt32,
		EncodingBool, EncodingString,
	}
}

// String returns the interchange name of the encoding.
func (e Encoding) String() string {
	if e.Valid() {
		return encodingNames[e]
	}
	return "unknown"
}

// Valid reports whether e is one of the declared encodings.
func (e Encoding) Valid() bool {
	return int(e) < len(encodingNames)
}

// IsNumeric returns true for the six integer encodings.
func (e Encoding) IsNumeric() bool {
	return e <= EncodingInt32
}

// IsSigned returns true for the signed integer encodings.
func (e Encoding) IsSigned() bool {
	return e >= EncodingInt8 && e <= EncodingInt32
}

// Width returns the fixed wire width in bytes.
// String has no fixed width and returns 0.
func (e Encoding) Width() int {
	switch e {
	case EncodingUint8, EncodingInt8, EncodingBool:
		return 1
	case EncodingUint16, EncodingInt16:
		return 2
	case EncodingUint32, EncodingInt32:
		return 4
	default:
		return 0
	}
}

// ParseEncoding parses an interchange encoding name.
func ParseEncoding(s string) (Encoding, error) {
	for i, name := range encodingNames {
		if name == s {
			return Encoding(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
}

// MarshalText implements encoding.TextMarshaler.
func (e Encoding) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEncoding, e)
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encoding) UnmarshalText(text []byte) error {
	v, err := ParseEncoding(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Endian is the byte order of multi-byte integer encodings.
type Endian uint8

const (
	EndianLittle Endian = iota
	EndianBig
)

// String returns the interchange name of the byte order.
func (e Endian) String() string {
	switch e {
	case EndianLittle:
		return "Little"
	case EndianBig:
		return "Big"
	default:
		return "unknown"
	}
}

// ParseEndian parses "Little" or "Big".
func ParseEndian(s string) (Endian, error) {
	switch s {
	case "Little":
		return EndianLittle, nil
	case "Big":
		return EndianBig, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEndian, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Endian) MarshalText() ([]byte, error) {
	if e > EndianBig {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEndian, e)
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Endian) UnmarshalText(text []byte) error {
	v, err := ParseEndian(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Access governs whether a datum may be read back or written.
type Access uint8

const (
	AccessReadWrite Access = iota
	AccessReadOnly
	AccessWriteOnly
)

// CanRead returns true unless the datum is write-only.
func (a Access) CanRead() bool { return a != AccessWriteOnly }

// CanWrite returns true unless the datum is read-only.
func (a Access) CanWrite() bool { return a != AccessReadOnly }

// String returns the interchange name of the access mode.
func (a Access) String() string {
	switch a {
	case AccessReadWrite:
		return "Read/Write"
	case AccessReadOnly:
		return "Read"
	case AccessWriteOnly:
		return "Write"
	default:
		return "unknown"
	}
}

// ParseAccess parses "Read", "Write" or "Read/Write".
func ParseAccess(s string) (Access, error) {
	switch s {
	case "Read/Write":
		return AccessReadWrite, nil
	case "Read":
		return AccessReadOnly, nil
	case "Write":
		return AccessWriteOnly, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAccess, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Access) MarshalText() ([]byte, error) {
	if a > AccessWriteOnly {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAccess, a)
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Access) UnmarshalText(text []byte) error {
	v, err := ParseAccess(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
