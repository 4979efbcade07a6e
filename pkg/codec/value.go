package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gizmo-config/gizmo-go/pkg/model"
)

// ErrParseValue is returned when text cannot be parsed as a value of the
// requested encoding.
var ErrParseValue = errors.New("cannot parse value")

// Kind is the logical representation of a decoded value.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt
	KindString
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// KindOf returns the logical kind for an encoding.
func KindOf(enc model.Encoding) Kind {
	switch enc {
	case model.EncodingBool:
		return KindBool
	case model.EncodingString:
		return KindString
	default:
		return KindInt
	}
}

// Value is a decoded parameter value. Exactly one of the payload fields
// is meaningful, selected by the kind.
type Value struct {
	kind Kind
	b    bool
	i    int64
	s    string
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Zero returns the zero value for an encoding: false, 0 or "".
func Zero(enc model.Encoding) Value {
	return Value{kind: KindOf(enc)}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the boolean payload and whether v is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer payload and whether v is an int.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	default:
		return v.s == other.s
	}
}

// String formats the payload for display.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	default:
		return v.s
	}
}

// Parse reads a value for enc from user input. Booleans accept
// true/false, on/off, yes/no and 1/0.
func Parse(enc model.Encoding, text string) (Value, error) {
	switch KindOf(enc) {
	case KindBool:
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "true", "on", "yes", "1":
			return Bool(true), nil
		case "false", "off", "no", "0":
			return Bool(false), nil
		}
		return Value{}, fmt.Errorf("%w: %q is not a boolean", ErrParseValue, text)
	case KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(text), 0, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not an integer", ErrParseValue, text)
		}
		return Int(i), nil
	default:
		return String(text), nil
	}
}
