package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/gizmo-config/gizmo-go/pkg/model"
)

// ErrShortBuffer is returned when a non-empty buffer is narrower than the
// datum's encoding.
var ErrShortBuffer = errors.New("buffer shorter than encoding width")

// Decode converts raw bytes to a value. Empty buffers, write-only datums
// and short buffers all produce the encoding's zero value.
func Decode(d *model.Datum, b []byte) Value {
	v, err := DecodeChecked(d, b)
	if err != nil {
		return Zero(d.Encoding)
	}
	return v
}

// DecodeChecked is Decode with short buffers reported as ErrShortBuffer.
//
// Integers are read little-endian from the front of the buffer. A
// big-endian buffer is reversed as a whole first, so bytes beyond the
// encoding width are dropped from its front. For Boolean only the first
// byte is consulted and only 0x01 is true. Invalid UTF-8 decodes to "".
func DecodeChecked(d *model.Datum, b []byte) (Value, error) {
	if len(b) == 0 || !d.Access.CanRead() {
		return Zero(d.Encoding), nil
	}

	switch d.Encoding {
	case model.EncodingBool:
		return Bool(b[0] == 1), nil
	case model.EncodingString:
		if !utf8.Valid(b) {
			return String(""), nil
		}
		return String(string(b)), nil
	}

	if err := CheckWidth(d, b); err != nil {
		return Zero(d.Encoding), err
	}
	if d.Endian == model.EndianBig {
		b = reversed(b)
	}
	raw := readRaw(d.Encoding, b)
	return Int(raw*d.Scalar + d.Offset), nil
}

// CheckWidth returns ErrShortBuffer when b is non-empty but narrower than
// the datum's fixed encoding width.
func CheckWidth(d *model.Datum, b []byte) error {
	w := d.Encoding.Width()
	if len(b) == 0 || w == 0 || len(b) >= w {
		return nil
	}
	return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortBuffer, d.Encoding, w, len(b))
}

// Encode converts a value to raw bytes. It returns an empty buffer, meaning
// "do not write", for read-only datums, for a value whose kind does not
// match the encoding, and for integers that fall outside the encoding's
// range after the inverse transform.
//
// The inverse transform truncates toward zero, so a logical value that is
// not aligned to Scalar does not round-trip exactly.
func Encode(d *model.Datum, v Value) []byte {
	if !d.Access.CanWrite() || v.Kind() != KindOf(d.Encoding) {
		return nil
	}

	switch d.Encoding {
	case model.EncodingBool:
		if v.b {
			return []byte{1}
		}
		return []byte{0}
	case model.EncodingString:
		return []byte(v.s)
	}

	if d.Scalar == 0 {
		return nil
	}
	raw := (v.i - d.Offset) / d.Scalar
	lo, hi := rawRange(d.Encoding)
	if raw < lo || raw > hi {
		return nil
	}

	out := make([]byte, d.Encoding.Width())
	order := byteOrder(d.Endian)
	switch len(out) {
	case 1:
		out[0] = byte(raw)
	case 2:
		order.PutUint16(out, uint16(raw))
	case 4:
		order.PutUint32(out, uint32(raw))
	}
	return out
}

func byteOrder(e model.Endian) binary.ByteOrder {
	if e == model.EndianBig {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

// readRaw reads a little-endian integer from the front of b.
func readRaw(enc model.Encoding, b []byte) int64 {
	order := binary.LittleEndian
	switch enc {
	case model.EncodingUint8:
		return int64(b[0])
	case model.EncodingInt8:
		return int64(int8(b[0]))
	case model.EncodingUint16:
		return int64(order.Uint16(b))
	case model.EncodingInt16:
		return int64(int16(order.Uint16(b)))
	case model.EncodingUint32:
		return int64(order.Uint32(b))
	case model.EncodingInt32:
		return int64(int32(order.Uint32(b)))
	}
	return 0
}

// rawRange returns the representable raw range of an integer encoding.
func rawRange(enc model.Encoding) (int64, int64) {
	switch enc {
	case model.EncodingUint8:
		return 0, math.MaxUint8
	case model.EncodingUint16:
		return 0, math.MaxUint16
	case model.EncodingUint32:
		return 0, math.MaxUint32
	case model.EncodingInt8:
		return math.MinInt8, math.MaxInt8
	case model.EncodingInt16:
		return math.MinInt16, math.MaxInt16
	case model.EncodingInt32:
		return math.MinInt32, math.MaxInt32
	}
	return 0, 0
}
