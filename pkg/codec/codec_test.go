package codec

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/gizmo-config/gizmo-go/pkg/model"
)

func datum(enc model.Encoding, endian model.Endian, access model.Access) *model.Datum {
	d := model.NewDatum(enc, "X", "x")
	d.Endian = endian
	d.Access = access
	return d
}

func intEncodings() []model.Encoding {
	return []model.Encoding{
		model.EncodingUint8, model.EncodingUint16, model.EncodingUint32,
		model.EncodingInt8, model.EncodingInt16, model.EncodingInt32,
	}
}

func TestDecodeIntegers(t *testing.T) {
	tests := []struct {
		name   string
		enc    model.Encoding
		endian model.Endian
		in     []byte
		want   int64
	}{
		{"uint8", model.EncodingUint8, model.EndianLittle, []byte{0xFF}, 255},
		{"int8 negative", model.EncodingInt8, model.EndianLittle, []byte{0xFF}, -1},
		{"uint16 little", model.EncodingUint16, model.EndianLittle, []byte{0x34, 0x12}, 0x1234},
		{"uint16 big", model.EncodingUint16, model.EndianBig, []byte{0x12, 0x34}, 0x1234},
		{"int16 big negative", model.EncodingInt16, model.EndianBig, []byte{0xFF, 0xFE}, -2},
		{"uint32 little", model.EncodingUint32, model.EndianLittle, []byte{0x78, 0x56, 0x34, 0x12}, 0x12345678},
		{"uint32 max", model.EncodingUint32, model.EndianBig, []byte{0xFF, 0xFF, 0xFF, 0xFF}, 0xFFFFFFFF},
		{"int32 little negative", model.EncodingInt32, model.EndianLittle, []byte{0x00, 0x00, 0x00, 0x80}, -2147483648},
		{"excess bytes ignored", model.EncodingUint8, model.EndianLittle, []byte{0x07, 0x09}, 7},
		{"uint16 big excess", model.EncodingUint16, model.EndianBig, []byte{0x01, 0x02, 0x03}, 0x0203},
		{"int32 big excess", model.EncodingInt32, model.EndianBig, []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFE}, -2},
		{"uint8 big excess", model.EncodingUint8, model.EndianBig, []byte{0x07, 0x09}, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(datum(tt.enc, tt.endian, model.AccessReadWrite), tt.in)
			i, ok := got.AsInt()
			if !ok {
				t.Fatalf("expected int value, got %v", got.Kind())
			}
			if i != tt.want {
				t.Errorf("Decode() = %d, want %d", i, tt.want)
			}
		})
	}
}

func TestDecodeBoolAndString(t *testing.T) {
	b := datum(model.EncodingBool, model.EndianLittle, model.AccessReadWrite)
	for in, want := range map[byte]bool{0: false, 1: true, 2: false, 0xFF: false} {
		got, _ := Decode(b, []byte{in}).AsBool()
		if got != want {
			t.Errorf("Decode(bool, %#x) = %v, want %v", in, got, want)
		}
	}
	if got, _ := Decode(b, []byte{1, 0}).AsBool(); !got {
		t.Error("expected only the first byte to be consulted")
	}

	s := datum(model.EncodingString, model.EndianBig, model.AccessReadWrite)
	if got, _ := Decode(s, []byte("héllo")).AsString(); got != "héllo" {
		t.Errorf("Decode(string) = %q", got)
	}
	if got, ok := Decode(s, []byte{0xC3, 0x28}).AsString(); !ok || got != "" {
		t.Errorf("expected invalid UTF-8 to decode to empty string, got %q", got)
	}
}

func TestDecodeTransformExtremes(t *testing.T) {
	d := datum(model.EncodingUint32, model.EndianLittle, model.AccessReadOnly)
	d.Scalar = math.MaxInt32
	d.Offset = math.MaxInt32
	got, _ := Decode(d, []byte{0xFF, 0xFF, 0xFF, 0xFF}).AsInt()
	if want := int64(math.MaxInt32) << 32; got != want {
		t.Errorf("Decode() = %d, want %d", got, want)
	}

	d = datum(model.EncodingUint32, model.EndianLittle, model.AccessReadOnly)
	d.Scalar = math.MinInt32
	d.Offset = math.MinInt32
	got, _ = Decode(d, []byte{0xFF, 0xFF, 0xFF, 0xFF}).AsInt()
	if got != math.MinInt64 {
		t.Errorf("Decode() = %d, want %d", got, int64(math.MinInt64))
	}
}

func TestDecodeEmptyBuffer(t *testing.T) {
	for _, enc := range model.Encodings() {
		t.Run(enc.String(), func(t *testing.T) {
			d := datum(enc, model.EndianLittle, model.AccessReadWrite)
			d.Offset = 10
			got := Decode(d, nil)
			if !got.Equal(Zero(enc)) {
				t.Errorf("Decode(empty) = %v, want zero value", got)
			}
			if _, err := DecodeChecked(d, []byte{}); err != nil {
				t.Errorf("empty buffer should not be an error: %v", err)
			}
		})
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	d := datum(model.EncodingUint32, model.EndianLittle, model.AccessReadWrite)
	in := []byte{0x01, 0x02}

	if _, err := DecodeChecked(d, in); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("expected ErrShortBuffer, got %v", err)
	}
	if err := CheckWidth(d, in); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("CheckWidth: expected ErrShortBuffer, got %v", err)
	}
	if got := Decode(d, in); !got.Equal(Int(0)) {
		t.Errorf("Decode(short) = %v, want 0", got)
	}

	s := datum(model.EncodingString, model.EndianLittle, model.AccessReadWrite)
	if err := CheckWidth(s, []byte{1}); err != nil {
		t.Errorf("strings have no fixed width: %v", err)
	}
}

func TestAccessGating(t *testing.T) {
	for _, enc := range model.Encodings() {
		t.Run(enc.String(), func(t *testing.T) {
			wo := datum(enc, model.EndianLittle, model.AccessWriteOnly)
			if got := Decode(wo, []byte{1, 1, 1, 1}); !got.Equal(Zero(enc)) {
				t.Errorf("write-only decode = %v, want zero value", got)
			}

			ro := datum(enc, model.EndianLittle, model.AccessReadOnly)
			for _, v := range []Value{Bool(true), Int(1), String("x"), Zero(enc)} {
				if out := Encode(ro, v); len(out) != 0 {
					t.Errorf("read-only encode(%v) = %x, want empty", v, out)
				}
			}
		})
	}
}

func TestEncodeRefusals(t *testing.T) {
	u8 := datum(model.EncodingUint8, model.EndianLittle, model.AccessReadWrite)
	i8 := datum(model.EncodingInt8, model.EndianLittle, model.AccessReadWrite)

	tests := []struct {
		name string
		d    *model.Datum
		v    Value
	}{
		{"string for integer", u8, String("5")},
		{"bool for integer", u8, Bool(true)},
		{"int for bool", datum(model.EncodingBool, model.EndianLittle, model.AccessReadWrite), Int(1)},
		{"int for string", datum(model.EncodingString, model.EndianLittle, model.AccessReadWrite), Int(1)},
		{"negative unsigned", u8, Int(-1)},
		{"unsigned overflow", u8, Int(256)},
		{"signed overflow", i8, Int(128)},
		{"signed underflow", i8, Int(-129)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if out := Encode(tt.d, tt.v); len(out) != 0 {
				t.Errorf("Encode() = %x, want empty", out)
			}
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	tests := []struct {
		name   string
		enc    model.Encoding
		endian model.Endian
		v      Value
		want   []byte
	}{
		{"uint16 little", model.EncodingUint16, model.EndianLittle, Int(0x1234), []byte{0x34, 0x12}},
		{"uint16 big", model.EncodingUint16, model.EndianBig, Int(0x1234), []byte{0x12, 0x34}},
		{"int32 big", model.EncodingInt32, model.EndianBig, Int(-2), []byte{0xFF, 0xFF, 0xFF, 0xFE}},
		{"int8", model.EncodingInt8, model.EndianBig, Int(-128), []byte{0x80}},
		{"bool true", model.EncodingBool, model.EndianLittle, Bool(true), []byte{1}},
		{"bool false", model.EncodingBool, model.EndianLittle, Bool(false), []byte{0}},
		{"string", model.EncodingString, model.EndianBig, String("abc"), []byte("abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(datum(tt.enc, tt.endian, model.AccessReadWrite), tt.v)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode() = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestRoundTripNumeric(t *testing.T) {
	patterns := [][]byte{
		{0x00, 0x00, 0x00, 0x00},
		{0x01, 0x00, 0x00, 0x00},
		{0x7F, 0xFF, 0x00, 0x80},
		{0xFF, 0xFF, 0xFF, 0xFF},
		{0x80, 0x00, 0x00, 0x00},
		{0x12, 0x34, 0x56, 0x78},
	}

	for _, enc := range intEncodings() {
		for _, endian := range []model.Endian{model.EndianLittle, model.EndianBig} {
			d := datum(enc, endian, model.AccessReadWrite)
			for _, p := range patterns {
				in := p[:enc.Width()]
				first := Decode(d, in)
				out := Encode(d, first)
				if !bytes.Equal(out, in) {
					t.Errorf("%s/%s: Encode(Decode(%x)) = %x", enc, endian, in, out)
				}
				if second := Decode(d, out); !second.Equal(first) {
					t.Errorf("%s/%s: round trip %v != %v", enc, endian, second, first)
				}
			}
		}
	}
}

func TestEndiannessSymmetry(t *testing.T) {
	for _, enc := range []model.Encoding{model.EncodingUint16, model.EncodingInt16, model.EncodingUint32, model.EncodingInt32} {
		little := datum(enc, model.EndianLittle, model.AccessReadWrite)
		big := datum(enc, model.EndianBig, model.AccessReadWrite)

		for _, v := range []int64{0, 1, 127, 300, 65535 / 2} {
			be := Encode(big, Int(v))
			le := Encode(little, Int(v))
			if len(be) == 0 {
				t.Fatalf("%s: Encode(%d) produced no bytes", enc, v)
			}
			reversed := make([]byte, len(be))
			for i := range be {
				reversed[len(be)-1-i] = be[i]
			}
			if !bytes.Equal(reversed, le) {
				t.Errorf("%s: big %x reversed != little %x", enc, be, le)
			}
			if !Decode(big, be).Equal(Decode(little, reversed)) {
				t.Errorf("%s: decoded values differ for %d", enc, v)
			}
		}
	}
}

func TestAffineTransform(t *testing.T) {
	d := datum(model.EncodingInt16, model.EndianLittle, model.AccessReadWrite)
	d.Scalar = 5
	d.Offset = -40

	for _, r := range []int64{-100, -1, 0, 3, 1000} {
		logical := d.Scalar*r + d.Offset
		raw := Encode(d, Int(logical))
		if got := Decode(d, raw); !got.Equal(Int(logical)) {
			t.Errorf("Decode(Encode(%d)) = %v", logical, got)
		}
	}

	// Misaligned values truncate toward zero: (12 - -40) / 5 = 10.
	if got := Decode(d, Encode(d, Int(12))); !got.Equal(Int(10)) {
		t.Errorf("expected truncation to 10, got %v", got)
	}

	neg := datum(model.EncodingInt8, model.EndianLittle, model.AccessReadWrite)
	neg.Scalar = -2
	if got := Decode(neg, []byte{3}); !got.Equal(Int(-6)) {
		t.Errorf("negative scalar decode = %v, want -6", got)
	}
	if out := Encode(neg, Int(-6)); !bytes.Equal(out, []byte{3}) {
		t.Errorf("negative scalar encode = %x, want 03", out)
	}
}

func TestOffsetScenario(t *testing.T) {
	d := datum(model.EncodingUint8, model.EndianLittle, model.AccessReadWrite)
	d.Offset = -12

	if got := Decode(d, []byte{0x18}); !got.Equal(Int(12)) {
		t.Errorf("Decode(0x18) = %v, want 12", got)
	}
	if out := Encode(d, Int(5)); !bytes.Equal(out, []byte{0x11}) {
		t.Errorf("Encode(5) = %x, want 11", out)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		enc     model.Encoding
		text    string
		want    Value
		wantErr bool
	}{
		{model.EncodingBool, "on", Bool(true), false},
		{model.EncodingBool, "0", Bool(false), false},
		{model.EncodingBool, "maybe", Value{}, true},
		{model.EncodingInt8, "-12", Int(-12), false},
		{model.EncodingUint16, "0x10", Int(16), false},
		{model.EncodingUint16, "ten", Value{}, true},
		{model.EncodingString, " spaced ", String(" spaced "), false},
	}

	for _, tt := range tests {
		t.Run(tt.enc.String()+"/"+tt.text, func(t *testing.T) {
			got, err := Parse(tt.enc, tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrParseValue) {
					t.Errorf("expected ErrParseValue, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Parse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueEqual(t *testing.T) {
	if Int(0).Equal(Bool(false)) {
		t.Error("values of different kinds must not be equal")
	}
	if !String("a").Equal(String("a")) {
		t.Error("expected equal strings")
	}
	if Zero(model.EncodingString).Kind() != KindString {
		t.Error("expected string zero value")
	}
	if Int(-3).String() != "-3" || Bool(true).String() != "true" {
		t.Error("unexpected display formatting")
	}
}
