package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	tests := []*Message{
		{Op: OpList},
		{Op: OpListResponse, WireIDs: []string{"2AF5", "2AF6"}},
		{Op: OpRead, WireID: "2AF9"},
		{Op: OpValue, WireID: "2AF9", Data: []byte{0x18}},
		{Op: OpWrite, WireID: "2AFA", Data: []byte{0x00, 0x10}},
		{Op: OpWriteAck, WireID: "2AFA", Status: StatusNotWritable},
	}

	for _, want := range tests {
		t.Run(want.Op.String(), func(t *testing.T) {
			data, err := EncodeMessage(want)
			require.NoError(t, err)

			got, err := DecodeMessage(data)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestMessageIntegerKeys(t *testing.T) {
	data, err := EncodeMessage(&Message{Op: OpRead, WireID: "A"})
	require.NoError(t, err)

	// map(2) {1: 3, 2: "A"}
	assert.Equal(t, []byte{0xa2, 0x01, 0x03, 0x02, 0x61, 'A'}, data)
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{"zero op", Message{}, ErrInvalidOp},
		{"unknown op", Message{Op: 42}, ErrInvalidOp},
		{"read without wire id", Message{Op: OpRead}, ErrMissingWireID},
		{"value without wire id", Message{Op: OpValue}, ErrMissingWireID},
		{"write without wire id", Message{Op: OpWrite}, ErrMissingWireID},
		{"ack without wire id", Message{Op: OpWriteAck}, ErrMissingWireID},
		{"list", Message{Op: OpList}, nil},
		{"empty list response", Message{Op: OpListResponse}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := EncodeMessage(&Message{Op: OpWrite})
	assert.ErrorIs(t, err, ErrMissingWireID)
}

func TestDecodeMessageMalformed(t *testing.T) {
	_, err := DecodeMessage([]byte{0xff, 0x00})
	assert.ErrorIs(t, err, ErrMalformed)

	// Valid CBOR, invalid op.
	_, err = DecodeMessage([]byte{0xa1, 0x01, 0x18, 0x63})
	assert.ErrorIs(t, err, ErrMalformed)
	assert.ErrorIs(t, err, ErrInvalidOp)
}

func TestMessageErr(t *testing.T) {
	assert.NoError(t, (&Message{Op: OpWriteAck, WireID: "A"}).Err())

	err := (&Message{Op: OpWriteAck, WireID: "A", Status: StatusInvalidValue}).Err()
	assert.True(t, errors.Is(err, ErrWriteRejected))
	assert.Contains(t, err.Error(), "INVALID_VALUE")

	err = (&Message{Op: OpValue, WireID: "A", Status: StatusNotReadable}).Err()
	assert.ErrorIs(t, err, ErrReadRejected)
}

func TestOpAndStatusStrings(t *testing.T) {
	assert.Equal(t, "LIST_RESPONSE", OpListResponse.String())
	assert.Equal(t, "OP(9)", Op(9).String())
	assert.Equal(t, "UNKNOWN_CHARACTERISTIC", StatusUnknownCharacteristic.String())
	assert.Equal(t, "STATUS(77)", Status(77).String())
}
