package examples

import (
	"fmt"

	"github.com/gizmo-config/gizmo-go/pkg/codec"
	"github.com/gizmo-config/gizmo-go/pkg/model"
	"github.com/gizmo-config/gizmo-go/pkg/transport"
)

// EncodeRaw encodes v for d regardless of the datum's access mode. A
// peripheral holds values for read-only datums too.
func EncodeRaw(d *model.Datum, v codec.Value) []byte {
	rw := d.Clone()
	rw.Access = model.AccessReadWrite
	return codec.Encode(rw, v)
}

// DecodeRaw decodes b for d regardless of the datum's access mode.
func DecodeRaw(d *model.Datum, b []byte) codec.Value {
	rw := d.Clone()
	rw.Access = model.AccessReadWrite
	return codec.Decode(rw, b)
}

// Characteristics builds a peripheral table for a schema. Datums without an
// entry in values start with the encoding's zero value; write-only datums
// start empty.
func Characteristics(dev *model.Device, values map[string]codec.Value) ([]transport.Characteristic, error) {
	params := dev.Parameters()
	out := make([]transport.Characteristic, 0, len(params))
	for _, d := range params {
		ch := transport.Characteristic{WireID: d.WireID, Access: d.Access}
		if d.Access.CanRead() {
			v, ok := values[d.WireID]
			if !ok {
				v = codec.Zero(d.Encoding)
			}
			ch.Value = EncodeRaw(d, v)
			if len(ch.Value) == 0 && d.Encoding != model.EncodingString {
				return nil, fmt.Errorf("%s: cannot encode %s as %s", d.Name, v, d.Encoding)
			}
		}
		out = append(out, ch)
	}
	return out, nil
}
