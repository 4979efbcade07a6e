package inspect

import (
	"testing"

	"github.com/gizmo-config/gizmo-go/pkg/codec"
	"github.com/gizmo-config/gizmo-go/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestFormatValue(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "true", f.FormatValue(codec.Bool(true)))
	assert.Equal(t, "-3", f.FormatValue(codec.Int(-3)))
	assert.Equal(t, `"home"`, f.FormatValue(codec.String("home")))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "-", FormatBytes(nil))
	assert.Equal(t, "00 10 ff", FormatBytes([]byte{0x00, 0x10, 0xff}))
}

func TestFormatMetadata(t *testing.T) {
	tz := model.NewDatum(model.EncodingUint8, "2AF9", "Time Zone")
	tz.Offset = -12
	assert.Equal(t, "u8, RW, raw-12", FormatMetadata(tz))

	interval := model.NewDatum(model.EncodingUint16, "2B00", "Interval")
	interval.Endian = model.EndianBig
	interval.Scalar = 10
	interval.Access = model.AccessReadOnly
	assert.Equal(t, "u16be, R, raw*10", FormatMetadata(interval))

	cal := model.NewDatum(model.EncodingInt8, "2B01", "Calibration")
	cal.Scalar = 2
	cal.Offset = 5
	assert.Equal(t, "raw*2+5", FormatTransform(cal))
	cal.Offset = -5
	assert.Equal(t, "raw*2-5", FormatTransform(cal))
	cal.Scalar = 1
	assert.Equal(t, "raw-5", FormatTransform(cal))

	pw := model.NewDatum(model.EncodingString, "2AF7", "Password")
	pw.Access = model.AccessWriteOnly
	pw.Offset = 4
	assert.Equal(t, "string, W", FormatMetadata(pw))

	i32 := model.NewDatum(model.EncodingInt32, "2B02", "Alarm")
	assert.Equal(t, "i32le", FormatEncoding(i32))
	assert.Equal(t, "bool", FormatEncoding(model.NewDatum(model.EncodingBool, "x", "x")))
}

func TestFormatParameterTable(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "  (no parameters)\n", f.FormatParameterTable(nil))

	rows := []ParameterRow{
		{WireID: "2AF9", Name: "Time Zone", Value: "2", Raw: "0e", Meta: "u8, RW, raw-12", Modified: true},
		{WireID: "2AE2", Name: "Daylight Saving", Value: "false", Meta: "bool, RW"},
	}
	out := f.FormatParameterTable(rows)
	assert.Equal(t, " *Time Zone: 2 (u8, RW, raw-12)\n  Daylight Saving: false (bool, RW)\n", out)

	f = &Formatter{ShowIDs: true, ShowRaw: true}
	out = f.FormatParameterTable(rows[:1])
	assert.Equal(t, " *[2AF9] Time Zone: 2 <0e>\n", out)
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "    x", NewFormatter().Indent(2, "x"))
	assert.Equal(t, "   x", (&Formatter{IndentWidth: 3}).Indent(1, "x"))
}
