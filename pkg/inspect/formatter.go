package inspect

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gizmo-config/gizmo-go/pkg/codec"
	"github.com/gizmo-config/gizmo-go/pkg/model"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowMetadata includes encoding, access and transform information
	ShowMetadata bool

	// ShowIDs includes wire ids alongside names
	ShowIDs bool

	// ShowRaw includes the raw bytes alongside decoded values
	ShowRaw bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata: true,
		ShowIDs:      false,
		IndentWidth:  2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	indent := strings.Repeat(" ", depth*width)
	return indent + content
}

// FormatValue formats a decoded value for display. Strings are quoted.
func (f *Formatter) FormatValue(v codec.Value) string {
	if v.Kind() == codec.KindString {
		return fmt.Sprintf("%q", v.String())
	}
	return v.String()
}

// FormatBytes formats raw bytes as spaced hex, "-" for an empty buffer.
func FormatBytes(b []byte) string {
	if len(b) == 0 {
		return "-"
	}
	s := hex.EncodeToString(b)
	var sb strings.Builder
	for i := 0; i < len(s); i += 2 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s[i : i+2])
	}
	return sb.String()
}

// FormatAccess returns a short access string.
func FormatAccess(access model.Access) string {
	switch access {
	case model.AccessReadOnly:
		return "R"
	case model.AccessWriteOnly:
		return "W"
	case model.AccessReadWrite:
		return "RW"
	default:
		return "?"
	}
}

// FormatEncoding returns a short encoding name, with the byte order for
// multi-byte integers.
func FormatEncoding(d *model.Datum) string {
	var name string
	switch d.Encoding {
	case model.EncodingUint8:
		name = "u8"
	case model.EncodingUint16:
		name = "u16"
	case model.EncodingUint32:
		name = "u32"
	case model.EncodingInt8:
		name = "i8"
	case model.EncodingInt16:
		name = "i16"
	case model.EncodingInt32:
		name = "i32"
	case model.EncodingBool:
		return "bool"
	case model.EncodingString:
		return "string"
	default:
		return "unknown"
	}
	if d.Encoding.Width() > 1 {
		if d.Endian == model.EndianBig {
			name += "be"
		} else {
			name += "le"
		}
	}
	return name
}

// FormatTransform describes the affine transform of an integer datum, or
// returns "" for the identity and for non-integer encodings.
func FormatTransform(d *model.Datum) string {
	if !d.Encoding.IsNumeric() || (d.Scalar == 1 && d.Offset == 0) {
		return ""
	}
	switch {
	case d.Offset == 0:
		return fmt.Sprintf("raw*%d", d.Scalar)
	case d.Scalar == 1 && d.Offset < 0:
		return fmt.Sprintf("raw-%d", -d.Offset)
	case d.Scalar == 1:
		return fmt.Sprintf("raw+%d", d.Offset)
	case d.Offset < 0:
		return fmt.Sprintf("raw*%d-%d", d.Scalar, -d.Offset)
	default:
		return fmt.Sprintf("raw*%d+%d", d.Scalar, d.Offset)
	}
}

// FormatMetadata returns the metadata suffix for a datum, e.g.
// "u8, RW, raw-12".
func FormatMetadata(d *model.Datum) string {
	parts := []string{FormatEncoding(d), FormatAccess(d.Access)}
	if t := FormatTransform(d); t != "" {
		parts = append(parts, t)
	}
	return strings.Join(parts, ", ")
}

// ParameterRow represents a parameter for table display.
type ParameterRow struct {
	WireID   string
	Name     string
	Value    string
	Raw      string
	Meta     string
	Modified bool
}

// FormatParameterTable formats a list of parameters as a table. Modified
// parameters are marked with "*".
func (f *Formatter) FormatParameterTable(rows []ParameterRow) string {
	if len(rows) == 0 {
		return "  (no parameters)\n"
	}

	var sb strings.Builder
	for _, row := range rows {
		mark := " "
		if row.Modified {
			mark = "*"
		}
		if f.ShowIDs {
			sb.WriteString(fmt.Sprintf(" %s[%s] %s: %s", mark, row.WireID, row.Name, row.Value))
		} else {
			sb.WriteString(fmt.Sprintf(" %s%s: %s", mark, row.Name, row.Value))
		}
		if f.ShowRaw && row.Raw != "" {
			sb.WriteString(fmt.Sprintf(" <%s>", row.Raw))
		}
		if f.ShowMetadata && row.Meta != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", row.Meta))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
