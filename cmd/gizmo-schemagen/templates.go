package main

import (
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/gizmo-config/gizmo-go/pkg/model"
)

// funcMap provides helper functions available to all templates.
var funcMap = template.FuncMap{
	"quote":       func(s string) string { return fmt.Sprintf("%q", s) },
	"encodingRef": encodingRef,
	"accessRef":   accessRef,
	"isBig":       func(e model.Endian) bool { return e == model.EndianBig },
	"readWrite":   func(a model.Access) bool { return a == model.AccessReadWrite },
}

var templates = template.Must(template.New("").Funcs(funcMap).Parse(schemaTmpl))

// renderTemplate executes a named template into the builder.
func renderTemplate(b *strings.Builder, name string, data any) error {
	if err := templates.ExecuteTemplate(b, name, data); err != nil {
		return fmt.Errorf("template %s: %w", name, err)
	}
	return nil
}

// schemaData is the template input for one device schema.
type schemaData struct {
	Package      string
	Source       string
	Prefix       string
	Device       *model.Device
	Capabilities []constData
	WireIDs      []constData
	Groups       []groupData
}

type constData struct {
	Name  string
	Value string
	Doc   string
}

type groupData struct {
	Var   string
	Group *model.DatumGroup
	Data  []datumData
}

type datumData struct {
	Var   string
	Const string
	Datum *model.Datum
}

const schemaTmpl = `
{{- define "schema" -}}
// Code generated by gizmo-schemagen from {{.Source}}. DO NOT EDIT.

package {{.Package}}

import "github.com/gizmo-config/gizmo-go/pkg/model"

// {{.Device.Name}} capability IDs.
const (
{{- range .Capabilities}}
	{{.Name}} = {{quote .Value}}
{{- end}}
)

// {{.Device.Name}} parameter wire IDs.
const (
{{- range .WireIDs}}
	{{.Name}} = {{quote .Value}} // {{.Doc}}
{{- end}}
)

// {{.Prefix}}Schema returns the {{.Device.Name}} device schema.
func {{.Prefix}}Schema() *model.Device {
	dev := model.NewDevice({{quote .Device.Name}}{{range .Capabilities}}, {{.Name}}{{end}})
{{range $g := .Groups}}
	{{.Var}} := model.NewDatumGroup({{quote .Group.Name}}, {{.Group.Position}})
{{- range .Data}}
	{{.Var}} := model.NewDatum({{encodingRef .Datum.Encoding}}, {{.Const}}, {{quote .Datum.Name}})
{{- if isBig .Datum.Endian}}
	{{.Var}}.Endian = model.EndianBig
{{- end}}
{{- if not (readWrite .Datum.Access)}}
	{{.Var}}.Access = {{accessRef .Datum.Access}}
{{- end}}
{{- if .Datum.Position}}
	{{.Var}}.Position = {{.Datum.Position}}
{{- end}}
{{- if .Datum.Description}}
	{{.Var}}.Description = {{quote .Datum.Description}}
{{- end}}
{{- if .Datum.Offset}}
	{{.Var}}.Offset = {{.Datum.Offset}}
{{- end}}
{{- if ne .Datum.Scalar 1}}
	{{.Var}}.Scalar = {{.Datum.Scalar}}
{{- end}}
	{{$g.Var}}.AddDatum({{.Var}})
{{- end}}
	dev.AddGroup({{.Var}})
{{end}}
	return dev
}
{{end}}`

func encodingRef(e model.Encoding) string {
	switch e {
	case model.EncodingUint8:
		return "model.EncodingUint8"
	case model.EncodingUint16:
		return "model.EncodingUint16"
	case model.EncodingUint32:
		return "model.EncodingUint32"
	case model.EncodingInt8:
		return "model.EncodingInt8"
	case model.EncodingInt16:
		return "model.EncodingInt16"
	case model.EncodingInt32:
		return "model.EncodingInt32"
	case model.EncodingBool:
		return "model.EncodingBool"
	default:
		return "model.EncodingString"
	}
}

func accessRef(a model.Access) string {
	switch a {
	case model.AccessReadOnly:
		return "model.AccessReadOnly"
	case model.AccessWriteOnly:
		return "model.AccessWriteOnly"
	default:
		return "model.AccessReadWrite"
	}
}

// goName converts a display name to an exported Go identifier:
// "Time Zone" -> "TimeZone", "Wi-Fi" -> "WiFi", "mac address" -> "MacAddress".
func goName(s string) string {
	name := identPart(s)
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "X" + name
	}
	return name
}

// identPart title-cases the letters and digits of s for use inside an
// identifier.
func identPart(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// varName converts a Go identifier to an unexported variable name.
func varName(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	i := 0
	for i < len(r) && unicode.IsUpper(r[i]) {
		i++
	}
	if i > 1 && i < len(r) {
		i--
	}
	if i == 0 {
		i = 1
	}
	return strings.ToLower(string(r[:i])) + string(r[i:])
}
