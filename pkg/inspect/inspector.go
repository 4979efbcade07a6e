package inspect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gizmo-config/gizmo-go/pkg/accessory"
	"github.com/gizmo-config/gizmo-go/pkg/codec"
	"github.com/gizmo-config/gizmo-go/pkg/model"
)

// Inspector errors.
var (
	ErrNotReadable = errors.New("parameter is write-only")
	ErrNotWritable = errors.New("parameter is read-only")
)

// Session is the accessory view used by the Inspector.
// Implemented by *accessory.Accessory.
type Session interface {
	ID() string
	Name() string
	State() accessory.State
	Schema() (*model.Device, error)
	Value(wireID string) (codec.Value, error)
	BaselineValue(wireID string) (codec.Value, error)
	SetValue(wireID string, v codec.Value) error
	Editable() map[string][]byte
	Baseline() map[string][]byte
	Modified() []string
}

var _ Session = (*accessory.Accessory)(nil)

// Inspector reads and edits the parameters of one accessory by path.
type Inspector struct {
	session Session
}

// NewInspector creates an inspector for an accessory.
func NewInspector(session Session) *Inspector {
	return &Inspector{session: session}
}

// Session returns the inspected accessory.
func (i *Inspector) Session() Session {
	return i.session
}

// ParameterInfo contains information about one parameter of an accessory.
type ParameterInfo struct {
	Datum    *model.Datum
	Value    codec.Value
	Baseline codec.Value
	Raw      []byte
	Observed bool
	Modified bool
}

// GroupInfo contains information about a parameter group.
type GroupInfo struct {
	Name       string
	Parameters []ParameterInfo
}

// AccessoryTree represents the full configuration of an accessory.
type AccessoryTree struct {
	InstanceID string
	Name       string
	Schema     string
	State      accessory.State
	Modified   bool
	Groups     []GroupInfo
}

// InspectAccessory returns the configuration tree of the accessory.
func (i *Inspector) InspectAccessory() (*AccessoryTree, error) {
	dev, err := i.session.Schema()
	if err != nil {
		return nil, err
	}
	dev = dev.Clone()
	dev.SortByPosition()

	modified := make(map[string]bool)
	for _, id := range i.session.Modified() {
		modified[id] = true
	}
	raw := i.session.Editable()
	baseline := i.session.Baseline()

	tree := &AccessoryTree{
		InstanceID: i.session.ID(),
		Name:       i.session.Name(),
		Schema:     dev.Name,
		State:      i.session.State(),
		Modified:   len(modified) > 0,
	}
	for _, g := range dev.Groups {
		info := GroupInfo{Name: g.Name}
		for _, d := range g.Data {
			p := ParameterInfo{Datum: d, Modified: modified[d.WireID]}
			p.Raw, p.Observed = raw[d.WireID]
			if !p.Observed {
				p.Raw, p.Observed = baseline[d.WireID]
			}
			p.Value, _ = i.session.Value(d.WireID)
			p.Baseline, _ = i.session.BaselineValue(d.WireID)
			info.Parameters = append(info.Parameters, p)
		}
		tree.Groups = append(tree.Groups, info)
	}
	return tree, nil
}

// ReadParameter returns the current value of the parameter at path.
func (i *Inspector) ReadParameter(path *Path) (codec.Value, *model.Datum, error) {
	d, err := i.resolve(path)
	if err != nil {
		return codec.Value{}, nil, err
	}
	if !d.Access.CanRead() {
		return codec.Value{}, d, fmt.Errorf("%w: %s", ErrNotReadable, d.Name)
	}
	v, err := i.session.Value(d.WireID)
	return v, d, err
}

// WriteParameter parses text for the parameter at path and stores it in
// the accessory's editable copy.
func (i *Inspector) WriteParameter(path *Path, text string) (*model.Datum, error) {
	d, err := i.resolve(path)
	if err != nil {
		return nil, err
	}
	if !d.Access.CanWrite() {
		return d, fmt.Errorf("%w: %s", ErrNotWritable, d.Name)
	}
	v, err := codec.Parse(d.Encoding, text)
	if err != nil {
		return d, err
	}
	return d, i.session.SetValue(d.WireID, v)
}

func (i *Inspector) resolve(path *Path) (*model.Datum, error) {
	dev, err := i.session.Schema()
	if err != nil {
		return nil, err
	}
	return path.Resolve(dev)
}

// FormatAccessoryTree formats the configuration tree for display.
func (i *Inspector) FormatAccessoryTree(tree *AccessoryTree, formatter *Formatter) string {
	if formatter == nil {
		formatter = NewFormatter()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Accessory: %s (%s)\n", tree.Name, tree.InstanceID))
	sb.WriteString(fmt.Sprintf("Schema: %s  State: %s", tree.Schema, tree.State))
	if tree.Modified {
		sb.WriteString("  [modified]")
	}
	sb.WriteString("\n---\n")

	for _, g := range tree.Groups {
		sb.WriteString(formatter.Indent(0, g.Name) + "\n")
		rows := make([]ParameterRow, 0, len(g.Parameters))
		for _, p := range g.Parameters {
			rows = append(rows, parameterRow(p))
		}
		sb.WriteString(formatter.FormatParameterTable(rows))
	}
	return sb.String()
}

func parameterRow(p ParameterInfo) ParameterRow {
	f := &Formatter{}
	row := ParameterRow{
		WireID:   p.Datum.WireID,
		Name:     p.Datum.Name,
		Meta:     FormatMetadata(p.Datum),
		Modified: p.Modified,
	}
	switch {
	case !p.Datum.Access.CanRead() && !p.Modified:
		row.Value = "(write-only)"
	case !p.Observed:
		row.Value = "(loading)"
	default:
		row.Value = f.FormatValue(p.Value)
		if p.Modified && p.Datum.Access.CanRead() {
			row.Value += " (was " + f.FormatValue(p.Baseline) + ")"
		}
		row.Raw = FormatBytes(p.Raw)
	}
	return row
}

// FormatSchema formats a device schema for display, groups and
// parameters in position order.
func FormatSchema(dev *model.Device, formatter *Formatter) string {
	if formatter == nil {
		formatter = NewFormatter()
	}

	dev = dev.Clone()
	dev.SortByPosition()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Schema: %s\n", dev.Name))
	sb.WriteString(fmt.Sprintf("Capabilities: %s\n", strings.Join(dev.CapabilityIDs, ", ")))
	sb.WriteString("---\n")
	for _, g := range dev.Groups {
		sb.WriteString(formatter.Indent(0, g.Name) + "\n")
		for _, d := range g.Data {
			line := d.Name
			if formatter.ShowIDs {
				line = fmt.Sprintf("[%s] %s", d.WireID, d.Name)
			}
			if formatter.ShowMetadata {
				line += fmt.Sprintf(" (%s)", FormatMetadata(d))
			}
			sb.WriteString(formatter.Indent(1, line) + "\n")
		}
	}
	return sb.String()
}
