package model

import (
	"github.com/google/uuid"
)

// Datum describes a single configuration parameter of a device.
type Datum struct {
	// ID is a stable identity used for equality in editors. Not exported
	// to interchange files; imported datums get a fresh ID.
	ID string `json:"-" yaml:"-"`

	// Encoding is the wire representation of the value.
	Encoding Encoding `json:"type" yaml:"type"`

	// Endian is the byte order for multi-byte integer encodings.
	Endian Endian `json:"endian" yaml:"endian"`

	// Access governs read-back and write permission.
	Access Access `json:"access" yaml:"access"`

	// WireID is the transport-level parameter identifier
	// (e.g. characteristic UUID). Unique within a device.
	WireID string `json:"uuid" yaml:"uuid"`

	// Name is the human-readable parameter name.
	Name string `json:"name" yaml:"name"`

	// Position is the display order within the group.
	Position int `json:"position" yaml:"position"`

	// Description is a human-readable description.
	Description string `json:"description" yaml:"description"`

	// Offset and Scalar define logical = raw*Scalar + Offset
	// for integer encodings. Scalar must be non-zero.
	Offset int64 `json:"offset" yaml:"offset"`
	Scalar int64 `json:"scalar" yaml:"scalar"`
}

// NewDatum creates a datum with the default wire description:
// little endian, read/write, scalar 1, offset 0.
func NewDatum(encoding Encoding, wireID, name string) *Datum {
	return &Datum{
		ID:       uuid.NewString(),
		Encoding: encoding,
		Endian:   EndianLittle,
		Access:   AccessReadWrite,
		WireID:   wireID,
		Name:     name,
		Scalar:   1,
	}
}

// Equal reports whether two datums have the same definition.
// The ID is not compared.
func (d *Datum) Equal(other *Datum) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Encoding == other.Encoding &&
		d.Endian == other.Endian &&
		d.Access == other.Access &&
		d.WireID == other.WireID &&
		d.Name == other.Name &&
		d.Position == other.Position &&
		d.Description == other.Description &&
		d.Offset == other.Offset &&
		d.Scalar == other.Scalar
}

// Clone returns a copy of the datum with the same ID.
func (d *Datum) Clone() *Datum {
	c := *d
	return &c
}

// DatumGroup is a named, ordered collection of datums.
type DatumGroup struct {
	ID       string   `json:"-" yaml:"-"`
	Name     string   `json:"name" yaml:"name"`
	Position int      `json:"position" yaml:"position"`
	Data     []*Datum `json:"data" yaml:"data"`
}

// NewDatumGroup creates an empty group.
func NewDatumGroup(name string, position int) *DatumGroup {
	return &DatumGroup{
		ID:       uuid.NewString(),
		Name:     name,
		Position: position,
		Data:     []*Datum{},
	}
}

// AddDatum appends a datum to the group.
func (g *DatumGroup) AddDatum(d *Datum) {
	g.Data = append(g.Data, d)
}

// RemoveDatum removes the datum with the given ID.
// Returns false if no such datum exists.
func (g *DatumGroup) RemoveDatum(id string) bool {
	for i, d := range g.Data {
		if d.ID == id {
			g.Data = append(g.Data[:i], g.Data[i+1:]...)
			return true
		}
	}
	return false
}

// Equal reports whether two groups have the same name, position and datums.
func (g *DatumGroup) Equal(other *DatumGroup) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.Name != other.Name || g.Position != other.Position || len(g.Data) != len(other.Data) {
		return false
	}
	for i := range g.Data {
		if !g.Data[i].Equal(other.Data[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the group.
func (g *DatumGroup) Clone() *DatumGroup {
	c := &DatumGroup{
		ID:       g.ID,
		Name:     g.Name,
		Position: g.Position,
		Data:     make([]*Datum, len(g.Data)),
	}
	for i, d := range g.Data {
		c.Data[i] = d.Clone()
	}
	return c
}
