package model

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Schema validation errors.
var (
	ErrDuplicateWireID = errors.New("duplicate wire id")
	ErrEmptyWireID     = errors.New("empty wire id")
	ErrZeroScalar      = errors.New("scalar must be non-zero")
	ErrTransformRange  = errors.New("scalar or offset outside the 32-bit range")
	ErrInvalidEnum     = errors.New("invalid enum value")
	ErrGroupNotFound   = errors.New("group not found")
	ErrNilElement      = errors.New("nil group or datum")
)

// Device is a named template describing a peripheral family.
type Device struct {
	// ID is the stable lookup key for this schema. Not exported to
	// interchange files.
	ID string `json:"-" yaml:"-"`

	// Name is the human-readable device family name.
	Name string `json:"name" yaml:"name"`

	// CapabilityIDs are the advertised identifiers that recognize an
	// instance of this device (e.g. BLE service UUIDs).
	CapabilityIDs []string `json:"service-ids" yaml:"service-ids"`

	// Groups are the parameter groups in display order.
	Groups []*DatumGroup `json:"data" yaml:"data"`
}

// NewDevice creates an empty device schema.
func NewDevice(name string, capabilityIDs ...string) *Device {
	caps := make([]string, len(capabilityIDs))
	copy(caps, capabilityIDs)
	return &Device{
		ID:            uuid.NewString(),
		Name:          name,
		CapabilityIDs: caps,
		Groups:        []*DatumGroup{},
	}
}

// AddCapability appends a capability id.
func (d *Device) AddCapability(id string) {
	d.CapabilityIDs = append(d.CapabilityIDs, id)
}

// RemoveCapability removes the capability id at index idx.
func (d *Device) RemoveCapability(idx int) {
	if idx < 0 || idx >= len(d.CapabilityIDs) {
		return
	}
	d.CapabilityIDs = append(d.CapabilityIDs[:idx], d.CapabilityIDs[idx+1:]...)
}

// AddGroup appends a group.
func (d *Device) AddGroup(g *DatumGroup) {
	d.Groups = append(d.Groups, g)
}

// RemoveGroup removes the group with the given ID.
func (d *Device) RemoveGroup(id string) error {
	for i, g := range d.Groups {
		if g.ID == id {
			d.Groups = append(d.Groups[:i], d.Groups[i+1:]...)
			return nil
		}
	}
	return ErrGroupNotFound
}

// Group returns the group with the given ID, or nil.
func (d *Device) Group(id string) *DatumGroup {
	for _, g := range d.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// Parameters returns all datums flattened in group order.
func (d *Device) Parameters() []*Datum {
	var out []*Datum
	for _, g := range d.Groups {
		out = append(out, g.Data...)
	}
	return out
}

// DatumByWireID returns the datum with the given wire id.
func (d *Device) DatumByWireID(wireID string) (*Datum, bool) {
	for _, g := range d.Groups {
		for _, datum := range g.Data {
			if datum.WireID == wireID {
				return datum, true
			}
		}
	}
	return nil, false
}

// ReadableWireIDs returns the wire ids of every datum that is not write-only.
func (d *Device) ReadableWireIDs() []string {
	var out []string
	for _, g := range d.Groups {
		for _, datum := range g.Data {
			if datum.Access.CanRead() {
				out = append(out, datum.WireID)
			}
		}
	}
	return out
}

// Populated reports whether observed covers every readable wire id.
// Order and duplicates in observed are irrelevant.
func (d *Device) Populated(observed []string) bool {
	seen := make(map[string]struct{}, len(observed))
	for _, id := range observed {
		seen[id] = struct{}{}
	}
	for _, id := range d.ReadableWireIDs() {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}

// Validate checks the schema invariants: wire ids are non-empty and
// unique across the device, scalars are non-zero, scalar and offset fit
// in 32 bits and enums are in range.
func (d *Device) Validate() error {
	seen := make(map[string]string)
	for _, g := range d.Groups {
		if g == nil {
			return ErrNilElement
		}
		for _, datum := range g.Data {
			if datum == nil {
				return fmt.Errorf("%w: in group %q", ErrNilElement, g.Name)
			}
			if datum.WireID == "" {
				return fmt.Errorf("%w: datum %q in group %q", ErrEmptyWireID, datum.Name, g.Name)
			}
			if prev, dup := seen[datum.WireID]; dup {
				return fmt.Errorf("%w: %s (%q and %q)", ErrDuplicateWireID, datum.WireID, prev, datum.Name)
			}
			seen[datum.WireID] = datum.Name

			if datum.Scalar == 0 {
				return fmt.Errorf("%w: datum %q", ErrZeroScalar, datum.Name)
			}
			if !fitsInt32(datum.Scalar) || !fitsInt32(datum.Offset) {
				return fmt.Errorf("%w: datum %q", ErrTransformRange, datum.Name)
			}
			if !datum.Encoding.Valid() || datum.Endian > EndianBig || datum.Access > AccessWriteOnly {
				return fmt.Errorf("%w: datum %q", ErrInvalidEnum, datum.Name)
			}
		}
	}
	return nil
}

// fitsInt32 bounds the affine transform so that raw*Scalar+Offset cannot
// overflow int64 for any 32-bit raw value.
func fitsInt32(v int64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

// Equal reports whether two devices have identical name, capability ids
// and groups. IDs are ignored; this is the deduplication equality.
func (d *Device) Equal(other *Device) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Name != other.Name || len(d.CapabilityIDs) != len(other.CapabilityIDs) || len(d.Groups) != len(other.Groups) {
		return false
	}
	for i := range d.CapabilityIDs {
		if d.CapabilityIDs[i] != other.CapabilityIDs[i] {
			return false
		}
	}
	for i := range d.Groups {
		if !d.Groups[i].Equal(other.Groups[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the device, IDs included.
func (d *Device) Clone() *Device {
	c := &Device{
		ID:            d.ID,
		Name:          d.Name,
		CapabilityIDs: make([]string, len(d.CapabilityIDs)),
		Groups:        make([]*DatumGroup, len(d.Groups)),
	}
	copy(c.CapabilityIDs, d.CapabilityIDs)
	for i, g := range d.Groups {
		c.Groups[i] = g.Clone()
	}
	return c
}

// CapabilityKey returns the canonical form of the capability set:
// sorted, de-duplicated ids joined by ",". Two devices match the same
// peripherals if and only if their keys are equal.
func (d *Device) CapabilityKey() string {
	return CapabilityKey(d.CapabilityIDs)
}

// CapabilityKey canonicalizes a capability id set. Order and duplicates
// are irrelevant.
func CapabilityKey(ids []string) string {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	sorted := make([]string, 0, len(set))
	for id := range set {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// Fingerprint returns a content hash of the exported schema (hex,
// BLAKE2b-256). Equal devices have equal fingerprints; nil and empty
// slices hash the same.
func (d *Device) Fingerprint() string {
	data, err := json.Marshal(d.Clone())
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SortByPosition orders groups and their datums by Position.
// Ties keep their current relative order.
func (d *Device) SortByPosition() {
	sort.SliceStable(d.Groups, func(i, j int) bool {
		return d.Groups[i].Position < d.Groups[j].Position
	})
	for _, g := range d.Groups {
		sort.SliceStable(g.Data, func(i, j int) bool {
			return g.Data[i].Position < g.Data[j].Position
		})
	}
}

// assignIDs gives every element without an ID a fresh one.
func (d *Device) assignIDs() {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CapabilityIDs == nil {
		d.CapabilityIDs = []string{}
	}
	if d.Groups == nil {
		d.Groups = []*DatumGroup{}
	}
	for _, g := range d.Groups {
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		if g.Data == nil {
			g.Data = []*Datum{}
		}
		for _, datum := range g.Data {
			if datum.ID == "" {
				datum.ID = uuid.NewString()
			}
		}
	}
}
