// Package inspect provides schema and accessory inspection utilities.
//
// The inspect package offers a unified interface for:
//   - Parsing parameter paths (e.g., "time/timezone" or "2AF9")
//   - Resolving paths against a schema
//   - Reading and editing accessory parameters from text
//   - Formatting output for display
package inspect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gizmo-config/gizmo-go/pkg/model"
)

// Path errors.
var (
	ErrEmptyPath         = errors.New("empty path")
	ErrInvalidPath       = errors.New("invalid path format")
	ErrParameterNotFound = errors.New("parameter not found")
	ErrGroupNotFound     = errors.New("group not found")
	ErrAmbiguousPath     = errors.New("path matches more than one parameter")
)

// Path represents a parsed parameter path.
// Format: [group/]parameter, where parameter is a wire id or a name.
type Path struct {
	// Group is the group name (empty to search all groups).
	Group string

	// Parameter is a wire id or a parameter name.
	Parameter string

	// IsPartial indicates the path names a group only ("group/").
	IsPartial bool

	// Raw stores the original input string.
	Raw string
}

// ParsePath parses a path string into a Path struct.
//
// Supported formats:
//   - "parameter" - wire id or name, searched in all groups
//   - "group/parameter" - name or wire id within one group
//   - "group/" - partial (for listing a group)
func ParsePath(input string) (*Path, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return nil, ErrEmptyPath
	}

	parts := strings.Split(raw, "/")
	p := &Path{Raw: raw}
	switch len(parts) {
	case 1:
		p.Parameter = parts[0]
	case 2:
		p.Group = strings.TrimSpace(parts[0])
		p.Parameter = strings.TrimSpace(parts[1])
		if p.Group == "" {
			return nil, fmt.Errorf("%w: empty group in %q", ErrInvalidPath, raw)
		}
		p.IsPartial = p.Parameter == ""
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, raw)
	}
	return p, nil
}

// String returns the canonical form of the path.
func (p *Path) String() string {
	if p.Group == "" {
		return p.Parameter
	}
	return p.Group + "/" + p.Parameter
}

// ResolveGroup finds the group named by the path.
func (p *Path) ResolveGroup(dev *model.Device) (*model.DatumGroup, error) {
	for _, g := range dev.Groups {
		if SameName(g.Name, p.Group) {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrGroupNotFound, p.Group)
}

// Resolve finds the datum named by the path. An exact wire id match wins
// over a name match; a name shared by several parameters is ambiguous.
func (p *Path) Resolve(dev *model.Device) (*model.Datum, error) {
	if p.IsPartial {
		return nil, fmt.Errorf("%w: %q names a group", ErrInvalidPath, p.Raw)
	}

	groups := dev.Groups
	if p.Group != "" {
		g, err := p.ResolveGroup(dev)
		if err != nil {
			return nil, err
		}
		groups = []*model.DatumGroup{g}
	}

	var byName []*model.Datum
	for _, g := range groups {
		for _, d := range g.Data {
			if strings.EqualFold(d.WireID, p.Parameter) {
				return d, nil
			}
			if SameName(d.Name, p.Parameter) {
				byName = append(byName, d)
			}
		}
	}

	switch len(byName) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrParameterNotFound, p.Raw)
	case 1:
		return byName[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousPath, p.Raw)
	}
}

// IsValidPath returns true if the input parses as a path.
func IsValidPath(input string) bool {
	_, err := ParsePath(input)
	return err == nil
}
