package main

import (
	"fmt"
	"go/token"
	"strings"

	"github.com/gizmo-config/gizmo-go/pkg/model"
)

// GenerateOptions controls code generation for one schema.
type GenerateOptions struct {
	// Package is the Go package name of the generated file.
	Package string

	// Prefix is prepended to every generated identifier. Defaults to the
	// Go form of the device name.
	Prefix string

	// Source names the schema file in the generated header.
	Source string
}

// Generate renders Go source declaring the capability and wire id
// constants of dev and a constructor rebuilding the schema.
func Generate(dev *model.Device, opts GenerateOptions) (string, error) {
	if err := dev.Validate(); err != nil {
		return "", fmt.Errorf("invalid schema %q: %w", dev.Name, err)
	}
	if opts.Package == "" {
		return "", fmt.Errorf("package name required")
	}
	if opts.Prefix == "" {
		opts.Prefix = goName(dev.Name)
	}

	data := schemaData{
		Package: opts.Package,
		Source:  opts.Source,
		Prefix:  opts.Prefix,
		Device:  dev,
	}

	consts := newNameSet()
	for _, id := range dev.CapabilityIDs {
		data.Capabilities = append(data.Capabilities, constData{
			Name:  consts.claim(opts.Prefix+"Capability"+identPart(id), id),
			Value: id,
		})
	}

	vars := newNameSet()
	vars.used["dev"] = true
	vars.used["model"] = true
	for _, g := range dev.Groups {
		gd := groupData{
			Var:   vars.claim(varName(goName(g.Name))+"Group", ""),
			Group: g,
		}
		for _, d := range g.Data {
			constName := consts.claim(opts.Prefix+goName(d.Name), d.WireID)
			data.WireIDs = append(data.WireIDs, constData{
				Name:  constName,
				Value: d.WireID,
				Doc:   d.Name,
			})
			gd.Data = append(gd.Data, datumData{
				Var:   vars.claim(varName(goName(d.Name)), d.WireID),
				Const: constName,
				Datum: d,
			})
		}
		data.Groups = append(data.Groups, gd)
	}

	var b strings.Builder
	if err := renderTemplate(&b, "schema", data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// nameSet hands out unique Go identifiers.
type nameSet struct {
	used map[string]bool
}

func newNameSet() *nameSet {
	return &nameSet{used: make(map[string]bool)}
}

// claim returns name, or name qualified by hint (then a counter) when
// name is taken or a keyword.
func (s *nameSet) claim(name, hint string) string {
	candidate := name
	if s.used[candidate] || token.IsKeyword(candidate) {
		candidate = name + identPart(hint)
	}
	for i := 2; s.used[candidate] || token.IsKeyword(candidate); i++ {
		candidate = fmt.Sprintf("%s%d", name, i)
	}
	s.used[candidate] = true
	return candidate
}
