package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ImportError describes a schema document that could not be imported.
type ImportError struct {
	File    string
	Message string
	Cause   error
}

func (e *ImportError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ImportError) Unwrap() error {
	return e.Cause
}

// ParseDevice parses a JSON schema document.
// The imported device and all of its elements get fresh IDs.
func ParseDevice(data []byte) (*Device, error) {
	var d Device
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &ImportError{Message: "failed to parse JSON", Cause: err}
	}
	return finishImport(&d)
}

// ParseDeviceYAML parses a YAML schema document using the same field names
// as the JSON form.
func ParseDeviceYAML(data []byte) (*Device, error) {
	var d Device
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, &ImportError{Message: "failed to parse YAML", Cause: err}
	}
	return finishImport(&d)
}

func finishImport(d *Device) (*Device, error) {
	if err := d.Validate(); err != nil {
		return nil, &ImportError{Message: "invalid schema", Cause: err}
	}
	d.assignIDs()
	return d, nil
}

// LoadDevice reads a schema file. Files ending in .yaml or .yml are parsed
// as YAML, everything else as JSON.
func LoadDevice(path string) (*Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ImportError{File: path, Message: "failed to read file", Cause: err}
	}

	var d *Device
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		d, err = ParseDeviceYAML(data)
	default:
		d, err = ParseDevice(data)
	}
	if err != nil {
		if ie, ok := err.(*ImportError); ok {
			ie.File = path
			return nil, ie
		}
		return nil, &ImportError{File: path, Message: err.Error()}
	}
	return d, nil
}

// MarshalIndent exports the device as indented JSON.
func (d *Device) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// MarshalYAMLDocument exports the device as YAML.
func (d *Device) MarshalYAMLDocument() ([]byte, error) {
	return yaml.Marshal(d)
}

// ExportFileName returns the file name used when exporting the device.
func (d *Device) ExportFileName() string {
	return fmt.Sprintf("%s.json", d.Name)
}

// SaveDevice writes the device to path, as YAML for .yaml/.yml paths and
// JSON otherwise.
func SaveDevice(path string, d *Device) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = d.MarshalYAMLDocument()
	default:
		data, err = d.MarshalIndent()
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
