// Package cli holds the start-up plumbing shared by the gizmo commands:
// flag and YAML configuration, slog setup and protocol log files.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrHelp is returned by Parse when -h or -help was requested.
var ErrHelp = flag.ErrHelp

// BindFunc registers the flags of cfg on fs. Flag defaults must be the
// current field values, e.g.
//
//	fs.StringVar(&cfg.Name, "name", cfg.Name, "display name")
type BindFunc[T any] func(fs *flag.FlagSet, cfg *T)

// Parse builds a configuration from defaults, an optional YAML file named
// by -config, and the command-line flags, in increasing precedence.
func Parse[T any](name string, args []string, defaults T, bind BindFunc[T]) (*T, error) {
	cfg := defaults
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var configPath string
	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	bind(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if configPath == "" {
		return &cfg, nil
	}

	fileCfg := defaults
	if err := LoadYAML(configPath, &fileCfg); err != nil {
		return nil, err
	}

	// Explicitly set flags win over the file.
	over := flag.NewFlagSet(name, flag.ContinueOnError)
	bind(over, &fileCfg)
	var errs []error
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			return
		}
		if err := over.Set(f.Name, f.Value.String()); err != nil {
			errs = append(errs, fmt.Errorf("flag -%s: %w", f.Name, err))
		}
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &fileCfg, nil
}

// LoadYAML decodes a YAML file into v. Unknown keys are rejected.
func LoadYAML(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
