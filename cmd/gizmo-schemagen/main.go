// Command gizmo-schemagen generates Go declarations from device schema
// files.
//
// For each schema (JSON or YAML interchange format) it writes a file with
// the capability IDs, the parameter wire IDs, and a constructor that
// rebuilds the schema in code.
//
// Usage:
//
//	gizmo-schemagen -package schemas -output ./schemas nixie.json sensor.yaml
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gizmo-config/gizmo-go/pkg/model"
	"golang.org/x/tools/imports"
)

func main() {
	pkg := flag.String("package", "schemas", "Package name of the generated files")
	prefix := flag.String("prefix", "", "Identifier prefix (default: derived from the device name)")
	outputDir := flag.String("output", "", "Output directory for generated Go files")
	flag.Parse()

	if *outputDir == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: gizmo-schemagen -output <dir> [-package <name>] [-prefix <name>] <schema>...")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(flag.Args(), *pkg, *prefix, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(paths []string, pkg, prefix, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	for _, path := range paths {
		dev, err := model.LoadDevice(path)
		if err != nil {
			return err
		}

		code, err := Generate(dev, GenerateOptions{
			Package: pkg,
			Prefix:  prefix,
			Source:  filepath.Base(path),
		})
		if err != nil {
			return err
		}

		outPath := filepath.Join(outputDir, outputFileName(path))
		if err := writeFormatted(outPath, code); err != nil {
			return fmt.Errorf("writing %s: %w", filepath.Base(outPath), err)
		}
		fmt.Printf("  generated %s\n", outPath)
	}
	return nil
}

// outputFileName converts "Nixie Clock.json" to "nixie_clock_gen.go".
func outputFileName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.ToLower(strings.Join(strings.FieldsFunc(base, func(r rune) bool {
		return r == ' ' || r == '-' || r == '.'
	}), "_"))
	return base + "_gen.go"
}

// writeFormatted formats Go source code with goimports and writes it to a file.
func writeFormatted(path string, code string) error {
	formatted, err := format(path, code)
	if err != nil {
		// Write unformatted so you can debug the generator output
		_ = os.WriteFile(path+".broken", []byte(code), 0o644)
		return err
	}
	return os.WriteFile(path, formatted, 0o644)
}

func format(path, code string) ([]byte, error) {
	formatted, err := imports.Process(path, []byte(code), nil)
	if err != nil {
		return nil, fmt.Errorf("goimports %s: %w", filepath.Base(path), err)
	}
	return formatted, nil
}
