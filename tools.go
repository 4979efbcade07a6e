//go:build tools

package tools

// Tool dependencies are not tracked here with blank imports.
// mockery v3 is used as an installed binary (not via go run), so no
// import is needed. Run: mockery (from gizmo-go/) to regenerate the
// accessory.Transport mock in pkg/accessory/mocks.
