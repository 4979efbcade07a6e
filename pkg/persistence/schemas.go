package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gizmo-config/gizmo-go/pkg/model"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ErrUnsupportedVersion is returned for files written by a newer version.
var ErrUnsupportedVersion = errors.New("unsupported state file version")

// SchemaFile is the on-disk form of the schema repository.
type SchemaFile struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the repository was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Schemas are the stored device schemas in registration order.
	Schemas []StoredSchema `json:"schemas"`
}

// StoredSchema pairs a schema document with its lookup key. The key is
// kept so that it stays stable across restarts.
type StoredSchema struct {
	ID     string          `json:"id"`
	Schema json.RawMessage `json:"schema"`
}

// SchemaStore persists device schemas to a JSON file.
type SchemaStore struct {
	mu   sync.Mutex
	path string
}

// NewSchemaStore creates a schema store backed by path.
func NewSchemaStore(path string) *SchemaStore {
	return &SchemaStore{path: path}
}

// Path returns the file path of the store.
func (s *SchemaStore) Path() string {
	return s.path
}

// Save writes the schemas to disk, replacing the previous contents.
func (s *SchemaStore) Save(devices []*model.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := SchemaFile{
		Version: StateVersion,
		SavedAt: time.Now(),
		Schemas: make([]StoredSchema, 0, len(devices)),
	}
	for _, dev := range devices {
		raw, err := json.Marshal(dev)
		if err != nil {
			return fmt.Errorf("encode schema %q: %w", dev.Name, err)
		}
		file.Schemas = append(file.Schemas, StoredSchema{ID: dev.ID, Schema: raw})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(s.path, data)
}

// Load reads the schemas from disk. A missing file is an empty repository.
// Every schema is validated; stored IDs are kept.
func (s *SchemaStore) Load() ([]*model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var file SchemaFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if file.Version > StateVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, file.Version)
	}

	devices := make([]*model.Device, 0, len(file.Schemas))
	for i, stored := range file.Schemas {
		dev, err := model.ParseDevice(stored.Schema)
		if err != nil {
			return nil, fmt.Errorf("schema %d: %w", i, err)
		}
		if stored.ID != "" {
			dev.ID = stored.ID
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// Clear removes the store file.
func (s *SchemaStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.path)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func removeFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
