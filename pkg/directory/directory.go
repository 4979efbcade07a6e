package directory

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gizmo-config/gizmo-go/pkg/model"
	"github.com/google/uuid"
)

// Directory errors.
var (
	ErrDeviceNotFound     = errors.New("device not found")
	ErrDeviceExists       = errors.New("device already registered")
	ErrCapabilityConflict = errors.New("another device has the same capability set")
)

// Store persists the registered schemas.
type Store interface {
	Load() ([]*model.Device, error)
	Save(devices []*model.Device) error
}

// Config configures a Directory.
type Config struct {
	// Store is the optional backing store. When set, the device list is
	// saved after every mutation.
	Store Store

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns a Config without persistence or logging.
func DefaultConfig() Config {
	return Config{}
}

// ChangeFunc is called after the directory contents changed, with the
// new union of capability ids.
type ChangeFunc func(capabilityIDs []string)

// Directory is the registry of device schemas and its derived lookup cache.
type Directory struct {
	mu sync.RWMutex

	store  Store
	logger *slog.Logger

	// devices holds the schemas in registration order.
	devices []*model.Device

	// byKey is the lookup cache keyed by model.CapabilityKey.
	byKey map[string]*model.Device

	// capabilities is the ordered, de-duplicated capability union.
	capabilities []string

	listeners []ChangeFunc
}

// New creates an empty directory.
func New(cfg Config) *Directory {
	return &Directory{
		store:  cfg.Store,
		logger: cfg.Logger,
		byKey:  make(map[string]*model.Device),
	}
}

// Load replaces the directory contents with the schemas from the store.
// Without a store it is a no-op. If any stored schema is rejected the
// previous contents are kept and listeners are not called.
func (d *Directory) Load() error {
	if d.store == nil {
		return nil
	}
	devices, err := d.store.Load()
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	d.mu.Lock()
	prev := d.devices
	d.devices = nil
	for _, dev := range devices {
		if _, err := d.insertLocked(dev); err != nil {
			d.devices = prev
			d.rebuildLocked()
			d.mu.Unlock()
			return fmt.Errorf("load schema %q: %w", dev.Name, err)
		}
	}
	d.rebuildLocked()
	caps := d.capabilitiesLocked()
	d.mu.Unlock()

	d.debug("directory loaded", "devices", len(devices))
	d.notify(caps)
	return nil
}

// Register adds a schema and returns the registered copy.
//
// A schema with the same content fingerprint as one already registered
// is deduplicated and the existing entry is returned. A different schema with the same non-empty
// capability set is rejected with ErrCapabilityConflict.
func (d *Directory) Register(dev *model.Device) (*model.Device, error) {
	if dev == nil {
		return nil, model.ErrNilElement
	}
	if err := dev.Validate(); err != nil {
		return nil, err
	}

	fp := dev.Fingerprint()
	d.mu.Lock()
	for _, existing := range d.devices {
		if existing.Fingerprint() == fp {
			out := existing.Clone()
			d.mu.Unlock()
			d.debug("duplicate schema ignored", "name", dev.Name, "id", out.ID)
			return out, nil
		}
	}
	stored, err := d.insertLocked(dev)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.rebuildLocked()
	out := stored.Clone()
	snapshot, caps := d.snapshotLocked(), d.capabilitiesLocked()
	d.mu.Unlock()

	d.debug("schema registered", "name", out.Name, "id", out.ID, "capabilities", out.CapabilityKey(), "fingerprint", fp)
	d.notify(caps)
	return out, d.save(snapshot)
}

// Unregister removes the schema with the given ID.
func (d *Directory) Unregister(id string) error {
	d.mu.Lock()
	idx := d.indexLocked(id)
	if idx < 0 {
		d.mu.Unlock()
		return ErrDeviceNotFound
	}
	d.devices = append(d.devices[:idx], d.devices[idx+1:]...)
	d.rebuildLocked()
	snapshot, caps := d.snapshotLocked(), d.capabilitiesLocked()
	d.mu.Unlock()

	d.debug("schema unregistered", "id", id)
	d.notify(caps)
	return d.save(snapshot)
}

// Update applies fn to a copy of the schema, validates the result and
// replaces the registered schema with it. The schema ID cannot change.
func (d *Directory) Update(id string, fn func(dev *model.Device)) error {
	d.mu.Lock()
	idx := d.indexLocked(id)
	if idx < 0 {
		d.mu.Unlock()
		return ErrDeviceNotFound
	}

	updated := d.devices[idx].Clone()
	fn(updated)
	updated.ID = id

	if err := updated.Validate(); err != nil {
		d.mu.Unlock()
		return err
	}
	if other := d.conflictLocked(updated, id); other != nil {
		d.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrCapabilityConflict, other.Name)
	}

	d.devices[idx] = updated
	d.rebuildLocked()
	snapshot, caps := d.snapshotLocked(), d.capabilitiesLocked()
	d.mu.Unlock()

	d.debug("schema updated", "id", id, "capabilities", updated.CapabilityKey())
	d.notify(caps)
	return d.save(snapshot)
}

// Lookup returns the schema whose capability set equals capabilityIDs.
// Order and duplicates in capabilityIDs are irrelevant.
func (d *Directory) Lookup(capabilityIDs []string) (*model.Device, bool) {
	key := model.CapabilityKey(capabilityIDs)
	if key == "" {
		return nil, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	dev, ok := d.byKey[key]
	if !ok {
		return nil, false
	}
	return dev.Clone(), true
}

// Device returns a copy of the schema with the given ID.
func (d *Directory) Device(id string) (*model.Device, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	idx := d.indexLocked(id)
	if idx < 0 {
		return nil, false
	}
	return d.devices[idx].Clone(), true
}

// Devices returns copies of all schemas in registration order.
func (d *Directory) Devices() []*model.Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

// CapabilityIDs returns the union of all capability ids in registration
// order, without duplicates.
func (d *Directory) CapabilityIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.capabilitiesLocked()
}

// Len returns the number of registered schemas.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.devices)
}

// OnChange registers a listener called after every change to the
// directory contents. Listeners run synchronously on the mutating
// goroutine, after the lock is released.
func (d *Directory) OnChange(fn ChangeFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// insertLocked stores a copy of dev after checking ID and capability
// conflicts. The caller rebuilds the cache.
func (d *Directory) insertLocked(dev *model.Device) (*model.Device, error) {
	if err := dev.Validate(); err != nil {
		return nil, err
	}
	stored := dev.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if d.indexLocked(stored.ID) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDeviceExists, stored.ID)
	}
	if other := d.conflictLocked(stored, ""); other != nil {
		return nil, fmt.Errorf("%w: %q", ErrCapabilityConflict, other.Name)
	}
	d.devices = append(d.devices, stored)
	return stored, nil
}

// conflictLocked returns a registered schema other than skipID with the
// same non-empty capability set as dev.
func (d *Directory) conflictLocked(dev *model.Device, skipID string) *model.Device {
	key := dev.CapabilityKey()
	if key == "" {
		return nil
	}
	for _, existing := range d.devices {
		if existing.ID != skipID && existing.CapabilityKey() == key {
			return existing
		}
	}
	return nil
}

func (d *Directory) rebuildLocked() {
	d.byKey = make(map[string]*model.Device, len(d.devices))
	d.capabilities = d.capabilities[:0]
	seen := make(map[string]struct{})

	for _, dev := range d.devices {
		if key := dev.CapabilityKey(); key != "" {
			d.byKey[key] = dev
		}
		for _, id := range dev.CapabilityIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			d.capabilities = append(d.capabilities, id)
		}
	}
}

func (d *Directory) indexLocked(id string) int {
	for i, dev := range d.devices {
		if dev.ID == id {
			return i
		}
	}
	return -1
}

func (d *Directory) snapshotLocked() []*model.Device {
	out := make([]*model.Device, len(d.devices))
	for i, dev := range d.devices {
		out[i] = dev.Clone()
	}
	return out
}

func (d *Directory) capabilitiesLocked() []string {
	out := make([]string, len(d.capabilities))
	copy(out, d.capabilities)
	return out
}

func (d *Directory) notify(capabilityIDs []string) {
	d.mu.RLock()
	listeners := make([]ChangeFunc, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for _, fn := range listeners {
		fn(capabilityIDs)
	}
}

func (d *Directory) save(devices []*model.Device) error {
	if d.store == nil {
		return nil
	}
	if err := d.store.Save(devices); err != nil {
		if d.logger != nil {
			d.logger.Warn("failed to persist schemas", "error", err)
		}
		return fmt.Errorf("save schemas: %w", err)
	}
	return nil
}

func (d *Directory) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
