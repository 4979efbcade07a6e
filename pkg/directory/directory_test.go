package directory

import (
	"errors"
	"testing"

	"github.com/gizmo-config/gizmo-go/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	devices []*model.Device
	saves   int
	err     error
}

func (s *memStore) Load() ([]*model.Device, error) { return s.devices, s.err }

func (s *memStore) Save(devices []*model.Device) error {
	s.saves++
	s.devices = devices
	return s.err
}

func schema(name string, caps ...string) *model.Device {
	d := model.NewDevice(name, caps...)
	g := model.NewDatumGroup("Main", 0)
	g.AddDatum(model.NewDatum(model.EncodingUint8, name+"-A", "A"))
	d.AddGroup(g)
	return d
}

func TestLookupExactMatch(t *testing.T) {
	dir := New(DefaultConfig())

	clock, err := dir.Register(schema("Clock", "185C", "185D"))
	require.NoError(t, err)
	lamp, err := dir.Register(schema("Lamp", "1815"))
	require.NoError(t, err)

	got, ok := dir.Lookup([]string{"185D", "185C"})
	require.True(t, ok)
	assert.Equal(t, clock.ID, got.ID)

	got, ok = dir.Lookup([]string{"1815", "1815"})
	require.True(t, ok)
	assert.Equal(t, lamp.ID, got.ID)

	_, ok = dir.Lookup([]string{"185C"})
	assert.False(t, ok, "strict subset must not match")

	_, ok = dir.Lookup([]string{"185C", "185D", "1815"})
	assert.False(t, ok, "superset must not match")

	_, ok = dir.Lookup(nil)
	assert.False(t, ok)
}

func TestCapabilityUnion(t *testing.T) {
	dir := New(DefaultConfig())
	_, err := dir.Register(schema("Clock", "185C", "185D"))
	require.NoError(t, err)
	_, err = dir.Register(schema("Other", "185D", "185E"))
	require.NoError(t, err)

	assert.Equal(t, []string{"185C", "185D", "185E"}, dir.CapabilityIDs())
}

func TestRegisterDeduplicates(t *testing.T) {
	dir := New(DefaultConfig())

	first, err := dir.Register(schema("Clock", "185D"))
	require.NoError(t, err)

	again, err := dir.Register(schema("Clock", "185D"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, dir.Len())

	bare := schema("Bare")
	bare.CapabilityIDs = nil
	stored, err := dir.Register(bare)
	require.NoError(t, err)
	again, err = dir.Register(schema("Bare"))
	require.NoError(t, err)
	assert.Equal(t, stored.ID, again.ID, "nil and empty capability lists are the same content")
	assert.Equal(t, 2, dir.Len())
}

func TestRegisterConflicts(t *testing.T) {
	dir := New(DefaultConfig())
	_, err := dir.Register(schema("Clock", "185D"))
	require.NoError(t, err)

	_, err = dir.Register(schema("Different Clock", "185D"))
	assert.True(t, errors.Is(err, ErrCapabilityConflict), "got %v", err)

	bad := schema("Bad", "AAAA")
	bad.Groups[0].Data[0].Scalar = 0
	_, err = dir.Register(bad)
	assert.True(t, errors.Is(err, model.ErrZeroScalar), "got %v", err)

	_, err = dir.Register(nil)
	assert.Error(t, err)
	assert.Equal(t, 1, dir.Len())
}

func TestEmptyCapabilitySetNeverMatches(t *testing.T) {
	dir := New(DefaultConfig())
	_, err := dir.Register(schema("Draft"))
	require.NoError(t, err)
	_, err = dir.Register(schema("Other Draft"))
	require.NoError(t, err, "empty capability sets do not conflict")

	_, ok := dir.Lookup([]string{})
	assert.False(t, ok)
	assert.Empty(t, dir.CapabilityIDs())
}

func TestUnregisterRebuilds(t *testing.T) {
	dir := New(DefaultConfig())
	clock, err := dir.Register(schema("Clock", "185D"))
	require.NoError(t, err)

	require.NoError(t, dir.Unregister(clock.ID))
	_, ok := dir.Lookup([]string{"185D"})
	assert.False(t, ok)
	assert.Empty(t, dir.CapabilityIDs())

	assert.ErrorIs(t, dir.Unregister(clock.ID), ErrDeviceNotFound)
}

func TestUpdateCapabilities(t *testing.T) {
	dir := New(DefaultConfig())
	clock, err := dir.Register(schema("Clock", "185D"))
	require.NoError(t, err)
	_, err = dir.Register(schema("Lamp", "1815"))
	require.NoError(t, err)

	require.NoError(t, dir.Update(clock.ID, func(d *model.Device) {
		d.AddCapability("185E")
	}))

	_, ok := dir.Lookup([]string{"185D"})
	assert.False(t, ok, "old capability set must no longer match")
	got, ok := dir.Lookup([]string{"185D", "185E"})
	require.True(t, ok)
	assert.Equal(t, clock.ID, got.ID)

	err = dir.Update(clock.ID, func(d *model.Device) {
		d.CapabilityIDs = []string{"1815"}
	})
	assert.ErrorIs(t, err, ErrCapabilityConflict)

	err = dir.Update(clock.ID, func(d *model.Device) {
		d.Groups[0].Data[0].Scalar = 0
	})
	assert.ErrorIs(t, err, model.ErrZeroScalar)

	// Failed updates leave the schema untouched.
	got, _ = dir.Device(clock.ID)
	assert.Equal(t, int64(1), got.Groups[0].Data[0].Scalar)

	assert.ErrorIs(t, dir.Update("missing", func(*model.Device) {}), ErrDeviceNotFound)
}

func TestReturnedCopiesDoNotAlias(t *testing.T) {
	dir := New(DefaultConfig())
	clock, err := dir.Register(schema("Clock", "185D"))
	require.NoError(t, err)

	clock.CapabilityIDs[0] = "FFFF"
	got, ok := dir.Lookup([]string{"185D"})
	require.True(t, ok)
	got.Name = "Changed"

	again, _ := dir.Device(clock.ID)
	assert.Equal(t, "Clock", again.Name)
	assert.Equal(t, []string{"185D"}, again.CapabilityIDs)
}

func TestOnChange(t *testing.T) {
	dir := New(DefaultConfig())

	var calls [][]string
	dir.OnChange(func(caps []string) {
		// Listeners may read the directory; the cache is already rebuilt.
		_, ok := dir.Lookup(caps)
		_ = ok
		calls = append(calls, caps)
	})

	clock, err := dir.Register(schema("Clock", "185D"))
	require.NoError(t, err)
	_, err = dir.Register(schema("Clock", "185D"))
	require.NoError(t, err)
	require.NoError(t, dir.Unregister(clock.ID))

	require.Len(t, calls, 2, "deduplicated registration does not notify")
	assert.Equal(t, []string{"185D"}, calls[0])
	assert.Empty(t, calls[1])
}

func TestStorePersistence(t *testing.T) {
	store := &memStore{}
	dir := New(Config{Store: store})

	clock, err := dir.Register(schema("Clock", "185D"))
	require.NoError(t, err)
	require.Len(t, store.devices, 1)
	assert.Equal(t, 1, store.saves)

	reloaded := New(Config{Store: store})
	require.NoError(t, reloaded.Load())
	got, ok := reloaded.Lookup([]string{"185D"})
	require.True(t, ok)
	assert.Equal(t, clock.ID, got.ID)

	store.err = errors.New("disk full")
	_, err = dir.Register(schema("Lamp", "1815"))
	assert.Error(t, err)
	assert.Equal(t, 2, dir.Len(), "registration stands even if saving fails")
}

func TestLoadRejectsConflicts(t *testing.T) {
	store := &memStore{devices: []*model.Device{
		schema("Clock", "185D"),
		schema("Other", "185D"),
	}}
	dir := New(Config{Store: store})

	assert.ErrorIs(t, dir.Load(), ErrCapabilityConflict)
	assert.Equal(t, 0, dir.Len())
}

func TestFailedLoadKeepsContents(t *testing.T) {
	store := &memStore{}
	dir := New(Config{Store: store})
	clock, err := dir.Register(schema("Clock", "185D"))
	require.NoError(t, err)

	var changes [][]string
	dir.OnChange(func(ids []string) { changes = append(changes, ids) })

	store.devices = []*model.Device{
		schema("Clock", "185D"),
		schema("Other", "185D"),
	}
	assert.ErrorIs(t, dir.Load(), ErrCapabilityConflict)

	assert.Equal(t, 1, dir.Len())
	got, ok := dir.Lookup([]string{"185D"})
	require.True(t, ok)
	assert.Equal(t, clock.ID, got.ID)
	assert.Equal(t, []string{"185D"}, dir.CapabilityIDs())
	assert.Empty(t, changes)
}
