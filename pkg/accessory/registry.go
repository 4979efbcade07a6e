package accessory

import (
	"errors"
	"sort"
	"sync"

	"github.com/gizmo-config/gizmo-go/pkg/directory"
	"github.com/gizmo-config/gizmo-go/pkg/log"
	"github.com/gizmo-config/gizmo-go/pkg/model"
)

// ErrAccessoryNotFound is returned for unknown instance ids.
var ErrAccessoryNotFound = errors.New("accessory not found")

// Directory is the schema lookup used by the Registry. It is satisfied by
// *directory.Directory.
type Directory interface {
	SchemaSource
	Lookup(capabilityIDs []string) (*model.Device, bool)
	CapabilityIDs() []string
	Len() int
	OnChange(fn directory.ChangeFunc)
}

var _ Directory = (*directory.Directory)(nil)

// EventType identifies registry events.
type EventType uint8

const (
	// EventDiscovered - a peripheral matched a schema and was added.
	EventDiscovered EventType = iota

	// EventStateChanged - an accessory changed lifecycle state.
	EventStateChanged

	// EventValue - a parameter value was ingested.
	EventValue

	// EventWriteResult - the transport reported a write result.
	EventWriteResult

	// EventRemoved - an accessory was dropped.
	EventRemoved
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventDiscovered:
		return "DISCOVERED"
	case EventStateChanged:
		return "STATE_CHANGED"
	case EventValue:
		return "VALUE"
	case EventWriteResult:
		return "WRITE_RESULT"
	case EventRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Event is a registry event.
type Event struct {
	Type       EventType
	InstanceID string

	// State is the accessory state after the event.
	State State

	// WireID is set for value and write result events.
	WireID string

	// Error is set for failed write results.
	Error error
}

// EventHandler handles registry events.
type EventHandler func(Event)

// Registry owns the accessories of recognized peripherals, keyed by
// instance id.
//
// Any change to the directory drops every accessory, disconnecting the
// connected ones, and restarts discovery with the new capability union.
type Registry struct {
	mu sync.RWMutex

	directory Directory
	transport Transport
	config    Config

	accessories map[string]*Accessory
	handlers    []EventHandler
}

var _ EventSink = (*Registry)(nil)

// NewRegistry creates a registry and subscribes it to directory changes.
func NewRegistry(dir Directory, transport Transport, cfg Config) *Registry {
	r := &Registry{
		directory:   dir,
		transport:   transport,
		config:      cfg,
		accessories: make(map[string]*Accessory),
	}
	dir.OnChange(r.handleSchemasChanged)
	cfg.Metrics.SetSchemas(dir.Len())
	return r
}

// Start scopes transport discovery to the directory's capability union.
func (r *Registry) Start() error {
	r.config.Metrics.SetSchemas(r.directory.Len())
	return r.transport.SetDiscoveryFilter(r.directory.CapabilityIDs())
}

// OnEvent registers an event handler. Handlers run synchronously on the
// goroutine that delivered the transport event.
func (r *Registry) OnEvent(handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
}

// Accessory returns the accessory for an instance id, or nil.
func (r *Registry) Accessory(instanceID string) *Accessory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accessories[instanceID]
}

// Accessories returns all accessories ordered by instance id.
func (r *Registry) Accessories() []*Accessory {
	r.mu.RLock()
	out := make([]*Accessory, 0, len(r.accessories))
	for _, a := range r.accessories {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Remove disconnects and drops an accessory.
func (r *Registry) Remove(instanceID string) error {
	r.mu.Lock()
	a, ok := r.accessories[instanceID]
	delete(r.accessories, instanceID)
	r.mu.Unlock()

	if !ok {
		return ErrAccessoryNotFound
	}
	err := a.Disconnect()
	r.drop(a)
	return err
}

// HandleDiscovered classifies a discovered peripheral. Peripherals whose
// capability set matches no schema are ignored, as are instances already
// known.
func (r *Registry) HandleDiscovered(instanceID, name string, capabilityIDs []string) {
	if r.Accessory(instanceID) != nil {
		return
	}

	dev, ok := r.directory.Lookup(capabilityIDs)
	r.config.Metrics.Discovered(ok)
	if !ok {
		r.debug("peripheral not recognized", "instance", instanceID, "capabilities", model.CapabilityKey(capabilityIDs))
		return
	}

	r.mu.Lock()
	if _, exists := r.accessories[instanceID]; exists {
		r.mu.Unlock()
		return
	}
	a := New(instanceID, name, dev.ID, r.directory, r.transport, r.config)
	a.OnStateChange(func(_, newState State) {
		r.emit(Event{Type: EventStateChanged, InstanceID: instanceID, State: newState})
	})
	r.accessories[instanceID] = a
	r.mu.Unlock()

	r.debug("peripheral recognized", "instance", instanceID, "name", a.Name(), "schema", dev.Name)
	log.Stamp(r.config.ProtocolLogger, log.Event{
		Direction:  log.DirectionIn,
		Layer:      log.LayerSession,
		Category:   log.CategoryState,
		InstanceID: instanceID,
		SchemaID:   dev.ID,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDiscovery,
			NewState: "DISCOVERED",
			Reason:   dev.Name,
		},
	})
	r.emit(Event{Type: EventDiscovered, InstanceID: instanceID, State: StateDisconnected})
}

// HandleConnected forwards a connected event.
func (r *Registry) HandleConnected(instanceID string) {
	if a := r.lookup(instanceID, "connected"); a != nil {
		a.HandleConnected()
	}
}

// HandleDisconnected forwards a disconnected event.
func (r *Registry) HandleDisconnected(instanceID string) {
	if a := r.lookup(instanceID, "disconnected"); a != nil {
		a.HandleDisconnected()
	}
}

// HandleValueRead forwards a parameter value. Rejected values are logged
// by the accessory.
func (r *Registry) HandleValueRead(instanceID, wireID string, data []byte) {
	a := r.lookup(instanceID, "value")
	if a == nil {
		return
	}
	if err := a.HandleValue(wireID, data); err != nil {
		return
	}
	r.emit(Event{Type: EventValue, InstanceID: instanceID, State: a.State(), WireID: wireID})
}

// HandleWriteResult forwards a write result.
func (r *Registry) HandleWriteResult(instanceID, wireID string, err error) {
	a := r.lookup(instanceID, "write result")
	if a == nil {
		return
	}
	a.HandleWriteResult(wireID, err)
	r.emit(Event{Type: EventWriteResult, InstanceID: instanceID, State: a.State(), WireID: wireID, Error: err})
}

func (r *Registry) handleSchemasChanged(capabilityIDs []string) {
	r.mu.Lock()
	dropped := make([]*Accessory, 0, len(r.accessories))
	for _, a := range r.accessories {
		dropped = append(dropped, a)
	}
	r.accessories = make(map[string]*Accessory)
	r.mu.Unlock()

	r.config.Metrics.SetSchemas(r.directory.Len())
	for _, a := range dropped {
		if err := a.Disconnect(); err != nil && r.config.Logger != nil {
			r.config.Logger.Warn("disconnect failed", "instance", a.ID(), "error", err)
		}
		r.drop(a)
	}

	if err := r.transport.SetDiscoveryFilter(capabilityIDs); err != nil && r.config.Logger != nil {
		r.config.Logger.Warn("failed to update discovery filter", "error", err)
	}
	r.debug("schemas changed, discovery restarted", "capabilities", len(capabilityIDs), "dropped", len(dropped))
}

func (r *Registry) drop(a *Accessory) {
	a.OnStateChange(nil)
	a.retire()
	r.emit(Event{Type: EventRemoved, InstanceID: a.ID(), State: a.State()})
}

func (r *Registry) lookup(instanceID, what string) *Accessory {
	a := r.Accessory(instanceID)
	if a == nil {
		r.debug("event for unknown instance ignored", "instance", instanceID, "event", what)
	}
	return a
}

func (r *Registry) emit(e Event) {
	r.mu.RLock()
	handlers := make([]EventHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

func (r *Registry) debug(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, args...)
	}
}
