package accessory

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gizmo-config/gizmo-go/pkg/codec"
	"github.com/gizmo-config/gizmo-go/pkg/log"
	"github.com/gizmo-config/gizmo-go/pkg/metrics"
	"github.com/gizmo-config/gizmo-go/pkg/model"
	"github.com/google/uuid"
)

// Accessory errors.
var (
	ErrInvalidState   = errors.New("invalid state for operation")
	ErrNotConnected   = errors.New("accessory is not connected")
	ErrNotPopulated   = errors.New("accessory is not populated")
	ErrNotObserved    = errors.New("parameter not observed")
	ErrUnknownWireID  = errors.New("unknown wire id")
	ErrReadOnly       = errors.New("parameter is read-only")
	ErrUnencodable    = errors.New("value cannot be encoded for parameter")
	ErrSchemaNotFound = errors.New("schema not found")
)

// NoName is the display name of peripherals that advertise none.
const NoName = "No Name"

// Config configures accessories.
type Config struct {
	// RequireWriteAck commits a pushed value to the baseline only when the
	// transport reports a successful write result for it. By default the
	// baseline is committed as soon as the write has been handed to the
	// transport.
	RequireWriteAck bool

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives value, write and state events (optional).
	ProtocolLogger log.Logger

	// Metrics is the optional metrics collector.
	Metrics *metrics.Collector
}

// DefaultConfig returns a Config with optimistic commit and no logging.
func DefaultConfig() Config {
	return Config{}
}

// Write is a parameter write emitted by Push.
type Write struct {
	WireID string
	Data   []byte
}

// StateChangeFunc is called after an accessory changed state.
type StateChangeFunc func(oldState, newState State)

// Accessory is the live session of one recognized peripheral.
//
// All methods are safe for concurrent use; they are serialized by a
// mutex scoped to the accessory. Transport calls and callbacks run
// outside the lock, so a transport may deliver events synchronously.
type Accessory struct {
	mu sync.Mutex

	id        string
	name      string
	schemaID  string
	schemas   SchemaSource
	transport Transport
	config    Config

	state     State
	sessionID string

	// baseline holds the last bytes reported by the peripheral; its keys
	// are the observed parameters.
	baseline map[string][]byte

	// editable is the user's working copy, set on population.
	editable map[string][]byte

	// pending holds writes awaiting a result when RequireWriteAck is set.
	pending map[string][]byte

	onStateChange StateChangeFunc
}

// New creates a disconnected accessory bound to a schema by ID.
// An empty name is replaced by NoName.
func New(id, name, schemaID string, schemas SchemaSource, transport Transport, cfg Config) *Accessory {
	if name == "" {
		name = NoName
	}
	a := &Accessory{
		id:        id,
		name:      name,
		schemaID:  schemaID,
		schemas:   schemas,
		transport: transport,
		config:    cfg,
		state:     StateDisconnected,
		baseline:  make(map[string][]byte),
		editable:  make(map[string][]byte),
		pending:   make(map[string][]byte),
	}
	cfg.Metrics.StateChanged("", StateDisconnected.String())
	return a
}

// ID returns the transport instance id.
func (a *Accessory) ID() string { return a.id }

// Name returns the advertised peripheral name.
func (a *Accessory) Name() string { return a.name }

// SchemaID returns the ID of the matched schema.
func (a *Accessory) SchemaID() string { return a.schemaID }

// State returns the lifecycle state.
func (a *Accessory) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SessionID returns the ID of the current connection, or "" when
// disconnected.
func (a *Accessory) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// OnStateChange sets a callback for state changes.
func (a *Accessory) OnStateChange(fn StateChangeFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStateChange = fn
}

// Schema resolves the matched schema.
func (a *Accessory) Schema() (*model.Device, error) {
	dev, ok := a.schemas.Device(a.schemaID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, a.schemaID)
	}
	return dev, nil
}

// Connect requests a connection. Only valid when disconnected.
func (a *Accessory) Connect() error {
	a.mu.Lock()
	if a.state != StateDisconnected {
		state := a.state
		a.mu.Unlock()
		return fmt.Errorf("%w: connect while %s", ErrInvalidState, state)
	}
	a.state = StateConnecting
	a.mu.Unlock()
	a.notify(StateDisconnected, StateConnecting, "connect requested")

	if err := a.transport.Connect(a.id); err != nil {
		a.mu.Lock()
		old := a.state
		if old == StateConnecting {
			a.clearLocked()
		}
		a.mu.Unlock()
		a.notify(old, a.State(), "connect failed")
		return fmt.Errorf("connect %s: %w", a.id, err)
	}
	return nil
}

// Disconnect drops the session and requests the transport to close the
// connection. Population progress and edits are discarded.
func (a *Accessory) Disconnect() error {
	a.mu.Lock()
	old := a.state
	a.clearLocked()
	a.mu.Unlock()

	if old == StateDisconnected {
		return nil
	}
	a.notify(old, StateDisconnected, "disconnect requested")

	if err := a.transport.Disconnect(a.id); err != nil {
		return fmt.Errorf("disconnect %s: %w", a.id, err)
	}
	return nil
}

// HandleConnected records that the transport connected. Population starts
// from empty; a schema without readable parameters is populated at once.
func (a *Accessory) HandleConnected() {
	dev, err := a.Schema()

	a.mu.Lock()
	old := a.state
	if old.IsConnected() {
		a.mu.Unlock()
		return
	}
	a.clearLocked()
	a.state = StateConnected
	a.sessionID = uuid.NewString()
	a.mu.Unlock()

	a.notify(old, StateConnected, "transport connected")

	if err == nil && len(dev.ReadableWireIDs()) == 0 {
		a.mu.Lock()
		promoted := a.state == StateConnected
		if promoted {
			a.state = StatePopulated
		}
		a.mu.Unlock()
		if promoted {
			a.notify(StateConnected, StatePopulated, "no readable parameters")
		}
	}
}

// HandleDisconnected records that the transport disconnected.
func (a *Accessory) HandleDisconnected() {
	a.mu.Lock()
	old := a.state
	a.clearLocked()
	a.mu.Unlock()

	a.notify(old, StateDisconnected, "transport disconnected")
}

// HandleValue ingests a parameter value reported by the peripheral.
//
// The bytes are stored undecoded in the baseline. Values for unknown or
// write-only parameters, and buffers narrower than the parameter's
// encoding, are logged and dropped; a dropped parameter stays unobserved.
// After population a new value also replaces the editable entry unless
// the user has edited it.
func (a *Accessory) HandleValue(wireID string, data []byte) error {
	dev, err := a.Schema()
	if err != nil {
		return err
	}
	datum, known := dev.DatumByWireID(wireID)

	a.mu.Lock()
	session := a.sessionID
	if !a.state.IsConnected() {
		state := a.state
		a.mu.Unlock()
		a.config.Metrics.ValueIngested(metrics.ResultIgnored)
		return fmt.Errorf("%w: value for %s while %s", ErrNotConnected, wireID, state)
	}
	if !known {
		a.mu.Unlock()
		a.config.Metrics.ValueIngested(metrics.ResultUnknown)
		a.warn("value for unknown parameter ignored", "wire_id", wireID)
		a.logError(session, log.LayerSession, "unknown wire id", wireID)
		return fmt.Errorf("%w: %s", ErrUnknownWireID, wireID)
	}
	if !datum.Access.CanRead() {
		a.mu.Unlock()
		a.config.Metrics.ValueIngested(metrics.ResultIgnored)
		a.debug("value for write-only parameter ignored", "wire_id", wireID)
		return nil
	}
	if err := codec.CheckWidth(datum, data); err != nil {
		a.mu.Unlock()
		a.config.Metrics.ValueIngested(metrics.ResultCorrupt)
		a.warn("corrupt value dropped", "wire_id", wireID, "size", len(data), "error", err)
		a.logError(session, log.LayerCodec, err.Error(), wireID)
		return err
	}

	stored := cloneBytes(data)
	prev, had := a.baseline[wireID]
	a.baseline[wireID] = stored

	old := a.state
	switch a.state {
	case StateConnected:
		if dev.Populated(keys(a.baseline)) {
			a.editable = cloneMap(a.baseline)
			a.state = StatePopulated
		}
	case StatePopulated:
		if cur, ok := a.editable[wireID]; !ok || (had && bytes.Equal(cur, prev)) {
			a.editable[wireID] = cloneBytes(stored)
		}
	}
	newState := a.state
	a.mu.Unlock()

	a.config.Metrics.ValueIngested(metrics.ResultStored)
	log.Stamp(a.config.ProtocolLogger, log.Event{
		SessionID:  session,
		Direction:  log.DirectionIn,
		Layer:      log.LayerCodec,
		Category:   log.CategoryMessage,
		InstanceID: a.id,
		SchemaID:   a.schemaID,
		Value: &log.ValueEvent{
			WireID:  wireID,
			Data:    cloneBytes(data),
			Decoded: codec.Decode(datum, data).String(),
		},
	})
	a.notify(old, newState, "all readable parameters observed")
	return nil
}

// Value decodes the current value of a parameter: the editable copy once
// populated, the baseline before.
func (a *Accessory) Value(wireID string) (codec.Value, error) {
	return a.decode(wireID, false)
}

// BaselineValue decodes the value last reported by the peripheral.
func (a *Accessory) BaselineValue(wireID string) (codec.Value, error) {
	return a.decode(wireID, true)
}

func (a *Accessory) decode(wireID string, fromBaseline bool) (codec.Value, error) {
	datum, err := a.datum(wireID)
	if err != nil {
		return codec.Value{}, err
	}

	a.mu.Lock()
	src := a.baseline
	if !fromBaseline && a.state == StatePopulated {
		src = a.editable
	}
	data, ok := src[wireID]
	a.mu.Unlock()

	if !ok {
		return codec.Zero(datum.Encoding), fmt.Errorf("%w: %s", ErrNotObserved, wireID)
	}
	return codec.Decode(datum, data), nil
}

// SetValue encodes v and stores it in the editable copy. Read-only
// parameters and values the encoding cannot represent are rejected and
// leave the editable copy unchanged.
func (a *Accessory) SetValue(wireID string, v codec.Value) error {
	datum, err := a.datum(wireID)
	if err != nil {
		return err
	}
	if !datum.Access.CanWrite() {
		return fmt.Errorf("%w: %s", ErrReadOnly, wireID)
	}

	data := codec.Encode(datum, v)
	if len(data) == 0 && (codec.KindOf(datum.Encoding) != codec.KindString || v.Kind() != codec.KindString) {
		return fmt.Errorf("%w: %s %s for %s", ErrUnencodable, v.Kind(), v, datum.Encoding)
	}
	return a.setEditable(wireID, data)
}

// SetRaw stores raw bytes in the editable copy without access checks.
func (a *Accessory) SetRaw(wireID string, data []byte) error {
	if _, err := a.datum(wireID); err != nil {
		return err
	}
	return a.setEditable(wireID, data)
}

func (a *Accessory) setEditable(wireID string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StatePopulated {
		return fmt.Errorf("%w: edit of %s while %s", ErrNotPopulated, wireID, a.state)
	}
	a.editable[wireID] = cloneBytes(data)
	return nil
}

// Editable returns a copy of the editable configuration.
func (a *Accessory) Editable() map[string][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneMap(a.editable)
}

// Baseline returns a copy of the last reported configuration.
func (a *Accessory) Baseline() map[string][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneMap(a.baseline)
}

// IsModified reports whether the editable copy differs from the baseline.
// It is always false unless populated.
func (a *Accessory) IsModified() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == StatePopulated && !equalMaps(a.editable, a.baseline)
}

// Modified returns the wire ids whose editable bytes differ from the
// baseline, in schema order.
func (a *Accessory) Modified() []string {
	dev, err := a.Schema()
	if err != nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StatePopulated {
		return nil
	}
	var out []string
	for _, datum := range dev.Parameters() {
		if a.differsLocked(datum.WireID) {
			out = append(out, datum.WireID)
		}
	}
	return out
}

// Push writes every changed writable parameter and commits it to the
// baseline. Edits of read-only parameters are discarded instead.
//
// Writes the transport refuses stay uncommitted and are reported in the
// returned error. With RequireWriteAck, commits wait for HandleWriteResult.
func (a *Accessory) Push() ([]Write, error) {
	dev, err := a.Schema()
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	if a.state != StatePopulated {
		state := a.state
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: push while %s", ErrNotPopulated, state)
	}

	var writes []Write
	for _, datum := range dev.Parameters() {
		wireID := datum.WireID
		if !a.differsLocked(wireID) {
			continue
		}
		if !datum.Access.CanWrite() {
			if b, ok := a.baseline[wireID]; ok {
				a.editable[wireID] = cloneBytes(b)
			} else {
				delete(a.editable, wireID)
			}
			continue
		}
		data := a.editable[wireID]
		if p, inFlight := a.pending[wireID]; inFlight && bytes.Equal(p, data) {
			continue
		}
		writes = append(writes, Write{WireID: wireID, Data: cloneBytes(data)})
		if a.config.RequireWriteAck {
			a.pending[wireID] = cloneBytes(data)
		}
	}
	session := a.sessionID
	a.mu.Unlock()

	var (
		errs   []error
		failed = make(map[string]bool)
	)
	for _, w := range writes {
		if err := a.transport.Write(a.id, w.WireID, w.Data); err != nil {
			failed[w.WireID] = true
			errs = append(errs, fmt.Errorf("write %s: %w", w.WireID, err))
			a.config.Metrics.Write(metrics.WriteFailed)
			a.warn("write failed", "wire_id", w.WireID, "error", err)
			continue
		}
		a.config.Metrics.Write(metrics.WriteSent)
		log.Stamp(a.config.ProtocolLogger, log.Event{
			SessionID:  session,
			Direction:  log.DirectionOut,
			Layer:      log.LayerSession,
			Category:   log.CategoryWrite,
			InstanceID: a.id,
			SchemaID:   a.schemaID,
			Write:      &log.WriteEvent{WireID: w.WireID, Data: w.Data},
		})
	}

	a.mu.Lock()
	if a.state == StatePopulated && a.sessionID == session {
		for _, w := range writes {
			switch {
			case failed[w.WireID]:
				delete(a.pending, w.WireID)
			case !a.config.RequireWriteAck:
				a.baseline[w.WireID] = cloneBytes(w.Data)
			}
		}
	}
	a.mu.Unlock()

	a.debug("push complete", "writes", len(writes), "failed", len(failed))
	return writes, errors.Join(errs...)
}

// HandleWriteResult records the transport's result for a write. With
// RequireWriteAck a successful result commits the written value to the
// baseline; otherwise failures are only reported, since the baseline was
// already committed.
func (a *Accessory) HandleWriteResult(wireID string, writeErr error) {
	a.mu.Lock()
	data, wasPending := a.pending[wireID]
	delete(a.pending, wireID)
	if writeErr == nil && wasPending && a.state == StatePopulated {
		a.baseline[wireID] = data
	}
	session := a.sessionID
	a.mu.Unlock()

	acked := writeErr == nil
	if acked {
		a.config.Metrics.Write(metrics.WriteAcked)
	} else {
		a.config.Metrics.Write(metrics.WriteNacked)
		a.warn("peripheral rejected write", "wire_id", wireID, "error", writeErr)
	}
	log.Stamp(a.config.ProtocolLogger, log.Event{
		SessionID:  session,
		Direction:  log.DirectionIn,
		Layer:      log.LayerSession,
		Category:   log.CategoryWrite,
		InstanceID: a.id,
		SchemaID:   a.schemaID,
		Write:      &log.WriteEvent{WireID: wireID, Data: data, Acked: &acked},
	})
}

// Pending returns the wire ids of writes awaiting a result, sorted.
func (a *Accessory) Pending() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return sortedKeys(a.pending)
}

// Reset discards edits by copying the baseline into the editable copy.
// It has no effect unless populated.
func (a *Accessory) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StatePopulated {
		a.editable = cloneMap(a.baseline)
	}
}

// retire records the accessory leaving the registry.
func (a *Accessory) retire() {
	a.config.Metrics.StateChanged(a.State().String(), "")
}

func (a *Accessory) datum(wireID string) (*model.Datum, error) {
	dev, err := a.Schema()
	if err != nil {
		return nil, err
	}
	datum, ok := dev.DatumByWireID(wireID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWireID, wireID)
	}
	return datum, nil
}

func (a *Accessory) differsLocked(wireID string) bool {
	e, ok := a.editable[wireID]
	if !ok {
		return false
	}
	b, had := a.baseline[wireID]
	return !had || !bytes.Equal(e, b)
}

func (a *Accessory) clearLocked() {
	a.state = StateDisconnected
	a.sessionID = ""
	a.baseline = make(map[string][]byte)
	a.editable = make(map[string][]byte)
	a.pending = make(map[string][]byte)
}

func (a *Accessory) notify(oldState, newState State, reason string) {
	if oldState == newState {
		return
	}

	a.mu.Lock()
	fn := a.onStateChange
	session := a.sessionID
	a.mu.Unlock()

	a.config.Metrics.StateChanged(oldState.String(), newState.String())
	a.debug("accessory state changed", "old", oldState, "new", newState, "reason", reason)
	log.Stamp(a.config.ProtocolLogger, log.Event{
		Timestamp:  time.Now(),
		SessionID:  session,
		Layer:      log.LayerSession,
		Category:   log.CategoryState,
		InstanceID: a.id,
		SchemaID:   a.schemaID,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityAccessory,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})

	if fn != nil {
		fn(oldState, newState)
	}
}

func (a *Accessory) logError(session string, layer log.Layer, msg, wireID string) {
	log.Stamp(a.config.ProtocolLogger, log.Event{
		SessionID:  session,
		Direction:  log.DirectionIn,
		Layer:      layer,
		Category:   log.CategoryError,
		InstanceID: a.id,
		SchemaID:   a.schemaID,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: msg,
			Context: "ingest " + wireID,
		},
	})
}

func (a *Accessory) debug(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Debug(msg, append([]any{"instance", a.id}, args...)...)
	}
}

func (a *Accessory) warn(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Warn(msg, append([]any{"instance", a.id}, args...)...)
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneMap(m map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		out[k] = cloneBytes(v)
	}
	return out
}

func equalMaps(a, b map[string][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !bytes.Equal(va, vb) {
			return false
		}
	}
	return true
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sortedKeys(m map[string][]byte) []string {
	out := keys(m)
	sort.Strings(out)
	return out
}
