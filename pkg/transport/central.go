package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gizmo-config/gizmo-go/pkg/accessory"
	"github.com/gizmo-config/gizmo-go/pkg/log"
)

// Central errors.
var (
	ErrUnknownPeer      = errors.New("unknown peer")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
	ErrCentralClosed    = errors.New("central closed")
)

// Peer is a peripheral the central may connect to.
type Peer struct {
	// InstanceID identifies the peripheral for the lifetime of the central.
	InstanceID string

	// Name is the advertised display name, possibly empty.
	Name string

	// Address is the host:port to dial.
	Address string

	// CapabilityIDs are the advertised capability ids.
	CapabilityIDs []string
}

// DialFunc opens a stream to a peripheral address.
type DialFunc func(ctx context.Context, address string) (net.Conn, error)

// CentralConfig configures a Central.
type CentralConfig struct {
	// DialTimeout bounds a single dial attempt (default: 10s).
	DialTimeout time.Duration

	// DialAttempts is the number of dial attempts per Connect (default: 3).
	DialAttempts int

	// Backoff configures the delay between dial attempts.
	Backoff BackoffConfig

	// Dial opens connections. Defaults to a TCP dialer.
	Dial DialFunc

	// Source browses for peers. Optional; without it only peers added
	// with AddPeer are known.
	Source PeerSource

	// MaxMessageSize is the maximum frame payload (default: 64KB).
	MaxMessageSize uint32

	// Logger is used for operational logging. If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives frame and message events (optional).
	ProtocolLogger log.Logger
}

// DefaultCentralConfig returns the default central configuration.
func DefaultCentralConfig() CentralConfig {
	return CentralConfig{
		DialTimeout:    10 * time.Second,
		DialAttempts:   3,
		MaxMessageSize: DefaultMaxMessageSize,
	}
}

// Central is the controller side of the link. It implements
// accessory.Transport and reports link activity to an accessory.EventSink.
//
// All events for one instance are delivered from a single goroutine in
// the order they were received.
type Central struct {
	config CentralConfig

	mu         sync.Mutex
	sink       accessory.EventSink
	filter     map[string]struct{}
	filterIDs  []string
	peers      map[string]Peer
	static     map[string]bool
	reported   map[string]struct{}
	links      map[string]*link
	generation uint64
	stopBrowse context.CancelFunc
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type link struct {
	peer   Peer
	cancel context.CancelFunc

	mu   sync.Mutex
	conn *Conn
}

func (l *link) setConn(c *Conn) {
	l.mu.Lock()
	l.conn = c
	l.mu.Unlock()
}

func (l *link) current() *Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

// NewCentral creates a central. Events are discarded until SetEventSink
// is called.
func NewCentral(cfg CentralConfig) *Central {
	def := DefaultCentralConfig()
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.DialAttempts <= 0 {
		cfg.DialAttempts = def.DialAttempts
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.Dial == nil {
		cfg.Dial = func(ctx context.Context, address string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", address)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Central{
		config:   cfg,
		filter:   make(map[string]struct{}),
		peers:    make(map[string]Peer),
		static:   make(map[string]bool),
		reported: make(map[string]struct{}),
		links:    make(map[string]*link),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetEventSink sets the receiver of link events.
func (c *Central) SetEventSink(sink accessory.EventSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// AddPeer registers a peer that is known without browsing, e.g. from the
// command line. Static peers survive discovery restarts.
func (c *Central) AddPeer(p Peer) {
	c.mu.Lock()
	c.static[p.InstanceID] = true
	gen := c.generation
	c.mu.Unlock()
	c.found(gen, p)
}

// Peers returns every known peer ordered by instance id.
func (c *Central) Peers() []Peer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Peer, 0, len(c.peers))
	for _, p := range c.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out
}

// Filter returns the current discovery filter.
func (c *Central) Filter() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.filterIDs...)
}

// SetDiscoveryFilter restarts discovery for the given capability ids.
// Browsed peers are forgotten and reported again as they reappear; static
// peers matching the new filter are reported immediately. A peer is
// reported when it advertises at least one filtered id, so an empty
// filter reports nothing.
func (c *Central) SetDiscoveryFilter(capabilityIDs []string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrCentralClosed
	}

	c.filter = make(map[string]struct{}, len(capabilityIDs))
	for _, id := range capabilityIDs {
		c.filter[id] = struct{}{}
	}
	c.filterIDs = append([]string(nil), capabilityIDs...)
	c.reported = make(map[string]struct{})
	for id := range c.peers {
		if !c.static[id] {
			delete(c.peers, id)
		}
	}

	c.generation++
	gen := c.generation
	if c.stopBrowse != nil {
		c.stopBrowse()
		c.stopBrowse = nil
	}
	if c.config.Source != nil && len(capabilityIDs) > 0 {
		ctx, cancel := context.WithCancel(c.ctx)
		c.stopBrowse = cancel
		c.wg.Add(1)
		go c.browse(ctx, gen, c.filterIDs)
	}

	var pending []Peer
	for id := range c.static {
		pending = append(pending, c.peers[id])
	}
	c.mu.Unlock()

	c.logDiscovery(capabilityIDs)
	c.debug("discovery filter changed", "capabilities", strings.Join(capabilityIDs, ","))

	sort.Slice(pending, func(i, j int) bool { return pending[i].InstanceID < pending[j].InstanceID })
	for _, p := range pending {
		c.found(gen, p)
	}
	return nil
}

// Connect starts connecting to a known peer. The outcome is reported
// through HandleConnected or HandleDisconnected.
func (c *Central) Connect(instanceID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrCentralClosed
	}
	peer, ok := c.peers[instanceID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPeer, instanceID)
	}
	if _, busy := c.links[instanceID]; busy {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyConnected, instanceID)
	}
	ctx, cancel := context.WithCancel(c.ctx)
	l := &link{peer: peer, cancel: cancel}
	c.links[instanceID] = l
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(ctx, l)
	return nil
}

// Disconnect closes the link to a peer, or aborts a dial in progress.
// The peer is free for Connect as soon as Disconnect returns; the closing
// link reports nothing further once a new link exists. Disconnecting a
// peer without a link is a no-op.
func (c *Central) Disconnect(instanceID string) error {
	c.mu.Lock()
	l, ok := c.links[instanceID]
	if ok {
		delete(c.links, instanceID)
	}
	c.mu.Unlock()
	if ok {
		l.cancel()
	}
	return nil
}

// Write sends a characteristic value. The result arrives through
// HandleWriteResult once the peripheral acknowledges.
func (c *Central) Write(instanceID, wireID string, data []byte) error {
	c.mu.Lock()
	l, ok := c.links[instanceID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, instanceID)
	}
	conn := l.current()
	if conn == nil {
		return fmt.Errorf("%w: %s", ErrNotConnected, instanceID)
	}
	return conn.Send(&Message{Op: OpWrite, WireID: wireID, Data: data})
}

// Connected reports whether a link to the peer is up.
func (c *Central) Connected(instanceID string) bool {
	c.mu.Lock()
	l, ok := c.links[instanceID]
	c.mu.Unlock()
	return ok && l.current() != nil
}

// Close stops discovery, closes every link and waits for the link
// goroutines to finish.
func (c *Central) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

// found records a peer and reports it once per discovery generation.
func (c *Central) found(gen uint64, p Peer) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.peers[p.InstanceID] = p
	_, done := c.reported[p.InstanceID]
	if done || !c.matchesLocked(p) {
		c.mu.Unlock()
		return
	}
	c.reported[p.InstanceID] = struct{}{}
	sink := c.sink
	c.mu.Unlock()

	c.debug("peer discovered", "instance", p.InstanceID, "address", p.Address)
	if sink != nil {
		sink.HandleDiscovered(p.InstanceID, p.Name, append([]string(nil), p.CapabilityIDs...))
	}
}

func (c *Central) matchesLocked(p Peer) bool {
	for _, id := range p.CapabilityIDs {
		if _, ok := c.filter[id]; ok {
			return true
		}
	}
	return false
}

func (c *Central) browse(ctx context.Context, gen uint64, capabilityIDs []string) {
	defer c.wg.Done()
	err := c.config.Source.Browse(ctx, capabilityIDs, func(p Peer) {
		c.found(gen, p)
	})
	if err != nil && ctx.Err() == nil {
		c.warn("discovery stopped", "error", err)
	}
}

// run owns one link: dial, announce, read until the link ends.
func (c *Central) run(ctx context.Context, l *link) {
	defer c.wg.Done()
	id := l.peer.InstanceID

	nc, err := c.dial(ctx, l.peer)
	if err != nil {
		if ctx.Err() == nil {
			c.warn("connect failed", "instance", id, "error", err)
		}
		c.finish(l, nil, "dial failed")
		return
	}

	if ctx.Err() != nil || !c.owns(l) {
		nc.Close()
		c.finish(l, nil, "disconnect requested")
		return
	}

	conn := NewConn(nc, c.config.MaxMessageSize, log.RoleCentral, id, c.config.ProtocolLogger)
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	l.setConn(conn)

	c.logLink(conn, "CONNECTING", "CONNECTED", "")
	c.eventSink().HandleConnected(id)

	var reason string
	if err := conn.Send(&Message{Op: OpList}); err != nil {
		reason = err.Error()
	} else {
		reason = c.readLoop(l, conn)
	}
	conn.Close()
	c.finish(l, conn, reason)
}

func (c *Central) dial(ctx context.Context, p Peer) (net.Conn, error) {
	bo := NewBackoff(c.config.Backoff)
	var lastErr error
	for attempt := 1; attempt <= c.config.DialAttempts; attempt++ {
		dctx, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
		nc, err := c.config.Dial(dctx, p.Address)
		cancel()
		if err == nil {
			return nc, nil
		}
		lastErr = err
		c.debug("dial attempt failed", "instance", p.InstanceID, "attempt", attempt, "error", err)

		if attempt == c.config.DialAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(bo.Next()):
		}
	}
	return nil, fmt.Errorf("dial %s: %w", p.Address, lastErr)
}

// readLoop dispatches messages until the connection fails and returns
// the reason.
func (c *Central) readLoop(l *link, conn *Conn) string {
	id := l.peer.InstanceID
	for {
		m, err := conn.Receive()
		if err != nil {
			if errors.Is(err, ErrMalformed) {
				c.warn("dropping malformed message", "instance", id, "error", err)
				continue
			}
			select {
			case <-conn.Done():
				return "disconnect requested"
			default:
			}
			if errors.Is(err, io.EOF) {
				return "peripheral closed the link"
			}
			return err.Error()
		}
		if !c.owns(l) {
			return "disconnect requested"
		}
		c.handle(conn, id, m)
	}
}

func (c *Central) handle(conn *Conn, id string, m *Message) {
	sink := c.eventSink()
	switch m.Op {
	case OpListResponse:
		for _, wireID := range m.WireIDs {
			if err := conn.Send(&Message{Op: OpRead, WireID: wireID}); err != nil {
				c.warn("read request failed", "instance", id, "wire_id", wireID, "error", err)
				return
			}
		}
	case OpValue:
		if err := m.Err(); err != nil {
			c.warn("read rejected", "instance", id, "error", err)
			return
		}
		sink.HandleValueRead(id, m.WireID, m.Data)
	case OpWriteAck:
		sink.HandleWriteResult(id, m.WireID, m.Err())
	default:
		c.debug("ignoring message", "instance", id, "op", m.Op)
	}
}

// owns reports whether l is still the registered link of its peer.
func (c *Central) owns(l *link) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.links[l.peer.InstanceID] == l
}

// finish removes the link and reports the disconnect, unless a newer link
// to the same peer has taken its place.
func (c *Central) finish(l *link, conn *Conn, reason string) {
	id := l.peer.InstanceID
	c.mu.Lock()
	next, replaced := c.links[id]
	if next == l {
		delete(c.links, id)
		replaced = false
	}
	c.mu.Unlock()
	l.cancel()

	if conn != nil {
		c.logLink(conn, "CONNECTED", "DISCONNECTED", reason)
	}
	c.debug("link ended", "instance", id, "reason", reason)
	if !replaced {
		c.eventSink().HandleDisconnected(id)
	}
}

func (c *Central) eventSink() accessory.EventSink {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink == nil {
		return discardSink{}
	}
	return c.sink
}

func (c *Central) logLink(conn *Conn, oldState, newState, reason string) {
	log.Stamp(c.config.ProtocolLogger, log.Event{
		SessionID:  conn.SessionID(),
		InstanceID: conn.instanceID,
		LocalRole:  log.RoleCentral,
		Layer:      log.LayerTransport,
		Category:   log.CategoryState,
		RemoteAddr: conn.RemoteAddr().String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLink,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (c *Central) logDiscovery(capabilityIDs []string) {
	state := "SCANNING"
	if len(capabilityIDs) == 0 {
		state = "IDLE"
	}
	log.Stamp(c.config.ProtocolLogger, log.Event{
		LocalRole: log.RoleCentral,
		Layer:     log.LayerTransport,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDiscovery,
			NewState: state,
			Reason:   strings.Join(capabilityIDs, ","),
		},
	})
}

func (c *Central) debug(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}

func (c *Central) warn(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Warn(msg, args...)
	}
}

type discardSink struct{}

func (discardSink) HandleDiscovered(string, string, []string) {}
func (discardSink) HandleConnected(string) {}
func (discardSink) HandleDisconnected(string) {}
func (discardSink) HandleValueRead(string, string, []byte) {}
func (discardSink) HandleWriteResult(string, string, error) {}
