package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gizmo-config/gizmo-go/pkg/log"
	"github.com/gizmo-config/gizmo-go/pkg/model"
)

// DefaultPort is the default peripheral listen port.
const DefaultPort = 7890

// Peripheral errors.
var (
	ErrUnknownCharacteristic = errors.New("unknown characteristic")
	ErrPeripheralRunning     = errors.New("peripheral already running")
)

// Characteristic is one value hosted by a peripheral.
type Characteristic struct {
	WireID string
	Access model.Access
	Value  []byte
}

// PeripheralConfig configures a Peripheral.
type PeripheralConfig struct {
	// Address to listen on (default ":7890").
	Address string

	// MaxMessageSize is the maximum frame payload (default: 64KB).
	MaxMessageSize uint32

	// Validate is called before a write is applied. A non-nil error
	// rejects the write with StatusInvalidValue. Optional.
	Validate func(wireID string, data []byte) error

	// OnWrite is called after a write has been applied. Optional.
	OnWrite func(wireID string, data []byte)

	// Logger is used for operational logging. If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives frame and message events (optional).
	ProtocolLogger log.Logger
}

// Peripheral serves a characteristic table to centrals.
type Peripheral struct {
	config   PeripheralConfig
	listener net.Listener

	mu    sync.RWMutex
	order []string
	table map[string]*Characteristic

	connsMu sync.Mutex
	conns   map[*Conn]struct{}

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPeripheral creates a peripheral hosting a copy of chars. Table order
// is the order of the LIST response.
func NewPeripheral(chars []Characteristic, cfg PeripheralConfig) *Peripheral {
	if cfg.Address == "" {
		cfg.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	p := &Peripheral{
		config: cfg,
		table:  make(map[string]*Characteristic, len(chars)),
		conns:  make(map[*Conn]struct{}),
	}
	for _, ch := range chars {
		c := ch
		c.Value = append([]byte(nil), ch.Value...)
		if _, dup := p.table[c.WireID]; !dup {
			p.order = append(p.order, c.WireID)
		}
		p.table[c.WireID] = &c
	}
	return p
}

// Start listens on the configured address and serves connections until
// Stop is called or ctx is cancelled.
func (p *Peripheral) Start(ctx context.Context) error {
	if p.running.Load() {
		return ErrPeripheralRunning
	}

	listener, err := net.Listen("tcp", p.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	p.listener = listener

	ctx, p.cancel = context.WithCancel(ctx)
	p.running.Store(true)

	p.wg.Add(2)
	go p.acceptLoop()
	go func() {
		defer p.wg.Done()
		<-ctx.Done()
		p.shutdown()
	}()
	return nil
}

// Stop closes the listener and every connection.
func (p *Peripheral) Stop() error {
	if !p.running.Load() {
		return nil
	}
	p.cancel()
	p.wg.Wait()
	return nil
}

func (p *Peripheral) shutdown() {
	p.running.Store(false)
	p.listener.Close()

	p.connsMu.Lock()
	for c := range p.conns {
		c.Close()
	}
	p.connsMu.Unlock()
}

// Addr returns the listen address, or nil before Start.
func (p *Peripheral) Addr() net.Addr {
	if p.listener != nil {
		return p.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (p *Peripheral) ConnectionCount() int {
	p.connsMu.Lock()
	defer p.connsMu.Unlock()
	return len(p.conns)
}

// Value returns a copy of the current value of a characteristic.
func (p *Peripheral) Value(wireID string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ch, ok := p.table[wireID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), ch.Value...), true
}

// SetValue changes a characteristic locally and notifies every connected
// central of readable characteristics.
func (p *Peripheral) SetValue(wireID string, data []byte) error {
	p.mu.Lock()
	ch, ok := p.table[wireID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCharacteristic, wireID)
	}
	ch.Value = append([]byte(nil), data...)
	notify := ch.Access.CanRead()
	p.mu.Unlock()

	if !notify {
		return nil
	}
	msg := &Message{Op: OpValue, WireID: wireID, Data: data}
	p.connsMu.Lock()
	conns := make([]*Conn, 0, len(p.conns))
	for c := range p.conns {
		conns = append(conns, c)
	}
	p.connsMu.Unlock()
	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			p.debug("notify failed", "session", c.SessionID(), "error", err)
		}
	}
	return nil
}

func (p *Peripheral) acceptLoop() {
	defer p.wg.Done()
	for p.running.Load() {
		nc, err := p.listener.Accept()
		if err != nil {
			if p.running.Load() {
				p.warn("accept failed", "error", err)
			}
			continue
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.Serve(nc)
		}()
	}
}

// Serve handles one connection until it closes. It is used by the accept
// loop and may be called directly with any net.Conn.
func (p *Peripheral) Serve(nc net.Conn) {
	conn := NewConn(nc, p.config.MaxMessageSize, log.RolePeripheral, "", p.config.ProtocolLogger)
	defer conn.Close()

	p.connsMu.Lock()
	p.conns[conn] = struct{}{}
	p.connsMu.Unlock()
	defer func() {
		p.connsMu.Lock()
		delete(p.conns, conn)
		p.connsMu.Unlock()
	}()

	p.debug("central connected", "session", conn.SessionID(), "remote", nc.RemoteAddr())
	for {
		m, err := conn.Receive()
		if err != nil {
			if errors.Is(err, ErrMalformed) {
				p.warn("dropping malformed message", "session", conn.SessionID(), "error", err)
				continue
			}
			if !errors.Is(err, io.EOF) {
				p.debug("connection ended", "session", conn.SessionID(), "error", err)
			}
			return
		}
		reply := p.handle(m)
		if reply == nil {
			continue
		}
		if err := conn.Send(reply); err != nil {
			p.debug("reply failed", "session", conn.SessionID(), "error", err)
			return
		}
	}
}

// handle returns the reply to a request, or nil.
func (p *Peripheral) handle(m *Message) *Message {
	switch m.Op {
	case OpList:
		p.mu.RLock()
		ids := make([]string, 0, len(p.order))
		for _, id := range p.order {
			if p.table[id].Access.CanRead() {
				ids = append(ids, id)
			}
		}
		p.mu.RUnlock()
		return &Message{Op: OpListResponse, WireIDs: ids}

	case OpRead:
		p.mu.RLock()
		defer p.mu.RUnlock()
		ch, ok := p.table[m.WireID]
		switch {
		case !ok:
			return &Message{Op: OpValue, WireID: m.WireID, Status: StatusUnknownCharacteristic}
		case !ch.Access.CanRead():
			return &Message{Op: OpValue, WireID: m.WireID, Status: StatusNotReadable}
		}
		return &Message{Op: OpValue, WireID: m.WireID, Data: append([]byte(nil), ch.Value...)}

	case OpWrite:
		return &Message{Op: OpWriteAck, WireID: m.WireID, Status: p.write(m.WireID, m.Data)}

	default:
		p.debug("ignoring message", "op", m.Op)
		return nil
	}
}

func (p *Peripheral) write(wireID string, data []byte) Status {
	p.mu.Lock()
	ch, ok := p.table[wireID]
	switch {
	case !ok:
		p.mu.Unlock()
		return StatusUnknownCharacteristic
	case !ch.Access.CanWrite():
		p.mu.Unlock()
		return StatusNotWritable
	}
	if p.config.Validate != nil {
		if err := p.config.Validate(wireID, data); err != nil {
			p.mu.Unlock()
			p.warn("write rejected", "wire_id", wireID, "error", err)
			return StatusInvalidValue
		}
	}
	ch.Value = append([]byte(nil), data...)
	p.mu.Unlock()

	p.debug("characteristic written", "wire_id", wireID, "size", len(data))
	if p.config.OnWrite != nil {
		p.config.OnWrite(wireID, append([]byte(nil), data...))
	}
	return StatusOK
}

func (p *Peripheral) debug(msg string, args ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, args...)
	}
}

func (p *Peripheral) warn(msg string, args ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Warn(msg, args...)
	}
}
