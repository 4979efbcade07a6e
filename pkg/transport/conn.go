package transport

import (
	"errors"
	"net"
	"sync"

	"github.com/gizmo-config/gizmo-go/pkg/log"
	"github.com/google/uuid"
)

// ErrConnectionClosed is returned when sending on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Conn is one link session: a framed net.Conn exchanging Messages.
type Conn struct {
	conn       net.Conn
	framer     *Framer
	sessionID  string
	instanceID string
	role       log.Role
	logger     log.Logger

	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewConn wraps nc in a new session. logger may be nil.
func NewConn(nc net.Conn, maxSize uint32, role log.Role, instanceID string, logger log.Logger) *Conn {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	c := &Conn{
		conn:       nc,
		framer:     NewFramerWithMaxSize(nc, maxSize),
		sessionID:  uuid.NewString(),
		instanceID: instanceID,
		role:       role,
		logger:     logger,
		closeCh:    make(chan struct{}),
	}
	if logger != nil {
		c.framer.SetLogger(logger, role, c.sessionID, instanceID)
	}
	return c
}

// SessionID returns the unique session identifier.
func (c *Conn) SessionID() string { return c.sessionID }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Send encodes and writes a message. Safe for concurrent use.
func (c *Conn) Send(m *Message) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}

	data, err := EncodeMessage(m)
	if err != nil {
		return err
	}
	if err := c.framer.WriteFrame(data); err != nil {
		return err
	}
	c.logMessage(m, len(data), log.DirectionOut)
	return nil
}

// Receive blocks for the next message.
func (c *Conn) Receive() (*Message, error) {
	data, err := c.framer.ReadFrame()
	if err != nil {
		return nil, err
	}
	m, err := DecodeMessage(data)
	if err != nil {
		c.logDecodeError(err, data)
		return nil, err
	}
	c.logMessage(m, len(data), log.DirectionIn)
	return m, nil
}

// Close closes the connection. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

// Done is closed once Close has been called.
func (c *Conn) Done() <-chan struct{} { return c.closeCh }

func (c *Conn) logMessage(m *Message, size int, direction log.Direction) {
	if c.logger == nil {
		return
	}
	ev := &log.MessageEvent{Op: m.Op.String(), WireID: m.WireID, Size: size}
	if m.Op == OpValue || m.Op == OpWriteAck {
		st := uint8(m.Status)
		ev.Status = &st
	}
	log.Stamp(c.logger, log.Event{
		SessionID:  c.sessionID,
		InstanceID: c.instanceID,
		LocalRole:  c.role,
		Direction:  direction,
		Layer:      log.LayerCodec,
		Category:   log.CategoryMessage,
		RemoteAddr: c.conn.RemoteAddr().String(),
		Message:    ev,
	})
}

func (c *Conn) logDecodeError(err error, data []byte) {
	if c.logger == nil {
		return
	}
	log.Stamp(c.logger, log.Event{
		SessionID:  c.sessionID,
		InstanceID: c.instanceID,
		LocalRole:  c.role,
		Direction:  log.DirectionIn,
		Layer:      log.LayerCodec,
		Category:   log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerCodec,
			Message: err.Error(),
			Context: "decoding frame",
		},
		Frame: &log.FrameEvent{Size: FrameSize(len(data))},
	})
}
