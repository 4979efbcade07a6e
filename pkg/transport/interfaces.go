package transport

import (
	"context"
	"net"

	"github.com/gizmo-config/gizmo-go/pkg/accessory"
)

// PeerSource browses for peers advertising any of the capability ids.
// Browse blocks until ctx is cancelled, calling found for every peer seen.
type PeerSource interface {
	Browse(ctx context.Context, capabilityIDs []string, found func(Peer)) error
}

// PeerSourceFunc adapts a function to PeerSource.
type PeerSourceFunc func(ctx context.Context, capabilityIDs []string, found func(Peer)) error

// Browse calls f.
func (f PeerSourceFunc) Browse(ctx context.Context, capabilityIDs []string, found func(Peer)) error {
	return f(ctx, capabilityIDs, found)
}

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	// ReadFrame reads a length-prefixed frame.
	ReadFrame() ([]byte, error)

	// WriteFrame writes a length-prefixed frame.
	WriteFrame(data []byte) error
}

// MessageConn exchanges link messages.
// Implemented by Conn.
type MessageConn interface {
	Send(m *Message) error
	Receive() (*Message, error)
	RemoteAddr() net.Addr
	Close() error
}

// Compile-time interface satisfaction checks.
var (
	_ FrameReadWriter     = (*Framer)(nil)
	_ MessageConn         = (*Conn)(nil)
	_ accessory.Transport = (*Central)(nil)
)
