package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gizmo-config/gizmo-go/pkg/log"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize is the default maximum message size (64 KB).
	DefaultMaxMessageSize = 65536

	// MaxLogFrameDataSize is the maximum frame data size copied into log
	// events (4 KB). Larger frames are truncated in the log.
	MaxLogFrameDataSize = 4096
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates the message exceeds the maximum size.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates an empty message.
	ErrMessageEmpty = errors.New("message is empty")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")
)

// frameLog carries the optional protocol logger of a frame reader or writer.
type frameLog struct {
	logger     log.Logger
	sessionID  string
	instanceID string
	role       log.Role
}

func (fl *frameLog) log(data []byte, direction log.Direction) {
	if fl.logger == nil {
		return
	}
	frameData := data
	truncated := false
	if len(data) > MaxLogFrameDataSize {
		frameData = data[:MaxLogFrameDataSize]
		truncated = true
	}
	log.Stamp(fl.logger, log.Event{
		SessionID:  fl.sessionID,
		InstanceID: fl.instanceID,
		LocalRole:  fl.role,
		Direction:  direction,
		Layer:      log.LayerTransport,
		Category:   log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      FrameSize(len(data)),
			Data:      append([]byte(nil), frameData...),
			Truncated: truncated,
		},
	})
}

// FrameWriter writes length-prefixed frames to an underlying writer.
type FrameWriter struct {
	w              io.Writer
	maxMessageSize uint32
	mu             sync.Mutex
	frameLog
}

// NewFrameWriter creates a frame writer with the default max size.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return NewFrameWriterWithMaxSize(w, DefaultMaxMessageSize)
}

// NewFrameWriterWithMaxSize creates a frame writer with a custom max size.
func NewFrameWriterWithMaxSize(w io.Writer, maxSize uint32) *FrameWriter {
	return &FrameWriter{w: w, maxMessageSize: maxSize}
}

// SetLogger configures protocol logging for this writer.
// Pass nil to disable logging.
func (fw *FrameWriter) SetLogger(logger log.Logger, role log.Role, sessionID, instanceID string) {
	fw.frameLog = frameLog{logger: logger, role: role, sessionID: sessionID, instanceID: instanceID}
}

// WriteFrame writes a length-prefixed frame.
// Safe for concurrent use.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if uint32(len(data)) > fw.maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), fw.maxMessageSize)
	}

	// Prefix and payload in a single Write call.
	frame := make([]byte, FrameSize(len(data)))
	binary.BigEndian.PutUint32(frame[:LengthPrefixSize], uint32(len(data)))
	copy(frame[LengthPrefixSize:], data)

	fw.mu.Lock()
	_, err := fw.w.Write(frame)
	fw.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	fw.log(data, log.DirectionOut)
	return nil
}

// FrameReader reads length-prefixed frames from an underlying reader.
// It is not safe for concurrent use.
type FrameReader struct {
	r              io.Reader
	maxMessageSize uint32
	lengthBuf      [LengthPrefixSize]byte
	frameLog
}

// NewFrameReader creates a frame reader with the default max size.
func NewFrameReader(r io.Reader) *FrameReader {
	return NewFrameReaderWithMaxSize(r, DefaultMaxMessageSize)
}

// NewFrameReaderWithMaxSize creates a frame reader with a custom max size.
func NewFrameReaderWithMaxSize(r io.Reader, maxSize uint32) *FrameReader {
	return &FrameReader{r: r, maxMessageSize: maxSize}
}

// SetLogger configures protocol logging for this reader.
// Pass nil to disable logging.
func (fr *FrameReader) SetLogger(logger log.Logger, role log.Role, sessionID, instanceID string) {
	fr.frameLog = frameLog{logger: logger, role: role, sessionID: sessionID, instanceID: instanceID}
}

// SetMaxMessageSize updates the maximum accepted payload size.
func (fr *FrameReader) SetMaxMessageSize(size uint32) {
	fr.maxMessageSize = size
}

// ReadFrame reads one frame and returns its payload.
// A clean end of stream between frames returns io.EOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(fr.lengthBuf[:])
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > fr.maxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, fr.maxMessageSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	fr.log(payload, log.DirectionIn)
	return payload, nil
}

// Framer combines frame reading and writing.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxMessageSize)
}

// NewFramerWithMaxSize creates a framer with a custom max message size.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{
		FrameReader: NewFrameReaderWithMaxSize(rw, maxSize),
		FrameWriter: NewFrameWriterWithMaxSize(rw, maxSize),
	}
}

// SetLogger configures protocol logging for both directions.
func (f *Framer) SetLogger(logger log.Logger, role log.Role, sessionID, instanceID string) {
	f.FrameReader.SetLogger(logger, role, sessionID, instanceID)
	f.FrameWriter.SetLogger(logger, role, sessionID, instanceID)
}

// FrameSize returns the total frame size including the length prefix.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}
