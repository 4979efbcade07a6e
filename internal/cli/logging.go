package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gizmo-config/gizmo-go/pkg/log"
)

// ParseLevel parses a -log-level value.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (use: debug, info, warn, error)", s)
	}
}

// NewLogger returns a text logger writing to w at the given level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// ProtocolLog is the protocol event sink of a command.
type ProtocolLog struct {
	log.Logger
	file *log.FileLogger
}

// OpenProtocolLog returns the protocol event sink. Events are mirrored to
// logger at debug level; with a non-empty path they are also appended to
// that file.
func OpenProtocolLog(path string, logger *slog.Logger) (*ProtocolLog, error) {
	sinks := []log.Logger{log.NewSlogAdapter(logger)}
	p := &ProtocolLog{}
	if path != "" {
		f, err := log.NewFileLogger(path)
		if err != nil {
			return nil, fmt.Errorf("open protocol log: %w", err)
		}
		p.file = f
		sinks = append(sinks, f)
	}
	p.Logger = log.NewMultiLogger(sinks...)
	return p, nil
}

// Close closes the log file, if any.
func (p *ProtocolLog) Close() error {
	if p.file == nil {
		return nil
	}
	return p.file.Close()
}
