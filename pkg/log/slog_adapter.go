package log

import (
	"context"
	"encoding/hex"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.InstanceID != "" {
		attrs = append(attrs, slog.String("instance", event.InstanceID))
	}
	if event.SchemaID != "" {
		attrs = append(attrs, slog.String("schema", event.SchemaID))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Message != nil:
		attrs = append(attrs, slog.String("op", event.Message.Op))
		if event.Message.WireID != "" {
			attrs = append(attrs, slog.String("wire_id", event.Message.WireID))
		}
		if event.Message.Status != nil {
			attrs = append(attrs, slog.Int("status", int(*event.Message.Status)))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Value != nil:
		attrs = append(attrs,
			slog.String("wire_id", event.Value.WireID),
			slog.String("data", hex.EncodeToString(event.Value.Data)),
		)
		if event.Value.Decoded != "" {
			attrs = append(attrs, slog.String("value", event.Value.Decoded))
		}
	case event.Write != nil:
		attrs = append(attrs,
			slog.String("wire_id", event.Write.WireID),
			slog.String("data", hex.EncodeToString(event.Write.Data)),
		)
		if event.Write.Acked != nil {
			attrs = append(attrs, slog.Bool("acked", *event.Write.Acked))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
