// Package commands implements the gizmo-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/gizmo-config/gizmo-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer      *log.Layer
	Direction  *log.Direction
	Category   *log.Category
	InstanceID string
	WireID     string
}

func (f ViewFilter) logFilter() log.Filter {
	return log.Filter{
		InstanceID: f.InstanceID,
		WireID:     f.WireID,
		Layer:      f.Layer,
		Direction:  f.Direction,
		Category:   f.Category,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	session := shortenID(event.SessionID)
	dir := event.Direction.String()

	fmt.Fprintf(w, "%s [session:%s] %-3s %s %s\n", ts, session, dir, event.Layer.String(), eventType(event))
	if event.InstanceID != "" {
		fmt.Fprintf(w, "  Instance: %s", event.InstanceID)
		if event.RemoteAddr != "" {
			fmt.Fprintf(w, " (%s)", event.RemoteAddr)
		}
		fmt.Fprintln(w)
	}

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Value != nil:
		formatValueDetails(w, event.Value)
	case event.Write != nil:
		formatWriteDetails(w, event.Write)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// eventType returns the label of the event payload.
func eventType(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Message != nil:
		return event.Message.Op
	case event.StateChange != nil:
		return "State"
	case event.Value != nil:
		return "Value"
	case event.Write != nil:
		return "Write"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	if msg.WireID != "" {
		fmt.Fprintf(w, "  WireID: %s\n", msg.WireID)
	}
	if msg.Status != nil {
		fmt.Fprintf(w, "  Status: %d\n", *msg.Status)
	}
	if msg.Size > 0 {
		fmt.Fprintf(w, "  Size: %d bytes\n", msg.Size)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatValueDetails(w io.Writer, v *log.ValueEvent) {
	fmt.Fprintf(w, "  WireID: %s\n", v.WireID)
	fmt.Fprintf(w, "  Data: %s\n", hex.EncodeToString(v.Data))
	if v.Decoded != "" {
		fmt.Fprintf(w, "  Decoded: %s\n", v.Decoded)
	}
}

func formatWriteDetails(w io.Writer, wr *log.WriteEvent) {
	fmt.Fprintf(w, "  WireID: %s\n", wr.WireID)
	if len(wr.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s\n", hex.EncodeToString(wr.Data))
	}
	if wr.Acked != nil {
		fmt.Fprintf(w, "  Acked: %t\n", *wr.Acked)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "codec":
		return log.LayerCodec, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, codec, or session)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "write":
		return log.CategoryWrite, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, write, or error)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.logFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
