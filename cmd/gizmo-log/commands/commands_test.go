package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gizmo-config/gizmo-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+log.FileExtension)

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func boolPtr(b bool) *bool { return &b }

func sampleEvents() []log.Event {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	return []log.Event{
		{
			Timestamp:  ts,
			SessionID:  "abc12345-6789",
			Direction:  log.DirectionIn,
			Layer:      log.LayerSession,
			Category:   log.CategoryState,
			InstanceID: "clock-1",
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityAccessory,
				OldState: "CONNECTING",
				NewState: "CONNECTED",
			},
		},
		{
			Timestamp:  ts.Add(time.Second),
			SessionID:  "abc12345-6789",
			Direction:  log.DirectionIn,
			Layer:      log.LayerCodec,
			Category:   log.CategoryMessage,
			InstanceID: "clock-1",
			Value:      &log.ValueEvent{WireID: "2AF9", Data: []byte{0x0d}, Decoded: "1"},
		},
		{
			Timestamp:  ts.Add(2 * time.Second),
			SessionID:  "abc12345-6789",
			Direction:  log.DirectionOut,
			Layer:      log.LayerSession,
			Category:   log.CategoryWrite,
			InstanceID: "clock-1",
			Write:      &log.WriteEvent{WireID: "2AFA", Data: []byte{0x50}},
		},
		{
			Timestamp:  ts.Add(3 * time.Second),
			SessionID:  "abc12345-6789",
			Direction:  log.DirectionIn,
			Layer:      log.LayerSession,
			Category:   log.CategoryWrite,
			InstanceID: "clock-1",
			Write:      &log.WriteEvent{WireID: "2AFA", Acked: boolPtr(false)},
		},
		{
			Timestamp:  ts.Add(4 * time.Second),
			SessionID:  "ffff0000",
			Direction:  log.DirectionIn,
			Layer:      log.LayerTransport,
			Category:   log.CategoryError,
			InstanceID: "sensor-1",
			Error:      &log.ErrorEventData{Layer: log.LayerTransport, Message: "frame too large"},
		},
	}
}

func TestFormatValueEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[1])
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:33.123456Z",
		"[session:abc12345]",
		"IN  CODEC Value",
		"Instance: clock-1",
		"WireID: 2AF9",
		"Data: 0d",
		"Decoded: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[0])
	output := buf.String()

	if !strings.Contains(output, "Entity: ACCESSORY") {
		t.Errorf("expected entity, got: %s", output)
	}
	if !strings.Contains(output, "CONNECTING -> CONNECTED") {
		t.Errorf("expected transition, got: %s", output)
	}
}

func TestFormatWriteResultEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[3])
	if !strings.Contains(buf.String(), "Acked: false") {
		t.Errorf("expected ack status, got: %s", buf.String())
	}
}

func TestFormatMessageEvent(t *testing.T) {
	status := uint8(1)
	event := log.Event{
		Layer:   log.LayerTransport,
		Message: &log.MessageEvent{Op: "WRITE_ACK", WireID: "2AFA", Status: &status},
	}
	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()
	if !strings.Contains(output, "[session:-]") || !strings.Contains(output, "TRANSPORT WRITE_ACK") {
		t.Errorf("unexpected header: %s", output)
	}
	if !strings.Contains(output, "Status: 1") {
		t.Errorf("expected status, got: %s", output)
	}
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	layer := log.LayerSession
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if got := strings.Count(buf.String(), "[session:"); got != 3 {
		t.Errorf("expected 3 session events, got %d", got)
	}

	buf.Reset()
	if err := RunView(path, ViewFilter{WireID: "2AFA"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if got := strings.Count(buf.String(), "[session:"); got != 2 {
		t.Errorf("expected 2 events for 2AFA, got %d", got)
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("CODEC"); err != nil || l != log.LayerCodec {
		t.Errorf("ParseLayerFlag(CODEC) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("wire"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := ParseDirectionFlag("out"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(out) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
	if c, err := ParseCategoryFlag("write"); err != nil || c != log.CategoryWrite {
		t.Errorf("ParseCategoryFlag(write) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("control"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestFilterByInstanceAndTime(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	outPath := filepath.Join(t.TempDir(), "filtered"+log.FileExtension)

	count, err := RunFilter(path, FilterOptions{
		Output:     outPath,
		InstanceID: "clock-1",
		TimeStart:  "2026-01-28T10:15:33Z",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 events, got %d", count)
	}

	reader, err := log.NewReader(outPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	read := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		if event.InstanceID != "clock-1" {
			t.Errorf("expected clock-1, got %s", event.InstanceID)
		}
		read++
	}
	if read != count {
		t.Errorf("expected %d events in output, got %d", count, read)
	}
}

func TestFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out"+log.FileExtension)

	if _, err := RunFilter(path, FilterOptions{Output: out, TimeStart: "yesterday"}); err == nil {
		t.Error("expected error for bad time")
	}
	if _, err := RunFilter(path, FilterOptions{Output: out, Layer: "wire"}); err == nil {
		t.Error("expected error for bad layer")
	}
}

func TestExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := Export(path, "jsonl", &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if decoded["InstanceID"] != "clock-1" {
		t.Errorf("unexpected instance: %v", decoded["InstanceID"])
	}
}

func TestExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := Export(path, "csv", &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header + 5 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,session_id") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[3], ",Write,2AFA,50") {
		t.Errorf("unexpected write row: %s", lines[3])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if err := Export(path, "xml", io.Discard); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCollectStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	stats, err := CollectStats(path)
	if err != nil {
		t.Fatalf("CollectStats failed: %v", err)
	}
	if stats.TotalEvents != 5 {
		t.Errorf("expected 5 events, got %d", stats.TotalEvents)
	}
	if stats.EventsByLayer[log.LayerSession] != 3 {
		t.Errorf("expected 3 session events, got %d", stats.EventsByLayer[log.LayerSession])
	}
	if stats.Errors != 1 {
		t.Errorf("expected 1 error, got %d", stats.Errors)
	}
	clock := stats.Instances["clock-1"]
	if clock == nil {
		t.Fatal("missing clock-1 stats")
	}
	if clock.Values != 1 || clock.Writes != 1 || clock.WritesFailed != 1 {
		t.Errorf("unexpected clock stats: %+v", clock)
	}
	if len(clock.Sessions) != 1 {
		t.Errorf("expected 1 session, got %d", len(clock.Sessions))
	}

	var buf bytes.Buffer
	printStats(&buf, stats)
	if !strings.Contains(buf.String(), "Instances: 2") {
		t.Errorf("unexpected stats output: %s", buf.String())
	}
}
