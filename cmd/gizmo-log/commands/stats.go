package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gizmo-config/gizmo-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Instances         map[string]*InstanceStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// InstanceStats holds statistics for a single peripheral instance.
type InstanceStats struct {
	FirstSeen    time.Time
	LastSeen     time.Time
	Events       int
	Sessions     map[string]bool
	Values       int
	Writes       int
	WritesFailed int
	SchemaID     string
}

// CollectStats reads the log file and aggregates its events.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Instances:         make(map[string]*InstanceStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}
	if event.Error != nil {
		s.Errors++
	}

	if event.InstanceID == "" {
		return
	}
	inst, ok := s.Instances[event.InstanceID]
	if !ok {
		inst = &InstanceStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
			Sessions:  make(map[string]bool),
		}
		s.Instances[event.InstanceID] = inst
	}
	inst.Events++
	if event.Timestamp.After(inst.LastSeen) {
		inst.LastSeen = event.Timestamp
	}
	if event.SessionID != "" {
		inst.Sessions[event.SessionID] = true
	}
	if event.SchemaID != "" && inst.SchemaID == "" {
		inst.SchemaID = event.SchemaID
	}
	if event.Value != nil {
		inst.Values++
	}
	if event.Write != nil && event.Write.Acked == nil {
		inst.Writes++
	}
	if event.Write != nil && event.Write.Acked != nil && !*event.Write.Acked {
		inst.WritesFailed++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Gizmo Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerCodec, log.LayerSession} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryWrite, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Instances: %d\n", len(stats.Instances))
	ids := make([]string, 0, len(stats.Instances))
	for id := range stats.Instances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return stats.Instances[ids[i]].FirstSeen.Before(stats.Instances[ids[j]].FirstSeen)
	})
	for _, id := range ids {
		inst := stats.Instances[id]
		duration := inst.LastSeen.Sub(inst.FirstSeen).Round(time.Millisecond)
		fmt.Fprintf(w, "  [%s] %d events, %d session(s), duration %s\n", id, inst.Events, len(inst.Sessions), duration)
		fmt.Fprintf(w, "           Values: %d  Writes: %d  Failed: %d\n", inst.Values, inst.Writes, inst.WritesFailed)
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
