// Package metrics counts what the engine does: bytes parsed, events moved
// through the bridge, frames handed off, and per-session read traffic. The
// registry is lock-free on the hot paths and renders Prometheus text on
// demand.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

type Registry struct {
	parserBytes   atomic.Int64
	parserActions atomic.Int64

	eventsEnqueued  atomic.Int64
	eventsRejected  atomic.Int64
	eventsProcessed atomic.Int64

	framesReady     atomic.Int64
	framesTimeout   atomic.Int64
	framesCancelled atomic.Int64

	sessions sync.Map
}

type sessionStats struct {
	bytesRead atomic.Int64
	reads     atomic.Int64
}

var Default = &Registry{}

func (r *Registry) AddParserBytes(n int) {
	if r == nil {
		return
	}
	r.parserBytes.Add(int64(n))
}

func (r *Registry) IncParserActions() {
	if r == nil {
		return
	}
	r.parserActions.Add(1)
}

func (r *Registry) IncEventsEnqueued() {
	if r == nil {
		return
	}
	r.eventsEnqueued.Add(1)
}

func (r *Registry) IncEventsRejected() {
	if r == nil {
		return
	}
	r.eventsRejected.Add(1)
}

func (r *Registry) IncEventsProcessed() {
	if r == nil {
		return
	}
	r.eventsProcessed.Add(1)
}

func (r *Registry) IncFramesReady() {
	if r == nil {
		return
	}
	r.framesReady.Add(1)
}

func (r *Registry) IncFramesTimeout() {
	if r == nil {
		return
	}
	r.framesTimeout.Add(1)
}

func (r *Registry) IncFramesCancelled() {
	if r == nil {
		return
	}
	r.framesCancelled.Add(1)
}

// RecordSessionRead accounts one PTY read for the session.
func (r *Registry) RecordSessionRead(session string, n int) {
	if r == nil {
		return
	}
	if strings.TrimSpace(session) == "" {
		session = "unknown"
	}
	stats := r.sessionStats(session)
	stats.reads.Add(1)
	stats.bytesRead.Add(int64(n))
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	writeCounter(writer, "termcore_parser_bytes_total", "Total bytes fed to the parser", r.parserBytes.Load())
	writeCounter(writer, "termcore_parser_actions_total", "Total parser actions dispatched", r.parserActions.Load())
	writeCounter(writer, "termcore_events_enqueued_total", "Total bridge events accepted", r.eventsEnqueued.Load())
	writeCounter(writer, "termcore_events_rejected_total", "Total bridge events rejected", r.eventsRejected.Load())
	writeCounter(writer, "termcore_events_processed_total", "Total bridge events processed", r.eventsProcessed.Load())
	writeCounter(writer, "termcore_frames_ready_total", "Frame waits that returned ready", r.framesReady.Load())
	writeCounter(writer, "termcore_frames_timeout_total", "Frame waits that timed out", r.framesTimeout.Load())
	writeCounter(writer, "termcore_frames_cancelled_total", "Frame waits with no outstanding request", r.framesCancelled.Load())

	names := r.sessionNames()
	sort.Strings(names)

	writeHelp(writer, "termcore_session_bytes_read_total", "Bytes read from the session PTY")
	fmt.Fprintln(writer, "# TYPE termcore_session_bytes_read_total counter")
	writeHelp(writer, "termcore_session_reads_total", "PTY reads per session")
	fmt.Fprintln(writer, "# TYPE termcore_session_reads_total counter")

	for _, name := range names {
		stats := r.sessionStats(name)
		label := formatLabel(name)
		fmt.Fprintf(writer, "termcore_session_bytes_read_total{session=%s} %d\n", label, stats.bytesRead.Load())
		fmt.Fprintf(writer, "termcore_session_reads_total{session=%s} %d\n", label, stats.reads.Load())
	}

	return nil
}

func (r *Registry) sessionStats(name string) *sessionStats {
	value, _ := r.sessions.LoadOrStore(name, &sessionStats{})
	return value.(*sessionStats)
}

func (r *Registry) sessionNames() []string {
	if r == nil {
		return nil
	}
	var names []string
	r.sessions.Range(func(key, value interface{}) bool {
		if name, ok := key.(string); ok {
			names = append(names, name)
		}
		return true
	})
	return names
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
