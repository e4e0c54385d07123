package trace

import (
	"fmt"
	"io"
	"sync"
)

// RingTracer keeps the most recent events of a run in memory so they can be
// printed when a body fails to build. Older events are overwritten and
// counted as dropped.
type RingTracer struct {
	mu      sync.RWMutex
	events  []Event
	next    int // write position
	stored  int // live events, at most len(events)
	dropped uint64
	level   Level
}

// NewRingTracer creates a RingTracer holding up to capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

// Emit stores ev, overwriting the oldest event when the ring is full.
func (t *RingTracer) Emit(ev *Event) {
	if ev == nil || !admits(t.level, ev) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stored := *ev
	if stored.Seq == 0 {
		stored.Seq = NextSeq()
	}
	t.events[t.next] = stored
	t.next = (t.next + 1) % len(t.events)
	if t.stored < len(t.events) {
		t.stored++
	} else {
		t.dropped++
	}
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Event, 0, t.stored)
	start := (t.next - t.stored + len(t.events)) % len(t.events)
	for i := 0; i < t.stored; i++ {
		out = append(out, t.events[(start+i)%len(t.events)])
	}
	return out
}

// Dropped returns how many events were overwritten.
func (t *RingTracer) Dropped() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dropped
}

// Failures returns the stored KindError events, oldest first.
func (t *RingTracer) Failures() []Event {
	var out []Event
	for _, ev := range t.Snapshot() {
		if ev.Kind == KindError {
			out = append(out, ev)
		}
	}
	return out
}

// Dump writes all stored events to w in the given format.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

// DumpOnFailure prints the ring buffer of t, if it has one, as text under a
// header naming the failure count and the dropped events. It reports whether
// anything was written.
func DumpOnFailure(w io.Writer, t Tracer) (bool, error) {
	ring, ok := RingOf(t)
	if !ok {
		return false, nil
	}
	events := ring.Snapshot()
	if len(events) == 0 {
		return false, nil
	}
	header := fmt.Sprintf("trace: last %d events before failure", len(events))
	if n := len(ring.Failures()); n > 0 {
		header += fmt.Sprintf(", %d failed", n)
	}
	if d := ring.Dropped(); d > 0 {
		header += fmt.Sprintf(" (%d earlier events dropped)", d)
	}
	if _, err := fmt.Fprintln(w, header+":"); err != nil {
		return true, err
	}
	return true, ring.Dump(w, FormatText)
}

// Flush is a no-op for RingTracer since everything is in memory.
func (t *RingTracer) Flush() error { return nil }

// Close is a no-op for RingTracer.
func (t *RingTracer) Close() error { return nil }

// Level returns the current tracing level.
func (t *RingTracer) Level() Level {
	return t.level
}

// Enabled returns true if tracing is active.
func (t *RingTracer) Enabled() bool {
	return t.level > LevelOff
}
