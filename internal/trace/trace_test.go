package trace

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":       LevelOff,
		"off":    LevelOff,
		"ERROR":  LevelError,
		"phase":  LevelPhase,
		"detail": LevelDetail,
		"debug":  LevelDebug,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLevel_ShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopeBody, true},
		{LevelPhase, ScopeStage, false},
		{LevelDetail, ScopeStage, true},
		{LevelDetail, ScopeBlock, false},
		{LevelDebug, ScopeBlock, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%v.ShouldEmit(%v) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestRingTracer_Wraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(r, ScopeBlock, name, "", 0, nil)
	}
	events := r.Snapshot()
	if len(events) != 3 {
		t.Fatalf("len = %d, want 3", len(events))
	}
	var names []string
	for _, ev := range events {
		names = append(names, ev.Name)
	}
	if got := strings.Join(names, ","); got != "c,d,e" {
		t.Errorf("ring order = %s, want c,d,e", got)
	}
}

func TestErrorsPassFilteredLevels(t *testing.T) {
	r := NewRingTracer(8, LevelError)
	span := Begin(r, ScopeBody, "construct", 0)
	span.End("")
	Error(r, ScopeBody, "construct", errors.New("boom"), span.ID())

	events := r.Snapshot()
	if len(events) != 1 {
		t.Fatalf("got %d events, want only the error", len(events))
	}
	if events[0].Kind != KindError || events[0].Detail != "boom" {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestSpan_ExtraOnEnd(t *testing.T) {
	r := NewRingTracer(8, LevelDetail)
	span := Begin(r, ScopeStage, "partition", 7)
	span.WithExtra("blocks", "3").End("done")

	events := r.Snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	begin, end := events[0], events[1]
	if begin.Kind != KindSpanBegin || end.Kind != KindSpanEnd {
		t.Fatalf("kinds = %v, %v", begin.Kind, end.Kind)
	}
	if begin.SpanID != end.SpanID || end.ParentID != 7 {
		t.Errorf("span ids: begin=%d end=%d parent=%d", begin.SpanID, end.SpanID, end.ParentID)
	}
	if end.Extra["blocks"] != "3" || end.Detail != "done" {
		t.Errorf("end event = %+v", end)
	}
}

func TestBegin_DisabledReturnsInertSpan(t *testing.T) {
	span := Begin(Nop, ScopeDriver, "batch", 0)
	if span.ID() != 0 {
		t.Errorf("span id = %d, want 0", span.ID())
	}
	if d := span.WithExtra("k", "v").End(""); d != 0 {
		t.Errorf("duration = %v, want 0", d)
	}
}

func TestFormatText(t *testing.T) {
	ev := &Event{
		Seq:      42,
		Kind:     KindPoint,
		Scope:    ScopeBlock,
		ParentID: 3,
		Name:     "orphan",
		Detail:   "B2",
		Extra:    map[string]string{"head": "h", "block": "2"},
	}
	got := string(FormatEvent(ev, FormatText))
	want := "[    42]   • block:orphan (B2) {block=2, head=h}\n"
	if got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestFormatNDJSON(t *testing.T) {
	ev := &Event{Seq: 1, Kind: KindSpanBegin, Scope: ScopeBody, SpanID: 5, Name: "construct"}
	got := string(FormatEvent(ev, FormatNDJSON))
	for _, frag := range []string{`"kind":"begin"`, `"scope":"body"`, `"span_id":5`, `"name":"construct"`} {
		if !strings.Contains(got, frag) {
			t.Errorf("ndjson %s missing %s", got, frag)
		}
	}
	if strings.Contains(got, "parent_id") {
		t.Errorf("zero parent should be omitted: %s", got)
	}
}

func TestStreamTracer_WritesAdmittedEvents(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamTracer(&buf, LevelPhase, FormatText)
	Begin(s, ScopeDriver, "batch", 0).End("")
	Begin(s, ScopeStage, "leaders", 0).End("")

	out := buf.String()
	if n := strings.Count(out, "\n"); n != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", n, out)
	}
	if strings.Contains(out, "leaders") {
		t.Errorf("stage span leaked at phase level:\n%s", out)
	}
}

func TestNew_Modes(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr != Nop {
		t.Fatalf("off level: tracer=%T err=%v", tr, err)
	}

	var buf bytes.Buffer
	tr, err = New(Config{Level: LevelDebug, Mode: ModeBoth, Output: &buf, RingSize: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	multi, ok := tr.(*MultiTracer)
	if !ok {
		t.Fatalf("tracer = %T, want *MultiTracer", tr)
	}
	Point(tr, ScopeBlock, "note", "", 0, nil)
	ring, ok := multi.Ring()
	if !ok || len(ring.Snapshot()) != 1 {
		t.Fatal("ring did not receive the event")
	}
	if buf.Len() == 0 {
		t.Error("stream did not receive the event")
	}

	if _, err := New(Config{Level: LevelDebug, Mode: StorageMode(9)}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != Nop {
		t.Error("empty context should yield Nop")
	}
	r := NewRingTracer(4, LevelDebug)
	ctx = WithTracer(ctx, r)
	if FromContext(ctx) != r {
		t.Error("tracer not carried by context")
	}
	span := Begin(r, ScopeDriver, "batch", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx) != span.ID() {
		t.Errorf("CurrentSpan = %d, want %d", CurrentSpan(ctx), span.ID())
	}
}

func TestRingTracer_CountsDropped(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(r, ScopeBlock, name, "", 0, nil)
	}
	if got := r.Dropped(); got != 2 {
		t.Errorf("Dropped = %d, want 2", got)
	}
	if got := NewRingTracer(0, LevelDebug); cap(got.events) != defaultRingSize {
		t.Errorf("default capacity = %d, want %d", cap(got.events), defaultRingSize)
	}
}

func TestRingTracer_Failures(t *testing.T) {
	r := NewRingTracer(8, LevelPhase)
	Point(r, ScopeDriver, "batch", "", 0, nil)
	Error(r, ScopeBody, "body:f", errors.New("body has no units"), 0)
	Point(r, ScopeDriver, "file", "", 0, nil)
	failures := r.Failures()
	if len(failures) != 1 || failures[0].Name != "body:f" {
		t.Fatalf("Failures = %+v", failures)
	}
}

func TestRingOf(t *testing.T) {
	ring := NewRingTracer(4, LevelDebug)
	if got, ok := RingOf(ring); !ok || got != ring {
		t.Error("RingOf(ring) did not return the ring")
	}
	multi := NewMultiTracer(LevelDebug, NewStreamTracer(&bytes.Buffer{}, LevelDebug, FormatText), ring)
	if got, ok := RingOf(multi); !ok || got != ring {
		t.Error("RingOf(multi) did not find the ring")
	}
	if _, ok := RingOf(Nop); ok {
		t.Error("RingOf(Nop) reported a ring")
	}
}

func TestDumpOnFailure(t *testing.T) {
	var buf bytes.Buffer
	if wrote, err := DumpOnFailure(&buf, Nop); wrote || err != nil || buf.Len() != 0 {
		t.Fatalf("Nop: wrote=%v err=%v out=%q", wrote, err, buf.String())
	}

	ring := NewRingTracer(2, LevelDebug)
	if wrote, _ := DumpOnFailure(&buf, ring); wrote {
		t.Fatal("empty ring should write nothing")
	}
	Point(ring, ScopeDriver, "batch", "", 0, nil)
	Point(ring, ScopeDriver, "file", "", 0, nil)
	Error(ring, ScopeBody, "body:f", errors.New("boom"), 0)

	wrote, err := DumpOnFailure(&buf, ring)
	if err != nil || !wrote {
		t.Fatalf("wrote=%v err=%v", wrote, err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	want := "trace: last 2 events before failure, 1 failed (1 earlier events dropped):"
	if lines[0] != want {
		t.Errorf("header = %q, want %q", lines[0], want)
	}
	if len(lines) != 3 || !strings.Contains(lines[2], "! body:body:f (boom)") {
		t.Errorf("dump = %q", buf.String())
	}
}

func TestParseSettings(t *testing.T) {
	cfg, err := ParseSettings(Settings{Level: "detail", Mode: "both", Format: "ndjson", Output: "t.log", RingSize: 16})
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}
	if cfg.Level != LevelDetail || cfg.Mode != ModeBoth || cfg.Format != FormatNDJSON || cfg.OutputPath != "t.log" || cfg.RingSize != 16 {
		t.Errorf("cfg = %+v", cfg)
	}

	_, err = ParseSettings(Settings{Level: "loud", Mode: "disk", RingSize: -1})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, frag := range []string{`"loud"`, `"disk"`, "ring size: -1"} {
		if !strings.Contains(err.Error(), frag) {
			t.Errorf("error %q missing %q", err, frag)
		}
	}
}

func TestFormatFor(t *testing.T) {
	cases := map[string]Format{
		"":             FormatText,
		"trace.log":    FormatText,
		"trace.NDJSON": FormatNDJSON,
		"out.jsonl":    FormatNDJSON,
	}
	for path, want := range cases {
		if got := formatFor(path); got != want {
			t.Errorf("formatFor(%q) = %v, want %v", path, got, want)
		}
	}
}
