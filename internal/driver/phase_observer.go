package driver

import "time"

// Phase names reported to a PhaseObserver.
const (
	PhaseRead      = "read"
	PhaseParse     = "parse"
	PhaseConstruct = "construct"
	PhaseVerify    = "verify"
	PhaseCache     = "cache"
)

// PhaseEvent describes one finished phase of a batch run.
type PhaseEvent struct {
	Name    string
	Path    string
	Body    string // empty for file-level phases
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted during Run.
// It is called from worker goroutines and must be safe for concurrent use.
type PhaseObserver func(PhaseEvent)

func (o PhaseObserver) observe(name, path, body string, started time.Time) {
	if o == nil {
		return
	}
	o(PhaseEvent{Name: name, Path: path, Body: body, Elapsed: time.Since(started)})
}
