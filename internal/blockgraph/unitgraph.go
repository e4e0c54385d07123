package blockgraph

// UnitGraph is the instruction-level control-flow graph of one body.
// All sequences must be reported in a stable order; block indices and the
// order of block predecessors and successors follow it.
type UnitGraph[U comparable] interface {
	// Units returns the body in textual order.
	Units() []U
	PredsOf(u U) []U
	// SuccsOf lists the fall-through successor first when u falls through.
	SuccsOf(u U) []U
	Heads() []U
	Tails() []U
	Branches(u U) bool
	FallsThrough(u U) bool
}

// ExceptionTable supplies the first unit of every exception handler.
type ExceptionTable[U comparable] interface {
	HandlerUnits() []U
}

// NoHandlers is an ExceptionTable without handlers.
type NoHandlers[U comparable] struct{}

// HandlerUnits returns nil.
func (NoHandlers[U]) HandlerUnits() []U { return nil }

func handlerUnits[U comparable](et ExceptionTable[U]) []U {
	if et == nil {
		return nil
	}
	return et.HandlerUnits()
}
