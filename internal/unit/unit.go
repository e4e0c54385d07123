// Package unit is a small three-address instruction model with the two
// instruction-level control-flow graphs block construction runs on: the
// brief graph (normal edges only) and the exceptional graph (normal edges
// plus an edge from every trapped unit to its handler).
package unit

import "fmt"

// Op is the control-flow class of a unit.
type Op uint8

const (
	OpStmt   Op = iota // plain statement, falls through
	OpNop              // no-op, falls through
	OpIf               // conditional jump, falls through
	OpGoto             // unconditional jump
	OpSwitch           // multi-way jump
	OpReturn           // procedure exit
	OpThrow            // exceptional exit
)

func (o Op) String() string {
	switch o {
	case OpStmt:
		return "stmt"
	case OpNop:
		return "nop"
	case OpIf:
		return "if"
	case OpGoto:
		return "goto"
	case OpSwitch:
		return "switch"
	case OpReturn:
		return "return"
	case OpThrow:
		return "throw"
	default:
		return "unknown"
	}
}

// Unit is one instruction of a body.
type Unit struct {
	Index   int      // position in the body
	Line    uint32   // source line, 0 if built in memory
	Labels  []string // labels attached to the unit
	Op      Op
	Text    string   // instruction text without labels
	Targets []string // jump targets by label, in textual order
}

// Branches reports whether the unit may transfer control to a label.
func (u *Unit) Branches() bool {
	switch u.Op {
	case OpIf, OpGoto, OpSwitch:
		return true
	}
	return false
}

// FallsThrough reports whether control may continue with the next unit.
func (u *Unit) FallsThrough() bool {
	switch u.Op {
	case OpGoto, OpSwitch, OpReturn, OpThrow:
		return false
	}
	return true
}

// Name returns the first label of the unit or its positional name.
func (u *Unit) Name() string {
	if u == nil {
		return "<nil>"
	}
	if len(u.Labels) > 0 {
		return u.Labels[0]
	}
	return fmt.Sprintf("u%d", u.Index)
}

func (u *Unit) String() string {
	if u == nil {
		return "<nil>"
	}
	return fmt.Sprintf("u%d", u.Index)
}
