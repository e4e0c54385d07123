package blockgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Fault classifies a construction failure. Every fault is an internal
// consistency violation between the unit graph and the partition.
type Fault uint8

const (
	FaultEmptyBody Fault = iota + 1
	FaultFirstNotLeader
	FaultHeadNotBlockHead
	FaultTailNotBlockTail
	FaultDanglingEdge
	FaultNoSuccessors
)

var (
	ErrEmptyBody        = errors.New("body has no units")
	ErrFirstNotLeader   = errors.New("first unit is not a leader")
	ErrHeadNotBlockHead = errors.New("head unit is not the first unit of its block")
	ErrTailNotBlockTail = errors.New("tail unit is not the last unit of its block")
	ErrDanglingEdge     = errors.New("edge endpoint maps to no block")
	ErrNoSuccessors     = errors.New("block with no successors is not a tail")
)

func (f Fault) sentinel() error {
	switch f {
	case FaultEmptyBody:
		return ErrEmptyBody
	case FaultFirstNotLeader:
		return ErrFirstNotLeader
	case FaultHeadNotBlockHead:
		return ErrHeadNotBlockHead
	case FaultTailNotBlockTail:
		return ErrTailNotBlockTail
	case FaultDanglingEdge:
		return ErrDanglingEdge
	case FaultNoSuccessors:
		return ErrNoSuccessors
	}
	return nil
}

// String returns the sentinel message of the fault.
func (f Fault) String() string {
	if err := f.sentinel(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("fault(%d)", uint8(f))
}

// ConsistencyError reports the unit and block that tripped a fault.
// It unwraps to the fault's sentinel error.
type ConsistencyError struct {
	Fault  Fault
	Unit   string // offending unit, empty if none
	Block  int    // offending block index, -1 if none
	Detail string
}

func (e *ConsistencyError) Error() string {
	var sb strings.Builder
	sb.WriteString("blockgraph: ")
	sb.WriteString(e.Fault.String())
	if e.Block >= 0 {
		fmt.Fprintf(&sb, " (B%d)", e.Block)
	}
	if e.Unit != "" {
		fmt.Fprintf(&sb, ": unit %q", e.Unit)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *ConsistencyError) Unwrap() error {
	return e.Fault.sentinel()
}

func unitFault[U comparable](f Fault, u U, block int, format string, args ...any) error {
	e := &ConsistencyError{Fault: f, Unit: fmt.Sprint(u), Block: block}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}

func blockFault(f Fault, block int, format string, args ...any) error {
	e := &ConsistencyError{Fault: f, Block: block}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}
