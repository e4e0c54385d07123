package unit

import (
	"fmt"
	"slices"
	"strings"
)

// GraphKind selects which edges a Graph carries.
type GraphKind uint8

const (
	// GraphBrief has normal control-flow edges only.
	GraphBrief GraphKind = iota
	// GraphExceptional adds an edge from every trapped unit to its handler.
	GraphExceptional
)

func (k GraphKind) String() string {
	switch k {
	case GraphBrief:
		return "brief"
	case GraphExceptional:
		return "exceptional"
	default:
		return "unknown"
	}
}

// ParseGraphKind converts a configuration name to a GraphKind.
func ParseGraphKind(s string) (GraphKind, error) {
	switch strings.ToLower(s) {
	case "", "brief":
		return GraphBrief, nil
	case "exceptional", "exc":
		return GraphExceptional, nil
	default:
		return GraphBrief, fmt.Errorf("invalid graph kind: %q (expected: brief|exceptional)", s)
	}
}

// Graph is the instruction-level control-flow graph of one body.
type Graph struct {
	body  *Body
	kind  GraphKind
	preds [][]*Unit
	succs [][]*Unit
	heads []*Unit
	tails []*Unit
}

// NewGraph builds the graph of kind k over b.
//
// Successors list the fall-through unit first, then jump targets in textual
// order, then (exceptional graphs only) trap handlers in table order, without
// duplicates. Predecessor lists follow unit order.
func NewGraph(b *Body, k GraphKind) *Graph {
	n := len(b.Units)
	g := &Graph{
		body:  b,
		kind:  k,
		preds: make([][]*Unit, n),
		succs: make([][]*Unit, n),
	}

	var trapped [][]*Unit
	if k == GraphExceptional {
		trapped = make([][]*Unit, n)
		for _, tr := range b.Traps {
			begin, end, h, err := b.trapRange(tr)
			if err != nil {
				continue // rejected by NewBody
			}
			for i := begin; i < end; i++ {
				trapped[i] = append(trapped[i], h)
			}
		}
	}

	for i, u := range b.Units {
		var out []*Unit
		if u.FallsThrough() && i+1 < n {
			out = append(out, b.Units[i+1])
		}
		for _, t := range u.Targets {
			tu := b.labels[t]
			if !slices.Contains(out, tu) {
				out = append(out, tu)
			}
		}
		normal := len(out)
		if trapped != nil {
			for _, h := range trapped[i] {
				if !slices.Contains(out, h) {
					out = append(out, h)
				}
			}
		}
		g.succs[i] = out
		for _, s := range out {
			g.preds[s.Index] = append(g.preds[s.Index], u)
		}
		if normal == 0 {
			g.tails = append(g.tails, u)
		}
	}

	handlers := make(map[*Unit]struct{})
	if k == GraphExceptional {
		for _, h := range b.HandlerUnits() {
			handlers[h] = struct{}{}
		}
	}
	for i, u := range b.Units {
		if i == 0 {
			g.heads = append(g.heads, u)
			continue
		}
		if _, ok := handlers[u]; ok {
			continue
		}
		if len(g.preds[i]) == 0 {
			g.heads = append(g.heads, u)
		}
	}
	return g
}

// Body returns the body the graph was built from.
func (g *Graph) Body() *Body { return g.body }

// Kind returns the edge kind of the graph.
func (g *Graph) Kind() GraphKind { return g.kind }

func (g *Graph) Units() []*Unit { return g.body.Units }

func (g *Graph) PredsOf(u *Unit) []*Unit {
	if !g.owns(u) {
		return nil
	}
	return g.preds[u.Index]
}

func (g *Graph) SuccsOf(u *Unit) []*Unit {
	if !g.owns(u) {
		return nil
	}
	return g.succs[u.Index]
}

func (g *Graph) Heads() []*Unit { return g.heads }

func (g *Graph) Tails() []*Unit { return g.tails }

func (g *Graph) Branches(u *Unit) bool { return u.Branches() }

func (g *Graph) FallsThrough(u *Unit) bool { return u.FallsThrough() }

func (g *Graph) owns(u *Unit) bool {
	return u != nil && u.Index >= 0 && u.Index < len(g.body.Units) && g.body.Units[u.Index] == u
}
