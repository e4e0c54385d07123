package blockgraph_test

import "slices"

// unitShape describes one unit of a fake body.
type unitShape struct {
	branch bool
	fall   bool
	succs  []int
}

func stmt(next int) unitShape { return unitShape{fall: true, succs: []int{next}} }
func ifGoto(next, to int) unitShape { return unitShape{branch: true, fall: true, succs: []int{next, to}} }
func gotoU(to int) unitShape { return unitShape{branch: true, succs: []int{to}} }
func ret() unitShape { return unitShape{} }

// fakeGraph is an int-unit graph whose predecessors are derived from the
// successor lists in unit order. Heads and tails default to units without
// predecessors and successors respectively.
type fakeGraph struct {
	units  []int
	shapes map[int]unitShape
	preds  map[int][]int
	heads  []int
	tails  []int
}

func newFake(shapes ...unitShape) *fakeGraph {
	g := &fakeGraph{shapes: make(map[int]unitShape), preds: make(map[int][]int)}
	for i, s := range shapes {
		g.units = append(g.units, i)
		g.shapes[i] = s
	}
	for _, u := range g.units {
		for _, s := range g.shapes[u].succs {
			g.preds[s] = append(g.preds[s], u)
		}
	}
	for _, u := range g.units {
		if len(g.preds[u]) == 0 {
			g.heads = append(g.heads, u)
		}
		if len(g.shapes[u].succs) == 0 {
			g.tails = append(g.tails, u)
		}
	}
	return g
}

func (g *fakeGraph) Units() []int { return g.units }
func (g *fakeGraph) PredsOf(u int) []int { return g.preds[u] }
func (g *fakeGraph) SuccsOf(u int) []int { return g.shapes[u].succs }
func (g *fakeGraph) Heads() []int { return g.heads }
func (g *fakeGraph) Tails() []int { return g.tails }
func (g *fakeGraph) Branches(u int) bool { return g.shapes[u].branch }
func (g *fakeGraph) FallsThrough(u int) bool { return g.shapes[u].fall }

type handlers []int

func (h handlers) HandlerUnits() []int { return h }

func (g *fakeGraph) withHeads(hs ...int) *fakeGraph {
	g.heads = slices.Clone(hs)
	return g
}

func (g *fakeGraph) withTails(ts ...int) *fakeGraph {
	g.tails = slices.Clone(ts)
	return g
}

func (g *fakeGraph) withPreds(u int, ps ...int) *fakeGraph {
	g.preds[u] = slices.Clone(ps)
	return g
}
