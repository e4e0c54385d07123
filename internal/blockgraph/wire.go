package blockgraph

import (
	"slices"

	"bbgraph/internal/trace"
)

// wire derives heads, tails, predecessors and successors of every block in
// p from the unit graph and freezes the result.
func wire[U comparable](p *partition[U], g UnitGraph[U], tr trace.Tracer, parent uint64) (*Graph[U], error) {
	first := p.blocks[0].head

	heads := newBlockSet[U]()
	for _, u := range g.Heads() {
		b, ok := p.owner[u]
		if !ok {
			return nil, unitFault(FaultHeadNotBlockHead, u, -1, "head unit is not part of the body")
		}
		if b.head != u {
			return nil, unitFault(FaultHeadNotBlockHead, u, b.index, "block starts at %v", b.head)
		}
		heads.add(b)
	}
	// A body that is one big loop has no natural entry among the unit heads.
	heads.add(p.owner[first])

	tails := newBlockSet[U]()
	for _, u := range g.Tails() {
		b, ok := p.owner[u]
		if !ok {
			return nil, unitFault(FaultTailNotBlockTail, u, -1, "tail unit is not part of the body")
		}
		if b.tail != u {
			return nil, unitFault(FaultTailNotBlockTail, u, b.index, "block ends at %v", b.tail)
		}
		tails.add(b)
	}

	var orphans []*Block[U]
	for _, b := range p.blocks {
		preds, err := wirePreds(p, g, b)
		if err != nil {
			return nil, err
		}
		b.preds = preds
		if len(preds) > 0 && b.head == first {
			heads.add(b)
		}

		succs, err := wireSuccs(p, g, b)
		if err != nil {
			return nil, err
		}
		b.succs = succs
		if len(succs) == 0 && !tails.has(b) {
			return nil, unitFault(FaultNoSuccessors, b.tail, b.index, "")
		}
	}

	// Handlers left unreachable by upstream dead-code elimination have no
	// predecessors without being heads. They are kept and reported.
	for _, b := range p.blocks {
		if len(b.preds) == 0 && !heads.has(b) {
			orphans = append(orphans, b)
			trace.Point(tr, trace.ScopeBlock, "orphan", "block has no predecessors and is not a head", parent,
				map[string]string{"block": b.String(), "head": fmtUnit(b.head)})
		}
	}

	out := &Graph[U]{
		blocks:  slices.Clip(p.blocks),
		heads:   slices.Clip(heads.list),
		tails:   slices.Clip(tails.list),
		orphans: orphans,
		owner:   p.owner,
		isHead:  heads.seen,
		isTail:  tails.seen,
	}
	return out, nil
}

// wirePreds maps the predecessors of b's head unit to their blocks.
func wirePreds[U comparable](p *partition[U], g UnitGraph[U], b *Block[U]) ([]*Block[U], error) {
	predUnits := g.PredsOf(b.head)
	if len(predUnits) == 0 {
		return nil, nil
	}
	preds := make([]*Block[U], 0, len(predUnits))
	for _, u := range predUnits {
		pb, ok := p.owner[u]
		if !ok {
			return nil, unitFault(FaultDanglingEdge, u, b.index, "predecessor of %v", b.head)
		}
		preds = append(preds, pb)
	}
	return preds, nil
}

// wireSuccs scans every branch inside b for jump targets and puts the
// fall-through successor of b's tail in front of them.
func wireSuccs[U comparable](p *partition[U], g UnitGraph[U], b *Block[U]) ([]*Block[U], error) {
	var succs []*Block[U]
	for _, u := range b.body[b.start : b.start+b.length] {
		if !g.Branches(u) {
			continue
		}
		targets := g.SuccsOf(u)
		if g.FallsThrough(u) && len(targets) > 0 {
			targets = targets[1:]
		}
		for _, t := range targets {
			sb, ok := p.owner[t]
			if !ok {
				return nil, unitFault(FaultDanglingEdge, t, b.index, "jump target of %v", u)
			}
			succs = append(succs, sb)
		}
	}

	if g.FallsThrough(b.tail) {
		next := g.SuccsOf(b.tail)
		if len(next) == 0 {
			return nil, unitFault(FaultDanglingEdge, b.tail, b.index, "tail falls through to nothing")
		}
		sb, ok := p.owner[next[0]]
		if !ok {
			return nil, unitFault(FaultDanglingEdge, next[0], b.index, "fall-through of %v", b.tail)
		}
		succs = slices.Insert(succs, 0, sb)
	}
	return succs, nil
}
