package blockgraph

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// Graph is the finished, immutable block-level control-flow graph.
type Graph[U comparable] struct {
	blocks  []*Block[U]
	heads   []*Block[U]
	tails   []*Block[U]
	orphans []*Block[U]
	owner   map[U]*Block[U]

	isHead map[*Block[U]]struct{}
	isTail map[*Block[U]]struct{}
}

// Blocks returns every block in index order.
func (g *Graph[U]) Blocks() []*Block[U] { return slices.Clone(g.blocks) }

// Heads returns the entry blocks. The block holding the first unit is always
// among them.
func (g *Graph[U]) Heads() []*Block[U] { return slices.Clone(g.heads) }

// Tails returns the exit blocks; it is empty for a body that never exits.
func (g *Graph[U]) Tails() []*Block[U] { return slices.Clone(g.tails) }

// Orphans returns blocks that have no predecessors and are not heads,
// typically exception handlers no unit can reach.
func (g *Graph[U]) Orphans() []*Block[U] { return slices.Clone(g.orphans) }

// Len returns the number of blocks.
func (g *Graph[U]) Len() int { return len(g.blocks) }

// Block returns the block with the given index.
func (g *Graph[U]) Block(index int) (*Block[U], bool) {
	if index < 0 || index >= len(g.blocks) {
		return nil, false
	}
	return g.blocks[index], true
}

// Lookup returns the block containing u.
func (g *Graph[U]) Lookup(u U) (*Block[U], bool) {
	b, ok := g.owner[u]
	return b, ok
}

// IsHead reports whether b is an entry block of g.
func (g *Graph[U]) IsHead(b *Block[U]) bool {
	_, ok := g.isHead[b]
	return ok
}

// IsTail reports whether b is an exit block of g.
func (g *Graph[U]) IsTail(b *Block[U]) bool {
	_, ok := g.isTail[b]
	return ok
}

// Dump writes one line per block: index, units, predecessors, successors
// and head/tail marks.
func (g *Graph[U]) Dump(w io.Writer) error {
	for _, b := range g.blocks {
		if _, err := fmt.Fprintf(w, "%s%s [%s] preds=%s succs=%s\n",
			b, g.marks(b), joinUnits(b.Units()), blockList(b.preds), blockList(b.succs)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph[U]) String() string {
	var sb strings.Builder
	g.Dump(&sb)
	return sb.String()
}

func (g *Graph[U]) marks(b *Block[U]) string {
	m := ""
	if g.IsHead(b) {
		m += " head"
	}
	if g.IsTail(b) {
		m += " tail"
	}
	return m
}

func joinUnits[U comparable](units []U) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = fmt.Sprint(u)
	}
	return strings.Join(parts, ", ")
}

func blockList[U comparable](bs []*Block[U]) string {
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = b.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// blockSet is an insertion-ordered set of blocks.
type blockSet[U comparable] struct {
	list []*Block[U]
	seen map[*Block[U]]struct{}
}

func newBlockSet[U comparable]() *blockSet[U] {
	return &blockSet[U]{seen: make(map[*Block[U]]struct{})}
}

func (s *blockSet[U]) add(b *Block[U]) {
	if _, ok := s.seen[b]; ok {
		return
	}
	s.seen[b] = struct{}{}
	s.list = append(s.list, b)
}

func (s *blockSet[U]) has(b *Block[U]) bool {
	_, ok := s.seen[b]
	return ok
}

func fmtUnit[U comparable](u U) string {
	return fmt.Sprint(u)
}
