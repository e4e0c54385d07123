package blockgraph

import (
	"fmt"
	"slices"
)

// Block is a maximal contiguous run of units of one body.
type Block[U comparable] struct {
	head   U
	tail   U
	index  int
	start  int // position of head in the body
	length int

	body  []U
	preds []*Block[U]
	succs []*Block[U]
}

// Head returns the first unit of the block.
func (b *Block[U]) Head() U { return b.head }

// Tail returns the last unit of the block.
func (b *Block[U]) Tail() U { return b.tail }

// Index returns the position of the block among the blocks of its graph.
func (b *Block[U]) Index() int { return b.index }

// Len returns the number of units in the block.
func (b *Block[U]) Len() int { return b.length }

// Start returns the position of the block's head in the body.
func (b *Block[U]) Start() int { return b.start }

// Units returns the units of the block in body order.
func (b *Block[U]) Units() []U {
	return slices.Clone(b.body[b.start : b.start+b.length])
}

// Contains reports whether u lies inside the block.
func (b *Block[U]) Contains(u U) bool {
	return slices.Contains(b.body[b.start:b.start+b.length], u)
}

// Preds returns the predecessor blocks in the order the unit graph reported
// the predecessors of the head unit.
func (b *Block[U]) Preds() []*Block[U] { return slices.Clone(b.preds) }

// Succs returns the successor blocks; the fall-through successor comes first.
func (b *Block[U]) Succs() []*Block[U] { return slices.Clone(b.succs) }

func (b *Block[U]) String() string {
	if b == nil {
		return "B?"
	}
	return fmt.Sprintf("B%d", b.index)
}
