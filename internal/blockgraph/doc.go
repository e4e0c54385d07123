// Package blockgraph partitions the instruction-level control-flow graph of a
// single procedure body into basic blocks and wires block-level predecessor
// and successor lists.
//
// Construction runs in three stages: a LeaderPolicy picks the units that
// must open a block, the partition stage cuts the body at those leaders, and
// the wiring stage derives heads, tails, predecessors and successors from the
// instruction-level graph. The default policy builds "big blocks": a jump does
// not end a block by itself, only control merges, handler entries and exits
// do. Successors of a block are therefore collected by scanning every branch
// inside the block, with the fall-through successor of the tail placed first.
//
// The resulting Graph is immutable and safe for concurrent readers.
package blockgraph
