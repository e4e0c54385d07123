// Package testkit holds invariant checks shared by tests of packages that
// produce block-graph snapshots.
package testkit

import (
	"errors"
	"fmt"
	"slices"

	"fortio.org/safecast"

	"bbgraph/internal/blockgraph"
)

// CheckSnapshotInvariants runs the structural checks that hold for every
// snapshot, whether freshly built or decoded from disk:
// 1) blocks are non-empty, contiguous and cover every unit exactly once
// 2) every pred/succ/head/tail/orphan index is in range
// 3) edges are symmetric: j in succs(i) iff i in preds(j)
// 4) block 0 is a head, and orphans are neither heads nor have preds
func CheckSnapshotInvariants(s *blockgraph.Snapshot) error {
	if s == nil {
		return errors.New("nil snapshot")
	}
	n, err := safecast.Conv[uint32](len(s.Blocks))
	if err != nil {
		return fmt.Errorf("block count overflow: %w", err)
	}
	var errs []error

	var next uint32
	for i, b := range s.Blocks {
		if b.Len == 0 {
			errs = append(errs, fmt.Errorf("B%d is empty", i))
		}
		if b.Start != next {
			errs = append(errs, fmt.Errorf("B%d starts at %d, want %d", i, b.Start, next))
		}
		next = b.Start + b.Len
	}
	if int(next) != len(s.Units) {
		errs = append(errs, fmt.Errorf("blocks cover %d units, body has %d", next, len(s.Units)))
	}

	inRange := func(what string, idx []uint32) {
		for _, v := range idx {
			if v >= n {
				errs = append(errs, fmt.Errorf("%s index %d out of range", what, v))
			}
		}
	}
	inRange("head", s.Heads)
	inRange("tail", s.Tails)
	inRange("orphan", s.Orphans)
	for i, b := range s.Blocks {
		inRange(fmt.Sprintf("B%d pred", i), b.Preds)
		inRange(fmt.Sprintf("B%d succ", i), b.Succs)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for i, b := range s.Blocks {
		self := uint32(i)
		for _, j := range b.Succs {
			if !slices.Contains(s.Blocks[j].Preds, self) {
				errs = append(errs, fmt.Errorf("B%d -> B%d has no matching pred", i, j))
			}
		}
		for _, j := range b.Preds {
			if !slices.Contains(s.Blocks[j].Succs, self) {
				errs = append(errs, fmt.Errorf("B%d <- B%d has no matching succ", i, j))
			}
		}
	}

	if n > 0 && !slices.Contains(s.Heads, 0) {
		errs = append(errs, errors.New("B0 is not a head"))
	}
	for _, o := range s.Orphans {
		if slices.Contains(s.Heads, o) {
			errs = append(errs, fmt.Errorf("orphan B%d is a head", o))
		}
		if len(s.Blocks[o].Preds) > 0 {
			errs = append(errs, fmt.Errorf("orphan B%d has preds", o))
		}
	}
	return errors.Join(errs...)
}
