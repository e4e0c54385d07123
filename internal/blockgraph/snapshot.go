package blockgraph

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// Snapshot is an index-based copy of a Graph that can be serialized and
// compared without the unit type.
type Snapshot struct {
	Name    string          `msgpack:"name" json:"name"`
	Units   []string        `msgpack:"units" json:"units"`
	Blocks  []BlockSnapshot `msgpack:"blocks" json:"blocks"`
	Heads   []uint32        `msgpack:"heads" json:"heads"`
	Tails   []uint32        `msgpack:"tails" json:"tails"`
	Orphans []uint32        `msgpack:"orphans,omitempty" json:"orphans,omitempty"`
}

// BlockSnapshot describes one block by its unit range and neighbour indices.
type BlockSnapshot struct {
	Start uint32   `msgpack:"start" json:"start"`
	Len   uint32   `msgpack:"len" json:"len"`
	Preds []uint32 `msgpack:"preds" json:"preds"`
	Succs []uint32 `msgpack:"succs" json:"succs"`
}

// TakeSnapshot copies bg into a Snapshot labelled name, rendering units
// with fmt.Sprint.
func TakeSnapshot[U comparable](name string, bg *Graph[U]) (*Snapshot, error) {
	return TakeSnapshotFunc(name, bg, fmtUnit[U])
}

// TakeSnapshotFunc is TakeSnapshot with a custom unit renderer.
func TakeSnapshotFunc[U comparable](name string, bg *Graph[U], render func(U) string) (*Snapshot, error) {
	s := &Snapshot{Name: name}
	if bg == nil || len(bg.blocks) == 0 {
		return s, nil
	}
	for _, u := range bg.blocks[0].body {
		s.Units = append(s.Units, render(u))
	}

	s.Blocks = make([]BlockSnapshot, 0, len(bg.blocks))
	for _, b := range bg.blocks {
		start, err := safecast.Conv[uint32](b.start)
		if err != nil {
			return nil, fmt.Errorf("%s: start: %w", b, err)
		}
		n, err := safecast.Conv[uint32](b.length)
		if err != nil {
			return nil, fmt.Errorf("%s: length: %w", b, err)
		}
		preds, err := indices(b.preds)
		if err != nil {
			return nil, fmt.Errorf("%s: preds: %w", b, err)
		}
		succs, err := indices(b.succs)
		if err != nil {
			return nil, fmt.Errorf("%s: succs: %w", b, err)
		}
		s.Blocks = append(s.Blocks, BlockSnapshot{Start: start, Len: n, Preds: preds, Succs: succs})
	}

	var err error
	if s.Heads, err = indices(bg.heads); err != nil {
		return nil, fmt.Errorf("heads: %w", err)
	}
	if s.Tails, err = indices(bg.tails); err != nil {
		return nil, fmt.Errorf("tails: %w", err)
	}
	if len(bg.orphans) > 0 {
		if s.Orphans, err = indices(bg.orphans); err != nil {
			return nil, fmt.Errorf("orphans: %w", err)
		}
	}
	return s, nil
}

func indices[U comparable](bs []*Block[U]) ([]uint32, error) {
	out := make([]uint32, len(bs))
	for i, b := range bs {
		v, err := safecast.Conv[uint32](b.index)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// BlockUnits returns the unit labels of block i of the snapshot.
func (s *Snapshot) BlockUnits(i int) []string {
	if i < 0 || i >= len(s.Blocks) {
		return nil
	}
	b := s.Blocks[i]
	end := uint64(b.Start) + uint64(b.Len)
	if end > uint64(len(s.Units)) {
		return nil
	}
	return s.Units[b.Start:end]
}

// Validate checks that every unit range and block index of s is in range.
// Snapshots decoded from disk must pass it before they are rendered.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("blockgraph: nil snapshot")
	}
	units := uint64(len(s.Units))
	blocks := uint64(len(s.Blocks))
	check := func(what string, idx []uint32) error {
		for _, v := range idx {
			if uint64(v) >= blocks {
				return fmt.Errorf("blockgraph: snapshot %s: %s index %d out of range (%d blocks)", s.Name, what, v, blocks)
			}
		}
		return nil
	}

	var errs []error
	for i, b := range s.Blocks {
		if end := uint64(b.Start) + uint64(b.Len); end > units {
			errs = append(errs, fmt.Errorf("blockgraph: snapshot %s: B%d covers units [%d,%d) of %d", s.Name, i, b.Start, end, units))
		}
		errs = append(errs, check(fmt.Sprintf("B%d pred", i), b.Preds), check(fmt.Sprintf("B%d succ", i), b.Succs))
	}
	errs = append(errs, check("head", s.Heads), check("tail", s.Tails), check("orphan", s.Orphans))
	return errors.Join(errs...)
}
