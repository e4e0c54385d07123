package testkit

import (
	"strings"
	"testing"

	"bbgraph/internal/blockgraph"
)

func TestCheckSnapshotInvariants(t *testing.T) {
	good := &blockgraph.Snapshot{
		Units: []string{"a", "b", "c"},
		Blocks: []blockgraph.BlockSnapshot{
			{Start: 0, Len: 2, Succs: []uint32{1}},
			{Start: 2, Len: 1, Preds: []uint32{0}},
		},
		Heads: []uint32{0},
		Tails: []uint32{1},
	}
	if err := CheckSnapshotInvariants(good); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(s *blockgraph.Snapshot)
		want   string
	}{
		{"gap", func(s *blockgraph.Snapshot) { s.Blocks[1].Start = 3 }, "starts at 3"},
		{"short", func(s *blockgraph.Snapshot) { s.Units = append(s.Units, "d") }, "cover 3 units"},
		{"range", func(s *blockgraph.Snapshot) { s.Tails = []uint32{5} }, "out of range"},
		{"asymmetric", func(s *blockgraph.Snapshot) { s.Blocks[1].Preds = nil }, "no matching pred"},
		{"no head", func(s *blockgraph.Snapshot) { s.Heads = nil }, "B0 is not a head"},
		{"orphan with preds", func(s *blockgraph.Snapshot) { s.Orphans = []uint32{1} }, "orphan B1 has preds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := clone(good)
			tt.mutate(s)
			err := CheckSnapshotInvariants(s)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func clone(s *blockgraph.Snapshot) *blockgraph.Snapshot {
	out := *s
	out.Units = append([]string(nil), s.Units...)
	out.Blocks = make([]blockgraph.BlockSnapshot, len(s.Blocks))
	for i, b := range s.Blocks {
		b.Preds = append([]uint32(nil), b.Preds...)
		b.Succs = append([]uint32(nil), b.Succs...)
		out.Blocks[i] = b
	}
	return &out
}
