package blockgraph_test

import (
	"strings"
	"testing"

	"bbgraph/internal/blockgraph"
	"bbgraph/internal/testkit"
	"bbgraph/internal/unit"
)

func parseOne(t *testing.T, src string) *unit.Body {
	t.Helper()
	bodies, err := unit.Parse("listing.bbl", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(bodies) != 1 {
		t.Fatalf("expected 1 body, got %d", len(bodies))
	}
	return bodies[0]
}

func blockTexts(bg *blockgraph.Graph[*unit.Unit]) []string {
	var out []string
	for _, b := range bg.Blocks() {
		var parts []string
		for _, u := range b.Units() {
			parts = append(parts, u.Text)
		}
		out = append(out, strings.Join(parts, "; "))
	}
	return out
}

func TestListing_BigBlockKeepsJumpsInside(t *testing.T) {
	body := parseOne(t, `
    i = 0
    if n == 0 goto zero
    goto done
zero: i = 1
done: return i
`)
	g := unit.NewGraph(body, unit.GraphBrief)
	bg, err := blockgraph.Construct[*unit.Unit](g, body)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	got := blockTexts(bg)
	want := []string{"i = 0; if n == 0 goto zero; goto done", "i = 1", "return i"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("blocks = %q, want %q", got, want)
	}
	if err := blockgraph.Verify[*unit.Unit](bg, g, body, nil); err != nil {
		t.Errorf("verify: %v", err)
	}
	snap, err := blockgraph.TakeSnapshot("dead", bg)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := testkit.CheckSnapshotInvariants(snap); err != nil {
		t.Errorf("snapshot invariants: %v", err)
	}
}

func TestListing_SwitchFirstCaseStaysInEntryBlock(t *testing.T) {
	// Case "a" is reached only from the switch right above it, so it is not a
	// leader and the entry block lists itself among its successors.
	body := parseOne(t, `
    switch k a b default c
a:  r = 1
    goto out
b:  r = 2
    goto out
c:  r = 3
out: return r
`)
	g := unit.NewGraph(body, unit.GraphBrief)
	bg, err := blockgraph.Construct[*unit.Unit](g, body)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	entry, _ := bg.Block(0)
	var succHeads []string
	for _, s := range entry.Succs() {
		succHeads = append(succHeads, s.Head().Name())
	}
	if strings.Join(succHeads, ",") != "u0,b,c,out" {
		t.Errorf("entry successors = %v, want [u0 b c out]", succHeads)
	}
	exit, ok := bg.Lookup(body.Units[len(body.Units)-1])
	if !ok || !bg.IsTail(exit) || len(exit.Preds()) != 3 {
		t.Errorf("exit block %v: tail=%v preds=%v", exit, bg.IsTail(exit), exit.Preds())
	}
}

func TestListing_ExceptionalDeadHandler(t *testing.T) {
	body := parseOne(t, `
a:  x = 1
    return x
h:  return 0
.trap a a h
`)
	g := unit.NewGraph(body, unit.GraphExceptional)
	bg, err := blockgraph.Construct[*unit.Unit](g, body)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	orphans := bg.Orphans()
	if len(orphans) != 1 || orphans[0].Head().Name() != "h" {
		t.Fatalf("orphans = %v, want the handler block", orphans)
	}
	if err := blockgraph.Verify[*unit.Unit](bg, g, body, nil); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestListing_ExceptionalHandlerFromBranch(t *testing.T) {
	body := parseOne(t, `
try: if c goto skip
    x = load p
skip: return x
h:  return 0
.trap try skip h
`)
	g := unit.NewGraph(body, unit.GraphExceptional)
	bg, err := blockgraph.Construct[*unit.Unit](g, body)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	entry, _ := bg.Block(0)
	var succHeads []string
	for _, s := range entry.Succs() {
		succHeads = append(succHeads, s.Head().Name())
	}
	// fall-through first, then the jump target, then the handler reached from
	// the trapped branch.
	if strings.Join(succHeads, ",") != "skip,skip,h" {
		t.Errorf("entry successors = %v", succHeads)
	}
	if len(bg.Orphans()) != 0 {
		t.Errorf("unexpected orphans %v", bg.Orphans())
	}
}
