package blockgraph

import (
	"errors"
	"fmt"
)

// Verify re-checks a finished graph against the unit graph it was built
// from: the blocks partition the body, every head is a leader under policy
// and no other unit is, exit-less blocks are tails, predecessor-less blocks
// are heads or unreachable handler blocks, and the first block is a head.
// All violations are returned joined.
func Verify[U comparable](bg *Graph[U], g UnitGraph[U], et ExceptionTable[U], policy LeaderPolicy[U]) error {
	if bg == nil || g == nil {
		return errors.New("verify: nil graph")
	}
	if policy == nil {
		policy = BigBlockLeaders[U]
	}

	var errs []error
	units := g.Units()
	handlers := handlerUnits(et)

	// 1. partition
	pos := 0
	for i, b := range bg.blocks {
		if b.index != i {
			errs = append(errs, fmt.Errorf("%s: stored at position %d", b, i))
		}
		if b.length <= 0 {
			errs = append(errs, fmt.Errorf("%s: empty block", b))
			continue
		}
		for _, u := range b.Units() {
			if pos >= len(units) {
				errs = append(errs, fmt.Errorf("%s: unit %v beyond the end of the body", b, u))
				break
			}
			if units[pos] != u {
				errs = append(errs, fmt.Errorf("%s: unit %v at body position %d, want %v", b, u, pos, units[pos]))
			}
			if owner, ok := bg.Lookup(u); !ok || owner != b {
				errs = append(errs, fmt.Errorf("%s: unit %v is owned by %s", b, u, owner))
			}
			pos++
		}
	}
	if pos != len(units) {
		errs = append(errs, fmt.Errorf("blocks cover %d of %d units", pos, len(units)))
	}

	// 2. leaders open blocks, nothing else does
	leaders := policy(g, handlers)
	for _, b := range bg.blocks {
		for i, u := range b.Units() {
			switch {
			case i == 0 && !isLeader(leaders, u):
				errs = append(errs, fmt.Errorf("%s: head %v is not a leader", b, u))
			case i > 0 && isLeader(leaders, u):
				errs = append(errs, fmt.Errorf("%s: leader %v is not a block head", b, u))
			}
		}
	}

	// 3. heads and tails
	if len(bg.blocks) > 0 && !bg.IsHead(bg.blocks[0]) {
		errs = append(errs, fmt.Errorf("%s: first block is not a head", bg.blocks[0]))
	}
	handlerSet := make(map[U]struct{}, len(handlers))
	for _, h := range handlers {
		handlerSet[h] = struct{}{}
	}
	for _, b := range bg.blocks {
		if len(b.succs) == 0 && !bg.IsTail(b) {
			errs = append(errs, fmt.Errorf("%s: no successors and not a tail", b))
		}
		if len(b.preds) == 0 && !bg.IsHead(b) {
			if _, ok := handlerSet[b.head]; !ok {
				errs = append(errs, fmt.Errorf("%s: no predecessors, not a head and not a handler", b))
			}
		}
		for _, e := range append(b.Preds(), b.Succs()...) {
			if other, ok := bg.Block(e.index); !ok || other != e {
				errs = append(errs, fmt.Errorf("%s: edge to foreign block %s", b, e))
			}
		}
	}

	return errors.Join(errs...)
}
