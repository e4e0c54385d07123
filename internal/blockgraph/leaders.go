package blockgraph

import (
	"fmt"
	"strings"
)

// LeaderPolicy decides which units open a new block.
type LeaderPolicy[U comparable] func(g UnitGraph[U], handlers []U) map[U]struct{}

// Policy names a built-in LeaderPolicy.
type Policy uint8

const (
	PolicyBigBlock Policy = iota // merges, handler entries and exits only
	PolicyClassic                // additionally every jump target and every unit after a jump
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyBigBlock:
		return "bigblock"
	case PolicyClassic:
		return "classic"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a configuration name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "bigblock", "big":
		return PolicyBigBlock, nil
	case "classic", "basic":
		return PolicyClassic, nil
	default:
		return PolicyBigBlock, fmt.Errorf("invalid leader policy: %q (expected: bigblock|classic)", s)
	}
}

// LeadersFor returns the LeaderPolicy implementing p.
func LeadersFor[U comparable](p Policy) LeaderPolicy[U] {
	if p == PolicyClassic {
		return ClassicLeaders[U]
	}
	return BigBlockLeaders[U]
}

// BigBlockLeaders marks u as a leader iff u is a handler entry, u does not
// have exactly one predecessor, u's only predecessor is not the unit right
// before it in the body, or u is a tail of g.
func BigBlockLeaders[U comparable](g UnitGraph[U], handlers []U) map[U]struct{} {
	units := g.Units()
	leaders := make(map[U]struct{}, len(handlers)+len(units)/4+1)

	for _, h := range handlers {
		leaders[h] = struct{}{}
	}

	tails := make(map[U]struct{})
	for _, t := range g.Tails() {
		tails[t] = struct{}{}
	}

	for i, u := range units {
		preds := g.PredsOf(u)
		if len(preds) != 1 || i == 0 || preds[0] != units[i-1] {
			leaders[u] = struct{}{}
			continue
		}
		if _, ok := tails[u]; ok {
			leaders[u] = struct{}{}
		}
	}
	return leaders
}

// ClassicLeaders is the textbook basic-block rule: besides the first unit,
// handler entries and units without exactly one predecessor, every successor
// of a branching unit and every unit following a branch or a unit that does
// not fall through opens a block.
func ClassicLeaders[U comparable](g UnitGraph[U], handlers []U) map[U]struct{} {
	units := g.Units()
	leaders := make(map[U]struct{}, len(handlers)+len(units)/2+1)

	if len(units) > 0 {
		leaders[units[0]] = struct{}{}
	}
	for _, h := range handlers {
		leaders[h] = struct{}{}
	}

	for i, u := range units {
		if len(g.PredsOf(u)) != 1 {
			leaders[u] = struct{}{}
		}
		succs := g.SuccsOf(u)
		if g.Branches(u) || len(succs) > 1 {
			for _, s := range succs {
				leaders[s] = struct{}{}
			}
		}
		if (g.Branches(u) || !g.FallsThrough(u)) && i+1 < len(units) {
			leaders[units[i+1]] = struct{}{}
		}
	}
	return leaders
}

func isLeader[U comparable](leaders map[U]struct{}, u U) bool {
	_, ok := leaders[u]
	return ok
}
