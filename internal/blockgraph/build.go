package blockgraph

// partition is the output of the block builder: blocks in index order and
// the owner of every unit of the body.
type partition[U comparable] struct {
	blocks []*Block[U]
	owner  map[U]*Block[U]
}

// buildBlocks cuts units at every leader in a single pass. The first unit
// must be a leader.
func buildBlocks[U comparable](leaders map[U]struct{}, units []U) (*partition[U], error) {
	if len(units) == 0 {
		return nil, blockFault(FaultEmptyBody, -1, "")
	}
	if !isLeader(leaders, units[0]) {
		return nil, unitFault(FaultFirstNotLeader, units[0], -1, "leader set and body disagree")
	}

	p := &partition[U]{
		blocks: make([]*Block[U], 0, len(leaders)),
		owner:  make(map[U]*Block[U], len(units)),
	}

	start := 0
	for i := 1; i < len(units); i++ {
		if isLeader(leaders, units[i]) {
			p.add(units, start, i)
			start = i
		}
	}
	p.add(units, start, len(units))
	return p, nil
}

// add closes the block covering units[start:end].
func (p *partition[U]) add(units []U, start, end int) {
	b := &Block[U]{
		head:   units[start],
		tail:   units[end-1],
		index:  len(p.blocks),
		start:  start,
		length: end - start,
		body:   units,
	}
	p.blocks = append(p.blocks, b)
	for _, u := range units[start:end] {
		p.owner[u] = b
	}
}
