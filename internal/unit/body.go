package unit

import "fmt"

// Trap routes exceptions raised by the units in [Begin, End) to Handler.
// An empty End extends the range to the end of the body.
type Trap struct {
	Begin   string
	End     string
	Handler string
}

// Body is an ordered sequence of units plus its exception table.
type Body struct {
	Name  string
	File  string
	Units []*Unit
	Traps []Trap

	labels map[string]*Unit
}

// NewBody indexes units and resolves every jump target and trap label.
func NewBody(name string, units []*Unit, traps []Trap) (*Body, error) {
	b := &Body{Name: name, Units: units, Traps: traps, labels: make(map[string]*Unit)}
	for i, u := range units {
		u.Index = i
		for _, l := range u.Labels {
			if prev, ok := b.labels[l]; ok {
				return nil, fmt.Errorf("label %q defined twice (%s and %s)", l, prev, u)
			}
			b.labels[l] = u
		}
	}
	for _, u := range units {
		for _, t := range u.Targets {
			if _, ok := b.labels[t]; !ok {
				return nil, fmt.Errorf("%s: undefined label %q", u, t)
			}
		}
	}
	for i, tr := range traps {
		if _, _, _, err := b.trapRange(tr); err != nil {
			return nil, fmt.Errorf("trap %d: %w", i, err)
		}
	}
	if n := len(units); n > 0 && units[n-1].FallsThrough() {
		return nil, fmt.Errorf("%s: control falls off the end of body %s", units[n-1], name)
	}
	return b, nil
}

// Label returns the unit carrying label l.
func (b *Body) Label(l string) (*Unit, bool) {
	u, ok := b.labels[l]
	return u, ok
}

// HandlerUnits returns the handler entry of every trap in table order.
func (b *Body) HandlerUnits() []*Unit {
	out := make([]*Unit, 0, len(b.Traps))
	for _, tr := range b.Traps {
		if h, ok := b.labels[tr.Handler]; ok {
			out = append(out, h)
		}
	}
	return out
}

// trapRange resolves tr to unit positions [begin, end) and its handler.
func (b *Body) trapRange(tr Trap) (begin, end int, handler *Unit, err error) {
	bu, ok := b.labels[tr.Begin]
	if !ok {
		return 0, 0, nil, fmt.Errorf("undefined begin label %q", tr.Begin)
	}
	end = len(b.Units)
	if tr.End != "" {
		eu, ok := b.labels[tr.End]
		if !ok {
			return 0, 0, nil, fmt.Errorf("undefined end label %q", tr.End)
		}
		end = eu.Index
	}
	handler, ok = b.labels[tr.Handler]
	if !ok {
		return 0, 0, nil, fmt.Errorf("undefined handler label %q", tr.Handler)
	}
	if bu.Index > end {
		return 0, 0, nil, fmt.Errorf("range %s..%s is reversed", tr.Begin, tr.End)
	}
	return bu.Index, end, handler, nil
}
