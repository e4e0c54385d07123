package blockgraph

import (
	"context"
	"slices"
	"strconv"

	"bbgraph/internal/trace"
)

// Options configures Construct.
type Options[U comparable] struct {
	// Leaders picks block leaders; nil means BigBlockLeaders.
	Leaders LeaderPolicy[U]
	// Tracer receives stage spans and orphan notes; nil means the tracer
	// stored in the context.
	Tracer trace.Tracer
	// Name labels trace events, usually the body name.
	Name string
}

// Construct builds the big-block graph of g with the default options.
func Construct[U comparable](g UnitGraph[U], et ExceptionTable[U]) (*Graph[U], error) {
	return ConstructContext(context.Background(), g, et, Options[U]{})
}

// ConstructContext builds the block graph of g. The context only carries the
// tracer and the parent span; construction is not interruptible.
// Any consistency violation aborts construction with a *ConsistencyError.
func ConstructContext[U comparable](ctx context.Context, g UnitGraph[U], et ExceptionTable[U], opts Options[U]) (*Graph[U], error) {
	tr := opts.Tracer
	if tr == nil {
		tr = trace.FromContext(ctx)
	}
	leaders := opts.Leaders
	if leaders == nil {
		leaders = BigBlockLeaders[U]
	}
	name := "construct"
	if opts.Name != "" {
		name = "construct:" + opts.Name
	}

	span := trace.Begin(tr, trace.ScopeBody, name, trace.CurrentSpan(ctx))
	bg, err := construct(g, et, leaders, tr, span.ID())
	if err != nil {
		trace.Error(tr, trace.ScopeBody, name, err, span.ID())
		span.End("failed")
		return nil, err
	}
	span.WithExtra("blocks", strconv.Itoa(bg.Len())).
		WithExtra("heads", strconv.Itoa(len(bg.heads))).
		WithExtra("tails", strconv.Itoa(len(bg.tails)))
	span.End("")
	return bg, nil
}

func construct[U comparable](g UnitGraph[U], et ExceptionTable[U], policy LeaderPolicy[U], tr trace.Tracer, parent uint64) (*Graph[U], error) {
	units := slices.Clone(g.Units())

	stage := trace.Begin(tr, trace.ScopeStage, "leaders", parent)
	leaders := policy(g, handlerUnits(et))
	stage.WithExtra("leaders", strconv.Itoa(len(leaders))).End("")

	stage = trace.Begin(tr, trace.ScopeStage, "partition", parent)
	p, err := buildBlocks(leaders, units)
	if err != nil {
		stage.End("failed")
		return nil, err
	}
	stage.WithExtra("blocks", strconv.Itoa(len(p.blocks))).End("")

	stage = trace.Begin(tr, trace.ScopeStage, "wire", parent)
	bg, err := wire(p, g, tr, stage.ID())
	if err != nil {
		stage.End("failed")
		return nil, err
	}
	stage.WithExtra("orphans", strconv.Itoa(len(bg.orphans))).End("")
	return bg, nil
}
