package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bbgraph/internal/blockcache"
	"bbgraph/internal/blockgraph"
	"bbgraph/internal/trace"
	"bbgraph/internal/unit"
)

// Options configures a batch run.
type Options struct {
	Graph  unit.GraphKind
	Policy blockgraph.Policy
	Jobs   int               // <= 0 means GOMAXPROCS
	Cache  *blockcache.Cache // nil disables caching
	Verify bool              // re-check every graph; bypasses cache reads

	Observer PhaseObserver // optional
}

// BodyResult is the outcome for one body of a listing.
type BodyResult struct {
	Name     string
	Body     *unit.Body                    // nil when served from the cache
	Graph    *blockgraph.Graph[*unit.Unit] // nil when cached or failed
	Snapshot *blockgraph.Snapshot          // nil when failed
	Err      error                         // construction failure
	Verify   error                         // Verify violations, if requested
}

// Failed reports whether construction or verification failed.
func (r *BodyResult) Failed() bool {
	return r.Err != nil || r.Verify != nil
}

// FileResult is the outcome for one listing file.
type FileResult struct {
	Path   string
	Bodies []BodyResult
	Err    error // read or parse failure
	Cached bool
}

// Failed reports whether the file or any of its bodies failed.
func (r *FileResult) Failed() bool {
	if r.Err != nil {
		return true
	}
	for i := range r.Bodies {
		if r.Bodies[i].Failed() {
			return true
		}
	}
	return false
}

// Run builds the block graphs of every body in files, in parallel across
// files. Results keep the order of files. Per-file failures are reported in
// the results; the returned error is only set when ctx is cancelled.
func Run(ctx context.Context, files []string, opts Options) ([]FileResult, error) {
	results := make([]FileResult, len(files))
	if len(files) == 0 {
		return results, nil
	}

	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeDriver, "batch", trace.CurrentSpan(ctx))
	defer span.WithExtra("files", strconv.Itoa(len(files))).End("")
	ctx = trace.WithSpan(ctx, span)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Each goroutine owns results[i]; no locking needed.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		i, path := i, path // per-iteration copy (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = runFile(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func runFile(ctx context.Context, path string, opts Options) FileResult {
	res := FileResult{Path: path}
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeDriver, "file:"+path, trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)

	started := time.Now()
	src, err := os.ReadFile(path)
	opts.Observer.observe(PhaseRead, path, "", started)
	if err != nil {
		res.Err = fmt.Errorf("failed to read listing: %w", err)
		trace.Error(tr, trace.ScopeDriver, "file:"+path, res.Err, span.ID())
		span.End("failed")
		return res
	}

	key := blockcache.Key(src, opts.Graph.String(), opts.Policy.String())
	if opts.Cache != nil && !opts.Verify {
		started = time.Now()
		payload, ok, err := opts.Cache.Get(key)
		opts.Observer.observe(PhaseCache, path, "", started)
		if err != nil {
			trace.Error(tr, trace.ScopeDriver, "cache", err, span.ID())
		}
		if ok {
			res.Cached = true
			res.Bodies = fromPayload(payload)
			span.End("cached")
			return res
		}
	}

	started = time.Now()
	bodies, err := unit.Parse(path, src)
	opts.Observer.observe(PhaseParse, path, "", started)
	if err != nil {
		res.Err = err
		trace.Error(tr, trace.ScopeDriver, "file:"+path, err, span.ID())
		span.End("failed")
		return res
	}

	policy := blockgraph.LeadersFor[*unit.Unit](opts.Policy)
	res.Bodies = make([]BodyResult, 0, len(bodies))
	for _, body := range bodies {
		res.Bodies = append(res.Bodies, buildBody(ctx, path, body, opts, policy))
	}

	if opts.Cache != nil {
		started = time.Now()
		err := opts.Cache.Put(key, res.Payload(opts))
		opts.Observer.observe(PhaseCache, path, "", started)
		if err != nil {
			trace.Error(tr, trace.ScopeDriver, "cache", err, span.ID())
		}
	}
	span.WithExtra("bodies", strconv.Itoa(len(bodies))).End("")
	return res
}

func buildBody(ctx context.Context, path string, body *unit.Body, opts Options, policy blockgraph.LeaderPolicy[*unit.Unit]) BodyResult {
	res := BodyResult{Name: body.Name, Body: body}
	ug := unit.NewGraph(body, opts.Graph)

	started := time.Now()
	bg, err := blockgraph.ConstructContext[*unit.Unit](ctx, ug, body, blockgraph.Options[*unit.Unit]{
		Leaders: policy,
		Name:    body.Name,
	})
	opts.Observer.observe(PhaseConstruct, path, body.Name, started)
	if err != nil {
		res.Err = err
		return res
	}
	res.Graph = bg

	snap, err := blockgraph.TakeSnapshotFunc(body.Name, bg, RenderUnit)
	if err != nil {
		res.Err = fmt.Errorf("snapshot: %w", err)
		return res
	}
	res.Snapshot = snap

	if opts.Verify {
		started = time.Now()
		res.Verify = blockgraph.Verify[*unit.Unit](bg, ug, body, policy)
		opts.Observer.observe(PhaseVerify, path, body.Name, started)
	}
	return res
}

// RenderUnit formats a unit as "label: text".
func RenderUnit(u *unit.Unit) string {
	if len(u.Labels) == 0 {
		return u.Text
	}
	return strings.Join(u.Labels, ": ") + ": " + u.Text
}

// Payload converts r into its cacheable form. opts must be the options r
// was built with.
func (r *FileResult) Payload(opts Options) *blockcache.Payload {
	p := &blockcache.Payload{
		File:   r.Path,
		Graph:  opts.Graph.String(),
		Policy: opts.Policy.String(),
		Bodies: make([]blockcache.Entry, len(r.Bodies)),
	}
	for i, b := range r.Bodies {
		p.Bodies[i] = blockcache.Entry{Name: b.Name, Snapshot: b.Snapshot}
		if b.Err != nil {
			p.Bodies[i].Err = b.Err.Error()
		}
	}
	return p
}

func fromPayload(p *blockcache.Payload) []BodyResult {
	out := make([]BodyResult, len(p.Bodies))
	for i, e := range p.Bodies {
		out[i] = BodyResult{Name: e.Name, Snapshot: e.Snapshot}
		if e.Err != "" {
			out[i].Err = errors.New(e.Err)
		}
	}
	return out
}
