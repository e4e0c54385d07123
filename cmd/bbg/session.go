package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bbgraph/internal/blockcache"
	"bbgraph/internal/blockgraph"
	"bbgraph/internal/config"
	"bbgraph/internal/driver"
	"bbgraph/internal/observ"
	"bbgraph/internal/prof"
	"bbgraph/internal/unit"
)

// session is the resolved configuration of one command invocation.
type session struct {
	cfg    config.Config
	graph  unit.GraphKind
	policy blockgraph.Policy
	jobs   int
	color  bool
	quiet  bool
	cache  *blockcache.Cache
	timer  *observ.Timer // nil unless --timings

	out, errOut io.Writer
	endTrace    func(failed bool)
	profiler    *prof.Session
}

// addBuildFlags registers the flags shared by commands that construct graphs.
func addBuildFlags(cmd *cobra.Command, withCache bool) {
	cmd.Flags().String("graph", "", "unit graph kind (brief|exceptional)")
	cmd.Flags().String("leaders", "", "leader policy (bigblock|classic)")
	cmd.Flags().IntP("jobs", "j", 0, "parallel files (0 = GOMAXPROCS)")
	if withCache {
		cmd.Flags().Bool("cache", false, "reuse snapshots from the disk cache")
	}
}

// openSession loads bbg.toml, applies flag overrides and starts tracing.
// Callers must defer s.close.
func openSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Flags()
	cfgPath, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}

	if flags.Changed("graph") {
		cfg.Graph.Kind, _ = flags.GetString("graph")
	}
	if flags.Changed("leaders") {
		cfg.Leaders.Policy, _ = flags.GetString("leaders")
	}
	if flags.Changed("jobs") {
		cfg.Run.Jobs, _ = flags.GetInt("jobs")
	}
	if flags.Changed("cache") {
		cfg.Cache.Enabled, _ = flags.GetBool("cache")
	}
	if flags.Changed("color") {
		cfg.Output.Color, _ = flags.GetString("color")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		jobs:   cfg.Run.Jobs,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}
	s.graph, _ = cfg.GraphKind()
	s.policy, _ = cfg.LeaderPolicy()
	s.color = colorEnabled(cfg.Output.Color, s.out)
	color.NoColor = !s.color
	s.quiet, _ = flags.GetBool("quiet")

	if timings, _ := flags.GetBool("timings"); timings {
		s.timer = observ.NewTimer()
	}
	if cfg.Cache.Enabled {
		s.cache, err = blockcache.Open(cfg.Cache.Dir, "bbg")
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
	}

	s.endTrace, err = setupTracing(cmd, cfg.Trace)
	if err != nil {
		return nil, err
	}
	s.profiler, err = setupProfiling(cmd)
	if err != nil {
		s.endTrace(true)
		return nil, err
	}
	return s, nil
}

// close ends profiling and tracing and prints timings. errp is the
// command's result.
func (s *session) close(errp *error) {
	if err := s.profiler.Stop(); err != nil {
		fmt.Fprintf(s.errOut, "profile: %v\n", err)
	}
	s.endTrace(*errp != nil)
	if s.timer != nil {
		fmt.Fprint(s.errOut, s.timer.Summary())
	}
}

func (s *session) options(verify bool) driver.Options {
	opts := driver.Options{
		Graph:  s.graph,
		Policy: s.policy,
		Jobs:   s.jobs,
		Cache:  s.cache,
		Verify: verify,
	}
	if s.timer != nil {
		opts.Observer = func(ev driver.PhaseEvent) {
			s.timer.Add(ev.Name, ev.Elapsed)
		}
	}
	return opts
}

func (s *session) run(ctx context.Context, files []string, verify bool) ([]driver.FileResult, error) {
	return driver.Run(ctx, files, s.options(verify))
}

// phase starts a named timer phase and returns its stop function.
func (s *session) phase(name string) func() {
	idx := s.timer.Begin(name)
	return func() { s.timer.End(idx, "") }
}

func setupProfiling(cmd *cobra.Command) (*prof.Session, error) {
	var cfg prof.Config
	var err error
	if cfg.CPU, err = cmd.Flags().GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if cfg.Mem, err = cmd.Flags().GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if cfg.Trace, err = cmd.Flags().GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !cfg.Enabled() {
		return nil, nil
	}
	return prof.Start(cfg)
}

func colorEnabled(mode string, w io.Writer) bool {
	switch strings.ToLower(mode) {
	case "on":
		return true
	case "off":
		return false
	default:
		return os.Getenv("NO_COLOR") == "" && isTerminal(w)
	}
}

// errFailures is returned by commands whose inputs did not all succeed; the
// details were already printed.
type errFailures struct {
	failed, total int
}

func (e *errFailures) Error() string {
	return fmt.Sprintf("%d of %d bodies failed", e.failed, e.total)
}
