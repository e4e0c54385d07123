package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bbgraph/internal/config"
	"bbgraph/internal/trace"
)

// setupTracing merges trace flags over tc and attaches the tracer to the
// command context. The returned cleanup dumps the ring buffer to errOut when
// the command failed, then flushes and closes the tracer.
func setupTracing(cmd *cobra.Command, tc config.TraceConfig) (func(failed bool), error) {
	flags := cmd.Flags()
	settings := trace.Settings{Level: tc.Level, Mode: tc.Mode, Output: tc.Output, RingSize: tc.RingSize}
	if flags.Changed("trace") {
		settings.Output, _ = flags.GetString("trace")
	}
	if flags.Changed("trace-level") {
		settings.Level, _ = flags.GetString("trace-level")
	}
	if flags.Changed("trace-mode") {
		settings.Mode, _ = flags.GetString("trace-mode")
	}
	if flags.Changed("trace-ring-size") {
		settings.RingSize, _ = flags.GetInt("trace-ring-size")
	}
	var err error
	settings.Format, err = flags.GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}

	cfg, err := trace.ParseSettings(settings)
	if err != nil {
		return nil, err
	}
	// --trace without a level means phase tracing.
	if cfg.Level == trace.LevelOff && flags.Changed("trace") && !flags.Changed("trace-level") {
		cfg.Level = trace.LevelPhase
	}
	if cfg.Level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func(bool) {}, nil
	}

	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	errOut := cmd.ErrOrStderr()
	cleanup := func(failed bool) {
		if failed {
			if _, err := trace.DumpOnFailure(errOut, tracer); err != nil {
				fmt.Fprintf(errOut, "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(errOut, "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(errOut, "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}
