package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bbgraph/internal/blockcache"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export -o OUT FILE",
		Short: "Write the block-graph snapshots of a listing as msgpack",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	addBuildFlags(cmd, true)
	cmd.Flags().StringP("output", "o", "", "output file (- for stdout)")
	_ = cmd.MarkFlagRequired("output") //nolint:errcheck
	return cmd
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close(&err)

	out, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}

	results, err := s.run(cmd.Context(), args, false)
	if err != nil {
		return err
	}
	r := &results[0]
	if r.Err != nil {
		return r.Err
	}

	stop := s.phase("export")
	err = writeSnapshots(out, s.out, r.Payload(s.options(false)))
	stop()
	if err != nil {
		return err
	}

	failed := 0
	for _, b := range r.Bodies {
		if b.Err != nil {
			failed++
			fmt.Fprintf(s.errOut, "%s: body %s: %v\n", r.Path, b.Name, b.Err)
		}
	}
	if failed > 0 {
		return &errFailures{failed: failed, total: len(r.Bodies)}
	}
	if !s.quiet && out != "-" {
		fmt.Fprintf(s.errOut, "wrote %d bodies to %s\n", len(r.Bodies), out)
	}
	return nil
}

// writeSnapshots encodes payload to path, replacing it atomically.
// "-" writes to stdout.
func writeSnapshots(path string, stdout io.Writer, payload *blockcache.Payload) (err error) {
	if path == "-" {
		return blockcache.Encode(stdout, payload)
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".bbg-export-*")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()           //nolint:errcheck
			_ = os.Remove(f.Name()) //nolint:errcheck
		}
	}()
	if err = blockcache.Encode(f, payload); err != nil {
		return fmt.Errorf("failed to encode snapshots: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
