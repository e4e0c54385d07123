package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bbgraph/internal/blockfmt"
	"bbgraph/internal/driver"
)

func newBlocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks FILE...",
		Short: "Print the big blocks of every body in the given listings",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBlocks,
	}
	addBuildFlags(cmd, true)
	cmd.Flags().Bool("no-units", false, "omit the instructions of each block")
	cmd.Flags().Int("width", 0, "truncate instructions to this many columns (0 = terminal width)")
	cmd.Flags().Bool("summary", false, "print a summary table after the blocks")
	return cmd
}

func runBlocks(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close(&err)

	results, err := s.run(cmd.Context(), args, false)
	if err != nil {
		return err
	}

	noUnits, _ := cmd.Flags().GetBool("no-units")
	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = max(terminalWidth(s.out)-10, 0)
	}
	opts := blockfmt.Options{Color: s.color, Units: !noUnits, Width: width}

	stop := s.phase("render")
	failed, total := 0, 0
	for i := range results {
		r := &results[i]
		if len(results) > 1 && !s.quiet {
			fmt.Fprintf(s.out, "# %s\n", r.Path)
		}
		if r.Err != nil {
			total++
			failed++
			fmt.Fprintf(s.errOut, "%s: %v\n", r.Path, r.Err)
			continue
		}
		for j := range r.Bodies {
			total++
			failed += printBody(s, r, &r.Bodies[j], opts)
		}
	}
	stop()

	if summary, _ := cmd.Flags().GetBool("summary"); summary {
		if err := blockfmt.Summary(s.out, summaryRows(results), s.color, 0); err != nil {
			return err
		}
	}
	if failed > 0 {
		return &errFailures{failed: failed, total: total}
	}
	return nil
}

func printBody(s *session, r *driver.FileResult, b *driver.BodyResult, opts blockfmt.Options) int {
	if b.Err != nil {
		fmt.Fprintf(s.errOut, "%s: body %s: %v\n", r.Path, b.Name, b.Err)
		return 1
	}
	if err := blockfmt.Dump(s.out, b.Snapshot, opts); err != nil {
		fmt.Fprintf(s.errOut, "%s: body %s: %v\n", r.Path, b.Name, err)
		return 1
	}
	return 0
}
