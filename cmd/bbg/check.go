package main

import (
	"strings"

	"github.com/spf13/cobra"

	"bbgraph/internal/blockfmt"
	"bbgraph/internal/driver"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Construct and verify the block graphs of the given listings",
		Long: `check builds every body's block graph and re-verifies the partition,
leader, head and tail invariants. It exits with status 1 when any body fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheck,
	}
	addBuildFlags(cmd, false)
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close(&err)

	results, err := s.run(cmd.Context(), args, true)
	if err != nil {
		return err
	}

	stop := s.phase("render")
	rows := summaryRows(results)
	failed := 0
	for _, r := range rows {
		if r.Failed() {
			failed++
		}
	}
	if !s.quiet || failed > 0 {
		maxStatus := 0
		if w := terminalWidth(s.out); w > 0 {
			maxStatus = max(w/2, 24)
		}
		err = blockfmt.Summary(s.out, rows, s.color, maxStatus)
	}
	stop()
	if err != nil {
		return err
	}
	if failed > 0 {
		return &errFailures{failed: failed, total: len(rows)}
	}
	return nil
}

// summaryRows flattens results into one row per body, or one per file that
// could not be read or parsed.
func summaryRows(results []driver.FileResult) []blockfmt.Row {
	var rows []blockfmt.Row
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			rows = append(rows, blockfmt.Row{File: r.Path, Body: "-", Status: oneLine(r.Err.Error())})
			continue
		}
		for _, b := range r.Bodies {
			row := blockfmt.Row{File: r.Path, Body: b.Name, Status: "ok"}
			if snap := b.Snapshot; snap != nil {
				row.Blocks = len(snap.Blocks)
				row.Heads = len(snap.Heads)
				row.Tails = len(snap.Tails)
				row.Orphans = len(snap.Orphans)
			}
			switch {
			case b.Err != nil:
				row.Status = oneLine(b.Err.Error())
			case b.Verify != nil:
				row.Status = "verify: " + oneLine(b.Verify.Error())
			case r.Cached:
				row.Status = "cached"
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "; ")
}
