package blockfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Row is one line of the summary table.
type Row struct {
	File    string
	Body    string
	Blocks  int
	Heads   int
	Tails   int
	Orphans int
	Status  string // "ok", "cached", or a failure message
}

// Failed reports whether the row describes a failure.
func (r Row) Failed() bool {
	return r.Status != "ok" && r.Status != "cached"
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	cachedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// Summary writes rows as an aligned table followed by a totals line.
// Failure messages are truncated to maxStatus columns when maxStatus > 0.
func Summary(w io.Writer, rows []Row, colored bool, maxStatus int) error {
	header := []string{"FILE", "BODY", "BLOCKS", "HEADS", "TAILS", "ORPHANS", "STATUS"}
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, header)
	for _, r := range rows {
		status := r.Status
		if maxStatus > 0 {
			status = runewidth.Truncate(status, maxStatus, "...")
		}
		cells = append(cells, []string{
			r.File, r.Body,
			strconv.Itoa(r.Blocks), strconv.Itoa(r.Heads), strconv.Itoa(r.Tails), strconv.Itoa(r.Orphans),
			status,
		})
	}

	widths := make([]int, len(header))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}

	failed := 0
	for ri, row := range cells {
		parts := make([]string, len(row))
		for i, c := range row {
			if i == len(row)-1 {
				parts[i] = c
			} else {
				parts[i] = runewidth.FillRight(c, widths[i])
			}
		}
		line := strings.Join(parts, "  ")
		if colored {
			line = styleRow(ri, rows, line)
		}
		if ri > 0 && rows[ri-1].Failed() {
			failed++
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%d bodies, %d failed\n", len(rows), failed)
	return err
}

func styleRow(ri int, rows []Row, line string) string {
	if ri == 0 {
		return headerStyle.Render(line)
	}
	switch r := rows[ri-1]; {
	case r.Failed():
		return failStyle.Render(line)
	case r.Status == "cached":
		return cachedStyle.Render(line)
	default:
		return okStyle.Render(line)
	}
}
