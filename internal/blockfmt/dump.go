// Package blockfmt renders block-graph snapshots for humans.
package blockfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"bbgraph/internal/blockgraph"
)

// Options configures Dump.
type Options struct {
	Color bool
	Units bool // list the units of every block
	Width int  // truncate unit text to this many columns; 0 = no limit
}

type palette struct {
	block  *color.Color
	head   *color.Color
	tail   *color.Color
	orphan *color.Color
	dim    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		block:  color.New(color.FgCyan, color.Bold),
		head:   color.New(color.FgGreen),
		tail:   color.New(color.FgYellow),
		orphan: color.New(color.FgRed),
		dim:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.block, p.head, p.tail, p.orphan, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Dump writes s block by block.
func Dump(w io.Writer, s *blockgraph.Snapshot, opts Options) error {
	if w == nil || s == nil {
		return nil
	}
	if err := s.Validate(); err != nil {
		return err
	}
	pal := newPalette(opts.Color)

	if _, err := fmt.Fprintf(w, "body %s: %d blocks, heads %s, tails %s\n",
		s.Name, len(s.Blocks), refs(s.Heads), refs(s.Tails)); err != nil {
		return err
	}

	heads := indexSet(s.Heads)
	tails := indexSet(s.Tails)
	orphans := indexSet(s.Orphans)
	nameWidth := runewidth.StringWidth("B" + strconv.Itoa(len(s.Blocks)-1))

	for i, b := range s.Blocks {
		var marks []string
		if heads[i] {
			marks = append(marks, pal.head.Sprint("head"))
		}
		if tails[i] {
			marks = append(marks, pal.tail.Sprint("tail"))
		}
		if orphans[i] {
			marks = append(marks, pal.orphan.Sprint("orphan"))
		}
		name := runewidth.FillRight("B"+strconv.Itoa(i), nameWidth)
		line := fmt.Sprintf("  %s  preds %s  succs %s", pal.block.Sprint(name), refs(b.Preds), refs(b.Succs))
		if len(marks) > 0 {
			line += "  " + strings.Join(marks, " ")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}

		if !opts.Units {
			continue
		}
		posWidth := len(strconv.Itoa(len(s.Units) - 1))
		for j, text := range s.BlockUnits(i) {
			if opts.Width > 0 {
				text = runewidth.Truncate(text, opts.Width, "...")
			}
			pos := fmt.Sprintf("%*d", posWidth, int(b.Start)+j)
			if _, err := fmt.Fprintf(w, "      %s  %s\n", pal.dim.Sprint(pos), text); err != nil {
				return err
			}
		}
	}
	return nil
}

func refs(idx []uint32) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = "B" + strconv.FormatUint(uint64(v), 10)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func indexSet(idx []uint32) map[int]bool {
	out := make(map[int]bool, len(idx))
	for _, v := range idx {
		out[int(v)] = true
	}
	return out
}
