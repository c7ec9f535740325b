// Package report renders the aggregated Reportable registry the master
// pool emits every time the progress window fires: a console table for
// operators watching stdout, and a websocket broadcaster (ReportHub) for
// dashboard clients.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/larsson/nodeload/internal/stats"
)

// RenderConsole writes cumulative, one row per stat name, as a table to w.
// Columns are the union of keys present across every stat's summary; a
// summary missing a given key renders "—" in that cell.
func RenderConsole(cumulative map[string]stats.Summary, w io.Writer) {
	names := make([]string, 0, len(cumulative))
	for name := range cumulative {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := unionKeys(cumulative, names)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)

	header := table.Row{"stat"}
	for _, c := range cols {
		header = append(header, c)
	}
	tw.AppendHeader(header)

	for _, name := range names {
		row := table.Row{name}
		summary := cumulative[name]
		for _, c := range cols {
			row = append(row, cellValue(summary[c]))
		}
		tw.AppendRow(row)
	}

	tw.Render()
}

func unionKeys(cumulative map[string]stats.Summary, names []string) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, name := range names {
		for k := range cumulative[name] {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func cellValue(v interface{}) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprint(v)
}
