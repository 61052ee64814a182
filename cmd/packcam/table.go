package main

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. Numeric columns (counts, durations) are
// right-aligned; everything else reads left to right like the shell output
// around it.
type column struct {
	title   string
	numeric bool
}

// renderTable renders rows under the given columns with the rounded style
// used across packcam's listing commands. Missing or empty cells show as "-"
// so sparse session fields (no operator, no file yet) stay scannable.
func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col.title
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range cols {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if cell == "" {
				cell = "-"
			}
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(cols))
	for i, col := range cols {
		align := text.AlignLeft
		if col.numeric {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// formatDurationMS renders a logged session duration for table cells.
// Sessions are wall-clock recordings, so second precision is enough.
func formatDurationMS(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return d.Round(time.Second).String()
}
