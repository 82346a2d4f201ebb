package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableSpec describes one bpsctl table. Columns listed in numeric (1-based) are
// right aligned; everything else is left aligned.
type tableSpec struct {
	title   string
	headers []string
	numeric []int
}

func (s tableSpec) render(rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if s.title != "" {
		tw.SetTitle(s.title)
	}

	tw.AppendHeader(toRow(s.headers, len(s.headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(s.headers)))
	}

	configs := make([]table.ColumnConfig, 0, len(s.numeric))
	for _, n := range s.numeric {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// toRow pads or truncates cells to width columns.
func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}
