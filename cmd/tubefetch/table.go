package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const (
	titleWidth  = 60
	targetWidth = 48
)

// tableColumn describes one column; MaxWidth 0 leaves it unbounded.
type tableColumn struct {
	Header   string
	Align    columnAlignment
	MaxWidth int
}

var (
	playlistColumns = []tableColumn{
		{Header: "#", Align: alignRight},
		{Header: "Title", MaxWidth: titleWidth},
		{Header: "Status"},
	}
	jobColumns = []tableColumn{
		{Header: "ID"},
		{Header: "Kind"},
		{Header: "State"},
		{Header: "Target", MaxWidth: targetWidth},
		{Header: "Started"},
	}
	countColumns = []tableColumn{
		{Header: "Status"},
		{Header: "Count", Align: alignRight},
	}
)

// renderTable draws rows under columns. Short rows are padded; a non-empty
// footer is drawn below the body.
func renderTable(columns []tableColumn, rows [][]string, footer []string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(tableRow(len(columns), columnHeaders(columns)))
	for _, row := range rows {
		tw.AppendRow(tableRow(len(columns), row))
	}
	if len(footer) > 0 {
		tw.AppendFooter(tableRow(len(columns), footer))
	}

	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		cfg := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
			AlignFooter: text.AlignLeft,
		}
		if col.Align == alignRight {
			cfg.Align = text.AlignRight
			cfg.AlignFooter = text.AlignRight
		}
		if col.MaxWidth > 0 {
			cfg.WidthMax = col.MaxWidth
			cfg.WidthMaxEnforcer = ellipsize
		}
		configs = append(configs, cfg)
	}
	tw.SetColumnConfigs(configs)

	return tw.Render() + "\n"
}

func columnHeaders(columns []tableColumn) []string {
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Header
	}
	return headers
}

func tableRow(width int, cells []string) table.Row {
	row := make(table.Row, width)
	for i := range width {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}

// ellipsize cuts long titles and urls to limit cells, marking the cut.
func ellipsize(value string, limit int) string {
	if limit <= 1 || text.RuneWidthWithoutEscSequences(value) <= limit {
		return value
	}
	return text.Trim(value, limit-1) + "…"
}
