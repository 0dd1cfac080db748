package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderTable(out io.Writer, header table.Row, rows []table.Row) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.Render()
}

// truncate shortens s to n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
