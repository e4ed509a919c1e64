package main

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"paepcke.de/asngap/spoofer"
)

// printCounts renders a small summary table
func printCounts(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}

// printCategories renders the asn count of every category
func printCategories(w io.Writer, cats spoofer.Categories) {
	rows := make([][]string, 0, len(spoofer.AllCategories))
	for _, cat := range spoofer.AllCategories {
		rows = append(rows, []string{string(cat), itoa(len(cats[cat]))})
	}
	printCounts(w, []string{"Category", "ASNs"}, rows)
}

func itoa(n int) string { return strconv.Itoa(n) }
