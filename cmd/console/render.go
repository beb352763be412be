// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/message"

	"github.com/ManuGH/dvrvod/internal/console"
)

// renderResults draws one row per submitted identifier, numbered from 1.
func renderResults(p *message.Printer, results []console.Result) string {
	if len(results) == 0 {
		return p.Sprintf(lblNoResults)
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{lblIndex, p.Sprintf(lblRecordID), p.Sprintf(lblStatus), p.Sprintf(lblProxyURL)})

	found := 0
	for i, r := range results {
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), r.RecordID, statusText(p, r), r.ProxyURL})
		if r.Found {
			found++
		}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	tw.AppendFooter(table.Row{"", "", p.Sprintf(lblSummary, found, len(results)), ""})
	return tw.Render()
}

func statusText(p *message.Printer, r console.Result) string {
	switch {
	case r.Playing:
		return "▶ " + p.Sprintf(lblPlaying)
	case r.Found:
		return p.Sprintf(lblFound)
	case r.Error != "":
		return r.Error
	default:
		return console.ReasonNotFound
	}
}

// rowKey maps a 1-based row number typed by the operator to the result key.
func rowKey(results []console.Result, row string) (string, bool) {
	n, err := strconv.Atoi(row)
	if err != nil || n < 1 || n > len(results) {
		return "", false
	}
	return results[n-1].Key, true
}
