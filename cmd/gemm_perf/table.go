// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	baselineRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"}).
				PaddingLeft(1).PaddingRight(1)
)

// resultsTable renders the results, one row per benchmark case.
func resultsTable(results []result) string {
	t := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers("Size", "DType", "Impl", "Strategy", "Workspace", "Time/Run", "GFLOPS").
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row < 0 {
				return headerRowStyle
			}
			switch {
			case results[row].impl == implGonum:
				s = baselineRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 || col >= 4 {
				s = s.Align(lipgloss.Right)
			}
			return
		})
	for _, r := range results {
		workspace := "-"
		if r.workspace > 0 {
			workspace = humanize.IBytes(uint64(r.workspace))
		}
		t.Row(
			strconv.Itoa(r.size),
			r.dtype.String(),
			r.impl,
			r.strategy,
			workspace,
			r.perRun.String(),
			fmt.Sprintf("%.2f", r.gflops),
		)
	}
	return t.Render()
}
