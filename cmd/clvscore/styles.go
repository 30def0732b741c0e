package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/TobiSchelling/clvscore/internal/database"
	"github.com/TobiSchelling/clvscore/internal/report"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Italic(true)
)

// printSegments renders segment summaries as a bordered table.
func printSegments(segments []database.SegmentRow) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Segment", "Customers", "Min CLV", "Max CLV", "Mean CLV", "Total CLV", "Mean freq.", "Mean monetary").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col > 0 {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		})
	for _, s := range segments {
		t.Row(
			s.Label,
			fmt.Sprint(s.Customers),
			report.Money(s.MinCLV).StringFixed(2),
			report.Money(s.MaxCLV).StringFixed(2),
			report.Money(s.MeanCLV).StringFixed(2),
			report.Money(s.SumCLV).StringFixed(2),
			report.Ratio(s.MeanFrequency).StringFixed(2),
			report.Money(s.MeanMonetary).StringFixed(2),
		)
	}
	fmt.Println(t.Render())
}
