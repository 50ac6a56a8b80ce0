package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ZanzyTHEbar/blc-o-meter/internal/analysis"
)

// printStyles holds all the styles used in the console report
type printStyles struct {
	header  lipgloss.Style
	label   lipgloss.Style
	verdict map[string]lipgloss.Style
	dim     lipgloss.Style
	box     lipgloss.Style
}

func newPrintStyles() printStyles {
	return printStyles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(22),
		verdict: map[string]lipgloss.Style{
			"S": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
			"A": lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
			"B": lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
			"C": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
			"D": lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		},
		dim: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		box: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

func (s printStyles) verdictStyle(verdict string) lipgloss.Style {
	if style, ok := s.verdict[strings.SplitN(verdict, " ", 2)[0]]; ok {
		return style
	}
	return s.dim
}

var componentOrder = []struct {
	key   string
	label string
}{
	{analysis.ComponentEngagement, "Engagement"},
	{analysis.ComponentViews, "Views"},
	{analysis.ComponentDemand, "Demand"},
	{analysis.ComponentProblem, "Problem"},
	{analysis.ComponentFormat, "Format"},
	{analysis.ComponentConsistency, "Consistency"},
}

func printReport(w io.Writer, report analysis.ScoreReport) {
	styles := newPrintStyles()

	headline := fmt.Sprintf("%s\n%s  %s",
		styles.header.Render(report.ChannelName),
		styles.verdictStyle(report.Verdict).Render(fmt.Sprintf("BLC %.1f", report.BLCScore)),
		styles.verdictStyle(report.Verdict).Render(report.Verdict),
	)
	fmt.Fprintln(w, styles.box.Render(headline))

	row := func(label, value string) {
		fmt.Fprintln(w, styles.label.Render(label)+value)
	}

	row("Tier", string(report.Tier))
	row("Vertical", report.Vertical)
	row("Subscribers", report.SubscriberCount)
	row("Total views", report.TotalViews)
	row("Videos analyzed", fmt.Sprintf("%d", report.VideoCountAnalyzed))

	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.header.Render("Components"))
	for _, c := range componentOrder {
		row(c.label, fmt.Sprintf("%6.1f  %s", report.Components[c.key], bar(report.Components[c.key])))
	}

	if report.FormatEffects.Present() {
		f := report.FormatEffects.Format
		fmt.Fprintln(w)
		row("Format lift", fmt.Sprintf("%+.1f%% (%d with, %d without)", f.ImprovementPct, f.CountWith, f.CountWithout))
	}

	row("Uploads per week", fmt.Sprintf("%.2f", report.UploadConsistency.VideosPerWeek))

	if m := report.Matching; m.Category != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.header.Render("Collaboration match"))
		row("Category", m.Category)
		row("Image", m.Image)
		row("Skincare", m.Skincare)
		row("Product type", m.ProductType)
	}

	stats := report.CommentStatistics
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.dim.Render(fmt.Sprintf(
		"%d comments collected, demand %.2f%%, problem %.2f%%",
		stats.TotalCommentsCollected, stats.DemandMatchRate, stats.ProblemMatchRate)))
}

// bar renders a 0-100 score as a 20-cell gauge
func bar(score float64) string {
	filled := int(score/5 + 0.5)
	filled = max(0, min(20, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", 20-filled)
}
