// Package display renders analysis results and case listings as terminal or
// Markdown tables.
package display

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"sleuth/internal/incident"
	"sleuth/internal/store"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

func newWriter(m Mode) table.Writer {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return w
}

func render(m Mode, w table.Writer) string {
	if m == Markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

// Cases renders a case listing.
func Cases(m Mode, cases []*store.Summary) string {
	w := newWriter(m)
	w.AppendHeader(table.Row{"ID", "Title", "Status", "Artifacts", "Last confidence"})
	for _, c := range cases {
		conf := "-"
		if !c.LastAnalyzedAt.IsZero() {
			conf = fmt.Sprintf("%.2f", c.LastConfidence)
		}
		w.AppendRow(table.Row{c.ID, c.Title, string(c.Status), c.ArtifactCount, conf})
	}
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 50}})
	return render(m, w)
}

// Result renders one analysis result: verdict line, timeline, hypotheses.
func Result(m Mode, res *incident.AnalysisResult) string {
	var b strings.Builder

	if res.Refused() {
		fmt.Fprintf(&b, "REFUSED (confidence %.2f): %s\n\n", res.ConfidenceOverall, res.RefusalReason)
		b.WriteString("Recommended next steps:\n")
		for _, step := range res.RecommendedNextSteps {
			fmt.Fprintf(&b, "  - %s\n", step)
		}
	} else {
		fmt.Fprintf(&b, "%d hypothesis(es), overall confidence %.2f\n\n", len(res.Hypotheses), res.ConfidenceOverall)
		b.WriteString(hypothesesTable(m, res.Hypotheses))
		b.WriteString("\n")
	}

	if len(res.TimelineEvents) > 0 {
		b.WriteString("\nTimeline:\n")
		b.WriteString(timelineTable(m, res.TimelineEvents))
		b.WriteString("\n")
	}

	if len(res.WhatChanged) > 0 {
		b.WriteString("\nWhat changed:\n")
		for _, c := range res.WhatChanged {
			fmt.Fprintf(&b, "  - [%s] %s\n", c.Category, c.Description)
		}
	}

	fmt.Fprintf(&b, "\nEvidence: %d excerpts, avg relevance %.2f (mode=%s, strict=%v, model=%s)\n",
		res.Metadata.EvidenceCount, res.Metadata.AvgRelevance,
		res.Metadata.Mode, res.Metadata.StrictMode, res.Metadata.Model)
	return b.String()
}

func hypothesesTable(m Mode, hyps []incident.Hypothesis) string {
	w := newWriter(m)
	w.AppendHeader(table.Row{"Rank", "Title", "Confidence", "Evidence", "Root cause"})
	for _, h := range hyps {
		w.AppendRow(table.Row{h.Rank, h.Title, fmt.Sprintf("%.2f", h.Confidence), len(h.Evidence), h.RootCause})
	}
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: 40},
		{Number: 5, WidthMax: 60},
	})
	return render(m, w)
}

func timelineTable(m Mode, events []incident.TimelineEvent) string {
	w := newWriter(m)
	w.AppendHeader(table.Row{"Time", "Kind", "Severity", "Details"})
	for _, ev := range events {
		w.AppendRow(table.Row{ev.TimestampRaw, ev.Kind, ev.Severity, ev.Details})
	}
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 70}})
	return render(m, w)
}
