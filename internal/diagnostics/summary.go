// Package diagnostics renders human-readable views of initialization plans and reports.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/tyemirov/initgraph/pkg/initgraph"
)

// SummaryData aggregates the counts printed after a run.
type SummaryData struct {
	TotalTasks           int
	Succeeded            int
	Failed               int
	Skipped              int
	DurationMilliseconds int64
}

// Summarize counts outcomes. A task cancelled after its body started counts as failed.
func Summarize(report initgraph.Report) SummaryData {
	data := SummaryData{
		TotalTasks:           len(report.Records),
		DurationMilliseconds: report.Duration().Milliseconds(),
	}
	for _, record := range report.Records {
		switch {
		case record.Outcome == initgraph.OutcomeSuccess:
			data.Succeeded++
		case record.Skipped():
			data.Skipped++
		default:
			data.Failed++
		}
	}
	return data
}

// RenderSummaryLine returns the one-line summary printed after every run.
func RenderSummaryLine(report initgraph.Report) string {
	data := Summarize(report)
	parts := []string{
		fmt.Sprintf("Summary: tasks=%d", data.TotalTasks),
		fmt.Sprintf("succeeded=%d", data.Succeeded),
		fmt.Sprintf("failed=%d", data.Failed),
		fmt.Sprintf("skipped=%d", data.Skipped),
		fmt.Sprintf("duration_ms=%d", data.DurationMilliseconds),
	}
	return strings.Join(parts, " ")
}
