package diagnostics

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/tyemirov/initgraph/pkg/initgraph"
)

const (
	tableHeaderConstant           = "TASK\tCLASS\tOUTCOME\tDURATION\tDETAIL"
	tableRowTemplateConstant      = "%s\t%s\t%s\t%s\t%s\n"
	tableNotStartedConstant       = "-"
	tableUpstreamTemplateConstant = "upstream %s"
)

// RenderDurationTable writes one aligned row per task in plan order.
func RenderDurationTable(writer io.Writer, report initgraph.Report) error {
	tableWriter := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	if _, writeError := fmt.Fprintln(tableWriter, tableHeaderConstant); writeError != nil {
		return writeError
	}
	for _, record := range report.Records {
		duration := tableNotStartedConstant
		if record.Started {
			duration = record.Duration().Round(time.Millisecond).String()
		}
		if _, writeError := fmt.Fprintf(tableWriter, tableRowTemplateConstant, record.TaskID, record.Class, record.Outcome, duration, describeRecord(record)); writeError != nil {
			return writeError
		}
	}
	return tableWriter.Flush()
}

func describeRecord(record initgraph.ExecutionRecord) string {
	switch {
	case len(record.UpstreamTaskID) > 0:
		return fmt.Sprintf(tableUpstreamTemplateConstant, record.UpstreamTaskID)
	case record.Cause != nil:
		return record.Cause.Error()
	default:
		return ""
	}
}
