package initgraph

// FailureAggregator turns settled execution records into the failure list of a report.
type FailureAggregator struct{}

// Aggregate collects direct causes in record order.
//
// Records whose body never ran are omitted: they were skipped after an upstream
// failure or cancelled while waiting, and the direct cause is reported elsewhere.
// When cancellationRequested is set and some task did not succeed, the result
// always contains a cancellation.
func (FailureAggregator) Aggregate(records []ExecutionRecord, cancellationRequested bool) []TaskFailure {
	failures := make([]TaskFailure, 0)
	allSucceeded := true
	cancellationReported := false

	for _, record := range records {
		if record.Outcome == OutcomeSuccess {
			continue
		}
		allSucceeded = false
		if !record.Started || record.Cause == nil {
			continue
		}
		if IsCancellation(record.Cause) {
			cancellationReported = true
		}
		failures = append(failures, TaskFailure{TaskID: record.TaskID, Cause: record.Cause})
	}

	if cancellationRequested && !allSucceeded && !cancellationReported {
		failures = append(failures, TaskFailure{Cause: CancellationError{}})
	}

	return failures
}
