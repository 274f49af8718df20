package initgraph

// Observer receives lifecycle notifications from a running controller.
// Methods are called from task goroutines and must be safe for concurrent use.
type Observer interface {
	TaskStarted(runID string, identifier TaskID)
	TaskFinished(runID string, record ExecutionRecord)
	RunFinished(report Report)
}

type observerGroup []Observer

func (group observerGroup) TaskStarted(runID string, identifier TaskID) {
	for _, observer := range group {
		observer.TaskStarted(runID, identifier)
	}
}

func (group observerGroup) TaskFinished(runID string, record ExecutionRecord) {
	for _, observer := range group {
		observer.TaskFinished(runID, record)
	}
}

func (group observerGroup) RunFinished(report Report) {
	for _, observer := range group {
		observer.RunFinished(report)
	}
}
