package initgraph

import (
	"context"
	"sync"
)

// TerminalState holds the last published report and notifies subscribers.
type TerminalState struct {
	mutex            sync.Mutex
	lastReport       *Report
	subscribers      map[uint64]func(Report)
	nextSubscriberID uint64
}

// NewTerminalState constructs an empty holder.
func NewTerminalState() *TerminalState {
	return &TerminalState{subscribers: make(map[uint64]func(Report))}
}

// Subscribe registers a callback invoked once per published report.
// The returned function removes the registration.
func (state *TerminalState) Subscribe(callback func(Report)) func() {
	if callback == nil {
		return func() {}
	}
	state.mutex.Lock()
	subscriberID := state.nextSubscriberID
	state.nextSubscriberID++
	state.subscribers[subscriberID] = callback
	state.mutex.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			state.mutex.Lock()
			delete(state.subscribers, subscriberID)
			state.mutex.Unlock()
		})
	}
}

// Last returns the most recently published report.
func (state *TerminalState) Last() (Report, bool) {
	state.mutex.Lock()
	defer state.mutex.Unlock()
	if state.lastReport == nil {
		return Report{}, false
	}
	return *state.lastReport, true
}

// Reset forgets the retained report. Subscriptions are kept.
func (state *TerminalState) Reset() {
	state.mutex.Lock()
	state.lastReport = nil
	state.mutex.Unlock()
}

func (state *TerminalState) publish(report Report) {
	state.mutex.Lock()
	retained := report
	state.lastReport = &retained
	callbacks := make([]func(Report), 0, len(state.subscribers))
	for _, callback := range state.subscribers {
		callbacks = append(callbacks, callback)
	}
	state.mutex.Unlock()

	for _, callback := range callbacks {
		callback(report)
	}
}

// RunHandle tracks one started run.
type RunHandle struct {
	runID  string
	done   chan struct{}
	report Report
}

func newRunHandle(runID string) *RunHandle {
	return &RunHandle{runID: runID, done: make(chan struct{})}
}

// RunID returns the identifier assigned to the run.
func (handle *RunHandle) RunID() string {
	return handle.runID
}

// Done is closed once the terminal report is available.
func (handle *RunHandle) Done() <-chan struct{} {
	return handle.done
}

// Report returns the terminal report and whether the run has finished.
func (handle *RunHandle) Report() (Report, bool) {
	select {
	case <-handle.done:
		return handle.report, true
	default:
		return Report{}, false
	}
}

// Wait blocks until the run finishes or the wait context ends.
func (handle *RunHandle) Wait(waitContext context.Context) (Report, error) {
	select {
	case <-handle.done:
		return handle.report, nil
	case <-waitContext.Done():
		return Report{}, waitContext.Err()
	}
}

func (handle *RunHandle) settle(report Report) {
	handle.report = report
	close(handle.done)
}
