package initgraph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	upstreamFailedMessageTemplateConstant = "dependency %q did not succeed"
	taskWaitingMessageConstant            = "task waiting for dependencies"
	taskStartedMessageConstant            = "task started"
	taskSucceededMessageConstant          = "task succeeded"
	taskFailedMessageConstant             = "task failed"
	taskCancelledMessageConstant          = "task cancelled"
	taskSkippedMessageConstant            = "task skipped after upstream failure"
	taskPanickedMessageConstant           = "task panicked"
	taskIdentifierLogFieldConstant        = "task"
	taskClassLogFieldConstant             = "class"
	taskDependenciesLogFieldConstant      = "dependencies"
	taskUpstreamLogFieldConstant          = "upstream"
	taskDurationLogFieldConstant          = "duration"
	taskStackLogFieldConstant             = "stack"
	runIdentifierLogFieldConstant         = "run_id"
)

type taskHandle struct {
	task   Task
	done   chan struct{}
	record ExecutionRecord
}

type scheduler struct {
	runID          string
	plan           Plan
	store          *ResultStore
	logger         *zap.Logger
	observer       Observer
	maxConcurrency int
	taskTimeout    time.Duration
	now            func() time.Time
}

// run launches one handle per planned task and returns their records, in plan order, once all settled.
func (scheduler *scheduler) run(runContext context.Context) []ExecutionRecord {
	handles := make(map[TaskID]*taskHandle, len(scheduler.plan.Order))
	ordered := make([]*taskHandle, 0, len(scheduler.plan.Order))
	lanePositions := make(map[TaskID]int)

	for _, identifier := range scheduler.plan.Order {
		task, _ := scheduler.plan.Task(identifier)
		handle := &taskHandle{
			task:   task,
			done:   make(chan struct{}),
			record: ExecutionRecord{TaskID: identifier, Class: task.Class},
		}
		handles[identifier] = handle
		ordered = append(ordered, handle)
		if task.Class == ClassOrdered {
			lanePositions[identifier] = len(lanePositions)
		}
	}

	lane := newOrderedLane(len(lanePositions))

	var group errgroup.Group
	if scheduler.maxConcurrency > 0 {
		group.SetLimit(scheduler.maxConcurrency)
	}

	// Launching in plan order means every awaited handle already holds a slot.
	for _, handle := range ordered {
		currentHandle := handle
		lanePosition, onLane := lanePositions[currentHandle.task.ID]
		if !onLane {
			lanePosition = -1
		}
		group.Go(func() error {
			scheduler.execute(runContext, currentHandle, handles, lane, lanePosition)
			return nil
		})
	}
	_ = group.Wait()

	records := make([]ExecutionRecord, 0, len(ordered))
	for _, handle := range ordered {
		records = append(records, handle.record)
	}
	return records
}

func (scheduler *scheduler) execute(runContext context.Context, handle *taskHandle, handles map[TaskID]*taskHandle, lane *orderedLane, lanePosition int) {
	defer close(handle.done)
	if lanePosition >= 0 {
		defer lane.finish(lanePosition)
	}

	identifier := handle.task.ID
	logger := scheduler.logger.With(
		zap.String(runIdentifierLogFieldConstant, scheduler.runID),
		zap.String(taskIdentifierLogFieldConstant, string(identifier)),
	)

	dependencies := scheduler.plan.Dependencies[identifier]
	if len(dependencies) > 0 {
		logger.Debug(taskWaitingMessageConstant, zap.Int(taskDependenciesLogFieldConstant, len(dependencies)))
	}

	for _, dependencyID := range dependencies {
		dependency := handles[dependencyID]
		select {
		case <-dependency.done:
		case <-runContext.Done():
			scheduler.settleCancelled(handle, runContext.Err(), logger)
			return
		}
		if dependency.record.Outcome != OutcomeSuccess {
			scheduler.settleSkipped(handle, dependencyID, logger)
			return
		}
	}

	if lanePosition >= 0 {
		if waitError := lane.wait(runContext, lanePosition); waitError != nil {
			scheduler.settleCancelled(handle, waitError, logger)
			return
		}
	}

	if runContext.Err() != nil {
		scheduler.settleCancelled(handle, runContext.Err(), logger)
		return
	}

	bodyContext, cancelBody := scheduler.bodyContext(runContext)
	defer cancelBody()

	handle.record.Started = true
	handle.record.StartedAt = scheduler.now()
	scheduler.observer.TaskStarted(scheduler.runID, identifier)
	logger.Debug(taskStartedMessageConstant, zap.String(taskClassLogFieldConstant, string(handle.task.Class)))

	value, bodyError := scheduler.invoke(bodyContext, handle.task, scheduler.store.ProviderFor(dependencies), logger)
	handle.record.FinishedAt = scheduler.now()
	duration := handle.record.Duration()

	switch {
	case bodyError != nil && IsCancellation(bodyError):
		handle.record.Outcome = OutcomeCancelled
		handle.record.Cause = CancellationError{TaskID: identifier, Cause: bodyError}
		logger.Warn(taskCancelledMessageConstant, zap.Duration(taskDurationLogFieldConstant, duration), zap.Error(bodyError))
	case bodyError != nil:
		handle.record.Outcome = OutcomeFailure
		handle.record.Cause = TaskError{TaskID: identifier, Cause: bodyError}
		logger.Error(taskFailedMessageConstant, zap.Duration(taskDurationLogFieldConstant, duration), zap.Error(bodyError))
	default:
		if storeError := scheduler.store.Store(identifier, value); storeError != nil {
			handle.record.Outcome = OutcomeFailure
			handle.record.Cause = TaskError{TaskID: identifier, Cause: storeError}
			logger.Error(taskFailedMessageConstant, zap.Error(storeError))
			break
		}
		handle.record.Outcome = OutcomeSuccess
		handle.record.Value = value
		logger.Info(taskSucceededMessageConstant, zap.Duration(taskDurationLogFieldConstant, duration))
	}

	scheduler.observer.TaskFinished(scheduler.runID, handle.record)
}

func (scheduler *scheduler) invoke(bodyContext context.Context, task Task, provider DependencyProvider, logger *zap.Logger) (value any, bodyError error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		value, bodyError = task.Body.Execute(bodyContext, provider)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		logger.Error(taskPanickedMessageConstant, zap.String(taskStackLogFieldConstant, string(recovered.Stack)))
		return nil, fmt.Errorf(taskPanicMessageTemplateConstant, recovered.Value)
	}
	return value, bodyError
}

func (scheduler *scheduler) bodyContext(runContext context.Context) (context.Context, context.CancelFunc) {
	if scheduler.taskTimeout > 0 {
		return context.WithTimeout(runContext, scheduler.taskTimeout)
	}
	return context.WithCancel(runContext)
}

func (scheduler *scheduler) settleCancelled(handle *taskHandle, cause error, logger *zap.Logger) {
	handle.record.Outcome = OutcomeCancelled
	handle.record.Cause = CancellationError{TaskID: handle.task.ID, Cause: cause}
	handle.record.FinishedAt = scheduler.now()
	logger.Debug(taskCancelledMessageConstant, zap.Error(cause))
	scheduler.observer.TaskFinished(scheduler.runID, handle.record)
}

func (scheduler *scheduler) settleSkipped(handle *taskHandle, upstreamID TaskID, logger *zap.Logger) {
	handle.record.Outcome = OutcomeCancelled
	handle.record.UpstreamTaskID = upstreamID
	handle.record.Cause = CancellationError{
		TaskID: handle.task.ID,
		Cause:  fmt.Errorf("%w: "+upstreamFailedMessageTemplateConstant, ErrUpstreamFailed, upstreamID),
	}
	handle.record.FinishedAt = scheduler.now()
	logger.Warn(taskSkippedMessageConstant, zap.String(taskUpstreamLogFieldConstant, string(upstreamID)))
	scheduler.observer.TaskFinished(scheduler.runID, handle.record)
}

// orderedLane serializes ordered tasks: position k runs only after positions 0..k-1 settled.
type orderedLane struct {
	mutex          sync.Mutex
	finished       []bool
	finishedPrefix int
	changed        chan struct{}
}

func newOrderedLane(size int) *orderedLane {
	return &orderedLane{
		finished: make([]bool, size),
		changed:  make(chan struct{}),
	}
}

func (lane *orderedLane) wait(waitContext context.Context, position int) error {
	for {
		lane.mutex.Lock()
		if lane.finishedPrefix >= position {
			lane.mutex.Unlock()
			return nil
		}
		changed := lane.changed
		lane.mutex.Unlock()

		select {
		case <-changed:
		case <-waitContext.Done():
			return waitContext.Err()
		}
	}
}

func (lane *orderedLane) finish(position int) {
	lane.mutex.Lock()
	defer lane.mutex.Unlock()
	lane.finished[position] = true
	for lane.finishedPrefix < len(lane.finished) && lane.finished[lane.finishedPrefix] {
		lane.finishedPrefix++
	}
	close(lane.changed)
	lane.changed = make(chan struct{})
}
