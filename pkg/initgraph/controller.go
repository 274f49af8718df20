package initgraph

import (
	"context"
	stdErrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	runStartedMessageConstant            = "initialization run started"
	runSucceededMessageConstant          = "initialization run succeeded"
	runFailedMessageConstant             = "initialization run failed"
	runRejectedMessageConstant           = "initialization run rejected: configuration error"
	runAlreadyActiveMessageConstant      = "initialization run already in progress"
	runCancelRequestedMessageConstant    = "initialization run cancellation requested"
	runTaskCountLogFieldConstant         = "tasks"
	runFailureCountLogFieldConstant      = "failures"
	runDurationLogFieldConstant          = "duration"
	runMaxConcurrencyLogFieldConstant    = "max_concurrency"
	runClassMixingPolicyLogFieldConstant = "class_mixing"
)

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger used for lifecycle events. Nil resolves to a no-op logger.
func WithLogger(logger *zap.Logger) ControllerOption {
	return func(controller *Controller) {
		controller.logger = logger
	}
}

// WithObserver adds an observer notified of task and run lifecycle events.
func WithObserver(observer Observer) ControllerOption {
	return func(controller *Controller) {
		if observer != nil {
			controller.observers = append(controller.observers, observer)
		}
	}
}

// WithMaxConcurrency bounds the number of task handles that may be active at once. Zero means unbounded.
func WithMaxConcurrency(limit int) ControllerOption {
	return func(controller *Controller) {
		if limit < 0 {
			limit = 0
		}
		controller.maxConcurrency = limit
	}
}

// WithTaskTimeout bounds each task body through its context. Zero disables the bound.
func WithTaskTimeout(timeout time.Duration) ControllerOption {
	return func(controller *Controller) {
		if timeout < 0 {
			timeout = 0
		}
		controller.taskTimeout = timeout
	}
}

// WithClassMixingPolicy selects whether ordered tasks may depend on concurrent tasks.
func WithClassMixingPolicy(policy ClassMixingPolicy) ControllerOption {
	return func(controller *Controller) {
		controller.validator = NewGraphValidator(policy)
	}
}

// WithClock overrides the time source used for records.
func WithClock(now func() time.Time) ControllerOption {
	return func(controller *Controller) {
		if now != nil {
			controller.now = now
		}
	}
}

// WithRunIDGenerator overrides how run identifiers are produced.
func WithRunIDGenerator(generator func() string) ControllerOption {
	return func(controller *Controller) {
		if generator != nil {
			controller.runIDGenerator = generator
		}
	}
}

// Controller is the single-shot facade that validates, schedules and reports one run at a time.
type Controller struct {
	registry       *Registry
	validator      GraphValidator
	logger         *zap.Logger
	observers      []Observer
	maxConcurrency int
	taskTimeout    time.Duration
	now            func() time.Time
	runIDGenerator func() string
	terminal       *TerminalState
	aggregator     FailureAggregator

	running atomic.Bool

	mutex           sync.Mutex
	cancelRun       context.CancelFunc
	cancelRequested bool
	plan            Plan
	planned         bool
}

// NewController registers the tasks and applies the options.
func NewController(tasks []Task, options ...ControllerOption) *Controller {
	controller := &Controller{
		registry:       NewRegistry(tasks),
		validator:      NewGraphValidator(ClassMixingAllow),
		now:            time.Now,
		runIDGenerator: uuid.NewString,
		terminal:       NewTerminalState(),
	}
	for _, option := range options {
		if option != nil {
			option(controller)
		}
	}
	if controller.logger == nil {
		controller.logger = zap.NewNop()
	}
	return controller
}

// Validate checks the registered graph without running anything.
func (controller *Controller) Validate() (Plan, error) {
	plan, validationError := controller.validator.Validate(controller.registry)
	if validationError != nil {
		return Plan{}, validationError
	}
	controller.mutex.Lock()
	controller.plan = plan
	controller.planned = true
	controller.mutex.Unlock()
	return plan, nil
}

// Order returns the sort order of the last successful validation.
func (controller *Controller) Order() []TaskID {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	if !controller.planned {
		return nil
	}
	return append([]TaskID(nil), controller.plan.Order...)
}

// Running reports whether a run is in flight.
func (controller *Controller) Running() bool {
	return controller.running.Load()
}

// Start begins a run. It returns false without side effects when a run is already in flight.
func (controller *Controller) Start(parentContext context.Context) (*RunHandle, bool) {
	if !controller.running.CompareAndSwap(false, true) {
		controller.logger.Debug(runAlreadyActiveMessageConstant)
		return nil, false
	}
	if parentContext == nil {
		parentContext = context.Background()
	}

	runID := controller.runIDGenerator()
	handle := newRunHandle(runID)
	startedAt := controller.now()
	observer := observerGroup(controller.observers)

	plan, validationError := controller.Validate()
	if validationError != nil {
		failure := TaskFailure{Cause: validationError}
		var configurationError ConfigurationError
		if stdErrors.As(validationError, &configurationError) {
			failure.TaskID = configurationError.TaskID
		}
		report := Report{
			RunID:      runID,
			Status:     RunStatusFailure,
			Failures:   []TaskFailure{failure},
			StartedAt:  startedAt,
			FinishedAt: controller.now(),
		}
		controller.logger.Error(runRejectedMessageConstant,
			zap.String(runIdentifierLogFieldConstant, runID),
			zap.Error(validationError),
		)
		controller.finish(handle, report, observer)
		return handle, true
	}

	runContext, cancelRun := context.WithCancel(parentContext)
	controller.mutex.Lock()
	controller.cancelRun = cancelRun
	controller.cancelRequested = false
	controller.mutex.Unlock()

	controller.logger.Info(runStartedMessageConstant,
		zap.String(runIdentifierLogFieldConstant, runID),
		zap.Int(runTaskCountLogFieldConstant, len(plan.Order)),
		zap.Int(runMaxConcurrencyLogFieldConstant, controller.maxConcurrency),
		zap.String(runClassMixingPolicyLogFieldConstant, string(controller.validator.classMixingPolicy)),
	)

	runScheduler := &scheduler{
		runID:          runID,
		plan:           plan,
		store:          NewResultStore(),
		logger:         controller.logger,
		observer:       observer,
		maxConcurrency: controller.maxConcurrency,
		taskTimeout:    controller.taskTimeout,
		now:            controller.now,
	}

	go func() {
		defer cancelRun()
		records := runScheduler.run(runContext)

		controller.mutex.Lock()
		cancellationRequested := controller.cancelRequested || parentContext.Err() != nil
		controller.cancelRun = nil
		controller.mutex.Unlock()

		failures := controller.aggregator.Aggregate(records, cancellationRequested)
		status := RunStatusSuccess
		if len(failures) > 0 || !allSucceeded(records) {
			status = RunStatusFailure
		}
		report := Report{
			RunID:      runID,
			Status:     status,
			Failures:   failures,
			Order:      append([]TaskID(nil), plan.Order...),
			Records:    records,
			StartedAt:  startedAt,
			FinishedAt: controller.now(),
		}
		if report.Succeeded() {
			controller.logger.Info(runSucceededMessageConstant,
				zap.String(runIdentifierLogFieldConstant, runID),
				zap.Duration(runDurationLogFieldConstant, report.Duration()),
			)
		} else {
			controller.logger.Error(runFailedMessageConstant,
				zap.String(runIdentifierLogFieldConstant, runID),
				zap.Int(runFailureCountLogFieldConstant, len(failures)),
				zap.Duration(runDurationLogFieldConstant, report.Duration()),
				zap.Error(report.Err()),
			)
		}
		controller.finish(handle, report, observer)
	}()

	return handle, true
}

// Cancel requests cooperative cancellation of the active run. It is a no-op when nothing runs.
func (controller *Controller) Cancel() {
	controller.mutex.Lock()
	cancelRun := controller.cancelRun
	if cancelRun != nil {
		controller.cancelRequested = true
	}
	controller.mutex.Unlock()

	if cancelRun != nil {
		controller.logger.Info(runCancelRequestedMessageConstant)
		cancelRun()
	}
}

// Subscribe registers a callback receiving every terminal report. Call the returned function to stop.
func (controller *Controller) Subscribe(callback func(Report)) func() {
	return controller.terminal.Subscribe(callback)
}

// LastReport returns the retained terminal report of the most recent run.
func (controller *Controller) LastReport() (Report, bool) {
	return controller.terminal.Last()
}

// Reset discards the retained terminal report.
func (controller *Controller) Reset() {
	controller.terminal.Reset()
}

// Run starts a run and waits for its report. It fails when another run is already active.
func (controller *Controller) Run(parentContext context.Context) (Report, error) {
	handle, started := controller.Start(parentContext)
	if !started {
		return Report{}, ErrRunInProgress
	}
	<-handle.Done()
	report, _ := handle.Report()
	return report, report.Err()
}

// finish clears the running flag before delivering the report, so subscribers
// and waiters may start the next run.
func (controller *Controller) finish(handle *RunHandle, report Report, observer Observer) {
	controller.running.Store(false)
	observer.RunFinished(report)
	controller.terminal.publish(report)
	handle.settle(report)
}

func allSucceeded(records []ExecutionRecord) bool {
	for _, record := range records {
		if record.Outcome != OutcomeSuccess {
			return false
		}
	}
	return true
}
