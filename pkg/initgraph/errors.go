package initgraph

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
)

const (
	missingDependencyMessageTemplateConstant  = "task %q depends on unknown task %q"
	illegalDependencyMessageTemplateConstant  = "ordered task %q cannot depend on concurrent task %q"
	circularDependencyMessageTemplateConstant = "circular dependency among tasks: %s"
	selfDependencyMessageTemplateConstant     = "task %q depends on itself"
	duplicateTaskMessageTemplateConstant      = "task %q registered multiple times"
	invalidTaskMessageTemplateConstant        = "task %q is invalid: %s"
	taskFailureMessageTemplateConstant        = "task %q failed: %v"
	taskCancelledMessageTemplateConstant      = "task %q cancelled: %v"
	runCancelledMessageConstant               = "run cancelled"
	resultNotFoundMessageConstant             = "result not found"
	resultAlreadyStoredMessageConstant        = "result already stored"
	resultTypeMismatchMessageConstant         = "result type mismatch"
	taskPanicMessageTemplateConstant          = "task panicked: %v"
	runInProgressMessageConstant              = "initialization run already in progress"
)

// Sentinel describes a stable error code shared across the scheduler.
type Sentinel string

// Error returns the sentinel code string.
func (sentinel Sentinel) Error() string {
	return string(sentinel)
}

// Code exposes the sentinel code string.
func (sentinel Sentinel) Code() string {
	return string(sentinel)
}

var (
	// ErrMissingDependency indicates a task declared a dependency absent from the registry.
	ErrMissingDependency Sentinel = "missing_dependency"
	// ErrIllegalDependency indicates a dependency rejected by the class-mixing policy.
	ErrIllegalDependency Sentinel = "illegal_dependency"
	// ErrCircularDependency indicates the dependency graph contains a cycle.
	ErrCircularDependency Sentinel = "circular_dependency"
	// ErrDuplicateTask indicates two tasks share the same identifier.
	ErrDuplicateTask Sentinel = "duplicate_task"
	// ErrInvalidTask indicates a task definition lacks an identifier or body.
	ErrInvalidTask Sentinel = "invalid_task"
	// ErrTaskFailed indicates a task body returned an error or panicked.
	ErrTaskFailed Sentinel = "task_failed"
	// ErrCancelled indicates cancellation was observed.
	ErrCancelled Sentinel = "cancelled"
	// ErrUpstreamFailed marks dependents that never started because a dependency did not succeed.
	ErrUpstreamFailed Sentinel = "upstream_failed"
)

var (
	// ErrResultNotFound is returned by DependencyProvider.Result when no value is available.
	ErrResultNotFound = stdErrors.New(resultNotFoundMessageConstant)
	// ErrResultAlreadyStored is returned when a task id is written twice in one run.
	ErrResultAlreadyStored = stdErrors.New(resultAlreadyStoredMessageConstant)
	// ErrResultTypeMismatch is returned by ResultAs when the stored value has another type.
	ErrResultTypeMismatch = stdErrors.New(resultTypeMismatchMessageConstant)
	// ErrRunInProgress is returned by Controller.Run when another run is active.
	ErrRunInProgress = stdErrors.New(runInProgressMessageConstant)
)

// ConfigurationError reports a registry or graph defect detected before any task executes.
type ConfigurationError struct {
	Code         Sentinel
	TaskID       TaskID
	DependencyID TaskID
	Tasks        []TaskID
	Detail       string
}

// Error implements the error interface.
func (configurationError ConfigurationError) Error() string {
	switch configurationError.Code {
	case ErrMissingDependency:
		return fmt.Sprintf(missingDependencyMessageTemplateConstant, configurationError.TaskID, configurationError.DependencyID)
	case ErrIllegalDependency:
		return fmt.Sprintf(illegalDependencyMessageTemplateConstant, configurationError.TaskID, configurationError.DependencyID)
	case ErrCircularDependency:
		if len(configurationError.Tasks) == 0 && len(configurationError.TaskID) > 0 {
			return fmt.Sprintf(selfDependencyMessageTemplateConstant, configurationError.TaskID)
		}
		return fmt.Sprintf(circularDependencyMessageTemplateConstant, joinTaskIDs(configurationError.Tasks))
	case ErrDuplicateTask:
		return fmt.Sprintf(duplicateTaskMessageTemplateConstant, configurationError.TaskID)
	default:
		return fmt.Sprintf(invalidTaskMessageTemplateConstant, configurationError.TaskID, configurationError.Detail)
	}
}

// Unwrap exposes the sentinel so callers can match with errors.Is.
func (configurationError ConfigurationError) Unwrap() error {
	return configurationError.Code
}

// TaskError annotates an error produced by a task body with the task identifier.
type TaskError struct {
	TaskID TaskID
	Cause  error
}

// Error implements the error interface.
func (taskError TaskError) Error() string {
	return fmt.Sprintf(taskFailureMessageTemplateConstant, taskError.TaskID, taskError.Cause)
}

// Unwrap exposes the sentinel and the underlying cause.
func (taskError TaskError) Unwrap() []error {
	return []error{ErrTaskFailed, taskError.Cause}
}

// CancellationError reports cancellation observed by a task, or synthesized for a cancelled run.
type CancellationError struct {
	TaskID TaskID
	Cause  error
}

// Error implements the error interface.
func (cancellationError CancellationError) Error() string {
	if len(cancellationError.TaskID) == 0 {
		return runCancelledMessageConstant
	}
	return fmt.Sprintf(taskCancelledMessageTemplateConstant, cancellationError.TaskID, cancellationError.Cause)
}

// Unwrap exposes the sentinel and the underlying cause.
func (cancellationError CancellationError) Unwrap() []error {
	if cancellationError.Cause == nil {
		return []error{ErrCancelled, context.Canceled}
	}
	return []error{ErrCancelled, cancellationError.Cause}
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var configurationError ConfigurationError
	return stdErrors.As(err, &configurationError)
}

// IsCancellation reports whether err represents a cancellation.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	return stdErrors.Is(err, ErrCancelled) || stdErrors.Is(err, context.Canceled)
}

func joinTaskIDs(taskIDs []TaskID) string {
	names := make([]string, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		names = append(names, string(taskID))
	}
	return strings.Join(names, ", ")
}

const (
	runFailedMessageTemplateConstant = "initialization failed: %s"
	runFailedEmptyMessageConstant    = "initialization failed"
)

// RunError summarizes the failures of a run as a single error.
type RunError struct {
	Failures []TaskFailure
}

// Error implements the error interface.
func (runError RunError) Error() string {
	if len(runError.Failures) == 0 {
		return runFailedEmptyMessageConstant
	}
	messages := make([]string, 0, len(runError.Failures))
	for _, failure := range runError.Failures {
		if failure.Cause == nil {
			continue
		}
		messages = append(messages, failure.Cause.Error())
	}
	return fmt.Sprintf(runFailedMessageTemplateConstant, strings.Join(messages, "; "))
}

// Unwrap exposes every reported cause.
func (runError RunError) Unwrap() []error {
	causes := make([]error, 0, len(runError.Failures))
	for _, failure := range runError.Failures {
		if failure.Cause != nil {
			causes = append(causes, failure.Cause)
		}
	}
	return causes
}
