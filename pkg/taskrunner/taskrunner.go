package taskrunner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tyemirov/initgraph/internal/diagnostics"
	"github.com/tyemirov/initgraph/internal/manifest"
	"github.com/tyemirov/initgraph/pkg/initgraph"
)

// RuntimeOptions tunes a single run.
type RuntimeOptions struct {
	MaxConcurrency int
	TaskTimeout    time.Duration
	ClassMixing    initgraph.ClassMixingPolicy
	Observers      []initgraph.Observer
	Diagnostics    bool
	DisableSummary bool
}

// Executor runs a task graph to completion.
type Executor interface {
	Run(ctx context.Context, tasks []initgraph.Task, options RuntimeOptions) (initgraph.Report, error)
}

// Factory constructs an Executor given resolved dependencies.
type Factory func(Dependencies) Executor

// Resolve returns either the provided factory result or the default controller-backed executor,
// wrapped so that every run ends with a summary line.
func Resolve(factory Factory, dependencies Dependencies) Executor {
	var base Executor
	if factory != nil {
		base = factory(dependencies)
	}
	if base == nil {
		base = controllerExecutor{dependencies: dependencies}
	}
	return summaryExecutor{
		delegate:     base,
		dependencies: dependencies,
	}
}

// LoadTasks reads a manifest and converts it with the dependencies' action catalog.
func LoadTasks(manifestPath string, catalog manifest.ActionCatalog) ([]initgraph.Task, error) {
	loaded, loadError := manifest.Load(manifestPath)
	if loadError != nil {
		return nil, fmt.Errorf("taskrunner.manifest.load: %w", loadError)
	}
	tasks, buildError := manifest.BuildTasks(loaded, catalog)
	if buildError != nil {
		return nil, fmt.Errorf("taskrunner.manifest.build: %w", buildError)
	}
	return tasks, nil
}

// ControllerOptions translates runtime options into controller options.
func ControllerOptions(dependencies Dependencies, options RuntimeOptions) []initgraph.ControllerOption {
	controllerOptions := []initgraph.ControllerOption{
		initgraph.WithLogger(dependencies.Logger),
		initgraph.WithMaxConcurrency(options.MaxConcurrency),
		initgraph.WithTaskTimeout(options.TaskTimeout),
		initgraph.WithClassMixingPolicy(options.ClassMixing),
	}
	for _, observer := range options.Observers {
		controllerOptions = append(controllerOptions, initgraph.WithObserver(observer))
	}
	return controllerOptions
}

type controllerExecutor struct {
	dependencies Dependencies
}

func (executor controllerExecutor) Run(ctx context.Context, tasks []initgraph.Task, options RuntimeOptions) (initgraph.Report, error) {
	controller := initgraph.NewController(tasks, ControllerOptions(executor.dependencies, options)...)
	return controller.Run(ctx)
}

type summaryExecutor struct {
	delegate     Executor
	dependencies Dependencies
}

func (executor summaryExecutor) Run(ctx context.Context, tasks []initgraph.Task, options RuntimeOptions) (initgraph.Report, error) {
	report, err := executor.delegate.Run(ctx, tasks, options)
	executor.printDiagnostics(tasks, report, options)
	executor.printSummary(report, options)
	return report, err
}

func (executor summaryExecutor) printDiagnostics(tasks []initgraph.Task, report initgraph.Report, options RuntimeOptions) {
	if !options.Diagnostics || executor.dependencies.Output == nil {
		return
	}
	writer := executor.dependencies.Output

	plan, validationError := initgraph.NewGraphValidator(options.ClassMixing).Validate(initgraph.NewRegistry(tasks))
	if validationError == nil {
		_ = diagnostics.RenderTree(writer, plan, &report)
		fmt.Fprintln(writer)
	}
	if len(report.Records) > 0 {
		_ = diagnostics.RenderDurationTable(writer, report)
	}
}

func (executor summaryExecutor) printSummary(report initgraph.Report, options RuntimeOptions) {
	if options.DisableSummary {
		return
	}
	writer := executor.summaryWriter()
	if writer == nil {
		return
	}
	fmt.Fprintln(writer, diagnostics.RenderSummaryLine(report))
}

func (executor summaryExecutor) summaryWriter() io.Writer {
	if executor.dependencies.Errors != nil {
		return executor.dependencies.Errors
	}
	if executor.dependencies.Output != nil {
		return executor.dependencies.Output
	}
	return nil
}
