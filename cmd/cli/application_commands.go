package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/initgraph/internal/diagnostics"
	"github.com/tyemirov/initgraph/internal/telemetry"
	"github.com/tyemirov/initgraph/pkg/initgraph"
	"github.com/tyemirov/initgraph/pkg/taskrunner"
)

const (
	runCommandUseConstant                  = "run <manifest>"
	runCommandShortDescriptionConstant     = "Run the tasks declared in a manifest"
	runCommandLongDescriptionConstant      = "run validates the manifest, executes every task once its dependencies have succeeded, and exits non-zero unless every task succeeded. SIGINT and SIGTERM cancel the run."
	planCommandUseConstant                 = "plan <manifest>"
	planCommandShortDescriptionConstant    = "Validate a manifest and print its execution order"
	planCommandLongDescriptionConstant     = "plan validates the manifest and prints the topological order and dependency tree without running any task."
	versionCommandUseConstant              = "version"
	versionCommandShortDescriptionConstant = "Print the application version"
	planOrderHeaderConstant                = "Order:"
	planOrderLineTemplateConstant          = "  %d. %s (%s)\n"
	planTreeHeaderConstant                 = "Dependencies:"
	metricsShutdownTimeoutConstant         = 5 * time.Second
	manifestLoadedMessageConstant          = "manifest loaded"
	metricsServerFailedMessageConstant     = "metrics server shutdown failed"
	manifestPathLogFieldConstant           = "manifest"
	taskCountLogFieldConstant              = "tasks"
	metricsStartErrorTemplateConstant      = "unable to start metrics server: %w"
	metricsCollectorErrorTemplateConstant  = "unable to create metrics collector: %w"
	dependenciesErrorTemplateConstant      = "unable to build runner dependencies: %w"
)

func (application *Application) registerCommands(cobraCommand *cobra.Command) {
	runCommand := &cobra.Command{
		Use:   runCommandUseConstant,
		Short: runCommandShortDescriptionConstant,
		Long:  runCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  application.runManifest,
	}

	planCommand := &cobra.Command{
		Use:   planCommandUseConstant,
		Short: planCommandShortDescriptionConstant,
		Long:  planCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  application.planManifest,
	}

	versionCommand := &cobra.Command{
		Use:   versionCommandUseConstant,
		Short: versionCommandShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			application.printVersion(command)
			return nil
		},
	}

	cobraCommand.AddCommand(runCommand, planCommand, versionCommand)
}

func (application *Application) buildDependencies(command *cobra.Command) (taskrunner.Dependencies, error) {
	dependencies, dependenciesError := taskrunner.BuildDependencies(
		taskrunner.DependenciesConfig{
			LoggerProvider: func() *zap.Logger {
				return application.logger
			},
			HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
			CommandRunner:                application.commandRunner,
			EnvironmentLookup:            application.environmentLookup,
		},
		taskrunner.DependenciesOptions{Command: command},
	)
	if dependenciesError != nil {
		return taskrunner.Dependencies{}, fmt.Errorf(dependenciesErrorTemplateConstant, dependenciesError)
	}
	return dependencies, nil
}

func (application *Application) loadManifestTasks(command *cobra.Command, manifestPath string) (taskrunner.Dependencies, []initgraph.Task, error) {
	dependencies, dependenciesError := application.buildDependencies(command)
	if dependenciesError != nil {
		return taskrunner.Dependencies{}, nil, dependenciesError
	}

	trimmedPath := strings.TrimSpace(manifestPath)
	tasks, loadError := taskrunner.LoadTasks(trimmedPath, dependencies.Catalog)
	if loadError != nil {
		return taskrunner.Dependencies{}, nil, loadError
	}

	application.logger.Debug(
		manifestLoadedMessageConstant,
		zap.String(manifestPathLogFieldConstant, trimmedPath),
		zap.Int(taskCountLogFieldConstant, len(tasks)),
	)
	return dependencies, tasks, nil
}

func (application *Application) runManifest(command *cobra.Command, arguments []string) error {
	settings, settingsError := application.executionSettings(command)
	if settingsError != nil {
		return settingsError
	}

	dependencies, tasks, loadError := application.loadManifestTasks(command, arguments[0])
	if loadError != nil {
		return loadError
	}

	runContext, stopSignals := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	runtimeOptions := settings.RuntimeOptions()
	if len(settings.MetricsAddress) > 0 {
		collector, collectorError := telemetry.NewCollector()
		if collectorError != nil {
			return fmt.Errorf(metricsCollectorErrorTemplateConstant, collectorError)
		}
		metricsServer := telemetry.NewMetricsServer(settings.MetricsAddress, collector, application.logger)
		if startError := metricsServer.Start(); startError != nil {
			return fmt.Errorf(metricsStartErrorTemplateConstant, startError)
		}
		defer application.shutdownMetricsServer(metricsServer)
		runtimeOptions.Observers = append(runtimeOptions.Observers, collector)
	}

	_, runError := taskrunner.Resolve(application.executorFactory, dependencies).Run(runContext, tasks, runtimeOptions)
	return runError
}

func (application *Application) shutdownMetricsServer(metricsServer *telemetry.MetricsServer) {
	shutdownContext, cancelShutdown := context.WithTimeout(context.Background(), metricsShutdownTimeoutConstant)
	defer cancelShutdown()
	if shutdownError := metricsServer.Shutdown(shutdownContext); shutdownError != nil {
		application.logger.Warn(metricsServerFailedMessageConstant, zap.Error(shutdownError))
	}
}

func (application *Application) planManifest(command *cobra.Command, arguments []string) error {
	settings, settingsError := application.executionSettings(command)
	if settingsError != nil {
		return settingsError
	}

	_, tasks, loadError := application.loadManifestTasks(command, arguments[0])
	if loadError != nil {
		return loadError
	}

	controller := initgraph.NewController(
		tasks,
		initgraph.WithLogger(application.logger),
		initgraph.WithClassMixingPolicy(settings.ClassMixing),
	)
	plan, validationError := controller.Validate()
	if validationError != nil {
		return validationError
	}

	writer := command.OutOrStdout()
	fmt.Fprintln(writer, planOrderHeaderConstant)
	for position, identifier := range plan.Order {
		task, _ := plan.Task(identifier)
		fmt.Fprintf(writer, planOrderLineTemplateConstant, position+1, identifier, task.Class)
	}
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, planTreeHeaderConstant)
	return diagnostics.RenderTree(writer, plan, nil)
}
