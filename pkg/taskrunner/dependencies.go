package taskrunner

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/initgraph/internal/actions"
	"github.com/tyemirov/initgraph/internal/execshell"
)

// DependenciesConfig captures providers required to build runner dependencies.
type DependenciesConfig struct {
	LoggerProvider               func() *zap.Logger
	HumanReadableLoggingProvider func() bool
	CommandRunner                execshell.CommandRunner
	EnvironmentLookup            actions.EnvironmentLookup
}

// DependenciesOptions allows per-command overrides when resolving dependencies.
type DependenciesOptions struct {
	Command *cobra.Command
	Output  io.Writer
	Errors  io.Writer
}

// Dependencies exposes the resolved collaborators.
type Dependencies struct {
	Logger   *zap.Logger
	Executor *execshell.ShellExecutor
	Catalog  *actions.Catalog
	Output   io.Writer
	Errors   io.Writer
}

// BuildDependencies resolves the shell executor, action catalog and output writers.
func BuildDependencies(config DependenciesConfig, options DependenciesOptions) (Dependencies, error) {
	logger := resolveLogger(config.LoggerProvider)
	humanReadable := false
	if config.HumanReadableLoggingProvider != nil {
		humanReadable = config.HumanReadableLoggingProvider()
	}

	commandRunner := config.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewOSCommandRunner()
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner, humanReadable)
	if executorError != nil {
		return Dependencies{}, fmt.Errorf("taskrunner.dependencies.shell_executor: %w", executorError)
	}

	catalog := actions.NewCatalog(actions.Dependencies{
		Executor:          shellExecutor,
		Logger:            logger,
		EnvironmentLookup: config.EnvironmentLookup,
	})

	return Dependencies{
		Logger:   logger,
		Executor: shellExecutor,
		Catalog:  catalog,
		Output:   resolveWriter(options.Output, options.Command, true),
		Errors:   resolveWriter(options.Errors, options.Command, false),
	}, nil
}

func resolveLogger(provider func() *zap.Logger) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveWriter(provided io.Writer, command *cobra.Command, useStdout bool) io.Writer {
	if provided != nil {
		return provided
	}
	if command != nil {
		if useStdout {
			if writer := command.OutOrStdout(); writer != nil && writer != io.Discard {
				return writer
			}
		} else {
			if writer := command.ErrOrStderr(); writer != nil && writer != io.Discard {
				return writer
			}
		}
	}
	if useStdout {
		return os.Stdout
	}
	return os.Stderr
}
