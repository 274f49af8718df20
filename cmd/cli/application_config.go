package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tyemirov/initgraph/internal/utils"
	flagutils "github.com/tyemirov/initgraph/internal/utils/flags"
	"github.com/tyemirov/initgraph/pkg/initgraph"
	"github.com/tyemirov/initgraph/pkg/taskrunner"
)

const (
	invalidClassMixingTemplateConstant     = "unsupported class mixing policy %q (expected allow or reject)"
	negativeMaxConcurrencyTemplateConstant = "max concurrency must not be negative, got %d"
	negativeTaskTimeoutTemplateConstant    = "task timeout must not be negative, got %s"
)

// ErrInvalidExecutionSettings reports execution settings that cannot drive a run.
var ErrInvalidExecutionSettings = errors.New("invalid execution settings")

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
}

// ApplicationCommonConfiguration stores logging and scheduling defaults shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	TaskTimeout    time.Duration `mapstructure:"task_timeout"`
	ClassMixing    string        `mapstructure:"class_mixing"`
	MetricsAddress string        `mapstructure:"metrics_address"`
	Diagnostics    bool          `mapstructure:"diagnostics"`
}

// ExecutionSettings is the merged view of configuration and flag overrides for one command.
type ExecutionSettings struct {
	MaxConcurrency int
	TaskTimeout    time.Duration
	ClassMixing    initgraph.ClassMixingPolicy
	MetricsAddress string
	Diagnostics    bool
}

// RuntimeOptions converts the settings into scheduler options.
func (settings ExecutionSettings) RuntimeOptions() taskrunner.RuntimeOptions {
	return taskrunner.RuntimeOptions{
		MaxConcurrency: settings.MaxConcurrency,
		TaskTimeout:    settings.TaskTimeout,
		ClassMixing:    settings.ClassMixing,
		Diagnostics:    settings.Diagnostics,
	}
}

func defaultConfigurationValues() map[string]any {
	return map[string]any{
		commonLogLevelConfigKeyConstant:       string(utils.LogLevelError),
		commonLogFormatConfigKeyConstant:      string(utils.LogFormatStructured),
		commonMaxConcurrencyConfigKeyConstant: 0,
		commonTaskTimeoutConfigKeyConstant:    "0s",
		commonClassMixingConfigKeyConstant:    string(initgraph.ClassMixingAllow),
		commonMetricsAddressConfigKeyConstant: "",
		commonDiagnosticsConfigKeyConstant:    false,
	}
}

// executionSettings layers explicitly provided flags over the loaded configuration.
func (application *Application) executionSettings(command *cobra.Command) (ExecutionSettings, error) {
	common := application.configuration.Common
	maxConcurrency := common.MaxConcurrency
	taskTimeout := common.TaskTimeout
	classMixing := common.ClassMixing
	metricsAddress := common.MetricsAddress
	diagnostics := common.Diagnostics

	if executionFlags, provided := flagutils.ResolveExecutionFlags(command); provided {
		if executionFlags.MaxConcurrencySet {
			maxConcurrency = executionFlags.MaxConcurrency
		}
		if executionFlags.TaskTimeoutSet {
			taskTimeout = executionFlags.TaskTimeout
		}
		if executionFlags.ClassMixingSet {
			classMixing = executionFlags.ClassMixing
		}
		if executionFlags.MetricsAddressSet {
			metricsAddress = executionFlags.MetricsAddress
		}
		if executionFlags.DiagnosticsSet {
			diagnostics = executionFlags.Diagnostics
		}
	}

	if maxConcurrency < 0 {
		return ExecutionSettings{}, fmt.Errorf("%w: "+negativeMaxConcurrencyTemplateConstant, ErrInvalidExecutionSettings, maxConcurrency)
	}
	if taskTimeout < 0 {
		return ExecutionSettings{}, fmt.Errorf("%w: "+negativeTaskTimeoutTemplateConstant, ErrInvalidExecutionSettings, taskTimeout)
	}
	policy, policyValid := initgraph.ParseClassMixingPolicy(classMixing)
	if !policyValid {
		return ExecutionSettings{}, fmt.Errorf("%w: "+invalidClassMixingTemplateConstant, ErrInvalidExecutionSettings, classMixing)
	}

	return ExecutionSettings{
		MaxConcurrency: maxConcurrency,
		TaskTimeout:    taskTimeout,
		ClassMixing:    policy,
		MetricsAddress: strings.TrimSpace(metricsAddress),
		Diagnostics:    diagnostics,
	}, nil
}
