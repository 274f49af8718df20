// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	MaxConcurrency int
	TaskTimeout    time.Duration
	ClassMixing    string
	MetricsAddress string
	Diagnostics    bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	MaxConcurrency ExecutionFlagDefinition
	TaskTimeout    ExecutionFlagDefinition
	ClassMixing    ExecutionFlagDefinition
	MetricsAddress ExecutionFlagDefinition
	Diagnostics    ExecutionFlagDefinition
}

// DefaultExecutionFlagDefinitions enables every execution flag with its standard name and usage.
func DefaultExecutionFlagDefinitions(classMixingChoices []string, classMixingDefault string) ExecutionFlagDefinitions {
	return ExecutionFlagDefinitions{
		MaxConcurrency: ExecutionFlagDefinition{Name: MaxConcurrencyFlagName, Usage: MaxConcurrencyFlagUsage, Shorthand: "j", Enabled: true},
		TaskTimeout:    ExecutionFlagDefinition{Name: TaskTimeoutFlagName, Usage: TaskTimeoutFlagUsage, Enabled: true},
		ClassMixing: ExecutionFlagDefinition{
			Name:    ClassMixingFlagName,
			Usage:   FormatChoiceUsage(classMixingDefault, classMixingChoices, ClassMixingFlagUsage),
			Enabled: true,
		},
		MetricsAddress: ExecutionFlagDefinition{Name: MetricsAddressFlagName, Usage: MetricsAddressFlagUsage, Enabled: true},
		Diagnostics:    ExecutionFlagDefinition{Name: DiagnosticsFlagName, Usage: DiagnosticsFlagUsage, Enabled: true},
	}
}

// BindExecutionFlags attaches standardized execution flags to the provided command using persistent scope.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) {
	if command == nil {
		return
	}

	persistentFlagSet := command.PersistentFlags()

	if definitionUsable(persistentFlagSet, definitions.MaxConcurrency) {
		persistentFlagSet.IntP(definitions.MaxConcurrency.Name, definitions.MaxConcurrency.Shorthand, defaults.MaxConcurrency, definitions.MaxConcurrency.Usage)
	}
	if definitionUsable(persistentFlagSet, definitions.TaskTimeout) {
		persistentFlagSet.DurationP(definitions.TaskTimeout.Name, definitions.TaskTimeout.Shorthand, defaults.TaskTimeout, definitions.TaskTimeout.Usage)
	}
	if definitionUsable(persistentFlagSet, definitions.ClassMixing) {
		persistentFlagSet.StringP(definitions.ClassMixing.Name, definitions.ClassMixing.Shorthand, defaults.ClassMixing, definitions.ClassMixing.Usage)
	}
	if definitionUsable(persistentFlagSet, definitions.MetricsAddress) {
		persistentFlagSet.StringP(definitions.MetricsAddress.Name, definitions.MetricsAddress.Shorthand, defaults.MetricsAddress, definitions.MetricsAddress.Usage)
	}
	if definitionUsable(persistentFlagSet, definitions.Diagnostics) {
		persistentFlagSet.BoolP(definitions.Diagnostics.Name, definitions.Diagnostics.Shorthand, defaults.Diagnostics, definitions.Diagnostics.Usage)
	}
}

func definitionUsable(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition) bool {
	if flagSet == nil || !definition.Enabled || len(definition.Name) == 0 {
		return false
	}
	return flagSet.Lookup(definition.Name) == nil
}
