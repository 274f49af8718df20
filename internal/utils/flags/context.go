package flags

import (
	"fmt"
	"strings"
)

const (
	// MaxConcurrencyFlagName exposes the shared worker limit flag name.
	MaxConcurrencyFlagName = "max-concurrency"
	// MaxConcurrencyFlagUsage describes the worker limit flag purpose.
	MaxConcurrencyFlagUsage = "Maximum number of tasks running at once (0 means unbounded)"
	// TaskTimeoutFlagName exposes the shared per-task timeout flag name.
	TaskTimeoutFlagName = "task-timeout"
	// TaskTimeoutFlagUsage describes the per-task timeout flag purpose.
	TaskTimeoutFlagUsage = "Maximum duration of a single task body (0 disables the limit)"
	// ClassMixingFlagName exposes the shared class-mixing policy flag name.
	ClassMixingFlagName = "class-mixing"
	// ClassMixingFlagUsage describes the class-mixing policy flag purpose.
	ClassMixingFlagUsage = "Whether ordered tasks may depend on concurrent tasks"
	// MetricsAddressFlagName exposes the metrics listener flag name.
	MetricsAddressFlagName = "metrics-address"
	// MetricsAddressFlagUsage describes the metrics listener flag purpose.
	MetricsAddressFlagUsage = "Listen address for the Prometheus metrics endpoint (empty disables it)"
	// DiagnosticsFlagName exposes the diagnostics toggle flag name.
	DiagnosticsFlagName = "diagnostics"
	// DiagnosticsFlagUsage describes the diagnostics toggle purpose.
	DiagnosticsFlagUsage = "Print the dependency tree and per-task durations after a run"

	choiceUsageTemplate = "%s (%s; default %s)"
)

// FormatChoiceUsage appends the accepted values and default to a flag usage string.
func FormatChoiceUsage(defaultValue string, choices []string, usage string) string {
	return fmt.Sprintf(choiceUsageTemplate, usage, strings.Join(choices, "|"), defaultValue)
}
