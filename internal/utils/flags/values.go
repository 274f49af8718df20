package flags

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tyemirov/initgraph/internal/utils"
)

// ErrFlagNotDefined indicates that the requested flag is not present on the command.
var ErrFlagNotDefined = errors.New("flag not defined")

func BoolFlag(command *cobra.Command, name string) (bool, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return false, false, ErrFlagNotDefined
	}
	value, err := flagSet.GetBool(name)
	if err != nil {
		return false, false, err
	}
	return value, flag.Changed, nil
}

func StringFlag(command *cobra.Command, name string) (string, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return "", false, ErrFlagNotDefined
	}
	value, err := flagSet.GetString(name)
	if err != nil {
		return "", false, err
	}
	return value, flag.Changed, nil
}

func IntFlag(command *cobra.Command, name string) (int, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return 0, false, ErrFlagNotDefined
	}
	value, err := flagSet.GetInt(name)
	if err != nil {
		return 0, false, err
	}
	return value, flag.Changed, nil
}

func DurationFlag(command *cobra.Command, name string) (time.Duration, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return 0, false, ErrFlagNotDefined
	}
	value, err := flagSet.GetDuration(name)
	if err != nil {
		return 0, false, err
	}
	return value, flag.Changed, nil
}

func locateFlag(command *cobra.Command, name string) (*pflag.FlagSet, *pflag.Flag) {
	if command == nil {
		return nil, nil
	}

	candidateSets := []*pflag.FlagSet{
		command.Flags(),
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	if root := command.Root(); root != nil {
		candidateSets = append(candidateSets, root.PersistentFlags())
	}

	for _, set := range candidateSets {
		if set == nil {
			continue
		}
		if flag := set.Lookup(name); flag != nil {
			return set, flag
		}
	}

	return nil, nil
}

// CollectExecutionFlags inspects the command's flags to produce execution flag values.
func CollectExecutionFlags(command *cobra.Command) utils.ExecutionFlags {
	executionFlags := utils.ExecutionFlags{}
	if command == nil {
		return executionFlags
	}

	if limitValue, limitChanged, limitError := IntFlag(command, MaxConcurrencyFlagName); limitError == nil {
		executionFlags.MaxConcurrency = limitValue
		executionFlags.MaxConcurrencySet = limitChanged
	}

	if timeoutValue, timeoutChanged, timeoutError := DurationFlag(command, TaskTimeoutFlagName); timeoutError == nil {
		executionFlags.TaskTimeout = timeoutValue
		executionFlags.TaskTimeoutSet = timeoutChanged
	}

	if policyValue, policyChanged, policyError := StringFlag(command, ClassMixingFlagName); policyError == nil {
		executionFlags.ClassMixing = strings.TrimSpace(policyValue)
		executionFlags.ClassMixingSet = policyChanged
	}

	if addressValue, addressChanged, addressError := StringFlag(command, MetricsAddressFlagName); addressError == nil {
		executionFlags.MetricsAddress = strings.TrimSpace(addressValue)
		executionFlags.MetricsAddressSet = addressChanged
	}

	if diagnosticsValue, diagnosticsChanged, diagnosticsError := BoolFlag(command, DiagnosticsFlagName); diagnosticsError == nil {
		executionFlags.Diagnostics = diagnosticsValue
		executionFlags.DiagnosticsSet = diagnosticsChanged
	}

	return executionFlags
}

// ResolveExecutionFlags returns execution flags from context or flag values, indicating whether any overrides are provided.
func ResolveExecutionFlags(command *cobra.Command) (utils.ExecutionFlags, bool) {
	contextAccessor := utils.NewCommandContextAccessor()
	if command != nil {
		if flags, available := contextAccessor.ExecutionFlags(command.Context()); available {
			return flags, flags.Any()
		}
	}

	executionFlags := CollectExecutionFlags(command)
	return executionFlags, executionFlags.Any()
}
