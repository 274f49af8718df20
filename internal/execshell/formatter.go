package execshell

import (
	"fmt"
	"strings"
)

const (
	startedMessageTemplateConstant         = "Running %s"
	completedMessageTemplateConstant       = "Completed %s"
	failedMessageTemplateConstant          = "%s failed with exit code %d"
	executionFailedMessageTemplateConstant = "%s failed: %v"
	workingDirectorySuffixTemplateConstant = "%s (in %s)"
	failureDetailSuffixTemplateConstant    = "%s: %s"
)

// CommandMessageFormatter renders human-readable command lifecycle messages for console logging.
type CommandMessageFormatter struct{}

// BuildStartedMessage describes a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return fmt.Sprintf(startedMessageTemplateConstant, formatter.describe(command))
}

// BuildSuccessMessage describes a command that exited cleanly.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return fmt.Sprintf(completedMessageTemplateConstant, formatter.describe(command))
}

// BuildFailureMessage describes a command that exited with a non-zero status.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	message := fmt.Sprintf(failedMessageTemplateConstant, formatter.describe(command), result.ExitCode)
	if detail := summarizeOutput(result); len(detail) > 0 {
		message = fmt.Sprintf(failureDetailSuffixTemplateConstant, message, detail)
	}
	return message
}

// BuildExecutionFailureMessage describes a command the runner could not execute.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, executionError error) string {
	return fmt.Sprintf(executionFailedMessageTemplateConstant, formatter.describe(command), executionError)
}

func (formatter CommandMessageFormatter) describe(command ShellCommand) string {
	parts := append([]string{string(command.Name)}, command.Details.Arguments...)
	description := strings.Join(parts, " ")
	workingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(workingDirectory) == 0 {
		return description
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, description, workingDirectory)
}
