package actions

import (
	"context"
	"errors"
	"strings"

	"github.com/tyemirov/initgraph/internal/execshell"
	"github.com/tyemirov/initgraph/internal/manifest"
	"github.com/tyemirov/initgraph/pkg/initgraph"
)

const (
	commandProgramOptionConstant      = "program"
	commandArgumentsLabelConstant     = "args"
	commandStandardInputLabelConstant = "stdin"
)

// ErrExecutorNotConfigured indicates the command action has no shell executor.
var ErrExecutorNotConfigured = errors.New("command action requires a shell executor")

type commandOptions struct {
	Program          string            `mapstructure:"program"`
	Arguments        []string          `mapstructure:"args"`
	WorkingDirectory string            `mapstructure:"working_directory"`
	Environment      map[string]string `mapstructure:"env"`
	StandardInput    string            `mapstructure:"stdin"`
}

// commandAction runs an executable and stores its trimmed standard output.
// Arguments and standard input are templates over dependency results.
type commandAction struct {
	executor         execshell.Executor
	program          string
	arguments        templateList
	standardInput    templateList
	workingDirectory string
	environment      map[string]string
	dependencies     []initgraph.TaskID
}

func buildCommandAction(declaration manifest.ActionDeclaration, executor execshell.Executor) (initgraph.Runnable, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}

	var options commandOptions
	if decodeError := decodeOptions(declaration.Options, &options); decodeError != nil {
		return nil, decodeError
	}
	if missingError := requireOption(commandProgramOptionConstant, options.Program); missingError != nil {
		return nil, missingError
	}

	arguments, argumentsError := parseTemplateList(options.Arguments)
	if argumentsError != nil {
		return nil, argumentsError
	}
	standardInput, standardInputError := parseTemplateList([]string{options.StandardInput})
	if standardInputError != nil {
		return nil, standardInputError
	}

	return &commandAction{
		executor:         executor,
		program:          strings.TrimSpace(options.Program),
		arguments:        arguments,
		standardInput:    standardInput,
		workingDirectory: strings.TrimSpace(options.WorkingDirectory),
		environment:      options.Environment,
		dependencies:     declaration.Dependencies,
	}, nil
}

func (action *commandAction) Execute(executionContext context.Context, provider initgraph.DependencyProvider) (any, error) {
	data := dependencyData(provider, action.dependencies)

	arguments, argumentsError := action.arguments.render(commandArgumentsLabelConstant, data)
	if argumentsError != nil {
		return nil, argumentsError
	}
	standardInput, standardInputError := action.standardInput.render(commandStandardInputLabelConstant, data)
	if standardInputError != nil {
		return nil, standardInputError
	}

	details := execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     action.workingDirectory,
		EnvironmentVariables: action.environment,
	}
	if len(standardInput[0]) > 0 {
		details.StandardInput = []byte(standardInput[0])
	}

	result, executionError := action.executor.Execute(executionContext, execshell.ShellCommand{
		Name:    execshell.CommandName(action.program),
		Details: details,
	})
	if executionError != nil {
		return nil, executionError
	}

	output := strings.TrimSpace(result.StandardOutput)
	if len(output) == 0 {
		return nil, nil
	}
	return output, nil
}
