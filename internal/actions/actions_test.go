package actions_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/initgraph/internal/actions"
	"github.com/tyemirov/initgraph/internal/execshell"
	"github.com/tyemirov/initgraph/internal/manifest"
	"github.com/tyemirov/initgraph/pkg/initgraph"
)

type recordingCommandRunner struct {
	result   execshell.ExecutionResult
	commands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.commands = append(runner.commands, command)
	return runner.result, nil
}

func newCatalog(testInstance *testing.T, runner execshell.CommandRunner, environment map[string]string) *actions.Catalog {
	testInstance.Helper()
	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), runner, false)
	require.NoError(testInstance, executorError)
	return actions.NewCatalog(actions.Dependencies{
		Executor: executor,
		EnvironmentLookup: func(name string) (string, bool) {
			value, found := environment[name]
			return value, found
		},
	})
}

func buildAction(testInstance *testing.T, catalog *actions.Catalog, actionName string, declaration manifest.ActionDeclaration) (initgraph.Runnable, error) {
	testInstance.Helper()
	builder, found := catalog.Builder(actionName)
	require.True(testInstance, found)
	return builder.Build(declaration)
}

func providerWith(testInstance *testing.T, values map[initgraph.TaskID]any) initgraph.DependencyProvider {
	testInstance.Helper()
	store := initgraph.NewResultStore()
	identifiers := make([]initgraph.TaskID, 0, len(values))
	for identifier, value := range values {
		require.NoError(testInstance, store.Store(identifier, value))
		identifiers = append(identifiers, identifier)
	}
	return store.ProviderFor(identifiers)
}

func TestCatalogListsBuiltInActions(testInstance *testing.T) {
	catalog := actions.NewCatalog(actions.Dependencies{})
	require.Equal(testInstance, []string{"command", "delay", "env", "fail", "template"}, catalog.Names())

	_, found := catalog.Builder("teleport")
	require.False(testInstance, found)
}

func TestCommandActionRendersArgumentsAndTrimsOutput(testInstance *testing.T) {
	runner := &recordingCommandRunner{result: execshell.ExecutionResult{StandardOutput: "  migrated  \n"}}
	catalog := newCatalog(testInstance, runner, nil)

	body, buildError := buildAction(testInstance, catalog, actions.ActionCommand, manifest.ActionDeclaration{
		TaskID:       "migrate",
		Dependencies: []initgraph.TaskID{"database"},
		Options: map[string]any{
			"program":           "migrate",
			"args":              []any{"--url", "{{ .database }}"},
			"working_directory": "/srv",
			"env":               map[string]any{"MODE": "up"},
			"stdin":             "{{ .database }}",
		},
	})
	require.NoError(testInstance, buildError)

	value, executeError := body.Execute(context.Background(), providerWith(testInstance, map[initgraph.TaskID]any{"database": "postgres://db"}))
	require.NoError(testInstance, executeError)
	require.Equal(testInstance, "migrated", value)

	require.Len(testInstance, runner.commands, 1)
	command := runner.commands[0]
	require.Equal(testInstance, execshell.CommandName("migrate"), command.Name)
	require.Equal(testInstance, []string{"--url", "postgres://db"}, command.Details.Arguments)
	require.Equal(testInstance, "/srv", command.Details.WorkingDirectory)
	require.Equal(testInstance, map[string]string{"MODE": "up"}, command.Details.EnvironmentVariables)
	require.Equal(testInstance, []byte("postgres://db"), command.Details.StandardInput)
}

func TestCommandActionReportsNonZeroExit(testInstance *testing.T) {
	runner := &recordingCommandRunner{result: execshell.ExecutionResult{StandardError: "connection refused", ExitCode: 2}}
	catalog := newCatalog(testInstance, runner, nil)

	body, buildError := buildAction(testInstance, catalog, actions.ActionCommand, manifest.ActionDeclaration{
		TaskID:  "probe",
		Options: map[string]any{"program": "probe"},
	})
	require.NoError(testInstance, buildError)

	value, executeError := body.Execute(context.Background(), nil)
	require.Nil(testInstance, value)
	var failedError execshell.CommandFailedError
	require.True(testInstance, errors.As(executeError, &failedError))
	require.Equal(testInstance, 2, failedError.Result.ExitCode)
}

func TestCommandActionRequiresExecutor(testInstance *testing.T) {
	catalog := actions.NewCatalog(actions.Dependencies{})
	_, buildError := buildAction(testInstance, catalog, actions.ActionCommand, manifest.ActionDeclaration{Options: map[string]any{"program": "true"}})
	require.ErrorIs(testInstance, buildError, actions.ErrExecutorNotConfigured)
}

func TestActionBuildersValidateOptions(testInstance *testing.T) {
	catalog := newCatalog(testInstance, &recordingCommandRunner{}, nil)

	testCases := []struct {
		name          string
		action        string
		options       map[string]any
		expectedError error
	}{
		{name: "command_without_program", action: actions.ActionCommand, options: map[string]any{"args": []any{"x"}}, expectedError: actions.ErrOptionMissing},
		{name: "command_unknown_option", action: actions.ActionCommand, options: map[string]any{"program": "x", "shell": true}},
		{name: "command_bad_template", action: actions.ActionCommand, options: map[string]any{"program": "x", "args": []any{"{{ .broken"}}},
		{name: "template_without_text", action: actions.ActionTemplate, expectedError: actions.ErrOptionMissing},
		{name: "env_without_name", action: actions.ActionEnv, expectedError: actions.ErrOptionMissing},
		{name: "delay_negative", action: actions.ActionDelay, options: map[string]any{"duration": "-1s"}, expectedError: actions.ErrNegativeDelay},
		{name: "delay_invalid_duration", action: actions.ActionDelay, options: map[string]any{"duration": "soon"}},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			_, buildError := buildAction(testInstance, catalog, testCase.action, manifest.ActionDeclaration{TaskID: "task", Options: testCase.options})
			require.Error(testInstance, buildError)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, buildError, testCase.expectedError)
			}
		})
	}
}

func TestTemplateActionRendersDependencyResults(testInstance *testing.T) {
	catalog := newCatalog(testInstance, &recordingCommandRunner{}, nil)

	body, buildError := buildAction(testInstance, catalog, actions.ActionTemplate, manifest.ActionDeclaration{
		TaskID:       "dsn",
		Dependencies: []initgraph.TaskID{"host", "port"},
		Options:      map[string]any{"text": "postgres://{{ .host }}:{{ .port }}/app"},
	})
	require.NoError(testInstance, buildError)

	value, executeError := body.Execute(context.Background(), providerWith(testInstance, map[initgraph.TaskID]any{"host": "db", "port": 5432}))
	require.NoError(testInstance, executeError)
	require.Equal(testInstance, "postgres://db:5432/app", value)

	_, missingError := body.Execute(context.Background(), providerWith(testInstance, map[initgraph.TaskID]any{"host": "db"}))
	require.Error(testInstance, missingError)
}

func TestEnvironmentActionResolvesValues(testInstance *testing.T) {
	catalog := newCatalog(testInstance, &recordingCommandRunner{}, map[string]string{"APP_REGION": "eu", "APP_EMPTY": ""})

	testCases := []struct {
		name          string
		options       map[string]any
		expectedValue any
		expectedError error
	}{
		{name: "present", options: map[string]any{"name": "APP_REGION"}, expectedValue: "eu"},
		{name: "default_when_unset", options: map[string]any{"name": "APP_ZONE", "default": "a"}, expectedValue: "a"},
		{name: "default_when_empty", options: map[string]any{"name": "APP_EMPTY", "default": "b"}, expectedValue: "b"},
		{name: "optional_unset", options: map[string]any{"name": "APP_ZONE"}},
		{name: "required_unset", options: map[string]any{"name": "APP_ZONE", "required": "true"}, expectedError: actions.ErrEnvironmentVariableMissing},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			body, buildError := buildAction(testInstance, catalog, actions.ActionEnv, manifest.ActionDeclaration{TaskID: "env", Options: testCase.options})
			require.NoError(testInstance, buildError)

			value, executeError := body.Execute(context.Background(), nil)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, executeError, testCase.expectedError)
				return
			}
			require.NoError(testInstance, executeError)
			require.Equal(testInstance, testCase.expectedValue, value)
		})
	}
}

func TestDelayActionHonorsCancellation(testInstance *testing.T) {
	catalog := newCatalog(testInstance, &recordingCommandRunner{}, nil)

	quick, quickError := buildAction(testInstance, catalog, actions.ActionDelay, manifest.ActionDeclaration{Options: map[string]any{"duration": "1ms", "value": "warm"}})
	require.NoError(testInstance, quickError)
	value, executeError := quick.Execute(context.Background(), nil)
	require.NoError(testInstance, executeError)
	require.Equal(testInstance, "warm", value)

	slow, slowError := buildAction(testInstance, catalog, actions.ActionDelay, manifest.ActionDeclaration{Options: map[string]any{"duration": time.Hour}})
	require.NoError(testInstance, slowError)
	executionContext, cancel := context.WithCancel(context.Background())
	cancel()
	_, cancelError := slow.Execute(executionContext, nil)
	require.ErrorIs(testInstance, cancelError, context.Canceled)
}

func TestFailActionReturnsConfiguredError(testInstance *testing.T) {
	catalog := newCatalog(testInstance, &recordingCommandRunner{}, nil)

	body, buildError := buildAction(testInstance, catalog, actions.ActionFail, manifest.ActionDeclaration{Options: map[string]any{"message": "license expired"}})
	require.NoError(testInstance, buildError)
	_, executeError := body.Execute(context.Background(), nil)
	require.EqualError(testInstance, executeError, "license expired")
}

func TestCatalogDrivesManifestRun(testInstance *testing.T) {
	content := []byte(`
tasks:
  - id: region
    action: env
    with: {name: APP_REGION}
  - id: warmup
    action: delay
    with: {duration: 1ms}
  - id: endpoint
    after: [region, warmup]
    action: template
    with:
      text: "https://{{ .region }}.example.com"
  - id: broken
    after: [endpoint]
    action: fail
  - id: never
    after: [broken]
    action: template
    with: {text: unreachable}
`)
	loaded, parseError := manifest.Parse(content)
	require.NoError(testInstance, parseError)

	tasks, buildError := manifest.BuildTasks(loaded, newCatalog(testInstance, &recordingCommandRunner{}, map[string]string{"APP_REGION": "eu"}))
	require.NoError(testInstance, buildError)

	report, runError := initgraph.NewController(tasks).Run(context.Background())
	require.ErrorIs(testInstance, runError, initgraph.ErrTaskFailed)
	require.Len(testInstance, report.Failures, 1)
	require.Equal(testInstance, initgraph.TaskID("broken"), report.Failures[0].TaskID)

	outcomes := map[initgraph.TaskID]initgraph.Outcome{}
	for _, record := range report.Records {
		outcomes[record.TaskID] = record.Outcome
	}
	require.Equal(testInstance, initgraph.OutcomeSuccess, outcomes["endpoint"])
	require.Equal(testInstance, initgraph.OutcomeCancelled, outcomes["never"])
}
