package taskrunner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/initgraph/pkg/initgraph"
)

type fakeExecutor struct {
	report initgraph.Report
	err    error
}

func (executor fakeExecutor) Run(context.Context, []initgraph.Task, RuntimeOptions) (initgraph.Report, error) {
	return executor.report, executor.err
}

func noopBody(context.Context, initgraph.DependencyProvider) (any, error) {
	return nil, nil
}

func TestSummaryExecutorPrintsSummaryLine(t *testing.T) {
	errorsBuffer := &bytes.Buffer{}
	executor := Resolve(func(Dependencies) Executor {
		return fakeExecutor{report: initgraph.Report{
			Status:  initgraph.RunStatusSuccess,
			Records: []initgraph.ExecutionRecord{{TaskID: "config", Outcome: initgraph.OutcomeSuccess, Started: true}},
		}}
	}, Dependencies{Errors: errorsBuffer, Output: &bytes.Buffer{}})

	_, err := executor.Run(context.Background(), nil, RuntimeOptions{})
	require.NoError(t, err)
	require.Equal(t, "Summary: tasks=1 succeeded=1 failed=0 skipped=0 duration_ms=0\n", errorsBuffer.String())
}

func TestSummaryExecutorPropagatesErrors(t *testing.T) {
	runError := errors.New("boom")
	errorsBuffer := &bytes.Buffer{}
	executor := Resolve(func(Dependencies) Executor {
		return fakeExecutor{err: runError}
	}, Dependencies{Errors: errorsBuffer})

	_, err := executor.Run(context.Background(), nil, RuntimeOptions{DisableSummary: true})
	require.ErrorIs(t, err, runError)
	require.Empty(t, errorsBuffer.String())
}

func TestResolveDefaultsToControllerWithDiagnostics(t *testing.T) {
	outputBuffer := &bytes.Buffer{}
	errorsBuffer := &bytes.Buffer{}
	executor := Resolve(nil, Dependencies{Logger: zap.NewNop(), Output: outputBuffer, Errors: errorsBuffer})

	tasks := []initgraph.Task{
		initgraph.NewTask("config", noopBody),
		initgraph.NewTask("database", noopBody, "config"),
	}
	report, err := executor.Run(context.Background(), tasks, RuntimeOptions{MaxConcurrency: 1, Diagnostics: true})
	require.NoError(t, err)
	require.True(t, report.Succeeded())

	output := outputBuffer.String()
	require.Contains(t, output, "config (success)\n└── database (success)\n")
	require.Contains(t, output, "TASK")
	require.True(t, strings.HasPrefix(errorsBuffer.String(), "Summary: tasks=2 succeeded=2"))
}

func TestResolveReportsConfigurationErrors(t *testing.T) {
	outputBuffer := &bytes.Buffer{}
	executor := Resolve(nil, Dependencies{Output: outputBuffer, Errors: &bytes.Buffer{}})

	_, err := executor.Run(context.Background(), []initgraph.Task{initgraph.NewTask("config", noopBody, "ghost")}, RuntimeOptions{Diagnostics: true})
	require.ErrorIs(t, err, initgraph.ErrMissingDependency)
	require.Empty(t, outputBuffer.String())
}

func TestLoadTasksBuildsManifest(t *testing.T) {
	manifestPath := filepath.Join(t.TempDir(), "tasks.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("tasks:\n  - id: region\n    action: env\n    with: {name: APP_REGION, default: eu}\n"), 0o600))

	dependencies, dependenciesError := BuildDependencies(DependenciesConfig{}, DependenciesOptions{Output: &bytes.Buffer{}, Errors: &bytes.Buffer{}})
	require.NoError(t, dependenciesError)

	tasks, loadError := LoadTasks(manifestPath, dependencies.Catalog)
	require.NoError(t, loadError)
	require.Len(t, tasks, 1)

	_, missingError := LoadTasks(filepath.Join(t.TempDir(), "absent.yaml"), dependencies.Catalog)
	require.ErrorIs(t, missingError, os.ErrNotExist)
	require.Contains(t, missingError.Error(), "taskrunner.manifest.load")
}
