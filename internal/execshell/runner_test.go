package execshell_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/initgraph/internal/execshell"
)

func requireShell(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath("sh"); lookupError != nil {
		testInstance.Skip("sh not available")
	}
}

func TestOSCommandRunnerCapturesOutputAndExitCode(testInstance *testing.T) {
	requireShell(testInstance)
	runner := execshell.NewOSCommandRunner()

	result, runError := runner.Run(context.Background(), execshell.ShellCommand{
		Name: "sh",
		Details: execshell.CommandDetails{
			Arguments:            []string{"-c", "read line; echo \"$GREETING $line\"; echo oops >&2; exit 3"},
			EnvironmentVariables: map[string]string{"GREETING": "hello"},
			StandardInput:        []byte("world\n"),
		},
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 3, result.ExitCode)
	require.Equal(testInstance, "hello world\n", result.StandardOutput)
	require.Equal(testInstance, "oops\n", result.StandardError)
}

func TestOSCommandRunnerHonorsWorkingDirectory(testInstance *testing.T) {
	requireShell(testInstance)
	workingDirectory := testInstance.TempDir()

	result, runError := execshell.NewOSCommandRunner().Run(context.Background(), execshell.ShellCommand{
		Name:    "sh",
		Details: execshell.CommandDetails{Arguments: []string{"-c", "pwd -P"}, WorkingDirectory: workingDirectory},
	})
	require.NoError(testInstance, runError)
	require.Zero(testInstance, result.ExitCode)
	require.NotEmpty(testInstance, result.StandardOutput)
}

func TestOSCommandRunnerReportsContextCancellation(testInstance *testing.T) {
	requireShell(testInstance)
	executionContext, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, runError := execshell.NewOSCommandRunner().Run(executionContext, execshell.ShellCommand{
		Name:    "sh",
		Details: execshell.CommandDetails{Arguments: []string{"-c", "sleep 5"}},
	})
	require.ErrorIs(testInstance, runError, context.DeadlineExceeded)
}

func TestOSCommandRunnerReportsMissingExecutable(testInstance *testing.T) {
	_, runError := execshell.NewOSCommandRunner().Run(context.Background(), execshell.ShellCommand{Name: "initgraph-definitely-missing-binary"})
	require.Error(testInstance, runError)
}
