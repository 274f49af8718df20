package cli_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/initgraph/cmd/cli"
)

const (
	testConfigurationFileNameConstant          = "config.yaml"
	testConfigurationSearchPathEnvironmentName = "INITGRAPH_CONFIG_SEARCH_PATH"
	testRunCommandNameConstant                 = "run"
)

func TestApplicationInitializeConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name                  string
		configurationContent  string
		environment           map[string]string
		expectedConfiguration cli.ApplicationCommonConfiguration
		expectConfigFile      bool
	}{
		{
			name: "EmbeddedDefaults",
			expectedConfiguration: cli.ApplicationCommonConfiguration{
				LogLevel:    "error",
				LogFormat:   "structured",
				ClassMixing: "allow",
			},
		},
		{
			name:                 "ConfigurationFile",
			configurationContent: "common:\n  log_level: info\n  log_format: console\n  max_concurrency: 4\n  task_timeout: 2s\n  class_mixing: reject\n  metrics_address: 127.0.0.1:9400\n  diagnostics: true\n",
			expectedConfiguration: cli.ApplicationCommonConfiguration{
				LogLevel:       "info",
				LogFormat:      "console",
				MaxConcurrency: 4,
				TaskTimeout:    2 * time.Second,
				ClassMixing:    "reject",
				MetricsAddress: "127.0.0.1:9400",
				Diagnostics:    true,
			},
			expectConfigFile: true,
		},
		{
			name:                 "EnvironmentOverridesFile",
			configurationContent: "common:\n  max_concurrency: 4\n",
			environment: map[string]string{
				"INITGRAPH_COMMON_MAX_CONCURRENCY": "9",
				"INITGRAPH_COMMON_TASK_TIMEOUT":    "1m",
			},
			expectedConfiguration: cli.ApplicationCommonConfiguration{
				LogLevel:       "error",
				LogFormat:      "structured",
				MaxConcurrency: 9,
				TaskTimeout:    time.Minute,
				ClassMixing:    "allow",
			},
			expectConfigFile: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			configurationDirectory := testInstance.TempDir()
			testInstance.Setenv(testConfigurationSearchPathEnvironmentName, configurationDirectory)
			for environmentName, environmentValue := range testCase.environment {
				testInstance.Setenv(environmentName, environmentValue)
			}

			configurationPath := filepath.Join(configurationDirectory, testConfigurationFileNameConstant)
			if len(testCase.configurationContent) > 0 {
				require.NoError(testInstance, os.WriteFile(configurationPath, []byte(testCase.configurationContent), 0o600))
			}

			application := cli.NewApplication()
			require.NoError(testInstance, application.InitializeForCommand(testRunCommandNameConstant))
			require.Equal(testInstance, testCase.expectedConfiguration, application.Configuration().Common)

			if testCase.expectConfigFile {
				require.Equal(testInstance, configurationPath, application.ConfigFileUsed())
			} else {
				require.Empty(testInstance, application.ConfigFileUsed())
			}
		})
	}
}

func TestApplicationRejectsUnsupportedLogLevel(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	testInstance.Setenv(testConfigurationSearchPathEnvironmentName, configurationDirectory)
	require.NoError(testInstance, os.WriteFile(
		filepath.Join(configurationDirectory, testConfigurationFileNameConstant),
		[]byte("common:\n  log_level: chatty\n"),
		0o600,
	))

	application := cli.NewApplication()
	initializationError := application.InitializeForCommand(testRunCommandNameConstant)
	require.Error(testInstance, initializationError)
	require.Contains(testInstance, initializationError.Error(), "unable to create logger")
}

func TestEmbeddedDefaultConfigurationIsYAML(testInstance *testing.T) {
	content, contentType := cli.EmbeddedDefaultConfiguration()
	require.Equal(testInstance, "yaml", contentType)
	require.Contains(testInstance, string(content), "class_mixing: allow")

	content[0] = '#'
	again, _ := cli.EmbeddedDefaultConfiguration()
	require.NotEqual(testInstance, content[0], again[0])
}
