package docs_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tyemirov/initgraph/cmd/cli"
	"github.com/tyemirov/initgraph/internal/actions"
	"github.com/tyemirov/initgraph/internal/execshell"
	"github.com/tyemirov/initgraph/internal/manifest"
	"github.com/tyemirov/initgraph/pkg/initgraph"
)

const (
	documentationFileNameConstant    = "README.md"
	yamlFenceStartConstant           = "```yaml"
	yamlFenceEndConstant             = "```"
	manifestHeaderMarkerConstant     = "# tasks.yaml"
	configHeaderMarkerConstant       = "# config.yaml"
	parentDirectoryReferenceConstant = ".."
	expectedManifestTaskCount        = 5
	missingHeaderMessageTemplate     = "README example missing header marker %s"
	missingStartFenceMessageConstant = "README example missing yaml fence start"
	missingEndFenceMessageConstant   = "README example missing yaml fence end"
)

func readDocumentedSnippet(testInstance *testing.T, headerMarker string) string {
	testInstance.Helper()
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	contentBytes, readError := os.ReadFile(filepath.Join(workingDirectory, parentDirectoryReferenceConstant, documentationFileNameConstant))
	require.NoError(testInstance, readError)

	contentText := string(contentBytes)
	headerIndex := strings.Index(contentText, headerMarker)
	require.NotEqual(testInstance, -1, headerIndex, fmt.Sprintf(missingHeaderMessageTemplate, headerMarker))

	fenceStartIndex := strings.LastIndex(contentText[:headerIndex], yamlFenceStartConstant)
	require.NotEqual(testInstance, -1, fenceStartIndex, missingStartFenceMessageConstant)

	fenceEndRelativeIndex := strings.Index(contentText[headerIndex:], yamlFenceEndConstant)
	require.NotEqual(testInstance, -1, fenceEndRelativeIndex, missingEndFenceMessageConstant)

	return strings.TrimSpace(contentText[fenceStartIndex+len(yamlFenceStartConstant) : headerIndex+fenceEndRelativeIndex])
}

func TestReadmeManifestBuildsAndValidates(testInstance *testing.T) {
	snippet := readDocumentedSnippet(testInstance, manifestHeaderMarkerConstant)

	loaded, parseError := manifest.Parse([]byte(snippet))
	require.NoError(testInstance, parseError)
	require.Len(testInstance, loaded.Tasks, expectedManifestTaskCount)

	shellExecutor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner(), false)
	require.NoError(testInstance, executorError)

	tasks, buildError := manifest.BuildTasks(loaded, actions.NewCatalog(actions.Dependencies{Executor: shellExecutor}))
	require.NoError(testInstance, buildError)

	plan, validationError := initgraph.NewGraphValidator(initgraph.ClassMixingAllow).Validate(initgraph.NewRegistry(tasks))
	require.NoError(testInstance, validationError)
	require.Equal(testInstance, initgraph.TaskID("announce"), plan.Order[len(plan.Order)-1])

	_, rejectError := initgraph.NewGraphValidator(initgraph.ClassMixingReject).Validate(initgraph.NewRegistry(tasks))
	require.ErrorIs(testInstance, rejectError, initgraph.ErrIllegalDependency)
}

func TestReadmeConfigurationDecodes(testInstance *testing.T) {
	snippet := readDocumentedSnippet(testInstance, configHeaderMarkerConstant)

	var rawConfiguration map[string]any
	require.NoError(testInstance, yaml.Unmarshal([]byte(snippet), &rawConfiguration))

	var configuration cli.ApplicationConfiguration
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &configuration,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	require.NoError(testInstance, decoderError)
	require.NoError(testInstance, decoder.Decode(rawConfiguration))

	_, policyValid := initgraph.ParseClassMixingPolicy(configuration.Common.ClassMixing)
	require.True(testInstance, policyValid)
	require.Positive(testInstance, configuration.Common.MaxConcurrency)
	require.Positive(testInstance, configuration.Common.TaskTimeout)
}
