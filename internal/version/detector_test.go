package version_test

import (
	"fmt"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/initgraph/internal/version"
)

type stubBuildInfoProvider struct {
	info      *debug.BuildInfo
	available bool
}

func (provider stubBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	if !provider.available {
		return nil, false
	}
	return provider.info, true
}

func buildInfoWith(moduleVersion string, settings ...debug.BuildSetting) stubBuildInfoProvider {
	return stubBuildInfoProvider{
		info:      &debug.BuildInfo{Main: debug.Module{Version: moduleVersion}, Settings: settings},
		available: true,
	}
}

func TestDetectorVersionSources(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dependencies  version.Dependencies
		expectedValue string
	}{
		{
			name:          "linked_version_wins",
			dependencies:  version.Dependencies{LinkedVersion: " v2.0.0 ", BuildInfoProvider: buildInfoWith("v1.2.3")},
			expectedValue: "v2.0.0",
		},
		{
			name:          "installed_module_version",
			dependencies:  version.Dependencies{BuildInfoProvider: buildInfoWith("v1.2.3")},
			expectedValue: "v1.2.3",
		},
		{
			name: "development_build_revision",
			dependencies: version.Dependencies{BuildInfoProvider: buildInfoWith("(devel)",
				debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				debug.BuildSetting{Key: "vcs.modified", Value: "false"},
			)},
			expectedValue: "devel-0123456789ab",
		},
		{
			name: "modified_working_tree",
			dependencies: version.Dependencies{BuildInfoProvider: buildInfoWith("devel",
				debug.BuildSetting{Key: "vcs.revision", Value: "abc123"},
				debug.BuildSetting{Key: "vcs.modified", Value: "true"},
			)},
			expectedValue: "devel-abc123-dirty",
		},
		{
			name:          "development_build_without_vcs",
			dependencies:  version.Dependencies{BuildInfoProvider: buildInfoWith("(devel)")},
			expectedValue: "unknown",
		},
		{
			name:          "build_info_unavailable",
			dependencies:  version.Dependencies{BuildInfoProvider: stubBuildInfoProvider{}},
			expectedValue: "unknown",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedValue, version.Detect(testCase.dependencies))
		})
	}
}

func TestNilDetectorReportsUnknown(testInstance *testing.T) {
	var detector *version.Detector
	require.Equal(testInstance, "unknown", detector.Version())
}
