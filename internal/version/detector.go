package version

import (
	"runtime/debug"
	"strings"
)

const (
	unknownVersionFallbackConstant = "unknown"
	buildInfoDevelVersionValue     = "devel"
	buildInfoDevelMarkerValue      = "(devel)"
	vcsRevisionSettingKeyConstant  = "vcs.revision"
	vcsModifiedSettingKeyConstant  = "vcs.modified"
	vcsModifiedTrueValueConstant   = "true"
	revisionVersionPrefixConstant  = "devel-"
	dirtyRevisionSuffixConstant    = "-dirty"
	shortRevisionLengthConstant    = 12
)

// injectedVersion is set at link time with -ldflags "-X github.com/tyemirov/initgraph/internal/version.injectedVersion=v1.0.0".
var injectedVersion string

// BuildInfoProvider exposes runtime build metadata.
type BuildInfoProvider interface {
	Read() (*debug.BuildInfo, bool)
}

// Dependencies describes the collaborators required for version detection.
type Dependencies struct {
	LinkedVersion     string
	BuildInfoProvider BuildInfoProvider
}

// Detector resolves the version of the running initgraph binary.
type Detector struct {
	linkedVersion     string
	buildInfoProvider BuildInfoProvider
}

// NewDetector constructs a Detector, falling back to the link-time version and runtime build info.
func NewDetector(dependencies Dependencies) *Detector {
	provider := dependencies.BuildInfoProvider
	if provider == nil {
		provider = runtimeBuildInfoProvider{}
	}

	linkedVersion := strings.TrimSpace(dependencies.LinkedVersion)
	if len(linkedVersion) == 0 {
		linkedVersion = strings.TrimSpace(injectedVersion)
	}

	return &Detector{linkedVersion: linkedVersion, buildInfoProvider: provider}
}

// Detect resolves the application version using the supplied dependencies.
func Detect(dependencies Dependencies) string {
	return NewDetector(dependencies).Version()
}

// Version prefers the link-time version, then the module version recorded by
// `go install`, then the VCS revision stamped into development builds.
func (detector *Detector) Version() string {
	if detector == nil {
		return unknownVersionFallbackConstant
	}
	if len(detector.linkedVersion) > 0 {
		return detector.linkedVersion
	}

	buildInfo, available := detector.buildInfoProvider.Read()
	if !available || buildInfo == nil {
		return unknownVersionFallbackConstant
	}
	if moduleVersion := releasedModuleVersion(buildInfo); len(moduleVersion) > 0 {
		return moduleVersion
	}
	if revisionVersion := vcsRevisionVersion(buildInfo); len(revisionVersion) > 0 {
		return revisionVersion
	}
	return unknownVersionFallbackConstant
}

func releasedModuleVersion(buildInfo *debug.BuildInfo) string {
	trimmedVersion := strings.TrimSpace(buildInfo.Main.Version)
	if len(trimmedVersion) == 0 {
		return ""
	}
	if strings.EqualFold(trimmedVersion, buildInfoDevelVersionValue) || trimmedVersion == buildInfoDevelMarkerValue {
		return ""
	}
	return trimmedVersion
}

func vcsRevisionVersion(buildInfo *debug.BuildInfo) string {
	revision := ""
	modified := false
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case vcsRevisionSettingKeyConstant:
			revision = strings.TrimSpace(setting.Value)
		case vcsModifiedSettingKeyConstant:
			modified = setting.Value == vcsModifiedTrueValueConstant
		}
	}
	if len(revision) == 0 {
		return ""
	}
	if len(revision) > shortRevisionLengthConstant {
		revision = revision[:shortRevisionLengthConstant]
	}
	if modified {
		revision += dirtyRevisionSuffixConstant
	}
	return revisionVersionPrefixConstant + revision
}

type runtimeBuildInfoProvider struct{}

func (runtimeBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}
