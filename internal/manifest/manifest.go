// Package manifest loads declarative task graphs from YAML and converts them into initgraph tasks.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	manifestLoadErrorTemplateConstant      = "failed to load task manifest: %w"
	manifestParseErrorTemplateConstant     = "failed to parse task manifest: %w"
	manifestPathRequiredMessageConstant    = "task manifest path must be provided"
	manifestEmptyTasksMessageConstant      = "task manifest must define at least one task"
	manifestTasksSequenceMessageConstant   = "tasks block must be defined as a sequence of task entries"
	manifestTaskIdentifierMessageConstant  = "task entry missing id"
	manifestTaskActionMessageConstant      = "task entry missing action"
	manifestTaskPositionTemplateConstant   = "task entry %d: %w"
	manifestTaskIdentifiedTemplateConstant = "task %q: %w"
	manifestTasksKeyConstant               = "tasks"
)

var (
	// ErrManifestPathRequired indicates that no manifest path was supplied.
	ErrManifestPathRequired = errors.New(manifestPathRequiredMessageConstant)
	// ErrManifestEmpty indicates that the manifest declares no tasks.
	ErrManifestEmpty = errors.New(manifestEmptyTasksMessageConstant)
	// ErrTasksNotSequence indicates that the tasks block is a mapping or scalar.
	ErrTasksNotSequence = errors.New(manifestTasksSequenceMessageConstant)
	// ErrTaskIdentifierMissing indicates a task entry without an id.
	ErrTaskIdentifierMissing = errors.New(manifestTaskIdentifierMessageConstant)
	// ErrTaskActionMissing indicates a task entry without an action.
	ErrTaskActionMissing = errors.New(manifestTaskActionMessageConstant)
)

// Manifest describes the tasks declared in a manifest file.
type Manifest struct {
	Tasks []TaskDefinition
}

type manifestFile struct {
	Tasks []TaskDefinition `yaml:"tasks"`
}

// TaskDefinition associates a task identifier with an action and its declarative options.
type TaskDefinition struct {
	ID      string         `yaml:"id"`
	After   []string       `yaml:"after"`
	Class   string         `yaml:"class"`
	Action  string         `yaml:"action"`
	Options map[string]any `yaml:"with"`
}

// Load reads the manifest from disk and performs structural validation.
func Load(filePath string) (Manifest, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Manifest{}, ErrManifestPathRequired
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return Manifest{}, fmt.Errorf(manifestLoadErrorTemplateConstant, readError)
	}
	return Parse(contentBytes)
}

// Parse decodes manifest content. Dependency resolution is left to graph validation.
func Parse(contentBytes []byte) (Manifest, error) {
	if sequenceError := ensureTasksSequence(contentBytes); sequenceError != nil {
		return Manifest{}, fmt.Errorf(manifestParseErrorTemplateConstant, sequenceError)
	}

	var parsedManifest manifestFile
	if unmarshalError := yaml.Unmarshal(contentBytes, &parsedManifest); unmarshalError != nil {
		return Manifest{}, fmt.Errorf(manifestParseErrorTemplateConstant, unmarshalError)
	}

	if len(parsedManifest.Tasks) == 0 {
		return Manifest{}, ErrManifestEmpty
	}

	manifest := Manifest{Tasks: make([]TaskDefinition, 0, len(parsedManifest.Tasks))}
	for taskIndex, definition := range parsedManifest.Tasks {
		definition.ID = strings.TrimSpace(definition.ID)
		definition.Action = strings.ToLower(strings.TrimSpace(definition.Action))
		definition.Class = strings.TrimSpace(definition.Class)
		if len(definition.ID) == 0 {
			return Manifest{}, fmt.Errorf(manifestTaskPositionTemplateConstant, taskIndex+1, ErrTaskIdentifierMissing)
		}
		if len(definition.Action) == 0 {
			return Manifest{}, fmt.Errorf(manifestTaskIdentifiedTemplateConstant, definition.ID, ErrTaskActionMissing)
		}
		manifest.Tasks = append(manifest.Tasks, definition)
	}
	return manifest, nil
}

func ensureTasksSequence(contentBytes []byte) error {
	var tasksWrapper map[string]yaml.Node
	if unmarshalError := yaml.Unmarshal(contentBytes, &tasksWrapper); unmarshalError != nil {
		return unmarshalError
	}

	tasksNode, exists := tasksWrapper[manifestTasksKeyConstant]
	if !exists || tasksNode.Kind == 0 {
		return nil
	}
	if tasksNode.Kind == yaml.SequenceNode {
		return nil
	}
	return ErrTasksNotSequence
}
