package manifest

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tyemirov/initgraph/pkg/initgraph"
)

const (
	unknownActionMessageConstant      = "unknown action"
	invalidClassMessageConstant       = "unsupported task class"
	unknownActionTemplateConstant     = "task %q: %w %q (available: %s)"
	invalidClassTemplateConstant      = "task %q: %w %q"
	actionBuildFailedTemplateConstant = "task %q: action %s: %w"
)

var (
	// ErrUnknownAction indicates a task names an action the catalog does not provide.
	ErrUnknownAction = errors.New(unknownActionMessageConstant)
	// ErrInvalidClass indicates a task declares an unsupported class.
	ErrInvalidClass = errors.New(invalidClassMessageConstant)
)

// ActionDeclaration is the input an action builder receives for one task.
type ActionDeclaration struct {
	TaskID       initgraph.TaskID
	Dependencies []initgraph.TaskID
	Options      map[string]any
}

// ActionBuilder turns a declaration into a runnable task body.
type ActionBuilder interface {
	Build(declaration ActionDeclaration) (initgraph.Runnable, error)
}

// ActionBuilderFunc adapts a function to ActionBuilder.
type ActionBuilderFunc func(declaration ActionDeclaration) (initgraph.Runnable, error)

// Build calls the wrapped function.
func (function ActionBuilderFunc) Build(declaration ActionDeclaration) (initgraph.Runnable, error) {
	return function(declaration)
}

// ActionCatalog resolves action names to builders.
type ActionCatalog interface {
	Builder(actionName string) (ActionBuilder, bool)
	Names() []string
}

// BuildTasks converts manifest definitions into initgraph tasks in declaration order.
func BuildTasks(manifest Manifest, catalog ActionCatalog) ([]initgraph.Task, error) {
	tasks := make([]initgraph.Task, 0, len(manifest.Tasks))
	for _, definition := range manifest.Tasks {
		class, classValid := initgraph.ParseTaskClass(definition.Class)
		if !classValid {
			return nil, fmt.Errorf(invalidClassTemplateConstant, definition.ID, ErrInvalidClass, definition.Class)
		}

		builder, found := catalog.Builder(definition.Action)
		if !found {
			availableActions := append([]string(nil), catalog.Names()...)
			sort.Strings(availableActions)
			return nil, fmt.Errorf(unknownActionTemplateConstant, definition.ID, ErrUnknownAction, definition.Action, strings.Join(availableActions, ", "))
		}

		dependencies := make([]initgraph.TaskID, 0, len(definition.After))
		for _, dependency := range definition.After {
			dependencies = append(dependencies, initgraph.TaskID(strings.TrimSpace(dependency)))
		}

		identifier := initgraph.TaskID(definition.ID)
		body, buildError := builder.Build(ActionDeclaration{
			TaskID:       identifier,
			Dependencies: dependencies,
			Options:      definition.Options,
		})
		if buildError != nil {
			return nil, fmt.Errorf(actionBuildFailedTemplateConstant, definition.ID, definition.Action, buildError)
		}

		tasks = append(tasks, initgraph.Task{
			ID:           identifier,
			Dependencies: dependencies,
			Class:        class,
			Body:         body,
		})
	}
	return tasks, nil
}
