// Package actions provides the built-in task bodies a manifest can reference by name.
package actions

import (
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/tyemirov/initgraph/internal/execshell"
	"github.com/tyemirov/initgraph/internal/manifest"
	"github.com/tyemirov/initgraph/pkg/initgraph"
)

// Built-in action names.
const (
	ActionCommand  = "command"
	ActionDelay    = "delay"
	ActionTemplate = "template"
	ActionEnv      = "env"
	ActionFail     = "fail"
)

// EnvironmentLookup resolves environment variables.
type EnvironmentLookup func(name string) (string, bool)

// Dependencies describes the collaborators shared by built-in actions.
type Dependencies struct {
	Executor          execshell.Executor
	Logger            *zap.Logger
	EnvironmentLookup EnvironmentLookup
}

// Catalog maps action names to builders.
type Catalog struct {
	builders map[string]manifest.ActionBuilder
}

var _ manifest.ActionCatalog = (*Catalog)(nil)

// NewCatalog registers every built-in action.
func NewCatalog(dependencies Dependencies) *Catalog {
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.EnvironmentLookup == nil {
		dependencies.EnvironmentLookup = os.LookupEnv
	}

	catalog := &Catalog{builders: map[string]manifest.ActionBuilder{}}
	catalog.Register(ActionCommand, manifest.ActionBuilderFunc(func(declaration manifest.ActionDeclaration) (initgraph.Runnable, error) {
		return buildCommandAction(declaration, dependencies.Executor)
	}))
	catalog.Register(ActionDelay, manifest.ActionBuilderFunc(buildDelayAction))
	catalog.Register(ActionTemplate, manifest.ActionBuilderFunc(buildTemplateAction))
	catalog.Register(ActionEnv, manifest.ActionBuilderFunc(func(declaration manifest.ActionDeclaration) (initgraph.Runnable, error) {
		return buildEnvironmentAction(declaration, dependencies.EnvironmentLookup)
	}))
	catalog.Register(ActionFail, manifest.ActionBuilderFunc(buildFailAction))
	return catalog
}

// Register adds or replaces a builder.
func (catalog *Catalog) Register(actionName string, builder manifest.ActionBuilder) {
	if builder == nil {
		return
	}
	catalog.builders[actionName] = builder
}

// Builder returns the builder registered under the name.
func (catalog *Catalog) Builder(actionName string) (manifest.ActionBuilder, bool) {
	builder, found := catalog.builders[actionName]
	return builder, found
}

// Names lists the registered action names in sorted order.
func (catalog *Catalog) Names() []string {
	names := make([]string, 0, len(catalog.builders))
	for name := range catalog.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
