package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tyemirov/initgraph/internal/manifest"
	"github.com/tyemirov/initgraph/pkg/initgraph"
)

const environmentNameOptionConstant = "name"

// ErrEnvironmentVariableMissing indicates a required environment variable is unset or empty.
var ErrEnvironmentVariableMissing = errors.New("environment variable not set")

type environmentOptions struct {
	Name     string `mapstructure:"name"`
	Required bool   `mapstructure:"required"`
	Default  string `mapstructure:"default"`
}

type environmentAction struct {
	name     string
	required bool
	fallback string
	lookup   EnvironmentLookup
}

func buildEnvironmentAction(declaration manifest.ActionDeclaration, lookup EnvironmentLookup) (initgraph.Runnable, error) {
	var options environmentOptions
	if decodeError := decodeOptions(declaration.Options, &options); decodeError != nil {
		return nil, decodeError
	}
	if missingError := requireOption(environmentNameOptionConstant, options.Name); missingError != nil {
		return nil, missingError
	}
	return environmentAction{
		name:     strings.TrimSpace(options.Name),
		required: options.Required,
		fallback: options.Default,
		lookup:   lookup,
	}, nil
}

// Execute returns the variable value, the default when it is unset, or nothing.
func (action environmentAction) Execute(executionContext context.Context, _ initgraph.DependencyProvider) (any, error) {
	if cancelError := contextDone(executionContext); cancelError != nil {
		return nil, cancelError
	}

	value, found := action.lookup(action.name)
	if found && len(value) > 0 {
		return value, nil
	}
	if action.required {
		return nil, fmt.Errorf("%w: %s", ErrEnvironmentVariableMissing, action.name)
	}
	if len(action.fallback) == 0 {
		return nil, nil
	}
	return action.fallback, nil
}
