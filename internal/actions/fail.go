package actions

import (
	"context"
	"errors"
	"strings"

	"github.com/tyemirov/initgraph/internal/manifest"
	"github.com/tyemirov/initgraph/pkg/initgraph"
)

const failDefaultMessageConstant = "task configured to fail"

type failOptions struct {
	Message string `mapstructure:"message"`
}

type failAction struct {
	failure error
}

func buildFailAction(declaration manifest.ActionDeclaration) (initgraph.Runnable, error) {
	var options failOptions
	if decodeError := decodeOptions(declaration.Options, &options); decodeError != nil {
		return nil, decodeError
	}
	message := strings.TrimSpace(options.Message)
	if len(message) == 0 {
		message = failDefaultMessageConstant
	}
	return failAction{failure: errors.New(message)}, nil
}

func (action failAction) Execute(context.Context, initgraph.DependencyProvider) (any, error) {
	return nil, action.failure
}
