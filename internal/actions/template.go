package actions

import (
	"context"
	"text/template"

	"github.com/tyemirov/initgraph/internal/manifest"
	"github.com/tyemirov/initgraph/pkg/initgraph"
)

const (
	templateTextOptionConstant = "text"
	templateTextLabelConstant  = "text"
)

type templateOptions struct {
	Text string `mapstructure:"text"`
}

// templateAction renders text over the values its dependencies produced.
type templateAction struct {
	parsed       *template.Template
	dependencies []initgraph.TaskID
}

func buildTemplateAction(declaration manifest.ActionDeclaration) (initgraph.Runnable, error) {
	var options templateOptions
	if decodeError := decodeOptions(declaration.Options, &options); decodeError != nil {
		return nil, decodeError
	}
	if missingError := requireOption(templateTextOptionConstant, options.Text); missingError != nil {
		return nil, missingError
	}

	parsed, parseError := parseTemplate(options.Text)
	if parseError != nil {
		return nil, parseError
	}
	return templateAction{parsed: parsed, dependencies: declaration.Dependencies}, nil
}

func (action templateAction) Execute(executionContext context.Context, provider initgraph.DependencyProvider) (any, error) {
	if cancelError := contextDone(executionContext); cancelError != nil {
		return nil, cancelError
	}
	rendered, renderError := templateList{action.parsed}.render(templateTextLabelConstant, dependencyData(provider, action.dependencies))
	if renderError != nil {
		return nil, renderError
	}
	return rendered[0], nil
}
