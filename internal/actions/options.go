package actions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-viper/mapstructure/v2"

	"github.com/tyemirov/initgraph/pkg/initgraph"
)

const (
	optionsDecodeErrorTemplateConstant  = "invalid options: %w"
	templateNameConstant                = "task"
	templateMissingKeyOptionConstant    = "missingkey=error"
	templateRenderErrorTemplateConstant = "render %s: %w"
)

// ErrOptionMissing indicates a required option was not supplied.
var ErrOptionMissing = errors.New("required option missing")

func decodeOptions(options map[string]any, target any) error {
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if decoderError != nil {
		return decoderError
	}
	if decodeError := decoder.Decode(options); decodeError != nil {
		return fmt.Errorf(optionsDecodeErrorTemplateConstant, decodeError)
	}
	return nil
}

// dependencyData collects the values the declared dependencies stored, keyed by task id.
func dependencyData(provider initgraph.DependencyProvider, dependencies []initgraph.TaskID) map[string]any {
	data := make(map[string]any, len(dependencies))
	if provider == nil {
		return data
	}
	for _, dependency := range dependencies {
		if value, found := provider.Lookup(dependency); found {
			data[string(dependency)] = value
		}
	}
	return data
}

func parseTemplate(rawTemplate string) (*template.Template, error) {
	return template.New(templateNameConstant).Option(templateMissingKeyOptionConstant).Parse(rawTemplate)
}

func renderTemplate(parsed *template.Template, data map[string]any) (string, error) {
	var buffer bytes.Buffer
	if executeError := parsed.Execute(&buffer, data); executeError != nil {
		return "", executeError
	}
	return buffer.String(), nil
}

// templateList parses each entry once at build time so syntax errors surface before the run.
type templateList []*template.Template

func parseTemplateList(rawTemplates []string) (templateList, error) {
	parsed := make(templateList, 0, len(rawTemplates))
	for _, rawTemplate := range rawTemplates {
		entry, parseError := parseTemplate(rawTemplate)
		if parseError != nil {
			return nil, parseError
		}
		parsed = append(parsed, entry)
	}
	return parsed, nil
}

func (templates templateList) render(label string, data map[string]any) ([]string, error) {
	rendered := make([]string, 0, len(templates))
	for _, entry := range templates {
		value, renderError := renderTemplate(entry, data)
		if renderError != nil {
			return nil, fmt.Errorf(templateRenderErrorTemplateConstant, label, renderError)
		}
		rendered = append(rendered, value)
	}
	return rendered, nil
}

func requireOption(name string, value string) error {
	if len(strings.TrimSpace(value)) == 0 {
		return fmt.Errorf("%w: %s", ErrOptionMissing, name)
	}
	return nil
}

func contextDone(executionContext context.Context) error {
	if executionContext == nil {
		return nil
	}
	return executionContext.Err()
}
