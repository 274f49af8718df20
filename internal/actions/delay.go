package actions

import (
	"context"
	"errors"
	"time"

	"github.com/tyemirov/initgraph/internal/manifest"
	"github.com/tyemirov/initgraph/pkg/initgraph"
)

// ErrNegativeDelay indicates a delay action was configured with a negative duration.
var ErrNegativeDelay = errors.New("delay duration must not be negative")

type delayOptions struct {
	Duration time.Duration `mapstructure:"duration"`
	Value    any           `mapstructure:"value"`
}

// delayAction waits for the configured duration unless the run is cancelled first.
type delayAction struct {
	duration time.Duration
	value    any
}

func buildDelayAction(declaration manifest.ActionDeclaration) (initgraph.Runnable, error) {
	var options delayOptions
	if decodeError := decodeOptions(declaration.Options, &options); decodeError != nil {
		return nil, decodeError
	}
	if options.Duration < 0 {
		return nil, ErrNegativeDelay
	}
	return delayAction{duration: options.Duration, value: options.Value}, nil
}

func (action delayAction) Execute(executionContext context.Context, _ initgraph.DependencyProvider) (any, error) {
	if action.duration == 0 {
		return action.value, contextDone(executionContext)
	}

	timer := time.NewTimer(action.duration)
	defer timer.Stop()

	select {
	case <-executionContext.Done():
		return nil, executionContext.Err()
	case <-timer.C:
		return action.value, nil
	}
}
