package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/soarmock/soarmock/action"
)

// Input is the action request the platform hands a connector.
type Input struct {
	Action               string            `json:"action"`
	Config               map[string]any    `json:"config"`
	Identifier           string            `json:"identifier"`
	Parameters           []map[string]any  `json:"parameters"`
	EnvironmentVariables map[string]EnvVar `json:"environment_variables"`
}

// EnvVar is one entry of Input.EnvironmentVariables.
type EnvVar struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Handler runs one action for one parameter set.
type Handler interface {
	HandleAction(ctx context.Context, c *Connector, param map[string]any) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, c *Connector, param map[string]any) error

func (f HandlerFunc) HandleAction(ctx context.Context, c *Connector, param map[string]any) error {
	return f(ctx, c, param)
}

// Initializer is implemented by handlers that prepare before each parameter set.
type Initializer interface {
	Initialize(ctx context.Context, c *Connector) error
}

// Finalizer is implemented by handlers that clean up once all parameter sets ran.
type Finalizer interface {
	Finalize(ctx context.Context, c *Connector) error
}

// Canceller is implemented by handlers that react to a cancelled run.
type Canceller interface {
	HandleCancel(ctx context.Context, c *Connector)
}

// ErrorHandler is implemented by handlers that recover from their own
// failures. Returning nil continues with the next parameter set.
type ErrorHandler interface {
	HandleError(ctx context.Context, c *Connector, err error) error
}

// HandleAction decodes input and runs h once per parameter set, then returns
// the attached action results as JSON.
//
// A handler error stops the run unless h implements ErrorHandler and clears
// it. Cancelling ctx, or a handler returning context.Canceled, marks the run
// cancelled and skips the remaining parameter sets.
func (c *Connector) HandleAction(ctx context.Context, input []byte, h Handler) ([]byte, error) {
	var in Input
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("decoding action input: %w", err)
	}
	c.actionIdentifier = in.Identifier

	for _, param := range in.Parameters {
		c.currentParam = param

		err := ctx.Err()
		if err == nil {
			err = c.runOnce(ctx, h, param)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			c.cancelled = true
			if cc, ok := h.(Canceller); ok {
				cc.HandleCancel(ctx, c)
			}
			break
		}
		if eh, ok := h.(ErrorHandler); ok {
			err = eh.HandleError(ctx, c, err)
		}
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", in.Identifier, err)
		}
	}

	if f, ok := h.(Finalizer); ok {
		if err := f.Finalize(ctx, c); err != nil {
			return nil, fmt.Errorf("finalizing action %s: %w", in.Identifier, err)
		}
	}

	dicts := make([]action.Dict, 0, len(c.actionResults))
	for _, r := range c.actionResults {
		dicts = append(dicts, r.Dict())
	}
	out, err := json.Marshal(dicts)
	if err != nil {
		return nil, fmt.Errorf("encoding action results: %w", err)
	}

	c.logger.Info("action finished",
		"identifier", in.Identifier,
		"results", len(dicts),
		"cancelled", c.cancelled,
	)
	return out, nil
}

func (c *Connector) runOnce(ctx context.Context, h Handler, param map[string]any) error {
	if i, ok := h.(Initializer); ok {
		if err := i.Initialize(ctx, c); err != nil {
			return err
		}
	}
	return h.HandleAction(ctx, c, param)
}
