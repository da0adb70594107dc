package connector

import (
	"log/slog"
	"maps"
	"strconv"
)

// Option configures a Connector.
type Option func(*Connector)

// WithConfig sets the asset configuration. The map is copied.
func WithConfig(config map[string]any) Option {
	return func(c *Connector) {
		c.config = maps.Clone(config)
		if c.config == nil {
			c.config = map[string]any{}
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAssetID sets the asset id reported to the connector.
func WithAssetID(id string) Option {
	return func(c *Connector) {
		c.assetID = id
	}
}

// WithAppID sets the app id reported to the connector.
func WithAppID(id string) Option {
	return func(c *Connector) {
		c.appID = id
	}
}

// WithContainer sets the current container and its details.
func WithContainer(id int, info map[string]any) Option {
	return func(c *Connector) {
		c.containerID = id
		c.containerInfo[strconv.Itoa(id)] = info
	}
}

// WithPollNow marks the run as a manual poll.
func WithPollNow(poll bool) Option {
	return func(c *Connector) {
		c.pollNow = poll
	}
}

// WithStateDir places the state directory under parent instead of the
// system temp directory.
func WithStateDir(parent string) Option {
	return func(c *Connector) {
		c.parent = parent
	}
}
