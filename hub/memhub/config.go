package memhub

import "log/slog"

// Config defines configuration for an in-process hub instance.
type Config struct {
	// Hub identity, used only for logging.
	Name string

	// Delivery queue depth per connected client.
	ChannelBufferSize int

	// Observability
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:              "memhub",
		ChannelBufferSize: 100,
		Logger:            slog.Default(),
	}
}

func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.ChannelBufferSize > 0 {
		c.ChannelBufferSize = source.ChannelBufferSize
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}
}
