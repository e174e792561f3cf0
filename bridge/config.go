package bridge

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultName           = "ds9samp"
	defaultGetMType       = "ds9.get"
	defaultSetMType       = "ds9.set"
	defaultTimeoutSeconds = 10
)

// EnvHubURL names the environment variable overriding the hub URL.
const EnvHubURL = "DS9SAMP_HUB"

// Config holds initialization parameters for a bridge instance.
type Config struct {
	// HubURL is the WebSocket endpoint of the hub. Ignored when a
	// transport is supplied directly via WithTransport.
	HubURL string `yaml:"hub_url,omitempty"`

	// Name is the human label this bridge declares in its hub metadata.
	Name string `yaml:"name,omitempty"`

	// GetMType and SetMType are the capability pair the target peer must
	// advertise. Defaults target DS9.
	GetMType string `yaml:"get_mtype,omitempty"`
	SetMType string `yaml:"set_mtype,omitempty"`

	// TimeoutSeconds bounds each call; 0 blocks until a reply arrives,
	// which pointer-driven commands such as iexam require.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults. The hub URL is
// taken from the DS9SAMP_HUB environment variable when set.
func DefaultConfig() Config {
	return Config{
		HubURL:         os.Getenv(EnvHubURL),
		Name:           defaultName,
		GetMType:       defaultGetMType,
		SetMType:       defaultSetMType,
		TimeoutSeconds: defaultTimeoutSeconds,
	}
}

// Merge applies non-zero values from source into c. A TimeoutSeconds of -1
// in source means "disable the timeout" and merges as 0.
func (c *Config) Merge(source *Config) {
	if source.HubURL != "" {
		c.HubURL = source.HubURL
	}
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.GetMType != "" {
		c.GetMType = source.GetMType
	}
	if source.SetMType != "" {
		c.SetMType = source.SetMType
	}
	if source.TimeoutSeconds > 0 {
		c.TimeoutSeconds = source.TimeoutSeconds
	} else if source.TimeoutSeconds < 0 {
		c.TimeoutSeconds = 0
	}
}

// CallTimeout returns the configured per-call deadline; zero means block
// indefinitely.
func (c *Config) CallTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig reads a YAML config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
