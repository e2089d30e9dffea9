package advisor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the advisory oracle configuration loaded from YAML. The API
// key itself never lives in the file, only the name of the environment
// variable holding it.
type Config struct {
	Endpoint           string        `yaml:"endpoint"`
	APIKeyEnv          string        `yaml:"api_key_env"`
	Timeout            time.Duration `yaml:"timeout"`
	IncludeLocalChecks bool          `yaml:"include_local_checks"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		APIKeyEnv:          "CLASSFLOW_ORACLE_KEY",
		Timeout:            30 * time.Second,
		IncludeLocalChecks: true,
	}
}

// LoadConfig reads a YAML config file, filling unset fields from the
// defaults.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("advisor: read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("advisor: parse config: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return cfg, nil
}

// UnmarshalYAML fills only the fields present in the document, so
// defaults survive a partial config. Timeout accepts Go duration syntax.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Endpoint           *string `yaml:"endpoint"`
		APIKeyEnv          *string `yaml:"api_key_env"`
		Timeout            *string `yaml:"timeout"`
		IncludeLocalChecks *bool   `yaml:"include_local_checks"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Endpoint != nil {
		c.Endpoint = *raw.Endpoint
	}
	if raw.APIKeyEnv != nil {
		c.APIKeyEnv = *raw.APIKeyEnv
	}
	if raw.IncludeLocalChecks != nil {
		c.IncludeLocalChecks = *raw.IncludeLocalChecks
	}
	if raw.Timeout != nil {
		d, err := time.ParseDuration(*raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", *raw.Timeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// ResolveAPIKey reads the key from the configured environment variable.
func (c Config) ResolveAPIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}
