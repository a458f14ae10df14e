package commons

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"moonbounce/internal/config"
)

// LoadConfigFile overlays a mounted yaml file on top of an already loaded
// configuration. Deployments without a file keep the env-derived values.
func LoadConfigFile(path string, cfg *config.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}
