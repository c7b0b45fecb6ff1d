package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ezcar24/dealersync/internal/flagx"
)

// applyJSON overlays values from the JSON config file named by the -c or
// -config flag. No flag, no file, no overlay.
func (c *Config) applyJSON() error {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
