package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"
)

// LoadFile overlays settings from a YAML or JSON file. Keys are the snake
// case option names, e.g. namenode_url or max_wait. Unknown keys are errors.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		opt, ok := lookupOption(k)
		if !ok {
			return fmt.Errorf("config: %s: unknown key %q", path, k)
		}
		v := values[k]
		if v == nil {
			continue
		}
		if err := opt.set(c, fmt.Sprint(v)); err != nil {
			return fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return nil
}
