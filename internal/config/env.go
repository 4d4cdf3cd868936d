package config

import "fmt"

// LoadEnv overlays settings from HDFS_* variables. lookup is usually
// os.LookupEnv; empty values are ignored.
func (c *Config) LoadEnv(lookup func(string) (string, bool)) error {
	for _, opt := range options {
		v, ok := lookup(opt.env())
		if !ok || v == "" {
			continue
		}
		if err := opt.set(c, v); err != nil {
			return fmt.Errorf("config: %s: %w", opt.env(), err)
		}
	}
	return nil
}
