// Package devseed loads seed files describing the initial content of the
// in-memory WebHDFS backend used by the sandbox and mock runtime mode.
package devseed

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Entry is one seeded path. Exactly one of Content or Base64 is used for
// files; Dir entries carry no data.
type Entry struct {
	Path       string `yaml:"path" json:"path"`
	Dir        bool   `yaml:"dir" json:"dir"`
	Content    string `yaml:"content" json:"content"`
	Base64     string `yaml:"base64" json:"base64"`
	Permission string `yaml:"permission" json:"permission"`
}

// Data returns the decoded file payload.
func (e Entry) Data() ([]byte, error) {
	if e.Base64 != "" {
		data, err := base64.StdEncoding.DecodeString(e.Base64)
		if err != nil {
			return nil, fmt.Errorf("devseed: decode base64 for %s: %w", e.Path, err)
		}
		return data, nil
	}
	return []byte(e.Content), nil
}

// Load reads a YAML or JSON seed file containing a list of entries.
func Load(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes seed entries from YAML or JSON.
func Parse(raw []byte) ([]Entry, error) {
	var entries []Entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("devseed: decode: %w", err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return nil, fmt.Errorf("devseed: entry %d missing path", i)
		}
		if e.Dir && (e.Content != "" || e.Base64 != "") {
			return nil, fmt.Errorf("devseed: directory %s cannot carry content", e.Path)
		}
	}
	return entries, nil
}
