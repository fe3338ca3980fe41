package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseKeyPath splits a dotted key such as "gateway.auth.token" into its
// segments.
func ParseKeyPath(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ConfigError{Message: "empty config key"}
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &ConfigError{Message: "config key " + raw + " contains an empty segment"}
		}
	}
	return parts, nil
}

// Lookup walks nested maps along path.
func Lookup(root map[string]any, path []string) (any, bool) {
	var cur any = root
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Assign stores value at path, replacing any non-map value in the way.
func Assign(root map[string]any, path []string, value any) {
	cur := root
	for _, key := range path[:len(path)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}

// Remove deletes the value at path and reports whether it existed.
func Remove(root map[string]any, path []string) bool {
	parent, ok := Lookup(root, path[:len(path)-1])
	if !ok {
		return false
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return false
	}
	last := path[len(path)-1]
	if _, ok := m[last]; !ok {
		return false
	}
	delete(m, last)
	return true
}

// SaveRaw writes raw back to path as YAML.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Redacted returns a copy of cfg with credentials masked, for display.
func (c Config) Redacted() Config {
	mask := func(s *string) {
		if *s != "" {
			*s = "********"
		}
	}
	mask(&c.Gateway.Auth.Token)
	mask(&c.Storage.DatabaseURL)
	mask(&c.Lodging.APIKey)
	mask(&c.Search.BraveAPIKey)
	mask(&c.Model.APIKey)
	return c
}
