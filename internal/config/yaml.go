package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// The config file is YAML by convention (config.yaml), but a JSON file works
// too. Both funnel through the same strict JSON decoder so unknown keys get
// rejected identically in either format.

// toStrictJSON returns data ready for the strict decoder. Anything not named
// *.json is treated as YAML.
func toStrictJSON(path string, data []byte) ([]byte, error) {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return data, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	out, err := json.Marshal(stringKeyed(doc))
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// stringKeyed rewrites YAML's map[any]any nodes with string keys so the
// document can round-trip through encoding/json.
func stringKeyed(v any) any {
	switch node := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, val := range node {
			out[fmt.Sprint(k)] = stringKeyed(val)
		}
		return out
	case map[string]any:
		for k, val := range node {
			node[k] = stringKeyed(val)
		}
		return node
	case []any:
		for i, val := range node {
			node[i] = stringKeyed(val)
		}
		return node
	}
	return v
}
