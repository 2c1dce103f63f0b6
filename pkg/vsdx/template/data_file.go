package template

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ParseData decodes template data in the given format. Supported formats
// are "yaml"/"yml", "json" and "jsonc" (JSON with comments and trailing
// commas).
func ParseData(content []byte, format string) (Data, error) {
	var raw interface{}

	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("parsing yaml data: %w", err)
		}
	case "json", "jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(content), &raw); err != nil {
			return nil, fmt.Errorf("parsing json data: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported data format %q", format)
	}

	if raw == nil {
		return Data{}, nil
	}

	root, ok := normalizeValue(raw).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("template data must be a mapping at the top level, got %T", raw)
	}
	return Data(root), nil
}

// LoadDataFile reads template data from path, picking the format from the
// file extension.
func LoadDataFile(path string) (Data, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	data, err := ParseData(content, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// normalizeValue converts decoder output to the shapes expressions expect:
// string-keyed maps and whole JSON numbers as int.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, item := range val {
			val[k] = normalizeValue(item)
		}
		return val
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []interface{}:
		for i, item := range val {
			val[i] = normalizeValue(item)
		}
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int(val)
		}
		return val
	default:
		return val
	}
}
