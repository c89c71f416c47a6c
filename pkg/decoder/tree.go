package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var ErrPath = errors.New("invalid document path")

// Parse reads a YAML or JSON document into a generic tree of
// map[string]interface{}, []interface{} and scalars.
func Parse(data []byte) (interface{}, error) {
	var tree interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return normalize(tree), nil
}

// normalize turns the map[interface{}]interface{} nodes some YAML inputs
// produce into string-keyed maps.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []interface{}:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	}
	return v
}

// ToTree renders a struct into a generic tree through its json tags.
func ToTree(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var tree interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return tree, nil
}

// Decode maps a generic tree onto out using the json field names. Numbers
// are converted between int and float as needed; unknown keys are errors.
func Decode(tree interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(tree); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// Set replaces the value at a dotted path such as "indicators.0.params.period".
// Map keys may be created at the leaf; list indexes must exist.
func Set(tree interface{}, path string, value interface{}) error {
	parts := strings.Split(path, ".")
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrPath)
	}

	node := tree
	for i, part := range parts {
		last := i == len(parts)-1
		switch t := node.(type) {
		case map[string]interface{}:
			if last {
				t[part] = value
				return nil
			}
			next, ok := t[part]
			if !ok || next == nil {
				return fmt.Errorf("%w: %q has no key %q", ErrPath, path, part)
			}
			node = next
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(t) {
				return fmt.Errorf("%w: %q has no index %q", ErrPath, path, part)
			}
			if last {
				t[idx] = value
				return nil
			}
			node = t[idx]
		default:
			return fmt.Errorf("%w: %q descends into a scalar at %q", ErrPath, path, part)
		}
	}
	return nil
}
