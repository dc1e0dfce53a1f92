// Package template renders mustache-style node configuration against the
// accumulated run context.
package template

import (
	"fmt"

	"github.com/cbroglie/mustache"
)

// Render substitutes {{key}} placeholders in a template string with values
// from the run context. Rendering is pure: no I/O, no caching across
// contexts.
func Render(input string, context map[string]any) (string, error) {
	out, err := mustache.Render(input, context)
	if err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", input, err)
	}

	return out, nil
}

// RenderField renders a named string field of a node template. A missing or
// non-string field renders to the empty string.
func RenderField(tmpl map[string]any, field string, context map[string]any) (string, error) {
	raw, ok := tmpl[field].(string)
	if !ok {
		return "", nil
	}

	return Render(raw, context)
}

// RenderAll renders every string value of a configuration map, recursing
// into nested maps and slices. Non-string leaves pass through untouched.
func RenderAll(config map[string]any, context map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(config))

	for key, value := range config {
		rendered, err := renderValue(value, context)
		if err != nil {
			return nil, err
		}

		out[key] = rendered
	}

	return out, nil
}

func renderValue(value any, context map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return Render(v, context)
	case map[string]any:
		return RenderAll(v, context)
	case []any:
		out := make([]any, len(v))

		for i, item := range v {
			rendered, err := renderValue(item, context)
			if err != nil {
				return nil, err
			}

			out[i] = rendered
		}

		return out, nil
	default:
		return value, nil
	}
}
