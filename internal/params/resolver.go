// Package params substitutes {{placeholder}} tokens in action parameter maps.
package params

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// Resolve returns a copy of the template map with placeholder values replaced
// from the context. Two forms are supported:
//
//   - a value that is exactly "{{name}}" is replaced by context["name"],
//     preserving the context value's type;
//   - a string containing embedded "{{name}}" tokens has each token replaced
//     by the stringified context value.
//
// A placeholder whose key is absent from the context is kept verbatim —
// downstream consumers rely on detecting unresolved placeholders, so a missing
// key is neither an error nor a null.
func Resolve(template map[string]any, context map[string]any) map[string]any {
	if template == nil {
		return nil
	}

	resolved := make(map[string]any, len(template))
	for key, value := range template {
		resolved[key] = resolveValue(value, context)
	}
	return resolved
}

func resolveValue(value any, context map[string]any) any {
	switch v := value.(type) {
	case string:
		if name, ok := exactPlaceholder(v); ok {
			if replacement, found := context[name]; found {
				return replacement
			}
			return v
		}
		return replaceEmbedded(v, context)
	case map[string]any:
		return Resolve(v, context)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = resolveValue(item, context)
		}
		return out
	default:
		return value
	}
}

// exactPlaceholder reports whether s is exactly "{{name}}" and returns name.
func exactPlaceholder(s string) (string, bool) {
	if !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") || len(s) < 5 {
		return "", false
	}
	name := s[2 : len(s)-2]
	if name == "" || strings.Contains(name, "{{") || strings.Contains(name, "}}") {
		return "", false
	}
	return name, true
}

// replaceEmbedded substitutes every {{name}} token inside a larger string.
// Unresolved tokens are kept as-is.
func replaceEmbedded(s string, context map[string]any) string {
	if !strings.Contains(s, "{{") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for {
		start := strings.Index(s, "{{")
		if start == -1 {
			b.WriteString(s)
			break
		}
		end := strings.Index(s[start:], "}}")
		if end == -1 {
			b.WriteString(s)
			break
		}
		end += start

		b.WriteString(s[:start])
		name := s[start+2 : end]
		if replacement, found := context[name]; found {
			b.WriteString(stringify(replacement))
		} else {
			b.WriteString(s[start : end+2])
		}
		s = s[end+2:]
	}
	return b.String()
}

// stringify renders a context value for embedding inside a string parameter.
// Scalars use their natural string form; composites are JSON-encoded.
func stringify(v any) string {
	switch v.(type) {
	case map[string]any, []any, []string:
		b, err := json.Marshal(v)
		if err != nil {
			return cast.ToString(v)
		}
		return string(b)
	default:
		return cast.ToString(v)
	}
}
