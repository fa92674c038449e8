// Package conditions implements the trigger condition grammar: a fixed set of
// comparison operators evaluated against dot-path fields of an event payload.
package conditions

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/mementohq/conduct/pkg/schema"
)

// Evaluate reports whether a single condition holds against the given item
// payload. Unknown operators evaluate to false; a condition never errors.
func Evaluate(cond schema.Condition, item map[string]any) bool {
	value := ResolvePath(item, cond.Field)

	switch cond.Operator {
	case schema.OpEquals:
		return cast.ToString(value) == cast.ToString(cond.Value)
	case schema.OpNotEquals:
		return cast.ToString(value) != cast.ToString(cond.Value)
	case schema.OpContains:
		return contains(value, cond.Value)
	case schema.OpNotContains:
		return !contains(value, cond.Value)
	case schema.OpGreaterThan:
		a, b := toNumbers(value, cond.Value)
		return a > b
	case schema.OpLessThan:
		a, b := toNumbers(value, cond.Value)
		return a < b
	case schema.OpGreaterOrEqual:
		a, b := toNumbers(value, cond.Value)
		return a >= b
	case schema.OpLessOrEqual:
		a, b := toNumbers(value, cond.Value)
		return a <= b
	case schema.OpIsEmpty:
		return isEmpty(value)
	case schema.OpIsNotEmpty:
		return !isEmpty(value)
	default:
		return false
	}
}

// All reports whether every condition holds (conjunction; no disjunction
// support). An empty condition list holds trivially.
func All(conds []schema.Condition, item map[string]any) bool {
	for _, c := range conds {
		if !Evaluate(c, item) {
			return false
		}
	}
	return true
}

// ResolvePath navigates into nested maps using a dot-delimited path.
// Missing keys and non-map intermediates resolve to nil, never an error.
func ResolvePath(item map[string]any, path string) any {
	if item == nil || path == "" {
		return nil
	}

	// Direct key lookup first, so keys containing dots still resolve.
	if v, ok := item[path]; ok {
		return v
	}

	var current any = item
	for _, seg := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return current
}

// toNumbers coerces both sides to float64. Non-numeric input yields NaN, and
// every comparison against NaN is false, so bad input disables the condition
// rather than erroring.
func toNumbers(a, b any) (float64, float64) {
	return toNumber(a), toNumber(b)
}

func toNumber(v any) float64 {
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return math.NaN()
	}
	return n
}

// contains checks membership for slices and substring containment otherwise.
func contains(value, needle any) bool {
	switch v := value.(type) {
	case []any:
		want := cast.ToString(needle)
		for _, item := range v {
			if cast.ToString(item) == want {
				return true
			}
		}
		return false
	case []string:
		want := cast.ToString(needle)
		for _, item := range v {
			if item == want {
				return true
			}
		}
		return false
	default:
		return strings.Contains(cast.ToString(value), cast.ToString(needle))
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
