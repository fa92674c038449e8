package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mementohq/conduct/pkg/schema"
)

func TestEvaluate_Equality(t *testing.T) {
	item := map[string]any{"status": "done", "count": 3}

	assert.True(t, Evaluate(schema.Condition{Field: "status", Operator: schema.OpEquals, Value: "done"}, item))
	assert.False(t, Evaluate(schema.Condition{Field: "status", Operator: schema.OpEquals, Value: "open"}, item))
	assert.True(t, Evaluate(schema.Condition{Field: "status", Operator: schema.OpNotEquals, Value: "open"}, item))

	// Equality compares string forms, so 3 == "3".
	assert.True(t, Evaluate(schema.Condition{Field: "count", Operator: schema.OpEquals, Value: "3"}, item))
}

func TestEvaluate_NumericComparisons(t *testing.T) {
	item := map[string]any{"priority": 5, "score": "2.5"}

	assert.True(t, Evaluate(schema.Condition{Field: "priority", Operator: schema.OpGreaterThan, Value: 3}, item))
	assert.False(t, Evaluate(schema.Condition{Field: "priority", Operator: schema.OpLessThan, Value: 3}, item))
	assert.True(t, Evaluate(schema.Condition{Field: "priority", Operator: schema.OpGreaterOrEqual, Value: 5}, item))
	assert.True(t, Evaluate(schema.Condition{Field: "priority", Operator: schema.OpLessOrEqual, Value: 5}, item))

	// Numeric strings coerce.
	assert.True(t, Evaluate(schema.Condition{Field: "score", Operator: schema.OpGreaterThan, Value: 2}, item))
}

func TestEvaluate_NonNumericComparisonIsFalse(t *testing.T) {
	item := map[string]any{"title": "hello"}

	// NaN poisons every comparison, in both directions.
	assert.False(t, Evaluate(schema.Condition{Field: "title", Operator: schema.OpGreaterThan, Value: 1}, item))
	assert.False(t, Evaluate(schema.Condition{Field: "title", Operator: schema.OpLessThan, Value: 1}, item))
	assert.False(t, Evaluate(schema.Condition{Field: "title", Operator: schema.OpGreaterOrEqual, Value: 1}, item))
	assert.False(t, Evaluate(schema.Condition{Field: "title", Operator: schema.OpLessOrEqual, Value: 1}, item))
}

func TestEvaluate_Contains(t *testing.T) {
	item := map[string]any{
		"tags":  []any{"work", "urgent"},
		"names": []string{"ana", "bo"},
		"title": "quarterly report",
	}

	assert.True(t, Evaluate(schema.Condition{Field: "tags", Operator: schema.OpContains, Value: "urgent"}, item))
	assert.False(t, Evaluate(schema.Condition{Field: "tags", Operator: schema.OpContains, Value: "home"}, item))
	assert.True(t, Evaluate(schema.Condition{Field: "names", Operator: schema.OpContains, Value: "bo"}, item))
	assert.True(t, Evaluate(schema.Condition{Field: "title", Operator: schema.OpContains, Value: "report"}, item))
	assert.True(t, Evaluate(schema.Condition{Field: "tags", Operator: schema.OpNotContains, Value: "home"}, item))
}

func TestEvaluate_Emptiness(t *testing.T) {
	item := map[string]any{
		"empty_str":  "",
		"full_str":   "x",
		"empty_list": []any{},
		"zero":       0,
	}

	assert.True(t, Evaluate(schema.Condition{Field: "empty_str", Operator: schema.OpIsEmpty}, item))
	assert.True(t, Evaluate(schema.Condition{Field: "missing", Operator: schema.OpIsEmpty}, item))
	assert.True(t, Evaluate(schema.Condition{Field: "empty_list", Operator: schema.OpIsEmpty}, item))
	assert.False(t, Evaluate(schema.Condition{Field: "full_str", Operator: schema.OpIsEmpty}, item))
	assert.True(t, Evaluate(schema.Condition{Field: "full_str", Operator: schema.OpIsNotEmpty}, item))

	// Zero is a value, not emptiness.
	assert.False(t, Evaluate(schema.Condition{Field: "zero", Operator: schema.OpIsEmpty}, item))
}

func TestEvaluate_UnknownOperator(t *testing.T) {
	item := map[string]any{"status": "done"}
	assert.False(t, Evaluate(schema.Condition{Field: "status", Operator: "matches_regex", Value: ".*"}, item))
}

func TestAll_Conjunction(t *testing.T) {
	item := map[string]any{"status": "done", "priority": 5}

	conds := []schema.Condition{
		{Field: "status", Operator: schema.OpEquals, Value: "done"},
		{Field: "priority", Operator: schema.OpGreaterThan, Value: 3},
	}
	assert.True(t, All(conds, item))

	conds[1].Value = 10
	assert.False(t, All(conds, item))

	assert.True(t, All(nil, item), "empty condition list holds trivially")
}

func TestResolvePath_Nesting(t *testing.T) {
	item := map[string]any{
		"item": map[string]any{
			"meta": map[string]any{"owner": "ana"},
		},
		"a.b": "direct",
	}

	assert.Equal(t, "ana", ResolvePath(item, "item.meta.owner"))
	assert.Nil(t, ResolvePath(item, "item.meta.missing"))
	assert.Nil(t, ResolvePath(item, "item.meta.owner.too_deep"))
	assert.Nil(t, ResolvePath(nil, "anything"))
	assert.Nil(t, ResolvePath(item, ""))

	// A key that literally contains a dot wins over path traversal.
	assert.Equal(t, "direct", ResolvePath(item, "a.b"))
}
