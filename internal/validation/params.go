// Package validation checks action parameter maps against per-action-type
// JSON Schemas at the Action-creation boundary, so the opaque parameter map
// stays well-formed before anything reaches the runner.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/mementohq/conduct/pkg/schema"
)

// linkParamsSchemaJSON constrains link action parameters: a relationship edge
// needs both endpoints.
const linkParamsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["source_type", "source_id", "target_type", "target_id"],
  "properties": {
    "source_type": { "type": "string", "minLength": 1 },
    "source_id": { "type": "string", "minLength": 1 },
    "target_type": { "type": "string", "minLength": 1 },
    "target_id": { "type": "string", "minLength": 1 },
    "relation": { "type": "string" }
  }
}`

// notifyParamsSchemaJSON constrains notify action parameters.
const notifyParamsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["title"],
  "properties": {
    "title": { "type": "string", "minLength": 1 },
    "message": { "type": "string" }
  }
}`

// scheduleParamsSchemaJSON constrains schedule action parameters: a scheduled
// reminder needs a due time.
const scheduleParamsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["title", "due_at"],
  "properties": {
    "title": { "type": "string", "minLength": 1 },
    "message": { "type": "string" },
    "due_at": { "type": "string", "format": "date-time" }
  }
}`

// entityParamsSchemaJSON constrains create/update parameters: a free-form
// field map, but it must be an object.
const entityParamsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object"
}`

// ParamsValidator validates action parameter maps per action type.
// Safe for concurrent use after construction.
type ParamsValidator struct {
	schemas map[schema.ActionType]*jsonschema.Schema
}

// NewParamsValidator compiles the per-action-type parameter schemas.
func NewParamsValidator() (*ParamsValidator, error) {
	sources := map[schema.ActionType]string{
		schema.ActionTypeCreate:   entityParamsSchemaJSON,
		schema.ActionTypeUpdate:   entityParamsSchemaJSON,
		schema.ActionTypeDelete:   entityParamsSchemaJSON,
		schema.ActionTypeLink:     linkParamsSchemaJSON,
		schema.ActionTypeNotify:   notifyParamsSchemaJSON,
		schema.ActionTypeSchedule: scheduleParamsSchemaJSON,
	}

	compiled := make(map[schema.ActionType]*jsonschema.Schema, len(sources))
	for actionType, src := range sources {
		c := jsonschema.NewCompiler()
		c.AssertFormat()

		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("unmarshal %s params schema: %w", actionType, err)
		}
		url := fmt.Sprintf("conduct://schemas/%s-params.json", actionType)
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add %s params schema: %w", actionType, err)
		}
		s, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s params schema: %w", actionType, err)
		}
		compiled[actionType] = s
	}

	return &ParamsValidator{schemas: compiled}, nil
}

// ValidateSpec checks an ActionSpec: known action type, target rules, and the
// parameter map against the type's schema. Templated parameters may contain
// unresolved {{placeholder}} strings; those are ordinary strings to the schema.
func (v *ParamsValidator) ValidateSpec(spec schema.ActionSpec) error {
	if !schema.KnownActionTypes[spec.ActionType] {
		return schema.NewErrorf(schema.ErrCodeUnknownActionType, "unknown action type %q", spec.ActionType)
	}

	switch spec.ActionType {
	case schema.ActionTypeCreate, schema.ActionTypeUpdate, schema.ActionTypeDelete:
		if spec.TargetType == "" {
			return schema.NewErrorf(schema.ErrCodeValidation,
				"%s action requires a target type", spec.ActionType)
		}
	}

	return v.validateParams(spec.ActionType, spec.Parameters)
}

func (v *ParamsValidator) validateParams(actionType schema.ActionType, parameters map[string]any) error {
	s, ok := v.schemas[actionType]
	if !ok {
		return nil
	}
	if parameters == nil {
		parameters = map[string]any{}
	}

	doc, err := toJSONValue(parameters)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize parameters").WithCause(err)
	}
	if err := s.Validate(doc); err != nil {
		return toEngineError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toEngineError converts a jsonschema.ValidationError into an EngineError.
func toEngineError(err error) *schema.EngineError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	return schema.NewError(schema.ErrCodeValidation, strings.Join(violations, "; ")).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
