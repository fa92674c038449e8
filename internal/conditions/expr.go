package conditions

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/mementohq/conduct/pkg/schema"
)

// ExprEngine evaluates optional trigger expressions using expr-lang/expr.
// A trigger expression is a single boolean gate over the event's item payload,
// evaluated after the type/item-type checks and before the condition list.
// Thread-safe: compiled *vm.Program objects are cached and reused across goroutines.
type ExprEngine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEngine creates a new ExprEngine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{cache: make(map[string]*vm.Program)}
}

// EvaluateBool compiles (or retrieves from cache) an expression and evaluates
// it against the item payload. The payload keys are available as top-level
// variables. A non-boolean result is a validation error.
func (e *ExprEngine) EvaluateBool(expression string, item map[string]any) (bool, error) {
	if expression == "" {
		return true, nil
	}

	prg, err := e.getOrCompile(expression)
	if err != nil {
		return false, err
	}

	env := item
	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return false, schema.NewErrorf(schema.ErrCodeExecution,
			"trigger expression %q failed: %s", expression, err.Error()).WithCause(err)
	}

	b, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"trigger expression %q returned %T, want bool", expression, out)
	}
	return b, nil
}

func (e *ExprEngine) getOrCompile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"compile trigger expression %q: %s", expression, err.Error()).WithCause(err)
	}
	e.cache[expression] = prg
	return prg, nil
}
