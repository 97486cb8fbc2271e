package numeric

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// builtinFuncs are the only callable names a safe_eval expression may use.
var builtinFuncs = map[string]any{
	"abs":   func(x float64) float64 { return math.Abs(x) },
	"round": func(x float64) float64 { return math.Round(x) },
	"min": func(a, b float64) float64 {
		if a < b {
			return a
		}
		return b
	},
	"max": func(a, b float64) float64 {
		if a > b {
			return a
		}
		return b
	},
}

// SafeEval evaluates an arithmetic expression containing only literal
// numerics, + - * / ** %, unary minus, parentheses, abs/round/min/max calls,
// and references into vars. No attribute access, no name resolution outside
// vars, no statements. Division/modulo by zero yields ExprMathError instead
// of Inf/NaN.
func SafeEval(rawExpr string, vars map[string]float64) (float64, error) {
	if err := rejectDisallowedSyntax(rawExpr); err != nil {
		return 0, err
	}

	env := make(map[string]any, len(vars)+len(builtinFuncs))
	for name, fn := range builtinFuncs {
		env[name] = fn
	}
	for name, v := range vars {
		env[name] = v
	}

	program, err := expr.Compile(rawExpr, expr.Env(env), expr.AsFloat64())
	if err != nil {
		if name, ok := unknownNameFrom(err.Error()); ok {
			return 0, &ExprNameError{Name: name}
		}
		return 0, &ExprSyntaxError{Expr: rawExpr, Err: err}
	}

	out, runErr := safeRun(program, env)
	if runErr != nil {
		return 0, runErr
	}

	result, ok := out.(float64)
	if !ok {
		return 0, &ExprSyntaxError{Expr: rawExpr, Err: fmt.Errorf("expression did not evaluate to a number")}
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, &ExprMathError{Reason: "division by zero"}
	}
	return result, nil
}

// safeRun recovers from the VM's runtime panics (integer divide-by-zero)
// and reports them as ExprMathError rather than crashing the calling tool.
func safeRun(program *vm.Program, env map[string]any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExprMathError{Reason: fmt.Sprintf("%v", r)}
		}
	}()
	out, err = expr.Run(program, env)
	if err != nil {
		return nil, &ExprMathError{Reason: err.Error()}
	}
	return out, nil
}

// rejectDisallowedSyntax performs a coarse pre-check for constructs the
// grammar explicitly forbids (attribute access, statements, pipe/range
// syntax) before handing the expression to expr.Compile, so the error
// surfaced is always one of the three documented kinds.
func rejectDisallowedSyntax(rawExpr string) error {
	if strings.ContainsAny(rawExpr, ";{}") {
		return &ExprSyntaxError{Expr: rawExpr, Err: fmt.Errorf("statements are not permitted")}
	}
	if strings.Contains(rawExpr, "..") {
		return &ExprSyntaxError{Expr: rawExpr, Err: fmt.Errorf("range syntax is not permitted")}
	}
	if strings.Contains(rawExpr, ".") {
		return &ExprSyntaxError{Expr: rawExpr, Err: fmt.Errorf("attribute access is not permitted")}
	}
	return nil
}

// unknownNameFrom extracts the offending identifier from an expr compile
// error message of the form `unknown name "foo"`.
func unknownNameFrom(msg string) (string, bool) {
	idx := strings.Index(msg, "unknown name ")
	if idx == -1 {
		return "", false
	}
	rest := strings.TrimSpace(msg[idx+len("unknown name "):])
	rest = strings.Trim(rest, "\"'` ")
	if sp := strings.IndexAny(rest, " \n("); sp != -1 {
		rest = rest[:sp]
	}
	return strings.Trim(rest, "\"'`."), true
}
