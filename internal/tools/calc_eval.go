package tools

import (
	"context"
	"encoding/json"

	"github.com/codeready-toolchain/tabletalk/internal/numeric"
)

type calcEvalResult struct {
	Value float64 `json:"value"`
}

// calcEval has no tenant scope: it evaluates a pure arithmetic expression
// against caller-supplied variables, per spec.md §4.1.
func (e *Executor) calcEval(_ context.Context, rawArgs string) (string, error) {
	fields := splitArgs(rawArgs, 2)
	expr, varsRaw := fields[0], fields[1]

	var rawVars map[string]any
	if varsRaw != "" {
		if err := parseJSONField(varsRaw, &rawVars); err != nil {
			return "", err
		}
	}
	vars, err := asVarsMap(rawVars)
	if err != nil {
		return "", err
	}

	value, err := numeric.SafeEval(expr, vars)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(calcEvalResult{Value: value})
	return string(b), err
}
