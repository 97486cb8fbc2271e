package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeEval_Arithmetic(t *testing.T) {
	v, err := SafeEval("2 + 3 * 4", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(14), v)
}

func TestSafeEval_Vars(t *testing.T) {
	v, err := SafeEval("actual / target * 100", map[string]float64{"actual": 90, "target": 120})
	require.NoError(t, err)
	assert.InDelta(t, 75.0, v, 0.0001)
}

func TestSafeEval_Functions(t *testing.T) {
	v, err := SafeEval("abs(-5) + round(2.6) + max(1, 9) + min(1, 9)", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(5+3+9+1), v)
}

func TestSafeEval_Power(t *testing.T) {
	v, err := SafeEval("2 ** 10", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(1024), v)
}

func TestSafeEval_Modulo(t *testing.T) {
	v, err := SafeEval("10 % 3", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(1), v)
}

func TestSafeEval_UnaryMinus(t *testing.T) {
	v, err := SafeEval("-x", map[string]float64{"x": 5})
	require.NoError(t, err)
	assert.Equal(t, float64(-5), v)
}

func TestSafeEval_DivisionByZero(t *testing.T) {
	_, err := SafeEval("1 / 0", nil)
	require.Error(t, err)
	var mathErr *ExprMathError
	assert.ErrorAs(t, err, &mathErr)
}

func TestSafeEval_UnknownName(t *testing.T) {
	_, err := SafeEval("revenue + 1", nil)
	require.Error(t, err)
	var nameErr *ExprNameError
	assert.ErrorAs(t, err, &nameErr)
}

func TestSafeEval_SyntaxError(t *testing.T) {
	_, err := SafeEval("1 +", nil)
	require.Error(t, err)
	var syntaxErr *ExprSyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestSafeEval_AttributeAccessRejected(t *testing.T) {
	_, err := SafeEval("x.Field", map[string]float64{"x": 1})
	require.Error(t, err)
	var syntaxErr *ExprSyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestSafeEval_StatementsRejected(t *testing.T) {
	_, err := SafeEval("x; y", map[string]float64{"x": 1, "y": 2})
	require.Error(t, err)
}
