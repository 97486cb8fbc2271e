package numeric

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONDecimal_PlainNumber(t *testing.T) {
	d := NewJSONDecimal(decimal.NewFromFloat(237525))
	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "237525", string(out))
}

func TestJSONDecimal_HighPrecisionString(t *testing.T) {
	huge, err := decimal.NewFromString("123456789012345678901234567890.123456789")
	require.NoError(t, err)
	d := NewJSONDecimal(huge)
	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"123456789012345678901234567890.123456789"`, string(out))
}
