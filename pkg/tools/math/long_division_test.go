package math

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLongDivision(t *testing.T) {
	tests := []struct {
		name     string
		dividend int64
		divisor  int64
		want     string
	}{
		{"exact", 10, 2, "The result of 10 divided by 2 is 5 with a remainder of 0 (5.0)."},
		{"remainder", 17, 5, "The result of 17 divided by 5 is 3 with a remainder of 2 (3.4)."},
		{"negative dividend", -7, 2, "The result of -7 divided by 2 is -3 with a remainder of 1 (-3.5)."},
		{"negative divisor", 7, -2, "The result of 7 divided by -2 is -3 with a remainder of -1 (-3.5)."},
		{"repeating", 1, 3, "The result of 1 divided by 3 is 0 with a remainder of 1 (0.3333333333333333)."},
		{"zero dividend", 0, 9, "The result of 0 divided by 9 is 0 with a remainder of 0 (0.0)."},
		{"large", 1234567, 1, "The result of 1234567 divided by 1 is 1234567 with a remainder of 0 (1234567.0)."},
		{"division by zero", 5, 0, "Error: Division by zero is not allowed."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LongDivision(tt.dividend, tt.divisor))
		})
	}
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1e+16", formatFloat(1e16))
	assert.Equal(t, "1.5e-05", formatFloat(0.000015))
	assert.Equal(t, "0.0001", formatFloat(0.0001))
	assert.Equal(t, "-2.0", formatFloat(-2))
}

func TestLongDivisionTool_Execute(t *testing.T) {
	tool := NewLongDivisionTool()
	assert.Equal(t, "long_division", tool.Name())
	assert.False(t, tool.IsLoopBreaking())

	out, _, err := tool.Execute(context.Background(), []byte(`<arguments><dividend> 17 </dividend><divisor>5</divisor></arguments>`))
	require.NoError(t, err)
	assert.Equal(t, "The result of 17 divided by 5 is 3 with a remainder of 2 (3.4).", out)

	_, _, err = tool.Execute(context.Background(), []byte(`<arguments><dividend>ten</dividend><divisor>5</divisor></arguments>`))
	assert.ErrorContains(t, err, "dividend must be an integer")

	_, _, err = tool.Execute(context.Background(), []byte(`<arguments><dividend>10</dividend></arguments>`))
	assert.ErrorContains(t, err, "divisor is required")
}
