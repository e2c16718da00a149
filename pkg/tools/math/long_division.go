// Package math provides arithmetic tools for the chat agent.
package math

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/entrhq/recall/pkg/agent/tools"
)

// DivisionByZero is the result text for a zero divisor.
const DivisionByZero = "Error: Division by zero is not allowed."

// LongDivision divides dividend by divisor. The quotient truncates toward
// zero, the remainder takes the sign of the divisor, and the exact float
// result is appended.
func LongDivision(dividend, divisor int64) string {
	if divisor == 0 {
		return DivisionByZero
	}
	quotient := dividend / divisor
	remainder := dividend % divisor
	if remainder != 0 && (remainder < 0) != (divisor < 0) {
		remainder += divisor
	}
	result := float64(dividend) / float64(divisor)
	return fmt.Sprintf("The result of %d divided by %d is %d with a remainder of %d (%s).",
		dividend, divisor, quotient, remainder, formatFloat(result))
}

// formatFloat prints f in its shortest round-trip form, keeping a ".0" on
// integral values and switching to exponent notation for very large or
// small magnitudes.
func formatFloat(f float64) string {
	abs := f
	if abs < 0 {
		abs = -abs
	}
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// LongDivisionTool exposes LongDivision to the model.
type LongDivisionTool struct{}

// NewLongDivisionTool creates the long_division tool.
func NewLongDivisionTool() *LongDivisionTool {
	return &LongDivisionTool{}
}

func (t *LongDivisionTool) Name() string {
	return "long_division"
}

func (t *LongDivisionTool) Description() string {
	return "Perform long division on two integers. Returns the quotient, the remainder and the exact result."
}

func (t *LongDivisionTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"dividend": map[string]interface{}{
				"type":        "integer",
				"description": "The number to be divided.",
			},
			"divisor": map[string]interface{}{
				"type":        "integer",
				"description": "The number to divide by.",
			},
		},
		[]string{"dividend", "divisor"},
	)
}

func (t *LongDivisionTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var args struct {
		XMLName  xml.Name `xml:"arguments"`
		Dividend string   `xml:"dividend"`
		Divisor  string   `xml:"divisor"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &args); err != nil {
		return "", nil, fmt.Errorf("invalid arguments for long_division: %w", err)
	}

	dividend, err := parseInt("dividend", args.Dividend)
	if err != nil {
		return "", nil, err
	}
	divisor, err := parseInt("divisor", args.Divisor)
	if err != nil {
		return "", nil, err
	}
	return LongDivision(dividend, divisor), nil, nil
}

func (t *LongDivisionTool) IsLoopBreaking() bool {
	return false
}

func parseInt(name, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}
