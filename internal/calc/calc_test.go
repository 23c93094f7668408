package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
		ok      bool
	}{
		{"simple question", "what is 2 + 2", "4", true},
		{"word numbers and operator", "ten times three", "30", true},
		{"division by zero", "5 / 0", "", false},
		{"unbalanced parentheses", "(2+3", "", false},
		{"no expression", "hello", "", false},
		{"precedence", "2 + 3 * 4", "14", true},
		{"parentheses override precedence", "(2 + 3) * 4", "20", true},
		{"trailing equals", "7*6=", "42", true},
		{"trailing question mark", "what is 100 / 4?", "25", true},
		{"unary minus", "-3 + 10", "7", true},
		{"decimal result", "1 / 4", "0.25", true},
		{"float noise rounded away", "0.1 + 0.2", "0.3", true},
		{"mixed words and digits", "twenty divided by 4", "5", true},
		{"operator words", "six plus seven", "13", true},
		{"stray closing paren", "2+3)", "", false},
		{"digits without operator", "12345", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Evaluate(tt.message)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsCalculation(t *testing.T) {
	calculationLike := []string{
		"2+2",
		"what is 5",
		"calculate the total",
		"3 plus 4",
		"19 = ",
		"What Is 2 + 2",
	}
	for _, msg := range calculationLike {
		assert.True(t, IsCalculation(msg), "expected %q to pass the gate", msg)
	}

	notCalculationLike := []string{
		"hello",
		"what is your return policy",
		"ten times three", // word-only math doesn't pass the cheap gate
		"do you ship to canada?",
	}
	for _, msg := range notCalculationLike {
		assert.False(t, IsCalculation(msg), "expected %q to fail the gate", msg)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"what is ten plus five",
		"calculate 3 times 4",
		"seven divided by two?",
	}
	for _, in := range inputs {
		once := normalize(in)
		assert.Equal(t, once, normalize(once))
	}
}

func TestExtractPicksLongestRun(t *testing.T) {
	// Two candidate runs; the longer one wins regardless of position.
	expr, ok := extract("1+2 and also 10*20+30")
	require.True(t, ok)
	assert.Equal(t, "10*20+30", expr)
}
