// Package calc turns natural-language arithmetic questions into evaluated
// results. It is deliberately conservative: anything that fails extraction or
// validation yields no answer rather than a guess.
package calc

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberWords = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	"ten": "10", "eleven": "11", "twelve": "12", "thirteen": "13",
	"fourteen": "14", "fifteen": "15", "sixteen": "16", "seventeen": "17",
	"eighteen": "18", "nineteen": "19", "twenty": "20",
}

// Multi-word operator phrases are substituted before single words so
// "divided by" never leaves a stray "by" behind.
var operatorPhrases = []struct {
	phrase string
	symbol string
}{
	{"divided by", "/"},
	{"multiplied by", "*"},
	{"plus", "+"},
	{"add", "+"},
	{"minus", "-"},
	{"subtract", "-"},
	{"times", "*"},
	{"multiply", "*"},
	{"divide", "/"},
	{"over", "/"},
}

type substitution struct {
	re          *regexp.Regexp
	replacement string
}

var wordSubstitutions = buildWordSubstitutions()

func buildWordSubstitutions() []substitution {
	subs := make([]substitution, 0, len(operatorPhrases)+len(numberWords))
	for _, op := range operatorPhrases {
		pattern := `\b` + strings.ReplaceAll(op.phrase, " ", `\s+`) + `\b`
		subs = append(subs, substitution{regexp.MustCompile(pattern), " " + op.symbol + " "})
	}
	for word, digit := range numberWords {
		subs = append(subs, substitution{regexp.MustCompile(`\b` + word + `\b`), digit})
	}
	return subs
}

var (
	leadingPhraseRe = regexp.MustCompile(`^(what\s+is|what's|whats|calculate)\s+`)
	trailingRe      = regexp.MustCompile(`[=?]\s*$`)
	exprRunRe       = regexp.MustCompile(`[0-9+\-*/().\s]+`)
	validExprRe     = regexp.MustCompile(`^[0-9+\-*/().]+$`)
	hasDigitRe      = regexp.MustCompile(`[0-9]`)
	hasOperatorRe   = regexp.MustCompile(`[+\-*/]`)
)

// Gate patterns: a message must look calculation-like before the pipeline
// spends an evaluation on it.
var calcPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[0-9]\s*[+\-*/]\s*[0-9]`),
	regexp.MustCompile(`^what\s+is\s+[0-9]`),
	regexp.MustCompile(`^calculate\b`),
	regexp.MustCompile(`[0-9]\s*(plus|minus|times|divide)\s*[0-9]`),
	regexp.MustCompile(`[0-9]\s*=\s*$`),
}

// IsCalculation reports whether the message matches any of the cheap
// calculation-like patterns. It runs before Evaluate to short-circuit rule
// lookups for obvious math.
func IsCalculation(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	for _, p := range calcPatterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}

// Evaluate resolves a free-text arithmetic question to a numeric-result
// string. ok is false when no evaluable expression is found or the result is
// not a finite real number.
func Evaluate(message string) (string, bool) {
	expr, ok := extract(normalize(message))
	if !ok {
		return "", false
	}

	result, err := evalExpression(expr)
	if err != nil {
		return "", false
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return "", false
	}

	// 6-decimal rounding absorbs float noise like 0.30000000000000004.
	result = math.Round(result*1e6) / 1e6
	return strconv.FormatFloat(result, 'f', -1, 64), true
}

// normalize lowercases, strips the question phrasing and substitutes
// whole-word number names and operator words. Substitutions are whole-word
// and non-overlapping, so their order is irrelevant (except multi-word
// phrases, handled first).
func normalize(message string) string {
	msg := strings.ToLower(strings.TrimSpace(message))
	msg = leadingPhraseRe.ReplaceAllString(msg, "")
	msg = trailingRe.ReplaceAllString(msg, "")

	for _, sub := range wordSubstitutions {
		msg = sub.re.ReplaceAllString(msg, sub.replacement)
	}

	return msg
}

// extract picks the longest run of expression characters that contains both a
// digit and an operator, ties broken leftmost, then validates the charset and
// parenthesis balance.
func extract(msg string) (string, bool) {
	var best string
	for _, run := range exprRunRe.FindAllString(msg, -1) {
		candidate := strings.TrimSpace(run)
		if !hasDigitRe.MatchString(candidate) || !hasOperatorRe.MatchString(candidate) {
			continue
		}
		if len(candidate) > len(best) {
			best = candidate
		}
	}
	if best == "" {
		return "", false
	}

	compact := strings.Join(strings.Fields(best), "")
	if !validExprRe.MatchString(compact) {
		return "", false
	}

	depth := 0
	for _, c := range compact {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return "", false
			}
		}
	}
	if depth != 0 {
		return "", false
	}

	return compact, true
}

// ─── Expression evaluation ───────────────────────────────────────────────────
//
// Recursive descent over the validated string: standard precedence,
// left-to-right associativity, parentheses for grouping.

type parser struct {
	input string
	pos   int
}

func evalExpression(input string) (float64, error) {
	p := &parser{input: input}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character at position %d", p.pos)
	}
	return result, nil
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.input) {
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			break
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
	return left, nil
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.input) {
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			break
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			left /= right // 0 divisor yields ±Inf, rejected by the caller
		}
	}
	return left, nil
}

func (p *parser) parseFactor() (float64, error) {
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	switch p.input[p.pos] {
	case '+':
		p.pos++
		return p.parseFactor()
	case '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at position %d", start)
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
