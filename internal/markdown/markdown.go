// Package markdown tokenizes the restricted markdown subset used by bot
// replies into a flat sequence of typed spans. It covers headings, four
// inline bracketing styles and links, nothing else. Rendering the spans back
// to text is lossy: styling characters are stripped.
package markdown

import (
	"regexp"
	"strings"
)

type Kind int

const (
	KindText Kind = iota
	KindHeading
	KindBold
	KindItalic
	KindStrikethrough
	KindCode
	KindLink
	KindLinebreak
)

var kindNames = map[Kind]string{
	KindText:          "text",
	KindHeading:       "heading",
	KindBold:          "bold",
	KindItalic:        "italic",
	KindStrikethrough: "strikethrough",
	KindCode:          "code",
	KindLink:          "link",
	KindLinebreak:     "linebreak",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "text"
}

// MarshalText emits the kind name, so spans serialize readably for widget
// clients.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Span is one typed run of output. Target is set only for links, Level only
// for headings.
type Span struct {
	Kind   Kind   `json:"kind"`
	Text   string `json:"text,omitempty"`
	Target string `json:"target,omitempty"`
	Level  int    `json:"level,omitempty"`
}

var headingRe = regexp.MustCompile(`^(#{1,6})\s`)

// inlinePatterns in tie-break order for matches starting at the same offset:
// code, bold, strikethrough, italic, link. Italic deliberately refuses '*' in
// its body so it cannot swallow a bold opener, but an unmatched single '*'
// adjacent to '**' still misparses; that is the observed behavior and is
// kept as-is.
var inlinePatterns = []struct {
	kind Kind
	re   *regexp.Regexp
}{
	{KindCode, regexp.MustCompile("`([^`]+)`")},
	{KindBold, regexp.MustCompile(`\*\*(.+?)\*\*`)},
	{KindStrikethrough, regexp.MustCompile(`~~(.+?)~~`)},
	{KindItalic, regexp.MustCompile(`\*([^*]+)\*`)},
	{KindLink, regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)},
}

// Parse tokenizes input into spans. A linebreak span separates every pair of
// source lines; none follows the last line.
func Parse(input string) []Span {
	var spans []Span

	lines := strings.Split(input, "\n")
	for i, line := range lines {
		if i > 0 {
			spans = append(spans, Span{Kind: KindLinebreak})
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			// Heading syntax claims the whole line; inline styles inside a
			// heading are not recognized.
			spans = append(spans, Span{
				Kind:  KindHeading,
				Level: len(m[1]),
				Text:  strings.TrimSpace(line[len(m[0]):]),
			})
			continue
		}

		spans = append(spans, scanInline(line)...)
	}

	return spans
}

// scanInline walks a single line left to right, emitting the earliest pattern
// match at each step and plain-text spans for the gaps.
func scanInline(line string) []Span {
	var spans []Span

	pos := 0
	for pos < len(line) {
		rest := line[pos:]

		bestStart, bestEnd := -1, -1
		var best Span
		for _, p := range inlinePatterns {
			loc := p.re.FindStringSubmatchIndex(rest)
			if loc == nil {
				continue
			}
			if bestStart != -1 && loc[0] >= bestStart {
				continue
			}
			bestStart, bestEnd = loc[0], loc[1]
			best = Span{Kind: p.kind, Text: rest[loc[2]:loc[3]]}
			if p.kind == KindLink {
				best.Target = rest[loc[4]:loc[5]]
			}
		}

		if bestStart == -1 {
			spans = append(spans, Span{Kind: KindText, Text: rest})
			break
		}

		if bestStart > 0 {
			spans = append(spans, Span{Kind: KindText, Text: rest[:bestStart]})
		}
		spans = append(spans, best)
		pos += bestEnd
	}

	return spans
}

// Render flattens spans back to plain text. Styling markers are gone for
// good; this does not round-trip.
func Render(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Kind == KindLinebreak {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}
