package services

import (
	"fmt"
	"sort"
	"strings"

	"shopassist/internal/models"
)

// GroundingService selects the catalog and site-content snippets most
// relevant to a query and assembles the oracle prompt around them.
type GroundingService struct {
	snippetLimit int
}

func NewGroundingService(snippetLimit int) *GroundingService {
	if snippetLimit < 1 {
		snippetLimit = 5
	}
	return &GroundingService{snippetLimit: snippetLimit}
}

var commonWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"do": true, "does": true, "what": true, "how": true, "where": true,
	"when": true, "can": true, "you": true, "your": true, "for": true,
	"and": true, "or": true, "of": true, "to": true, "in": true, "on": true,
	"it": true, "my": true, "me": true, "i": true, "have": true, "with": true,
}

// scoreSnippet rates how well a text answers the query: full-phrase matches
// boost hardest, then all-significant-words presence, then the matched-word
// ratio. Scores are clamped to [0, 1].
func scoreSnippet(query, text string) float64 {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	textLower := strings.ToLower(text)

	var score float64

	// Exact substring boost.
	if queryLower != "" && strings.Contains(textLower, queryLower) {
		score += 0.5
	}

	words := strings.Fields(queryLower)
	significant := 0
	matched := 0
	allPresent := true
	for _, word := range words {
		if len(word) <= 2 || commonWords[word] {
			continue
		}
		significant++
		if strings.Contains(textLower, word) {
			matched++
		} else {
			allPresent = false
		}
	}

	if significant > 0 {
		if allPresent {
			score += 0.3
		}
		score += 0.2 * float64(matched) / float64(significant)
	}

	if score > 1 {
		score = 1
	}
	return score
}

type scoredSnippet struct {
	text  string
	score float64
	order int
}

// SelectSnippets returns the top-N grounding snippets for the query across
// products and site content, best first. Zero-score snippets never make it
// into the prompt.
func (g *GroundingService) SelectSnippets(query string, products []models.Product, siteContent []models.SiteContent) []string {
	candidates := make([]scoredSnippet, 0, len(products)+len(siteContent))

	for _, p := range products {
		text := formatProductSnippet(p)
		if score := scoreSnippet(query, text); score > 0 {
			candidates = append(candidates, scoredSnippet{text: text, score: score, order: len(candidates)})
		}
	}
	for _, c := range siteContent {
		text := fmt.Sprintf("%s (%s): %s", c.Title, c.Category, c.Content)
		if score := scoreSnippet(query, text); score > 0 {
			candidates = append(candidates, scoredSnippet{text: text, score: score, order: len(candidates)})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	limit := g.snippetLimit
	if limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]string, 0, limit)
	for _, c := range candidates[:limit] {
		out = append(out, c.text)
	}
	return out
}

func formatProductSnippet(p models.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s (%s): %s", p.Name, p.Price, p.Category, p.Description)
	if !p.InStock {
		b.WriteString(" [out of stock]")
	}
	if len(p.Features) > 0 {
		fmt.Fprintf(&b, " Features: %s.", strings.Join(p.Features, ", "))
	}
	return b.String()
}

// BuildPrompt assembles the single-shot oracle prompt: role framing, the
// grounding snippets, the bounded conversation window, then the question.
func (g *GroundingService) BuildPrompt(query string, window []models.Turn, snippets []string, pageText string) string {
	var b strings.Builder

	b.WriteString("You are a helpful customer support assistant for an online store. ")
	b.WriteString("Answer the customer's question using the store information below. ")
	b.WriteString("Keep answers short and friendly. If the information provided does not ")
	b.WriteString("answer the question, reply with exactly: NO_ANSWER\n")

	if len(snippets) > 0 {
		b.WriteString("\n# STORE INFORMATION\n")
		for i, s := range snippets {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}

	if pageText != "" {
		b.WriteString("\n# LIVE SITE TEXT\n")
		b.WriteString(pageText)
		b.WriteString("\n")
	}

	if len(window) > 0 {
		b.WriteString("\n# CONVERSATION HISTORY\n")
		for i, turn := range window {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, turn.Role, turn.Content)
		}
	}

	b.WriteString("\nCustomer question: ")
	b.WriteString(query)
	return b.String()
}
