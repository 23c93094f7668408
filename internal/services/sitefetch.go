package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"shopassist/internal/utils"
)

const maxSnippetRunes = 1200

// SiteFetchService pulls live text from configured storefront pages for
// oracle grounding. Fetched snippets are cached per page; a fetch failure
// just means no live text this turn.
type SiteFetchService struct {
	httpClient *http.Client
	cache      *CacheService
	pages      []string
	ttl        time.Duration
}

func NewSiteFetchService(cache *CacheService, pages []string, ttl time.Duration) *SiteFetchService {
	return &SiteFetchService{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
		pages:      pages,
		ttl:        ttl,
	}
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
)

// PageSnippets returns the cached-or-fetched snippet for every configured
// page that could be read. Order follows configuration.
func (s *SiteFetchService) PageSnippets(ctx context.Context) []string {
	var snippets []string
	for _, page := range s.pages {
		snippet, err := s.fetchPage(ctx, page)
		if err != nil {
			utils.LogWarn(ctx, "site page fetch failed",
				slog.String("page", page),
				slog.Any("error", err),
			)
			continue
		}
		if snippet != "" {
			snippets = append(snippets, snippet)
		}
	}
	return snippets
}

func (s *SiteFetchService) fetchPage(ctx context.Context, url string) (string, error) {
	if cached, ok := s.cache.GetPageSnippet(ctx, url); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", err
	}

	snippet := StripHTML(string(body))
	if err := s.cache.SetPageSnippet(ctx, url, snippet, s.ttl); err != nil {
		utils.LogWarn(ctx, "failed to cache page snippet", slog.String("page", url), slog.Any("error", err))
	}
	return snippet, nil
}

// StripHTML reduces a page to whitespace-collapsed visible text, truncated
// to a prompt-sized snippet.
func StripHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > maxSnippetRunes {
		text = string(runes[:maxSnippetRunes])
	}
	return text
}
