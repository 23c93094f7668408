package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"shopassist/internal/config"
	"shopassist/internal/utils"
)

// Oracle is the external text-completion capability the response pipeline
// falls back to. Implementations return an error for any transport or parse
// failure; the pipeline treats every error as "no answer".
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiService implements Oracle against the Gemini API with key rotation
// and retry.
type GeminiService struct {
	client          *genai.Client
	keyRotator      *utils.KeyRotator
	config          *config.Config
	currentKeyIndex int
	mu              sync.RWMutex
}

func NewGeminiService(keyRotator *utils.KeyRotator, cfg *config.Config) (*GeminiService, error) {
	apiKey, keyIndex, err := keyRotator.GetNextKey()
	if err != nil {
		return nil, fmt.Errorf("get initial API key: %w", err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return &GeminiService{
		client:          client,
		keyRotator:      keyRotator,
		config:          cfg,
		currentKeyIndex: keyIndex,
	}, nil
}

func (g *GeminiService) rotateClient(ctx context.Context, markCurrentAsExhausted bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if markCurrentAsExhausted {
		if err := g.keyRotator.MarkKeyAsExhausted(g.currentKeyIndex); err != nil {
			utils.LogWarn(ctx, "failed to mark key as exhausted",
				slog.Int("key_index", g.currentKeyIndex),
				slog.Any("error", err),
			)
		}
	}

	apiKey, keyIndex, err := g.keyRotator.GetNextKey()
	if err != nil {
		return fmt.Errorf("get API key: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("create Gemini client: %w", err)
	}

	g.client = client
	g.currentKeyIndex = keyIndex
	utils.LogInfo(ctx, "Gemini API key rotated", slog.Int("key_index", keyIndex))
	return nil
}

// generateConfig carries the generation parameters and content-safety
// thresholds for every request.
func (g *GeminiService) generateConfig() *genai.GenerateContentConfig {
	temp := g.config.GeminiTemperature
	topK := g.config.GeminiTopK
	topP := g.config.GeminiTopP

	return &genai.GenerateContentConfig{
		Temperature:     &temp,
		TopK:            &topK,
		TopP:            &topP,
		MaxOutputTokens: int32(g.config.GeminiMaxOutputTokens),
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
		},
	}
}

// Generate submits a single prompt and extracts the first candidate's text.
// Quota errors rotate the key; overload and timeout errors retry with
// exponential backoff.
func (g *GeminiService) Generate(ctx context.Context, prompt string) (string, error) {
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		g.mu.RLock()
		client := g.client
		g.mu.RUnlock()

		callCtx, cancel := context.WithTimeout(ctx, g.config.GeminiTimeout)
		resp, err := client.Models.GenerateContent(
			callCtx,
			g.config.GeminiModel,
			genai.Text(prompt),
			g.generateConfig(),
		)
		cancel()

		if err == nil && resp != nil {
			return extractCandidateText(resp)
		}
		lastErr = err

		if err != nil {
			errMsg := err.Error()
			switch {
			case strings.Contains(errMsg, "quota") ||
				strings.Contains(errMsg, "429") ||
				strings.Contains(errMsg, "RESOURCE_EXHAUSTED"):
				utils.LogWarn(ctx, "Gemini quota exceeded, rotating API key")
				if rotateErr := g.rotateClient(ctx, true); rotateErr != nil {
					utils.LogWarn(ctx, "key rotation failed", slog.Any("error", rotateErr))
				}
				continue
			case strings.Contains(errMsg, "503") ||
				strings.Contains(errMsg, "UNAVAILABLE") ||
				strings.Contains(errMsg, "overloaded"):
				continue
			case strings.Contains(errMsg, "timeout") ||
				strings.Contains(errMsg, "deadline exceeded"):
				continue
			default:
				return "", fmt.Errorf("Gemini API error: %w", err)
			}
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("Gemini API failed after %d retries: %w", maxRetries, lastErr)
	}
	return "", fmt.Errorf("Gemini API failed after %d retries", maxRetries)
}

// extractCandidateText pulls the first candidate's text parts. A response
// with no usable text is a failure, never an empty answer.
func extractCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in Gemini response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in Gemini response (finish reason: %v)", candidate.FinishReason)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", fmt.Errorf("empty response text from Gemini")
	}
	return out, nil
}
