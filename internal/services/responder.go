package services

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"shopassist/internal/calc"
	"shopassist/internal/config"
	"shopassist/internal/models"
	"shopassist/internal/storage"
	"shopassist/internal/utils"
)

// Terminal pipeline stages, in precedence order.
const (
	SourceCalculator    = "calculator"
	SourceRuleExact     = "rule_exact"
	SourceRuleSubstring = "rule_substring"
	SourceOracle        = "oracle"
	SourceFallback      = "fallback"
	SourceUnknown       = "unknown"
)

var pipelineStageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shopassist_pipeline_stage_total",
	Help: "Messages resolved per terminal pipeline stage",
}, []string{"stage"})

// UnknownReply is the fixed answer for the unknown-question terminal state.
const UnknownReply = "I don't know the answer to that yet, but I've saved your question so the team can teach me."

// The oracle prompt instructs the model to emit this sentinel when the
// grounding doesn't cover the question.
const oracleNoAnswer = "NO_ANSWER"

var fallbackPools = map[string][]string{
	"greeting": {
		"Hi there! How can I help you today?",
		"Hello! What can I do for you?",
		"Hey! Ask me anything about our store.",
	},
	"question": {
		"That's a good question! Could you give me a bit more detail?",
		"I want to get that right. Could you rephrase it for me?",
		"Hmm, let me make sure I understand. Can you say that another way?",
	},
	"general": {
		"I'm here to help with anything about our store!",
		"Could you tell me a little more about what you're looking for?",
		"Thanks for reaching out! What would you like to know?",
	},
}

// Result is the terminal outcome of resolving one incoming message.
type Result struct {
	Reply       string
	Source      string
	TeachPrompt bool
}

// Responder runs the response resolution pipeline: calculator, exact rule,
// substring rule, oracle, randomized canned fallback, then unknown-question
// capture. The randomness source is injected so tests can pin both fallback
// branches.
type Responder struct {
	store     *storage.Store
	oracle    Oracle
	grounding *GroundingService
	sitefetch *SiteFetchService
	cfg       *config.Config
	rng       *rand.Rand
	rngMu     sync.Mutex
}

func NewResponder(
	store *storage.Store,
	oracle Oracle,
	grounding *GroundingService,
	sitefetch *SiteFetchService,
	cfg *config.Config,
	rng *rand.Rand,
) *Responder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Responder{
		store:     store,
		oracle:    oracle,
		grounding: grounding,
		sitefetch: sitefetch,
		cfg:       cfg,
		rng:       rng,
	}
}

// Respond resolves one message. The conversation window belongs to the
// caller's session, so it is threaded through explicitly and comes back with
// the user message and reply appended, bounded to the configured number of
// turns.
func (r *Responder) Respond(ctx context.Context, deviceID, message string, window []models.Turn) (*Result, []models.Turn) {
	start := time.Now()
	result := r.resolve(ctx, deviceID, message, window)

	pipelineStageTotal.WithLabelValues(result.Source).Inc()
	utils.LogInfo(ctx, "message resolved",
		slog.String("source", result.Source),
		slog.Float64("duration_seconds", time.Since(start).Seconds()),
	)

	ring := utils.NewRing[models.Turn](r.cfg.ContextWindow)
	for _, t := range window {
		ring.Push(t)
	}
	ring.Push(models.Turn{Role: models.SenderUser, Content: message})
	ring.Push(models.Turn{Role: models.SenderBot, Content: result.Reply})

	return result, ring.Items()
}

func (r *Responder) resolve(ctx context.Context, deviceID, message string, window []models.Turn) *Result {
	// 1. Calculator. The gate runs before rule lookups, so a stored trigger
	// that happens to look like math never wins over the calculator.
	if calc.IsCalculation(message) {
		if answer, ok := calc.Evaluate(message); ok {
			return &Result{Reply: answer, Source: SourceCalculator}
		}
	}

	normalized := storage.Normalize(message)

	// 2. Exact rule match.
	if reply, found, err := r.store.GetResponse(normalized); err != nil {
		utils.LogWarn(ctx, "rule lookup failed", slog.Any("error", err))
	} else if found {
		return &Result{Reply: reply, Source: SourceRuleExact}
	}

	// 3. Substring rule match, longest trigger first.
	if rules, err := r.store.ListResponses(); err != nil {
		utils.LogWarn(ctx, "rule listing failed", slog.Any("error", err))
	} else {
		for _, rule := range rules {
			if strings.Contains(normalized, rule.Trigger) || strings.Contains(rule.Trigger, normalized) {
				return &Result{Reply: rule.Reply, Source: SourceRuleSubstring}
			}
		}
	}

	// 4. External oracle. Any failure falls through, never surfaces.
	if reply, ok := r.askOracle(ctx, message, window); ok {
		return &Result{Reply: reply, Source: SourceOracle}
	}

	// 5. Randomized canned fallback.
	r.rngMu.Lock()
	roll := r.rng.Float64()
	r.rngMu.Unlock()
	if roll < r.cfg.FallbackProbability {
		pool := fallbackPools[classifyIntent(normalized)]
		r.rngMu.Lock()
		reply := pool[r.rng.Intn(len(pool))]
		r.rngMu.Unlock()
		return &Result{Reply: reply, Source: SourceFallback}
	}

	// 6. Unknown-question capture.
	if err := r.store.RecordUnknownQuestion(message, deviceID, time.Now()); err != nil {
		utils.LogWarn(ctx, "failed to record unknown question", slog.Any("error", err))
	}
	return &Result{Reply: UnknownReply, Source: SourceUnknown, TeachPrompt: true}
}

func (r *Responder) askOracle(ctx context.Context, message string, window []models.Turn) (string, bool) {
	if r.oracle == nil {
		return "", false
	}

	var snippets []string
	if products, err := r.store.ListProducts(); err == nil {
		if siteContent, err := r.store.ListSiteContent(); err == nil {
			snippets = r.grounding.SelectSnippets(message, products, siteContent)
		}
	}

	pageText := ""
	if r.sitefetch != nil {
		if pages := r.sitefetch.PageSnippets(ctx); len(pages) > 0 {
			pageText = strings.Join(pages, "\n")
		}
	}

	prompt := r.grounding.BuildPrompt(message, window, snippets, pageText)

	reply, err := r.oracle.Generate(ctx, prompt)
	if err != nil {
		utils.LogWarn(ctx, "oracle call failed, falling through", slog.Any("error", err))
		return "", false
	}
	if strings.TrimSpace(reply) == "" || strings.Contains(reply, oracleNoAnswer) {
		return "", false
	}
	return reply, true
}

// classifyIntent buckets a normalized message into a canned-reply pool.
func classifyIntent(normalized string) string {
	for _, greeting := range []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"} {
		if normalized == greeting || strings.HasPrefix(normalized, greeting+" ") {
			return "greeting"
		}
	}
	if strings.HasSuffix(normalized, "?") {
		return "question"
	}
	for _, w := range []string{"what", "how", "where", "when", "why", "who", "can", "do", "does", "is", "are"} {
		if strings.HasPrefix(normalized, w+" ") {
			return "question"
		}
	}
	return "general"
}
