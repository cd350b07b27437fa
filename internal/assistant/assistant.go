// Package assistant answers messages, generates case studies and scores
// comparisons directly against the Anthropic API, using the same prompts
// as the audit backend.
package assistant

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/audit-cli/internal/config"
	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/pkg/anthropic"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 800

	caseMaxTokens    = 600
	summaryMaxTokens = 300
	scoreMaxTokens   = 10
)

// ErrEmptyMessage is returned for a blank chat message.
var ErrEmptyMessage = eris.New("assistant: message is empty")

// Assistant implements the workflow assistant and scorer on top of an
// Anthropic client.
type Assistant struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates an Assistant. Zero settings fall back to defaults.
func New(client anthropic.Client, cfg config.AnthropicConfig) *Assistant {
	a := &Assistant{client: client, model: cfg.Model, maxTokens: cfg.MaxTokens}
	if a.model == "" {
		a.model = defaultModel
	}
	if a.maxTokens <= 0 {
		a.maxTokens = defaultMaxTokens
	}
	return a
}

// SendMessage analyzes message as an ISO 9001 case. Messages asking for a
// real-company case get one instead.
func (a *Assistant) SendMessage(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if wantsRealCase(message) {
		return a.complete(ctx, "real_case", systemRealCase, realCasePrompt, 0.7, caseMaxTokens)
	}
	return a.complete(ctx, "chat", systemAnalyze, message, 0.7, a.maxTokens)
}

// GenerateCase writes a fictional case study matching filter.
func (a *Assistant) GenerateCase(ctx context.Context, filter model.GenerationFilter) (string, error) {
	return a.complete(ctx, "generate_case", systemGenerate, generatePrompt(filter), 0.7, caseMaxTokens)
}

// Compare scores userAnalysis against aiAnalysis. The summary, the
// alignment percentage and the impact/probability pair are requested
// concurrently.
func (a *Assistant) Compare(ctx context.Context, aiAnalysis, userAnalysis string) (*model.ComparisonResult, error) {
	var summary, percent, risk string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = a.complete(gctx, "compare_summary", systemSummary, summaryPrompt(aiAnalysis, userAnalysis), 0.5, summaryMaxTokens)
		return err
	})
	g.Go(func() error {
		var err error
		percent, err = a.complete(gctx, "compare_percent", systemPercent, percentPrompt(aiAnalysis, userAnalysis), 0, scoreMaxTokens)
		return err
	})
	g.Go(func() error {
		var err error
		risk, err = a.complete(gctx, "compare_risk", systemRiskScore, riskPrompt(aiAnalysis, userAnalysis), 0, scoreMaxTokens)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	effectiveness, err := ParsePercent(percent)
	if err != nil {
		return nil, err
	}
	impact, probability, err := ParseRisk(risk)
	if err != nil {
		return nil, err
	}

	score := float64(impact * probability)
	return &model.ComparisonResult{
		Summary:       summary,
		Effectiveness: effectiveness,
		Impact:        float64(impact),
		Probability:   float64(probability),
		Risk:          score,
		Level:         model.RiskLevel(score),
	}, nil
}

func (a *Assistant) complete(ctx context.Context, op, system, prompt string, temperature float64, maxTokens int64) (string, error) {
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   maxTokens,
		System:      []anthropic.SystemBlock{{Text: system, Cached: op == "chat"}},
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temperature,
	})
	if err != nil {
		return "", eris.Wrapf(err, "assistant: %s", op)
	}
	resp.Usage.Log(a.model, op)

	text := resp.Text()
	zap.L().Debug("assistant: completion",
		zap.String("op", op),
		zap.String("stop_reason", resp.StopReason),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

var (
	percentRe = regexp.MustCompile(`(\d{1,3})\s*%?`)
	riskRe    = regexp.MustCompile(`(\d+)\s*,\s*(\d+)`)
)

// ParsePercent extracts the first integer of s and formats it as "NN%",
// clamped to 0-100.
func ParsePercent(s string) (string, error) {
	m := percentRe.FindStringSubmatch(s)
	if m == nil {
		return "", eris.Errorf("assistant: no percentage in %q", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", eris.Wrapf(err, "assistant: parse percentage %q", s)
	}
	return strconv.Itoa(clamp(n, 0, 100)) + "%", nil
}

// ParseRisk extracts an "impacto,probabilidad" pair from s. Each value is
// clamped to 1-5.
func ParseRisk(s string) (impact, probability int, err error) {
	m := riskRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, eris.Errorf("assistant: no impact,probability pair in %q", s)
	}
	impact, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, eris.Wrapf(err, "assistant: parse impact %q", s)
	}
	probability, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, eris.Wrapf(err, "assistant: parse probability %q", s)
	}
	return clamp(impact, 1, 5), clamp(probability, 1, 5), nil
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
