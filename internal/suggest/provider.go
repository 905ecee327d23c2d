// Package suggest proxies search autocomplete queries to a
// text-generation service, falling back to a fixed template list when
// the service is unavailable or returns something unusable.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/logging"
)

// DefaultLimit caps suggestion counts when the caller does not ask
// for a specific number.
const DefaultLimit = 5

// Config points the provider at an OpenAI-compatible completion
// endpoint. An empty BaseURL disables the remote call entirely and
// every query gets the fallback list.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Provider answers suggestion queries.
type Provider struct {
	cfg    Config
	client *resty.Client
	logger *logging.Logger
}

// New creates a suggestion provider.
func New(cfg Config, logger *logging.Logger) *Provider {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &Provider{cfg: cfg, client: client, logger: logger}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Suggestions returns up to limit completions for query. Queries
// shorter than two runes get an empty list. Remote failures are
// logged, never surfaced: the fallback list answers instead.
func (p *Provider) Suggestions(ctx context.Context, query string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len([]rune(strings.TrimSpace(query))) < 2 {
		return []string{}
	}

	if p.cfg.BaseURL != "" {
		suggestions, err := p.fetch(ctx, query, limit)
		if err == nil {
			return suggestions
		}
		p.logger.Warn("Suggestion service failed, using fallback",
			zap.String("query", query), zap.Error(err))
	}
	return Fallback(query, limit)
}

func (p *Provider) fetch(ctx context.Context, query string, limit int) ([]string, error) {
	req := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{
				Role: "system",
				Content: "You are a search suggestion assistant. Given a partial search query, " +
					"provide relevant autocomplete suggestions. Return ONLY a JSON array of " +
					"strings with suggested completions. No explanations, just the array.",
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Provide %d search suggestions for: %q", limit, query),
			},
		},
		Temperature: 0.7,
		MaxTokens:   200,
	}

	var out chatResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("suggestion service returned %s", resp.Status())
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("suggestion service returned no choices")
	}

	suggestions, err := parseList(out.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// parseList extracts a JSON string array from model output, tolerating
// prose around the array.
func parseList(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "[") {
		start := strings.Index(content, "[")
		end := strings.LastIndex(content, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON array in response")
		}
		content = content[start : end+1]
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(content), &suggestions); err != nil {
		return nil, fmt.Errorf("malformed suggestion array: %w", err)
	}
	return suggestions, nil
}

// Fallback builds the template-based suggestion list used whenever
// the remote service cannot answer.
func Fallback(query string, limit int) []string {
	fallback := []string{
		query + " tutorial",
		query + " example",
		query + " documentation",
		"how to " + query,
		query + " guide",
	}
	if limit < len(fallback) {
		fallback = fallback[:limit]
	}
	return fallback
}
