package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	appcfg "github.com/yoola/core/internal/config"
	"github.com/yoola/core/internal/modules/summary"
	"go.uber.org/zap"
)

var errEmptyResponse = errors.New("empty response from AI")

// Client calls the configured LLM provider and returns the raw
// structured_summary object. It implements summary.Summarizer.
type Client struct {
	provider    appcfg.AIProvider
	httpClient  *http.Client
	temperature float64
	maxTokens   int
	referer     string
	appTitle    string
	logger      *zap.Logger
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.Named("Summarizer")
		}
	}
}

// WithHTTPClient replaces the client used for raw chat-completions calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New selects a provider from cfg. It fails when no provider is enabled.
func New(cfg appcfg.SummarizerConfig, opts ...Option) (*Client, error) {
	provider := selectProvider(cfg)
	if provider == nil {
		return nil, errNoProvider
	}
	provider.DefaultModel = resolveModel(provider)

	// Per-call deadlines come from the caller's context.
	c := &Client{
		provider:    *provider,
		httpClient:  &http.Client{},
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		referer:     cfg.Referer,
		appTitle:    cfg.AppTitle,
		logger:      zap.NewNop(),
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 2500
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) ProviderName() string {
	if c.provider.Name != "" {
		return c.provider.Name
	}
	return c.provider.ID
}

func (c *Client) Model() string {
	return c.provider.DefaultModel
}

func (c *Client) Summarize(ctx context.Context, in summary.SummarizeInput) (json.RawMessage, error) {
	systemPrompt, prompt := buildSummaryPrompt(in)

	var (
		text string
		err  error
	)
	if usesChatCompletionsHTTP(c.provider.Type) {
		text, err = c.callChatCompletions(ctx, systemPrompt, prompt)
	} else {
		text, err = c.callLanguageModel(ctx, systemPrompt, prompt)
	}
	if err != nil {
		if errors.Is(err, errEmptyResponse) {
			return nil, fmt.Errorf("%w: %w", summary.ErrSummarizerMalformed, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", summary.ErrSummarizerTransport, err)
	}

	raw, err := extractStructuredSummary(text)
	if err != nil {
		c.logger.Debug("unusable model output",
			zap.String("provider", c.ProviderName()),
			zap.Int("length", len(text)),
		)
		return nil, fmt.Errorf("%w: %w", summary.ErrSummarizerMalformed, err)
	}
	return raw, nil
}

func (c *Client) callChatCompletions(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if strings.TrimSpace(c.provider.APIKey) == "" {
		return "", errEmptyAPIKey
	}

	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, map[string]string{
			"role":    "system",
			"content": systemPrompt,
		})
	}
	messages = append(messages, map[string]string{
		"role":    "user",
		"content": prompt,
	})

	body, _ := json.Marshal(map[string]interface{}{
		"model":           c.provider.DefaultModel,
		"messages":        messages,
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     c.temperature,
		"max_tokens":      c.maxTokens,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatCompletionsURL(&c.provider), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.provider.APIKey))
	req.Header.Set("Content-Type", "application/json")
	if isOpenRouterProviderType(c.provider.Type) {
		if c.referer != "" {
			req.Header.Set("HTTP-Referer", c.referer)
		}
		if c.appTitle != "" {
			req.Header.Set("X-Title", c.appTitle)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("chat completions error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: %w", errEmptyResponse, err)
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return "", fmt.Errorf("chat completions error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", errEmptyResponse
	}
	return result.Choices[0].Message.Content, nil
}

// extractStructuredSummary pulls the structured_summary object out of the
// model output. A bare summary object (one carrying language_code) is
// accepted as is.
func extractStructuredSummary(text string) (json.RawMessage, error) {
	var output map[string]json.RawMessage
	if err := unmarshalAIJSON(text, &output); err != nil {
		return nil, err
	}
	if raw, ok := output["structured_summary"]; ok && !isJSONNull(raw) {
		return raw, nil
	}
	if _, ok := output["language_code"]; ok {
		cleaned, err := json.Marshal(output)
		if err != nil {
			return nil, err
		}
		return cleaned, nil
	}
	return nil, errors.New("structured_summary missing from AI response")
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func unmarshalAIJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}

	return errors.New("invalid JSON response from AI")
}

var _ summary.Summarizer = (*Client)(nil)
