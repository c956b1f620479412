package summarizer

import (
	"context"
	"errors"
	neturl "net/url"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	appcfg "github.com/yoola/core/internal/config"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

const (
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultAnthropicModel  = "claude-haiku-4-5-20251001"
	defaultOpenRouterModel = "meta-llama/llama-4-maverick"
)

var (
	errNoProvider  = errors.New("no enabled summarizer provider")
	errEmptyAPIKey = errors.New("summarizer provider api key is empty")
)

func isOpenAICompatibleProviderType(raw string) bool {
	t := normalizeProviderType(raw)
	return t == "openai-compatible" || t == "openaicompatible"
}

func isAnthropicProviderType(raw string) bool {
	return normalizeProviderType(raw) == "anthropic"
}

func isOpenRouterProviderType(raw string) bool {
	return normalizeProviderType(raw) == "openrouter"
}

// usesChatCompletionsHTTP reports whether the provider is called with a raw
// chat-completions request rather than through an SDK.
func usesChatCompletionsHTTP(raw string) bool {
	return isOpenRouterProviderType(raw) || isOpenAICompatibleProviderType(raw)
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

// selectProvider returns providerID if it is enabled, else the first enabled
// provider. A non-empty model overrides the provider's default model.
func selectProvider(cfg appcfg.SummarizerConfig) *appcfg.AIProvider {
	providerID := strings.TrimSpace(cfg.ProviderID)
	overrideModel := strings.TrimSpace(cfg.Model)

	pick := func(provider appcfg.AIProvider) *appcfg.AIProvider {
		selected := provider
		if overrideModel != "" {
			selected.DefaultModel = overrideModel
		}
		return &selected
	}

	if providerID != "" {
		for _, provider := range cfg.Providers {
			if provider.Enabled && strings.TrimSpace(provider.ID) == providerID {
				return pick(provider)
			}
		}
	}
	for _, provider := range cfg.Providers {
		if provider.Enabled {
			return pick(provider)
		}
	}
	return nil
}

func resolveModel(provider *appcfg.AIProvider) string {
	if model := strings.TrimSpace(provider.DefaultModel); model != "" {
		return model
	}
	switch {
	case isAnthropicProviderType(provider.Type):
		return defaultAnthropicModel
	case isOpenRouterProviderType(provider.Type):
		return defaultOpenRouterModel
	default:
		return defaultOpenAIModel
	}
}

func (c *Client) callLanguageModel(ctx context.Context, systemPrompt, prompt string) (string, error) {
	model, err := buildLanguageModel(&c.provider)
	if err != nil {
		return "", err
	}
	resp, err := jetai.GenerateText(
		ctx,
		buildAIPromptMessages(systemPrompt, prompt),
		jetai.WithModel(model),
		jetai.WithMaxOutputTokens(c.maxTokens),
		jetai.WithTemperature(c.temperature),
	)
	if err != nil {
		return "", err
	}
	return extractTextFromAIResponse(resp)
}

func buildAIPromptMessages(systemPrompt, prompt string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: systemPrompt})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})
	return messages
}

func extractTextFromAIResponse(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errEmptyResponse
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func buildLanguageModel(provider *appcfg.AIProvider) (jetapi.LanguageModel, error) {
	if provider == nil {
		return nil, errNoProvider
	}
	modelID := resolveModel(provider)

	if isAnthropicProviderType(provider.Type) {
		client, err := newAnthropicClient(provider)
		if err != nil {
			return nil, err
		}
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client)), nil
	}

	client, err := newOpenAIClient(provider)
	if err != nil {
		return nil, err
	}
	return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client)), nil
}

func newAnthropicClient(provider *appcfg.AIProvider) (anthropicclient.Client, error) {
	apiKey := strings.TrimSpace(provider.APIKey)
	if apiKey == "" {
		return anthropicclient.Client{}, errEmptyAPIKey
	}
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if endpoint := strings.TrimSpace(provider.Endpoint); endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}
	return anthropicclient.NewClient(opts...), nil
}

func newOpenAIClient(provider *appcfg.AIProvider) (openaiclient.Client, error) {
	apiKey := strings.TrimSpace(provider.APIKey)
	if apiKey == "" {
		return openaiclient.Client{}, errEmptyAPIKey
	}
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(provider.Endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}
	return openaiclient.NewClient(opts...), nil
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

// chatCompletionsURL returns the full chat-completions URL for raw HTTP providers.
func chatCompletionsURL(provider *appcfg.AIProvider) string {
	if isOpenRouterProviderType(provider.Type) {
		return normalizeOpenRouterEndpoint(provider.Endpoint) + "/chat/completions"
	}
	return normalizeOpenAICompatibleEndpoint(provider.Endpoint) + "/v1/chat/completions"
}

func normalizeOpenAICompatibleEndpoint(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "https://api.openai.com"
	}

	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimSuffix(strings.TrimRight(base, "/"), "/v1")
	}

	parsed.Path = strings.TrimSuffix(strings.TrimRight(parsed.Path, "/"), "/v1")
	return strings.TrimRight(parsed.String(), "/")
}

// normalizeOpenRouterEndpoint returns the API base ending in /api/v1.
func normalizeOpenRouterEndpoint(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "https://openrouter.ai/api/v1"
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		cleaned := strings.TrimRight(base, "/")
		cleaned = strings.TrimSuffix(cleaned, "/chat/completions")
		cleaned = strings.TrimSuffix(cleaned, "/api/v1")
		cleaned = strings.TrimSuffix(cleaned, "/v1")
		return cleaned + "/api/v1"
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""
	path := strings.TrimRight(parsed.Path, "/")
	path = strings.TrimSuffix(path, "/chat/completions")
	if strings.HasSuffix(path, "/api/v1") {
		path = strings.TrimSuffix(path, "/api/v1")
	} else if strings.HasSuffix(path, "/v1") {
		path = strings.TrimSuffix(path, "/v1")
	}
	parsed.Path = strings.TrimRight(path, "/") + "/api/v1"
	return strings.TrimRight(parsed.String(), "/")
}
