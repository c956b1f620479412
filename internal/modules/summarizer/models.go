package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
)

// ModelInfo is one model offered by the configured provider.
type ModelInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	ContextLength int    `json:"context_length,omitempty"`
	Default       bool   `json:"default"`
}

// ListModels asks the provider which models it serves, sorted by ID.
// The configured model is flagged as the default.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var (
		models []ModelInfo
		err    error
	)
	switch {
	case usesChatCompletionsHTTP(c.provider.Type):
		models, err = c.listModelsHTTP(ctx)
	case isAnthropicProviderType(c.provider.Type):
		models, err = c.listAnthropicModels(ctx)
	default:
		models, err = c.listOpenAIModels(ctx)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	for i := range models {
		models[i].Default = models[i].ID == c.provider.DefaultModel
	}
	return models, nil
}

func modelsURL(c *Client) string {
	if isOpenRouterProviderType(c.provider.Type) {
		return normalizeOpenRouterEndpoint(c.provider.Endpoint) + "/models"
	}
	return normalizeOpenAICompatibleEndpoint(c.provider.Endpoint) + "/v1/models"
}

func (c *Client) listModelsHTTP(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL(c), nil)
	if err != nil {
		return nil, err
	}
	if key := strings.TrimSpace(c.provider.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("list models error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Data []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			ContextLength int    `json:"context_length"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	out := make([]ModelInfo, 0, len(result.Data))
	for _, m := range result.Data {
		out = append(out, ModelInfo{ID: m.ID, Name: m.Name, ContextLength: m.ContextLength})
	}
	return out, nil
}

func (c *Client) listOpenAIModels(ctx context.Context) ([]ModelInfo, error) {
	client, err := newOpenAIClient(&c.provider)
	if err != nil {
		return nil, err
	}
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		out = append(out, ModelInfo{ID: m.ID})
	}
	return out, nil
}

func (c *Client) listAnthropicModels(ctx context.Context) ([]ModelInfo, error) {
	client, err := newAnthropicClient(&c.provider)
	if err != nil {
		return nil, err
	}
	page, err := client.Models.List(ctx, anthropicclient.ModelListParams{})
	if err != nil {
		return nil, err
	}
	out := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		out = append(out, ModelInfo{ID: m.ID, Name: m.DisplayName})
	}
	return out, nil
}
