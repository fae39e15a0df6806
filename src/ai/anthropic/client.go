package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stake-plus/getfunded/src/ai/core"
	"github.com/stake-plus/getfunded/src/webclient"
)

const (
	anthropicEndpoint  = "https://api.anthropic.com/v1/messages"
	defaultModel       = "claude-sonnet-4-5"
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
	requestTimeout     = 90 * time.Second
)

func init() {
	core.RegisterProvider("claude", NewClient, "anthropic")
}

type client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	defaults   core.Options
}

// NewClient constructs an Anthropic-backed implementation of core.Client.
func NewClient(cfg core.FactoryConfig) (core.Client, error) {
	if cfg.ClaudeKey == "" {
		return nil, fmt.Errorf("anthropic: API key not configured")
	}

	endpoint := anthropicEndpoint
	if cfg.BaseURL != "" {
		endpoint = strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	}

	return &client{
		apiKey:     cfg.ClaudeKey,
		endpoint:   endpoint,
		httpClient: webclient.NewDefault(requestTimeout),
		defaults: core.Options{
			Model:               valueOrDefault(cfg.Model, defaultModel),
			Temperature:         orFloat(cfg.Temperature, defaultTemperature),
			MaxCompletionTokens: orInt(cfg.MaxCompletionTokens, defaultMaxTokens),
			SystemPrompt:        cfg.SystemPrompt,
		},
	}, nil
}

func (c *client) Chat(ctx context.Context, messages []core.Message, opts core.Options) (string, error) {
	merged := c.defaults.Merge(opts)

	turns := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == core.RoleAssistant {
			role = "assistant"
		}
		turns = append(turns, map[string]any{
			"role": role,
			"content": []map[string]string{
				{"type": "text", "text": m.Content},
			},
		})
	}

	body := map[string]any{
		"model":       merged.Model,
		"max_tokens":  orInt(merged.MaxCompletionTokens, defaultMaxTokens),
		"temperature": merged.Temperature,
		"messages":    turns,
	}
	if merged.SystemPrompt != "" {
		body["system"] = merged.SystemPrompt
	}

	payload, err := webclient.PostJSON(ctx, c.httpClient, c.endpoint, map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}, body)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var result anthropicResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", fmt.Errorf("anthropic: parse error: %w", err)
	}

	text := extractText(result.Content)
	if text == "" {
		return "", fmt.Errorf("anthropic: empty response")
	}
	return text, nil
}

func extractText(chunks []anthropicContent) string {
	var b strings.Builder
	for _, chunk := range chunks {
		if chunk.Type != "" && chunk.Type != "text" {
			continue
		}
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(chunk.Text)
	}
	return strings.TrimSpace(b.String())
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

func valueOrDefault(val, def string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}
