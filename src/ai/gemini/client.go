package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stake-plus/getfunded/src/ai/core"
	"github.com/stake-plus/getfunded/src/webclient"
	"google.golang.org/genai"
)

const (
	defaultModelName   = "gemini-2.5-flash"
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
	requestTimeout     = 90 * time.Second
)

func init() {
	core.RegisterProvider("gemini", newClient, "google")
}

type client struct {
	genai    *genai.Client
	defaults core.Options
}

func newClient(cfg core.FactoryConfig) (core.Client, error) {
	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}

	gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.GeminiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  webclient.NewDefault(requestTimeout),
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	model := cfg.Model
	if strings.TrimSpace(model) == "" {
		model = defaultModelName
	}

	return &client{
		genai: gc,
		defaults: core.Options{
			Model:               model,
			Temperature:         orFloat(cfg.Temperature, defaultTemperature),
			MaxCompletionTokens: orInt(cfg.MaxCompletionTokens, defaultMaxTokens),
			SystemPrompt:        cfg.SystemPrompt,
		},
	}, nil
}

func (c *client) Chat(ctx context.Context, messages []core.Message, opts core.Options) (string, error) {
	merged := c.defaults.Merge(opts)

	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == core.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(merged.Temperature)),
		MaxOutputTokens: int32(merged.MaxCompletionTokens),
	}
	if merged.SystemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(merged.SystemPrompt, genai.RoleUser)
	}

	resp, err := c.genai.Models.GenerateContent(ctx, merged.Model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return text, nil
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
