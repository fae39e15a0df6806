package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	aicore "github.com/stake-plus/getfunded/src/ai/core"
	"github.com/stake-plus/getfunded/src/api/config"
)

const defaultSmokePrompt = "In two sentences, what would make you pass on a seed-stage SaaS pitch?"

var allProviders = []string{"claude", "openai", "gemini"}

var smokeFlags struct {
	providers string
	model     string
	system    string
	prompt    string
	timeout   time.Duration
	temp      float64
	maxBytes  int
}

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Send one chat turn through each AI provider",
	Long: `Sends a single prompt through every listed provider using the keys from
the environment and prints the reply. Use "all" for every built-in provider.`,
	RunE: runSmoke,
}

func init() {
	f := smokeCmd.Flags()
	f.StringVar(&smokeFlags.providers, "providers", "", "Comma-separated provider list or 'all' (default AI_PROVIDER)")
	f.StringVar(&smokeFlags.model, "model", "", "Override model name")
	f.StringVar(&smokeFlags.system, "system", "", "Override system prompt")
	f.StringVar(&smokeFlags.prompt, "prompt", defaultSmokePrompt, "User prompt")
	f.DurationVar(&smokeFlags.timeout, "timeout", 45*time.Second, "Per-provider timeout")
	f.Float64Var(&smokeFlags.temp, "temp", 0.2, "Completion temperature")
	f.IntVar(&smokeFlags.maxBytes, "max-bytes", 1200, "Maximum bytes of output to print per response (0=unlimited)")
}

func runSmoke(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	providers := resolveProviders(pickFirst(smokeFlags.providers, cfg.AI.Provider))
	if len(providers) == 0 {
		return fmt.Errorf("no providers specified")
	}

	failed := 0
	for _, provider := range providers {
		if err := smokeProvider(cmd.Context(), provider, cfg.AI); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] ERROR: %v\n", provider, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d providers failed", failed, len(providers))
	}
	return nil
}

func smokeProvider(ctx context.Context, provider string, ai config.AI) error {
	model := aicore.ResolveModelName(provider, smokeFlags.model)
	client, err := aicore.NewClient(aicore.FactoryConfig{
		Provider:     provider,
		SystemPrompt: pickFirst(smokeFlags.system, ai.SystemPrompt),
		Model:        model,
		Temperature:  smokeFlags.temp,
		OpenAIKey:    ai.OpenAIKey,
		ClaudeKey:    ai.ClaudeKey,
		GeminiKey:    ai.GeminiKey,
	})
	if err != nil {
		return fmt.Errorf("client init: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, smokeFlags.timeout)
	defer cancel()

	start := time.Now()
	reply, err := client.Chat(ctx, []aicore.Message{{Role: aicore.RoleUser, Content: smokeFlags.prompt}}, aicore.Options{})
	if err != nil {
		return err
	}
	fmt.Printf("=== %s (%s) ===\nok (%.1fs)\n%s\n", provider, model, time.Since(start).Seconds(), truncate(reply, smokeFlags.maxBytes))
	return nil
}

func resolveProviders(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "all") {
		return append([]string{}, allProviders...)
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	var out []string
	seen := map[string]struct{}{}
	for _, p := range parts {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func pickFirst(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:limit]) + "...(truncated)"
}
