package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/stake-plus/getfunded/src/api/data"
	"gorm.io/gorm"
)

// Agent modes.
const (
	AgentModeAuto   = "auto"
	AgentModeManual = "manual"
)

type Config struct {
	DatabaseDSN   string
	RedisURL      string
	Port          string
	CORSOrigins   []string
	DailyPitchCap int
	AgentMode     string
	PollInterval  time.Duration
	Debug         bool

	AI      AI
	Chain   Chain
	Discord Discord
}

type AI struct {
	Provider     string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Timeout      time.Duration
	OpenAIKey    string
	ClaudeKey    string
	GeminiKey    string
}

type Chain struct {
	RPCURL         string
	ChainID        int64
	TokenAddress   string
	PrivateKey     string
	ConfirmTimeout time.Duration
}

type Discord struct {
	Token     string
	ChannelID string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_DSN", "sqlite://file:getfunded.db?_busy_timeout=5000")
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DAILY_PITCH_CAP", 10)
	v.SetDefault("AGENT_MODE", AgentModeAuto)
	v.SetDefault("POLL_INTERVAL", "15s")
	v.SetDefault("AI_PROVIDER", "claude")
	v.SetDefault("AI_MAX_TOKENS", 1024)
	v.SetDefault("AI_TIMEOUT", "90s")
	v.SetDefault("CHAIN_RPC_URL", "https://mainnet.base.org")
	v.SetDefault("CHAIN_ID", 8453)
	v.SetDefault("TOKEN_ADDRESS", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	v.SetDefault("CHAIN_CONFIRM_TIMEOUT", "2m")
}

// Load reads an optional .env file, then the environment, then the file named
// by GETFUNDED_CONFIG if set. Environment variables win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if file := os.Getenv("GETFUNDED_CONFIG"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	cfg := Config{
		DatabaseDSN:   v.GetString("DATABASE_DSN"),
		RedisURL:      v.GetString("REDIS_URL"),
		Port:          v.GetString("PORT"),
		CORSOrigins:   splitList(v.GetString("CORS_ORIGINS")),
		DailyPitchCap: v.GetInt("DAILY_PITCH_CAP"),
		AgentMode:     strings.ToLower(strings.TrimSpace(v.GetString("AGENT_MODE"))),
		PollInterval:  v.GetDuration("POLL_INTERVAL"),
		Debug:         v.GetBool("DEBUG"),
		AI: AI{
			Provider:     v.GetString("AI_PROVIDER"),
			Model:        v.GetString("AI_MODEL"),
			SystemPrompt: v.GetString("AI_SYSTEM_PROMPT"),
			MaxTokens:    v.GetInt("AI_MAX_TOKENS"),
			Timeout:      v.GetDuration("AI_TIMEOUT"),
			OpenAIKey:    v.GetString("OPENAI_API_KEY"),
			ClaudeKey:    v.GetString("CLAUDE_API_KEY"),
			GeminiKey:    v.GetString("GEMINI_API_KEY"),
		},
		Chain: Chain{
			RPCURL:         v.GetString("CHAIN_RPC_URL"),
			ChainID:        v.GetInt64("CHAIN_ID"),
			TokenAddress:   v.GetString("TOKEN_ADDRESS"),
			PrivateKey:     v.GetString("PLATFORM_WALLET_PRIVATE_KEY"),
			ConfirmTimeout: v.GetDuration("CHAIN_CONFIRM_TIMEOUT"),
		},
		Discord: Discord{
			Token:     v.GetString("DISCORD_TOKEN"),
			ChannelID: v.GetString("DISCORD_CHANNEL_ID"),
		},
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("config: DATABASE_DSN is required")
	}
	if c.AgentMode != AgentModeAuto && c.AgentMode != AgentModeManual {
		return fmt.Errorf("config: AGENT_MODE must be %q or %q, got %q", AgentModeAuto, AgentModeManual, c.AgentMode)
	}
	if c.DailyPitchCap <= 0 {
		return fmt.Errorf("config: DAILY_PITCH_CAP must be positive")
	}
	return nil
}

// ApplySettings overlays the settings table onto the AI configuration so the
// provider, model and persona can be changed without a redeploy.
func (c *Config) ApplySettings(db *gorm.DB) error {
	if err := data.LoadSettings(db); err != nil {
		return err
	}
	c.AI.Provider = GetSetting("ai_provider", "", c.AI.Provider)
	c.AI.Model = GetSetting("ai_model", "", c.AI.Model)
	c.AI.SystemPrompt = GetSetting("ai_system_prompt", "", c.AI.SystemPrompt)
	if mode := GetSetting("agent_mode", "", ""); mode == AgentModeAuto || mode == AgentModeManual {
		c.AgentMode = mode
	}
	return nil
}

// PayerConfigured reports whether disbursements can be signed.
func (c Config) PayerConfigured() bool {
	return strings.TrimSpace(c.Chain.PrivateKey) != ""
}

// GetSetting retrieves a setting with env fallback
func GetSetting(name, envKey, defaultValue string) string {
	val := data.GetSetting(name)
	if val == "" && envKey != "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = defaultValue
	}
	return val
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
