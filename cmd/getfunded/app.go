package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	aicore "github.com/stake-plus/getfunded/src/ai/core"
	_ "github.com/stake-plus/getfunded/src/ai/providers"
	"github.com/stake-plus/getfunded/src/api/announce"
	"github.com/stake-plus/getfunded/src/api/chain"
	"github.com/stake-plus/getfunded/src/api/config"
	"github.com/stake-plus/getfunded/src/api/conversation"
	"github.com/stake-plus/getfunded/src/api/data"
	"github.com/stake-plus/getfunded/src/api/funding"
	"github.com/stake-plus/getfunded/src/api/webserver"
	"github.com/stake-plus/getfunded/src/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds the process-wide collaborators shared by every subcommand.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	db      *gorm.DB
	rdb     *redis.Client
	store   *data.Store
	events  *data.Events
	closers []func()
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Debug || debugFlag)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	if a.db, err = data.Connect(cfg.DatabaseDSN); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.closers = append(a.closers, func() {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := data.Migrate(a.db); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.cfg.ApplySettings(a.db); err != nil {
		log.Warn("load settings, using environment only", zap.Error(err))
	}

	if a.rdb, err = data.OpenRedis(ctx, cfg.RedisURL); err != nil {
		a.Close()
		return nil, err
	}
	if a.rdb != nil {
		a.closers = append(a.closers, func() { _ = a.rdb.Close() })
	} else {
		log.Info("REDIS_URL not set; daily cap counts stored pitches and events are disabled")
	}

	a.store = data.NewStore(a.db)
	a.events = data.NewEvents(a.rdb)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}

func (a *app) aiClient() (aicore.Client, error) {
	return aicore.NewClient(aicore.FactoryConfig{
		Provider:            a.cfg.AI.Provider,
		Model:               aicore.ResolveModelName(a.cfg.AI.Provider, a.cfg.AI.Model),
		MaxCompletionTokens: a.cfg.AI.MaxTokens,
		OpenAIKey:           a.cfg.AI.OpenAIKey,
		ClaudeKey:           a.cfg.AI.ClaudeKey,
		GeminiKey:           a.cfg.AI.GeminiKey,
	})
}

func (a *app) engine() (*conversation.Engine, error) {
	client, err := a.aiClient()
	if err != nil {
		return nil, fmt.Errorf("ai provider %q: %w", a.cfg.AI.Provider, err)
	}
	a.log.Info("ai provider ready",
		zap.String("provider", a.cfg.AI.Provider),
		zap.String("model", aicore.ResolveModelName(a.cfg.AI.Provider, a.cfg.AI.Model)))
	return conversation.NewEngine(a.store, client, a.events, a.log, conversation.Config{
		Options:         aicore.Options{MaxCompletionTokens: a.cfg.AI.MaxTokens},
		Timeout:         a.cfg.AI.Timeout,
		PersonaOverride: a.cfg.AI.SystemPrompt,
	}), nil
}

func (a *app) disburser(ctx context.Context) (*funding.Disburser, error) {
	var payer funding.Chain
	if a.cfg.PayerConfigured() {
		evm, err := chain.Dial(ctx, chain.Config{
			RPCURL:       a.cfg.Chain.RPCURL,
			ChainID:      a.cfg.Chain.ChainID,
			TokenAddress: a.cfg.Chain.TokenAddress,
			PrivateKey:   a.cfg.Chain.PrivateKey,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, evm.Close)
		a.log.Info("payer wallet ready", zap.String("payer", evm.Payer()), zap.Int64("chain", a.cfg.Chain.ChainID))
		payer = evm
	} else {
		a.log.Warn("PLATFORM_WALLET_PRIVATE_KEY not set; funding claims will fail")
	}

	opts := []funding.Option{
		funding.WithEvents(a.events),
		funding.WithConfirmTimeout(a.cfg.Chain.ConfirmTimeout),
	}
	if a.cfg.Discord.Token != "" && a.cfg.Discord.ChannelID != "" {
		d, err := announce.NewDiscord(a.cfg.Discord.Token, a.cfg.Discord.ChannelID)
		if err != nil {
			return nil, err
		}
		opts = append(opts, funding.WithAnnouncer(d))
	}
	return funding.NewDisburser(a.store, payer, a.log, opts...), nil
}

func (a *app) dailyCounter() webserver.DailyCounter {
	if a.rdb != nil {
		return data.NewRedisDailyCounter(a.rdb)
	}
	return data.NewStoreDailyCounter(a.store)
}
