// Package app wires the responder and its providers from configuration. The
// HTTP server and the queue worker build the same graph.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/suPer8Hu/community-chat/internal/ai"
	"github.com/suPer8Hu/community-chat/internal/chat"
	"github.com/suPer8Hu/community-chat/internal/config"
	"github.com/suPer8Hu/community-chat/internal/conversation"
	"github.com/suPer8Hu/community-chat/internal/dedup"
	"github.com/suPer8Hu/community-chat/internal/responder"
	"github.com/suPer8Hu/community-chat/internal/speech"
	"github.com/suPer8Hu/community-chat/internal/store/redisstore"
	"github.com/suPer8Hu/community-chat/internal/transcribe"
	"github.com/suPer8Hu/community-chat/internal/video"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const leasePrefix = "autoresp:lease:"

type Components struct {
	Repo          *chat.Repo
	Orchestrator  *responder.Orchestrator
	Videos        *video.Client
	Selector      *video.Selector
	Speech        *speech.Registry
	Transcriber   transcribe.Transcriber
	Conversations *conversation.Generator // nil without a language model
	Redis         *redisstore.Store        // nil with the memory locker
}

func (c *Components) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

func Build(ctx context.Context, cfg config.Config, gdb *gorm.DB, logger *zap.Logger) (*Components, error) {
	c := &Components{Repo: chat.NewRepo(gdb)}

	locker, rds, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Redis = rds

	llm, err := newLLM(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	if llm != nil {
		c.Conversations = conversation.NewGenerator(llm)
	}

	c.Videos = video.NewClient(cfg.HeyGenBaseURL, cfg.HeyGenAPIKey)
	c.Selector = video.NewSelector(cfg.TemplatePrimary, cfg.TemplateAlternates)
	poller := video.NewPoller(c.Videos, cfg.VideoPollInterval, cfg.VideoPollMaxInterval, cfg.VideoPollTimeout)

	c.Speech = speech.NewRegistry(
		speech.NewOpenAISynthesizer(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey),
		speech.NewElevenLabsSynthesizer(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoices, cfg.ElevenLabsDefaultVoice),
	)
	c.Transcriber = transcribe.NewDeepgramClient(cfg.DeepgramAPIKey, cfg.DeepgramModel)

	c.Orchestrator = responder.NewOrchestrator(
		locker,
		c.Videos,
		poller,
		c.Selector,
		c.Repo,
		llm,
		responder.Config{
			ResponderUserID:      cfg.ResponderUserID,
			PrimaryPersonaUserID: cfg.PrimaryPersonaUserID,
			HistoryLimit:         cfg.ContextHistoryMessage,
		},
		logger.Named("responder"),
	)
	return c, nil
}

func newLocker(ctx context.Context, cfg config.Config, logger *zap.Logger) (dedup.Locker, *redisstore.Store, error) {
	switch cfg.DedupBackend {
	case "", "memory":
		return dedup.NewMemoryLocker(), nil, nil
	case "redis":
		rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rds.Ping(ctx); err != nil {
			_ = rds.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return dedup.NewRedisLocker(rds, leasePrefix, 0, logger.Named("dedup")), rds, nil
	default:
		return nil, nil, fmt.Errorf("unsupported DEDUP_BACKEND=%q", cfg.DedupBackend)
	}
}

// newLLM returns nil for AI_PROVIDER=none; replies then speak a fixed line.
func newLLM(ctx context.Context, cfg config.Config) (ai.Provider, error) {
	if strings.EqualFold(cfg.AIProvider, "none") {
		return nil, nil
	}

	reg := ai.NewRegistry("openai")
	reg.Register("openai", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		if strings.TrimSpace(model) == "" {
			model = cfg.OpenAIModel
		}
		return ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, model), nil
	})
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		if strings.TrimSpace(model) == "" {
			model = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})

	return reg.Get(ctx, cfg.AIProvider, "")
}
