package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/suPer8Hu/community-chat/internal/app"
	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/config"
	"github.com/suPer8Hu/community-chat/internal/db"
	"github.com/suPer8Hu/community-chat/internal/logger"
	"github.com/suPer8Hu/community-chat/internal/responder"
	"github.com/suPer8Hu/community-chat/internal/store/rabbitmq"
	"github.com/suPer8Hu/community-chat/internal/tracing"
	"go.uber.org/zap"
)

type incomingHandler interface {
	HandleIncomingMessage(ctx context.Context, msg responder.IncomingMessage, opts responder.Options) (*responder.Result, error)
}

func main() {
	cfg := config.Load()

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.Init(ctx, cfg.OTLPEndpoint, "community-chat-worker")
		if err != nil {
			lg.Fatal("tracing init", zap.Error(err))
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(sctx)
		}()
	}

	gdb := db.Connect(cfg.DBDSN)

	comps, err := app.Build(ctx, cfg, gdb, lg)
	if err != nil {
		lg.Fatal("build components", zap.Error(err))
	}
	defer comps.Close()

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitURL,
		Queue:       cfg.RabbitQueue,
		Concurrency: cfg.WorkerConcurrency,
	}, jobHandler(comps.Orchestrator, lg), lg.Named("consumer"))
	if err != nil {
		lg.Fatal("rabbitmq consumer", zap.Error(err))
	}
	defer consumer.Close()

	if err := consumer.Run(ctx); err != nil {
		lg.Fatal("worker stopped", zap.Error(err))
	}
}

// jobHandler decodes one queued message and runs it through the responder.
// Malformed or incomplete jobs are permanent failures; everything else is
// retried by the consumer.
func jobHandler(h incomingHandler, lg *zap.Logger) rabbitmq.Handler {
	return func(ctx context.Context, body []byte) error {
		var job rabbitmq.AutoResponseJob
		if err := json.Unmarshal(body, &job); err != nil {
			return fmt.Errorf("%w: bad message: %v", rabbitmq.ErrPermanent, err)
		}
		if strings.TrimSpace(job.SpaceID) == "" || strings.TrimSpace(job.ChannelID) == "" ||
			strings.TrimSpace(job.Content) == "" || strings.TrimSpace(job.SenderID) == "" {
			return fmt.Errorf("%w: incomplete job", rabbitmq.ErrPermanent)
		}

		start := time.Now()
		res, err := h.HandleIncomingMessage(ctx, responder.IncomingMessage{
			SpaceID:   job.SpaceID,
			ChannelID: job.ChannelID,
			Content:   job.Content,
			SenderID:  job.SenderID,
			Timestamp: job.Timestamp,
		}, responder.Options{UseHistory: job.UseHistory})
		if err != nil {
			var ve *common.ValidationError
			if errors.As(err, &ve) {
				return fmt.Errorf("%w: %v", rabbitmq.ErrPermanent, err)
			}
			return err
		}

		if cost := time.Since(start); cost > 2*time.Minute {
			lg.Info("slow auto-response",
				zap.String("space_id", job.SpaceID),
				zap.String("status", res.Status),
				zap.Duration("cost", cost),
			)
		}
		return nil
	}
}
