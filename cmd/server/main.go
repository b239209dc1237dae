package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suPer8Hu/community-chat/internal/app"
	"github.com/suPer8Hu/community-chat/internal/config"
	"github.com/suPer8Hu/community-chat/internal/db"
	"github.com/suPer8Hu/community-chat/internal/httpapi"
	"github.com/suPer8Hu/community-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/community-chat/internal/logger"
	"github.com/suPer8Hu/community-chat/internal/store/rabbitmq"
	"github.com/suPer8Hu/community-chat/internal/tracing"
	"go.uber.org/zap"
)

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
		tp, err := tracing.Init(ctx, cfg.OTLPEndpoint, "community-chat-api")
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

	deps := handlers.Deps{
		Responder:   comps.Orchestrator,
		Videos:      comps.Videos,
		Templates:   comps.Selector,
		Speech:      comps.Speech,
		TTSProvider: cfg.TTSProvider,
		Transcriber: comps.Transcriber,
		Spaces:      comps.Repo,
	}
	// typed nil pointers must not reach the interface fields
	if comps.Conversations != nil {
		deps.Conversations = comps.Conversations
	}

	// async ingress is optional; the synchronous path works without a broker
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		lg.Warn("rabbitmq unavailable, async auto-response disabled", zap.Error(err))
	} else {
		defer pub.Close()
		deps.Queue = pub
	}

	r := httpapi.NewRouter(deps, cfg, lg.Named("http"))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// longer than the video polling ceiling
		WriteTimeout: cfg.VideoPollTimeout + 30*time.Second,
	}

	go func() {
		lg.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("http server shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		lg.Error("http shutdown", zap.Error(err))
	}
}
