package responder

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/suPer8Hu/community-chat/internal/ai"
	"github.com/suPer8Hu/community-chat/internal/chat"
	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/dedup"
	"github.com/suPer8Hu/community-chat/internal/metrics"
	"github.com/suPer8Hu/community-chat/internal/video"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const transcriptPrompt = `You are the community's video persona. Write the script for a short
spoken video reply (two or three sentences, under 60 words) to the latest
message. Plain spoken text only: no stage directions, emojis or markdown.`

// Orchestrator turns an inbound chat message into a video reply posted back
// into the same channel.
type Orchestrator struct {
	locker    dedup.Locker
	videos    VideoGenerator
	waiter    VideoWaiter
	templates TemplatePicker
	store     MessageStore
	llm       ai.Provider // optional
	cfg       Config
	logger    *zap.Logger
}

func NewOrchestrator(
	locker dedup.Locker,
	videos VideoGenerator,
	waiter VideoWaiter,
	templates TemplatePicker,
	store MessageStore,
	llm ai.Provider,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		locker:    locker,
		videos:    videos,
		waiter:    waiter,
		templates: templates,
		store:     store,
		llm:       llm,
		cfg:       cfg,
		logger:    logger,
	}
}

func (o *Orchestrator) tracer() trace.Tracer {
	return otel.Tracer("responder")
}

// HandleIncomingMessage decides whether msg is owed a reply and, if so, drives
// it to a posted video message. Skips are successful results, not errors.
func (o *Orchestrator) HandleIncomingMessage(ctx context.Context, msg IncomingMessage, opts Options) (*Result, error) {
	ctx, span := o.tracer().Start(ctx, "Orchestrator.HandleIncomingMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.space_id", msg.SpaceID),
		attribute.String("chat.channel_id", msg.ChannelID),
	)

	if msg.SenderID == o.cfg.ResponderUserID {
		metrics.AutoResponsesTotal.WithLabelValues(StatusSkippedSelf).Inc()
		return &Result{Success: true, Status: StatusSkippedSelf}, nil
	}

	key := ResponseKey{SpaceID: msg.SpaceID, ChannelID: msg.ChannelID, Content: msg.Content}
	log := o.logger.With(
		zap.String("space_id", msg.SpaceID),
		zap.String("channel_id", msg.ChannelID),
		zap.String("sender_id", msg.SenderID),
	)

	return o.withLease(ctx, key, log, func(ctx context.Context) (*Result, error) {
		transcript, err := o.replyTranscript(ctx, msg.SpaceID, msg.ChannelID, msg.Content, opts.UseHistory)
		if err != nil {
			return nil, fmt.Errorf("generate transcript: %w", err)
		}
		senderIsPrimary := o.cfg.PrimaryPersonaUserID != "" && msg.SenderID == o.cfg.PrimaryPersonaUserID
		return o.produce(ctx, msg.SpaceID, msg.ChannelID, transcript, o.templates.Pick(senderIsPrimary), log)
	})
}

// VideoReply produces a video reply on explicit request: either speaking
// Content verbatim or, with UseHistory, a script written from recent history.
func (o *Orchestrator) VideoReply(ctx context.Context, req VideoReplyRequest) (*Result, error) {
	ctx, span := o.tracer().Start(ctx, "Orchestrator.VideoReply")
	defer span.End()

	switch {
	case strings.TrimSpace(req.SpaceID) == "":
		return nil, common.Missing("spaceId")
	case strings.TrimSpace(req.ChannelID) == "":
		return nil, common.Missing("channelId")
	case strings.TrimSpace(req.UserID) == "":
		return nil, common.Missing("userId")
	case strings.TrimSpace(req.Content) == "" && !req.UseHistory:
		return nil, &common.ValidationError{Field: "content", Reason: "is required unless useHistory is set"}
	}

	key := ResponseKey{SpaceID: req.SpaceID, ChannelID: req.ChannelID, Content: req.Content}
	log := o.logger.With(
		zap.String("space_id", req.SpaceID),
		zap.String("channel_id", req.ChannelID),
		zap.String("user_id", req.UserID),
	)

	return o.withLease(ctx, key, log, func(ctx context.Context) (*Result, error) {
		transcript := strings.TrimSpace(req.Content)
		if req.UseHistory {
			if o.llm == nil {
				return nil, errors.New("history-based replies need a language model provider")
			}
			var err error
			transcript, err = o.replyTranscript(ctx, req.SpaceID, req.ChannelID, req.Content, true)
			if err != nil {
				return nil, fmt.Errorf("generate transcript: %w", err)
			}
		}
		return o.produce(ctx, req.SpaceID, req.ChannelID, transcript, o.templates.Pick(true), log)
	})
}

// withLease runs fn while holding the dedup lease for key. The lease is
// released whatever fn returns, panics included.
func (o *Orchestrator) withLease(ctx context.Context, key ResponseKey, log *zap.Logger, fn func(context.Context) (*Result, error)) (*Result, error) {
	release, ok, err := o.locker.Acquire(ctx, key.String())
	if err != nil {
		metrics.AutoResponsesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("acquire dedup lease: %w", err)
	}
	if !ok {
		log.Info("response already in flight, skipping")
		metrics.AutoResponsesTotal.WithLabelValues(StatusSkippedDuplicate).Inc()
		return &Result{Success: true, Status: StatusSkippedDuplicate}, nil
	}
	defer release()

	metrics.InflightResponses.Inc()
	defer metrics.InflightResponses.Dec()

	start := time.Now()
	res, err := fn(ctx)
	metrics.AutoResponseDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("video response failed", zap.Error(err), zap.Duration("cost", time.Since(start)))
		metrics.AutoResponsesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.AutoResponsesTotal.WithLabelValues(StatusCompleted).Inc()
	return res, nil
}

// produce renders transcript with templateID, waits for the video and posts
// the reply message.
func (o *Orchestrator) produce(ctx context.Context, spaceID, channelID, transcript, templateID string, log *zap.Logger) (*Result, error) {
	script := transcript
	if strings.TrimSpace(script) == "" {
		script = FallbackTranscript
	}

	genStart := time.Now()
	ctx2, spanGen := o.tracer().Start(ctx, "generate_video")
	jobID, err := o.videos.GenerateVideo(ctx2, templateID, video.ScriptVariables(script))
	spanGen.End()
	if err != nil {
		return nil, fmt.Errorf("submit video: %w", err)
	}
	metrics.AutoResponseDuration.WithLabelValues("submit").Observe(time.Since(genStart).Seconds())
	log = log.With(zap.String("video_id", jobID), zap.String("template_id", templateID))
	log.Info("video job submitted")

	pollStart := time.Now()
	ctx3, spanPoll := o.tracer().Start(ctx, "poll_video")
	job, err := o.waiter.Wait(ctx3, jobID)
	spanPoll.End()
	metrics.AutoResponseDuration.WithLabelValues("poll").Observe(time.Since(pollStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("wait for video %s: %w", jobID, err)
	}
	if job.Status == video.StatusFailed {
		return nil, &common.UpstreamError{Provider: "heygen", Detail: fmt.Sprintf("video %s failed: %s", jobID, job.Error)}
	}
	if job.Status != video.StatusCompleted || job.VideoURL == "" {
		return nil, &common.UpstreamError{Provider: "heygen", Detail: fmt.Sprintf("video %s ended without a video url", jobID)}
	}

	body := strings.TrimSpace(transcript)
	if body == "" {
		body = FallbackTranscript
	}
	reply := &chat.Message{
		SpaceID:     spaceID,
		ChannelID:   channelID,
		SenderID:    o.cfg.ResponderUserID,
		Content:     body,
		Attachments: []chat.Attachment{VideoAttachment(jobID, job.VideoURL)},
	}
	ctx4, spanStore := o.tracer().Start(ctx, "append_reply")
	err = o.store.AppendMessage(ctx4, reply)
	spanStore.End()
	if err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}

	log.Info("video reply posted", zap.String("message_id", reply.ID), zap.Duration("cost", time.Since(genStart)))
	return &Result{
		Success:    true,
		Status:     StatusCompleted,
		VideoURL:   job.VideoURL,
		Transcript: body,
		MessageID:  reply.ID,
	}, nil
}

// VideoAttachment wraps a completed video's URL as a message attachment.
func VideoAttachment(jobID, videoURL string) chat.Attachment {
	name := path.Base(strings.SplitN(videoURL, "?", 2)[0])
	if name == "" || name == "." || name == "/" || !strings.Contains(name, ".") {
		name = jobID + ".mp4"
	}
	return chat.Attachment{
		FileURL:        videoURL,
		FileName:       name,
		MimeType:       chat.MimeTypeMP4,
		UploadStatus:   chat.UploadStatusDone,
		UploadProgress: chat.UploadProgressDone,
	}
}

// replyTranscript asks the language model for a spoken reply. Without a
// provider the fixed fallback is used.
func (o *Orchestrator) replyTranscript(ctx context.Context, spaceID, channelID, content string, useHistory bool) (string, error) {
	if o.llm == nil {
		return FallbackTranscript, nil
	}
	ctx, span := o.tracer().Start(ctx, "generate_transcript")
	defer span.End()

	msgs := []ai.Message{{Role: ai.RoleSystem, Content: transcriptPrompt}}
	if useHistory {
		history, err := o.store.ListRecentMessages(ctx, spaceID, channelID, o.cfg.HistoryLimit)
		if err != nil {
			return "", fmt.Errorf("load history: %w", err)
		}
		for _, m := range history {
			if m.SenderID == o.cfg.ResponderUserID {
				msgs = append(msgs, ai.Message{Role: ai.RoleAssistant, Content: m.Content})
				continue
			}
			msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: m.SenderID + ": " + m.Content})
		}
	}
	if strings.TrimSpace(content) != "" {
		msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: content})
	}

	out, err := o.llm.Chat(ctx, msgs)
	metrics.ObserveProvider("llm", err)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
