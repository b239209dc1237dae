package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/community-chat/internal/chat"
	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/community-chat/internal/responder"
	"github.com/suPer8Hu/community-chat/internal/speech"
	"github.com/suPer8Hu/community-chat/internal/store/rabbitmq"
	"github.com/suPer8Hu/community-chat/internal/transcribe"
	"github.com/suPer8Hu/community-chat/internal/video"
	"go.uber.org/zap"
)

type Responder interface {
	HandleIncomingMessage(ctx context.Context, msg responder.IncomingMessage, opts responder.Options) (*responder.Result, error)
	VideoReply(ctx context.Context, req responder.VideoReplyRequest) (*responder.Result, error)
}

type VideoAPI interface {
	GenerateVideo(ctx context.Context, templateID string, vars video.Variables) (string, error)
	CheckVideoStatus(ctx context.Context, jobID string) (*video.Job, error)
}

type ConversationGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type SpaceStore interface {
	GetSpace(ctx context.Context, spaceID string) (*chat.Space, error)
	AppendMessage(ctx context.Context, m *chat.Message) error
}

type JobQueue interface {
	PublishAutoResponse(ctx context.Context, job rabbitmq.AutoResponseJob) error
}

// Deps are the collaborators the API is served from. Queue and Conversations
// may be nil; the routes that need them then answer with an error.
type Deps struct {
	Responder     Responder
	Videos        VideoAPI
	Templates     responder.TemplatePicker
	Speech        *speech.Registry
	TTSProvider   string
	Transcriber   transcribe.Transcriber
	Conversations ConversationGenerator
	Spaces        SpaceStore
	Queue         JobQueue
	Logger        *zap.Logger
}

type Handler struct {
	Deps
	log *zap.Logger
}

func NewHandler(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Deps: d, log: log}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// fail logs err against the request and writes the mapped envelope.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := common.StatusFor(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", fields...)
	} else {
		h.log.Info("request rejected", fields...)
	}
	common.Error(c, err)
}

func (h *Handler) bind(c *gin.Context, op string, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, op, &common.ValidationError{Reason: "invalid json"})
		return false
	}
	return true
}
