package responder

import (
	"context"
	"time"

	"github.com/suPer8Hu/community-chat/internal/chat"
	"github.com/suPer8Hu/community-chat/internal/video"
)

const (
	StatusCompleted        = "completed"
	StatusSkippedSelf      = "skipped_self"
	StatusSkippedDuplicate = "skipped_duplicate"

	FallbackTranscript = "Here's my video response!"
)

type IncomingMessage struct {
	SpaceID   string    `json:"spaceId"`
	ChannelID string    `json:"channelId"`
	Content   string    `json:"content"`
	SenderID  string    `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
}

// ResponseKey identifies one "response owed" unit for deduplication.
type ResponseKey struct {
	SpaceID   string
	ChannelID string
	Content   string
}

func (k ResponseKey) String() string {
	return k.SpaceID + "|" + k.ChannelID + "|" + k.Content
}

type Options struct {
	// UseHistory feeds recent channel messages to the transcript model.
	UseHistory bool
}

type Result struct {
	Success    bool   `json:"success"`
	Status     string `json:"status"`
	VideoURL   string `json:"videoUrl,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	MessageID  string `json:"messageId,omitempty"`
}

type VideoReplyRequest struct {
	SpaceID    string
	ChannelID  string
	Content    string
	UserID     string
	UseHistory bool
}

type VideoGenerator interface {
	GenerateVideo(ctx context.Context, templateID string, vars video.Variables) (string, error)
}

type VideoWaiter interface {
	Wait(ctx context.Context, jobID string) (*video.Job, error)
}

type TemplatePicker interface {
	Pick(senderIsPrimary bool) string
}

type MessageStore interface {
	AppendMessage(ctx context.Context, m *chat.Message) error
	ListRecentMessages(ctx context.Context, spaceID, channelID string, limit int) ([]chat.Message, error)
}

type Config struct {
	ResponderUserID      string
	PrimaryPersonaUserID string
	HistoryLimit         int
}
