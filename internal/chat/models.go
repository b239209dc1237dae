package chat

import "time"

const (
	MimeTypeMP4        = "video/mp4"
	UploadStatusDone   = "completed"
	UploadProgressDone = 100
)

type Space struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SpaceID     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"spaceId"`
	Name        string    `gorm:"type:varchar(128);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	OwnerID     string    `gorm:"type:varchar(64);index" json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Space) TableName() string { return "spaces" }

type Message struct {
	ID          string       `gorm:"primaryKey;size:26" json:"id"` // ULID
	SpaceID     string       `gorm:"type:varchar(64);not null;index:idx_msg_space_channel,priority:1" json:"spaceId"`
	ChannelID   string       `gorm:"type:varchar(64);not null;index:idx_msg_space_channel,priority:2" json:"channelId"`
	SenderID    string       `gorm:"type:varchar(64);index;not null" json:"senderId"`
	Content     string       `gorm:"type:text;not null" json:"content"`
	Attachments []Attachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachments"`
	CreatedAt   time.Time    `gorm:"index:idx_msg_space_channel,priority:3" json:"timestamp"`
}

func (Message) TableName() string { return "chat_messages" }

// Attachment is immutable once written; a reply's video attachment wraps the
// provider-hosted URL of a completed video job.
type Attachment struct {
	ID             string `gorm:"primaryKey;size:26" json:"id"`
	MessageID      string `gorm:"size:26;index;not null" json:"-"`
	FileURL        string `gorm:"type:text;not null" json:"fileUrl"`
	FileName       string `gorm:"type:varchar(255);not null" json:"fileName"`
	FileSize       int64  `json:"fileSize"`
	MimeType       string `gorm:"type:varchar(64);not null" json:"mimeType"`
	UploadStatus   string `gorm:"type:varchar(16);not null" json:"uploadStatus"`
	UploadProgress int    `json:"uploadProgress"`
}

func (Attachment) TableName() string { return "chat_attachments" }
