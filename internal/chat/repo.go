package chat

import (
	"context"
	"errors"

	"github.com/suPer8Hu/community-chat/internal/common"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateSpace(ctx context.Context, s *Space) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) GetSpace(ctx context.Context, spaceID string) (*Space, error) {
	var s Space
	if err := r.db.WithContext(ctx).
		Where("space_id = ?", spaceID).
		First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &common.NotFoundError{Kind: "space", ID: spaceID}
		}
		return nil, err
	}
	return &s, nil
}

// AppendMessage assigns ids where missing and writes the message together
// with its attachments.
func (r *Repo) AppendMessage(ctx context.Context, m *Message) error {
	if m.ID == "" {
		id, err := common.NewULID()
		if err != nil {
			return err
		}
		m.ID = id
	}
	for i := range m.Attachments {
		if m.Attachments[i].ID != "" {
			continue
		}
		id, err := common.NewULID()
		if err != nil {
			return err
		}
		m.Attachments[i].ID = id
	}
	return r.db.WithContext(ctx).Create(m).Error
}

// ListRecentMessages returns the newest messages of a channel in ASC order (oldest -> newest).
func (r *Repo) ListRecentMessages(ctx context.Context, spaceID, channelID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var desc []Message
	if err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("space_id = ? AND channel_id = ?", spaceID, channelID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&desc).Error; err != nil {
		return nil, err
	}

	out := make([]Message, 0, len(desc))
	for i := len(desc) - 1; i >= 0; i-- {
		out = append(out, desc[i])
	}
	return out, nil
}
