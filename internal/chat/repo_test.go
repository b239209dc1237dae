package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/community-chat/internal/common"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Space{}, &Message{}, &Attachment{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestAppendMessage_WritesAttachments(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)

	msg := &Message{
		SpaceID:   "s1",
		ChannelID: "c1",
		SenderID:  "system-responder",
		Content:   "Here's my video response!",
		Attachments: []Attachment{{
			FileURL:        "https://cdn.example.com/v.mp4",
			FileName:       "v.mp4",
			MimeType:       MimeTypeMP4,
			UploadStatus:   UploadStatusDone,
			UploadProgress: UploadProgressDone,
		}},
	}
	if err := repo.AppendMessage(context.Background(), msg); err != nil {
		t.Fatalf("append: %v", err)
	}
	if msg.ID == "" || msg.Attachments[0].ID == "" {
		t.Fatalf("expected ids to be assigned, got msg=%q att=%q", msg.ID, msg.Attachments[0].ID)
	}

	got, err := repo.ListRecentMessages(context.Background(), "s1", "c1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || len(got[0].Attachments) != 1 {
		t.Fatalf("expected 1 message with 1 attachment, got %+v", got)
	}
	if got[0].Attachments[0].FileURL != "https://cdn.example.com/v.mp4" {
		t.Fatalf("unexpected fileUrl %q", got[0].Attachments[0].FileURL)
	}
}

func TestListRecentMessages_WindowAndOrder(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		if err := repo.AppendMessage(context.Background(), &Message{
			SpaceID:   "s1",
			ChannelID: "c1",
			SenderID:  "u1",
			Content:   fmt.Sprintf("m%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("seed msg %d: %v", i, err)
		}
	}
	// other channel must not leak in
	_ = repo.AppendMessage(context.Background(), &Message{SpaceID: "s1", ChannelID: "c2", SenderID: "u1", Content: "x"})

	got, err := repo.ListRecentMessages(context.Background(), "s1", "c1", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[0].Content != "m2" || got[2].Content != "m4" {
		t.Fatalf("expected m2..m4 ascending, got %q..%q", got[0].Content, got[2].Content)
	}
}

func TestGetSpace_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)

	_, err := repo.GetSpace(context.Background(), "missing")
	var nf *common.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	if err := repo.CreateSpace(context.Background(), &Space{SpaceID: "s1", Name: "General"}); err != nil {
		t.Fatalf("create space: %v", err)
	}
	s, err := repo.GetSpace(context.Background(), "s1")
	if err != nil || s.Name != "General" {
		t.Fatalf("unexpected space=%+v err=%v", s, err)
	}
}
