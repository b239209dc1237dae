package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/community-chat/internal/chat"
	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/conversation"
)

type generateReq struct {
	Prompt    string `json:"prompt"`
	SpaceID   string `json:"spaceId"`
	ChannelID string `json:"channelId"`
}

// Generate writes a synthetic multi-participant conversation. When both
// spaceId and channelId are given the parsed turns are also appended to that
// channel, oldest first.
func (h *Handler) Generate(c *gin.Context) {
	var req generateReq
	if !h.bind(c, "generate", &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		h.fail(c, "generate", common.Missing("prompt"))
		return
	}
	seed := req.SpaceID != "" || req.ChannelID != ""
	if seed && (strings.TrimSpace(req.SpaceID) == "" || strings.TrimSpace(req.ChannelID) == "") {
		h.fail(c, "generate", &common.ValidationError{Field: "channelId", Reason: "spaceId and channelId go together"})
		return
	}
	if h.Conversations == nil {
		h.fail(c, "generate", errors.New("conversation generation is not configured"))
		return
	}

	ctx := c.Request.Context()
	raw, err := h.Conversations.Generate(ctx, req.Prompt)
	if err != nil {
		h.fail(c, "generate", err)
		return
	}
	if !seed {
		common.OK(c, gin.H{"conversation": raw})
		return
	}

	turns, err := conversation.Parse(raw)
	if err != nil {
		h.fail(c, "generate", &common.UpstreamError{Provider: "llm", Detail: err.Error()})
		return
	}
	if _, err := h.Spaces.GetSpace(ctx, req.SpaceID); err != nil {
		h.fail(c, "generate", err)
		return
	}

	base := time.Now().UTC()
	for i, t := range turns {
		m := &chat.Message{
			SpaceID:   req.SpaceID,
			ChannelID: req.ChannelID,
			SenderID:  t.ParticipantID,
			Content:   t.Text,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := h.Spaces.AppendMessage(ctx, m); err != nil {
			h.fail(c, "generate", fmt.Errorf("seed turn %d: %w", i+1, err))
			return
		}
	}
	common.OK(c, gin.H{"conversation": raw, "turns": turns, "seeded": len(turns)})
}

type spaceReq struct {
	SpaceID string `json:"spaceId"`
}

func (h *Handler) Space(c *gin.Context) {
	var req spaceReq
	if !h.bind(c, "spaces", &req) {
		return
	}
	if strings.TrimSpace(req.SpaceID) == "" {
		h.fail(c, "spaces", common.Missing("spaceId"))
		return
	}
	s, err := h.Spaces.GetSpace(c.Request.Context(), req.SpaceID)
	if err != nil {
		h.fail(c, "spaces", err)
		return
	}
	common.OK(c, s)
}
