package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/responder"
	"github.com/suPer8Hu/community-chat/internal/store/rabbitmq"
)

type autoResponseReq struct {
	SpaceID    string `json:"spaceId"`
	ChannelID  string `json:"channelId"`
	Message    string `json:"message"`
	UserID     string `json:"userId"`
	UseHistory bool   `json:"useHistory"`
	Async      bool   `json:"async"`
}

func (r autoResponseReq) validate() error {
	switch {
	case strings.TrimSpace(r.SpaceID) == "":
		return common.Missing("spaceId")
	case strings.TrimSpace(r.ChannelID) == "":
		return common.Missing("channelId")
	case strings.TrimSpace(r.Message) == "":
		return common.Missing("message")
	case strings.TrimSpace(r.UserID) == "":
		return common.Missing("userId")
	}
	return nil
}

// AutoResponse is called by the message-store change feed for every new
// message. With async set the message is queued for the worker instead.
func (h *Handler) AutoResponse(c *gin.Context) {
	var req autoResponseReq
	if !h.bind(c, "auto-response", &req) {
		return
	}
	if err := req.validate(); err != nil {
		h.fail(c, "auto-response", err)
		return
	}

	if req.Async {
		if h.Queue == nil {
			h.fail(c, "auto-response", errors.New("async queue is not configured"))
			return
		}
		job := rabbitmq.AutoResponseJob{
			SpaceID:    req.SpaceID,
			ChannelID:  req.ChannelID,
			Content:    req.Message,
			SenderID:   req.UserID,
			UseHistory: req.UseHistory,
			Timestamp:  time.Now().UTC(),
		}
		if err := h.Queue.PublishAutoResponse(c.Request.Context(), job); err != nil {
			h.fail(c, "auto-response", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": true})
		return
	}

	res, err := h.Responder.HandleIncomingMessage(c.Request.Context(), responder.IncomingMessage{
		SpaceID:   req.SpaceID,
		ChannelID: req.ChannelID,
		Content:   req.Message,
		SenderID:  req.UserID,
		Timestamp: time.Now().UTC(),
	}, responder.Options{UseHistory: req.UseHistory})
	if err != nil {
		h.fail(c, "auto-response", err)
		return
	}
	common.OK(c, res)
}

type videoReplyReq struct {
	SpaceID    string `json:"spaceId"`
	ChannelID  string `json:"channelId"`
	Content    string `json:"content"`
	UserID     string `json:"userId"`
	UseHistory bool   `json:"useHistory"`
}

func (h *Handler) VideoReply(c *gin.Context) {
	var req videoReplyReq
	if !h.bind(c, "video-reply", &req) {
		return
	}
	res, err := h.Responder.VideoReply(c.Request.Context(), responder.VideoReplyRequest{
		SpaceID:    req.SpaceID,
		ChannelID:  req.ChannelID,
		Content:    req.Content,
		UserID:     req.UserID,
		UseHistory: req.UseHistory,
	})
	if err != nil {
		h.fail(c, "video-reply", err)
		return
	}
	common.OK(c, gin.H{"success": true, "result": res})
}
