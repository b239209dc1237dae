package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/video"
)

type videoGenerateReq struct {
	Content string `json:"content"`
	// IsSenderGary marks messages from the primary persona; the field name is
	// part of the public request shape.
	IsSenderGary bool `json:"isSenderGary"`
}

// VideoGenerate starts a render and returns the job id without waiting.
func (h *Handler) VideoGenerate(c *gin.Context) {
	var req videoGenerateReq
	if !h.bind(c, "video-generate", &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		h.fail(c, "video-generate", common.Missing("content"))
		return
	}

	templateID := h.Templates.Pick(req.IsSenderGary)
	jobID, err := h.Videos.GenerateVideo(c.Request.Context(), templateID, video.ScriptVariables(req.Content))
	if err != nil {
		h.fail(c, "video-generate", err)
		return
	}
	common.OK(c, gin.H{"videoId": jobID})
}

func (h *Handler) VideoStatus(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("videoId"))
	if jobID == "" {
		h.fail(c, "video-status", common.Missing("videoId"))
		return
	}
	job, err := h.Videos.CheckVideoStatus(c.Request.Context(), jobID)
	if err != nil {
		h.fail(c, "video-status", err)
		return
	}
	common.OK(c, job)
}
