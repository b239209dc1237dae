package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/speech"
)

const maxAudioUpload = 25 << 20

type ttsReq struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

func (h *Handler) synthesize(c *gin.Context, op, provider string) (*speech.Audio, bool) {
	var req ttsReq
	if !h.bind(c, op, &req) {
		return nil, false
	}
	if strings.TrimSpace(req.Text) == "" {
		h.fail(c, op, common.Missing("text"))
		return nil, false
	}
	if h.Speech == nil {
		h.fail(c, op, errors.New("speech synthesis is not configured"))
		return nil, false
	}
	s, err := h.Speech.Get(provider)
	if err != nil {
		h.fail(c, op, err)
		return nil, false
	}
	audio, err := s.Synthesize(c.Request.Context(), req.Text, req.VoiceID)
	if err != nil {
		h.fail(c, op, err)
		return nil, false
	}
	return audio, true
}

// TTS renders with the configured default backend and returns the audio
// base64-encoded in JSON.
func (h *Handler) TTS(c *gin.Context) {
	audio, ok := h.synthesize(c, "tts", h.TTSProvider)
	if !ok {
		return
	}
	common.OK(c, gin.H{
		"audio":       base64.StdEncoding.EncodeToString(audio.Data),
		"contentType": audio.ContentType,
	})
}

// TTSElevenLabs streams raw audio/mpeg from ElevenLabs.
func (h *Handler) TTSElevenLabs(c *gin.Context) {
	audio, ok := h.synthesize(c, "tts-11labs", "elevenlabs")
	if !ok {
		return
	}
	ct := audio.ContentType
	if ct == "" {
		ct = "audio/mpeg"
	}
	c.Data(http.StatusOK, ct, audio.Data)
}

func (h *Handler) Transcribe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioUpload)
	fh, err := c.FormFile("audio")
	if err != nil {
		h.fail(c, "transcribe", common.Missing("audio"))
		return
	}
	if h.Transcriber == nil {
		h.fail(c, "transcribe", errors.New("transcription is not configured"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, "transcribe", err)
		return
	}
	defer f.Close()

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	text, err := h.Transcriber.Transcribe(c.Request.Context(), f, ct)
	if err != nil {
		h.fail(c, "transcribe", err)
		return
	}
	common.OK(c, gin.H{"transcript": text})
}
