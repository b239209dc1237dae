package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/metrics"
)

var openAIVoices = VoiceSet{
	Default: "alloy",
	Voices: map[string]string{
		"alloy":   "alloy",
		"echo":    "echo",
		"fable":   "fable",
		"onyx":    "onyx",
		"nova":    "nova",
		"shimmer": "shimmer",
	},
}

type OpenAISynthesizer struct {
	BaseURL string
	APIKey  string
	Model   string
	Voices  VoiceSet
	Client  *http.Client
}

func NewOpenAISynthesizer(baseURL, apiKey string) *OpenAISynthesizer {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAISynthesizer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   "tts-1",
		Voices:  openAIVoices,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *OpenAISynthesizer) Name() string { return "openai" }

type openAISpeechReq struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, voiceID string) (*Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.Missing("text")
	}
	voice, err := s.Voices.Resolve(voiceID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, common.MissingAPIKey("openai tts")
	}

	b, err := json.Marshal(openAISpeechReq{Model: s.Model, Input: text, Voice: voice, ResponseFormat: "mp3"})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/audio/speech", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	audio, err := readAudio(s.Client, req, "openai")
	metrics.ObserveProvider("openai_tts", err)
	return audio, err
}

// readAudio executes req and returns the binary body of a 2xx response.
func readAudio(client *http.Client, req *http.Request, provider string) (*Audio, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &common.UpstreamError{Provider: provider, StatusCode: resp.StatusCode, Detail: msg}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read audio: %w", provider, err)
	}
	if len(data) == 0 {
		return nil, &common.UpstreamError{Provider: provider, Detail: "empty audio payload"}
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "audio/mpeg"
	}
	return &Audio{Data: data, ContentType: ct}, nil
}
