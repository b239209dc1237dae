package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/metrics"
)

// rachel, the stock ElevenLabs voice
const defaultElevenLabsVoice = "21m00Tcm4TlvDq8ikWAM"

type ElevenLabsSynthesizer struct {
	BaseURL string
	APIKey  string
	ModelID string
	Voices  VoiceSet
	Client  *http.Client
}

func NewElevenLabsSynthesizer(apiKey string, voices map[string]string, defaultVoice string) *ElevenLabsSynthesizer {
	set := VoiceSet{Default: defaultVoice, Voices: make(map[string]string, len(voices)+1)}
	for k, v := range voices {
		set.Voices[k] = v
	}
	if _, ok := set.Voices["rachel"]; !ok {
		set.Voices["rachel"] = defaultElevenLabsVoice
	}
	if set.Default == "" {
		set.Default = defaultElevenLabsVoice
	}
	// the default may be an alias
	if id, ok := set.Voices[set.Default]; ok {
		set.Default = id
	}
	return &ElevenLabsSynthesizer{
		BaseURL: "https://api.elevenlabs.io",
		APIKey:  apiKey,
		ModelID: "eleven_monolingual_v1",
		Voices:  set,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *ElevenLabsSynthesizer) Name() string { return "elevenlabs" }

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenLabsReq struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (*Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.Missing("text")
	}
	voice, err := s.Voices.Resolve(voiceID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, common.MissingAPIKey("elevenlabs")
	}

	b, err := json.Marshal(elevenLabsReq{
		Text:          text,
		ModelID:       s.ModelID,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.5},
	})
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", strings.TrimRight(s.BaseURL, "/"), url.PathEscape(voice))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", s.APIKey)

	audio, err := readAudio(s.Client, req, "elevenlabs")
	metrics.ObserveProvider("elevenlabs", err)
	return audio, err
}
