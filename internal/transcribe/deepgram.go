package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/metrics"
)

// ErrTranscription means the model answered but produced no text.
var ErrTranscription = &common.UpstreamError{Provider: "deepgram", Detail: "no transcript returned"}

type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error)
}

// DeepgramClient sends a prerecorded audio blob to Deepgram's /v1/listen.
type DeepgramClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewDeepgramClient(apiKey, model string) *DeepgramClient {
	if model == "" {
		model = "nova-2"
	}
	return &DeepgramClient{
		BaseURL: "https://api.deepgram.com",
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type listenResp struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (c *DeepgramClient) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	text, err := c.transcribe(ctx, audio, contentType)
	metrics.ObserveProvider("deepgram", err)
	return text, err
}

func (c *DeepgramClient) transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", common.MissingAPIKey("deepgram")
	}
	if contentType == "" {
		contentType = "audio/webm"
	}

	q := url.Values{}
	q.Set("model", c.Model)
	q.Set("smart_format", "true")
	endpoint := fmt.Sprintf("%s/v1/listen?%s", strings.TrimRight(c.BaseURL, "/"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, audio)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+c.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &common.UpstreamError{Provider: "deepgram", StatusCode: resp.StatusCode, Detail: msg}
	}

	var decoded listenResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &common.UpstreamError{Provider: "deepgram", Detail: "malformed response: " + err.Error()}
	}
	for _, ch := range decoded.Results.Channels {
		for _, alt := range ch.Alternatives {
			if t := strings.TrimSpace(alt.Transcript); t != "" {
				return t, nil
			}
		}
	}
	return "", ErrTranscription
}
