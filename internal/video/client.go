package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/metrics"
)

const (
	providerName         = "heygen"
	defaultFailureDetail = "video generation failed"
)

// Client drives a template-based video generation API (HeyGen v2 templates).
type Client struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.heygen.com"
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Variables are template variables keyed by name.
type Variables map[string]Variable

type Variable struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// ScriptVariables fills the spoken-script slot of a persona template.
func ScriptVariables(text string) Variables {
	return Variables{
		"script": {
			Name:       "script",
			Type:       "text",
			Properties: map[string]any{"content": text},
		},
	}
}

type generateReq struct {
	Caption   bool      `json:"caption"`
	Title     string    `json:"title,omitempty"`
	Variables Variables `json:"variables"`
}

type generateResp struct {
	Error *apiError `json:"error"`
	Data  struct {
		VideoID string `json:"video_id"`
	} `json:"data"`
}

type statusResp struct {
	Code  int       `json:"code"`
	Error *apiError `json:"error"`
	Data  struct {
		ID       string    `json:"id"`
		Status   string    `json:"status"`
		VideoURL string    `json:"video_url"`
		Error    *apiError `json:"error"`
	} `json:"data"`
}

type apiError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e *apiError) text() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" && e.Message != "" {
		return e.Message + ": " + e.Detail
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Detail
}

// GenerateVideo submits a templated generation request and returns the job id.
func (c *Client) GenerateVideo(ctx context.Context, templateID string, vars Variables) (string, error) {
	if strings.TrimSpace(templateID) == "" {
		return "", common.Missing("templateId")
	}
	body, err := json.Marshal(generateReq{Caption: false, Variables: vars})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v2/template/%s/generate", c.BaseURL, url.PathEscape(templateID))
	var decoded generateResp
	err = c.do(ctx, http.MethodPost, endpoint, body, &decoded)
	metrics.ObserveProvider(providerName, err)
	if err != nil {
		return "", err
	}
	if msg := decoded.Error.text(); msg != "" {
		return "", &common.UpstreamError{Provider: providerName, Detail: msg}
	}
	if decoded.Data.VideoID == "" {
		return "", &common.UpstreamError{Provider: providerName, Detail: "response carried no video_id"}
	}
	return decoded.Data.VideoID, nil
}

// CheckVideoStatus performs a single poll and maps the provider vocabulary
// onto the four-state model.
func (c *Client) CheckVideoStatus(ctx context.Context, jobID string) (*Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, common.Missing("videoId")
	}
	endpoint := fmt.Sprintf("%s/v1/video_status.get?video_id=%s", c.BaseURL, url.QueryEscape(jobID))

	var decoded statusResp
	err := c.do(ctx, http.MethodGet, endpoint, nil, &decoded)
	metrics.ObserveProvider(providerName, err)
	if err != nil {
		return nil, err
	}
	if msg := decoded.Error.text(); msg != "" {
		return nil, &common.UpstreamError{Provider: providerName, Detail: msg}
	}

	job, err := MapStatus(jobID, decoded.Data.Status, decoded.Data.VideoURL, decoded.Data.Error.text())
	if err != nil {
		return nil, err
	}
	metrics.VideoPollsTotal.WithLabelValues(string(job.Status)).Inc()
	return job, nil
}

// MapStatus converts a provider status into a Job snapshot.
//
//	completed                -> completed (video url required)
//	failed                   -> failed (error detail always set)
//	pending, waiting, queued -> pending
//	anything else            -> processing
func MapStatus(jobID, providerStatus, videoURL, errDetail string) (*Job, error) {
	job := &Job{JobID: jobID}
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "completed":
		if videoURL == "" {
			return nil, &common.UpstreamError{Provider: providerName, Detail: "completed video " + jobID + " has no video_url"}
		}
		job.Status = StatusCompleted
		job.VideoURL = videoURL
	case "failed":
		job.Status = StatusFailed
		job.Error = errDetail
		if job.Error == "" {
			job.Error = defaultFailureDetail
		}
	case "pending", "waiting", "queued":
		job.Status = StatusPending
	default:
		job.Status = StatusProcessing
	}
	return job, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	if c.Client == nil {
		return errors.New("heygen: http client is nil")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return common.MissingAPIKey("heygen")
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("heygen: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &common.UpstreamError{Provider: providerName, StatusCode: resp.StatusCode, Detail: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &common.UpstreamError{Provider: providerName, Detail: "malformed response: " + err.Error()}
	}
	return nil
}
