package video

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/community-chat/internal/common"
)

func TestGenerateVideo(t *testing.T) {
	var body generateReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/template/tpl-1/generate", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"error":null,"data":{"video_id":"vid-42"}}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL, "key").GenerateVideo(context.Background(), "tpl-1", ScriptVariables("hello"))
	require.NoError(t, err)
	assert.Equal(t, "vid-42", id)
	assert.Equal(t, "hello", body.Variables["script"].Properties["content"])
}

func TestGenerateVideo_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "template not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "key").GenerateVideo(context.Background(), "missing", nil)
	var ue *common.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusNotFound, ue.StatusCode)
}

func TestCheckVideoStatus(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    Job
	}{
		{
			name:    "completed",
			payload: `{"code":100,"data":{"status":"completed","video_url":"https://cdn.example.com/v.mp4"}}`,
			want:    Job{JobID: "v1", Status: StatusCompleted, VideoURL: "https://cdn.example.com/v.mp4"},
		},
		{
			name:    "failed with detail",
			payload: `{"code":100,"data":{"status":"failed","error":{"message":"avatar unavailable"}}}`,
			want:    Job{JobID: "v1", Status: StatusFailed, Error: "avatar unavailable"},
		},
		{
			name:    "failed without detail",
			payload: `{"code":100,"data":{"status":"failed"}}`,
			want:    Job{JobID: "v1", Status: StatusFailed, Error: defaultFailureDetail},
		},
		{
			name:    "waiting",
			payload: `{"code":100,"data":{"status":"waiting"}}`,
			want:    Job{JobID: "v1", Status: StatusPending},
		},
		{
			name:    "processing",
			payload: `{"code":100,"data":{"status":"processing"}}`,
			want:    Job{JobID: "v1", Status: StatusProcessing},
		},
		{
			name:    "unknown vocabulary",
			payload: `{"code":100,"data":{"status":"rendering"}}`,
			want:    Job{JobID: "v1", Status: StatusProcessing},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/video_status.get", r.URL.Path)
				assert.Equal(t, "v1", r.URL.Query().Get("video_id"))
				_, _ = w.Write([]byte(tc.payload))
			}))
			defer srv.Close()

			got, err := NewClient(srv.URL, "key").CheckVideoStatus(context.Background(), "v1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestMapStatus_CompletedWithoutURL(t *testing.T) {
	_, err := MapStatus("v1", "completed", "", "")
	var ue *common.UpstreamError
	assert.True(t, errors.As(err, &ue))
}

func TestJobAdvance_ForwardOnly(t *testing.T) {
	j := &Job{JobID: "v1", Status: StatusProcessing}
	require.NoError(t, j.Advance(&Job{Status: StatusPending}))
	assert.Equal(t, StatusProcessing, j.Status)

	require.NoError(t, j.Advance(&Job{Status: StatusCompleted, VideoURL: "u"}))
	assert.Equal(t, StatusCompleted, j.Status)

	assert.Error(t, j.Advance(&Job{Status: StatusFailed, Error: "late"}))
	assert.Equal(t, "u", j.VideoURL)
}

func TestGenerateVideo_MissingKey(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", "").GenerateVideo(context.Background(), "tpl", ScriptVariables("hi"))
	var ue *common.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "heygen", ue.Provider)
	assert.Contains(t, common.MessageFor(err), "api key is not configured")
}
