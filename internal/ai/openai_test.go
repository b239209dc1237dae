package ai

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

func TestOpenAIProvider_Chat(t *testing.T) {
	var got openAIChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "k", "test-model")
	reply, err := p.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hello", got.Messages[1].Content)
}

func TestOpenAIProvider_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider(srv.URL, "k", "").Chat(context.Background(), nil)
	var ue *common.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	reg := NewRegistry("fake")
	reg.Register(" Fake ", func(ctx context.Context, model string) (Provider, error) {
		return NewOllamaProvider("", model), nil
	})

	p, err := reg.Get(context.Background(), "fake", "m")
	require.NoError(t, err)
	assert.Equal(t, "m", p.(*OllamaProvider).Model)

	p, err = reg.Get(context.Background(), "", "m2")
	require.NoError(t, err)
	assert.Equal(t, "m2", p.(*OllamaProvider).Model)
	assert.Equal(t, []string{"fake"}, reg.Names())

	_, err = reg.Get(context.Background(), "nope", "")
	assert.ErrorContains(t, err, "have fake")
}

func TestOpenAIProvider_MissingKeyNamesProvider(t *testing.T) {
	_, err := NewOpenAIProvider("http://127.0.0.1:1", "", "").Chat(context.Background(), nil)
	var ue *common.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "openai", ue.Provider)
	assert.Equal(t, "openai: api key is not configured", common.MessageFor(err))
}
