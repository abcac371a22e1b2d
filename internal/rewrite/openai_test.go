package rewrite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"light", ModeLight},
		{" Aggressive ", ModeAggressive},
		{"balanced", ModeBalanced},
		{"", ModeBalanced},
		{"extreme", ModeBalanced},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseMode(tt.in), tt.in)
	}
}

func TestMode_Instruction(t *testing.T) {
	assert.Equal(t, "Minimal changes.", ModeLight.Instruction())
	assert.Equal(t, "Balanced.", ModeBalanced.Instruction())
	assert.Equal(t, "Aggressively rewrite.", ModeAggressive.Instruction())
}

func newUpstream(t *testing.T, handler func(t *testing.T, req chatRequest) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(t, req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_Rewrite(t *testing.T) {
	srv := newUpstream(t, func(t *testing.T, req chatRequest) (int, string) {
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)
		assert.Equal(t, 8, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.True(t, strings.HasSuffix(req.Messages[0].Content, "\nIntensity: Aggressively rewrite."))
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "值得注意", req.Messages[1].Content)
		return http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"注意"}}]}`
	})

	client := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Temperature: 0.7}, zap.NewNop())
	out, err := client.Rewrite(context.Background(), "值得注意", ModeAggressive)
	require.NoError(t, err)
	assert.Equal(t, "注意", out)
}

func TestOpenAIClient_MaxTokensCapped(t *testing.T) {
	srv := newUpstream(t, func(t *testing.T, req chatRequest) (int, string) {
		assert.Equal(t, 4096, req.MaxTokens)
		return http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`
	})

	client := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test"}, zap.NewNop())
	_, err := client.Rewrite(context.Background(), strings.Repeat("a", 5000), ModeBalanced)
	require.NoError(t, err)
}

func TestOpenAIClient_EmptyChoiceReturnsOriginal(t *testing.T) {
	srv := newUpstream(t, func(t *testing.T, req chatRequest) (int, string) {
		return http.StatusOK, `{"choices":[]}`
	})

	client := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test"}, zap.NewNop())
	out, err := client.Rewrite(context.Background(), "Moreover, hello.", ModeLight)
	require.NoError(t, err)
	assert.Equal(t, "Moreover, hello.", out)
}

func TestOpenAIClient_UpstreamError(t *testing.T) {
	srv := newUpstream(t, func(t *testing.T, req chatRequest) (int, string) {
		return http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`
	})

	client := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test"}, zap.NewNop())
	_, err := client.Rewrite(context.Background(), "text", ModeBalanced)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRewriteFailed)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}

func TestOpenAIClient_NotConfigured(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{}, nil)
	assert.False(t, client.Configured())
	assert.Equal(t, "gpt-4o-mini", client.Model())

	_, err := client.Rewrite(context.Background(), "text", ModeBalanced)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
