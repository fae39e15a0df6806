package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stake-plus/getfunded/src/ai/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		var body struct {
			Model     string `json:"model"`
			System    string `json:"system"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body.Model)
		assert.Equal(t, "be blunt", body.System)
		assert.Equal(t, 300, body.MaxTokens)
		require.Len(t, body.Messages, 3)
		assert.Equal(t, "user", body.Messages[0].Role)
		assert.Equal(t, "assistant", body.Messages[1].Role)
		assert.Equal(t, "why now?", body.Messages[1].Content[0].Text)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":" Tell me more. "},{"type":"tool_use"}]}`))
	}))
	defer srv.Close()

	c, err := core.NewClient(core.FactoryConfig{Provider: "anthropic", ClaudeKey: "key", Model: "claude-test", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := c.Chat(context.Background(), []core.Message{
		{Role: core.RoleUser, Content: "pitch"},
		{Role: core.RoleAssistant, Content: "why now?"},
		{Role: core.RoleUser, Content: "because"},
	}, core.Options{SystemPrompt: "be blunt", MaxCompletionTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, "Tell me more.", out)
}

func TestChatEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(core.FactoryConfig{ClaudeKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), []core.Message{{Role: core.RoleUser, Content: "hi"}}, core.Options{})
	assert.ErrorContains(t, err, "empty response")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(core.FactoryConfig{})
	assert.Error(t, err)
}
