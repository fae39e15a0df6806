package openai

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

func TestChatPrependsSystemPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o", body.Model)
		require.Len(t, body.Messages, 3)
		assert.Equal(t, map[string]string{"role": "system", "content": "sys"}, body.Messages[0])
		assert.Equal(t, "assistant", body.Messages[2]["role"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Next question."}}]}`))
	}))
	defer srv.Close()

	c, err := core.NewClient(core.FactoryConfig{Provider: "OpenAI", OpenAIKey: "sk-test", BaseURL: srv.URL, SystemPrompt: "sys"})
	require.NoError(t, err)

	out, err := c.Chat(context.Background(), []core.Message{
		{Role: core.RoleUser, Content: "pitch"},
		{Role: core.RoleAssistant, Content: "hm"},
	}, core.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Next question.", out)
}

func TestChatNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, err := newClient(core.FactoryConfig{OpenAIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), []core.Message{{Role: core.RoleUser, Content: "x"}}, core.Options{})
	assert.Error(t, err)
}
