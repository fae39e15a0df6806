package core

import (
	"context"
	"strings"
)

// Chat roles understood by every provider.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single chat turn.
type Message struct {
	Role    string
	Content string
}

// Options controls model behavior; zero fields fall back to the client defaults.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int
	SystemPrompt        string
}

// Merge overlays the non-zero fields of over onto o.
func (o Options) Merge(over Options) Options {
	if strings.TrimSpace(over.Model) != "" {
		o.Model = over.Model
	}
	if over.Temperature != 0 {
		o.Temperature = over.Temperature
	}
	if over.MaxCompletionTokens != 0 {
		o.MaxCompletionTokens = over.MaxCompletionTokens
	}
	if strings.TrimSpace(over.SystemPrompt) != "" {
		o.SystemPrompt = over.SystemPrompt
	}
	return o
}

// Client is a provider-agnostic chat completion interface.
type Client interface {
	// Chat sends the conversation and returns the model's text reply. An empty
	// reply is reported as an error.
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)
}
