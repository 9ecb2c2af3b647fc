package core

import "context"

// Chat roles accepted by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type (
	ChatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	CompletionRequest struct {
		Model       string        `json:"model"`
		Messages    []ChatMessage `json:"messages"`
		Temperature float64       `json:"temperature"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
	}

	// Completer is any service that can run a chat completion against a
	// hosted language model and return the assistant's reply text.
	Completer interface {
		Complete(ctx context.Context, req CompletionRequest) (string, error)
	}
)
