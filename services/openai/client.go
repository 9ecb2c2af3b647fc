package openaisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core"
)

const completionsPath = "/chat/completions"

var ErrMissingAPIKey = errors.New("missing OpenAI API key")

type (
	chatCompletionRequest struct {
		Model       string             `json:"model"`
		Messages    []core.ChatMessage `json:"messages"`
		Temperature float64            `json:"temperature"`
		MaxTokens   int                `json:"max_tokens,omitempty"`
	}

	chatCompletionResponse struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`

		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}

	Client struct {
		apiKey  string
		baseURL string
		http    *http.Client
	}
)

var _ core.Completer = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	return &Client{
		apiKey:  conf.OpenAI.APIKey,
		baseURL: conf.OpenAI.BaseURL,
		http:    &http.Client{Timeout: conf.OpenAI.Timeout},
	}
}

// Complete runs one chat completion and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshalling completion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building completion request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "calling completion API")
	}
	defer func() { _ = res.Body.Close() }()

	out, err := io.ReadAll(res.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading completion response")
	}
	if res.StatusCode >= http.StatusMultipleChoices {
		return "", errors.Errorf("completion API error (%d): %s", res.StatusCode, out)
	}

	var parsed chatCompletionResponse
	if err = json.Unmarshal(out, &parsed); err != nil {
		return "", errors.Wrap(err, "parsing completion response")
	}
	if parsed.Error != nil {
		return "", errors.Errorf("completion API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return parsed.Choices[0].Message.Content, nil
}
