package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/conversation"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

// Effort values for models that support adjustable reasoning depth.
const (
	EffortLow    = "low"
	EffortMedium = "medium"
	EffortHigh   = "high"
)

// Request is the chat-completions payload. Reasoning is an OpenRouter
// extension; providers that don't support it ignore it.
type Request struct {
	Model     string                    `json:"model"`
	Messages  []conversation.APIMessage `json:"messages"`
	Reasoning *Reasoning                `json:"reasoning,omitempty"`
}

type Reasoning struct {
	Effort string `json:"effort"`
}

// Response is the subset of the chat-completions response we consume.
type Response struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message ResponseMessage `json:"message"`
}

type ResponseMessage struct {
	Content string `json:"content"`
}

// APIError carries the non-success status and body of a failed call.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenRouter API error: %d - %s", e.StatusCode, e.Body)
}

// Client is a minimal OpenRouter chat-completions client.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient initializes and returns a new API client.
func NewClient(apiKey string, options ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://github.com/go-go-golems/parley")
	req.Header.Set("X-Title", "parley")
}

// Invoke sends one chat-completions request and returns the response text.
// reasoningEffort is passed through unmodified when non-empty. Any non-200
// outcome surfaces as *APIError.
func (c *Client) Invoke(
	ctx context.Context,
	messages []conversation.APIMessage,
	model string,
	reasoningEffort string,
) (string, error) {
	payload := &Request{
		Model:    model,
		Messages: messages,
	}
	if reasoningEffort != "" {
		payload.Reasoning = &Reasoning{Effort: reasoningEffort}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create chat request")
	}
	c.setHeaders(req)

	log.Debug().Str("model", model).Int("messages", len(messages)).Msg("calling OpenRouter")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "chat request failed")
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read chat response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	parsed := &Response{}
	if err := json.Unmarshal(respBody, parsed); err != nil {
		return "", errors.Wrap(err, "failed to parse chat response")
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat response contained no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
