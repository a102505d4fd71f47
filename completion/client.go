// Package completion implements the OpenAI chat completion client.
//
// Construction is split into two phases: New only validates and stores the
// credential, and Validate performs the live round trip that confirms the
// key against the API. Callers that want "constructed means validated"
// compose both; tests inject a fake API and never touch the network.
//
// Every upstream failure is translated into the local error vocabulary of
// the errors package before it leaves this package.
package completion

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"slackbridge/errors"
	"slackbridge/format"
)

// DefaultModel is used when the caller does not configure a model.
const DefaultModel = "gpt-4"

const (
	// validationPrompt is the minimal payload sent to confirm a key is live.
	validationPrompt    = "test"
	validationMaxTokens = 1

	// completionMaxTokens caps the response length of a real completion.
	completionMaxTokens = 1000

	// completionTemperature balances determinism and variety.
	completionTemperature = 0.7
)

// ChatCompleter is the slice of the OpenAI API surface the client uses.
// *openai.Client satisfies it; tests substitute a fake.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client issues chat completion requests against OpenAI. State captured at
// construction (model, credential) is immutable afterwards, so a single
// instance is safe for concurrent use.
type Client struct {
	api     ChatCompleter
	model   string
	encoder *tokenEncoder
	logger  *zap.Logger
}

// New creates a client for the given API key. It performs no network I/O;
// call Validate to confirm the key against the API. An empty key fails with
// an InvalidArgument error. An empty model selects DefaultModel.
func New(apiKey, model string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.NewInvalidArgument("OpenAI API key cannot be empty", map[string]interface{}{
			"field": "api_key",
		})
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:     openai.NewClient(apiKey),
		model:   model,
		encoder: newTokenEncoder(model, logger),
		logger:  logger,
	}, nil
}

// NewWithAPI creates a client around a pre-configured API implementation.
// Used by tests to avoid network calls.
func NewWithAPI(api ChatCompleter, model string, logger *zap.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:     api,
		model:   model,
		encoder: newTokenEncoder(model, logger),
		logger:  logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Validate confirms the credential with a minimal live request. A rate
// limit response counts as success: it proves the key is live, and the
// limiting condition is transient. An authentication failure maps to
// InvalidCredential; anything else maps to InitializationFailed with the
// upstream detail.
func (c *Client) Validate(ctx context.Context) error {
	_, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: validationPrompt},
		},
		MaxTokens: validationMaxTokens,
	})
	if err == nil {
		c.logger.Info("OpenAI API key validated", zap.String("model", c.model))
		return nil
	}

	switch status, ok := upstreamStatus(err); {
	case ok && status == http.StatusUnauthorized:
		return errors.New(errors.InvalidCredential, "invalid OpenAI API key", err)
	case ok && status == http.StatusTooManyRequests:
		c.logger.Warn("OpenAI API key validation rate limited, treating key as valid")
		return nil
	default:
		return errors.New(errors.InitializationFailed,
			fmt.Sprintf("OpenAI API key validation failed: %v", err), err)
	}
}

// Complete sends the message as a single user turn and returns the first
// choice's text, trimmed. The message is cleaned of Slack markup first;
// a message that is empty, or empty once cleaned, fails with an
// InvalidArgument error before any network call.
func (c *Client) Complete(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errors.NewInvalidArgument("message cannot be empty", map[string]interface{}{
			"field": "message",
		})
	}

	cleaned := format.Normalize(message)
	if cleaned == "" {
		return "", errors.NewInvalidArgument("message is empty after formatting", map[string]interface{}{
			"field": "message",
		})
	}

	c.logger.Debug("sending completion request",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", c.encoder.count(cleaned)),
	)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: cleaned},
		},
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
	})
	if err != nil {
		return "", mapCompletionError(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(errors.EmptyUpstreamResponse, "OpenAI API returned empty response", nil)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// mapCompletionError translates an OpenAI call failure into the local
// error vocabulary.
func mapCompletionError(err error) error {
	status, ok := upstreamStatus(err)
	if ok {
		switch status {
		case http.StatusUnauthorized:
			return errors.New(errors.UpstreamAuthFailed, "OpenAI API authentication failed", err)
		case http.StatusTooManyRequests:
			return errors.NewRateLimitError("OpenAI API rate limit exceeded - please try again later", 0, err)
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return errors.New(errors.UpstreamAPIError,
			fmt.Sprintf("OpenAI API error: %s", apiErr.Message), err)
	}

	return errors.New(errors.UpstreamUnknownError,
		fmt.Sprintf("failed to get OpenAI response: %v", err), err)
}

// upstreamStatus extracts the HTTP status from the typed errors the OpenAI
// SDK returns. The second result is false when the failure carried no
// status, such as a transport error.
func upstreamStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
