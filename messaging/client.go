// Package messaging implements the Slack Web API client used to post
// replies back to the originating channel or thread.
//
// Construction is split into two phases, mirroring the completion client:
// New checks the token shape locally and stores it, and Validate performs
// the live auth.test round trip that confirms the token and learns the
// bot's identity. Tests inject a fake API and never touch the network.
//
// Slack's string error codes are translated into the closed vocabulary of
// the errors package at this boundary; no slack-go error type escapes.
package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"slackbridge/errors"
)

// TokenPrefix is the required prefix of a Slack bot token.
const TokenPrefix = "xoxb-"

// SlackAPI is the slice of the Slack Web API surface the client uses.
// *slack.Client satisfies it; tests substitute a fake.
type SlackAPI interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Identity holds the attributes learned from a successful auth.test call.
// It is immutable after Validate.
type Identity struct {
	// BotUserID is the bot's own user ID, used to avoid replying to self.
	BotUserID string

	// TeamID identifies the workspace the token belongs to.
	TeamID string
}

// Client posts messages to Slack. After Validate succeeds the client holds
// only immutable state and is safe for concurrent use.
type Client struct {
	api      SlackAPI
	logger   *zap.Logger
	identity Identity
}

// New creates a client for the given bot token. It performs no network
// I/O; call Validate to confirm the token against the API. An empty token
// or one without the xoxb- prefix fails with an InvalidArgument error.
func New(botToken string, logger *zap.Logger) (*Client, error) {
	if botToken == "" {
		return nil, errors.NewInvalidArgument("Slack bot token cannot be empty", map[string]interface{}{
			"field": "bot_token",
		})
	}
	if !strings.HasPrefix(botToken, TokenPrefix) {
		return nil, errors.NewInvalidArgument(
			fmt.Sprintf("invalid Slack bot token format - must start with %q", TokenPrefix),
			map[string]interface{}{"field": "bot_token"},
		)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:    slack.New(botToken),
		logger: logger,
	}, nil
}

// NewWithAPI creates a client around a pre-configured API implementation.
// Used by tests to avoid network calls.
func NewWithAPI(api SlackAPI, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:    api,
		logger: logger,
	}
}

// Identity returns the identity learned by Validate. It is the zero value
// until Validate has succeeded.
func (c *Client) Identity() Identity {
	return c.identity
}

// Validate confirms the token with a live auth.test call and records the
// bot's identity. invalid_auth maps to InvalidCredential, account_inactive
// to AccountInactive, and any other failure to InitializationFailed with
// the upstream detail.
func (c *Client) Validate(ctx context.Context) error {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		var serr slack.SlackErrorResponse
		if errors.As(err, &serr) {
			switch serr.Err {
			case "invalid_auth":
				return errors.New(errors.InvalidCredential, "invalid Slack bot token", err)
			case "account_inactive":
				return errors.New(errors.AccountInactive, "Slack account is inactive", err)
			case "":
				return errors.New(errors.InitializationFailed, "Slack auth test failed", err)
			default:
				return errors.NewWithDetails(errors.InitializationFailed,
					fmt.Sprintf("Slack API error during validation: %s", serr.Err),
					map[string]interface{}{"code": serr.Err}, err)
			}
		}
		return errors.New(errors.InitializationFailed,
			fmt.Sprintf("failed to validate Slack bot token: %v", err), err)
	}

	c.identity = Identity{
		BotUserID: resp.UserID,
		TeamID:    resp.TeamID,
	}
	c.logger.Info("Slack bot token validated",
		zap.String("bot_user_id", resp.UserID),
		zap.String("team_id", resp.TeamID),
	)
	return nil
}

// Post sends text to a channel, optionally threading the message under
// threadTS. Channel and text are trimmed before sending; an empty value
// for either fails with an InvalidArgument error before any network call.
// A nil return means Slack reported success.
func (c *Client) Post(ctx context.Context, channel, text, threadTS string) error {
	channel = strings.TrimSpace(channel)
	text = strings.TrimSpace(text)

	if channel == "" {
		return errors.NewInvalidArgument("channel cannot be empty", map[string]interface{}{
			"field": "channel",
		})
	}
	if text == "" {
		return errors.NewInvalidArgument("message text cannot be empty", map[string]interface{}{
			"field": "text",
		})
	}

	options := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		options = append(options, slack.MsgOptionTS(threadTS))
	}

	_, timestamp, err := c.api.PostMessageContext(ctx, channel, options...)
	if err != nil {
		return c.mapPostError(err, channel)
	}

	c.logger.Info("message posted",
		zap.String("channel", channel),
		zap.String("ts", timestamp),
	)
	return nil
}

// mapPostError translates a chat.postMessage failure into the local error
// vocabulary. Slack reports failures as string error codes; the mapping is
// exhaustive with UpstreamAPIError as the fallback for codes this server
// does not know.
func (c *Client) mapPostError(err error, channel string) error {
	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return errors.NewRateLimitError("rate limit exceeded - please try again later",
			int(rateLimited.RetryAfter.Seconds()), err)
	}

	var serr slack.SlackErrorResponse
	if !errors.As(err, &serr) {
		return errors.New(errors.UpstreamUnknownError,
			fmt.Sprintf("failed to post message to Slack: %v", err), err)
	}

	code := serr.Err
	if code == "" {
		code = "unknown"
	}

	switch code {
	case "channel_not_found":
		return errors.NewWithDetails(errors.DestinationNotFound,
			fmt.Sprintf("channel not found: %s", channel),
			map[string]interface{}{"channel": channel}, err)
	case "not_in_channel":
		return errors.NewWithDetails(errors.NotAMember,
			fmt.Sprintf("bot is not in channel: %s", channel),
			map[string]interface{}{"channel": channel}, err)
	case "is_archived":
		return errors.NewWithDetails(errors.DestinationArchived,
			fmt.Sprintf("channel is archived: %s", channel),
			map[string]interface{}{"channel": channel}, err)
	case "msg_too_long":
		return errors.New(errors.MessageTooLong, "message text is too long", err)
	case "rate_limited":
		return errors.NewRateLimitError("rate limit exceeded - please try again later", 0, err)
	case "invalid_auth":
		return errors.New(errors.InvalidCredential, "invalid authentication token", err)
	case "thread_not_found":
		return errors.New(errors.ThreadNotFound, "thread not found for the provided thread_ts", err)
	case "unknown":
		return errors.NewWithDetails(errors.UpstreamRejected,
			"Slack API returned error: unknown",
			map[string]interface{}{"code": code}, err)
	default:
		return errors.NewWithDetails(errors.UpstreamAPIError,
			fmt.Sprintf("Slack API error: %s", code),
			map[string]interface{}{"code": code}, err)
	}
}
