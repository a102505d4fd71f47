package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slackbridge/errors"
	"slackbridge/server/metrics"
)

const signingSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type stubCompleter struct {
	reply    string
	err      error
	messages []string
}

func (s *stubCompleter) Complete(_ context.Context, message string) (string, error) {
	s.messages = append(s.messages, message)
	return s.reply, s.err
}

type postCall struct {
	channel  string
	text     string
	threadTS string
}

type stubPoster struct {
	err   error
	calls []postCall
}

func (s *stubPoster) Post(_ context.Context, channel, text, threadTS string) error {
	s.calls = append(s.calls, postCall{channel, text, threadTS})
	return s.err
}

func newTestHandler(completer *stubCompleter, poster *stubPoster) *EventsHandler {
	return NewEventsHandler(completer, poster, signingSecret, "UBOT", zap.NewNop(), metrics.NewMetrics())
}

// signedRequest builds a POST with a valid Slack signature over body.
func signedRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, []byte(signingSecret))
	_, err := mac.Write([]byte("v0:" + ts + ":" + body))
	require.NoError(t, err)

	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func mentionPayload(user, channel, text, threadTS string) string {
	thread := ""
	if threadTS != "" {
		thread = fmt.Sprintf(`"thread_ts": %q,`, threadTS)
	}
	return fmt.Sprintf(`{
		"type": "event_callback",
		"event": {
			"type": "app_mention",
			"user": %q,
			"channel": %q,
			%s
			"text": %q,
			"ts": "1503435956.000247"
		}
	}`, user, channel, thread, text)
}

func messagePayload(user, botID, subtype, channel, text string) string {
	return fmt.Sprintf(`{
		"type": "event_callback",
		"event": {
			"type": "message",
			"user": %q,
			"bot_id": %q,
			"subtype": %q,
			"channel": %q,
			"channel_type": "im",
			"text": %q,
			"ts": "1503435956.000247"
		}
	}`, user, botID, subtype, channel, text)
}

func TestEventsHandler_MethodAndSignature(t *testing.T) {
	t.Run("rejects GET", func(t *testing.T) {
		handler := newTestHandler(&stubCompleter{}, &stubPoster{})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slack/events", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("rejects missing signature", func(t *testing.T) {
		completer := &stubCompleter{}
		handler := newTestHandler(completer, &stubPoster{})

		req := httptest.NewRequest(http.MethodPost, "/slack/events",
			strings.NewReader(mentionPayload("U1", "C1", "hi", "")))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, completer.messages)
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		handler := newTestHandler(&stubCompleter{}, &stubPoster{})

		req := signedRequest(t, mentionPayload("U1", "C1", "hi", ""))
		tampered := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(`{"tampered":true}`))
		tampered.Header = req.Header

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, tampered)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects unparseable payload", func(t *testing.T) {
		handler := newTestHandler(&stubCompleter{}, &stubPoster{})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, signedRequest(t, "not json"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEventsHandler_URLVerification(t *testing.T) {
	handler := newTestHandler(&stubCompleter{}, &stubPoster{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, signedRequest(t, `{"type":"url_verification","challenge":"ch4ll3ng3"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, "ch4ll3ng3", w.Body.String())
}

func TestEventsHandler_Mention(t *testing.T) {
	completer := &stubCompleter{reply: "42"}
	poster := &stubPoster{}
	handler := newTestHandler(completer, poster)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, signedRequest(t, mentionPayload("U1", "C1", "<@UBOT> what is the answer?", "")))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, completer.messages, 1)
	assert.Equal(t, "<@UBOT> what is the answer?", completer.messages[0])
	require.Len(t, poster.calls, 1)
	assert.Equal(t, postCall{channel: "C1", text: "42"}, poster.calls[0])
}

func TestEventsHandler_ThreadedReply(t *testing.T) {
	completer := &stubCompleter{reply: "sure"}
	poster := &stubPoster{}
	handler := newTestHandler(completer, poster)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, signedRequest(t, mentionPayload("U1", "C1", "<@UBOT> hi", "1503435900.000001")))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, poster.calls, 1)
	assert.Equal(t, "1503435900.000001", poster.calls[0].threadTS)
}

func TestEventsHandler_DirectMessage(t *testing.T) {
	completer := &stubCompleter{reply: "hello back"}
	poster := &stubPoster{}
	handler := newTestHandler(completer, poster)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, signedRequest(t, messagePayload("U7", "", "", "D1", "hello")))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, completer.messages, 1)
	require.Len(t, poster.calls, 1)
	assert.Equal(t, "D1", poster.calls[0].channel)
}

func TestEventsHandler_IgnoredEvents(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"own message", messagePayload("UBOT", "", "", "C1", "echo")},
		{"bot message", messagePayload("U7", "B123", "", "C1", "from a bot")},
		{"message_changed subtype", messagePayload("U7", "", "message_changed", "C1", "edited")},
		{"own mention", mentionPayload("UBOT", "C1", "self", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &stubCompleter{reply: "nope"}
			poster := &stubPoster{}
			handler := newTestHandler(completer, poster)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, signedRequest(t, tt.payload))

			assert.Equal(t, http.StatusOK, w.Code, "ignored events still acknowledged")
			assert.Empty(t, completer.messages)
			assert.Empty(t, poster.calls)
		})
	}
}

func TestEventsHandler_DownstreamFailures(t *testing.T) {
	t.Run("completion failure acknowledged without reply", func(t *testing.T) {
		completer := &stubCompleter{err: errors.New(errors.UpstreamRateLimited, "slow down", nil)}
		poster := &stubPoster{}
		handler := newTestHandler(completer, poster)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, signedRequest(t, mentionPayload("U1", "C1", "<@UBOT> hi", "")))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, poster.calls)
	})

	t.Run("post failure acknowledged", func(t *testing.T) {
		completer := &stubCompleter{reply: "hi"}
		poster := &stubPoster{err: errors.New(errors.DestinationNotFound, "channel not found: C1", nil)}
		handler := newTestHandler(completer, poster)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, signedRequest(t, mentionPayload("U1", "C1", "<@UBOT> hi", "")))

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, poster.calls, 1)
	})
}
