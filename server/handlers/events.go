package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"slackbridge/errors"
	"slackbridge/server/metrics"
	"slackbridge/server/middleware"
)

// maxEventBody caps the size of an inbound event payload.
const maxEventBody = 1 << 20

// Completer produces a reply for an inbound message.
type Completer interface {
	Complete(ctx context.Context, message string) (string, error)
}

// Poster posts text to a Slack channel, optionally into a thread.
type Poster interface {
	Post(ctx context.Context, channel, text, threadTS string) error
}

// EventsHandler serves the Slack Events API endpoint. It verifies the
// request signature, answers URL verification challenges, and for message
// and app_mention events runs the bridge flow: complete the text, post the
// reply back to the source channel or thread. One inbound message yields
// at most one outbound reply, synchronously; failures are logged and
// counted, never retried.
type EventsHandler struct {
	completer     Completer
	poster        Poster
	signingSecret string
	botUserID     string
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

// NewEventsHandler creates the events handler. botUserID is the bot's own
// user ID, used to ignore the bot's own messages.
func NewEventsHandler(completer Completer, poster Poster, signingSecret, botUserID string, logger *zap.Logger, m *metrics.Metrics) *EventsHandler {
	return &EventsHandler{
		completer:     completer,
		poster:        poster,
		signingSecret: signingSecret,
		botUserID:     botUserID,
		logger:        logger,
		metrics:       m,
	}
}

// ServeHTTP implements http.Handler.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errors.ErrorWithKind(w, "Method not allowed", errors.InvalidArgument, http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err != nil {
		errors.ErrorWithKind(w, "Failed to read request body", errors.InvalidArgument, http.StatusBadRequest)
		return
	}

	if err := h.verifySignature(r.Header, body); err != nil {
		h.logger.Warn("rejected event with bad signature", zap.Error(err))
		errors.ErrorWithKind(w, "Invalid request signature", errors.InvalidCredential, http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		errors.ErrorWithKind(w, "Failed to parse event payload", errors.InvalidArgument, http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			errors.ErrorWithKind(w, "Failed to parse challenge", errors.InvalidArgument, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(challenge.Challenge)); err != nil {
			h.logger.Error("failed to write challenge response", zap.Error(err))
		}

	case slackevents.CallbackEvent:
		h.handleCallback(r.Context(), event)
		// Always acknowledge: a non-2xx here would make Slack redeliver
		// the event, and this server performs no retries.
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *EventsHandler) verifySignature(header http.Header, body []byte) error {
	verifier, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}

// handleCallback dispatches the inner event. Only plain user messages and
// app mentions produce replies; everything else is acknowledged silently.
func (h *EventsHandler) handleCallback(ctx context.Context, event slackevents.EventsAPIEvent) {
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		if ev.User == "" || ev.User == h.botUserID {
			return
		}
		h.logger.Info("mention received",
			zap.String("user", ev.User),
			zap.String("channel", ev.Channel),
		)
		h.respond(ctx, ev.Channel, ev.Text, ev.ThreadTimeStamp)

	case *slackevents.MessageEvent:
		// Ignore the bot's own messages and message_changed subtypes.
		if ev.User == "" || ev.User == h.botUserID || ev.BotID != "" || ev.SubType != "" {
			return
		}
		h.logger.Info("message received",
			zap.String("user", ev.User),
			zap.String("channel", ev.Channel),
			zap.Int("content_len", len(ev.Text)),
		)
		h.respond(ctx, ev.Channel, ev.Text, ev.ThreadTimeStamp)
	}
}

// respond runs the bridge flow for one inbound message.
func (h *EventsHandler) respond(ctx context.Context, channel, text, threadTS string) {
	requestID := middleware.GetRequestID(ctx)

	reply, err := h.completer.Complete(ctx, text)
	if err != nil {
		errors.LogError(h.logger, err, requestID)
		h.metrics.UpstreamErrors.WithLabelValues("openai", kindOf(err)).Inc()
		return
	}

	if err := h.poster.Post(ctx, channel, reply, threadTS); err != nil {
		errors.LogError(h.logger, err, requestID)
		h.metrics.UpstreamErrors.WithLabelValues("slack", kindOf(err)).Inc()
	}
}

// kindOf extracts the local error kind for metric labels.
func kindOf(err error) string {
	var be *errors.BridgeError
	if errors.As(err, &be) {
		return string(be.Kind)
	}
	return "unknown"
}
