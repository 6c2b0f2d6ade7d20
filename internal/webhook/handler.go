// Package webhook receives LINE webhook callbacks, converts platform events
// into bot events and sends the replies.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/garyellow/travel-linebot-go/internal/bot"
	"github.com/garyellow/travel-linebot-go/internal/config"
	"github.com/garyellow/travel-linebot-go/internal/ctxutil"
	"github.com/garyellow/travel-linebot-go/internal/logger"
	"github.com/garyellow/travel-linebot-go/internal/sentry"
	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Processor turns bot events into replies. *bot.Processor satisfies it.
type Processor interface {
	Handle(ctx context.Context, ev bot.Event) bot.Reply
	Follow(ctx context.Context, userID, displayName string) bot.Reply
}

// Recorder receives webhook metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordWebhook(eventType, status string, duration float64)
	RecordSingleflightDedup(gateway string)
}

// maxConcurrentEvents bounds the per-batch worker count.
const maxConcurrentEvents = 8

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	messenger     Messenger
	processor     Processor
	metrics       Recorder
	logger        *logger.Logger
	wg            sync.WaitGroup // async event processing

	profiles     *profileCache
	profileGroup singleflight.Group

	webhookTimeout      time.Duration
	profileTimeout      time.Duration
	maxMessagesPerReply int
	maxEventsPerWebhook int
	minReplyTokenLength int
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	ChannelSecret string
	Messenger     Messenger
	Processor     Processor
	BotConfig     config.BotConfig
	Metrics       Recorder // optional
	Logger        *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("channel secret is required")
	}
	if cfg.Messenger == nil || cfg.Processor == nil {
		return nil, errors.New("messenger and processor are required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}

	return &Handler{
		channelSecret:       cfg.ChannelSecret,
		messenger:           cfg.Messenger,
		processor:           cfg.Processor,
		metrics:             cfg.Metrics,
		logger:              log.WithModule("webhook"),
		profiles:            newProfileCache(),
		webhookTimeout:      cfg.BotConfig.WebhookTimeout,
		profileTimeout:      config.ProfileLookup,
		maxMessagesPerReply: cfg.BotConfig.MaxMessagesPerReply,
		maxEventsPerWebhook: cfg.BotConfig.MaxEventsPerWebhook,
		minReplyTokenLength: cfg.BotConfig.MinReplyTokenLength,
	}, nil
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.WarnContext(c.Request.Context(), "Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).ErrorContext(c.Request.Context(), "Failed to parse webhook request")
			c.Status(http.StatusBadRequest)
		}
		return
	}

	// LINE expects 200 right away; events are processed after the response.
	c.Status(http.StatusOK)

	if len(cb.Events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(cb.Events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:h.maxEventsPerWebhook]
	}
	if len(cb.Events) == 0 {
		return
	}

	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)
	baseCtx := ctxutil.PreserveTracing(c.Request.Context())

	h.wg.Go(func() {
		ctx, cancel := context.WithTimeout(baseCtx, h.webhookTimeout)
		defer cancel()

		var g errgroup.Group
		g.SetLimit(maxConcurrentEvents)
		for _, event := range events {
			g.Go(func() error {
				h.processEvent(ctx, event)
				return nil
			})
		}
		_ = g.Wait()
	})
}

// processEvent handles a single webhook event asynchronously
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithField("panic", r).ErrorContext(ctx, "Panic in async event processing")
			sentry.RecoverWithContext(ctx, r)
		}
	}()

	start := time.Now()
	eventID := extractEventID(event)
	if eventID != "" {
		ctx = ctxutil.WithEventID(ctx, eventID)
	}

	userID := bot.GetUserID(eventSource(event))
	if userID == "" {
		h.logger.WithField("event_type", fmt.Sprintf("%T", event)).DebugContext(ctx, "Ignoring event from non-user source")
		return
	}
	ctx = ctxutil.WithUserID(ctx, userID)

	var (
		reply     bot.Reply
		eventType string
	)
	switch e := event.(type) {
	case webhook.FollowEvent:
		eventType = "follow"
		reply = h.processor.Follow(ctx, userID, h.displayName(ctx, userID))
	case webhook.MessageEvent, webhook.PostbackEvent:
		ev, ok := toBotEvent(e, userID)
		if !ok {
			return
		}
		eventType = string(ev.Kind)
		ev.DisplayName = h.displayName(ctx, userID)
		if ev.Kind == bot.KindText {
			h.showLoading(ctx, userID)
		}
		reply = h.processor.Handle(ctx, ev)
	default:
		h.logger.WithField("event_type", fmt.Sprintf("%T", e)).DebugContext(ctx, "Unsupported event type")
		return
	}

	status := "success"
	if err := h.reply(ctx, replyToken(event), reply.Messages); err != nil {
		status = "reply_error"
		h.logger.WithError(err).WithField("event_type", eventType).ErrorContext(ctx, "Failed to send reply")
	}
	h.recordWebhook(eventType, status, time.Since(start))

	h.logger.WithField("event_type", eventType).
		WithField("mode", reply.Mode).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		InfoContext(ctx, "Event processed")
}

// toBotEvent converts message and postback events. The bool is false for
// events that get no reply.
func toBotEvent(event webhook.EventInterface, userID string) (bot.Event, bool) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		switch m := e.Message.(type) {
		case webhook.TextMessageContent:
			if action := bot.MenuActionForText(m.Text); action != "" {
				return bot.NewMenuEvent(userID, action), true
			}
			return bot.NewTextEvent(userID, m.Text), true
		case webhook.LocationMessageContent:
			return bot.NewLocationEvent(userID, m.Latitude, m.Longitude), true
		default:
			return bot.NewUnsupportedEvent(userID, e.Message.GetType()), true
		}
	case webhook.PostbackEvent:
		if e.Postback == nil {
			return bot.NewUnsupportedEvent(userID, "postback"), true
		}
		action, err := bot.ParsePostback(e.Postback.Data)
		if err != nil {
			return bot.NewUnsupportedEvent(userID, "postback"), true
		}
		return bot.NewMenuEvent(userID, action), true
	}
	return bot.Event{}, false
}

func (h *Handler) reply(ctx context.Context, token string, messages []messaging_api.MessageInterface) error {
	if len(messages) == 0 {
		return nil
	}
	if len(token) < h.minReplyTokenLength {
		h.logger.WithField("token_length", len(token)).DebugContext(ctx, "Invalid reply token, skipping reply")
		return nil
	}
	if len(messages) > h.maxMessagesPerReply {
		h.logger.WithField("message_count", len(messages)).
			WithField("limit", h.maxMessagesPerReply).
			WarnContext(ctx, "Message count exceeds limit; truncating")
		messages = messages[:h.maxMessagesPerReply]
	}

	err := h.messenger.Reply(ctx, token, messages)
	if err != nil && strings.Contains(err.Error(), "Invalid reply token") {
		h.logger.WithError(err).DebugContext(ctx, "Reply token already used or expired")
		return nil
	}
	return err
}

// showLoading shows the loading animation before a potentially slow reply.
func (h *Handler) showLoading(ctx context.Context, chatID string) {
	if err := h.messenger.ShowLoading(ctx, chatID, config.LoadingAnimationSeconds); err != nil {
		h.logger.WithError(err).WarnContext(ctx, "Failed to show loading animation")
	}
}

func (h *Handler) recordWebhook(eventType, status string, d time.Duration) {
	if h.metrics != nil {
		h.metrics.RecordWebhook(eventType, status, d.Seconds())
	}
}

func extractEventID(event webhook.EventInterface) string {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.WebhookEventId
	case webhook.PostbackEvent:
		return e.WebhookEventId
	case webhook.FollowEvent:
		return e.WebhookEventId
	}
	return ""
}

func eventSource(event webhook.EventInterface) webhook.SourceInterface {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.Source
	case webhook.PostbackEvent:
		return e.Source
	case webhook.FollowEvent:
		return e.Source
	}
	return nil
}

func replyToken(event webhook.EventInterface) string {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.ReplyToken
	case webhook.PostbackEvent:
		return e.ReplyToken
	case webhook.FollowEvent:
		return e.ReplyToken
	}
	return ""
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
