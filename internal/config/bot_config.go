package config

import (
	"errors"
	"fmt"
	"time"
)

// LINE Messaging API limits.
// https://developers.line.biz/en/reference/messaging-api/
const (
	LINEMaxMessagesPerReply   = 5
	LINEMaxTextMessageLength  = 5000
	LINEMaxCarouselBubbles    = 12
	LINEMaxPostbackDataLength = 300
	LINEMaxQuickReplyItems    = 13
)

// BotConfig holds conversation and platform knobs used by the webhook and
// dispatcher.
type BotConfig struct {
	WebhookTimeout      time.Duration
	MaxEventsPerWebhook int
	MinReplyTokenLength int
	MaxMessagesPerReply int
	MaxMessageLength    int

	// MaxNearbyResults caps the nearby carousel.
	MaxNearbyResults int
	// AnswerMaxLength is the rune limit applied to answer text before the "..." marker.
	AnswerMaxLength int
}

// DefaultBotConfig returns default configuration values.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		WebhookTimeout:      WebhookProcessing,
		MaxEventsPerWebhook: 100,
		MinReplyTokenLength: 10,
		MaxMessagesPerReply: LINEMaxMessagesPerReply,
		MaxMessageLength:    LINEMaxTextMessageLength,
		MaxNearbyResults:    5,
		AnswerMaxLength:     2000,
	}
}

// Validate checks if the configuration is valid.
func (c BotConfig) Validate() error {
	var errs []error

	if c.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook timeout must be positive, got %v", c.WebhookTimeout))
	}
	if c.MaxMessagesPerReply < 1 || c.MaxMessagesPerReply > LINEMaxMessagesPerReply {
		errs = append(errs, fmt.Errorf("max messages per reply must be 1-%d, got %d", LINEMaxMessagesPerReply, c.MaxMessagesPerReply))
	}
	if c.MaxEventsPerWebhook < 1 {
		errs = append(errs, fmt.Errorf("max events per webhook must be positive, got %d", c.MaxEventsPerWebhook))
	}
	if c.MaxNearbyResults < 1 || c.MaxNearbyResults > LINEMaxCarouselBubbles {
		errs = append(errs, fmt.Errorf("max nearby results must be 1-%d, got %d", LINEMaxCarouselBubbles, c.MaxNearbyResults))
	}
	if c.AnswerMaxLength < 4 || c.AnswerMaxLength > c.MaxMessageLength {
		errs = append(errs, fmt.Errorf("answer max length must be 4-%d, got %d", c.MaxMessageLength, c.AnswerMaxLength))
	}
	if c.MaxMessageLength < 1 || c.MaxMessageLength > LINEMaxTextMessageLength {
		errs = append(errs, fmt.Errorf("max message length must be 1-%d, got %d", LINEMaxTextMessageLength, c.MaxMessageLength))
	}

	return errors.Join(errs...)
}
