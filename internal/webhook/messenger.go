package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Messenger is the subset of the LINE Messaging API the handler calls.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error
	ShowLoading(ctx context.Context, chatID string, seconds int32) error
	DisplayName(ctx context.Context, userID string) (string, error)
}

// lineMessenger adapts *messaging_api.MessagingApiAPI to Messenger.
type lineMessenger struct {
	client *messaging_api.MessagingApiAPI
}

// NewLineMessenger creates a Messenger backed by the LINE API.
func NewLineMessenger(channelToken string, timeout time.Duration) (Messenger, error) {
	client, err := messaging_api.NewMessagingApiAPI(
		channelToken,
		messaging_api.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &lineMessenger{client: client}, nil
}

func (m *lineMessenger) Reply(_ context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := m.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

func (m *lineMessenger) ShowLoading(_ context.Context, chatID string, seconds int32) error {
	_, err := m.client.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: seconds,
	})
	return err
}

func (m *lineMessenger) DisplayName(_ context.Context, userID string) (string, error) {
	profile, err := m.client.GetProfile(userID)
	if err != nil {
		return "", err
	}
	return profile.DisplayName, nil
}
