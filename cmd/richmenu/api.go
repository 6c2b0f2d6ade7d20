package main

import (
	"fmt"
	"io"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// menuSummary is the part of a rich menu the list command prints.
type menuSummary struct {
	ID          string
	Name        string
	ChatBarText string
}

// menuAPI is the rich menu surface of the Messaging API.
type menuAPI interface {
	Create(req *messaging_api.RichMenuRequest) (string, error)
	UploadImage(id, contentType string, body io.Reader) error
	SetDefault(id string) error
	DefaultID() (string, error)
	List() ([]menuSummary, error)
	Delete(id string) error
}

type lineMenuAPI struct {
	api  *messaging_api.MessagingApiAPI
	blob *messaging_api.MessagingApiBlobAPI
}

func newLineMenuAPI(token string) (menuAPI, error) {
	api, err := messaging_api.NewMessagingApiAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create blob API client: %w", err)
	}
	return &lineMenuAPI{api: api, blob: blob}, nil
}

func (l *lineMenuAPI) Create(req *messaging_api.RichMenuRequest) (string, error) {
	resp, err := l.api.CreateRichMenu(req)
	if err != nil {
		return "", err
	}
	return resp.RichMenuId, nil
}

func (l *lineMenuAPI) UploadImage(id, contentType string, body io.Reader) error {
	_, err := l.blob.SetRichMenuImage(id, contentType, body)
	return err
}

func (l *lineMenuAPI) SetDefault(id string) error {
	_, err := l.api.SetDefaultRichMenu(id)
	return err
}

func (l *lineMenuAPI) DefaultID() (string, error) {
	resp, err := l.api.GetDefaultRichMenuId()
	if err != nil {
		return "", err
	}
	return resp.RichMenuId, nil
}

func (l *lineMenuAPI) List() ([]menuSummary, error) {
	resp, err := l.api.GetRichMenuList()
	if err != nil {
		return nil, err
	}
	out := make([]menuSummary, 0, len(resp.Richmenus))
	for _, m := range resp.Richmenus {
		out = append(out, menuSummary{ID: m.RichMenuId, Name: m.Name, ChatBarText: m.ChatBarText})
	}
	return out, nil
}

func (l *lineMenuAPI) Delete(id string) error {
	_, err := l.api.DeleteRichMenu(id)
	return err
}
