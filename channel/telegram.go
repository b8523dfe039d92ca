package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Telegram Bot API limits.
const (
	tgBodyLimit        = 4096
	tgButtonLabelLimit = 64
	tgCaptionLimit     = 1024
)

// TelegramAdapter sends messages through the Telegram Bot API. Lists have
// no native Telegram equivalent and are rendered as a one-button-per-row
// inline keyboard.
type TelegramAdapter struct {
	client *resty.Client
	l      *slog.Logger
}

func NewTelegramAdapter(baseURL, token string, l *slog.Logger) *TelegramAdapter {
	return &TelegramAdapter{
		client: resty.New().
			SetBaseURL(fmt.Sprintf("%s/bot%s", baseURL, token)).
			SetTimeout(15 * time.Second),
		l: l,
	}
}

func (a *TelegramAdapter) Kind() string { return Telegram }

func (a *TelegramAdapter) SendText(ctx context.Context, to, text string) error {
	return a.post(ctx, "/sendMessage", map[string]any{
		"chat_id": to,
		"text":    truncate(text, tgBodyLimit),
	})
}

func (a *TelegramAdapter) SendImage(ctx context.Context, to, url, caption string) error {
	body := map[string]any{
		"chat_id": to,
		"photo":   url,
	}
	if caption != "" {
		body["caption"] = truncate(caption, tgCaptionLimit)
	}
	return a.post(ctx, "/sendPhoto", body)
}

func (a *TelegramAdapter) SendButtons(ctx context.Context, to, text string, buttons []Button) error {
	rows := make([][]map[string]any, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []map[string]any{{
			"text":          truncate(b.Label, tgButtonLabelLimit),
			"callback_data": b.ID,
		}})
	}
	return a.post(ctx, "/sendMessage", map[string]any{
		"chat_id":      to,
		"text":         truncate(text, tgBodyLimit),
		"reply_markup": map[string]any{"inline_keyboard": rows},
	})
}

func (a *TelegramAdapter) SendList(ctx context.Context, to, text, buttonLabel string, items []ListItem) error {
	buttons := make([]Button, 0, len(items))
	for _, it := range items {
		label := it.Title
		if it.Description != "" {
			label = fmt.Sprintf("%s - %s", it.Title, it.Description)
		}
		buttons = append(buttons, Button{ID: it.ID, Label: label})
	}
	return a.SendButtons(ctx, to, text, buttons)
}

func (a *TelegramAdapter) post(ctx context.Context, path string, body map[string]any) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	if resp.IsError() {
		a.l.ErrorContext(ctx, "telegram API rejected message",
			"status", resp.StatusCode(),
			"body", resp.String())
		return fmt.Errorf("telegram send failed: status %d", resp.StatusCode())
	}
	return nil
}
