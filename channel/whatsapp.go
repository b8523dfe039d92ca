package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// WhatsApp Cloud API limits. Interactive payloads are rejected outright
// when any field exceeds these, so every outgoing field is trimmed first.
const (
	waBodyLimit        = 4096
	waButtonTitleLimit = 20
	waMaxButtons       = 3
	waRowTitleLimit    = 24
	waRowDescLimit     = 72
	waMaxListRows      = 10
)

// WhatsAppAdapter sends messages through the WhatsApp Cloud API.
type WhatsAppAdapter struct {
	client  *resty.Client
	phoneID string
	l       *slog.Logger
}

func NewWhatsAppAdapter(baseURL, token, phoneID string, l *slog.Logger) *WhatsAppAdapter {
	return &WhatsAppAdapter{
		client: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(token).
			SetTimeout(15 * time.Second),
		phoneID: phoneID,
		l:       l,
	}
}

func (a *WhatsAppAdapter) Kind() string { return WhatsApp }

func (a *WhatsAppAdapter) SendText(ctx context.Context, to, text string) error {
	return a.post(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]any{"body": truncate(text, waBodyLimit)},
	})
}

func (a *WhatsAppAdapter) SendImage(ctx context.Context, to, url, caption string) error {
	image := map[string]any{"link": url}
	if caption != "" {
		image["caption"] = truncate(caption, waBodyLimit)
	}
	return a.post(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "image",
		"image":             image,
	})
}

func (a *WhatsAppAdapter) SendButtons(ctx context.Context, to, text string, buttons []Button) error {
	return a.post(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive":       buildWhatsAppButtons(text, buttons),
	})
}

func (a *WhatsAppAdapter) SendList(ctx context.Context, to, text, buttonLabel string, items []ListItem) error {
	return a.post(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive":       buildWhatsAppList(text, buttonLabel, items),
	})
}

func (a *WhatsAppAdapter) post(ctx context.Context, body map[string]any) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("/%s/messages", a.phoneID))
	if err != nil {
		return fmt.Errorf("whatsapp send failed: %w", err)
	}
	if resp.IsError() {
		a.l.ErrorContext(ctx, "whatsapp API rejected message",
			"status", resp.StatusCode(),
			"body", resp.String())
		return fmt.Errorf("whatsapp send failed: status %d", resp.StatusCode())
	}
	return nil
}

func buildWhatsAppButtons(text string, buttons []Button) map[string]any {
	if len(buttons) > waMaxButtons {
		buttons = buttons[:waMaxButtons]
	}
	actions := make([]map[string]any, 0, len(buttons))
	for _, b := range buttons {
		actions = append(actions, map[string]any{
			"type": "reply",
			"reply": map[string]any{
				"id":    b.ID,
				"title": truncate(b.Label, waButtonTitleLimit),
			},
		})
	}
	return map[string]any{
		"type":   "button",
		"body":   map[string]any{"text": truncate(text, waBodyLimit)},
		"action": map[string]any{"buttons": actions},
	}
}

func buildWhatsAppList(text, buttonLabel string, items []ListItem) map[string]any {
	if len(items) > waMaxListRows {
		items = items[:waMaxListRows]
	}
	rows := make([]map[string]any, 0, len(items))
	for _, it := range items {
		row := map[string]any{
			"id":    it.ID,
			"title": truncate(it.Title, waRowTitleLimit),
		}
		if it.Description != "" {
			row["description"] = truncate(it.Description, waRowDescLimit)
		}
		rows = append(rows, row)
	}
	if buttonLabel == "" {
		buttonLabel = "Options"
	}
	return map[string]any{
		"type": "list",
		"body": map[string]any{"text": truncate(text, waBodyLimit)},
		"action": map[string]any{
			"button":   truncate(buttonLabel, waButtonTitleLimit),
			"sections": []map[string]any{{"rows": rows}},
		},
	}
}
