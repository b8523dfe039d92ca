// Package channel abstracts outbound messaging behind a small capability
// set so the engine never knows which transport a conversation runs on.
// Push transports (WhatsApp, Telegram) make a network call per send; the
// synchronous webchat adapter buffers replies for the current request.
package channel

import "context"

// Channel identifiers as stored on conversations and flow trigger lists.
const (
	WhatsApp = "whatsapp"
	Telegram = "telegram"
	Webchat  = "webchat"
)

// Button is a quick-reply option. ID is what comes back when pressed.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ListItem is one row of a list message.
type ListItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Adapter is the outbound capability set. Implementations truncate content
// to their transport's documented limits before sending.
type Adapter interface {
	Kind() string
	SendText(ctx context.Context, to, text string) error
	SendImage(ctx context.Context, to, url, caption string) error
	SendButtons(ctx context.Context, to, text string, buttons []Button) error
	SendList(ctx context.Context, to, text, buttonLabel string, items []ListItem) error
}

// truncate cuts s to at most max runes. Transports reject over-length
// fields instead of trimming them, so we trim before sending.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
