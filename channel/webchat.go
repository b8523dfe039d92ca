package channel

import "context"

// Reply is one buffered webchat emission, returned in the same HTTP
// response that delivered the inbound message.
type Reply struct {
	Type     string     `json:"type"` // text | image | buttons | list
	Text     string     `json:"text,omitempty"`
	ImageURL string     `json:"image_url,omitempty"`
	Caption  string     `json:"caption,omitempty"`
	Buttons  []Button   `json:"buttons,omitempty"`
	Items    []ListItem `json:"items,omitempty"`
}

// WebchatAdapter accumulates outbound content in memory instead of making
// network calls. One instance lives per request; the handler drains it via
// Replies after the engine returns.
type WebchatAdapter struct {
	replies []Reply
}

func NewWebchatAdapter() *WebchatAdapter {
	return &WebchatAdapter{}
}

func (a *WebchatAdapter) Kind() string { return Webchat }

func (a *WebchatAdapter) SendText(_ context.Context, _, text string) error {
	a.replies = append(a.replies, Reply{Type: "text", Text: text})
	return nil
}

func (a *WebchatAdapter) SendImage(_ context.Context, _, url, caption string) error {
	a.replies = append(a.replies, Reply{Type: "image", ImageURL: url, Caption: caption})
	return nil
}

func (a *WebchatAdapter) SendButtons(_ context.Context, _, text string, buttons []Button) error {
	a.replies = append(a.replies, Reply{Type: "buttons", Text: text, Buttons: buttons})
	return nil
}

func (a *WebchatAdapter) SendList(_ context.Context, _, text, buttonLabel string, items []ListItem) error {
	a.replies = append(a.replies, Reply{Type: "list", Text: text, Items: items})
	return nil
}

// Replies returns everything buffered so far.
func (a *WebchatAdapter) Replies() []Reply {
	return a.replies
}
