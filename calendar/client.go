// Package calendar is the calendar collaborator: it refreshes the access
// credential through oauth2 and creates events against a Google-style
// calendar REST API. The external event id comes back to the engine, which
// persists it alongside the internal appointment record.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/convoflow/convoflow/engine"
)

// TokenSourceFunc resolves the oauth2 token source for a tenant.
type TokenSourceFunc func(tenantID string) oauth2.TokenSource

// StaticTokenSource serves every tenant from one refresh token. The
// returned source refreshes the access token transparently when it expires.
func StaticTokenSource(conf *oauth2.Config, refreshToken string) TokenSourceFunc {
	ts := conf.TokenSource(context.Background(), &oauth2.Token{RefreshToken: refreshToken})
	return func(string) oauth2.TokenSource { return ts }
}

type Client struct {
	client *resty.Client
	tokens TokenSourceFunc
}

func NewClient(baseURL string, tokens TokenSourceFunc) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(20 * time.Second),
		tokens: tokens,
	}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
}

type eventAttendee struct {
	Email string `json:"email"`
}

type eventRequest struct {
	Summary     string          `json:"summary"`
	Description string          `json:"description,omitempty"`
	Start       eventTime       `json:"start"`
	End         eventTime       `json:"end"`
	Attendees   []eventAttendee `json:"attendees,omitempty"`
}

type eventResponse struct {
	ID string `json:"id"`
}

// CreateEvent obtains a fresh access credential for the tenant and creates
// the event, returning the external event id.
func (c *Client) CreateEvent(ctx context.Context, tenantID string, ev engine.Event) (string, error) {
	token, err := c.tokens(tenantID).Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh calendar credential: %w", err)
	}

	attendees := make([]eventAttendee, 0, len(ev.Attendees))
	for _, a := range ev.Attendees {
		attendees = append(attendees, eventAttendee{Email: a})
	}

	body := eventRequest{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       eventTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         eventTime{DateTime: ev.End.Format(time.RFC3339)},
		Attendees:   attendees,
	}

	var result eventResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetBody(body).
		SetResult(&result).
		Post("/calendars/primary/events")
	if err != nil {
		return "", fmt.Errorf("calendar event creation failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("calendar event creation failed: status %d", resp.StatusCode())
	}
	if result.ID == "" {
		return "", fmt.Errorf("calendar response contained no event id")
	}
	return result.ID, nil
}
