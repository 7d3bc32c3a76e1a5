package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/daypilot/pkg/model"
	"github.com/harrisonrobin/daypilot/pkg/timezone"
)

// ProviderError is a non-success response from the calendar provider. There
// is no retry and no local fallback; callers surface it.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("calendar provider returned %d: %s", e.StatusCode, e.Message)
}

// Event is one external calendar event, with its time bounds resolved to
// absolute instants. All-day events carry midnight bounds in the reference
// zone. An unresolvable bound is left zero; the sync engine skips such
// events.
type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Description string
	Link        string
}

// Client queries a user's primary Google Calendar with a per-account stored
// credential.
type Client struct {
	oauth *oauth2.Config
	clock *timezone.Clock
}

// NewClient creates a calendar client. The oauth config supplies token
// refresh for stored account credentials.
func NewClient(oauthConfig *oauth2.Config, clock *timezone.Clock) *Client {
	return &Client{oauth: oauthConfig, clock: clock}
}

// EventsForDay fetches the account's events whose window intersects
// [start, end), ordered by start time.
func (c *Client) EventsForDay(ctx context.Context, account model.ConnectedAccount, start, end time.Time) ([]Event, error) {
	if c.oauth == nil {
		return nil, fmt.Errorf("calendar provider is not configured: missing client credentials")
	}

	var tok oauth2.Token
	if err := json.Unmarshal(account.Token, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode credential for %s: %w", account.Email, err)
	}

	srv, err := calendar.NewService(ctx, option.WithTokenSource(c.oauth.TokenSource(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}

	resp, err := srv.Events.List("primary").
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		if apiErr, ok := err.(*googleapi.Error); ok {
			return nil, &ProviderError{StatusCode: apiErr.Code, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("unable to retrieve events: %w", err)
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		events = append(events, c.convert(item))
	}
	return events, nil
}

// convert maps a provider event to our Event, resolving date-only bounds to
// midnight in the reference zone.
func (c *Client) convert(item *calendar.Event) Event {
	e := Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Link:        item.HtmlLink,
	}
	if item.Start != nil {
		e.Start, e.AllDay = c.resolveBound(item.Start)
	}
	if item.End != nil {
		e.End, _ = c.resolveBound(item.End)
	}
	return e
}

func (c *Client) resolveBound(b *calendar.EventDateTime) (time.Time, bool) {
	switch {
	case b.DateTime != "":
		t, err := c.clock.ParseTimestamp(b.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t, false
	case b.Date != "":
		t, err := c.clock.ParseTimestamp(b.Date)
		if err != nil {
			return time.Time{}, true
		}
		return t, true
	default:
		return time.Time{}, false
	}
}
