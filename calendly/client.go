package calendly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"agenda-bot/types"

	"go.uber.org/zap"
)

const userAgent = "AgendaBot/1.0"

// ErrMalformedResponse marks a reply that arrived but misses an expected
// field (e.g. no booking_url in a scheduling-link creation response). Callers
// surface it to the user distinctly from a plain network failure.
var ErrMalformedResponse = errors.New("calendly: malformed response")

// Client talks to the Calendly REST API on behalf of a single account token.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	types   *TypeCache
	log     *zap.SugaredLogger
}

func New(baseURL, token string, log *zap.SugaredLogger) *Client {
	return &Client{
		http:    &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		types:   NewTypeCache(),
		log:     log,
	}
}

// TypeCache exposes the process-wide event type cache, mainly so callers can
// invalidate it.
func (c *Client) TypeCache() *TypeCache {
	return c.types
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warnw("API request failed", "method", method, "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// GetCurrentUser resolves the account that owns the API token.
func (c *Client) GetCurrentUser(ctx context.Context) (*types.User, error) {
	var reply struct {
		Resource types.User `json:"resource"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &reply); err != nil {
		return nil, err
	}
	if reply.Resource.URI == "" {
		return nil, fmt.Errorf("%w: current user has no uri", ErrMalformedResponse)
	}
	return &reply.Resource, nil
}

// GetEventTypes lists the user's event types. The list is cached for the
// process lifetime after the first successful fetch.
func (c *Client) GetEventTypes(ctx context.Context, userURI string) ([]types.EventType, error) {
	if cached, ok := c.types.Get(); ok {
		return cached, nil
	}

	query := url.Values{}
	query.Set("user", userURI)

	var reply struct {
		Collection []types.EventType `json:"collection"`
	}
	if err := c.do(ctx, http.MethodGet, "/event_types", query, nil, &reply); err != nil {
		return nil, err
	}

	c.types.Set(reply.Collection)
	c.log.Infow("event types loaded", "count", len(reply.Collection))
	return reply.Collection, nil
}

// GetEventTypeAvailableTimes returns the open windows for an event type
// between two ISO-8601 UTC instants.
func (c *Client) GetEventTypeAvailableTimes(ctx context.Context, eventTypeURI, startTime, endTime string) ([]types.AvailabilityWindow, error) {
	query := url.Values{}
	query.Set("event_type", eventTypeURI)
	query.Set("start_time", startTime)
	query.Set("end_time", endTime)

	var reply struct {
		Collection []types.AvailabilityWindow `json:"collection"`
	}
	if err := c.do(ctx, http.MethodGet, "/event_type_available_times", query, nil, &reply); err != nil {
		return nil, err
	}
	return reply.Collection, nil
}

// GetScheduledEvents lists the user's active bookings.
func (c *Client) GetScheduledEvents(ctx context.Context, userURI string) ([]types.ScheduledEvent, error) {
	query := url.Values{}
	query.Set("user", userURI)
	query.Set("status", "active")

	var reply struct {
		Collection []types.ScheduledEvent `json:"collection"`
	}
	if err := c.do(ctx, http.MethodGet, "/scheduled_events", query, nil, &reply); err != nil {
		return nil, err
	}
	return reply.Collection, nil
}

// CreateSchedulingLink asks the provider for a one-time hosted booking URL
// for the given event type. The bot only hands the URL to the user; the
// provider's hosted page completes the booking.
func (c *Client) CreateSchedulingLink(ctx context.Context, eventTypeURI string) (string, error) {
	body := map[string]any{
		"max_event_count": 1,
		"owner":           eventTypeURI,
		"owner_type":      "EventType",
	}

	var reply struct {
		Resource struct {
			BookingURL string `json:"booking_url"`
		} `json:"resource"`
	}
	if err := c.do(ctx, http.MethodPost, "/scheduling_links", nil, body, &reply); err != nil {
		return "", err
	}
	if reply.Resource.BookingURL == "" {
		return "", fmt.Errorf("%w: scheduling link has no booking_url", ErrMalformedResponse)
	}
	return reply.Resource.BookingURL, nil
}

// CancelEvent cancels a booking by its bare identifier (not the full URI).
func (c *Client) CancelEvent(ctx context.Context, eventID, reason string) error {
	body := map[string]any{"reason": reason}
	path := "/scheduled_events/" + url.PathEscape(eventID) + "/cancellation"
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}
