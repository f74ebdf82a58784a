package calendly

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token", zap.NewNop().Sugar()), srv
}

func TestGetCurrentUser(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Write([]byte(`{"resource":{"uri":"https://api.example.com/users/U1","name":"Maria"}}`))
	}))

	user, err := c.GetCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.URI != "https://api.example.com/users/U1" || user.Name != "Maria" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestGetCurrentUser_MissingURIIsMalformed(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resource":{}}`))
	}))

	if _, err := c.GetCurrentUser(context.Background()); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestGetEventTypes_CachesAfterFirstFetch(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.URL.Query().Get("user"); got != "U1" {
			t.Errorf("unexpected user query %q", got)
		}
		w.Write([]byte(`{"collection":[{"uri":"ET1","name":"Consulta de 30 minutos"}]}`))
	}))

	for i := 0; i < 3; i++ {
		eventTypes, err := c.GetEventTypes(context.Background(), "U1")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if len(eventTypes) != 1 || eventTypes[0].URI != "ET1" {
			t.Fatalf("fetch %d: unexpected event types %+v", i, eventTypes)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single remote fetch, got %d", hits.Load())
	}

	c.TypeCache().Invalidate()
	if _, err := c.GetEventTypes(context.Background(), "U1"); err != nil {
		t.Fatalf("post-invalidate fetch: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected refetch after invalidate, got %d hits", hits.Load())
	}
}

func TestGetEventTypes_FailureDoesNotPopulateCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"collection":[]}`))
	}))

	if _, err := c.GetEventTypes(context.Background(), "U1"); err == nil {
		t.Fatal("expected error on first fetch")
	}
	if _, err := c.GetEventTypes(context.Background(), "U1"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 remote fetches, got %d", hits.Load())
	}
}

func TestGetEventTypeAvailableTimes(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("event_type") != "ET1" {
			t.Errorf("unexpected event_type %q", q.Get("event_type"))
		}
		if q.Get("start_time") != "2025-03-10T00:00:00Z" || q.Get("end_time") != "2025-03-10T23:59:59Z" {
			t.Errorf("unexpected boundary %q - %q", q.Get("start_time"), q.Get("end_time"))
		}
		w.Write([]byte(`{"collection":[
			{"start_time":"2025-03-10T12:00:00Z","end_time":"2025-03-10T12:30:00Z"},
			{"start_time":"2025-03-10T13:30:00Z","end_time":"2025-03-10T14:00:00Z"}
		]}`))
	}))

	windows, err := c.GetEventTypeAvailableTimes(context.Background(), "ET1", "2025-03-10T00:00:00Z", "2025-03-10T23:59:59Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[0].StartTime.UTC().Hour() != 12 {
		t.Fatalf("unexpected first window start: %v", windows[0].StartTime)
	}
}

func TestGetScheduledEvents(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("user") != "U1" || q.Get("status") != "active" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`{"collection":[{
			"uri":"https://api.example.com/scheduled_events/E1",
			"name":"Consulta",
			"start_time":"2025-03-10T13:30:00Z",
			"end_time":"2025-03-10T14:00:00Z",
			"event_type":"ET1",
			"invitees_counter":1,
			"location":{"type":"physical","location":"Sala 2"},
			"created_at":"2025-03-01T08:00:00Z",
			"updated_at":"2025-03-01T08:00:00Z"
		}]}`))
	}))

	events, err := c.GetScheduledEvents(context.Background(), "U1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID() != "E1" {
		t.Fatalf("unexpected event id %q", events[0].ID())
	}
	if events[0].Location.Location != "Sala 2" {
		t.Fatalf("unexpected location %+v", events[0].Location)
	}
}

func TestCreateSchedulingLink(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/scheduling_links" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"resource":{"booking_url":"https://calendly.com/book/xyz"}}`))
	}))

	url, err := c.CreateSchedulingLink(context.Background(), "ET1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://calendly.com/book/xyz" {
		t.Fatalf("unexpected booking url %q", url)
	}
}

func TestCreateSchedulingLink_MissingURLIsMalformed(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resource":{}}`))
	}))

	if _, err := c.CreateSchedulingLink(context.Background(), "ET1"); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestCancelEvent(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/scheduled_events/E1/cancellation" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	if err := c.CancelEvent(context.Background(), "E1", "Cancelado pelo usuário"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCancelEvent_RemoteFailure(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	if err := c.CancelEvent(context.Background(), "E1", "motivo"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
