package types

import (
	"testing"
	"time"
)

func TestEventID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		uri  string
		want string
	}{
		{name: "full_uri", uri: "https://api.example.com/scheduled_events/ABC123", want: "ABC123"},
		{name: "trailing_whitespace", uri: "https://api.example.com/scheduled_events/ABC123 ", want: "ABC123"},
		{name: "bare_id", uri: "ABC123", want: "ABC123"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := EventID(tc.uri); got != tc.want {
				t.Fatalf("EventID(%q) = %q, want %q", tc.uri, got, tc.want)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 10, 13, 30, 0, 0, time.Local)
	if got := FormatTime(ts); got != "13:30" {
		t.Fatalf("FormatTime = %q, want 13:30", got)
	}
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 10, 13, 30, 0, 0, time.Local)
	if got := FormatDate(ts); got != "10/03/2025" {
		t.Fatalf("FormatDate = %q, want 10/03/2025", got)
	}
}
