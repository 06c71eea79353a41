package dateinfo_test

import (
	"testing"
	"time"

	"github.com/ncastellanos/eventgate/internal/dateinfo"
)

func frozenNow(t *testing.T) time.Time {
	t.Helper()

	now, err := time.Parse(time.RFC3339, "2023-09-03T00:00:00Z")
	if err != nil {
		t.Fatalf("failed to parse fixed now: %v", err)
	}
	return now
}

func TestResolve(t *testing.T) {
	now := frozenNow(t)

	tests := []struct {
		name         string
		raw          string
		wantValid    bool
		wantPast     bool
		wantToday    bool
		wantTomorrow bool
		wantDays     int
		wantRelative string
	}{
		{
			name:         "two_days_out",
			raw:          "2023-09-05T10:00:00Z",
			wantValid:    true,
			wantDays:     2,
			wantRelative: "en 2 días",
		},
		{
			name:         "same_day_later",
			raw:          "2023-09-03T18:00:00Z",
			wantValid:    true,
			wantToday:    true,
			wantDays:     0,
			wantRelative: "hoy",
		},
		{
			name:         "tomorrow",
			raw:          "2023-09-04T09:00:00Z",
			wantValid:    true,
			wantTomorrow: true,
			wantDays:     1,
			wantRelative: "mañana",
		},
		{
			name:         "three_days_ago",
			raw:          "2023-08-31T00:00:00Z",
			wantValid:    true,
			wantPast:     true,
			wantDays:     -3,
			wantRelative: "hace 3 días",
		},
		{
			name:         "yesterday_singular",
			raw:          "2023-09-02T12:00:00Z",
			wantValid:    true,
			wantPast:     true,
			wantDays:     -1,
			wantRelative: "hace 1 día",
		},
		{
			name:         "date_only_layout",
			raw:          "2023-09-10",
			wantValid:    true,
			wantDays:     7,
			wantRelative: "en 7 días",
		},
		{
			name:      "garbage_never_throws",
			raw:       "not-a-date",
			wantValid: false,
		},
		{
			name:      "empty_string",
			raw:       "",
			wantValid: false,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			got := dateinfo.Resolve(tt.raw, now)

			if got.IsValid != tt.wantValid {
				t.Fatalf("IsValid = %v, want %v", got.IsValid, tt.wantValid)
			}
			if got.IsPast != tt.wantPast {
				t.Fatalf("IsPast = %v, want %v", got.IsPast, tt.wantPast)
			}

			if !tt.wantValid {
				// invalid input must still yield safe display strings
				if got.FormattedDate == "" || got.FormattedTime == "" {
					t.Fatalf("expected placeholder strings, got %+v", got)
				}
				return
			}

			if got.IsToday != tt.wantToday {
				t.Fatalf("IsToday = %v, want %v", got.IsToday, tt.wantToday)
			}
			if got.IsTomorrow != tt.wantTomorrow {
				t.Fatalf("IsTomorrow = %v, want %v", got.IsTomorrow, tt.wantTomorrow)
			}
			if got.DaysUntil != tt.wantDays {
				t.Fatalf("DaysUntil = %d, want %d", got.DaysUntil, tt.wantDays)
			}
			if got.RelativeTime != tt.wantRelative {
				t.Fatalf("RelativeTime = %q, want %q", got.RelativeTime, tt.wantRelative)
			}
		})
	}
}

func TestResolveFormatsValidDates(t *testing.T) {
	got := dateinfo.Resolve("2023-09-05T10:30:00Z", frozenNow(t))

	if got.FormattedDate != "05/09/2023" {
		t.Fatalf("FormattedDate = %q, want %q", got.FormattedDate, "05/09/2023")
	}
	if got.FormattedTime != "10:30" {
		t.Fatalf("FormattedTime = %q, want %q", got.FormattedTime, "10:30")
	}
}
