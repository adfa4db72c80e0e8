package bot

import (
	"errors"
	"testing"
	"time"
)

func TestParseWhen(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		tokens []string
		want   time.Time
		err    error
	}{
		{
			name:   "duration minutes",
			tokens: []string{"10m"},
			want:   now.Add(10 * time.Minute),
		},
		{
			name:   "duration compound",
			tokens: []string{"2h30m"},
			want:   now.Add(2*time.Hour + 30*time.Minute),
		},
		{
			name:   "clock later today",
			tokens: []string{"18:45"},
			want:   time.Date(2026, 3, 14, 18, 45, 0, 0, time.UTC),
		},
		{
			name:   "clock rolls to tomorrow",
			tokens: []string{"09:00"},
			want:   time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			name:   "dotted datetime",
			tokens: []string{"24.12.2026", "20:15"},
			want:   time.Date(2026, 12, 24, 20, 15, 0, 0, time.UTC),
		},
		{
			name:   "iso datetime",
			tokens: []string{"2026-12-24", "20:15"},
			want:   time.Date(2026, 12, 24, 20, 15, 0, 0, time.UTC),
		},
		{
			name:   "past datetime rejected",
			tokens: []string{"01.01.2020", "10:00"},
			err:    ErrPastDeadline,
		},
		{
			name:   "negative duration rejected",
			tokens: []string{"-5m"},
			err:    ErrBadTime,
		},
		{
			name:   "garbage rejected",
			tokens: []string{"soonish"},
			err:    ErrBadTime,
		},
		{
			name:   "empty rejected",
			tokens: nil,
			err:    ErrBadTime,
		},
		{
			name:   "too many tokens rejected",
			tokens: []string{"10m", "or", "so"},
			err:    ErrBadTime,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseWhen(now, tc.tokens)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("parseWhen(%v) err = %v, want %v", tc.tokens, err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseWhen(%v): %v", tc.tokens, err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("parseWhen(%v) = %v, want %v", tc.tokens, got, tc.want)
			}
		})
	}
}

func TestParseWhenRespectsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, loc)

	got, err := parseWhen(now, []string{"18:00"})
	if err != nil {
		t.Fatalf("parseWhen: %v", err)
	}
	if got.Location() != loc {
		t.Fatalf("location = %v, want %v", got.Location(), loc)
	}
	if got.Hour() != 18 {
		t.Fatalf("hour = %d, want 18", got.Hour())
	}
}
