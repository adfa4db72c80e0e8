package bot

import (
	"strings"
	"time"
)

// displayTime is how deadlines are rendered back to users.
const displayTime = "02.01.2006 15:04"

var absoluteLayouts = []string{
	"02.01.2006 15:04",
	"2006-01-02 15:04",
}

// parseWhen interprets tokens as a point in time, consuming all of them.
//
// Accepted forms:
//   - a Go duration: "10m", "1h30m"
//   - a clock time: "20:15" (today, or tomorrow if already past)
//   - an absolute datetime: "24.12.2026 20:15" or "2026-12-24 20:15"
//
// The result is strictly in the future relative to now, otherwise
// ErrPastDeadline. Anything unparseable is ErrBadTime.
func parseWhen(now time.Time, tokens []string) (time.Time, error) {
	if len(tokens) == 0 {
		return time.Time{}, ErrBadTime
	}

	// Absolute datetime: exactly two tokens (date + clock).
	if len(tokens) == 2 {
		joined := tokens[0] + " " + tokens[1]
		for _, layout := range absoluteLayouts {
			if at, err := time.ParseInLocation(layout, joined, now.Location()); err == nil {
				return ensureFuture(now, at)
			}
		}
	}

	if len(tokens) != 1 {
		return time.Time{}, ErrBadTime
	}
	tok := tokens[0]

	// Relative duration.
	if looksLikeDuration(tok) {
		d, err := time.ParseDuration(tok)
		if err != nil {
			return time.Time{}, ErrBadTime
		}
		if d <= 0 {
			return time.Time{}, ErrPastDeadline
		}
		return now.Add(d), nil
	}

	// Clock time: today, rolling over to tomorrow when already past.
	if clock, err := time.ParseInLocation("15:04", tok, now.Location()); err == nil {
		at := time.Date(now.Year(), now.Month(), now.Day(),
			clock.Hour(), clock.Minute(), 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		return at, nil
	}

	return time.Time{}, ErrBadTime
}

func ensureFuture(now, at time.Time) (time.Time, error) {
	if !at.After(now) {
		return time.Time{}, ErrPastDeadline
	}
	return at, nil
}

// looksLikeDuration distinguishes "10m" / "1h30m" from clock times and dates
// before handing the token to time.ParseDuration (which would also accept
// things users never mean here, like "-5s").
func looksLikeDuration(s string) bool {
	if s == "" || strings.ContainsAny(s, ":.-") {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return r < '0' || r > '9'
	}) > 0
}
