package bot

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"tickbot/internal/sched"
)

// reminderPayload is the JSON blob stored in a reminder event.
type reminderPayload struct {
	Text      string `json:"text"`
	OwnerName string `json:"owner_name"`
}

// partyPayload is the JSON blob stored in a watch-party event.
type partyPayload struct {
	Name         string        `json:"name"`
	Participants []participant `json:"participants"`
}

type participant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (p partyPayload) has(id int64) bool {
	for _, m := range p.Participants {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (p *partyPayload) add(m participant) {
	if p.has(m.ID) {
		return
	}
	p.Participants = append(p.Participants, m)
}

func (p *partyPayload) remove(id int64) bool {
	for i, m := range p.Participants {
		if m.ID == id {
			p.Participants = append(p.Participants[:i], p.Participants[i+1:]...)
			return true
		}
	}
	return false
}

func encodePayload(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(raw), nil
}

func decodeReminder(ev sched.Event) (reminderPayload, error) {
	var p reminderPayload
	if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
		return reminderPayload{}, fmt.Errorf("decode reminder payload: %w", err)
	}
	return p, nil
}

func decodeParty(ev sched.Event) (partyPayload, error) {
	var p partyPayload
	if err := json.Unmarshal([]byte(ev.Payload), &p); err != nil {
		return partyPayload{}, fmt.Errorf("decode party payload: %w", err)
	}
	return p, nil
}

// mention renders an HTML user mention that notifies even users without
// a public username.
func mention(id int64, name string) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, id, html.EscapeString(name))
}

func renderReminderFire(ev sched.Event, p reminderPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ %s\n", mention(ev.OwnerID, p.OwnerName))
	b.WriteString(html.EscapeString(p.Text))
	if ev.Recurring() {
		fmt.Fprintf(&b, "\n\nRepeats every %s.", pluralDays(ev.RecurDays))
	}
	return b.String()
}

func renderPartyFire(ev sched.Event, p partyPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 <b>%s</b> is starting!\n", html.EscapeString(p.Name))
	for i, m := range p.Participants {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(mention(m.ID, m.Name))
	}
	if ev.Recurring() {
		fmt.Fprintf(&b, "\n\nNext one in %s.", pluralDays(ev.RecurDays))
	}
	return b.String()
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
