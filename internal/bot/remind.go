package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"tickbot/internal/sched"
	kit "tickbot/internal/transport"
	logx "tickbot/pkg/logx"
)

const (
	reasonFallback = "No reason given"
	reasonLimit    = 200
	maxListed      = 10
	maxRecurDays   = 360
)

// splitWhenTokens splits a time expression line into parseWhen tokens plus an
// optional trailing repeat-interval in days.
func splitWhenTokens(line string) (tokens []string, recur int, ok bool) {
	tokens = strings.Fields(line)
	if len(tokens) < 2 {
		return tokens, 0, true
	}
	last := tokens[len(tokens)-1]
	n, err := strconv.Atoi(last)
	if err != nil {
		return tokens, 0, true
	}
	// A bare integer never terminates a valid time expression, so it is
	// the repeat interval.
	if n < 0 || n > maxRecurDays {
		return nil, 0, false
	}
	return tokens[:len(tokens)-1], n, true
}

func whenErrorReply(err error) string {
	switch err {
	case ErrPastDeadline:
		return "That moment has already passed."
	default:
		return "I don't understand that time. Try 10m, 20:15 or 24.12.2026 20:15."
	}
}

func (a *App) cmdNow() string {
	return "🕒 " + a.now().Format(displayTime)
}

func (a *App) cmdRemind(ctx context.Context, m *kit.Message, rest string) string {
	line, reason := firstLine(rest)
	if line == "" {
		return "Usage: /remind &lt;when&gt;, reason on the next line."
	}
	tokens, recur, ok := splitWhenTokens(line)
	if !ok {
		return fmt.Sprintf("Repeat interval must be between 0 and %d days.", maxRecurDays)
	}
	now := a.now()
	at, err := parseWhen(now, tokens)
	if err != nil {
		return whenErrorReply(err)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = reasonFallback
	}
	if r := []rune(reason); len(r) > reasonLimit {
		reason = string(r[:reasonLimit])
	}

	pl := reminderPayload{Text: reason, OwnerName: displayName(m)}
	payload, err := encodePayload(pl)
	if err != nil {
		a.log.Error("encode reminder payload", logx.Err(err))
		return "Something went wrong, try again."
	}
	ev := sched.Event{
		OwnerID:   m.FromID,
		TargetID:  m.ChatID,
		CreatedAt: now,
		Deadline:  at,
		Payload:   payload,
		RecurDays: recur,
	}

	// Very near deadlines skip the store entirely: a plain sleep is cheaper
	// than a row that would be deleted within the minute, and a restart
	// losing one sub-minute reminder is acceptable.
	if sup := a.reminders.Supervisor(); sup != nil && recur == 0 && at.Sub(now) < a.fastPathWindow() {
		sup.Go0("reminder.fast", func(c context.Context) {
			t := time.NewTimer(at.Sub(a.now()))
			defer t.Stop()
			select {
			case <-c.Done():
			case <-t.C:
				a.notify.Notify(c, ev.TargetID, renderReminderFire(ev, pl))
			}
		})
		return fmt.Sprintf("⏳ Got it, pinging you at %s.", at.Format("15:04:05"))
	}

	id, err := a.reminders.Schedule(ctx, ev)
	if err != nil {
		a.log.Error("schedule reminder", logx.Err(err))
		return "Something went wrong, try again."
	}
	reply := fmt.Sprintf("✅ Reminder #%d set for %s.", id, at.Format(displayTime))
	if recur > 0 {
		reply += fmt.Sprintf(" Repeats every %s.", pluralDays(recur))
	}
	return reply
}

func (a *App) cmdReminders(ctx context.Context, m *kit.Message) string {
	evs, err := a.reminders.List(ctx, m.FromID)
	if err != nil {
		a.log.Error("list reminders", logx.Err(err))
		return "Something went wrong, try again."
	}
	if len(evs) == 0 {
		return "You have no pending reminders."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d pending reminder(s):\n", len(evs))
	for i, ev := range evs {
		if i == maxListed {
			fmt.Fprintf(&b, "… and %d more.", len(evs)-maxListed)
			break
		}
		text := reasonFallback
		if p, err := decodeReminder(ev); err == nil && p.Text != "" {
			text = p.Text
		}
		fmt.Fprintf(&b, "#%d — %s — %s", ev.ID, ev.Deadline.Format(displayTime), html.EscapeString(text))
		if ev.Recurring() {
			fmt.Fprintf(&b, " (every %s)", pluralDays(ev.RecurDays))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) cmdRemindCancel(ctx context.Context, m *kit.Message, rest string) string {
	id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return "Usage: /remind_cancel &lt;id&gt; (see /reminders)."
	}
	removed, err := a.reminders.CancelOne(ctx, m.FromID, id)
	if err != nil {
		a.log.Error("cancel reminder", logx.Int64("id", id), logx.Err(err))
		return "Something went wrong, try again."
	}
	if !removed {
		return fmt.Sprintf("No reminder #%d of yours.", id)
	}
	return fmt.Sprintf("🗑 Reminder #%d cancelled.", id)
}

func (a *App) cmdRemindClear(ctx context.Context, m *kit.Message) string {
	ids, err := a.reminders.CancelAll(ctx, m.FromID)
	if err != nil {
		a.log.Error("clear reminders", logx.Err(err))
		return "Something went wrong, try again."
	}
	if len(ids) == 0 {
		return "You have no pending reminders."
	}
	return fmt.Sprintf("🗑 Cancelled %d reminder(s).", len(ids))
}
