package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"tickbot/internal/sched"
	"tickbot/internal/storage"
	kit "tickbot/internal/transport"
	logx "tickbot/pkg/logx"
)

const partyNameLimit = 64

// ownPartyInChat finds the caller's party scheduled for this chat, if any.
func (a *App) ownPartyInChat(ctx context.Context, m *kit.Message) (*sched.Event, error) {
	evs, err := a.parties.List(ctx, m.FromID)
	if err != nil {
		return nil, err
	}
	for i := range evs {
		if evs[i].TargetID == m.ChatID {
			return &evs[i], nil
		}
	}
	return nil, nil
}

// findPartyInChat resolves a party by name within the chat. An empty name
// matches only when the chat has exactly one party.
func (a *App) findPartyInChat(ctx context.Context, chatID int64, name string) (*sched.Event, partyPayload, string) {
	evs, err := a.partyStore.ListByTarget(ctx, chatID)
	if err != nil {
		a.log.Error("list parties", logx.Err(err))
		return nil, partyPayload{}, "Something went wrong, try again."
	}
	if len(evs) == 0 {
		return nil, partyPayload{}, "No parties scheduled in this chat."
	}
	if name == "" {
		if len(evs) > 1 {
			return nil, partyPayload{}, "Several parties here, name one (see /party_list)."
		}
		p, err := decodeParty(evs[0])
		if err != nil {
			a.log.Error("decode party payload", logx.Int64("id", evs[0].ID), logx.Err(err))
			return nil, partyPayload{}, "Something went wrong, try again."
		}
		return &evs[0], p, ""
	}
	for i := range evs {
		p, err := decodeParty(evs[i])
		if err != nil {
			continue
		}
		if strings.EqualFold(p.Name, name) {
			return &evs[i], p, ""
		}
	}
	return nil, partyPayload{}, fmt.Sprintf("No party named %q here.", name)
}

func (a *App) cmdPartyCreate(ctx context.Context, m *kit.Message, rest string) string {
	name, whenLine := firstLine(rest)
	if name == "" || whenLine == "" {
		return "Usage: /party_create &lt;name&gt;, time on the next line."
	}
	if r := []rune(name); len(r) > partyNameLimit {
		return fmt.Sprintf("Party names top out at %d characters.", partyNameLimit)
	}

	tokens, recur, ok := splitWhenTokens(whenLine)
	if !ok {
		return fmt.Sprintf("Repeat interval must be between 0 and %d days.", maxRecurDays)
	}
	now := a.now()
	at, err := parseWhen(now, tokens)
	if err != nil {
		return whenErrorReply(err)
	}

	existing, err := a.ownPartyInChat(ctx, m)
	if err != nil {
		a.log.Error("list parties", logx.Err(err))
		return "Something went wrong, try again."
	}
	if existing != nil {
		return "You already host a party in this chat. /party_date to move it or /party_cancel first."
	}

	pl := partyPayload{
		Name:         name,
		Participants: []participant{{ID: m.FromID, Name: displayName(m)}},
	}
	payload, err := encodePayload(pl)
	if err != nil {
		a.log.Error("encode party payload", logx.Err(err))
		return "Something went wrong, try again."
	}
	id, err := a.parties.Schedule(ctx, sched.Event{
		OwnerID:   m.FromID,
		TargetID:  m.ChatID,
		CreatedAt: now,
		Deadline:  at,
		Payload:   payload,
		RecurDays: recur,
	})
	if err != nil {
		a.log.Error("schedule party", logx.Err(err))
		return "Something went wrong, try again."
	}

	reply := fmt.Sprintf("🎬 <b>%s</b> (#%d) scheduled for %s. /party_join to get pinged.",
		html.EscapeString(name), id, at.Format(displayTime))
	if recur > 0 {
		reply += fmt.Sprintf(" Repeats every %s.", pluralDays(recur))
	}
	return reply
}

func (a *App) cmdPartyDate(ctx context.Context, m *kit.Message, rest string) string {
	line, _ := firstLine(rest)
	if line == "" {
		return "Usage: /party_date &lt;when&gt; [repeat days]"
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

	ev, err := a.ownPartyInChat(ctx, m)
	if err != nil {
		a.log.Error("list parties", logx.Err(err))
		return "Something went wrong, try again."
	}
	if ev == nil {
		return "You host no party in this chat. /party_create starts one."
	}

	// Moving the date is cancel-and-reschedule so the loop re-arms cleanly;
	// the roster travels with the payload.
	if _, err := a.parties.CancelOne(ctx, m.FromID, ev.ID); err != nil {
		a.log.Error("cancel party", logx.Int64("id", ev.ID), logx.Err(err))
		return "Something went wrong, try again."
	}
	id, err := a.parties.Schedule(ctx, sched.Event{
		OwnerID:   ev.OwnerID,
		TargetID:  ev.TargetID,
		CreatedAt: now,
		Deadline:  at,
		Payload:   ev.Payload,
		RecurDays: recur,
	})
	if err != nil {
		a.log.Error("reschedule party", logx.Err(err))
		return "Something went wrong, try again."
	}
	reply := fmt.Sprintf("📅 Party #%d moved to %s.", id, at.Format(displayTime))
	if recur > 0 {
		reply += fmt.Sprintf(" Repeats every %s.", pluralDays(recur))
	}
	return reply
}

func (a *App) cmdPartyList(ctx context.Context, m *kit.Message) string {
	evs, err := a.partyStore.ListByTarget(ctx, m.ChatID)
	if err != nil {
		a.log.Error("list parties", logx.Err(err))
		return "Something went wrong, try again."
	}
	if len(evs) == 0 {
		return "No parties scheduled in this chat."
	}

	var b strings.Builder
	b.WriteString("Upcoming parties:\n")
	for _, ev := range evs {
		p, err := decodeParty(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "• <b>%s</b> — %s — %d going",
			html.EscapeString(p.Name), ev.Deadline.Format(displayTime), len(p.Participants))
		if ev.Recurring() {
			fmt.Fprintf(&b, " (every %s)", pluralDays(ev.RecurDays))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) cmdPartyJoin(ctx context.Context, m *kit.Message, rest string) string {
	name, _ := firstLine(rest)
	ev, pl, fail := a.findPartyInChat(ctx, m.ChatID, name)
	if fail != "" {
		return fail
	}
	if pl.has(m.FromID) {
		return fmt.Sprintf("You're already in for <b>%s</b>.", html.EscapeString(pl.Name))
	}
	pl.add(participant{ID: m.FromID, Name: displayName(m)})
	if fail := a.savePartyRoster(ctx, ev.ID, pl); fail != "" {
		return fail
	}
	return fmt.Sprintf("👍 You're in for <b>%s</b> on %s.",
		html.EscapeString(pl.Name), ev.Deadline.Format(displayTime))
}

func (a *App) cmdPartyLeave(ctx context.Context, m *kit.Message, rest string) string {
	name, _ := firstLine(rest)
	ev, pl, fail := a.findPartyInChat(ctx, m.ChatID, name)
	if fail != "" {
		return fail
	}
	if !pl.remove(m.FromID) {
		return fmt.Sprintf("You weren't in for <b>%s</b>.", html.EscapeString(pl.Name))
	}
	if fail := a.savePartyRoster(ctx, ev.ID, pl); fail != "" {
		return fail
	}
	return fmt.Sprintf("👋 You're out of <b>%s</b>.", html.EscapeString(pl.Name))
}

func (a *App) savePartyRoster(ctx context.Context, id int64, pl partyPayload) string {
	payload, err := encodePayload(pl)
	if err != nil {
		a.log.Error("encode party payload", logx.Err(err))
		return "Something went wrong, try again."
	}
	switch err := a.partyStore.UpdatePayload(ctx, id, payload); {
	case err == nil:
		return ""
	case errors.Is(err, storage.ErrNotFound):
		// The party fired or was cancelled between lookup and update.
		return "That party just ended or was cancelled."
	default:
		a.log.Error("update party roster", logx.Int64("id", id), logx.Err(err))
		return "Something went wrong, try again."
	}
}

func (a *App) cmdPartyCancel(ctx context.Context, m *kit.Message) string {
	ev, err := a.ownPartyInChat(ctx, m)
	if err != nil {
		a.log.Error("list parties", logx.Err(err))
		return "Something went wrong, try again."
	}
	if ev == nil {
		return "You host no party in this chat."
	}
	if _, err := a.parties.CancelOne(ctx, m.FromID, ev.ID); err != nil {
		a.log.Error("cancel party", logx.Int64("id", ev.ID), logx.Err(err))
		return "Something went wrong, try again."
	}
	p, derr := decodeParty(*ev)
	if derr != nil {
		return "🗑 Party cancelled."
	}
	return fmt.Sprintf("🗑 Party <b>%s</b> cancelled.", html.EscapeString(p.Name))
}
