package bot

import (
	"context"
	"strings"

	kit "tickbot/internal/transport"
	logx "tickbot/pkg/logx"
)

const helpText = `<b>Reminders</b>
/remind &lt;when&gt; [newline reason] — schedule a reminder
/reminders — your pending reminders
/remind_cancel &lt;id&gt; — cancel one
/remind_clear — cancel all of yours
/now — current server time

<b>Watch parties</b>
/party_create &lt;name&gt; [newline when] — schedule a party in this chat
/party_date &lt;when&gt; [days] — move your party, optionally repeat every N days
/party_list — parties in this chat
/party_join [name] — join a party
/party_leave [name] — leave a party
/party_cancel — cancel your party

&lt;when&gt; is a duration (10m, 2h30m), a clock time (20:15),
or a date (24.12.2026 20:15 / 2026-12-24 20:15).`

// splitCommand extracts the command name from the first token of text,
// stripping the leading slash and any @botname suffix, and returns the
// remainder with line structure intact.
func splitCommand(text string) (cmd, rest string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head := text
	if i := strings.IndexAny(text, " \n"); i >= 0 {
		head, rest = text[:i], strings.TrimSpace(text[i+1:])
	}
	cmd = strings.TrimPrefix(head, "/")
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), rest
}

// firstLine splits rest into its first line and everything after it.
func firstLine(rest string) (line, remainder string) {
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		return strings.TrimSpace(rest[:i]), strings.TrimSpace(rest[i+1:])
	}
	return strings.TrimSpace(rest), ""
}

func (a *App) dispatch(ctx context.Context, m *kit.Message) {
	cmd, rest := splitCommand(m.Text)
	if cmd == "" {
		return
	}

	var reply string
	switch cmd {
	case "start", "help":
		reply = helpText
	case "now":
		reply = a.cmdNow()
	case "remind":
		reply = a.cmdRemind(ctx, m, rest)
	case "reminders":
		reply = a.cmdReminders(ctx, m)
	case "remind_cancel":
		reply = a.cmdRemindCancel(ctx, m, rest)
	case "remind_clear":
		reply = a.cmdRemindClear(ctx, m)
	case "party_create":
		reply = a.cmdPartyCreate(ctx, m, rest)
	case "party_date":
		reply = a.cmdPartyDate(ctx, m, rest)
	case "party_list":
		reply = a.cmdPartyList(ctx, m)
	case "party_join":
		reply = a.cmdPartyJoin(ctx, m, rest)
	case "party_leave":
		reply = a.cmdPartyLeave(ctx, m, rest)
	case "party_cancel":
		reply = a.cmdPartyCancel(ctx, m)
	default:
		return
	}
	if reply == "" {
		return
	}
	a.log.Debug("command handled",
		logx.String("cmd", cmd),
		logx.Int64("chat", m.ChatID),
		logx.Int64("from", m.FromID))
	a.notify.Notify(ctx, m.ChatID, reply)
}

// displayName picks something human to mention the sender by.
func displayName(m *kit.Message) string {
	if m.FromUsername != "" {
		return m.FromUsername
	}
	return "you"
}
