package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"tickbot/internal/sched"
	kit "tickbot/internal/transport"
	logx "tickbot/pkg/logx"
)

func newPartyFixture(t *testing.T) (*App, context.Context) {
	t.Helper()
	db := openBotTestDB(t)
	return &App{
		partyStore: db.Events("party"),
		log:        logx.Nop(),
	}, context.Background()
}

func seedParty(t *testing.T, a *App, chatID, ownerID int64, name string) int64 {
	t.Helper()
	payload, err := encodePayload(partyPayload{
		Name:         name,
		Participants: []participant{{ID: ownerID, Name: "host"}},
	})
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	return mustInsertEvent(t, a.partyStore, sched.Event{
		OwnerID:   ownerID,
		TargetID:  chatID,
		CreatedAt: time.Now().Truncate(time.Second),
		Deadline:  time.Now().Truncate(time.Second).Add(time.Hour),
		Payload:   payload,
	})
}

func TestPartyJoinLeaveRoundTrip(t *testing.T) {
	a, ctx := newPartyFixture(t)
	id := seedParty(t, a, 100, 1, "movie night")

	guest := &kit.Message{ChatID: 100, FromID: 2, FromUsername: "guest"}
	if reply := a.cmdPartyJoin(ctx, guest, ""); !strings.Contains(reply, "You're in") {
		t.Fatalf("join reply = %q", reply)
	}

	ev, err := a.partyStore.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	pl, err := decodeParty(ev)
	if err != nil {
		t.Fatalf("decodeParty: %v", err)
	}
	if len(pl.Participants) != 2 || !pl.has(2) {
		t.Fatalf("roster after join = %+v", pl.Participants)
	}

	// Joining again must not duplicate the entry.
	if reply := a.cmdPartyJoin(ctx, guest, ""); !strings.Contains(reply, "already in") {
		t.Fatalf("second join reply = %q", reply)
	}

	if reply := a.cmdPartyLeave(ctx, guest, ""); !strings.Contains(reply, "You're out") {
		t.Fatalf("leave reply = %q", reply)
	}
	ev, err = a.partyStore.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	pl, err = decodeParty(ev)
	if err != nil {
		t.Fatalf("decodeParty: %v", err)
	}
	if len(pl.Participants) != 1 || pl.has(2) {
		t.Fatalf("roster after leave = %+v", pl.Participants)
	}
}

func TestPartyJoinByNamePicksRightParty(t *testing.T) {
	a, ctx := newPartyFixture(t)
	seedParty(t, a, 100, 1, "movie night")
	wantID := seedParty(t, a, 100, 2, "game night")

	guest := &kit.Message{ChatID: 100, FromID: 3, FromUsername: "guest"}

	// Two parties in the chat: a bare join is ambiguous.
	if reply := a.cmdPartyJoin(ctx, guest, ""); !strings.Contains(reply, "Several parties") {
		t.Fatalf("ambiguous join reply = %q", reply)
	}
	if reply := a.cmdPartyJoin(ctx, guest, "Game Night"); !strings.Contains(reply, "You're in") {
		t.Fatalf("named join reply = %q", reply)
	}

	ev, err := a.partyStore.Get(ctx, wantID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	pl, err := decodeParty(ev)
	if err != nil {
		t.Fatalf("decodeParty: %v", err)
	}
	if !pl.has(3) {
		t.Fatalf("guest missing from named party roster: %+v", pl.Participants)
	}
}

func TestSavePartyRosterAfterPartyGone(t *testing.T) {
	a, ctx := newPartyFixture(t)
	id := seedParty(t, a, 100, 1, "movie night")

	// The party fires (or is cancelled) between lookup and roster update.
	if err := a.partyStore.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	reply := a.savePartyRoster(ctx, id, partyPayload{Name: "movie night"})
	if !strings.Contains(reply, "just ended") {
		t.Fatalf("roster update on gone party = %q, want the gone-party notice", reply)
	}
}
