package bot

import (
	"reflect"
	"testing"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		text string
		cmd  string
		rest string
	}{
		{"/remind 10m\nbuy milk", "remind", "10m\nbuy milk"},
		{"/remind@tickbot 10m", "remind", "10m"},
		{"/party_list", "party_list", ""},
		{"/NOW", "now", ""},
		{"  /help  ", "help", ""},
		{"hello there", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		cmd, rest := splitCommand(tc.text)
		if cmd != tc.cmd || rest != tc.rest {
			t.Errorf("splitCommand(%q) = (%q, %q), want (%q, %q)",
				tc.text, cmd, rest, tc.cmd, tc.rest)
		}
	}
}

func TestSplitWhenTokens(t *testing.T) {
	cases := []struct {
		line   string
		tokens []string
		recur  int
		ok     bool
	}{
		{"10m", []string{"10m"}, 0, true},
		{"10m 7", []string{"10m"}, 7, true},
		{"24.12.2026 20:15", []string{"24.12.2026", "20:15"}, 0, true},
		{"24.12.2026 20:15 14", []string{"24.12.2026", "20:15"}, 14, true},
		{"20:15 0", []string{"20:15"}, 0, true},
		{"10m 9999", nil, 0, false},
		{"10m -1", nil, 0, false},
	}
	for _, tc := range cases {
		tokens, recur, ok := splitWhenTokens(tc.line)
		if ok != tc.ok {
			t.Errorf("splitWhenTokens(%q) ok = %v, want %v", tc.line, ok, tc.ok)
			continue
		}
		if !ok {
			continue
		}
		if !reflect.DeepEqual(tokens, tc.tokens) || recur != tc.recur {
			t.Errorf("splitWhenTokens(%q) = (%v, %d), want (%v, %d)",
				tc.line, tokens, recur, tc.tokens, tc.recur)
		}
	}
}

func TestPartyRoster(t *testing.T) {
	var p partyPayload
	p.add(participant{ID: 1, Name: "ann"})
	p.add(participant{ID: 2, Name: "bob"})
	p.add(participant{ID: 1, Name: "ann again"})

	if len(p.Participants) != 2 {
		t.Fatalf("participants = %d, want 2 (joins must be idempotent)", len(p.Participants))
	}
	if !p.has(1) || !p.has(2) || p.has(3) {
		t.Fatalf("membership wrong: %+v", p.Participants)
	}
	if !p.remove(1) {
		t.Fatal("remove(1) = false, want true")
	}
	if p.remove(1) {
		t.Fatal("second remove(1) = true, want false")
	}
	if len(p.Participants) != 1 || p.Participants[0].ID != 2 {
		t.Fatalf("roster after remove = %+v", p.Participants)
	}
}

func TestMentionEscapesName(t *testing.T) {
	got := mention(42, "<evil>")
	want := `<a href="tg://user?id=42">&lt;evil&gt;</a>`
	if got != want {
		t.Fatalf("mention = %q, want %q", got, want)
	}
}
