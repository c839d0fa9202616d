package gig

import "testing"

func TestResolvePhase(t *testing.T) {
	cases := []struct {
		now, deadline uint64
		claimed       bool
		want          Phase
	}{
		{now: 0, deadline: 10, want: PhaseInProgress},
		{now: 9, deadline: 10, claimed: true, want: PhaseInProgress},
		{now: 10, deadline: 10, want: PhaseSuccess},
		{now: 1 << 40, deadline: 10, want: PhaseSuccess},
		{now: 10, deadline: 10, claimed: true, want: PhaseOver},
		{now: 1 << 40, deadline: 10, claimed: true, want: PhaseOver},
		{now: 0, deadline: 0, want: PhaseSuccess},
	}
	for _, tc := range cases {
		if got := ResolvePhase(tc.now, tc.deadline, tc.claimed); got != tc.want {
			t.Fatalf("ResolvePhase(%d, %d, %v) = %s, want %s", tc.now, tc.deadline, tc.claimed, got, tc.want)
		}
	}
}

func TestPhaseOrdinal(t *testing.T) {
	if PhaseInProgress.Ordinal() != 0 || PhaseSuccess.Ordinal() != 1 || PhaseOver.Ordinal() != 2 {
		t.Fatalf("unexpected ordinal mapping")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected unknown phase to panic")
		}
	}()
	Phase("bogus").Ordinal()
}

func TestKeyBytes(t *testing.T) {
	deadline := fixedKey(KeyDeadline).Bytes()
	if string(deadline) != "gig/v1/\x00" {
		t.Fatalf("unexpected deadline key %q", deadline)
	}
	user := UserKey(addr(0xAB)).Bytes()
	if len(user) != len("gig/v1/")+1+20 || user[len("gig/v1/")] != byte(KeyUser) {
		t.Fatalf("unexpected user key %x", user)
	}
	if string(UserKey(addr(1)).Bytes()) == string(UserKey(addr(2)).Bytes()) {
		t.Fatalf("expected distinct user keys")
	}
	// identity is ignored for singleton slots
	if string((Key{Kind: KeyRating, User: addr(9)}).Bytes()) != string(fixedKey(KeyRating).Bytes()) {
		t.Fatalf("expected singleton key to ignore user")
	}
}
