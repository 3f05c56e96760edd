package catalog_test

import (
	"testing"

	"jobly/api-service/internal/catalog"
)

var allStates = []catalog.State{
	catalog.StateInterested,
	catalog.StateApplied,
	catalog.StateAccepted,
	catalog.StateRejected,
}

// ── ParseState ─────────────────────────────────────────────────────────────

func TestParseState_ValidValues(t *testing.T) {
	for _, s := range []string{"INTERESTED", "APPLIED", "ACCEPTED", "REJECTED"} {
		got, err := catalog.ParseState(s)
		if err != nil {
			t.Errorf("ParseState(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseState(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseState_Invalid(t *testing.T) {
	for _, s := range []string{"", "UNKNOWN", "applied", " APPLIED", "APPLIED "} {
		if _, err := catalog.ParseState(s); err == nil {
			t.Errorf("ParseState(%q) expected error, got nil", s)
		}
	}
}

// ── IsInitial ──────────────────────────────────────────────────────────────

func TestIsInitial(t *testing.T) {
	want := map[catalog.State]bool{
		catalog.StateInterested: true,
		catalog.StateApplied:    true,
		catalog.StateAccepted:   false,
		catalog.StateRejected:   false,
	}
	for s, w := range want {
		if got := catalog.IsInitial(s); got != w {
			t.Errorf("IsInitial(%s) = %v, want %v", s, got, w)
		}
	}
}

// ── IsTransitionAllowed ────────────────────────────────────────────────────

func TestIsTransitionAllowed_ValidForward(t *testing.T) {
	cases := []struct {
		from catalog.State
		to   catalog.State
	}{
		{catalog.StateInterested, catalog.StateApplied},
		{catalog.StateApplied, catalog.StateAccepted},
	}
	for _, c := range cases {
		if !catalog.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_ToRejected(t *testing.T) {
	for _, from := range []catalog.State{catalog.StateInterested, catalog.StateApplied} {
		if !catalog.IsTransitionAllowed(from, catalog.StateRejected) {
			t.Errorf("IsTransitionAllowed(%s → REJECTED) should be true", from)
		}
	}
}

func TestIsTransitionAllowed_FromTerminal(t *testing.T) {
	for _, from := range []catalog.State{catalog.StateAccepted, catalog.StateRejected} {
		if !catalog.IsTerminal(from) {
			t.Errorf("IsTerminal(%s) should be true", from)
		}
		for _, to := range allStates {
			if catalog.IsTransitionAllowed(from, to) {
				t.Errorf("IsTransitionAllowed(%s → %s) should be false (terminal state)", from, to)
			}
		}
	}
}

func TestIsTransitionAllowed_SkipAndBackwards(t *testing.T) {
	cases := []struct {
		from catalog.State
		to   catalog.State
	}{
		{catalog.StateInterested, catalog.StateAccepted}, // skip APPLIED
		{catalog.StateApplied, catalog.StateInterested},  // backwards
	}
	for _, c := range cases {
		if catalog.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_Self(t *testing.T) {
	for _, s := range allStates {
		if catalog.IsTransitionAllowed(s, s) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false (self)", s, s)
		}
	}
}
