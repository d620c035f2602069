package source

import (
	"errors"
	"testing"
	"time"
)

func TestBaseDefaults(t *testing.T) {
	b := NewBase(Config{Name: "s", Enabled: true})
	if got := b.PollInterval(); got != 5*time.Second {
		t.Fatalf("PollInterval = %v, want 5s", got)
	}
	if got := b.Platform(); got == "" {
		t.Fatal("Platform should default to a non-empty value")
	}
}

func TestBaseDisabledNeverAvailable(t *testing.T) {
	b := NewBase(Config{Name: "s", Enabled: false})
	if b.Available() {
		t.Fatal("disabled source reported available")
	}
}

func TestMarkPollCounters(t *testing.T) {
	b := NewBase(Config{Name: "s", Enabled: true})

	b.MarkPoll(3, nil)
	b.MarkPoll(2, nil)
	b.MarkPoll(0, errors.New("boom"))

	st := b.Status()
	if st.MessageCount != 5 {
		t.Fatalf("MessageCount = %d, want 5", st.MessageCount)
	}
	if st.ErrorCount != 1 {
		t.Fatalf("ErrorCount = %d, want 1", st.ErrorCount)
	}
	if st.LastError != "boom" {
		t.Fatalf("LastError = %q, want boom", st.LastError)
	}
	if st.LastPollTime.IsZero() {
		t.Fatal("LastPollTime not recorded")
	}
}

func TestAvailabilityThreshold(t *testing.T) {
	b := NewBase(Config{Name: "s", Enabled: true})
	boom := errors.New("boom")

	// Transient failures below the threshold keep the source available so
	// each poll cycle still attempts it and the error count keeps climbing.
	b.MarkPoll(0, boom)
	b.MarkPoll(0, boom)
	if !b.Available() {
		t.Fatal("source unavailable before threshold reached")
	}

	b.MarkPoll(0, boom)
	if b.Available() {
		t.Fatal("source available after threshold of consecutive failures")
	}

	// A successful poll clears the streak.
	b.MarkPoll(1, nil)
	if !b.Available() {
		t.Fatal("source unavailable after successful poll")
	}
	st := b.Status()
	if st.LastError != "" {
		t.Fatalf("LastError = %q, want empty after success", st.LastError)
	}
	if st.ErrorCount != 3 {
		t.Fatalf("ErrorCount = %d, want cumulative 3", st.ErrorCount)
	}
}
