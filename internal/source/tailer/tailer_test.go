package tailer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatwatch/internal/source"
)

func newTestTailer(t *testing.T, fromStart bool) (*Source, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spool.jsonl")
	s := New(Config{
		Source:    source.Config{Name: "desktop", Platform: "wechat_win", Enabled: true},
		Path:      path,
		FromStart: fromStart,
	})
	return s, path
}

func appendLine(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(s + "\n"); err != nil {
		t.Fatal(err)
	}
}

func TestPollMissingFile(t *testing.T) {
	s, _ := newTestTailer(t, true)
	msgs, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0", len(msgs))
	}
}

func TestPollReadsOnlyNewLines(t *testing.T) {
	s, path := newTestTailer(t, true)
	appendLine(t, path, `{"channel":"c1","sender":"a","content":"first"}`)

	msgs, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "first" {
		t.Fatalf("unexpected first poll: %+v", msgs)
	}
	if msgs[0].SourceName != "desktop" || msgs[0].Platform != "wechat_win" {
		t.Fatalf("source identity not stamped: %+v", msgs[0])
	}
	if msgs[0].ID == "" {
		t.Fatal("expected derived ID for line without msg_id")
	}

	appendLine(t, path, `{"channel":"c1","content":"second"}`)
	appendLine(t, path, `{"channel":"c1","content":"third"}`)

	msgs, err = s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "second" || msgs[1].Content != "third" {
		t.Fatalf("unexpected second poll: %+v", msgs)
	}

	// Nothing new.
	msgs, err = s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0", len(msgs))
	}
}

func TestPollSkipsExistingWhenNotFromStart(t *testing.T) {
	s, path := newTestTailer(t, false)
	appendLine(t, path, `{"channel":"c","content":"old"}`)

	msgs, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("first poll should skip backlog, got %+v", msgs)
	}

	appendLine(t, path, `{"channel":"c","content":"new"}`)
	msgs, err = s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "new" {
		t.Fatalf("unexpected poll after append: %+v", msgs)
	}
}

func TestPollSkipsMalformedLines(t *testing.T) {
	s, path := newTestTailer(t, true)
	appendLine(t, path, `not json`)
	appendLine(t, path, `{"channel":"c"}`)
	appendLine(t, path, `{"channel":"c","content":"good"}`)

	msgs, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "good" {
		t.Fatalf("unexpected poll: %+v", msgs)
	}
}

func TestPollHandlesTruncation(t *testing.T) {
	s, path := newTestTailer(t, true)
	appendLine(t, path, `{"channel":"c","content":"one"}`)
	if _, err := s.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if err := os.Truncate(path, 0); err != nil {
		t.Fatal(err)
	}
	appendLine(t, path, `{"channel":"c","content":"after-rotate"}`)

	msgs, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "after-rotate" {
		t.Fatalf("unexpected poll after truncation: %+v", msgs)
	}
}

func TestPollSkipsOversizedLine(t *testing.T) {
	s, path := newTestTailer(t, true)
	appendLine(t, path, `{"channel":"c","content":"before"}`)
	appendLine(t, path, strings.Repeat("x", maxLineBytes+1024))
	appendLine(t, path, `{"channel":"c","content":"after"}`)

	// First poll delivers what precedes the oversized line and moves the
	// offset past it instead of failing.
	msgs, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "before" {
		t.Fatalf("unexpected first poll: %+v", msgs)
	}

	msgs, err = s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll after skip: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "after" {
		t.Fatalf("line behind the oversized one lost: %+v", msgs)
	}

	// And the tail keeps moving afterwards.
	appendLine(t, path, `{"channel":"c","content":"later"}`)
	msgs, err = s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "later" {
		t.Fatalf("unexpected poll: %+v", msgs)
	}
}

func TestPollUsesNativeMsgID(t *testing.T) {
	s, path := newTestTailer(t, true)
	appendLine(t, path, `{"msg_id":"native-1","channel":"c","content":"x"}`)
	msgs, err := s.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "native-1" {
		t.Fatalf("unexpected poll: %+v", msgs)
	}
}
