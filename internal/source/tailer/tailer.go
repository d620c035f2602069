// Package tailer reads messages appended to a JSONL file.
//
// Desktop capture tools write one JSON object per line to a spool file; the
// tailer remembers its byte offset and each poll parses only what was added
// since the last one. Truncation (log rotation) resets the offset to zero.
package tailer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"chatwatch/internal/message"
	"chatwatch/internal/source"
)

// maxLineBytes bounds a single spool line. Chat messages are short; anything
// past this is a corrupt line and gets skipped.
const maxLineBytes = 256 * 1024

type line struct {
	MsgID     string `json:"msg_id,omitempty"`
	Channel   string `json:"channel"`
	Sender    string `json:"sender,omitempty"`
	SenderID  string `json:"sender_id,omitempty"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

type Config struct {
	Source source.Config
	// Path is the JSONL spool file. It may not exist yet; polls succeed
	// with no output until it appears.
	Path string
	// FromStart reads the whole existing file on the first poll instead of
	// starting at the current end.
	FromStart bool
}

// Source tails a JSONL spool file.
type Source struct {
	source.Base

	path      string
	fromStart bool

	// offset is only touched from Poll, which the monitor serializes.
	offset int64
	primed bool
}

func New(cfg Config) *Source {
	if cfg.Source.Platform == "" {
		cfg.Source.Platform = message.PlatformWeChatWin
	}
	return &Source{
		Base:      source.NewBase(cfg.Source),
		path:      cfg.Path,
		fromStart: cfg.FromStart,
	}
}

func (s *Source) Poll(ctx context.Context) ([]message.Message, error) {
	msgs, err := s.poll(ctx)
	s.MarkPoll(len(msgs), err)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Source) poll(ctx context.Context) ([]message.Message, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Spool not created yet; not an error.
			return nil, nil
		}
		return nil, fmt.Errorf("open spool: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat spool: %w", err)
	}

	if !s.primed {
		s.primed = true
		if !s.fromStart {
			s.offset = fi.Size()
			return nil, nil
		}
	}
	if fi.Size() < s.offset {
		// Rotated or truncated underneath us.
		s.offset = 0
	}
	if fi.Size() == s.offset {
		return nil, nil
	}

	if _, err := f.Seek(s.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek spool: %w", err)
	}

	var out []message.Message
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	consumed := s.offset
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := sc.Bytes()
		consumed += int64(len(raw)) + 1
		if len(raw) == 0 {
			continue
		}
		if msg, ok := s.parse(raw); ok {
			out = append(out, msg)
		}
	}
	if err := sc.Err(); err != nil {
		if !errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("read spool: %w", err)
		}
		// An oversized line starts at consumed. Jump past it so one corrupt
		// write cannot wedge the tail; lines behind it wait for the next poll.
		skipped, serr := skipPastLine(f, consumed)
		if serr != nil {
			return nil, fmt.Errorf("skip oversized line: %w", serr)
		}
		consumed = skipped
	}
	s.offset = consumed
	return out, nil
}

// skipPastLine returns the offset just after the next newline at or beyond
// start. A line still missing its terminator is skipped to end of file; the
// trailing remainder then fails JSON parsing and is dropped like any other
// malformed line.
func skipPastLine(f *os.File, start int64) (int64, error) {
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	off := start
	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
			return off + int64(i) + 1, nil
		}
		off += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return off, nil
			}
			return 0, err
		}
	}
}

// parse turns one spool line into a message. Malformed lines are dropped
// rather than failing the poll; one bad write should not stall the tail.
func (s *Source) parse(raw []byte) (message.Message, bool) {
	var l line
	if err := json.Unmarshal(raw, &l); err != nil || l.Content == "" {
		return message.Message{}, false
	}

	ts := time.Now()
	if l.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, l.Timestamp); err == nil {
			ts = parsed
		}
	}

	id := l.MsgID
	if id == "" {
		id = message.GenerateID(s.Platform(), l.Channel, l.Content, ts)
	}

	return message.Message{
		ID:         id,
		Platform:   s.Platform(),
		Channel:    l.Channel,
		Sender:     l.Sender,
		SenderID:   l.SenderID,
		Content:    l.Content,
		Timestamp:  ts,
		SourceName: s.Name(),
	}, true
}
