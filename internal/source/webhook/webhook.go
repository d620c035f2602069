// Package webhook implements a push-delivered message source.
//
// Platform callbacks (WeChat customer-service events and similar) are POSTed
// to the web server, verified, and buffered in a bounded queue owned by this
// source instance. Poll drains the queue. There is no process-wide registry;
// a payload only ever lands in the source it was addressed to.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatwatch/internal/message"
	"chatwatch/internal/source"
)

var (
	ErrQueueFull  = errors.New("webhook queue full")
	ErrBadToken   = errors.New("webhook token mismatch")
	ErrBadPayload = errors.New("webhook payload invalid")
)

const defaultQueueSize = 256

// Payload is the wire shape accepted from platform callbacks.
// Timestamp is RFC 3339; when absent, receive time is used.
type Payload struct {
	MsgID     string `json:"msg_id,omitempty"`
	Channel   string `json:"channel"`
	Sender    string `json:"sender,omitempty"`
	SenderID  string `json:"sender_id,omitempty"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

type Config struct {
	Source source.Config
	// Token authenticates callers; empty disables the check.
	Token     string
	QueueSize int
}

// Source buffers webhook payloads until the next poll.
type Source struct {
	source.Base

	token string
	queue chan message.Message
}

func New(cfg Config) *Source {
	qs := cfg.QueueSize
	if qs <= 0 {
		qs = defaultQueueSize
	}
	if cfg.Source.Platform == "" {
		cfg.Source.Platform = message.PlatformWeChatKF
	}
	return &Source{
		Base:  source.NewBase(cfg.Source),
		token: cfg.Token,
		queue: make(chan message.Message, qs),
	}
}

// VerifyToken checks a caller-supplied token (or its hex HMAC-SHA256 over the
// request body) against the configured token. Comparison is constant-time.
func (s *Source) VerifyToken(token string, body []byte) error {
	if s.token == "" {
		return nil
	}
	if hmac.Equal([]byte(token), []byte(s.token)) {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(s.token))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	if hmac.Equal([]byte(token), []byte(want)) {
		return nil
	}
	return ErrBadToken
}

// Enqueue parses a raw payload and buffers the resulting message.
// A full queue drops the payload and reports ErrQueueFull; the caller decides
// whether to surface that to the sender.
func (s *Source) Enqueue(raw []byte) error {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if p.Content == "" {
		return fmt.Errorf("%w: content is required", ErrBadPayload)
	}

	ts := time.Now()
	if p.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
			ts = parsed
		}
	}

	id := p.MsgID
	if id == "" {
		// No native ID from the platform; a random one is fine because the
		// platform's own retries reuse MsgID, and without MsgID there is no
		// retry semantics to preserve.
		id = uuid.NewString()
	}

	msg := message.Message{
		ID:         id,
		Platform:   s.Platform(),
		Channel:    p.Channel,
		Sender:     p.Sender,
		SenderID:   p.SenderID,
		Content:    p.Content,
		Timestamp:  ts,
		SourceName: s.Name(),
	}

	select {
	case s.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Poll drains whatever the queue holds right now.
func (s *Source) Poll(ctx context.Context) ([]message.Message, error) {
	var out []message.Message
	for {
		select {
		case <-ctx.Done():
			s.MarkPoll(len(out), ctx.Err())
			return nil, ctx.Err()
		case msg := <-s.queue:
			out = append(out, msg)
		default:
			s.MarkPoll(len(out), nil)
			return out, nil
		}
	}
}
