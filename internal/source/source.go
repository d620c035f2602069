// Package source defines the contract every message producer implements and
// the shared status bookkeeping all producers use.
//
// The monitor never looks at how a source obtains text. It only requires that
// Poll returns messages new since the previous call (repeat content across
// polls is tolerated downstream by the dedup cache).
package source

import (
	"context"
	"sync"
	"time"

	"chatwatch/internal/message"
)

const (
	// failureThreshold is how many consecutive failed polls a source gets
	// before it reports unavailable.
	failureThreshold = 3
	// unavailableWindow is how long a persistently failing source stays
	// unavailable before it is retried. A successful poll clears it.
	unavailableWindow = 5 * time.Minute
)

// Source is a polled producer of normalized messages.
type Source interface {
	Name() string
	Platform() string
	PollInterval() time.Duration

	// Poll returns messages observed since the previous call.
	// An error marks the whole attempt failed; partial results are discarded.
	Poll(ctx context.Context) ([]message.Message, error)

	// Available reports whether a poll is worth attempting right now.
	Available() bool

	Status() message.Status
}

// Config is the static part every source shares.
type Config struct {
	Name         string
	Platform     string
	Enabled      bool
	PollInterval time.Duration
}

// Base carries the common status bookkeeping. Embed it and call MarkPoll
// after every poll attempt.
type Base struct {
	cfg Config

	mu           sync.Mutex
	lastPollTime time.Time
	lastError    string
	messageCount uint64
	errorCount   uint64
	consecErrors int
}

func NewBase(cfg Config) Base {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Platform == "" {
		cfg.Platform = message.PlatformCustom
	}
	return Base{cfg: cfg}
}

func (b *Base) Name() string                { return b.cfg.Name }
func (b *Base) Platform() string            { return b.cfg.Platform }
func (b *Base) PollInterval() time.Duration { return b.cfg.PollInterval }
func (b *Base) Enabled() bool               { return b.cfg.Enabled }

// MarkPoll records the outcome of a poll attempt.
func (b *Base) MarkPoll(produced int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastPollTime = time.Now()
	if err != nil {
		b.errorCount++
		b.consecErrors++
		b.lastError = err.Error()
		return
	}
	b.lastError = ""
	b.consecErrors = 0
	b.messageCount += uint64(produced)
}

// Available implements the default heuristic: disabled sources are never
// available; a source is attempted on its fixed cadence through transient
// failures, but after failureThreshold consecutive failures it reports
// unavailable until the window passes or a poll succeeds.
func (b *Base) Available() bool {
	if !b.cfg.Enabled {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consecErrors >= failureThreshold &&
		time.Since(b.lastPollTime) < unavailableWindow {
		return false
	}
	return true
}

func (b *Base) Status() message.Status {
	avail := b.Available()
	b.mu.Lock()
	defer b.mu.Unlock()
	return message.Status{
		Name:         b.cfg.Name,
		Platform:     b.cfg.Platform,
		Available:    avail,
		LastPollTime: b.lastPollTime,
		LastError:    b.lastError,
		MessageCount: b.messageCount,
		ErrorCount:   b.errorCount,
	}
}
