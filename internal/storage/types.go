package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// MessageRecord is the persisted form of an observed message.
// Keep it compact and schema-stable.
type MessageRecord struct {
	ID             int64
	MessageID      string
	SourceName     string
	Platform       string
	Channel        string
	Sender         string
	Content        string
	MatchedKeyword string
	CreatedAt      time.Time
}
