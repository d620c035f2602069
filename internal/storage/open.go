package storage

import (
	"context"
	"errors"
	"strings"

	"chatwatch/pkg/logx"
)

// Store is the minimal persistence API used by the monitor.
type Store interface {
	InsertMessage(ctx context.Context, rec MessageRecord) (int64, error)
	Heartbeat(ctx context.Context) error
	UpdateStatus(ctx context.Context, state string, pid int) error
	EnabledKeywords(ctx context.Context) ([]string, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
