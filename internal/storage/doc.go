package storage

// Package storage is the durable sink for matched/observed messages.
//
// The monitor treats it as opaque: per-message insert failures are logged by
// the caller and never abort a batch. It also holds the monitor liveness row
// (heartbeat + state) and the authoritative keyword list, which overrides the
// config file list when non-empty.
