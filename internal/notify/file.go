package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileChannel appends alerts as JSON lines. The file is opened per send so
// external rotation never strands a handle.
type FileChannel struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *FileChannel {
	if path == "" {
		path = "alerts.jsonl"
	}
	return &FileChannel{path: path}
}

func (c *FileChannel) Name() string { return "file" }

func (c *FileChannel) Send(_ context.Context, msg Message) error {
	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create alert dir: %w", err)
		}
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open alert file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write alert: %w", err)
	}
	return nil
}
