package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ConsoleChannel prints alerts as a bordered block on a writer, one alert at
// a time. Meant for interactive runs and as the always-works fallback.
type ConsoleChannel struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *ConsoleChannel {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleChannel{w: w}
}

func (c *ConsoleChannel) Name() string { return "console" }

func (c *ConsoleChannel) Send(_ context.Context, msg Message) error {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 48) + "\n")
	b.WriteString(msg.Title + "\n")
	if msg.Keyword != "" {
		fmt.Fprintf(&b, "keyword: %s\n", msg.Keyword)
	}
	if msg.Source != "" {
		fmt.Fprintf(&b, "source:  %s\n", msg.Source)
	}
	fmt.Fprintf(&b, "time:    %s\n", msg.Timestamp.Format("2006-01-02 15:04:05"))
	b.WriteString(msg.Body + "\n")
	b.WriteString(strings.Repeat("=", 48) + "\n")

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, b.String())
	return err
}
