package notify

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
)

// DesktopChannel raises a native desktop toast. Only useful when the monitor
// runs on a workstation; on headless hosts it fails per send and the engine
// records that like any other channel error.
type DesktopChannel struct {
	// notify is swappable in tests. The icon argument matches beeep's: a
	// file path, raw image bytes, or nil for no icon.
	notify func(title, body string, icon any) error
}

func NewDesktop() *DesktopChannel {
	return &DesktopChannel{notify: beeep.Notify}
}

func (c *DesktopChannel) Name() string { return "desktop" }

func (c *DesktopChannel) Send(_ context.Context, msg Message) error {
	if err := c.notify(msg.Title, msg.Body, nil); err != nil {
		return fmt.Errorf("desktop toast: %w", err)
	}
	return nil
}
