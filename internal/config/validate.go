package config

import (
	"fmt"
	"strings"
)

// Validate checks cross-field consistency: duration strings parse, sources are
// named, and notification rules only reference configured channels.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	durations := []struct{ path, raw string }{
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
		{"monitor.tick", cfg.Monitor.Tick},
		{"monitor.heartbeat", cfg.Monitor.Heartbeat},
		{"monitor.keyword_refresh", cfg.Monitor.KeywordRefresh},
		{"notify.send_timeout", cfg.Notify.SendTimeout},
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}

	seen := map[string]bool{}
	for i, s := range cfg.Sources.Webhook {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("sources.webhook[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("sources.webhook[%d]: duplicate source name %q", i, s.Name)
		}
		seen[s.Name] = true
		if _, err := ParseDurationField(fmt.Sprintf("sources.webhook[%d].poll_interval", i), s.PollInterval); err != nil {
			return err
		}
	}
	for i, s := range cfg.Sources.Tail {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("sources.tail[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("sources.tail[%d]: duplicate source name %q", i, s.Name)
		}
		seen[s.Name] = true
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("sources.tail[%d]: path is required", i)
		}
		if _, err := ParseDurationField(fmt.Sprintf("sources.tail[%d].poll_interval", i), s.PollInterval); err != nil {
			return err
		}
	}

	known := knownChannelNames(cfg.Notify.Channels)
	for i, r := range cfg.Notify.Rules {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("notify.rules[%d]: name is required", i)
		}
		if _, err := ParseDurationField(fmt.Sprintf("notify.rules[%d].cooldown", i), r.Cooldown); err != nil {
			return err
		}
		for _, ch := range r.Channels {
			if !known[ch] {
				return fmt.Errorf("notify.rules[%d] (%s): unknown channel %q", i, r.Name, ch)
			}
		}
	}
	for _, ch := range cfg.Notify.DefaultChannels {
		if !known[ch] {
			return fmt.Errorf("notify.default_channels: unknown channel %q", ch)
		}
	}
	return nil
}

func knownChannelNames(c ChannelsConfig) map[string]bool {
	out := map[string]bool{}
	if c.Console != nil {
		out["console"] = true
	}
	if c.File != nil {
		out["file"] = true
	}
	if c.Telegram != nil {
		out["telegram"] = true
	}
	if c.Email != nil {
		out["email"] = true
	}
	if c.Desktop != nil {
		out["desktop"] = true
	}
	for _, w := range c.Webhook {
		if strings.TrimSpace(w.Name) != "" {
			out[w.Name] = true
		}
	}
	return out
}
