package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cadence fields (monitor.tick, source poll_interval, rule cooldown,
// notify.send_timeout) are strings in the file so operators can write
// "100ms" or "5m". A bare number is read as whole seconds, which is how the
// capture-side tools wrote cooldowns before units were supported.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		n, nerr := strconv.Atoi(s)
		if nerr != nil {
			return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
		}
		d = time.Duration(n) * time.Second
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault substitutes def when the field is empty or zero, so
// callers can keep their builtin cadence without special-casing blanks.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
