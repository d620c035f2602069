package notify

import "time"

// Message is one alert to deliver. Keyword and Source drive routing and the
// cooldown ledger; everything else is presentation.
type Message struct {
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Keyword   string            `json:"keyword,omitempty"`
	Source    string            `json:"source,omitempty"`
	Priority  int               `json:"priority,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Rule routes alerts whose matched keyword contains one of the rule's
// keywords to a fixed set of channels.
type Rule struct {
	Name     string
	Keywords []string
	Channels []string
	Priority int
	Cooldown time.Duration
	Enabled  bool
}

// Config controls the engine. Zero values get sensible defaults in New.
type Config struct {
	Enabled bool

	// DefaultChannels receive alerts no rule claimed. Sends on this path
	// skip the cooldown ledger so unrouted alerts are never silently lost.
	DefaultChannels []string

	Workers     int
	QueueSize   int
	RatePerSec  int
	SendTimeout time.Duration

	Rules []Rule
}

// ChannelStat is a delivery counter snapshot for one channel.
type ChannelStat struct {
	Name      string    `json:"name"`
	Sent      uint64    `json:"sent"`
	Failed    uint64    `json:"failed"`
	LastError string    `json:"last_error,omitempty"`
	LastSent  time.Time `json:"last_sent,omitzero"`
}

// Event is emitted on the bus for engine lifecycle moments.
// Keep it small; subscribers may serialize it.
type Event struct {
	Channel string    `json:"channel,omitempty"`
	Keyword string    `json:"keyword,omitempty"`
	Source  string    `json:"source,omitempty"`
	Rule    string    `json:"rule,omitempty"`
	At      time.Time `json:"at"`
	Error   string    `json:"error,omitempty"`
}
