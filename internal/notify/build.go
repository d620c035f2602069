package notify

import (
	"fmt"
	"os"

	"chatwatch/internal/config"
)

// FromConfig translates the file configuration into an engine config plus the
// concrete channel set. Durations were validated at load time; errors here
// mean the config was committed without validation.
func FromConfig(nc config.NotifyConfig) (Config, []Channel, error) {
	cfg := Config{
		Enabled:         nc.Enabled,
		DefaultChannels: nc.DefaultChannels,
		Workers:         nc.Workers,
		QueueSize:       nc.QueueSize,
		RatePerSec:      nc.RatePerSec,
	}

	var err error
	cfg.SendTimeout, err = config.ParseDurationOrDefault("notify.send_timeout", nc.SendTimeout, defaultSendTimeout)
	if err != nil {
		return Config{}, nil, err
	}

	for i, rc := range nc.Rules {
		cd, err := config.ParseDurationOrDefault(fmt.Sprintf("notify.rules[%d].cooldown", i), rc.Cooldown, 0)
		if err != nil {
			return Config{}, nil, err
		}
		enabled := rc.Enabled == nil || *rc.Enabled
		cfg.Rules = append(cfg.Rules, Rule{
			Name:     rc.Name,
			Keywords: rc.Keywords,
			Channels: rc.Channels,
			Priority: rc.Priority,
			Cooldown: cd,
			Enabled:  enabled,
		})
	}

	var channels []Channel
	cc := nc.Channels
	if cc.Console != nil && cc.Console.Enabled {
		channels = append(channels, NewConsole(os.Stdout))
	}
	if cc.File != nil && cc.File.Enabled {
		channels = append(channels, NewFile(cc.File.Path))
	}
	for _, wc := range cc.Webhook {
		if wc.Enabled {
			channels = append(channels, NewWebhook(wc.Name, wc.URL, wc.Secret))
		}
	}
	if cc.Telegram != nil && cc.Telegram.Enabled {
		channels = append(channels, NewTelegram(cc.Telegram.Token, cc.Telegram.ChatID))
	}
	if cc.Email != nil && cc.Email.Enabled {
		channels = append(channels, NewEmail(cc.Email.SMTPHost, cc.Email.SMTPPort, cc.Email.Username, cc.Email.Password, cc.Email.To))
	}
	if cc.Desktop != nil && cc.Desktop.Enabled {
		channels = append(channels, NewDesktop())
	}

	return cfg, channels, nil
}
