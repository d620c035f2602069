package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
  console: true
storage:
  driver: sqlite
  path: ./test.db
keywords:
  list: ["退款", "投诉"]
  mode: contains
monitor:
  tick: 100ms
  heartbeat: 30s
sources:
  tail:
    - name: ocr-bridge
      platform: wechat_win
      poll_interval: 5s
      path: ./drop.jsonl
notify:
  enabled: true
  default_channels: [console]
  channels:
    console:
      enabled: true
`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging.level: %q", cfg.Logging.Level)
	}
	if len(cfg.Keywords.List) != 2 || cfg.Keywords.List[0] != "退款" {
		t.Fatalf("unexpected keywords: %v", cfg.Keywords.List)
	}
	if len(cfg.Sources.Tail) != 1 || cfg.Sources.Tail[0].Name != "ocr-bridge" {
		t.Fatalf("unexpected tail sources: %+v", cfg.Sources.Tail)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  console: true
storag:
  driver: sqlite
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatalf("expected error for unknown top-level key")
	}
}

func TestValidateRejectsUnknownRuleChannel(t *testing.T) {
	cfg := &Config{
		Notify: NotifyConfig{
			Rules: []RuleConfig{
				{Name: "refunds", Keywords: []string{"退款"}, Channels: []string{"pager"}},
			},
			Channels: ChannelsConfig{Console: &ConsoleChannelConfig{Enabled: true}},
		},
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected unknown channel to be rejected")
	}
}

func TestValidateRejectsBadDuration(t *testing.T) {
	cfg := &Config{Monitor: MonitorConfig{Tick: "fast"}}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected invalid duration to be rejected")
	}
}

func TestValidateRejectsDuplicateSourceNames(t *testing.T) {
	cfg := &Config{
		Sources: SourcesConfig{
			Webhook: []WebhookSourceConfig{{Name: "kf"}},
			Tail:    []TailSourceConfig{{Name: "kf", Path: "./x.jsonl"}},
		},
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected duplicate source name to be rejected")
	}
}

func TestLoadJSONByExtension(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "logging": {"level": "info"},
  "keywords": {"list": ["退款"], "mode": "exact"}
}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Keywords.Mode != "exact" {
		t.Fatalf("unexpected keywords.mode: %q", cfg.Keywords.Mode)
	}
}

func TestParseDurationBareSeconds(t *testing.T) {
	if d, err := ParseDurationField("notify.rules[0].cooldown", "300"); err != nil || d != 300*time.Second {
		t.Fatalf("bare number should be seconds, got %v %v", d, err)
	}
	if _, err := ParseDurationField("x", "-5"); err == nil {
		t.Fatalf("negative bare number should error")
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	if d, err := ParseDurationOrDefault("x", "", 7*time.Second); err != nil || d != 7*time.Second {
		t.Fatalf("empty should default, got %v %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "250ms", time.Second); err != nil || d != 250*time.Millisecond {
		t.Fatalf("explicit value should win, got %v %v", d, err)
	}
	if _, err := ParseDurationOrDefault("x", "-1s", time.Second); err == nil {
		t.Fatalf("negative duration should error")
	}
}
