// Package message defines the normalized message model shared by all sources.
//
// Every producer (screen/OCR bridge, webhook-delivered platform events, ...)
// converts its raw payloads into Message before the monitor sees them.
package message

import (
	"fmt"
	"hash/fnv"
	"time"
)

// Platform tags for known upstreams. Sources may use free-form values;
// these constants only cover the built-in ones.
const (
	PlatformWeChatWin  = "wechat_win"
	PlatformWeChatKF   = "wechat_kf"
	PlatformWeChatWork = "wechat_work"
	PlatformDingTalk   = "dingtalk"
	PlatformFeishu     = "feishu"
	PlatformSlack      = "slack"
	PlatformCustom     = "custom"
)

// Message is the normalized unit flowing through dedup -> keyword match -> storage.
//
// ID is source-scoped: two sources may legitimately produce the same ID.
// MatchedKeywords is filled downstream by the keyword matcher; everything else
// is set by the producing source and treated as immutable after that.
type Message struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	Channel   string    `json:"channel"`
	Sender    string    `json:"sender,omitempty"`
	SenderID  string    `json:"sender_id,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	SourceName      string   `json:"source_name,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

// GenerateID builds a deterministic identity for messages whose upstream has
// no native ID (e.g. OCR-extracted text). Minute-resolution timestamp plus a
// content hash keeps identical text within the same minute deduplicated while
// letting genuine repeats on later polls through eventually.
func GenerateID(platform, channel, content string, ts time.Time) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(content))
	return fmt.Sprintf("%s_%s_%s_%x", platform, channel, ts.Format("200601021504"), h.Sum64())
}

// Status is the per-source health record owned by the monitor.
// It is updated after every poll attempt and read by status consumers.
type Status struct {
	Name         string    `json:"name"`
	Platform     string    `json:"platform"`
	Available    bool      `json:"available"`
	LastPollTime time.Time `json:"last_poll_time,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
	MessageCount uint64    `json:"message_count"`
	ErrorCount   uint64    `json:"error_count"`
}
