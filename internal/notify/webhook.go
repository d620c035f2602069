package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// WebhookChannel posts alerts to a chat-bot incoming webhook (DingTalk/WeCom
// style). When a secret is set, each request carries the signed millisecond
// timestamp those bots verify.
type WebhookChannel struct {
	name   string
	url    string
	secret string
	client *http.Client

	// now is swappable in tests to pin the signature.
	now func() time.Time
}

func NewWebhook(name, rawURL, secret string) *WebhookChannel {
	if name == "" {
		name = "webhook"
	}
	return &WebhookChannel{
		name:   name,
		url:    rawURL,
		secret: secret,
		client: &http.Client{Timeout: 15 * time.Second},
		now:    time.Now,
	}
}

func (c *WebhookChannel) Name() string { return c.name }

func (c *WebhookChannel) Send(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"msgtype": "text",
		"text": map[string]string{
			"content": msg.Title + "\n" + msg.Body,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	target := c.url
	if c.secret != "" {
		ts := c.now().UnixMilli()
		signed, err := c.signedURL(ts)
		if err != nil {
			return err
		}
		target = signed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: unexpected status %d", c.name, resp.StatusCode)
	}
	return nil
}

// signedURL appends timestamp and sign query parameters. The signature is
// base64(HMAC-SHA256("<ts>\n<secret>", secret)).
func (c *WebhookChannel) signedURL(ts int64) (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("parse webhook url: %w", err)
	}
	mac := hmac.New(sha256.New, []byte(c.secret))
	fmt.Fprintf(mac, "%d\n%s", ts, c.secret)
	sign := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	q := u.Query()
	q.Set("timestamp", strconv.FormatInt(ts, 10))
	q.Set("sign", sign)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
