package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailChannel delivers alerts over SMTP with plain auth.
type EmailChannel struct {
	host     string
	port     int
	username string
	password string
	to       []string

	// send is swappable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(host string, port int, username, password string, to []string) *EmailChannel {
	if port <= 0 {
		port = 587
	}
	return &EmailChannel{
		host:     host,
		port:     port,
		username: username,
		password: password,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, msg Message) error {
	if c.host == "" || len(c.to) == 0 {
		return errors.New("email channel not configured")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.username)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(c.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Title)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	if msg.Keyword != "" {
		fmt.Fprintf(&b, "\r\n\r\nkeyword: %s", msg.Keyword)
	}
	if msg.Source != "" {
		fmt.Fprintf(&b, "\r\nsource: %s", msg.Source)
	}

	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	var auth smtp.Auth
	if c.username != "" {
		auth = smtp.PlainAuth("", c.username, c.password, c.host)
	}

	// smtp.SendMail has no context hook; race it against the deadline.
	done := make(chan error, 1)
	go func() {
		done <- c.send(addr, auth, c.username, c.to, []byte(b.String()))
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
