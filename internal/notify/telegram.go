package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// TelegramChannel sends alerts to one chat through the Bot API.
//
// The bot handle is created lazily on the first send so that a misconfigured
// token degrades to per-send errors instead of failing startup, matching how
// every other channel behaves.
type TelegramChannel struct {
	token  string
	chatID int64

	mu  sync.Mutex
	bot *tele.Bot

	// newBot is swappable in tests.
	newBot func(token string) (*tele.Bot, error)
}

func NewTelegram(token string, chatID int64) *TelegramChannel {
	return &TelegramChannel{
		token:  token,
		chatID: chatID,
		newBot: func(token string) (*tele.Bot, error) {
			return tele.NewBot(tele.Settings{Token: token})
		},
	}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Send(ctx context.Context, msg Message) error {
	if c.token == "" || c.chatID == 0 {
		return errors.New("telegram channel not configured")
	}
	bot, err := c.ensureBot()
	if err != nil {
		return fmt.Errorf("telegram connect: %w", err)
	}

	text := msg.Title + "\n" + msg.Body
	if msg.Keyword != "" {
		text = fmt.Sprintf("%s\nkeyword: %s", text, msg.Keyword)
	}

	// telebot sends have no context hook; run in a goroutine and race the
	// deadline so a stuck send cannot pin an engine worker.
	done := make(chan error, 1)
	go func() {
		_, err := bot.Send(&tele.Chat{ID: c.chatID}, text)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *TelegramChannel) ensureBot() (*tele.Bot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bot != nil {
		return c.bot, nil
	}
	bot, err := c.newBot(c.token)
	if err != nil {
		return nil, err
	}
	c.bot = bot
	return bot, nil
}
