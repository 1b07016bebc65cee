// Package telegram posts to a Telegram chat or channel through a bot.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"sanctionsbot/internal/publisher"
	logx "sanctionsbot/pkg/logx"
)

const (
	DefaultMaxLen = 4096
	platform      = "telegram"
)

type Config struct {
	Token    string
	ChatID   int64
	ThreadID int // forum topic (0 if none)
	MaxLen   int // default 4096
	Thread   bool

	// AlertChatID receives SendAlert messages; 0 means ChatID.
	AlertChatID int64

	// APIURL overrides the Bot API base URL (tests, local bot API servers).
	APIURL  string
	Timeout time.Duration
}

// Client publishes diff chunks and doubles as the log alert sender.
type Client struct {
	cfg Config
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.MaxLen <= 0 || cfg.MaxLen > DefaultMaxLen {
		cfg.MaxLen = DefaultMaxLen
	}
	if cfg.AlertChatID == 0 {
		cfg.AlertChatID = cfg.ChatID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	// Offline skips the getMe round-trip; this client only sends.
	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: cfg.Timeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, bot: b, log: log.With(logx.String("comp", "publisher.telegram"))}, nil
}

func (c *Client) Name() string { return platform }
func (c *Client) MaxLen() int  { return c.cfg.MaxLen }

func (c *Client) Publish(ctx context.Context, chunks []string) error {
	chat := &tele.Chat{ID: c.cfg.ChatID}
	var prev *tele.Message
	for i, text := range chunks {
		if err := ctx.Err(); err != nil {
			return &publisher.PublishError{Platform: platform, Index: i, Message: err.Error(), Err: err}
		}
		opt := &tele.SendOptions{
			ThreadID:              c.cfg.ThreadID,
			DisableWebPagePreview: true,
		}
		if c.cfg.Thread && prev != nil {
			opt.ReplyTo = prev
		}
		msg, err := c.bot.Send(chat, text, opt)
		if err != nil {
			return publishError(i, err)
		}
		c.log.Debug("message posted", logx.Int("message_id", msg.ID), logx.Int("index", i))
		prev = msg
	}
	return nil
}

// SendAlert implements logx.AlertSender.
func (c *Client) SendAlert(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.cfg.AlertChatID == 0 {
		return errors.New("telegram alert chat is not configured")
	}
	if n := []rune(text); len(n) > c.cfg.MaxLen {
		text = string(n[:c.cfg.MaxLen])
	}
	_, err := c.bot.Send(&tele.Chat{ID: c.cfg.AlertChatID}, text, &tele.SendOptions{
		ThreadID:              c.cfg.ThreadID,
		DisableWebPagePreview: true,
		DisableNotification:   true,
	})
	return err
}

func publishError(index int, err error) *publisher.PublishError {
	pe := &publisher.PublishError{Platform: platform, Index: index, Message: err.Error(), Err: err}
	var te *tele.Error
	if errors.As(err, &te) {
		pe.Status = te.Code
		pe.Message = te.Description
	}
	return pe
}
