// Package twitter posts to the X API v2 with OAuth 1.0a user-context auth.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"sanctionsbot/internal/publisher"
	logx "sanctionsbot/pkg/logx"
)

const (
	DefaultEndpoint = "https://api.twitter.com/2/tweets"
	DefaultMaxLen   = 280
	platform        = "twitter"
)

type Config struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string

	Endpoint string        // default DefaultEndpoint
	MaxLen   int           // default 280
	Thread   bool          // reply each chunk to the previous one
	Timeout  time.Duration // default 15s
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ConsumerKey) == "" || strings.TrimSpace(cfg.ConsumerSecret) == "" ||
		strings.TrimSpace(cfg.AccessToken) == "" || strings.TrimSpace(cfg.AccessTokenSecret) == "" {
		return nil, errors.New("twitter credentials are incomplete")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = DefaultMaxLen
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	hc := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret).
		Client(oauth1.NoContext, oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret))
	hc.Timeout = cfg.Timeout

	return &Client{cfg: cfg, http: hc, log: log.With(logx.String("comp", "publisher.twitter"))}, nil
}

func (c *Client) Name() string { return platform }
func (c *Client) MaxLen() int  { return c.cfg.MaxLen }

func (c *Client) Publish(ctx context.Context, chunks []string) error {
	var prev string
	for i, text := range chunks {
		replyTo := ""
		if c.cfg.Thread {
			replyTo = prev
		}
		id, err := c.post(ctx, text, replyTo)
		if err != nil {
			var pe *publisher.PublishError
			if errors.As(err, &pe) {
				pe.Index = i
				return pe
			}
			return &publisher.PublishError{Platform: platform, Index: i, Message: err.Error(), Err: err}
		}
		if id == "" && c.cfg.Thread && i < len(chunks)-1 {
			// the rest of the thread would be posted detached
			return &publisher.PublishError{Platform: platform, Status: http.StatusCreated, Index: i, Message: "response carried no tweet id"}
		}
		c.log.Debug("tweet posted", logx.String("id", id), logx.Int("index", i), logx.String("reply_to", replyTo))
		prev = id
	}
	return nil
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Reply *tweetReply `json:"reply,omitempty"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// apiError covers both the v2 problem format and the legacy errors array.
type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (e apiError) message() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Title != "":
		return e.Title
	case len(e.Errors) > 0:
		return e.Errors[0].Message
	}
	return ""
}

func (c *Client) post(ctx context.Context, text, replyTo string) (string, error) {
	body := tweetRequest{Text: text}
	if replyTo != "" {
		body.Reply = &tweetReply{InReplyToTweetID: replyTo}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusCreated {
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		msg := ae.message()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &publisher.PublishError{Platform: platform, Status: resp.StatusCode, Message: msg}
	}

	var tr tweetResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return tr.Data.ID, nil
}
