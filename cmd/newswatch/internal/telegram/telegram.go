// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telegram implements the Telegram Bot API surface used by
// newswatch: sending HTML messages to a single chat and long-polling for
// chat commands.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.astrophena.name/newswatch/internal/logger"
	"go.astrophena.name/newswatch/internal/request"
)

const (
	tgAPI = "https://api.telegram.org"

	// maxMessageLen is the chunking threshold, slightly below Telegram's
	// 4096-character limit to leave room for closing tags.
	maxMessageLen = 3800

	// sendRetryLimit bounds how many times a rate-limited send is retried.
	sendRetryLimit = 5

	// sendPause is the delay between consecutive chunks of a split message,
	// keeping well under Telegram's per-chat rate limit.
	sendPause = time.Second

	// longPollTimeout is the getUpdates long-poll duration in seconds.
	longPollTimeout = 30
)

// Client is a Telegram Bot API client bound to a single bot token and chat.
type Client struct {
	Token  string
	ChatID string

	// HTTPClient is an optional custom HTTP client object to use for requests.
	// If not provided, request.DefaultClient will be used.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs the token from
	// error messages.
	Scrubber *strings.Replacer

	// sleep is used in tests to skip retry delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// Update is a single entry returned by getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an incoming chat message.
type Message struct {
	Text string `json:"text"`
	Chat Chat   `json:"chat"`
}

// Chat identifies the chat a message came from.
type Chat struct {
	ID int64 `json:"id"`
}

func (c *Client) method(name string) string {
	return tgAPI + "/bot" + c.Token + "/" + name
}

// Send delivers text to the bot's chat as HTML. Messages longer than the
// Telegram limit are split on line boundaries and delivered as a sequence of
// messages. Rate limiting (HTTP 429) is honored by waiting out the
// retry_after duration the API returns.
func (c *Client) Send(ctx context.Context, text string) error {
	for i, chunk := range splitMessage(text) {
		if i > 0 {
			if err := c.doSleep(ctx, sendPause); err != nil {
				return err
			}
		}
		if err := c.sendChunk(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) sendChunk(ctx context.Context, text string) error {
	for try := 0; try < sendRetryLimit; try++ {
		_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
			Method: http.MethodPost,
			URL:    c.method("sendMessage"),
			Body: map[string]any{
				"chat_id":    c.ChatID,
				"text":       text,
				"parse_mode": "HTML",
				"link_preview_options": map[string]bool{
					"is_disabled": true,
				},
			},
			HTTPClient: c.HTTPClient,
			Scrubber:   c.Scrubber,
		})
		if err == nil {
			return nil
		}
		retryAfter, ok := rateLimited(err)
		if !ok {
			return err
		}
		logger.Get(ctx).Info("rate limited by Telegram", "retry_after", retryAfter)
		if err := c.doSleep(ctx, retryAfter); err != nil {
			return err
		}
	}
	return fmt.Errorf("telegram: send retry limit (%d) exceeded", sendRetryLimit)
}

// rateLimited reports whether err is a Telegram 429 response, returning the
// wait duration the API asked for.
func rateLimited(err error) (time.Duration, bool) {
	var se *request.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}
	var body struct {
		Parameters struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	// Body parse failures fall back to a short fixed delay.
	if jerr := json.Unmarshal(se.Body, &body); jerr != nil || body.Parameters.RetryAfter <= 0 {
		return 3 * time.Second, true
	}
	return time.Duration(body.Parameters.RetryAfter) * time.Second, true
}

func (c *Client) doSleep(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// GetUpdates long-polls for updates with IDs at or above offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	type response struct {
		OK     bool     `json:"ok"`
		Result []Update `json:"result"`
	}
	resp, err := request.Make[response](ctx, request.Params{
		Method: http.MethodPost,
		URL:    c.method("getUpdates"),
		Body: map[string]any{
			"offset":          offset,
			"timeout":         longPollTimeout,
			"allowed_updates": []string{"message"},
		},
		HTTPClient: c.longPollClient(),
		Scrubber:   c.Scrubber,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, errors.New("telegram: getUpdates returned ok=false")
	}
	return resp.Result, nil
}

// longPollClient returns an HTTP client whose timeout accommodates the
// long-poll duration.
func (c *Client) longPollClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: (longPollTimeout + 5) * time.Second}
}

// splitMessage splits text into chunks not exceeding maxMessageLen, breaking
// on line boundaries. A single line longer than the limit is split mid-line.
func splitMessage(text string) []string {
	if len(text) <= maxMessageLen {
		return []string{text}
	}
	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
		}
	}
	for line := range strings.Lines(text) {
		for len(line) > maxMessageLen {
			flush()
			// Back off to a rune boundary so multi-byte characters survive
			// the mid-line cut.
			cut := maxMessageLen
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxMessageLen
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > maxMessageLen {
			flush()
		}
		cur.WriteString(line)
	}
	flush()
	return chunks
}
