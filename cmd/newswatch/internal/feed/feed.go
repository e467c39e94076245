// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package feed fetches news items from Google News RSS.
package feed

import (
	"context"
	"fmt"
	"html"
	"net/http"
	urlpkg "net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/newswatch/internal/request"
	"go.astrophena.name/newswatch/internal/version"

	"github.com/mmcdole/gofeed"
)

const searchURL = "https://news.google.com/rss/search"

// summaryLimit bounds item summaries, in runes.
const summaryLimit = 280

// Item is a single news item as fetched from the feed.
type Item struct {
	Title        string    `json:"title"`
	Summary      string    `json:"summary,omitempty"`
	Link         string    `json:"link"`
	PublishedAt  time.Time `json:"published_at"`
	SourceDomain string    `json:"source_domain,omitempty"`
}

// Client fetches and parses Google News search feeds.
type Client struct {
	// HTTPClient is an optional custom HTTP client object to use for requests.
	// If not provided, request.DefaultClient will be used.
	HTTPClient *http.Client
	// Lang is the feed language (hl parameter), for example "en".
	Lang string
	// Geo is the optional feed region (gl/ceid parameters), for example "US".
	Geo string

	initOnce sync.Once
	fp       *gofeed.Parser
}

// BuildURL returns the Google News RSS search URL for the given query.
func BuildURL(query, lang, geo string) string {
	v := urlpkg.Values{}
	v.Set("q", query)
	v.Set("hl", lang)
	if geo != "" {
		v.Set("gl", geo)
		v.Set("ceid", geo+":"+lang)
	}
	return searchURL + "?" + v.Encode()
}

// Fetch fetches all items matching the query.
func (c *Client) Fetch(ctx context.Context, query string) ([]Item, error) {
	c.initOnce.Do(func() {
		c.fp = gofeed.NewParser()
	})

	url := BuildURL(query, c.Lang, c.Geo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())

	httpc := c.HTTPClient
	if httpc == nil {
		httpc = request.DefaultClient
	}

	res, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %q: want 200, got %d", url, res.StatusCode)
	}

	parsed, err := c.fp.Parse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", url, err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, fi := range parsed.Items {
		item := Item{
			Title:        strings.TrimSpace(fi.Title),
			Summary:      Truncate(StripHTML(fi.Description), summaryLimit),
			Link:         strings.TrimSpace(fi.Link),
			SourceDomain: domainOf(fi.Link),
		}
		if fi.PublishedParsed != nil {
			item.PublishedAt = fi.PublishedParsed.UTC()
		} else if fi.UpdatedParsed != nil {
			item.PublishedAt = fi.UpdatedParsed.UTC()
		}
		items = append(items, item)
	}

	return items, nil
}

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// StripHTML removes tags, unescapes entities and collapses whitespace.
func StripHTML(text string) string {
	if text == "" {
		return ""
	}
	text = tagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// Truncate shortens text to at most limit runes, appending an ellipsis if
// anything was cut.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimRight(string(runes[:limit-1]), " ") + "…"
}

func domainOf(link string) string {
	u, err := urlpkg.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
