// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.astrophena.name/newswatch/internal/testutil"
)

func TestBuildURL(t *testing.T) {
	cases := map[string]struct {
		query, lang, geo string
		want             string
	}{
		"language only": {
			query: `"Acme"`, lang: "en",
			want: "https://news.google.com/rss/search?hl=en&q=%22Acme%22",
		},
		"with region": {
			query: "Acme", lang: "en", geo: "US",
			want: "https://news.google.com/rss/search?ceid=US%3Aen&gl=US&hl=en&q=Acme",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, BuildURL(tc.query, tc.lang, tc.geo), tc.want)
		})
	}
}

func TestStripHTML(t *testing.T) {
	cases := map[string]struct {
		in, want string
	}{
		"empty":      {"", ""},
		"plain":      {"hello", "hello"},
		"tags":       {"<p>hello <b>world</b></p>", "hello world"},
		"entities":   {"a &amp; b", "a & b"},
		"whitespace": {"  a \n\t b  ", "a b"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, StripHTML(tc.in), tc.want)
		})
	}
}

func TestTruncate(t *testing.T) {
	testutil.AssertEqual(t, Truncate("short", 10), "short")
	testutil.AssertEqual(t, Truncate("hello world", 6), "hello…")
	// Rune-aware, not byte-aware.
	testutil.AssertEqual(t, Truncate("приветик", 5), "прив…")
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>"Acme" - Google News</title>
<item>
<title>Acme Corp awarded $50M contract</title>
<link>https://www.acme.com/news/contract</link>
<pubDate>Mon, 17 Aug 2026 10:00:00 GMT</pubDate>
<description>&lt;a href="https://acme.com"&gt;Acme Corp&lt;/a&gt; won a &lt;b&gt;$50M&lt;/b&gt; defense contract.</description>
</item>
<item>
<title>Untimed item</title>
<link>https://example.org/untimed</link>
<description>No date here.</description>
</item>
</channel>
</rss>`

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestFetch(t *testing.T) {
	m := http.NewServeMux()
	m.HandleFunc("GET news.google.com/rss/search", func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.URL.Query().Get("q"), `"Acme"`)
		testutil.AssertEqual(t, r.URL.Query().Get("hl"), "en")
		w.Write([]byte(testFeed))
	})

	c := &Client{
		Lang: "en",
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				w := httptest.NewRecorder()
				m.ServeHTTP(w, r)
				return w.Result(), nil
			}),
		},
	}

	items, err := c.Fetch(context.Background(), `"Acme"`)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(items), 2)

	testutil.AssertEqual(t, items[0].Title, "Acme Corp awarded $50M contract")
	testutil.AssertEqual(t, items[0].Link, "https://www.acme.com/news/contract")
	testutil.AssertEqual(t, items[0].SourceDomain, "acme.com")
	testutil.AssertEqual(t, items[0].Summary, "Acme Corp won a $50M defense contract.")
	testutil.AssertEqual(t, items[0].PublishedAt, time.Date(2026, 8, 17, 10, 0, 0, 0, time.UTC))

	// Items without a date keep the zero time.
	testutil.AssertEqual(t, items[1].PublishedAt, time.Time{})
}

func TestFetchError(t *testing.T) {
	c := &Client{
		Lang: "en",
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				w := httptest.NewRecorder()
				http.Error(w, "nope", http.StatusServiceUnavailable)
				return w.Result(), nil
			}),
		},
	}
	if _, err := c.Fetch(context.Background(), "Acme"); err == nil {
		t.Fatal("expected an error, got nil")
	}
}
