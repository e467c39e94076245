// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"go.astrophena.name/newswatch/cmd/newswatch/internal/telegram"
	"go.astrophena.name/newswatch/internal/testutil"
)

func update(text string, chatID int64) telegram.Update {
	return telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			Text: text,
			Chat: telegram.Chat{ID: chatID},
		},
	}
}

func TestProcessCommands(t *testing.T) {
	t.Parallel()

	tm := testMux(t, nil)
	tm.updates = `{
		"ok": true,
		"result": [
			{"update_id": 1, "message": {"text": "/add Acme Corp", "chat": {"id": 123}}},
			{"update_id": 2, "message": {"text": "/add Acme Corp", "chat": {"id": 123}}},
			{"update_id": 3, "message": {"text": "/list", "chat": {"id": 123}}},
			{"update_id": 4, "message": {"text": "/add Evil Corp", "chat": {"id": 456}}},
			{"update_id": 5, "message": {"text": "/broad on", "chat": {"id": 123}}},
			{"update_id": 6, "message": {"text": "/frobnicate", "chat": {"id": 123}}}
		]
	}`

	w := testWatcher(t, tm)
	ctx := testContext(t)

	if err := w.loadSnapshot(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.processCommands(ctx); err != nil {
		t.Fatal(err)
	}

	var replies []string
	for _, msg := range tm.sentMessages {
		replies = append(replies, msg["text"].(string))
	}
	testutil.AssertEqual(t, replies, []string{
		"Added: Acme Corp",
		"Already tracking: Acme Corp",
		"<b>Tracking:</b>\n• Acme Corp",
		"Broad mode enabled.",
		"Unknown command /frobnicate. Try /help.",
	})

	testutil.AssertEqual(t, w.snap.State.LastUpdateID, int64(6))
	testutil.AssertEqual(t, w.snap.State.BroadMode, true)
	// The command from chat 456 must have been ignored.
	if w.snap.Watchlist.Has("Evil Corp") {
		t.Error("command from an unknown chat modified the watchlist")
	}

	// The watchlist and cursor must have been persisted before replies.
	snap, err := w.store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Watchlist.Has("Acme Corp") {
		t.Error("watchlist change was not persisted")
	}
	testutil.AssertEqual(t, snap.State.LastUpdateID, int64(6))
}

func TestProcessCommandsOffset(t *testing.T) {
	t.Parallel()

	var gotOffset int64
	tm := testMux(t, map[string]http.HandlerFunc{
		getUpdates: func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Offset int64 `json:"offset"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatal(err)
			}
			gotOffset = req.Offset
			w.Write([]byte(`{"ok":true,"result":[]}`))
		},
	})

	w := testWatcher(t, tm)
	ctx := testContext(t)

	if err := w.loadSnapshot(ctx); err != nil {
		t.Fatal(err)
	}
	w.snap.State.LastUpdateID = 41

	if err := w.processCommands(ctx); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, gotOffset, int64(42))
}

func TestHandleUpdateHelpAndMentions(t *testing.T) {
	t.Parallel()

	w := testWatcher(t, testMux(t, nil))
	ctx := testContext(t)
	if err := w.loadSnapshot(ctx); err != nil {
		t.Fatal(err)
	}
	w.snap.Watchlist.Add("Acme Corp")

	cases := map[string]struct {
		text      string
		wantReply string
		wantOK    bool
	}{
		"help":            {text: "/help", wantReply: helpText, wantOK: true},
		"start":           {text: "/start", wantReply: helpText, wantOK: true},
		"bot mention":     {text: "/list@newswatch_bot", wantReply: "<b>Tracking:</b>\n• Acme Corp", wantOK: true},
		"add usage":       {text: "/add", wantReply: "Usage: /add &lt;company&gt;", wantOK: true},
		"add with markup": {text: "/add <Evil> Corp", wantReply: "Company names can't contain &lt; or &gt;.", wantOK: true},
		"broad status":    {text: "/broad status", wantReply: "Broad mode is off.", wantOK: true},
		"broad bad arg":   {text: "/broad sideways", wantReply: "Usage: /broad on|off|status", wantOK: true},
		"not a command": {text: "hello there", wantOK: false},
		"empty message": {text: "", wantOK: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			reply, ok := w.handleUpdate(update(tc.text, 123))
			if ok != tc.wantOK {
				t.Fatalf("handleUpdate(%q) ok = %v, want %v", tc.text, ok, tc.wantOK)
			}
			if tc.wantOK {
				testutil.AssertEqual(t, reply, tc.wantReply)
			}
		})
	}

	// Company names render escaped in replies.
	reply, ok := w.handleUpdate(update("/add Johnson & Johnson", 123))
	if !ok {
		t.Fatal("handleUpdate(/add) returned no reply")
	}
	testutil.AssertEqual(t, reply, "Added: Johnson &amp; Johnson")
}

func TestUpdateCommandForcesReply(t *testing.T) {
	t.Parallel()

	tm := testMux(t, nil)
	tm.updates = `{
		"ok": true,
		"result": [
			{"update_id": 1, "message": {"text": "/update", "chat": {"id": 123}}}
		]
	}`

	w := testWatcher(t, tm)
	w.enableCommands = true
	ctx := testContext(t)

	// No tracked companies and empty macro feeds: a scheduled run would stay
	// silent, but a forced update must say so.
	if err := w.run(ctx); err != nil {
		t.Fatal(err)
	}

	var replies []string
	for _, msg := range tm.sentMessages {
		replies = append(replies, msg["text"].(string))
	}
	testutil.AssertEqual(t, replies, []string{
		"Running update now…",
		"No material news in the last 24h.",
	})
}

func TestCommandsModeRunsForcedUpdate(t *testing.T) {
	t.Parallel()

	tm := testMux(t, nil)
	tm.updates = `{
		"ok": true,
		"result": [
			{"update_id": 1, "message": {"text": "/update", "chat": {"id": 123}}}
		]
	}`
	tm.feeds = map[string]string{
		`"Acme Corp"`: rssFeed(rssItem{
			title:   "Acme Corp awarded $2B defense contract",
			link:    "https://reuters.com/acme-contract",
			pubDate: testNow.Add(-2 * time.Hour),
		}),
	}

	w := testWatcher(t, tm)
	ctx := testContext(t)

	if err := w.loadSnapshot(ctx); err != nil {
		t.Fatal(err)
	}
	w.snap.Watchlist.Add("Acme Corp")
	if err := w.saveSnapshot(ctx); err != nil {
		t.Fatal(err)
	}

	if err := w.commandsOnly(ctx); err != nil {
		t.Fatal(err)
	}

	var replies []string
	for _, msg := range tm.sentMessages {
		replies = append(replies, msg["text"].(string))
	}
	if len(replies) != 2 {
		t.Fatalf("got %d sent messages, want 2: %q", len(replies), replies)
	}
	testutil.AssertEqual(t, replies[0], "Running update now…")
	testutil.AssertContains(t, replies[1], "Acme Corp awarded $2B defense contract")
}

func TestCommandsModeSkipsFetchWithoutUpdate(t *testing.T) {
	t.Parallel()

	tm := testMux(t, map[string]http.HandlerFunc{
		searchNews: func(hw http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected news fetch for %q", r.URL.Query().Get("q"))
		},
	})
	tm.updates = `{
		"ok": true,
		"result": [
			{"update_id": 1, "message": {"text": "/broad on", "chat": {"id": 123}}}
		]
	}`

	w := testWatcher(t, tm)
	ctx := testContext(t)

	if err := w.commandsOnly(ctx); err != nil {
		t.Fatal(err)
	}

	if len(tm.sentMessages) != 1 {
		t.Fatalf("got %d sent messages, want 1", len(tm.sentMessages))
	}
	testutil.AssertEqual(t, tm.sentMessages[0]["text"].(string), "Broad mode enabled.")
}

func TestScheduledRunStaysSilentWhenEmpty(t *testing.T) {
	t.Parallel()

	tm := testMux(t, nil)
	w := testWatcher(t, tm)
	ctx := testContext(t)

	if err := w.run(ctx); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(tm.sentMessages), 0)
}
