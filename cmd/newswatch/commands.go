// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"go.astrophena.name/newswatch/cmd/newswatch/internal/telegram"
)

const helpText = `<b>Commands</b>
/add &lt;company&gt; — start tracking a company
/list — show tracked companies
/update — run a news update now
/broad on|off|status — toggle broad mode
/help — show this message`

// processCommands fetches pending chat updates and handles each command in
// them. The update cursor and any watchlist changes are persisted before
// replies go out, so a crash mid-reply can't replay commands.
func (w *watcher) processCommands(ctx context.Context) error {
	updates, err := w.tg.GetUpdates(ctx, w.snap.State.LastUpdateID+1)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	var replies []string
	for _, u := range updates {
		if u.UpdateID > w.snap.State.LastUpdateID {
			w.snap.State.LastUpdateID = u.UpdateID
		}
		if reply, ok := w.handleUpdate(u); ok {
			replies = append(replies, reply)
		}
	}

	if err := w.saveSnapshot(ctx); err != nil {
		return err
	}

	for _, reply := range replies {
		if err := w.send(ctx, reply); err != nil {
			w.slog.Error("sending command reply failed", "error", err)
		}
	}
	return nil
}

// commandsOnly processes pending chat commands and exits without fetching
// news. A /update command still gets its full fetch+filter+digest cycle.
func (w *watcher) commandsOnly(ctx context.Context) error {
	if err := w.loadSnapshot(ctx); err != nil {
		return err
	}
	if err := w.processCommands(ctx); err != nil {
		return err
	}
	if err := w.saveSnapshot(ctx); err != nil {
		return err
	}
	if !w.forceUpdate {
		return nil
	}
	return w.run(ctx)
}

// handleUpdate handles a single update and returns the reply text. Updates
// from other chats and non-command messages produce no reply.
func (w *watcher) handleUpdate(u telegram.Update) (reply string, ok bool) {
	if u.Message == nil || u.Message.Text == "" {
		return "", false
	}
	if strconv.FormatInt(u.Message.Chat.ID, 10) != w.chatID {
		w.slog.Warn("ignoring command from unknown chat", "chat_id", u.Message.Chat.ID)
		return "", false
	}

	text := strings.TrimSpace(u.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	cmd, args, _ := strings.Cut(text, " ")
	// Strip the bot mention: /add@newswatch_bot works like /add.
	cmd, _, _ = strings.Cut(cmd, "@")
	args = strings.TrimSpace(args)

	w.slog.Info("handling command", "command", cmd)

	switch cmd {
	case "/add":
		if args == "" {
			return "Usage: /add &lt;company&gt;", true
		}
		if strings.ContainsAny(args, "<>") {
			return "Company names can't contain &lt; or &gt;.", true
		}
		if !w.snap.Watchlist.Add(args) {
			return "Already tracking: " + html.EscapeString(args), true
		}
		return "Added: " + html.EscapeString(args), true
	case "/list":
		names := w.snap.Watchlist.Names()
		if len(names) == 0 {
			return "Not tracking any companies yet. Use /add to start.", true
		}
		var sb strings.Builder
		sb.WriteString("<b>Tracking:</b>\n")
		for _, name := range names {
			sb.WriteString("• ")
			sb.WriteString(html.EscapeString(name))
			sb.WriteString("\n")
		}
		return strings.TrimRight(sb.String(), "\n"), true
	case "/update":
		w.forceUpdate = true
		return "Running update now…", true
	case "/broad":
		switch args {
		case "on":
			w.snap.State.BroadMode = true
			return "Broad mode enabled.", true
		case "off":
			w.snap.State.BroadMode = false
			return "Broad mode disabled.", true
		case "status", "":
			if w.snap.State.BroadMode {
				return "Broad mode is on.", true
			}
			return "Broad mode is off.", true
		default:
			return "Usage: /broad on|off|status", true
		}
	case "/help", "/start":
		return helpText, true
	default:
		return fmt.Sprintf("Unknown command %s. Try /help.", html.EscapeString(cmd)), true
	}
}
