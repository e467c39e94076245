// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/newswatch/cmd/newswatch/internal/feed"
	"go.astrophena.name/newswatch/cmd/newswatch/internal/rules"
	"go.astrophena.name/newswatch/cmd/newswatch/internal/state"
	"go.astrophena.name/newswatch/cmd/newswatch/internal/summary"
	"go.astrophena.name/newswatch/cmd/newswatch/internal/telegram"
	"go.astrophena.name/newswatch/internal/cli"
	"go.astrophena.name/newswatch/internal/cli/envflag"
	"go.astrophena.name/newswatch/internal/logger"
	"go.astrophena.name/newswatch/internal/request"
)

// macroBucket names the digest section (and watermark key) for macro-level
// news not tied to any tracked company.
const macroBucket = "General Market Movers"

func main() { cli.Main(new(watcher)) }

func (w *watcher) EnvFlags(fs *flag.FlagSet, getenv func(string) string) {
	fs.BoolVar(&w.dry, "dry", false, "Enable dry-run mode: log what would be sent, but don't send or save state.")
	w.lookbackHours = envflag.Value("lookback", "LOOKBACK_HOURS", 24, "How far back to look for news, in `hours`.", fs, getenv)
	w.maxPerCompanyFlag = envflag.Value("max-per-company", "MAX_PER_COMPANY", 5, "Maximum `number` of items reported per company.", fs, getenv)
}

type watcher struct {
	init sync.Once

	// configuration
	dry            bool
	chatID         string
	tgToken        string
	ghToken        string
	gistID         string
	stateDir       string
	lookback       time.Duration
	maxPerCompany  int
	enableCommands bool
	// set up by EnvFlags, consulted only when the fields above are unset
	lookbackHours     *int
	maxPerCompanyFlag *int
	newsLang       string
	newsGeo        string
	geminiKey      string
	geminiModel    string
	// now acts as time.Now, but can be mocked for testing.
	now func() time.Time

	// initialized by doInit
	httpc     *http.Client
	scrubber  *strings.Replacer
	tg        *telegram.Client
	feeds     *feed.Client
	store     state.Store
	slog      *slog.Logger
	slogLevel *slog.LevelVar
	// summarize is replaced in tests; nil means no summary.
	summarize func(ctx context.Context, headlines []string) (string, error)
	// summaryClose releases the Gemini client when the invocation ends.
	summaryClose func() error

	// loaded from the snapshot
	snap  *state.Snapshot
	rules *rules.Ruleset

	// forceUpdate is set when a /update command was received; it makes the
	// digest report "no news" instead of staying silent.
	forceUpdate bool
}

func (w *watcher) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	// Load configuration from environment variables.
	w.chatID = cmp.Or(w.chatID, env.Getenv("CHAT_ID"))
	w.tgToken = cmp.Or(w.tgToken, env.Getenv("TELEGRAM_TOKEN"))
	w.ghToken = cmp.Or(w.ghToken, env.Getenv("GITHUB_TOKEN"))
	w.gistID = cmp.Or(w.gistID, env.Getenv("GIST_ID"))
	w.newsLang = cmp.Or(w.newsLang, env.Getenv("NEWS_LANG"), "en")
	w.newsGeo = cmp.Or(w.newsGeo, env.Getenv("NEWS_GEO"))
	w.geminiKey = cmp.Or(w.geminiKey, env.Getenv("GEMINI_API_KEY"))
	w.geminiModel = cmp.Or(w.geminiModel, env.Getenv("GEMINI_MODEL"), summary.DefaultModel)
	if w.lookback == 0 {
		hours := 24
		if w.lookbackHours != nil {
			hours = *w.lookbackHours
		}
		w.lookback = time.Duration(hours) * time.Hour
	}
	if w.maxPerCompany == 0 {
		w.maxPerCompany = 5
		if w.maxPerCompanyFlag != nil {
			w.maxPerCompany = *w.maxPerCompanyFlag
		}
	}
	w.enableCommands = parseBool(env.Getenv("ENABLE_COMMANDS"), true)
	if w.stateDir == "" && w.gistID == "" {
		w.stateDir = env.Getenv("STATE_DIRECTORY")
		if w.stateDir == "" {
			xdgStateHome := env.Getenv("XDG_STATE_HOME")
			if xdgStateHome == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				xdgStateHome = filepath.Join(home, ".local", "state")
			}
			w.stateDir = filepath.Join(xdgStateHome, "newswatch")
		}
	}

	if w.tgToken == "" {
		return fmt.Errorf("%w: TELEGRAM_TOKEN environment variable is not set", cli.ErrInvalidArgs)
	}
	if w.chatID == "" {
		return fmt.Errorf("%w: CHAT_ID environment variable is not set", cli.ErrInvalidArgs)
	}

	// Initialize internal state.
	var initErr error
	w.init.Do(func() {
		initErr = w.doInit(ctx)
	})
	if initErr != nil {
		return initErr
	}
	if w.summaryClose != nil {
		defer func() {
			if err := w.summaryClose(); err != nil {
				w.slog.Error("closing summarizer failed", "error", err)
			}
		}()
	}

	// Enable debug logging in dry-run mode.
	if w.dry {
		w.slogLevel.Set(slog.LevelDebug)
	}

	if len(env.Args) == 0 {
		return fmt.Errorf("%w: command is required, see -help for usage", cli.ErrInvalidArgs)
	}
	command := env.Args[0]

	switch command {
	case "run":
		return w.run(ctx)
	case "commands":
		return w.commandsOnly(ctx)
	case "watchlist":
		if err := w.loadSnapshot(ctx); err != nil {
			return err
		}
		for _, name := range w.snap.Watchlist.Names() {
			fmt.Fprintln(env.Stdout, name)
		}
		return nil
	default:
		return fmt.Errorf("%w: no such command %q", cli.ErrInvalidArgs, command)
	}
}

func (w *watcher) doInit(ctx context.Context) error {
	if w.now == nil {
		w.now = time.Now
	}
	if w.httpc == nil {
		w.httpc = request.DefaultClient
	}

	scrubbed := []string{w.tgToken, "[EXPUNGED]"}
	if w.ghToken != "" {
		scrubbed = append(scrubbed, w.ghToken, "[EXPUNGED]")
	}
	w.scrubber = strings.NewReplacer(scrubbed...)

	w.tg = &telegram.Client{
		Token:      w.tgToken,
		ChatID:     w.chatID,
		HTTPClient: w.httpc,
		Scrubber:   w.scrubber,
	}
	w.feeds = &feed.Client{
		HTTPClient: w.httpc,
		Lang:       w.newsLang,
		Geo:        w.newsGeo,
	}

	if w.store == nil {
		if w.gistID != "" {
			w.store = state.NewGistStore(w.gistID, w.ghToken, w.httpc)
		} else {
			w.store = state.NewFileStore(w.stateDir)
		}
	}

	if w.summarize == nil && w.geminiKey != "" {
		s, err := summary.New(ctx, w.geminiKey, w.geminiModel)
		if err != nil {
			return err
		}
		w.summarize = s.Summarize
		w.summaryClose = s.Close
	}

	l := logger.Get(ctx)
	w.slog = l.Logger
	w.slogLevel = l.Level

	return nil
}

// loadSnapshot loads the watchlist, run state and rule configuration. A
// corrupted snapshot is logged and replaced with a fresh one so a single bad
// write can't permanently wedge the program.
func (w *watcher) loadSnapshot(ctx context.Context) error {
	snap, err := w.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, state.ErrCorrupted) {
			return fmt.Errorf("loading state failed: %w", err)
		}
		w.slog.Error("state is corrupted, starting fresh", "error", err)
		snap = &state.Snapshot{Watchlist: new(state.Watchlist), State: state.NewState()}
	}
	w.snap = snap

	if snap.Rules != "" {
		rs, err := rules.Parse(snap.Rules, cli.GetEnv(ctx).Logf)
		if err != nil {
			return fmt.Errorf("parsing %s failed: %w", state.RulesFile, err)
		}
		w.rules = rs
	} else {
		w.rules = rules.Default()
	}

	return nil
}

func (w *watcher) saveSnapshot(ctx context.Context) error {
	if w.dry {
		w.slog.Debug("dry run, not saving state")
		return nil
	}
	return w.store.Save(ctx, w.snap)
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
