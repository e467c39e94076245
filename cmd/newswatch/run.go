// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"time"

	"go.astrophena.name/newswatch/cmd/newswatch/internal/rules"
	"go.astrophena.name/newswatch/internal/filelock"
	"go.astrophena.name/newswatch/internal/syncutil"
	"go.astrophena.name/newswatch/internal/util/set"
)

// fetchConcurrencyLimit bounds how many feeds are fetched at once.
const fetchConcurrencyLimit = 4

var errAlreadyRunning = errors.New("already running")

func (w *watcher) run(ctx context.Context) error {
	// Guard against overlapping cron invocations sharing a state directory.
	lock, err := w.acquireRunLock()
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := w.loadSnapshot(ctx); err != nil {
		return err
	}

	if w.enableCommands {
		if err := w.processCommands(ctx); err != nil {
			// Command processing failures shouldn't block the digest.
			w.slog.Error("processing commands failed", "error", err)
		}
	}

	d := w.collect(ctx)

	if err := w.deliver(ctx, d); err != nil {
		// A failed send doesn't fail the invocation: watermarks stay put,
		// so the same news is retried on the next scheduled run.
		w.slog.Error("delivering digest failed", "error", err)
		return w.saveSnapshot(ctx)
	}

	// Watermarks advance only after a successful delivery, so a failed send
	// results in a retry on the next run instead of lost news.
	for name, ts := range d.advance {
		w.snap.State.Advance(name, ts)
	}
	w.snap.State.Prune(w.snap.Watchlist, macroBucket)

	return w.saveSnapshot(ctx)
}

// acquireRunLock takes the per-state-directory run lock. When state lives on
// a Gist there is no directory to lock, and the scheduler cadence is the only
// guard.
func (w *watcher) acquireRunLock() (filelock.Lock, error) {
	if w.stateDir == "" {
		return noopLock{}, nil
	}
	if err := os.MkdirAll(w.stateDir, 0o755); err != nil {
		return nil, err
	}
	lock, err := filelock.Acquire(filepath.Join(w.stateDir, ".run.lock"), strconv.Itoa(os.Getpid()))
	if errors.Is(err, filelock.ErrAlreadyLocked) {
		return nil, errAlreadyRunning
	}
	return lock, err
}

type noopLock struct{}

func (noopLock) Release() error { return nil }

// collect fetches and filters news for every tracked company and the macro
// bucket. Companies are fetched concurrently, but the digest keeps the
// watchlist order. A failure on one company is logged and skipped; its
// watermark stays put so the items are retried on the next run.
func (w *watcher) collect(ctx context.Context) *digest {
	d := newDigest(w.lookback, w.maxPerCompany)
	now := w.now()

	type result struct {
		verdicts     []rules.Verdict
		maxPublished time.Time
		err          error
	}

	companies := w.snap.Watchlist.Companies
	results := make([]result, len(companies))

	wg := syncutil.NewLimitedWaitGroup(fetchConcurrencyLimit)
	for i, c := range companies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := &results[i]
			r.verdicts, r.maxPublished, r.err = w.collectCompany(ctx, c.Name, c.Aliases, now)
		}()
	}
	wg.Wait()

	// Assemble sequentially so link dedup across companies is deterministic.
	seen := make(set.Set[string])
	for i, c := range companies {
		r := results[i]
		if r.err != nil {
			w.slog.Error("collecting news failed", "company", c.Name, "error", r.err)
			continue
		}
		d.add(c.Name, dedup(r.verdicts, seen))
		if !r.maxPublished.IsZero() {
			d.advance[c.Name] = r.maxPublished
		}
	}

	verdicts, maxPublished := w.collectMacro(ctx, now)
	d.add(macroBucket, dedup(verdicts, seen))
	if !maxPublished.IsZero() {
		d.advance[macroBucket] = maxPublished
	}

	return d
}

// dedup drops verdicts whose links were already taken by an earlier section.
func dedup(verdicts []rules.Verdict, seen set.Set[string]) []rules.Verdict {
	var kept []rules.Verdict
	for _, v := range verdicts {
		if !seen.Add(v.Item.Link) {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

func (w *watcher) collectCompany(ctx context.Context, name string, aliases []string, now time.Time) (verdicts []rules.Verdict, maxPublished time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()

	// Quoting the name keeps multi-word companies as a single search phrase.
	items, err := w.feeds.Fetch(ctx, `"`+name+`"`)
	if err != nil {
		return nil, time.Time{}, err
	}

	for _, item := range items {
		if item.PublishedAt.After(maxPublished) {
			maxPublished = item.PublishedAt
		}
		if !w.snap.State.Eligible(name, item.PublishedAt, now, w.lookback) {
			continue
		}
		v, ok := w.rules.Classify(item, name, aliases, w.snap.State.BroadMode)
		if !ok {
			w.slog.Debug("item filtered out", "company", name, "title", item.Title)
			continue
		}
		verdicts = append(verdicts, v)
	}

	w.slog.Debug("collected company news",
		"company", name,
		"fetched", len(items),
		"kept", len(verdicts),
	)
	return verdicts, maxPublished, nil
}

func (w *watcher) collectMacro(ctx context.Context, now time.Time) (verdicts []rules.Verdict, maxPublished time.Time) {
	for _, query := range w.rules.MacroQueries {
		items, err := w.feeds.Fetch(ctx, query)
		if err != nil {
			w.slog.Error("fetching macro news failed", "query", query, "error", err)
			continue
		}
		for _, item := range items {
			if item.PublishedAt.After(maxPublished) {
				maxPublished = item.PublishedAt
			}
			if !w.snap.State.Eligible(macroBucket, item.PublishedAt, now, w.lookback) {
				continue
			}
			v, ok := w.rules.ClassifyMacro(item)
			if !ok {
				continue
			}
			verdicts = append(verdicts, v)
		}
	}
	return verdicts, maxPublished
}

// deliver renders and sends the digest. An empty digest is sent only when an
// update was explicitly requested via the /update command; scheduled runs
// stay silent.
func (w *watcher) deliver(ctx context.Context, d *digest) error {
	if d.empty() {
		if w.forceUpdate {
			return w.send(ctx, fmt.Sprintf("No material news in the last %dh.", int(w.lookback.Hours())))
		}
		w.slog.Info("no news to report")
		return nil
	}

	if w.summarize != nil {
		overview, err := w.summarize(ctx, d.headlines())
		if err != nil {
			// The digest is still useful without the overview.
			w.slog.Error("summarizing digest failed", "error", err)
		} else {
			d.overview = overview
		}
	}

	return w.send(ctx, d.render())
}

func (w *watcher) send(ctx context.Context, text string) error {
	if w.dry {
		w.slog.Info("dry run, not sending", "text", text)
		return nil
	}
	return w.tg.Send(ctx, text)
}
