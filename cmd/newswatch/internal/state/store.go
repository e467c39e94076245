// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"go.astrophena.name/newswatch/internal/api/gist"
	"go.astrophena.name/newswatch/internal/atomicio"
)

// Filenames inside the state directory or gist.
const (
	WatchlistFile = "watchlist.json"
	StateFile     = "state.json"
	RulesFile     = "rules.star"
)

// Snapshot holds everything a single invocation loads at start and saves
// before exit.
type Snapshot struct {
	Watchlist *Watchlist
	State     *State
	// Rules is the raw rule configuration, empty if the operator hasn't
	// provided one.
	Rules string
}

// Store loads and saves snapshots.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, s *Snapshot) error
}

// ErrCorrupted wraps decode failures of stored snapshots so callers can tell
// a damaged snapshot from an I/O error and decide whether to start afresh.
var ErrCorrupted = errors.New("state: corrupted snapshot")

// NewFileStore returns a Store keeping the snapshot as files in dir. The
// directory is created on first save.
func NewFileStore(dir string) Store { return &fileStore{dir: dir} }

type fileStore struct {
	dir string
}

func (f *fileStore) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Watchlist: new(Watchlist), State: NewState()}

	wb, err := f.read(WatchlistFile)
	if err != nil {
		return nil, err
	}
	if snap.Watchlist, err = UnmarshalWatchlist(wb); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupted, WatchlistFile, err)
	}

	sb, err := f.read(StateFile)
	if err != nil {
		return nil, err
	}
	if snap.State, err = UnmarshalState(sb); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupted, StateFile, err)
	}

	rb, err := f.read(RulesFile)
	if err != nil {
		return nil, err
	}
	snap.Rules = string(rb)

	return snap, nil
}

func (f *fileStore) read(name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

func (f *fileStore) Save(ctx context.Context, s *Snapshot) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return err
	}
	wb, err := MarshalWatchlist(s.Watchlist)
	if err != nil {
		return err
	}
	if err := atomicio.WriteFile(filepath.Join(f.dir, WatchlistFile), wb, 0o644); err != nil {
		return err
	}
	sb, err := MarshalState(s.State)
	if err != nil {
		return err
	}
	return atomicio.WriteFile(filepath.Join(f.dir, StateFile), sb, 0o644)
}

// NewGistStore returns a Store keeping the snapshot in a GitHub gist.
func NewGistStore(id, token string, httpc *http.Client) Store {
	return &gistStore{
		id: id,
		c: &gist.Client{
			Token:      token,
			HTTPClient: httpc,
		},
	}
}

type gistStore struct {
	id string
	c  *gist.Client
}

func (g *gistStore) Load(ctx context.Context) (*Snapshot, error) {
	gs, err := g.c.Get(ctx, g.id)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Watchlist: new(Watchlist), State: NewState()}

	if f, ok := gs.Files[WatchlistFile]; ok {
		if snap.Watchlist, err = UnmarshalWatchlist([]byte(f.Content)); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupted, WatchlistFile, err)
		}
	}
	if f, ok := gs.Files[StateFile]; ok {
		if snap.State, err = UnmarshalState([]byte(f.Content)); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupted, StateFile, err)
		}
	}
	if f, ok := gs.Files[RulesFile]; ok {
		snap.Rules = f.Content
	}

	return snap, nil
}

func (g *gistStore) Save(ctx context.Context, s *Snapshot) error {
	wb, err := MarshalWatchlist(s.Watchlist)
	if err != nil {
		return err
	}
	sb, err := MarshalState(s.State)
	if err != nil {
		return err
	}
	_, err = g.c.Update(ctx, g.id, &gist.Gist{
		Files: map[string]gist.File{
			WatchlistFile: {Content: string(wb)},
			StateFile:     {Content: string(sb)},
		},
	})
	return err
}
