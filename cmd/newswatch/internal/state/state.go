// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package state provides persistence for the watchlist and run state.
//
// Everything is read in full at process start and written in full before
// exit. The scheduler cadence, not this package, guarantees that at most one
// invocation runs at a time against a given state location.
package state

import (
	"encoding/json"
	"strings"
	"time"
)

// Company is a single watched company.
type Company struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// Watchlist is the set of watched companies. Companies are unique by name,
// compared case-insensitively.
type Watchlist struct {
	Companies []Company `json:"companies"`
}

// Has reports whether a company with this name is already tracked.
func (w *Watchlist) Has(name string) bool {
	return w.find(name) != nil
}

// Add appends a new company and reports whether it was added. Adding an
// already tracked name is a no-op.
func (w *Watchlist) Add(name string) bool {
	if w.Has(name) {
		return false
	}
	w.Companies = append(w.Companies, Company{Name: name})
	return true
}

// AddAlias records an additional keyword variant for a tracked company and
// reports whether anything changed.
func (w *Watchlist) AddAlias(name, alias string) bool {
	c := w.find(name)
	if c == nil {
		return false
	}
	for _, a := range c.Aliases {
		if strings.EqualFold(a, alias) {
			return false
		}
	}
	c.Aliases = append(c.Aliases, alias)
	return true
}

// Names returns the tracked company names in watchlist order.
func (w *Watchlist) Names() []string {
	names := make([]string, 0, len(w.Companies))
	for _, c := range w.Companies {
		names = append(names, c.Name)
	}
	return names
}

func (w *Watchlist) find(name string) *Company {
	for i := range w.Companies {
		if strings.EqualFold(w.Companies[i].Name, name) {
			return &w.Companies[i]
		}
	}
	return nil
}

// State is the mutable run state surviving across invocations.
type State struct {
	// BroadMode relaxes the relevance filter; toggled via the /broad command.
	BroadMode bool `json:"broad_mode"`
	// LastUpdateID is the cursor of the last processed chat update.
	LastUpdateID int64 `json:"last_update_id"`
	// Watermarks maps a company name (or macro bucket) to the newest item
	// publication time already considered for reporting.
	Watermarks map[string]time.Time `json:"watermarks"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{Watermarks: make(map[string]time.Time)}
}

// Eligible reports whether an item published at the given time should be
// considered for reporting: it must be newer than the company's watermark and
// fall within the lookback window.
func (s *State) Eligible(company string, publishedAt, now time.Time, lookback time.Duration) bool {
	if !publishedAt.After(s.Watermarks[company]) {
		return false
	}
	return !publishedAt.Before(now.Add(-lookback))
}

// Advance moves the company's watermark forward to publishedAt. Watermarks
// never move backward, so stale or duplicate fetch results can't cause
// re-reporting.
func (s *State) Advance(company string, publishedAt time.Time) {
	if s.Watermarks == nil {
		s.Watermarks = make(map[string]time.Time)
	}
	if publishedAt.After(s.Watermarks[company]) {
		s.Watermarks[company] = publishedAt
	}
}

// Prune drops watermarks of companies that are no longer tracked. The macro
// bucket name is always kept.
func (s *State) Prune(w *Watchlist, keep ...string) {
	for name := range s.Watermarks {
		if w.Has(name) {
			continue
		}
		var kept bool
		for _, k := range keep {
			if name == k {
				kept = true
				break
			}
		}
		if !kept {
			delete(s.Watermarks, name)
		}
	}
}

// MarshalWatchlist encodes the watchlist for storage.
func MarshalWatchlist(w *Watchlist) ([]byte, error) {
	return json.MarshalIndent(w, "", "  ")
}

// UnmarshalWatchlist decodes a stored watchlist. Empty input yields an empty
// watchlist.
func UnmarshalWatchlist(b []byte) (*Watchlist, error) {
	w := new(Watchlist)
	if len(b) == 0 {
		return w, nil
	}
	if err := json.Unmarshal(b, w); err != nil {
		return nil, err
	}
	return w, nil
}

// MarshalState encodes the run state for storage.
func MarshalState(s *State) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// UnmarshalState decodes a stored run state. Empty input yields an empty
// state.
func UnmarshalState(b []byte) (*State, error) {
	s := NewState()
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, err
	}
	if s.Watermarks == nil {
		s.Watermarks = make(map[string]time.Time)
	}
	return s, nil
}
