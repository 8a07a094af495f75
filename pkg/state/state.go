// Package state holds the in-memory, UI-facing watchlist state. It is
// derived and never authoritative: mutations apply optimistically in call
// order, then hand the touched record to a Persister which pushes it to
// durable storage in the background.
package state

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/CGeorges/tradingboard/pkg/watchlist"
	"github.com/google/uuid"
)

// Persister receives records after each optimistic mutation. Both calls
// are fire-and-forget: failures are the persister's problem, not the
// caller's.
type Persister interface {
	Save(ctx context.Context, w watchlist.Watchlist)
	Delete(ctx context.Context, id string)
}

// Listener is notified with a snapshot after every state change.
type Listener func(lists []watchlist.Watchlist, active string)

// Store is the reactive in-memory watchlist state. All access goes
// through its methods; mutations are serialized under one mutex so they
// apply in the order the user issued them.
type Store struct {
	mu        sync.RWMutex
	lists     []watchlist.Watchlist
	active    string // id of the selected watchlist, "" when none
	persister Persister
	listeners []Listener
}

// NewStore creates a state store. persister may be nil (detached mode,
// used by tests and the read-only CLI paths).
func NewStore(persister Persister) *Store {
	return &Store{persister: persister}
}

// Subscribe registers a listener invoked after every mutation.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Load seeds the state with a resolved set, selecting the first entry in
// store order as active when nothing is selected yet.
func (s *Store) Load(lists []watchlist.Watchlist) {
	s.mu.Lock()
	s.lists = make([]watchlist.Watchlist, len(lists))
	for i, w := range lists {
		s.lists[i] = w.Clone()
	}
	if s.indexOf(s.active) < 0 {
		s.active = ""
	}
	if s.active == "" && len(s.lists) > 0 {
		s.active = s.lists[0].ID
	}
	s.notifyLocked()
	s.mu.Unlock()
}

// Watchlists returns a snapshot of the current set.
func (s *Store) Watchlists() []watchlist.Watchlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]watchlist.Watchlist, len(s.lists))
	for i, w := range s.lists {
		out[i] = w.Clone()
	}
	return out
}

// Active returns the selected watchlist id, "" when none.
func (s *Store) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Get returns a copy of one watchlist.
func (s *Store) Get(id string) (watchlist.Watchlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return watchlist.Watchlist{}, false
	}
	return s.lists[i].Clone(), true
}

// SetActive selects a watchlist. The id must refer to a present list;
// "" clears the selection.
func (s *Store) SetActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.indexOf(id) < 0 {
		return false
	}
	s.active = id
	s.notifyLocked()
	return true
}

// Add appends a new watchlist and persists it.
func (s *Store) Add(ctx context.Context, w watchlist.Watchlist) {
	s.mu.Lock()
	w = w.Clone()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	w.UpdatedAt = time.Now().UTC()
	s.lists = append(s.lists, w)
	s.notifyLocked()
	s.mu.Unlock()

	s.persist(ctx, w)
}

// Remove deletes a watchlist. Deletion is only eligible while more than
// one watchlist remains and the target is not a system default; that
// policy lives here, not in the server. Removing the active list clears
// the selection.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 || len(s.lists) <= 1 || s.lists[i].IsDefault {
		s.mu.Unlock()
		return false
	}
	s.lists = slices.Delete(s.lists, i, i+1)
	if s.active == id {
		s.active = ""
	}
	s.notifyLocked()
	s.mu.Unlock()

	if s.persister != nil {
		s.persister.Delete(ctx, id)
	}
	return true
}

// Rename changes a watchlist's display name.
func (s *Store) Rename(ctx context.Context, id, name string) bool {
	return s.mutate(ctx, id, func(w *watchlist.Watchlist) bool {
		if name == "" {
			return false
		}
		w.Name = name
		return true
	})
}

// AddSymbol appends a symbol unless it is already present.
func (s *Store) AddSymbol(ctx context.Context, id, symbol string) bool {
	return s.mutate(ctx, id, func(w *watchlist.Watchlist) bool {
		if slices.Contains(w.Symbols, symbol) {
			return false
		}
		w.Symbols = append(w.Symbols, symbol)
		return true
	})
}

// RemoveSymbol drops a symbol from the list and from the pinned set.
func (s *Store) RemoveSymbol(ctx context.Context, id, symbol string) bool {
	return s.mutate(ctx, id, func(w *watchlist.Watchlist) bool {
		if !slices.Contains(w.Symbols, symbol) {
			return false
		}
		w.Symbols = slices.DeleteFunc(w.Symbols, func(s string) bool { return s == symbol })
		w.PinnedSymbols = slices.DeleteFunc(w.PinnedSymbols, func(s string) bool { return s == symbol })
		return true
	})
}

// Pin marks a symbol as pinned. Pinning an already-pinned symbol is a
// no-op.
func (s *Store) Pin(ctx context.Context, id, symbol string) bool {
	return s.mutate(ctx, id, func(w *watchlist.Watchlist) bool {
		if slices.Contains(w.PinnedSymbols, symbol) {
			return false
		}
		w.PinnedSymbols = append(w.PinnedSymbols, symbol)
		return true
	})
}

// Unpin removes a symbol from the pinned set. Unpinning an absent symbol
// is a no-op.
func (s *Store) Unpin(ctx context.Context, id, symbol string) bool {
	return s.mutate(ctx, id, func(w *watchlist.Watchlist) bool {
		if !slices.Contains(w.PinnedSymbols, symbol) {
			return false
		}
		w.PinnedSymbols = slices.DeleteFunc(w.PinnedSymbols, func(s string) bool { return s == symbol })
		return true
	})
}

// MoveSymbol copies a symbol into the destination watchlist. Despite the
// "move" naming in the UI this never removes it from the source; a symbol
// pinned in the source arrives pinned in the destination.
func (s *Store) MoveSymbol(ctx context.Context, fromID, toID, symbol string) bool {
	s.mu.Lock()
	from := s.indexOf(fromID)
	to := s.indexOf(toID)
	if from < 0 || to < 0 || !slices.Contains(s.lists[from].Symbols, symbol) {
		s.mu.Unlock()
		return false
	}

	dst := &s.lists[to]
	changed := false
	if !slices.Contains(dst.Symbols, symbol) {
		dst.Symbols = append(dst.Symbols, symbol)
		changed = true
	}
	if slices.Contains(s.lists[from].PinnedSymbols, symbol) && !slices.Contains(dst.PinnedSymbols, symbol) {
		dst.PinnedSymbols = append(dst.PinnedSymbols, symbol)
		changed = true
	}
	if !changed {
		s.mu.Unlock()
		return false
	}
	dst.UpdatedAt = time.Now().UTC()
	snapshot := dst.Clone()
	s.notifyLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return true
}

// Duplicate creates an independent copy of a watchlist under a fresh
// generated id and the supplied name. The copy shares no slice state with
// the original.
func (s *Store) Duplicate(ctx context.Context, id, name string) (watchlist.Watchlist, bool) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return watchlist.Watchlist{}, false
	}
	now := time.Now().UTC()
	dup := s.lists[i].Clone()
	dup.ID = uuid.NewString()
	dup.Name = name
	dup.CreatedAt = now
	dup.UpdatedAt = now
	dup.IsDefault = false
	s.lists = append(s.lists, dup)
	s.notifyLocked()
	s.mu.Unlock()

	s.persist(ctx, dup)
	return dup.Clone(), true
}

// mutate applies fn to one watchlist under the lock, stamps updatedAt and
// persists when fn reports a change.
func (s *Store) mutate(ctx context.Context, id string, fn func(*watchlist.Watchlist) bool) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	if !fn(&s.lists[i]) {
		s.mu.Unlock()
		return false
	}
	s.lists[i].UpdatedAt = time.Now().UTC()
	snapshot := s.lists[i].Clone()
	s.notifyLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return true
}

func (s *Store) persist(ctx context.Context, w watchlist.Watchlist) {
	if s.persister != nil {
		s.persister.Save(ctx, w)
	}
}

// indexOf locates a watchlist by id. Callers hold the lock.
func (s *Store) indexOf(id string) int {
	for i := range s.lists {
		if s.lists[i].ID == id {
			return i
		}
	}
	return -1
}

// notifyLocked snapshots state and invokes listeners. Callers hold the
// lock; listeners must not call back into the store synchronously.
func (s *Store) notifyLocked() {
	if len(s.listeners) == 0 {
		return
	}
	snapshot := make([]watchlist.Watchlist, len(s.lists))
	for i, w := range s.lists {
		snapshot[i] = w.Clone()
	}
	for _, l := range s.listeners {
		l(snapshot, s.active)
	}
}
