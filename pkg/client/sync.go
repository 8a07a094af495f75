// Package client keeps a durable local mirror of the remote watchlist
// store and reconciles the two. The remote store is always the eventual
// source of truth; the cache only warms startup and papers over transient
// network loss.
//
// Writes are at-least-once and fire-and-forget: a failed background save
// is logged, reported to the notify sink and parked in a retry queue, but
// the caller's optimistic state is never rolled back. Concurrent bulk
// saves from two sessions remain last-writer-wins per id; there is no
// version token.
package client

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/CGeorges/tradingboard/pkg/notify"
	"github.com/CGeorges/tradingboard/pkg/watchlist"
)

// RemoteStore is the remote API surface the synchronizer needs.
type RemoteStore interface {
	LoadAll(ctx context.Context) ([]watchlist.Watchlist, error)
	Save(ctx context.Context, w watchlist.Watchlist) error
	Delete(ctx context.Context, id string) error
	BulkSave(ctx context.Context, lists []watchlist.Watchlist) error
}

// pendingOp is a failed write waiting for a retry. Keyed by watchlist id;
// a newer write for the same id supersedes the queued one. seq orders
// writes per id so a retry never dequeues an op it did not send.
type pendingOp struct {
	seq     uint64
	deleted bool
	record  watchlist.Watchlist
}

// Synchronizer reconciles the in-memory view, the local cache and the
// remote store.
type Synchronizer struct {
	remote   RemoteStore
	cache    *Cache
	notifier *notify.Manager
	logger   *log.Logger

	mu      sync.Mutex
	seq     uint64
	pending map[string]pendingOp
}

// New creates a Synchronizer. If logger is nil, a default logger writing
// to stderr is used; notifier may be nil when nothing listens.
func New(remote RemoteStore, cache *Cache, notifier *notify.Manager, logger *log.Logger) *Synchronizer {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if notifier == nil {
		notifier = notify.NewManager()
	}
	return &Synchronizer{
		remote:   remote,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		pending:  make(map[string]pendingOp),
	}
}

// Bootstrap runs the startup reconciliation and returns the resolved set:
//
//  1. Load the full set from the remote store.
//  2. On remote failure, fall back to the local cache, then to the
//     built-in defaults. Both fallbacks are read-only and never written
//     back to the remote.
//  3. On a successful but empty remote read (first run), seed both the
//     cache and the remote with the built-in defaults.
//  4. Otherwise mirror the remote set into the cache wholesale.
func (s *Synchronizer) Bootstrap(ctx context.Context) []watchlist.Watchlist {
	lists, err := s.remote.LoadAll(ctx)
	if err != nil {
		s.logger.Printf("remote load failed, using local fallback: %v", err)
		cached, cacheErr := s.cache.Load()
		if cacheErr == nil && len(cached) > 0 {
			return cached
		}
		if cacheErr != nil {
			s.logger.Printf("cache load failed: %v", cacheErr)
		}
		return watchlist.Defaults()
	}

	if len(lists) == 0 {
		lists = watchlist.Defaults()
		if err := s.remote.BulkSave(ctx, lists); err != nil {
			s.logger.Printf("seeding defaults remotely failed: %v", err)
			s.notifier.Broadcast(notify.Event{Operation: "bulk-save", Err: err})
		} else {
			s.logger.Printf("seeded %d default watchlists", len(lists))
		}
	}

	if err := s.cache.Replace(lists); err != nil {
		s.logger.Printf("cache replace failed: %v", err)
	}
	return lists
}

// Save persists one watchlist: cache first, then remote upsert. Remote
// failure is reported and queued for retry, never returned; the caller's
// optimistic state stands.
func (s *Synchronizer) Save(ctx context.Context, w watchlist.Watchlist) {
	if err := s.cache.Put(w); err != nil {
		s.logger.Printf("cache put %s failed: %v", w.ID, err)
	}

	if err := s.remote.Save(ctx, w); err != nil {
		s.logger.Printf("remote save %s failed: %v", w.ID, err)
		s.notifier.Broadcast(notify.Event{Operation: "save", WatchlistID: w.ID, Err: err})
		s.enqueue(w.ID, pendingOp{record: w})
		return
	}
	s.dequeue(w.ID)
}

// Delete removes one watchlist from cache and remote, with the same
// fire-and-forget failure policy as Save.
func (s *Synchronizer) Delete(ctx context.Context, id string) {
	if err := s.cache.Remove(id); err != nil {
		s.logger.Printf("cache remove %s failed: %v", id, err)
	}

	if err := s.remote.Delete(ctx, id); err != nil {
		s.logger.Printf("remote delete %s failed: %v", id, err)
		s.notifier.Broadcast(notify.Event{Operation: "delete", WatchlistID: id, Err: err})
		s.enqueue(id, pendingOp{deleted: true})
		return
	}
	s.dequeue(id)
}

// SaveAll replaces the entire remote watchlist universe with lists.
func (s *Synchronizer) SaveAll(ctx context.Context, lists []watchlist.Watchlist) error {
	if err := s.cache.Replace(lists); err != nil {
		s.logger.Printf("cache replace failed: %v", err)
	}
	if err := s.remote.BulkSave(ctx, lists); err != nil {
		s.notifier.Broadcast(notify.Event{Operation: "bulk-save", Err: err})
		return err
	}
	return nil
}

// PendingCount reports how many failed writes await a retry.
func (s *Synchronizer) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush retries every queued write once. Writes that fail again stay
// queued. Returns the number of writes that went through.
func (s *Synchronizer) Flush(ctx context.Context) int {
	s.mu.Lock()
	queued := make(map[string]pendingOp, len(s.pending))
	for id, op := range s.pending {
		queued[id] = op
	}
	s.mu.Unlock()

	flushed := 0
	for id, op := range queued {
		var err error
		if op.deleted {
			err = s.remote.Delete(ctx, id)
		} else {
			err = s.remote.Save(ctx, op.record)
		}
		if err != nil {
			s.logger.Printf("retry %s failed: %v", id, err)
			continue
		}
		s.dequeueSeq(id, op.seq)
		flushed++
	}

	if flushed > 0 {
		s.logger.Printf("flushed %d pending writes", flushed)
	}
	return flushed
}

// Background wraps a Synchronizer so each persistence call runs detached
// in its own goroutine. The optimistic mutation returns immediately; the
// write outlives the caller's context.
type Background struct {
	Sync *Synchronizer
}

func (b Background) Save(ctx context.Context, w watchlist.Watchlist) {
	go b.Sync.Save(context.WithoutCancel(ctx), w)
}

func (b Background) Delete(ctx context.Context, id string) {
	go b.Sync.Delete(context.WithoutCancel(ctx), id)
}

func (s *Synchronizer) enqueue(id string, op pendingOp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	op.seq = s.seq
	s.pending[id] = op
}

func (s *Synchronizer) dequeue(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// dequeueSeq drops the queued op only when it is still the one identified
// by seq. A write enqueued after the retry snapshot stays queued.
func (s *Synchronizer) dequeueSeq(id string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op, ok := s.pending[id]; ok && op.seq == seq {
		delete(s.pending, id)
	}
}
