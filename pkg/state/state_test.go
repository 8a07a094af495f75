package state

import (
	"context"
	"sync"
	"testing"

	"github.com/CGeorges/tradingboard/pkg/watchlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPersister captures fire-and-forget persistence calls.
type recordingPersister struct {
	mu      sync.Mutex
	saved   []watchlist.Watchlist
	deleted []string
}

func (p *recordingPersister) Save(_ context.Context, w watchlist.Watchlist) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, w)
}

func (p *recordingPersister) Delete(_ context.Context, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
}

func (p *recordingPersister) lastSaved() (watchlist.Watchlist, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saved) == 0 {
		return watchlist.Watchlist{}, false
	}
	return p.saved[len(p.saved)-1], true
}

func seeded(t *testing.T) (*Store, *recordingPersister) {
	t.Helper()
	p := &recordingPersister{}
	s := NewStore(p)
	s.Load([]watchlist.Watchlist{
		{ID: "w1", Name: "Tech", Symbols: []string{"AAPL", "MSFT"}, PinnedSymbols: []string{"AAPL"}},
		{ID: "w2", Name: "Energy", Symbols: []string{"XOM"}},
		{ID: "sys", Name: "System", IsDefault: true},
	})
	return s, p
}

func TestLoadSelectsFirstAsActive(t *testing.T) {
	s, _ := seeded(t)
	assert.Equal(t, "w1", s.Active())

	// Reloading keeps an already valid selection.
	require.True(t, s.SetActive("w2"))
	s.Load(s.Watchlists())
	assert.Equal(t, "w2", s.Active())
}

func TestSetActiveRequiresPresentID(t *testing.T) {
	s, _ := seeded(t)

	assert.False(t, s.SetActive("ghost"))
	assert.Equal(t, "w1", s.Active())

	assert.True(t, s.SetActive(""))
	assert.Equal(t, "", s.Active())
}

func TestRemoveEligibility(t *testing.T) {
	s, p := seeded(t)
	ctx := context.Background()

	assert.False(t, s.Remove(ctx, "sys"), "system defaults are not deletable")
	assert.True(t, s.Remove(ctx, "w2"))
	assert.True(t, s.Remove(ctx, "w1"))
	assert.False(t, s.Remove(ctx, "sys"), "the last watchlist is not deletable")

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, []string{"w2", "w1"}, p.deleted)
}

func TestRemoveActiveClearsSelection(t *testing.T) {
	s, _ := seeded(t)
	require.Equal(t, "w1", s.Active())

	require.True(t, s.Remove(context.Background(), "w1"))
	assert.Equal(t, "", s.Active())
}

func TestAddSymbolDeduplicates(t *testing.T) {
	s, p := seeded(t)
	ctx := context.Background()

	assert.True(t, s.AddSymbol(ctx, "w1", "TSLA"))
	assert.False(t, s.AddSymbol(ctx, "w1", "TSLA"), "duplicate add is a no-op")

	w, _ := s.Get("w1")
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, w.Symbols)

	saved, ok := p.lastSaved()
	require.True(t, ok)
	assert.Equal(t, "w1", saved.ID)
}

func TestRemoveSymbolAlsoUnpins(t *testing.T) {
	s, _ := seeded(t)

	require.True(t, s.RemoveSymbol(context.Background(), "w1", "AAPL"))
	w, _ := s.Get("w1")
	assert.Equal(t, []string{"MSFT"}, w.Symbols)
	assert.Empty(t, w.PinnedSymbols)
}

func TestPinUnpinIdempotent(t *testing.T) {
	s, _ := seeded(t)
	ctx := context.Background()

	assert.True(t, s.Pin(ctx, "w1", "MSFT"))
	assert.False(t, s.Pin(ctx, "w1", "MSFT"), "pinning twice is a no-op")
	w, _ := s.Get("w1")
	assert.Equal(t, []string{"AAPL", "MSFT"}, w.PinnedSymbols)

	assert.True(t, s.Unpin(ctx, "w1", "MSFT"))
	assert.False(t, s.Unpin(ctx, "w1", "MSFT"), "unpinning an unpinned symbol is a no-op")
	w, _ = s.Get("w1")
	assert.Equal(t, []string{"AAPL"}, w.PinnedSymbols)
}

func TestMoveSymbolCopies(t *testing.T) {
	s, p := seeded(t)
	ctx := context.Background()

	require.True(t, s.MoveSymbol(ctx, "w1", "w2", "AAPL"))

	src, _ := s.Get("w1")
	assert.Contains(t, src.Symbols, "AAPL", "move is a copy, the source keeps the symbol")

	dst, _ := s.Get("w2")
	assert.Equal(t, []string{"XOM", "AAPL"}, dst.Symbols)
	assert.Equal(t, []string{"AAPL"}, dst.PinnedSymbols, "pinned in source arrives pinned")

	saved, ok := p.lastSaved()
	require.True(t, ok)
	assert.Equal(t, "w2", saved.ID, "only the destination is persisted")

	// Moving it again changes nothing.
	assert.False(t, s.MoveSymbol(ctx, "w1", "w2", "AAPL"))
}

func TestDuplicateIsIndependent(t *testing.T) {
	s, _ := seeded(t)
	ctx := context.Background()

	dup, ok := s.Duplicate(ctx, "w1", "Tech Copy")
	require.True(t, ok)
	assert.NotEqual(t, "w1", dup.ID)
	assert.NotEmpty(t, dup.ID)
	assert.Equal(t, "Tech Copy", dup.Name)
	assert.Equal(t, []string{"AAPL", "MSFT"}, dup.Symbols)
	assert.Equal(t, []string{"AAPL"}, dup.PinnedSymbols)
	assert.False(t, dup.IsDefault)

	// Mutating the duplicate leaves the original alone.
	require.True(t, s.RemoveSymbol(ctx, dup.ID, "AAPL"))
	orig, _ := s.Get("w1")
	assert.Equal(t, []string{"AAPL", "MSFT"}, orig.Symbols)
	assert.Equal(t, []string{"AAPL"}, orig.PinnedSymbols)
}

func TestRenameRejectsEmpty(t *testing.T) {
	s, _ := seeded(t)
	assert.False(t, s.Rename(context.Background(), "w1", ""))
	assert.True(t, s.Rename(context.Background(), "w1", "Big Tech"))
	w, _ := s.Get("w1")
	assert.Equal(t, "Big Tech", w.Name)
}

func TestSubscribersSeeEveryMutation(t *testing.T) {
	s, _ := seeded(t)

	var events int
	var lastActive string
	s.Subscribe(func(lists []watchlist.Watchlist, active string) {
		events++
		lastActive = active
	})

	s.AddSymbol(context.Background(), "w1", "NVDA")
	s.SetActive("w2")
	assert.Equal(t, 2, events)
	assert.Equal(t, "w2", lastActive)
}

func TestMutationStampsUpdatedAt(t *testing.T) {
	s, _ := seeded(t)

	before, _ := s.Get("w1")
	require.True(t, s.AddSymbol(context.Background(), "w1", "NVDA"))
	after, _ := s.Get("w1")
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))
	assert.True(t, after.UpdatedAt.After(after.CreatedAt) || after.CreatedAt.IsZero())
}
