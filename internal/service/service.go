// Package service orchestrates watchlist store operations. It owns the
// update-merge and existence-check logic and has no HTTP concerns; store
// errors pass through unchanged for the API layer to classify.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/CGeorges/tradingboard/internal/store"
	"github.com/CGeorges/tradingboard/pkg/watchlist"
)

// Service exposes watchlist operations over a Store.
type Service struct {
	store store.Store
}

// New creates a watchlist service.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// GetAll returns every watchlist in store order.
func (s *Service) GetAll(ctx context.Context) ([]watchlist.Watchlist, error) {
	rows, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return watchlist.FromRows(rows), nil
}

// GetByID returns a single watchlist or store.ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (*watchlist.Watchlist, error) {
	row, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	w := watchlist.FromRow(*row)
	return &w, nil
}

// Exists reports whether a watchlist with the given id is stored.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts a new watchlist with createdAt == updatedAt == now and
// returns the full created record including generated timestamps.
func (s *Service) Create(ctx context.Context, in watchlist.Input) (*watchlist.Watchlist, error) {
	now := time.Now().UTC()
	w := watchlist.Watchlist{
		ID:            in.ID,
		Name:          in.Name,
		Symbols:       in.Symbols,
		PinnedSymbols: in.PinnedSymbols,
		CreatedAt:     now,
		UpdatedAt:     now,
		IsDefault:     in.IsDefault,
	}
	if err := s.store.Create(ctx, watchlist.ToRow(w)); err != nil {
		return nil, err
	}
	return &w, nil
}

// Update applies only the supplied wire fields, translated to their
// persisted columns, and stamps a fresh updatedAt. The record is re-read
// after the write so any store-side normalization surfaces. Returns
// store.ErrNotFound without touching the row when id is absent.
func (s *Service) Update(ctx context.Context, id string, in watchlist.Input) (*watchlist.Watchlist, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}

	var patch store.Patch
	for _, field := range watchlist.UpdatableFields {
		if !in.Present[field] {
			continue
		}
		patch.Set(watchlist.ColumnForField(field), patchValue(field, in))
	}

	if err := s.store.Update(ctx, id, patch); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes a watchlist. False means nothing existed to remove.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.store.Delete(ctx, id)
}

// BulkSave replaces the entire watchlist universe with the supplied set
// in one atomic store transaction.
func (s *Service) BulkSave(ctx context.Context, lists []watchlist.Watchlist) error {
	rows := make([]watchlist.Row, len(lists))
	for i, w := range lists {
		rows[i] = watchlist.ToRow(w)
	}
	return s.store.BulkReplace(ctx, rows)
}

// patchValue converts a sanitized wire value to its persisted form.
// Symbol arrays persist as JSON text, matching the row encoding.
func patchValue(field string, in watchlist.Input) any {
	switch field {
	case "symbols", "pinnedSymbols":
		slice, _ := in.FieldValue(field).([]string)
		return watchlist.EncodeSymbols(slice)
	default:
		return in.FieldValue(field)
	}
}
