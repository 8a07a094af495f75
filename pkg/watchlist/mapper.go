package watchlist

import (
	"encoding/json"
	"time"
)

// ToRow converts a wire watchlist to its persisted form. Nil symbol
// slices become empty JSON arrays and zero timestamps default to now.
func ToRow(w Watchlist) Row {
	now := time.Now().UTC()
	created := w.CreatedAt
	if created.IsZero() {
		created = now
	}
	updated := w.UpdatedAt
	if updated.IsZero() {
		updated = now
	}
	return Row{
		ID:          w.ID,
		Name:        w.Name,
		SymbolsJSON: encodeSymbols(w.Symbols),
		PinnedJSON:  encodeSymbols(w.PinnedSymbols),
		CreatedAt:   created,
		UpdatedAt:   updated,
		IsDefault:   w.IsDefault,
	}
}

// FromRow converts a persisted row back to the wire form. Absent or
// malformed array columns decode to empty slices.
func FromRow(r Row) Watchlist {
	return Watchlist{
		ID:            r.ID,
		Name:          r.Name,
		Symbols:       decodeSymbols(r.SymbolsJSON),
		PinnedSymbols: decodeSymbols(r.PinnedJSON),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		IsDefault:     r.IsDefault,
	}
}

// FromRows maps a result set, preserving store order.
func FromRows(rows []Row) []Watchlist {
	out := make([]Watchlist, len(rows))
	for i, r := range rows {
		out[i] = FromRow(r)
	}
	return out
}

// EncodeSymbols renders a symbol slice in its persisted JSON form.
// Nil encodes as an empty array.
func EncodeSymbols(symbols []string) string {
	return encodeSymbols(symbols)
}

func encodeSymbols(symbols []string) string {
	if symbols == nil {
		symbols = []string{}
	}
	data, _ := json.Marshal(symbols)
	return string(data)
}

func decodeSymbols(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}
