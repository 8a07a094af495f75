package watchlist

import (
	"strings"
	"time"
)

// Watchlist is the wire representation of a named, ordered symbol list.
// Timestamps travel as RFC3339 strings; symbol order is display order.
type Watchlist struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Symbols       []string  `json:"symbols"`
	PinnedSymbols []string  `json:"pinnedSymbols"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	IsDefault     bool      `json:"isDefault"`
}

// Row is the persisted representation. Symbol arrays are stored as JSON
// text columns; the shadow fields hold the encoded form for sqlx.
type Row struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	SymbolsJSON string    `db:"symbols"`
	PinnedJSON  string    `db:"pinned_symbols"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	IsDefault   bool      `db:"is_default"`
}

// Clone returns a deep copy with independent symbol slices.
func (w Watchlist) Clone() Watchlist {
	c := w
	c.Symbols = append([]string(nil), w.Symbols...)
	c.PinnedSymbols = append([]string(nil), w.PinnedSymbols...)
	return c
}

// DisplayOrder returns the symbols in presentation order: pinned symbols
// first (in pin order), then the remaining symbols in stored order.
func (w Watchlist) DisplayOrder() []string {
	pinned := make(map[string]bool, len(w.PinnedSymbols))
	out := make([]string, 0, len(w.Symbols))
	for _, s := range w.PinnedSymbols {
		if !pinned[s] {
			pinned[s] = true
			out = append(out, s)
		}
	}
	for _, s := range w.Symbols {
		if !pinned[s] {
			out = append(out, s)
		}
	}
	return out
}

// Input is externally supplied watchlist data after sanitization.
// Present tracks which wire keys actually appeared in the request body,
// so partial updates touch only the supplied fields.
type Input struct {
	ID            string
	Name          string
	Symbols       []string
	PinnedSymbols []string
	IsDefault     bool
	Present       map[string]bool
}

// Updatable wire keys, in the order update statements apply them.
var UpdatableFields = []string{"name", "symbols", "pinnedSymbols", "isDefault"}

// columnForField maps wire keys to persisted column names.
var columnForField = map[string]string{
	"name":          "name",
	"symbols":       "symbols",
	"pinnedSymbols": "pinned_symbols",
	"isDefault":     "is_default",
}

// ColumnForField returns the persisted column name for a wire key.
// Unknown keys map to themselves, matching the wire convention.
func ColumnForField(field string) string {
	if col, ok := columnForField[field]; ok {
		return col
	}
	return field
}

// SanitizeInput normalizes loosely-typed request data. This is the single
// point where external input is coerced: id and name are trimmed strings,
// symbol arrays become empty slices when not array-shaped, and isDefault
// becomes a plain bool.
func SanitizeInput(data map[string]any) Input {
	in := Input{
		ID:            trimString(data["id"]),
		Name:          trimString(data["name"]),
		Symbols:       stringSlice(data["symbols"]),
		PinnedSymbols: stringSlice(data["pinnedSymbols"]),
		IsDefault:     boolValue(data["isDefault"]),
		Present:       make(map[string]bool, len(data)),
	}
	for _, key := range []string{"id", "name", "symbols", "pinnedSymbols", "isDefault"} {
		if _, ok := data[key]; ok {
			in.Present[key] = true
		}
	}
	return in
}

// HasUpdates reports whether at least one updatable field was supplied.
func (in Input) HasUpdates() bool {
	for _, f := range UpdatableFields {
		if in.Present[f] {
			return true
		}
	}
	return false
}

// FieldValue returns the sanitized value for a wire key.
func (in Input) FieldValue(field string) any {
	switch field {
	case "name":
		return in.Name
	case "symbols":
		return in.Symbols
	case "pinnedSymbols":
		return in.PinnedSymbols
	case "isDefault":
		return in.IsDefault
	}
	return nil
}

func trimString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}
