package watchlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want Input
	}{
		{
			name: "trims id and name",
			data: map[string]any{"id": "  w1 ", "name": " Tech  "},
			want: Input{ID: "w1", Name: "Tech", Symbols: []string{}, PinnedSymbols: []string{}},
		},
		{
			name: "coerces non-array symbols to empty",
			data: map[string]any{"id": "w1", "name": "Tech", "symbols": "AAPL", "pinnedSymbols": 42},
			want: Input{ID: "w1", Name: "Tech", Symbols: []string{}, PinnedSymbols: []string{}},
		},
		{
			name: "keeps well-formed arrays in order",
			data: map[string]any{
				"id": "w1", "name": "Tech",
				"symbols":       []any{"AAPL", "MSFT"},
				"pinnedSymbols": []any{"AAPL"},
			},
			want: Input{ID: "w1", Name: "Tech", Symbols: []string{"AAPL", "MSFT"}, PinnedSymbols: []string{"AAPL"}},
		},
		{
			name: "coerces isDefault to bool",
			data: map[string]any{"id": "w1", "name": "Tech", "isDefault": "yes"},
			want: Input{ID: "w1", Name: "Tech", Symbols: []string{}, PinnedSymbols: []string{}, IsDefault: false},
		},
		{
			name: "missing fields become zero values",
			data: map[string]any{},
			want: Input{Symbols: []string{}, PinnedSymbols: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeInput(tt.data)
			assert.Equal(t, tt.want.ID, got.ID)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.Symbols, got.Symbols)
			assert.Equal(t, tt.want.PinnedSymbols, got.PinnedSymbols)
			assert.Equal(t, tt.want.IsDefault, got.IsDefault)
		})
	}
}

func TestSanitizeInputTracksPresence(t *testing.T) {
	in := SanitizeInput(map[string]any{"name": "X", "symbols": []any{"AAPL"}})
	assert.True(t, in.Present["name"])
	assert.True(t, in.Present["symbols"])
	assert.False(t, in.Present["pinnedSymbols"])
	assert.False(t, in.Present["isDefault"])
	assert.True(t, in.HasUpdates())

	empty := SanitizeInput(map[string]any{})
	assert.False(t, empty.HasUpdates())
}

func TestRowRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	w := Watchlist{
		ID:            "w1",
		Name:          "Tech",
		Symbols:       []string{"AAPL", "MSFT"},
		PinnedSymbols: []string{"AAPL"},
		CreatedAt:     created,
		UpdatedAt:     created.Add(time.Hour),
		IsDefault:     true,
	}

	got := FromRow(ToRow(w))
	assert.Equal(t, w, got)
}

func TestToRowDefaults(t *testing.T) {
	r := ToRow(Watchlist{ID: "w1", Name: "Tech"})
	assert.Equal(t, "[]", r.SymbolsJSON)
	assert.Equal(t, "[]", r.PinnedJSON)
	require.False(t, r.CreatedAt.IsZero())
	assert.Equal(t, r.CreatedAt, r.UpdatedAt)
}

func TestFromRowMalformedColumns(t *testing.T) {
	w := FromRow(Row{ID: "w1", Name: "Tech", SymbolsJSON: "not json", PinnedJSON: ""})
	assert.Equal(t, []string{}, w.Symbols)
	assert.Equal(t, []string{}, w.PinnedSymbols)
	assert.False(t, w.IsDefault)
}

func TestColumnForField(t *testing.T) {
	assert.Equal(t, "name", ColumnForField("name"))
	assert.Equal(t, "symbols", ColumnForField("symbols"))
	assert.Equal(t, "pinned_symbols", ColumnForField("pinnedSymbols"))
	assert.Equal(t, "is_default", ColumnForField("isDefault"))
}

func TestDisplayOrder(t *testing.T) {
	w := Watchlist{
		Symbols:       []string{"GOOGL", "AAPL", "MSFT", "TSLA"},
		PinnedSymbols: []string{"TSLA", "AAPL"},
	}
	assert.Equal(t, []string{"TSLA", "AAPL", "GOOGL", "MSFT"}, w.DisplayOrder())
}

func TestCloneIsIndependent(t *testing.T) {
	w := Watchlist{ID: "w1", Symbols: []string{"AAPL"}, PinnedSymbols: []string{"AAPL"}}
	c := w.Clone()
	c.Symbols[0] = "MSFT"
	c.PinnedSymbols = append(c.PinnedSymbols, "MSFT")
	assert.Equal(t, []string{"AAPL"}, w.Symbols)
	assert.Equal(t, []string{"AAPL"}, w.PinnedSymbols)
}

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	require.Len(t, defaults, 2)
	assert.Equal(t, "default", defaults[0].ID)
	assert.Equal(t, "volatility", defaults[1].ID)
	for _, d := range defaults {
		assert.True(t, d.IsDefault)
		assert.NotEmpty(t, d.Name)
	}
	assert.Equal(t, []string{"AAPL"}, defaults[0].PinnedSymbols)
}
