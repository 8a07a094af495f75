package watchlist

import "time"

// Defaults returns the built-in watchlists used to seed a fresh store and
// as the read-only fallback when the remote store is unreachable.
func Defaults() []Watchlist {
	now := time.Now().UTC()
	return []Watchlist{
		{
			ID:            "default",
			Name:          "My Watchlist",
			Symbols:       []string{"AAPL", "MSFT", "GOOGL", "TSLA", "AMZN"},
			PinnedSymbols: []string{"AAPL"},
			CreatedAt:     now,
			UpdatedAt:     now,
			IsDefault:     true,
		},
		{
			ID:            "volatility",
			Name:          "High Volatility",
			Symbols:       []string{"GME", "AMC", "PLTR", "ROKU"},
			PinnedSymbols: []string{},
			CreatedAt:     now,
			UpdatedAt:     now,
			IsDefault:     true,
		},
	}
}
