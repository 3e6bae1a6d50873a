package advisor

// MaxWatchlist caps the number of symbols considered per user.
const MaxWatchlist = 50

// CoreSymbols is analysed for every user.
var CoreSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "JPM",
	"JNJ", "V", "PG", "UNH", "HD", "MA", "BAC", "XOM", "PFE", "CSCO",
}

// SectorSymbols maps a preferred sector name to the symbols it adds.
var SectorSymbols = map[string][]string{
	"Technology": {"AAPL", "MSFT", "GOOGL", "META", "NVDA", "ADBE", "CRM", "NFLX"},
	"Healthcare": {"JNJ", "PFE", "UNH", "ABT", "MRK", "MDT"},
	"Finance":    {"JPM", "BAC", "WFC", "GS", "MS", "C", "AXP"},
	"Consumer":   {"AMZN", "HD", "MCD", "NKE", "SBUX", "LOW", "TGT"},
	"Energy":     {"XOM", "CVX", "COP", "EOG", "SLB"},
}

// Watchlist returns the core symbols followed by those of each preferred
// sector, in first-seen order without duplicates. Unknown sectors are ignored.
func Watchlist(preferredSectors []string) []string {
	seen := make(map[string]bool, MaxWatchlist)
	out := make([]string, 0, MaxWatchlist)
	add := func(symbols []string) {
		for _, s := range symbols {
			if len(out) == MaxWatchlist {
				return
			}
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}

	add(CoreSymbols)
	for _, sector := range preferredSectors {
		add(SectorSymbols[sector])
	}
	return out
}
