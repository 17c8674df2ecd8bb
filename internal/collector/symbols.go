package collector

import "WealthPulse/internal/model"

// DefaultEquities are the NSE large caps tracked when a request names none.
var DefaultEquities = []string{
	"RELIANCE", "TCS", "HDFCBANK", "INFY", "HINDUNILVR",
	"ITC", "SBIN", "BHARTIARTL", "KOTAKBANK", "LT",
}

// DefaultIndices are the benchmark indices, keyed by their internal names.
var DefaultIndices = []string{"NIFTY", "SENSEX", "BANKNIFTY", "MIDCAP", "IT"}

// DefaultMetals are the gold purities served by the gold dataset.
var DefaultMetals = []string{SymbolGold24K, SymbolGold22K, SymbolGold18K}

// DefaultSymbols returns the symbol list for a dataset. Funds have no
// built-in list; their scheme codes come from configuration.
func DefaultSymbols(dataset model.Dataset, fundCodes []string) []string {
	var src []string
	switch dataset {
	case model.DatasetEquities:
		src = DefaultEquities
	case model.DatasetIndices:
		src = DefaultIndices
	case model.DatasetGold:
		src = DefaultMetals
	case model.DatasetFunds:
		src = fundCodes
	}
	return model.NormalizeSymbols(src)
}
