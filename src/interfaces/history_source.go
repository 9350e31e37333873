package interfaces

import "nepse-data-server/src/models"

// -----------------------------------------------------------------------------
// IHistorySource is the historical OHLCV store (the stock registry).
// -----------------------------------------------------------------------------

type IHistorySource interface {

	// -----------------------------------------------------------------------------

	// DailyBars returns up to `days` most recent daily bars, oldest first.
	DailyBars(symbol string, days int) []models.MHistoricalDay

	// -----------------------------------------------------------------------------

	// AverageVolume returns the mean trading volume over the last `days` days,
	// or 0 when no history exists.
	AverageVolume(symbol string, days int) float64

	// -----------------------------------------------------------------------------

	// Volatility returns the population std dev of daily returns over the last
	// `days` days (default 0.02 when history is too short).
	Volatility(symbol string, days int) float64

	// -----------------------------------------------------------------------------

	// StockInfo returns company metadata for a symbol.
	StockInfo(symbol string) (models.MStockInfo, bool)

	// -----------------------------------------------------------------------------

	// AllSymbols lists every symbol that has price history on disk.
	AllSymbols() []string
}
