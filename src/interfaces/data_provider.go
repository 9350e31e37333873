package interfaces

import "nepse-data-server/src/models"

// -----------------------------------------------------------------------------
// IDataProvider is the contract every tick source must implement.
// The replay simulator is the only complete implementation today; the live
// NEPSE provider is a stub so the rest of the application never has to change
// when a real feed becomes available.
// -----------------------------------------------------------------------------

type IDataProvider interface {

	// -----------------------------------------------------------------------------

	// GetLatestTick returns the current state snapshot for a symbol.
	GetLatestTick(symbol string) (models.MTick, bool)

	// -----------------------------------------------------------------------------

	// GetHistory returns real daily OHLCV bars, oldest first.
	GetHistory(symbol string, days int) []models.MHistoricalDay

	// -----------------------------------------------------------------------------

	// GetAllTicks returns the latest tick for every tracked symbol.
	GetAllTicks() map[string]models.MTick

	// -----------------------------------------------------------------------------

	// GenerateTick produces the next tick for a symbol and updates internal state.
	GenerateTick(symbol string) (models.MTick, error)

	// -----------------------------------------------------------------------------

	// GetAvailableSymbols lists the symbols this provider can serve.
	GetAvailableSymbols() []string

	// -----------------------------------------------------------------------------

	// ResetSession advances every symbol to its next replay day; invoked by the
	// engine exactly once per closed->open edge.
	ResetSession()

	// -----------------------------------------------------------------------------

	// Subscribe registers a per-symbol tick observer. Observer failures are
	// isolated from generation and from other observers.
	Subscribe(symbol string, id string, fn func(models.MTick))

	// -----------------------------------------------------------------------------

	// Unsubscribe removes a previously registered observer by id.
	Unsubscribe(symbol string, id string)
}
