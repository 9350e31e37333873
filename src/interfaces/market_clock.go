package interfaces

import "nepse-data-server/src/models"

// -----------------------------------------------------------------------------
// IMarketClock answers "is the market open now" and exposes a status snapshot.
// -----------------------------------------------------------------------------

type IMarketClock interface {

	// -----------------------------------------------------------------------------

	// IsMarketOpen considers trading days, hours and the force-open override.
	IsMarketOpen() bool

	// -----------------------------------------------------------------------------

	// GetMarketStatus returns the full status snapshot.
	GetMarketStatus() models.MMarketStatus
}
