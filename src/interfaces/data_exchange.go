package interfaces

import "nepse-data-server/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defines the interface for pushing data to connected clients.
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// -----------------------------------------------------------------------------

	// BroadcastTicks pushes a tick batch to all connected clients.
	BroadcastTicks(ticks map[string]models.MTick)

	// -----------------------------------------------------------------------------

	// BroadcastAlert pushes one triggered alert.
	BroadcastAlert(userID string, alert models.MSpikeAlert)

	// -----------------------------------------------------------------------------

	// BroadcastMarketStatus pushes an open/close edge event.
	BroadcastMarketStatus(event models.MMarketStatusEvent)

	// -----------------------------------------------------------------------------

	// Start the server (blocking).
	Start() error

	// -----------------------------------------------------------------------------

	// Stop the server gracefully.
	Stop() error
}
