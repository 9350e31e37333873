package interfaces

import "nepse-data-server/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the tick/alert archive.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveTicksBulk inserts a batch of generated tick points.
	SaveTicksBulk(points []models.MTickPoint) error

	// -----------------------------------------------------------------------------

	// SaveAlerts inserts triggered alerts for auditing.
	SaveAlerts(alerts []models.MTriggeredAlert) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
