package interfaces

import "nepse-data-server/src/models"

// -----------------------------------------------------------------------------
// IAlertChecker evaluates a tick against every active subscription.
// -----------------------------------------------------------------------------

type IAlertChecker interface {

	// -----------------------------------------------------------------------------

	// CheckTick returns one triggered alert per (subscriber, alert type) whose
	// thresholds the tick crosses and whose cooldown has elapsed.
	CheckTick(tick models.MTick) []models.MTriggeredAlert
}
