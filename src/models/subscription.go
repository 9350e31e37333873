package models

// MAlertSubscription is a user's alert configuration for one stock.
// At most one subscription exists per (user, symbol); adding again overwrites.
type MAlertSubscription struct {
	UserID                    string  `json:"user_id"`
	Symbol                    string  `json:"symbol"`
	PriceThresholdPct         float64 `json:"price_threshold_pct"`
	VolumeThresholdMultiplier float64 `json:"volume_threshold_multiplier"`
	Enabled                   bool    `json:"enabled"`
}
