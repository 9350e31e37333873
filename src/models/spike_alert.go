package models

import "time"

// Alert type / direction values used by the spike detector.
const (
	AlertTypePrice  = "price"
	AlertTypeVolume = "volume"

	DirectionUp   = "up"
	DirectionDown = "down"
)

// MSpikeAlert is a detected spike event. Immutable once created.
type MSpikeAlert struct {
	Symbol         string  `json:"symbol"`
	AlertType      string  `json:"alert_type"` // "price" or "volume"
	Direction      string  `json:"direction"`  // "up" or "down"
	Magnitude      float64 `json:"magnitude"`  // pct change or volume multiplier
	CurrentValue   float64 `json:"current_value"`
	Threshold      float64 `json:"threshold"`
	ReferenceValue float64 `json:"reference_value"`
	Timestamp      string  `json:"timestamp"` // RFC3339
}

// NewAlertTimestamp returns the timestamp format used on alerts.
func NewAlertTimestamp() string {
	return time.Now().Format(time.RFC3339)
}

// MTriggeredAlert pairs a fired alert with the subscribing user.
type MTriggeredAlert struct {
	UserID string      `json:"user_id"`
	Alert  MSpikeAlert `json:"alert"`
}
