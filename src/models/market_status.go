package models

// Market status event values emitted on open/close edges.
const (
	MarketOpened = "opened"
	MarketClosed = "closed"
)

// MMarketStatus is the clock's status snapshot.
type MMarketStatus struct {
	IsOpen             bool    `json:"is_open"`
	IsTradingDay       bool    `json:"is_trading_day"`
	IsWithinHours      bool    `json:"is_within_hours"`
	CurrentTime        string  `json:"current_time_npt"`
	TradingHours       string  `json:"trading_hours"`
	TradingDays        string  `json:"trading_days"`
	ForceOpen          bool    `json:"force_open"`
	TimeToCloseMinutes float64 `json:"time_to_close_minutes,omitempty"`
	NextOpen           string  `json:"next_open,omitempty"`
}

// MMarketStatusEvent is emitted only on an open/close transition,
// never on steady state.
type MMarketStatusEvent struct {
	Status  string        `json:"status"` // "opened" or "closed"
	Details MMarketStatus `json:"details"`
}
