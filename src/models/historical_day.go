package models

// MHistoricalDay is one real NEPSE trading day (OHLCV), loaded once from the
// price-history CSVs and never mutated afterwards.
type MHistoricalDay struct {
	Date      string  `json:"date"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"` // Ltp column = Last Traded Price
	Volume    int64   `json:"volume"`
	Turnover  float64 `json:"turnover"`
	ChangePct float64 `json:"change_pct"`
}
