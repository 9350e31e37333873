package models

// MTick is a point-in-time price/volume observation for one symbol.
//
// The simulator keeps one MTick per symbol as its mutable current state and
// emits value copies (with TickVolume and DayProgress filled in) on every
// generation call. Emitted copies are never mutated again.
type MTick struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Sector    string  `json:"sector"`
	Price     float64 `json:"price"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    int64   `json:"volume"` // cumulative session volume
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	PrevClose float64 `json:"prev_close"`

	AvgVolume  float64 `json:"avg_volume"`
	Volatility float64 `json:"volatility"`

	// Replay metadata
	ReplayDate      string `json:"replay_date"`
	ReplayDay       int    `json:"replay_day"`
	ReplayTotalDays int    `json:"replay_total_days"`

	// Per-generation fields, only set on emitted copies
	TickVolume  int64   `json:"tick_volume"`
	DayProgress float64 `json:"day_progress"` // 0..100

	Timestamp int64 `json:"timestamp"` // unix seconds
}

// RingBuffer indices and constants for the compact tick-history layout
const (
	RB_IDX_TIMESTAMP = 0
	RB_IDX_PRICE     = 1
	RB_IDX_VOLUME    = 2
	RB_IDX_CHANGE    = 3
	RB_IDX_PROGRESS  = 4
	RB_NUM_FEATURES  = 5
)

// MTickPoint is the reduced per-tick record kept in the in-memory history
// ring buffers and archived to storage.
type MTickPoint struct {
	Symbol      string  `json:"symbol"`
	Timestamp   int64   `json:"timestamp"`
	Price       float64 `json:"price"`
	TickVolume  int64   `json:"tick_volume"`
	ChangePct   float64 `json:"change_pct"`
	DayProgress float64 `json:"day_progress"`
}

// Point reduces a full tick to its history-buffer record.
func (t *MTick) Point() MTickPoint {
	return MTickPoint{
		Symbol:      t.Symbol,
		Timestamp:   t.Timestamp,
		Price:       t.Price,
		TickVolume:  t.TickVolume,
		ChangePct:   t.ChangePct,
		DayProgress: t.DayProgress,
	}
}
