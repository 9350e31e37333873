package models

// MRecommendation is the advisory output for a symbol at the current tick.
type MRecommendation struct {
	Symbol     string             `json:"symbol"`
	Action     string             `json:"action"` // buy / sell / watch / hold
	Confidence float64            `json:"confidence"`
	RiskLevel  string             `json:"risk_level"` // low / medium / high
	Score      float64            `json:"score"`
	Reasons    []string           `json:"reasons"`
	Features   map[string]float64 `json:"features"`
}
