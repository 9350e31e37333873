package models

// MStockInfo is company metadata from company_list.csv.
type MStockInfo struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Sector string  `json:"sector"`
	LTP    float64 `json:"ltp,omitempty"`
}
