package registry

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"nepse-data-server/src/helpers"
	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// StockRegistry loads real NEPSE data from the data directory.
//
// Company metadata comes from <dir>/company_list.csv and per-symbol price
// history from <dir>/price_history/<symbol>_price_history.csv. The CSVs are
// exported newest-first with comma-grouped numbers ("1,129.80"); the Ltp
// column is the close and Qty the volume.
// -----------------------------------------------------------------------------

const priceHistorySuffix = "_price_history.csv"

const defaultVolatility = 0.02

type StockRegistry struct {
	Config *models.MConfig
	Logger *logger.Logger

	mu         sync.RWMutex
	companies  map[string]models.MStockInfo
	priceCache map[string][]models.MHistoricalDay // chronological, oldest first
}

// -----------------------------------------------------------------------------

func NewStockRegistry(cfg *models.MConfig, log *logger.Logger) (*StockRegistry, error) {
	r := &StockRegistry{
		Config:     cfg,
		Logger:     log,
		companies:  make(map[string]models.MStockInfo),
		priceCache: make(map[string][]models.MHistoricalDay),
	}

	if _, err := os.Stat(cfg.Data.Dir); err != nil {
		return nil, &helpers.ConfigurationError{DataServerError: helpers.DataServerError{
			Message: fmt.Sprintf("data directory '%s' not accessible", cfg.Data.Dir),
			Cause:   err,
		}}
	}

	r.loadCompanyList()
	return r, nil
}

// -----------------------------------------------------------------------------

// parseNumber parses a number string that may contain commas (e.g. "1,129.80").
func parseNumber(value string) float64 {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if value == "" || value == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

// -----------------------------------------------------------------------------

func (r *StockRegistry) loadCompanyList() {
	path := filepath.Join(r.Config.Data.Dir, "company_list.csv")

	rows, header, err := readCSV(path)
	if err != nil {
		r.Logger.Warning("Company list not loaded from %s: %v", path, err)
		return
	}

	for _, row := range rows {
		symbol := strings.ToUpper(strings.TrimSpace(field(header, row, "symbol", "Symbol")))
		if symbol == "" {
			continue
		}
		r.companies[symbol] = models.MStockInfo{
			Symbol: symbol,
			Name:   strings.TrimSpace(field(header, row, "Company", "Company_text", "name")),
			Sector: strings.TrimSpace(field(header, row, "sector", "Sector")),
			LTP:    parseNumber(field(header, row, "LTP", "Ltp")),
		}
	}

	r.Logger.Info("Loaded %d companies from company_list.csv", len(r.companies))
}

// -----------------------------------------------------------------------------

// readCSV returns all data rows plus a header-name -> column-index map.
func readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // NEPSE exports are not always rectangular

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty CSV: %s", path)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.TrimSpace(name)] = i
	}
	return records[1:], header, nil
}

// -----------------------------------------------------------------------------

// field returns the first matching column from a row, or "".
func field(header map[string]int, row []string, names ...string) string {
	for _, name := range names {
		if idx, ok := header[name]; ok && idx < len(row) {
			return row[idx]
		}
	}
	return ""
}

// -----------------------------------------------------------------------------

// priceFiles scans the price_history directory for available CSV files.
func (r *StockRegistry) priceFiles() map[string]string {
	dir := filepath.Join(r.Config.Data.Dir, "price_history")
	files := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err != nil {
		r.Logger.Warning("Price history directory not found: %s", dir)
		return files
	}

	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, priceHistorySuffix) {
			continue
		}
		// nabil_price_history.csv -> NABIL
		symbol := strings.ToUpper(strings.TrimSuffix(name, priceHistorySuffix))
		files[symbol] = filepath.Join(dir, name)
	}
	return files
}

// -----------------------------------------------------------------------------

// loadHistory loads and caches the full chronological history for a symbol.
func (r *StockRegistry) loadHistory(symbol string) []models.MHistoricalDay {
	symbol = strings.ToUpper(symbol)

	r.mu.RLock()
	cached, ok := r.priceCache[symbol]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	path, ok := r.priceFiles()[symbol]
	if !ok {
		return nil
	}

	rows, header, err := readCSV(path)
	if err != nil {
		r.Logger.Error("Error loading price history for %s: %v", symbol, err)
		return nil
	}

	days := make([]models.MHistoricalDay, 0, len(rows))
	for _, row := range rows {
		day := models.MHistoricalDay{
			Date:      strings.TrimSpace(field(header, row, "Date")),
			Open:      parseNumber(field(header, row, "Open")),
			High:      parseNumber(field(header, row, "High")),
			Low:       parseNumber(field(header, row, "Low")),
			Close:     parseNumber(field(header, row, "Ltp", "Close")),
			Volume:    int64(parseNumber(field(header, row, "Qty", "Volume"))),
			Turnover:  parseNumber(field(header, row, "Turnover")),
			ChangePct: parseNumber(field(header, row, "% Change")),
		}
		if day.Date == "" {
			continue
		}
		days = append(days, day)
	}

	// CSV is newest first; flip to chronological order.
	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}

	r.mu.Lock()
	r.priceCache[symbol] = days
	r.mu.Unlock()

	return days
}

// -----------------------------------------------------------------------------

// DailyBars returns up to `days` most recent bars, oldest first.
// days <= 0 returns the full history.
func (r *StockRegistry) DailyBars(symbol string, days int) []models.MHistoricalDay {
	history := r.loadHistory(symbol)
	if days <= 0 || len(history) <= days {
		return history
	}
	return history[len(history)-days:]
}

// -----------------------------------------------------------------------------

// AverageVolume returns the mean volume over the last `days` days, skipping
// zero-volume bars. Returns 0 when no usable history exists.
func (r *StockRegistry) AverageVolume(symbol string, days int) float64 {
	volumes := []float64{}
	for _, d := range r.DailyBars(symbol, days) {
		if d.Volume > 0 {
			volumes = append(volumes, float64(d.Volume))
		}
	}
	mean, _ := MeanStd(volumes)
	return mean
}

// -----------------------------------------------------------------------------

// Volatility returns the population std dev of daily close-to-close returns.
func (r *StockRegistry) Volatility(symbol string, days int) float64 {
	history := r.DailyBars(symbol, days+1)
	if len(history) < 2 {
		return defaultVolatility
	}

	returns := []float64{}
	for i := 1; i < len(history); i++ {
		if history[i-1].Close > 0 {
			returns = append(returns, (history[i].Close-history[i-1].Close)/history[i-1].Close)
		}
	}
	if len(returns) == 0 {
		return defaultVolatility
	}

	_, std := MeanStd(returns)
	return std
}

// -----------------------------------------------------------------------------

// LatestClose returns the most recent closing price, falling back to the
// company-list LTP when no history exists.
func (r *StockRegistry) LatestClose(symbol string) (float64, bool) {
	if history := r.DailyBars(symbol, 1); len(history) > 0 {
		return history[len(history)-1].Close, true
	}

	if info, ok := r.StockInfo(symbol); ok && info.LTP > 0 {
		return info.LTP, true
	}
	return 0, false
}

// -----------------------------------------------------------------------------

// StockInfo returns company metadata for a symbol.
func (r *StockRegistry) StockInfo(symbol string) (models.MStockInfo, bool) {
	symbol = strings.ToUpper(symbol)

	r.mu.RLock()
	info, ok := r.companies[symbol]
	r.mu.RUnlock()
	if ok {
		return info, true
	}

	// Fall back to the price files: symbol exists but has no metadata row.
	if _, exists := r.priceFiles()[symbol]; exists {
		return models.MStockInfo{Symbol: symbol, Name: symbol, Sector: "Unknown"}, true
	}
	return models.MStockInfo{}, false
}

// -----------------------------------------------------------------------------

// AllSymbols lists every symbol that has price history on disk, sorted.
func (r *StockRegistry) AllSymbols() []string {
	files := r.priceFiles()
	symbols := make([]string, 0, len(files))
	for sym := range files {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// -----------------------------------------------------------------------------

// TrackedSymbols filters the configured default symbols down to those that
// actually have price history available.
func (r *StockRegistry) TrackedSymbols() []string {
	available := make(map[string]bool)
	for _, s := range r.AllSymbols() {
		available[s] = true
	}

	tracked := []string{}
	for _, s := range r.Config.Data.Symbols {
		s = strings.ToUpper(s)
		if available[s] {
			tracked = append(tracked, s)
		}
	}
	return tracked
}

// -----------------------------------------------------------------------------

// Search matches symbols by query (symbol or company name substring) and
// optional sector filter. Results are capped at `limit`.
func (r *StockRegistry) Search(query, sector string, limit int) []models.MStockInfo {
	query = strings.ToUpper(strings.TrimSpace(query))
	sector = strings.TrimSpace(sector)

	results := []models.MStockInfo{}
	for _, symbol := range r.AllSymbols() {
		info, _ := r.StockInfo(symbol)

		if query != "" && !strings.Contains(symbol, query) &&
			!strings.Contains(strings.ToUpper(info.Name), query) {
			continue
		}
		if sector != "" && !strings.Contains(strings.ToLower(info.Sector), strings.ToLower(sector)) {
			continue
		}

		results = append(results, info)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}
