package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

const nabilHistory = `Date,Open,High,Low,Ltp,% Change,Qty,Turnover
2025-11-20,510.00,515.00,505.00,"1,129.80",0.5,"18,121","9,178,167.3"
2025-11-19,500.00,512.00,498.00,510.00,-0.2,12000,6120000
2025-11-18,495.00,505.00,490.00,501.00,1.1,8000,4008000
`

const companyList = `symbol,Company,sector,LTP
NABIL,Nabil Bank Limited,Commercial Bank,"1,129.80"
UPPER,Upper Tamakoshi Hydropower,Hydropower,250.00
`

func newTestRegistry(t *testing.T) *StockRegistry {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "company_list.csv"), []byte(companyList), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "price_history"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "price_history", "nabil_price_history.csv"), []byte(nabilHistory), 0644))

	cfg := &models.MConfig{
		Data: models.MDataConfig{Dir: dir, Symbols: []string{"NABIL", "MISSING"}},
	}
	r, err := NewStockRegistry(cfg, logger.NewLogger("INFO", "test"))
	require.NoError(t, err)
	return r
}

// -----------------------------------------------------------------------------

func TestDailyBarsChronologicalOrder(t *testing.T) {
	r := newTestRegistry(t)

	bars := r.DailyBars("NABIL", 50)
	require.Len(t, bars, 3)
	assert.Equal(t, "2025-11-18", bars[0].Date)
	assert.Equal(t, "2025-11-20", bars[2].Date)

	// comma-grouped numbers are parsed
	assert.InDelta(t, 1129.80, bars[2].Close, 1e-9)
	assert.Equal(t, int64(18121), bars[2].Volume)
}

func TestDailyBarsLimitTakesMostRecent(t *testing.T) {
	r := newTestRegistry(t)

	bars := r.DailyBars("nabil", 2) // case-insensitive
	require.Len(t, bars, 2)
	assert.Equal(t, "2025-11-19", bars[0].Date)
	assert.Equal(t, "2025-11-20", bars[1].Date)
}

func TestDailyBarsUnknownSymbol(t *testing.T) {
	r := newTestRegistry(t)
	assert.Empty(t, r.DailyBars("NOPE", 10))
}

func TestAverageVolume(t *testing.T) {
	r := newTestRegistry(t)

	avg := r.AverageVolume("NABIL", 20)
	assert.InDelta(t, (18121.0+12000.0+8000.0)/3.0, avg, 1e-6)

	assert.Zero(t, r.AverageVolume("NOPE", 20))
}

func TestVolatilityDefaultsWithShortHistory(t *testing.T) {
	r := newTestRegistry(t)
	assert.Equal(t, defaultVolatility, r.Volatility("NOPE", 20))
	assert.Greater(t, r.Volatility("NABIL", 20), 0.0)
}

func TestStockInfoAndFallback(t *testing.T) {
	r := newTestRegistry(t)

	info, ok := r.StockInfo("NABIL")
	require.True(t, ok)
	assert.Equal(t, "Nabil Bank Limited", info.Name)
	assert.Equal(t, "Commercial Bank", info.Sector)

	// UPPER is in the company list but has no price file
	info, ok = r.StockInfo("UPPER")
	require.True(t, ok)
	assert.Equal(t, "Hydropower", info.Sector)

	_, ok = r.StockInfo("NOPE")
	assert.False(t, ok)
}

func TestTrackedSymbolsFiltersMissingHistory(t *testing.T) {
	r := newTestRegistry(t)
	assert.Equal(t, []string{"NABIL"}, r.TrackedSymbols())
}

func TestSearch(t *testing.T) {
	r := newTestRegistry(t)

	results := r.Search("nab", "", 50)
	require.Len(t, results, 1)
	assert.Equal(t, "NABIL", results[0].Symbol)

	assert.Empty(t, r.Search("nab", "Hydropower", 50))
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.0, std, 1e-9)

	mean, std = MeanStd(nil)
	assert.Zero(t, mean)
	assert.Zero(t, std)

	mean, std = MeanStd([]float64{3})
	assert.Equal(t, 3.0, mean)
	assert.Zero(t, std)
}
