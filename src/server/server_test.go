package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nepse-data-server/src/detection"
	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
	"nepse-data-server/src/registry"
	"nepse-data-server/src/utils"
)

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

type stubProvider struct {
	ticks map[string]models.MTick
}

func (p *stubProvider) GetLatestTick(symbol string) (models.MTick, bool) {
	t, ok := p.ticks[symbol]
	return t, ok
}

func (p *stubProvider) GetHistory(symbol string, days int) []models.MHistoricalDay {
	if _, ok := p.ticks[symbol]; !ok {
		return nil
	}
	return []models.MHistoricalDay{
		{Date: "2025-01-01", Open: 1240, High: 1260, Low: 1230, Close: 1250, Volume: 18000},
		{Date: "2025-01-02", Open: 1252, High: 1310, Low: 1248, Close: 1300, Volume: 25000},
	}
}

func (p *stubProvider) GetAllTicks() map[string]models.MTick { return p.ticks }

func (p *stubProvider) GenerateTick(symbol string) (models.MTick, error) {
	return p.ticks[symbol], nil
}

func (p *stubProvider) GetAvailableSymbols() []string {
	out := make([]string, 0, len(p.ticks))
	for s := range p.ticks {
		out = append(out, s)
	}
	return out
}

func (p *stubProvider) ResetSession() {}

func (p *stubProvider) Subscribe(symbol, id string, fn func(models.MTick)) {}

func (p *stubProvider) Unsubscribe(symbol, id string) {}

type stubClock struct {
	open bool
}

func (c *stubClock) IsMarketOpen() bool { return c.open }
func (c *stubClock) GetMarketStatus() models.MMarketStatus {
	return models.MMarketStatus{IsOpen: c.open, TradingHours: "11:00 - 15:00 NPT"}
}

// -----------------------------------------------------------------------------

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	companies := "symbol,Company,sector,LTP\n" +
		"NABIL,Nabil Bank Limited,Commercial Banks,\"1,250.00\"\n" +
		"UPPER,Upper Tamakoshi Hydropower,Hydro Power,245.00\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "company_list.csv"), []byte(companies), 0o644))

	histDir := filepath.Join(dir, "price_history")
	require.NoError(t, os.MkdirAll(histDir, 0o755))

	nabil := "Date,Open,High,Low,Ltp,% Change,Qty,Turnover\n" +
		"2025-01-02,\"1,252.00\",\"1,310.00\",\"1,248.00\",\"1,300.00\",4.00,\"25,000\",\"31,850,000\"\n" +
		"2025-01-01,\"1,240.00\",\"1,260.00\",\"1,230.00\",\"1,250.00\",0.81,\"18,000\",\"22,410,000\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(histDir, "nabil_price_history.csv"), []byte(nabil), 0o644))

	upper := "Date,Open,High,Low,Ltp,% Change,Qty,Turnover\n" +
		"2025-01-02,246.00,250.00,244.00,245.00,-0.41,\"5,000\",\"1,225,000\"\n" +
		"2025-01-01,244.00,248.00,242.00,246.00,0.82,\"4,000\",984000\n"
	require.NoError(t, os.WriteFile(filepath.Join(histDir, "upper_price_history.csv"), []byte(upper), 0o644))

	return dir
}

func nabilTick() models.MTick {
	return models.MTick{
		Symbol:    "NABIL",
		Name:      "Nabil Bank Limited",
		Sector:    "Commercial Banks",
		Price:     1300,
		Open:      1252,
		High:      1310,
		Low:       1248,
		Volume:    100000,
		Change:    50,
		ChangePct: 4.0,
		PrevClose: 1250,
		AvgVolume: 40000,
	}
}

func newTestServer(t *testing.T) *DataServer {
	t.Helper()

	cfg := &models.MConfig{
		Name:     "nepse-data-server",
		Host:     "127.0.0.1",
		Port:     5000,
		LogLevel: "ERROR",
		Data:     models.MDataConfig{Dir: writeFixtures(t), Symbols: []string{"NABIL"}},
		Alerts: models.MAlertConfig{
			PriceThresholdPct:         3.0,
			VolumeThresholdMultiplier: 2.0,
			CooldownSeconds:           300,
		},
	}
	log := logger.NewLogger("ERROR", "test")

	reg, err := registry.NewStockRegistry(cfg, log)
	require.NoError(t, err)

	provider := &stubProvider{ticks: map[string]models.MTick{"NABIL": nabilTick()}}
	alerts := detection.NewAlertManager(cfg, log)
	history := utils.NewTickHistory(100)
	history.Record(nabilTick())

	return NewDataServer(cfg, log, provider, reg, &stubClock{open: true}, alerts, history)
}

func doRequest(t *testing.T, s *DataServer, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	decoded := map[string]interface{}{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

// -----------------------------------------------------------------------------
// REST endpoints
// -----------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "nepse-data-server", body["service"])
}

func TestListStocksUsesLiveTicks(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/stocks", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, float64(1), body["count"])

	stocks := body["stocks"].([]interface{})
	first := stocks[0].(map[string]interface{})
	assert.Equal(t, "NABIL", first["symbol"])
	assert.Equal(t, 1300.0, first["price"])
	assert.Equal(t, 4.0, first["change_pct"])
}

func TestListStocksAllFallsBackToLTP(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/stocks?all=true", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, float64(2), body["count"])

	bySymbol := map[string]map[string]interface{}{}
	for _, raw := range body["stocks"].([]interface{}) {
		entry := raw.(map[string]interface{})
		bySymbol[entry["symbol"].(string)] = entry
	}

	// UPPER has no live tick; its price comes from the company list.
	require.Contains(t, bySymbol, "UPPER")
	assert.Equal(t, 245.0, bySymbol["UPPER"]["price"])
}

func TestGetStock(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/stocks/nabil", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "NABIL", body["symbol"])

	tick := body["tick"].(map[string]interface{})
	assert.Equal(t, 1300.0, tick["price"])

	w, _ = doRequest(t, s, http.MethodGet, "/api/stocks/NOPE", nil)
	assert.Equal(t, 404, w.Code)
}

func TestGetStockHistory(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/stocks/NABIL/history?days=10", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, float64(10), body["period_days"])
	assert.Equal(t, float64(2), body["count"])

	w, _ = doRequest(t, s, http.MethodGet, "/api/stocks/NOPE/history", nil)
	assert.Equal(t, 404, w.Code)
}

func TestGetStockTicks(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/stocks/NABIL/ticks?limit=10", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, float64(1), body["count"])
}

func TestGetStockAdvice(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/stocks/NABIL/advice", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "NABIL", body["symbol"])
	assert.Contains(t, []string{"buy", "sell", "watch", "hold"}, body["action"])
	assert.NotEmpty(t, body["reasons"])
}

func TestMarketStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/market/status", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, true, body["is_open"])
	assert.Equal(t, "11:00 - 15:00 NPT", body["trading_hours"])
}

func TestSearchStocks(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/api/stocks/search?q=nab", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, float64(1), body["count"])

	w, body = doRequest(t, s, http.MethodGet, "/api/stocks/search?sector=hydro", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, float64(1), body["count"])
}

// -----------------------------------------------------------------------------
// Alerts
// -----------------------------------------------------------------------------

func TestCheckAlertEndpoint(t *testing.T) {
	s := newTestServer(t)

	w, _ := doRequest(t, s, http.MethodPost, "/api/alerts/check", map[string]interface{}{})
	assert.Equal(t, 400, w.Code)

	w, body := doRequest(t, s, http.MethodPost, "/api/alerts/check",
		map[string]interface{}{"symbol": "NABIL"})
	require.Equal(t, 200, w.Code)
	// The fixture tick is +4.0% on 2.5x volume: both checks fire.
	assert.Equal(t, float64(2), body["alert_count"])

	w, body = doRequest(t, s, http.MethodPost, "/api/alerts/check",
		map[string]interface{}{"symbol": "NABIL", "price_threshold_pct": 5.0, "volume_threshold_multiplier": 3.0})
	require.Equal(t, 200, w.Code)
	assert.Equal(t, float64(0), body["alert_count"])

	w, _ = doRequest(t, s, http.MethodPost, "/api/alerts/check",
		map[string]interface{}{"symbol": "NOPE"})
	assert.Equal(t, 404, w.Code)
}

func TestSubscriptionCRUD(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodPost, "/api/alerts/subscriptions",
		map[string]interface{}{"user_id": "u1", "symbol": "NABIL", "price_threshold_pct": 4.0})
	require.Equal(t, 201, w.Code)
	assert.Equal(t, "NABIL", body["symbol"])
	assert.Equal(t, 4.0, body["price_threshold_pct"])

	w, body = doRequest(t, s, http.MethodGet, "/api/alerts/subscriptions?user_id=u1", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, float64(1), body["count"])

	w, body = doRequest(t, s, http.MethodDelete, "/api/alerts/subscriptions/NABIL?user_id=u1", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, true, body["removed"])

	w, body = doRequest(t, s, http.MethodDelete, "/api/alerts/subscriptions/NABIL?user_id=u1", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, false, body["removed"])
}

// -----------------------------------------------------------------------------
// Client filtering
// -----------------------------------------------------------------------------

func TestClientTickFiltering(t *testing.T) {
	s := newTestServer(t)

	client := &Client{
		hub:     s,
		send:    make(chan models.MServerMessage, 8),
		symbols: make(map[string]struct{}),
	}

	batch := map[string]models.MTick{
		"NABIL": nabilTick(),
		"UPPER": {Symbol: "UPPER", Price: 245},
	}
	msg := hubMessage{
		message: models.MServerMessage{Event: models.EventTickUpdate},
		ticks:   batch,
	}

	// No filter: full batch passes through untouched.
	out, ok := client.filter(msg)
	require.True(t, ok)
	assert.Equal(t, models.EventTickUpdate, out.Event)

	// Filter to UPPER only.
	client.addSymbols([]string{"upper"})
	out, ok = client.filter(msg)
	require.True(t, ok)
	payload := out.Payload.(map[string]interface{})
	ticks := payload["ticks"].(map[string]models.MTick)
	require.Len(t, ticks, 1)
	assert.Contains(t, ticks, "UPPER")

	// Filter with no overlap drops the message.
	client.removeSymbols([]string{"UPPER"})
	client.addSymbols([]string{"NHPC"})
	_, ok = client.filter(msg)
	assert.False(t, ok)

	// Non-tick messages always pass.
	status, ok := client.filter(hubMessage{message: models.MServerMessage{Event: models.EventMarketStatus}})
	require.True(t, ok)
	assert.Equal(t, models.EventMarketStatus, status.Event)
}
