package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"nepse-data-server/src/detection"
	"nepse-data-server/src/interfaces"
	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
	"nepse-data-server/src/registry"
	"nepse-data-server/src/utils"
)

// -----------------------------------------------------------------------------
// DataServer
// -----------------------------------------------------------------------------

type DataServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Provider interfaces.IDataProvider
	Registry *registry.StockRegistry
	Clock    interfaces.IMarketClock
	Alerts   *detection.AlertManager
	History  *utils.TickHistory

	engine  *gin.Engine
	httpSrv *http.Server

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan hubMessage // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDataServer(cfg *models.MConfig, log *logger.Logger, provider interfaces.IDataProvider,
	reg *registry.StockRegistry, clock interfaces.IMarketClock,
	alerts *detection.AlertManager, history *utils.TickHistory) *DataServer {

	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DataServer{
		Config:   cfg,
		Logger:   log,
		Provider: provider,
		Registry: reg,
		Clock:    clock,
		Alerts:   alerts,
		History:  history,
		engine:   gin.Default(),
		clients:  make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		// Queue size of 256 ensures we can handle bursts of updates
		broadcast:  make(chan hubMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DataServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/stocks", s.listStocks)
	s.engine.GET("/api/stocks/search", s.searchStocks)
	s.engine.GET("/api/stocks/:symbol", s.getStock)
	s.engine.GET("/api/stocks/:symbol/history", s.getStockHistory)
	s.engine.GET("/api/stocks/:symbol/ticks", s.getStockTicks)
	s.engine.GET("/api/stocks/:symbol/advice", s.getStockAdvice)
	s.engine.GET("/api/market/status", s.getMarketStatus)
	s.engine.POST("/api/alerts/check", s.checkAlert)
	s.engine.GET("/api/alerts/subscriptions", s.listSubscriptions)
	s.engine.POST("/api/alerts/subscriptions", s.addSubscription)
	s.engine.DELETE("/api/alerts/subscriptions/:symbol", s.removeSubscription)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *DataServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	s.httpSrv = &http.Server{Addr: addr, Handler: s.engine}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *DataServer) Stop() error {
	close(s.done)

	if s.httpSrv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *DataServer) getHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": s.Config.Name,
	})
}

// -----------------------------------------------------------------------------

// listStocks returns tracked stocks with live prices; ?all=true lists every
// stock that has history on disk.
func (s *DataServer) listStocks(c *gin.Context) {
	showAll := strings.EqualFold(c.Query("all"), "true")

	var symbols []string
	if showAll {
		symbols = s.Registry.AllSymbols()
	} else {
		symbols = s.Provider.GetAvailableSymbols()
	}

	stocks := make([]gin.H, 0, len(symbols))
	for _, symbol := range symbols {
		info, _ := s.Registry.StockInfo(symbol)

		entry := gin.H{
			"symbol":     symbol,
			"name":       info.Name,
			"sector":     info.Sector,
			"price":      info.LTP,
			"change":     0.0,
			"change_pct": 0.0,
			"volume":     int64(0),
		}
		if tick, ok := s.Provider.GetLatestTick(symbol); ok {
			entry["price"] = tick.Price
			entry["change"] = tick.Change
			entry["change_pct"] = tick.ChangePct
			entry["volume"] = tick.Volume
		}
		stocks = append(stocks, entry)
	}

	c.JSON(200, gin.H{"stocks": stocks, "count": len(stocks)})
}

// -----------------------------------------------------------------------------

func (s *DataServer) getStock(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	info, ok := s.Registry.StockInfo(symbol)
	if !ok {
		c.JSON(404, gin.H{"error": fmt.Sprintf("Stock '%s' not found", symbol)})
		return
	}

	response := gin.H{
		"symbol": symbol,
		"name":   info.Name,
		"sector": info.Sector,
		"tick":   nil,
	}
	if tick, ok := s.Provider.GetLatestTick(symbol); ok {
		response["tick"] = tick
	}

	c.JSON(200, response)
}

// -----------------------------------------------------------------------------

func (s *DataServer) getStockHistory(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	info, ok := s.Registry.StockInfo(symbol)
	if !ok {
		c.JSON(404, gin.H{"error": fmt.Sprintf("Stock '%s' not found", symbol)})
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "50"))
	if err != nil || days <= 0 {
		days = 50
	}

	history := s.Provider.GetHistory(symbol, days)
	c.JSON(200, gin.H{
		"symbol":      symbol,
		"name":        info.Name,
		"period_days": days,
		"data":        history,
		"count":       len(history),
	})
}

// -----------------------------------------------------------------------------

// getStockTicks serves the in-memory tail of generated ticks.
func (s *DataServer) getStockTicks(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	if _, ok := s.Provider.GetLatestTick(symbol); !ok {
		c.JSON(404, gin.H{"error": fmt.Sprintf("No data available for '%s'", symbol)})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	points := s.History.Recent(symbol, limit)
	c.JSON(200, gin.H{
		"symbol": symbol,
		"ticks":  points,
		"count":  len(points),
	})
}

// -----------------------------------------------------------------------------

func (s *DataServer) getStockAdvice(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	tick, ok := s.Provider.GetLatestTick(symbol)
	if !ok {
		c.JSON(404, gin.H{"error": fmt.Sprintf("No data available for '%s'", symbol)})
		return
	}

	priceThreshold := queryFloat(c, "price_threshold_pct", s.Config.Alerts.PriceThresholdPct)
	volumeMultiplier := queryFloat(c, "volume_threshold_multiplier", s.Config.Alerts.VolumeThresholdMultiplier)

	c.JSON(200, detection.Recommend(tick, priceThreshold, volumeMultiplier))
}

// -----------------------------------------------------------------------------

func (s *DataServer) getMarketStatus(c *gin.Context) {
	c.JSON(200, s.Clock.GetMarketStatus())
}

// -----------------------------------------------------------------------------

func (s *DataServer) searchStocks(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	sector := strings.TrimSpace(c.Query("sector"))

	results := s.Registry.Search(query, sector, 50)
	c.JSON(200, gin.H{"results": results, "count": len(results)})
}

// -----------------------------------------------------------------------------

// checkAlert runs a one-off spike analysis against the latest tick with the
// caller's thresholds, without touching subscriptions or cooldowns.
func (s *DataServer) checkAlert(c *gin.Context) {
	var body struct {
		Symbol                    string  `json:"symbol"`
		PriceThresholdPct         float64 `json:"price_threshold_pct"`
		VolumeThresholdMultiplier float64 `json:"volume_threshold_multiplier"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Symbol == "" {
		c.JSON(400, gin.H{"error": "symbol is required"})
		return
	}

	symbol := strings.ToUpper(body.Symbol)
	tick, ok := s.Provider.GetLatestTick(symbol)
	if !ok {
		c.JSON(404, gin.H{"error": fmt.Sprintf("No data available for '%s'", symbol)})
		return
	}

	priceThreshold := body.PriceThresholdPct
	if priceThreshold <= 0 {
		priceThreshold = s.Config.Alerts.PriceThresholdPct
	}
	volumeMultiplier := body.VolumeThresholdMultiplier
	if volumeMultiplier <= 0 {
		volumeMultiplier = s.Config.Alerts.VolumeThresholdMultiplier
	}

	alerts := detection.Analyze(tick, priceThreshold, volumeMultiplier)
	if alerts == nil {
		alerts = []models.MSpikeAlert{}
	}

	c.JSON(200, gin.H{
		"symbol":       symbol,
		"current_tick": tick,
		"alerts":       alerts,
		"alert_count":  len(alerts),
	})
}

// -----------------------------------------------------------------------------
// Alert subscription CRUD
// -----------------------------------------------------------------------------

func (s *DataServer) listSubscriptions(c *gin.Context) {
	userID := c.DefaultQuery("user_id", "anonymous")
	subs := s.Alerts.GetSubscriptions(userID)
	c.JSON(200, gin.H{"user_id": userID, "subscriptions": subs, "count": len(subs)})
}

// -----------------------------------------------------------------------------

func (s *DataServer) addSubscription(c *gin.Context) {
	var body struct {
		UserID                    string  `json:"user_id"`
		Symbol                    string  `json:"symbol"`
		PriceThresholdPct         float64 `json:"price_threshold_pct"`
		VolumeThresholdMultiplier float64 `json:"volume_threshold_multiplier"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Symbol == "" {
		c.JSON(400, gin.H{"error": "symbol is required"})
		return
	}
	if body.UserID == "" {
		body.UserID = "anonymous"
	}

	sub := s.Alerts.AddSubscription(body.UserID, body.Symbol,
		body.PriceThresholdPct, body.VolumeThresholdMultiplier)
	c.JSON(201, sub)
}

// -----------------------------------------------------------------------------

func (s *DataServer) removeSubscription(c *gin.Context) {
	userID := c.DefaultQuery("user_id", "anonymous")
	symbol := strings.ToUpper(c.Param("symbol"))

	removed := s.Alerts.RemoveSubscription(userID, symbol)
	c.JSON(200, gin.H{"user_id": userID, "symbol": symbol, "removed": removed})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func queryFloat(c *gin.Context, name string, fallback float64) float64 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
