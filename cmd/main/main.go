package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"nepse-data-server/src/config"
	"nepse-data-server/src/detection"
	"nepse-data-server/src/engine"
	"nepse-data-server/src/interfaces"
	"nepse-data-server/src/logger"
	"nepse-data-server/src/network"
	"nepse-data-server/src/provider"
	"nepse-data-server/src/registry"
	"nepse-data-server/src/server"
	"nepse-data-server/src/storage"
	"nepse-data-server/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Optional .env overlay; environment wins over the YAML file
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment overrides from .env")
	}

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config.LogLevel, config.Name)

	// 2. Stock registry (historical CSV data)
	reg, err := registry.NewStockRegistry(config.MConfig, appLogger)
	if err != nil {
		appLogger.Critical("Failed to load stock registry: %v", err)
	}

	// 3. Tick/alert archive
	var db interfaces.IDatabase

	switch config.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(config.MConfig, appLogger)
	case "none":
		db = nil
	default:
		// Default to SQLite
		db, err = storage.NewAsyncSQLiteDB(config.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if db != nil {
		if err := db.Initialize(); err != nil {
			appLogger.Critical("Failed to migrate db: %v", err)
		}
		defer db.Close()
	}

	// 4. Data provider (replay simulator or live API shell)
	var networkManager interfaces.INetworkManager = network.NewAsyncNetworkManager(config.MConfig, appLogger)
	dataProvider := provider.NewDataProvider(config.MConfig, appLogger, reg, networkManager, reg.TrackedSymbols())

	if len(dataProvider.GetAvailableSymbols()) == 0 {
		appLogger.Critical("No symbols available for replay; check data.dir and data.symbols")
	}

	// 5. Market clock, detection, tick history
	clock := engine.NewMarketClock(config.MConfig, appLogger)
	alertManager := detection.NewAlertManager(config.MConfig, appLogger)
	tickHistory := utils.NewTickHistory(config.Simulation.TickHistoryPoints)

	// 6. Transport (REST + WebSocket hub)
	srv := server.NewDataServer(config.MConfig, appLogger, dataProvider, reg, clock, alertManager, tickHistory)

	// 7. Scheduler
	marketEngine := engine.NewMarketEngine(config.MConfig, appLogger, dataProvider,
		clock, alertManager, srv, db, tickHistory)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	marketEngine.Start()
	appLogger.Info("%s ready: %d symbols, provider=%s",
		config.Name, len(dataProvider.GetAvailableSymbols()), config.Simulation.Provider)

	// 8. Block until shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	marketEngine.Stop()
	if err := srv.Stop(); err != nil {
		appLogger.Error("Server shutdown error: %v", err)
	}
}
