package engine

import (
	"sync"
	"time"

	"nepse-data-server/src/interfaces"
	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
	"nepse-data-server/src/utils"
)

// -----------------------------------------------------------------------------
// MarketEngine is the scheduler driving the whole server: on every interval it
// consults the clock, generates ticks while the market is open, runs spike
// detection, and fans results out to the websocket hub and the archive.
// Open/close transitions are edge-triggered; the closed->open edge starts a
// new replay session on the provider.
// -----------------------------------------------------------------------------

const stopTimeout = 5 * time.Second

type MarketEngine struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Provider  interfaces.IDataProvider
	Clock     interfaces.IMarketClock
	Alerts    interfaces.IAlertChecker
	Exchanger interfaces.IDataExchanger
	Database  interfaces.IDatabase
	History   *utils.TickHistory

	mu      sync.Mutex
	running bool
	wasOpen bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// -----------------------------------------------------------------------------

func NewMarketEngine(cfg *models.MConfig, log *logger.Logger, provider interfaces.IDataProvider,
	clock interfaces.IMarketClock, alerts interfaces.IAlertChecker,
	exchanger interfaces.IDataExchanger, db interfaces.IDatabase, history *utils.TickHistory) *MarketEngine {

	return &MarketEngine{
		Config:    cfg,
		Logger:    log,
		Provider:  provider,
		Clock:     clock,
		Alerts:    alerts,
		Exchanger: exchanger,
		Database:  db,
		History:   history,
	}
}

// -----------------------------------------------------------------------------

// Start launches the tick loop. A second Start on a running engine is a
// warning, not a restart.
func (e *MarketEngine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		e.Logger.Warning("Market engine already running")
		return
	}

	e.running = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})

	interval := time.Duration(e.Config.Simulation.TickIntervalSeconds) * time.Second
	go e.loop(interval)

	e.Logger.Info("Market engine started (tick interval %s)", interval)
}

// -----------------------------------------------------------------------------

// Stop signals the loop and waits for the in-flight cycle, bounded so a stuck
// broadcast cannot hang shutdown.
func (e *MarketEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	close(e.stopCh)
	select {
	case <-e.doneCh:
	case <-time.After(stopTimeout):
		e.Logger.Warning("Market engine did not stop within %s", stopTimeout)
	}
	e.running = false

	e.Logger.Info("Market engine stopped")
}

// -----------------------------------------------------------------------------

func (e *MarketEngine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// -----------------------------------------------------------------------------

func (e *MarketEngine) loop(interval time.Duration) {
	defer close(e.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run one cycle immediately so a freshly started server does not sit
	// silent for a full interval.
	e.runCycle()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.runCycle()
		}
	}
}

// -----------------------------------------------------------------------------

// runCycle is one scheduler pass: edge detection first, then generation.
func (e *MarketEngine) runCycle() {
	isOpen := e.Clock.IsMarketOpen()

	if isOpen != e.wasOpen {
		e.handleEdge(isOpen)
		e.wasOpen = isOpen
	}

	if !isOpen {
		return
	}

	e.generateAll()
}

// -----------------------------------------------------------------------------

// handleEdge reacts to an open/close transition. The session reset happens on
// the closed->open edge only, so each calendar session consumes exactly one
// replay day per symbol.
func (e *MarketEngine) handleEdge(isOpen bool) {
	status := e.Clock.GetMarketStatus()

	if isOpen {
		e.Logger.Info("Market opened, starting new replay session")
		e.Provider.ResetSession()
		e.broadcastStatus(models.MMarketStatusEvent{Status: models.MarketOpened, Details: status})
		return
	}

	e.Logger.Info("Market closed")
	e.broadcastStatus(models.MMarketStatusEvent{Status: models.MarketClosed, Details: status})

	if e.Database != nil {
		if err := e.Database.CleanupOldData(); err != nil {
			e.Logger.Error("Archive cleanup failed: %s", err)
		}
	}
}

// -----------------------------------------------------------------------------

// generateAll produces one tick per symbol, then broadcasts, archives and
// checks alerts on the batch. A failure in any sink is logged and does not
// stop the batch or the loop.
func (e *MarketEngine) generateAll() {
	symbols := e.Provider.GetAvailableSymbols()
	if len(symbols) == 0 {
		return
	}

	batch := make(map[string]models.MTick, len(symbols))
	points := make([]models.MTickPoint, 0, len(symbols))
	var triggered []models.MTriggeredAlert

	for _, symbol := range symbols {
		tick, err := e.Provider.GenerateTick(symbol)
		if err != nil {
			e.Logger.Error("Tick generation failed for %s: %s", symbol, err)
			continue
		}

		batch[symbol] = tick
		points = append(points, tick.Point())

		if e.History != nil {
			e.History.Record(tick)
		}
		if e.Alerts != nil {
			triggered = append(triggered, e.Alerts.CheckTick(tick)...)
		}
	}

	if len(batch) == 0 {
		return
	}

	e.broadcastTicks(batch)

	for _, t := range triggered {
		e.broadcastAlert(t)
	}

	if e.Database != nil {
		if err := e.Database.SaveTicksBulk(points); err != nil {
			e.Logger.Error("Tick archive write failed: %s", err)
		}
		if len(triggered) > 0 {
			if err := e.Database.SaveAlerts(triggered); err != nil {
				e.Logger.Error("Alert archive write failed: %s", err)
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Broadcast wrappers isolate listener failures from the scheduler loop.
// -----------------------------------------------------------------------------

func (e *MarketEngine) broadcastTicks(batch map[string]models.MTick) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("Tick broadcast panicked: %v", r)
		}
	}()
	e.Exchanger.BroadcastTicks(batch)
}

func (e *MarketEngine) broadcastAlert(t models.MTriggeredAlert) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("Alert broadcast panicked: %v", r)
		}
	}()
	e.Exchanger.BroadcastAlert(t.UserID, t.Alert)
}

func (e *MarketEngine) broadcastStatus(event models.MMarketStatusEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("Market status broadcast panicked: %v", r)
		}
	}()
	e.Exchanger.BroadcastMarketStatus(event)
}
