package provider

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"nepse-data-server/src/helpers"
	"nepse-data-server/src/interfaces"
	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// SimulatorProvider replays real NEPSE historical data with intraday tick
// interpolation.
//
// Instead of floating around a single LTP, the simulator:
//  1. Picks a random start day from the last N days of history
//  2. Replays a window of real trading days from that point
//  3. Within each day, interpolates intraday ticks Open -> High/Low -> Close
//  4. After the window, picks a new random window and repeats
// -----------------------------------------------------------------------------

// MinPrice is the floor applied to every generated price.
const MinPrice = 1.0

// fallbackAvgVolume is used when a symbol has no usable volume history.
const fallbackAvgVolume = 10000.0

// -----------------------------------------------------------------------------

// replayCursor tracks where a symbol is inside its current replay window.
// freshDay marks a day that has not produced any ticks yet; ResetSession uses
// it to stay idempotent per market-open edge (one session advances the day
// exactly once, whether the previous day exhausted its ticks or not).
type replayCursor struct {
	fullHistory []models.MHistoricalDay
	window      []models.MHistoricalDay
	dayIndex    int
	tickIndex   int
	ticksPerDay int
	freshDay    bool
}

// symbolState is the per-symbol arena record. The engine goroutine is the
// only writer; request-serving reads go through the same lock.
type symbolState struct {
	mu     sync.RWMutex
	replay replayCursor
	state  models.MTick
}

// -----------------------------------------------------------------------------

type SimulatorProvider struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Registry interfaces.IHistorySource

	symbols []string // seeded symbols, init order
	states  map[string]*symbolState

	rngMu sync.Mutex
	rng   *rand.Rand

	subsMu      sync.RWMutex
	subscribers map[string]map[string]func(models.MTick)
}

// -----------------------------------------------------------------------------

func NewSimulatorProvider(cfg *models.MConfig, log *logger.Logger, reg interfaces.IHistorySource, symbols []string) *SimulatorProvider {
	s := &SimulatorProvider{
		Config:      cfg,
		Logger:      log,
		Registry:    reg,
		states:      make(map[string]*symbolState),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		subscribers: make(map[string]map[string]func(models.MTick)),
	}
	s.initialize(symbols)
	return s
}

// -----------------------------------------------------------------------------

// initialize loads historical data and sets up replay windows for each symbol.
// Symbols with fewer than 2 days of history are excluded, not fatal.
func (s *SimulatorProvider) initialize(symbols []string) {
	lookback := s.Config.Simulation.HistoryLookbackDays

	for _, symbol := range symbols {
		symbol = strings.ToUpper(symbol)

		history := s.Registry.DailyBars(symbol, lookback)
		if len(history) < 2 {
			s.Logger.Warning("Skipping %s: insufficient history (%d days)", symbol, len(history))
			continue
		}

		info, _ := s.Registry.StockInfo(symbol)
		avgVol := s.Registry.AverageVolume(symbol, 20)
		if avgVol <= 0 {
			avgVol = fallbackAvgVolume
		}
		volatility := s.Registry.Volatility(symbol, 20)

		window := s.pickReplayWindow(history)
		firstDay := window[0]

		st := &symbolState{
			replay: replayCursor{
				fullHistory: history,
				window:      window,
				dayIndex:    0,
				tickIndex:   0,
				ticksPerDay: s.Config.Simulation.TicksPerDay,
				freshDay:    true,
			},
			state: models.MTick{
				Symbol:          symbol,
				Name:            info.Name,
				Sector:          info.Sector,
				Price:           firstDay.Open,
				Open:            firstDay.Open,
				High:            firstDay.Open,
				Low:             firstDay.Open,
				Volume:          0,
				PrevClose:       firstDay.Open,
				AvgVolume:       avgVol,
				Volatility:      volatility,
				ReplayDate:      firstDay.Date,
				ReplayDay:       1,
				ReplayTotalDays: len(window),
				Timestamp:       time.Now().Unix(),
			},
		}
		if st.state.Name == "" {
			st.state.Name = symbol
		}

		s.states[symbol] = st
		s.symbols = append(s.symbols, symbol)
	}

	s.Logger.Info("Replay simulator initialized: %d stocks, %d-day windows from last %d days",
		len(s.states), s.Config.Simulation.ReplayWindowDays, lookback)
}

// -----------------------------------------------------------------------------

// pickReplayWindow picks a random contiguous window from the history slice.
// History is chronological (oldest first); start is uniform in [0, available-size].
func (s *SimulatorProvider) pickReplayWindow(history []models.MHistoricalDay) []models.MHistoricalDay {
	available := len(history)
	windowSize := s.Config.Simulation.ReplayWindowDays
	if windowSize > available {
		windowSize = available
	}

	maxStart := available - windowSize

	s.rngMu.Lock()
	start := 0
	if maxStart > 0 {
		start = s.rng.Intn(maxStart + 1)
	}
	s.rngMu.Unlock()

	return history[start : start+windowSize]
}

// -----------------------------------------------------------------------------

// gaussian returns a normally distributed sample with the given std dev.
func (s *SimulatorProvider) gaussian(std float64) float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.NormFloat64() * std
}

// -----------------------------------------------------------------------------

// advanceReplay moves a symbol to a brand-new random window. Caller holds the
// symbol lock.
func (s *SimulatorProvider) advanceReplay(symbol string, st *symbolState) {
	st.replay.window = s.pickReplayWindow(st.replay.fullHistory)
	st.replay.dayIndex = 0
	st.replay.tickIndex = 0
	st.replay.freshDay = true

	firstDay := st.replay.window[0]
	st.state.PrevClose = st.state.Price
	st.state.Open = firstDay.Open
	st.state.High = firstDay.Open
	st.state.Low = firstDay.Open
	st.state.Volume = 0
	st.state.ReplayDate = firstDay.Date
	st.state.ReplayDay = 1
	st.state.ReplayTotalDays = len(st.replay.window)

	s.Logger.Info("%s: New replay window starting from %s", symbol, firstDay.Date)
}

// -----------------------------------------------------------------------------

// ResetSession advances every symbol to its next replay day; the engine calls
// this once per closed->open edge ("one calendar session = one window day").
// Days that never produced a tick are not skipped: the advance is a no-op for
// a still-fresh day, so an exhausted day followed by a reopen cannot
// double-advance past an unplayed bar.
func (s *SimulatorProvider) ResetSession() {
	for _, symbol := range s.symbols {
		st := s.states[symbol]
		st.mu.Lock()

		if st.replay.freshDay {
			st.replay.tickIndex = 0
			st.mu.Unlock()
			continue
		}

		st.replay.dayIndex++
		st.replay.tickIndex = 0
		st.replay.freshDay = true

		if st.replay.dayIndex >= len(st.replay.window) {
			s.advanceReplay(symbol, st)
			st.mu.Unlock()
			continue
		}

		day := st.replay.window[st.replay.dayIndex]
		prevClose := st.state.Price
		st.state.PrevClose = prevClose
		st.state.Open = day.Open
		st.state.High = day.Open
		st.state.Low = day.Open
		st.state.Price = day.Open
		st.state.Volume = 0
		st.state.Change = round2(day.Open - prevClose)
		if prevClose > 0 {
			st.state.ChangePct = round2((day.Open - prevClose) / prevClose * 100)
		} else {
			st.state.ChangePct = 0
		}
		st.state.ReplayDate = day.Date
		st.state.ReplayDay = st.replay.dayIndex + 1

		st.mu.Unlock()
	}
}

// -----------------------------------------------------------------------------

// GenerateTick generates the next intraday tick by interpolating real OHLCV
// data. The tick follows the real day's price action: Open -> High during the
// first quarter, High -> Low during the second, Low -> Close in the third,
// then settles near Close, so the synthetic curve hits the real OHLC values.
func (s *SimulatorProvider) GenerateTick(symbol string) (models.MTick, error) {
	symbol = strings.ToUpper(symbol)
	st, ok := s.states[symbol]
	if !ok {
		return models.MTick{}, fmt.Errorf("%w: %s", helpers.ErrUnknownSymbol, symbol)
	}

	st.mu.Lock()

	// Window exhausted outside the normal day-boundary path; reseed.
	if st.replay.dayIndex >= len(st.replay.window) {
		s.advanceReplay(symbol, st)
	}

	day := st.replay.window[st.replay.dayIndex]
	ticksPerDay := st.replay.ticksPerDay

	// Progress through the day (0.0 -> 1.0)
	denom := ticksPerDay - 1
	if denom < 1 {
		denom = 1
	}
	progress := float64(st.replay.tickIndex) / float64(denom)
	if progress > 1 {
		progress = 1
	}

	target := InterpolatePrice(day.Open, day.High, day.Low, day.Close, progress)

	// Small noise proportional to the day's range, floored at MinPrice.
	dayRange := day.High - day.Low
	if dayRange < 0.01 {
		dayRange = 0.01
	}
	newPrice := target + s.gaussian(dayRange*0.02)
	if newPrice < MinPrice {
		newPrice = MinPrice
	}

	// Volume distribution peaks at midday.
	volWeight := math.Sin(progress * math.Pi)
	dayVolume := float64(day.Volume)
	if dayVolume <= 0 {
		dayVolume = fallbackAvgVolume
	}
	tickVolume := int64(math.Round(dayVolume / float64(ticksPerDay) * (0.5 + volWeight)))
	if tickVolume < 1 {
		tickVolume = 1
	}

	// Update state
	st.state.Price = round2(newPrice)
	st.state.High = round2(math.Max(st.state.High, newPrice))
	st.state.Low = round2(math.Min(st.state.Low, newPrice))
	st.state.Volume += tickVolume
	prevClose := st.state.PrevClose
	st.state.Change = round2(newPrice - prevClose)
	if prevClose > 0 {
		st.state.ChangePct = round2((newPrice - prevClose) / prevClose * 100)
	} else {
		st.state.ChangePct = 0
	}
	st.state.Timestamp = time.Now().Unix()

	st.replay.freshDay = false
	st.replay.tickIndex++

	// Day finished: snap to the real close, then seed the next day.
	if st.replay.tickIndex >= ticksPerDay {
		st.state.Price = round2(day.Close)
		st.state.Change = round2(day.Close - prevClose)
		if prevClose > 0 {
			st.state.ChangePct = round2((day.Close - prevClose) / prevClose * 100)
		} else {
			st.state.ChangePct = 0
		}

		st.replay.dayIndex++
		st.replay.tickIndex = 0
		st.replay.freshDay = true

		if st.replay.dayIndex < len(st.replay.window) {
			nextDay := st.replay.window[st.replay.dayIndex]
			st.state.PrevClose = day.Close
			st.state.Open = nextDay.Open
			st.state.High = nextDay.Open
			st.state.Low = nextDay.Open
			st.state.Volume = 0
			st.state.ReplayDate = nextDay.Date
			st.state.ReplayDay = st.replay.dayIndex + 1
			s.Logger.Info("%s: Day %d/%d (%s), prev_close=%.2f",
				symbol, st.replay.dayIndex, len(st.replay.window), nextDay.Date, day.Close)
		} else {
			s.advanceReplay(symbol, st)
		}
	}

	tick := st.state
	tick.TickVolume = tickVolume
	tick.DayProgress = round1(progress * 100)

	st.mu.Unlock()

	s.notifySubscribers(symbol, tick)
	return tick, nil
}

// -----------------------------------------------------------------------------

// InterpolatePrice walks the intraday price through O -> H -> L -> C phases:
//
//	Phase 1 (0.00-0.25): Open -> High
//	Phase 2 (0.25-0.50): High -> Low
//	Phase 3 (0.50-0.80): Low -> Close
//	Phase 4 (0.80-1.00): Settle at Close
func InterpolatePrice(open, high, low, close, progress float64) float64 {
	switch {
	case progress < 0.25:
		t := progress / 0.25
		return open + (high-open)*t
	case progress < 0.50:
		t := (progress - 0.25) / 0.25
		return high + (low-high)*t
	case progress < 0.80:
		t := (progress - 0.50) / 0.30
		return low + (close-low)*t
	default:
		return close
	}
}

// -----------------------------------------------------------------------------
// Observers
// -----------------------------------------------------------------------------

func (s *SimulatorProvider) Subscribe(symbol, id string, fn func(models.MTick)) {
	symbol = strings.ToUpper(symbol)

	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	if s.subscribers[symbol] == nil {
		s.subscribers[symbol] = make(map[string]func(models.MTick))
	}
	s.subscribers[symbol][id] = fn
}

func (s *SimulatorProvider) Unsubscribe(symbol, id string) {
	symbol = strings.ToUpper(symbol)

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	delete(s.subscribers[symbol], id)
}

// notifySubscribers invokes per-symbol observers, isolating failures so one
// misbehaving observer cannot abort generation or starve the others.
func (s *SimulatorProvider) notifySubscribers(symbol string, tick models.MTick) {
	s.subsMu.RLock()
	fns := make([]func(models.MTick), 0, len(s.subscribers[symbol]))
	for _, fn := range s.subscribers[symbol] {
		fns = append(fns, fn)
	}
	s.subsMu.RUnlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.Logger.Error("Tick observer for %s panicked: %v", symbol, r)
				}
			}()
			fn(tick)
		}()
	}
}

// -----------------------------------------------------------------------------
// Read-side accessors
// -----------------------------------------------------------------------------

func (s *SimulatorProvider) GetLatestTick(symbol string) (models.MTick, bool) {
	st, ok := s.states[strings.ToUpper(symbol)]
	if !ok {
		return models.MTick{}, false
	}

	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state, true
}

func (s *SimulatorProvider) GetAllTicks() map[string]models.MTick {
	all := make(map[string]models.MTick, len(s.states))
	for _, symbol := range s.symbols {
		st := s.states[symbol]
		st.mu.RLock()
		all[symbol] = st.state
		st.mu.RUnlock()
	}
	return all
}

func (s *SimulatorProvider) GetHistory(symbol string, days int) []models.MHistoricalDay {
	return s.Registry.DailyBars(strings.ToUpper(symbol), days)
}

func (s *SimulatorProvider) GetAvailableSymbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// -----------------------------------------------------------------------------

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
