package detection

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// AlertManager owns per-user subscriptions and cooldown timers, turning tick
// batches into deduplicated per-user alerts. Each (user, symbol, alert type)
// triple has its own cooldown clock: a price alert firing never gates a
// volume alert on the same subscription.
// -----------------------------------------------------------------------------

type AlertManager struct {
	Config *models.MConfig
	Logger *logger.Logger

	// Now is the time source; tests replace it.
	Now func() time.Time

	mu            sync.Mutex
	subscriptions map[string]models.MAlertSubscription // user|symbol
	cooldowns     map[string]time.Time                 // user|symbol|type -> last fire
	listeners     map[string]func(userID string, alert models.MSpikeAlert)
}

// -----------------------------------------------------------------------------

func NewAlertManager(cfg *models.MConfig, log *logger.Logger) *AlertManager {
	return &AlertManager{
		Config:        cfg,
		Logger:        log,
		Now:           time.Now,
		subscriptions: make(map[string]models.MAlertSubscription),
		cooldowns:     make(map[string]time.Time),
		listeners:     make(map[string]func(string, models.MSpikeAlert)),
	}
}

// -----------------------------------------------------------------------------

func subKey(userID, symbol string) string {
	return userID + "|" + strings.ToUpper(symbol)
}

func cooldownKey(userID, symbol, alertType string) string {
	return userID + "|" + strings.ToUpper(symbol) + "|" + alertType
}

// -----------------------------------------------------------------------------

// AddSubscription upserts the single subscription for (user, symbol). Last
// write wins; non-positive thresholds fall back to the configured defaults.
func (am *AlertManager) AddSubscription(userID, symbol string, priceThresholdPct, volumeMultiplier float64) models.MAlertSubscription {
	if priceThresholdPct <= 0 {
		priceThresholdPct = am.Config.Alerts.PriceThresholdPct
	}
	if volumeMultiplier <= 0 {
		volumeMultiplier = am.Config.Alerts.VolumeThresholdMultiplier
	}

	sub := models.MAlertSubscription{
		UserID:                    userID,
		Symbol:                    strings.ToUpper(symbol),
		PriceThresholdPct:         priceThresholdPct,
		VolumeThresholdMultiplier: volumeMultiplier,
		Enabled:                   true,
	}

	am.mu.Lock()
	am.subscriptions[subKey(userID, symbol)] = sub
	am.mu.Unlock()

	am.Logger.Debug("Subscription added: %s -> %s (price %.2f%%, volume x%.2f)",
		userID, sub.Symbol, priceThresholdPct, volumeMultiplier)
	return sub
}

// -----------------------------------------------------------------------------

// RemoveSubscription is idempotent and reports whether anything was removed.
func (am *AlertManager) RemoveSubscription(userID, symbol string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	key := subKey(userID, symbol)
	if _, ok := am.subscriptions[key]; !ok {
		return false
	}
	delete(am.subscriptions, key)
	return true
}

// -----------------------------------------------------------------------------

// SetThresholds updates an existing subscription's thresholds, returning an
// error when the user never subscribed to the symbol.
func (am *AlertManager) SetThresholds(userID, symbol string, priceThresholdPct, volumeMultiplier float64) (models.MAlertSubscription, error) {
	am.mu.Lock()
	defer am.mu.Unlock()

	key := subKey(userID, symbol)
	sub, ok := am.subscriptions[key]
	if !ok {
		return models.MAlertSubscription{}, fmt.Errorf("no subscription for %s on %s", userID, strings.ToUpper(symbol))
	}

	if priceThresholdPct > 0 {
		sub.PriceThresholdPct = priceThresholdPct
	}
	if volumeMultiplier > 0 {
		sub.VolumeThresholdMultiplier = volumeMultiplier
	}
	am.subscriptions[key] = sub
	return sub, nil
}

// -----------------------------------------------------------------------------

// GetSubscriptions lists a user's subscriptions, sorted by symbol.
func (am *AlertManager) GetSubscriptions(userID string) []models.MAlertSubscription {
	am.mu.Lock()
	defer am.mu.Unlock()

	subs := []models.MAlertSubscription{}
	for _, sub := range am.subscriptions {
		if sub.UserID == userID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Symbol < subs[j].Symbol })
	return subs
}

// -----------------------------------------------------------------------------

// RegisterListener adds an alert listener by id; listener failures are
// isolated from each other and from detection.
func (am *AlertManager) RegisterListener(id string, fn func(userID string, alert models.MSpikeAlert)) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.listeners[id] = fn
}

func (am *AlertManager) UnregisterListener(id string) {
	am.mu.Lock()
	defer am.mu.Unlock()
	delete(am.listeners, id)
}

// -----------------------------------------------------------------------------

// CheckTick evaluates one tick against every enabled subscription for its
// symbol, applying the per-(user, symbol, type) cooldown to each result.
func (am *AlertManager) CheckTick(tick models.MTick) []models.MTriggeredAlert {
	now := am.Now()
	cooldown := time.Duration(am.Config.Alerts.CooldownSeconds) * time.Second
	symbol := strings.ToUpper(tick.Symbol)

	am.mu.Lock()

	var triggered []models.MTriggeredAlert
	for _, sub := range am.subscriptions {
		if !sub.Enabled || sub.Symbol != symbol {
			continue
		}

		for _, alert := range Analyze(tick, sub.PriceThresholdPct, sub.VolumeThresholdMultiplier) {
			key := cooldownKey(sub.UserID, symbol, alert.AlertType)
			if last, ok := am.cooldowns[key]; ok && now.Sub(last) < cooldown {
				continue
			}
			am.cooldowns[key] = now
			triggered = append(triggered, models.MTriggeredAlert{UserID: sub.UserID, Alert: alert})
		}
	}

	listeners := make([]func(string, models.MSpikeAlert), 0, len(am.listeners))
	for _, fn := range am.listeners {
		listeners = append(listeners, fn)
	}

	am.mu.Unlock()

	for _, t := range triggered {
		for _, fn := range listeners {
			am.invoke(fn, t)
		}
	}

	return triggered
}

// -----------------------------------------------------------------------------

// ProcessTicks runs CheckTick over a whole batch. Iteration order across
// users and symbols is unspecified.
func (am *AlertManager) ProcessTicks(batch map[string]models.MTick) []models.MTriggeredAlert {
	var triggered []models.MTriggeredAlert
	for _, tick := range batch {
		triggered = append(triggered, am.CheckTick(tick)...)
	}
	return triggered
}

// -----------------------------------------------------------------------------

func (am *AlertManager) invoke(fn func(string, models.MSpikeAlert), t models.MTriggeredAlert) {
	defer func() {
		if r := recover(); r != nil {
			am.Logger.Error("Alert listener panicked: %v", r)
		}
	}()
	fn(t.UserID, t.Alert)
}
