package detection

import (
	"math"

	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// Spike detection is pure: a tick plus thresholds in, zero to two alerts out.
// Price and volume checks are independent and never suppress each other.
// -----------------------------------------------------------------------------

// CheckPriceSpike fires when the move from prev_close reaches the threshold
// percentage in either direction. Equality fires. A non-positive prev_close
// cannot be evaluated and yields no alert.
func CheckPriceSpike(symbol string, current, prevClose, thresholdPct float64) (models.MSpikeAlert, bool) {
	if prevClose <= 0 {
		return models.MSpikeAlert{}, false
	}

	changePct := (current - prevClose) / prevClose * 100
	if math.Abs(changePct) < thresholdPct {
		return models.MSpikeAlert{}, false
	}

	direction := models.DirectionUp
	if changePct < 0 {
		direction = models.DirectionDown
	}

	return models.MSpikeAlert{
		Symbol:         symbol,
		AlertType:      models.AlertTypePrice,
		Direction:      direction,
		Magnitude:      math.Abs(changePct),
		CurrentValue:   current,
		Threshold:      thresholdPct,
		ReferenceValue: prevClose,
		Timestamp:      models.NewAlertTimestamp(),
	}, true
}

// -----------------------------------------------------------------------------

// CheckVolumeSpike fires when session volume reaches the configured multiple
// of the historical average. Equality fires. Only above-average spikes are
// modeled, so direction is always up.
func CheckVolumeSpike(symbol string, currentVolume, avgVolume, thresholdMultiplier float64) (models.MSpikeAlert, bool) {
	if avgVolume <= 0 {
		return models.MSpikeAlert{}, false
	}

	ratio := currentVolume / avgVolume
	if ratio < thresholdMultiplier {
		return models.MSpikeAlert{}, false
	}

	return models.MSpikeAlert{
		Symbol:         symbol,
		AlertType:      models.AlertTypeVolume,
		Direction:      models.DirectionUp,
		Magnitude:      ratio,
		CurrentValue:   currentVolume,
		Threshold:      thresholdMultiplier,
		ReferenceValue: avgVolume,
		Timestamp:      models.NewAlertTimestamp(),
	}, true
}

// -----------------------------------------------------------------------------

// Analyze runs both checks against one tick and returns every alert that
// fired.
func Analyze(tick models.MTick, priceThresholdPct, volumeMultiplier float64) []models.MSpikeAlert {
	var alerts []models.MSpikeAlert

	if alert, ok := CheckPriceSpike(tick.Symbol, tick.Price, tick.PrevClose, priceThresholdPct); ok {
		alerts = append(alerts, alert)
	}
	if alert, ok := CheckVolumeSpike(tick.Symbol, float64(tick.Volume), tick.AvgVolume, volumeMultiplier); ok {
		alerts = append(alerts, alert)
	}

	return alerts
}
