package detection

import (
	"fmt"
	"math"
	"strings"

	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// AlertAdvisor is a lightweight ML-style advisory layer. It does not train
// anything at runtime: it computes a stable score from tick features and maps
// it to an action with confidence and rationale, so clients can guide users
// after creating or checking alerts.
// -----------------------------------------------------------------------------

// Feature weights calibrated for stable behavior on NEPSE replay ticks.
const (
	advisorWeightPrice    = 0.60
	advisorWeightVolume   = 0.25
	advisorWeightMomentum = 0.15
)

// -----------------------------------------------------------------------------

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}

// -----------------------------------------------------------------------------

// Recommend scores one tick against the given thresholds. Non-positive
// thresholds are replaced by the provided defaults before scoring.
func Recommend(tick models.MTick, priceThresholdPct, volumeMultiplier float64) models.MRecommendation {
	if priceThresholdPct <= 0 {
		priceThresholdPct = 3.0
	}
	if volumeMultiplier <= 0 {
		volumeMultiplier = 2.0
	}

	changePct := tick.ChangePct
	if changePct == 0 && tick.PrevClose > 0 {
		changePct = (tick.Price - tick.PrevClose) / tick.PrevClose * 100
	}

	volumeRatio := 1.0
	if tick.AvgVolume > 0 {
		volumeRatio = float64(tick.Volume) / tick.AvgVolume
	}

	momentum := 0.0
	if tick.Open > 0 {
		momentum = (tick.Price - tick.Open) / tick.Open * 100
	}

	priceSignal := clamp(changePct/math.Max(priceThresholdPct, 0.1), -2.0, 2.0)
	volumeSignal := clamp((volumeRatio-1.0)/math.Max(volumeMultiplier-1.0, 0.25), -1.0, 2.0)
	momentumSignal := clamp(momentum/math.Max(priceThresholdPct, 0.1), -2.0, 2.0)

	score := priceSignal*advisorWeightPrice +
		volumeSignal*advisorWeightVolume +
		momentumSignal*advisorWeightMomentum
	confidence := sigmoid(math.Abs(score) * 2.0)

	var action string
	switch {
	case score >= 0.75:
		action = "buy"
	case score <= -0.75:
		action = "sell"
	case math.Abs(score) >= 0.35:
		action = "watch"
	default:
		action = "hold"
	}

	var riskLevel string
	switch {
	case math.Abs(changePct) >= priceThresholdPct*1.8 || volumeRatio >= volumeMultiplier*1.8:
		riskLevel = "high"
	case math.Abs(changePct) >= priceThresholdPct || volumeRatio >= volumeMultiplier:
		riskLevel = "medium"
	default:
		riskLevel = "low"
	}

	var reasons []string
	if math.Abs(changePct) >= priceThresholdPct {
		direction := "up"
		if changePct < 0 {
			direction = "down"
		}
		reasons = append(reasons, fmt.Sprintf("Price moved %s %.2f%% (threshold %.2f%%).",
			direction, math.Abs(changePct), priceThresholdPct))
	}
	if volumeRatio >= volumeMultiplier {
		reasons = append(reasons, fmt.Sprintf("Volume is %.2fx average (threshold %.2fx).",
			volumeRatio, volumeMultiplier))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "No strong spike signal yet; monitor before taking action.")
	}

	return models.MRecommendation{
		Symbol:     strings.ToUpper(tick.Symbol),
		Action:     action,
		Confidence: round3(confidence),
		RiskLevel:  riskLevel,
		Score:      round3(score),
		Reasons:    reasons,
		Features: map[string]float64{
			"change_pct":            round4(changePct),
			"volume_ratio":          round4(volumeRatio),
			"intraday_momentum_pct": round4(momentum),
			"price_signal":          round4(priceSignal),
			"volume_signal":         round4(volumeSignal),
			"momentum_signal":       round4(momentumSignal),
		},
	}
}

// -----------------------------------------------------------------------------

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
