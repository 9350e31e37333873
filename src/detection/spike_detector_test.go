package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// Price spikes
// -----------------------------------------------------------------------------

func TestPriceSpikeUp(t *testing.T) {
	alert, ok := CheckPriceSpike("NABIL", 1300, 1250, 3.0)

	require.True(t, ok)
	assert.Equal(t, models.AlertTypePrice, alert.AlertType)
	assert.Equal(t, models.DirectionUp, alert.Direction)
	assert.InDelta(t, 4.0, alert.Magnitude, 1e-9)
	assert.Equal(t, 1300.0, alert.CurrentValue)
	assert.Equal(t, 1250.0, alert.ReferenceValue)
	assert.Equal(t, 3.0, alert.Threshold)
}

func TestPriceSpikeDown(t *testing.T) {
	alert, ok := CheckPriceSpike("NABIL", 950, 1000, 3.0)

	require.True(t, ok)
	assert.Equal(t, models.DirectionDown, alert.Direction)
	assert.InDelta(t, 5.0, alert.Magnitude, 1e-9)
}

func TestPriceSpikeEqualityFires(t *testing.T) {
	_, ok := CheckPriceSpike("NABIL", 103, 100, 3.0)
	assert.True(t, ok)
}

func TestPriceSpikeBelowThreshold(t *testing.T) {
	_, ok := CheckPriceSpike("NABIL", 102.9, 100, 3.0)
	assert.False(t, ok)
}

func TestPriceSpikeDegeneratePrevClose(t *testing.T) {
	_, ok := CheckPriceSpike("NABIL", 100, 0, 3.0)
	assert.False(t, ok)

	_, ok = CheckPriceSpike("NABIL", 100, -5, 3.0)
	assert.False(t, ok)
}

// -----------------------------------------------------------------------------
// Volume spikes
// -----------------------------------------------------------------------------

func TestVolumeSpike(t *testing.T) {
	alert, ok := CheckVolumeSpike("NABIL", 100000, 40000, 2.0)

	require.True(t, ok)
	assert.Equal(t, models.AlertTypeVolume, alert.AlertType)
	assert.Equal(t, models.DirectionUp, alert.Direction)
	assert.InDelta(t, 2.5, alert.Magnitude, 1e-9)
	assert.Equal(t, 40000.0, alert.ReferenceValue)
}

func TestVolumeSpikeEqualityFires(t *testing.T) {
	_, ok := CheckVolumeSpike("NABIL", 80000, 40000, 2.0)
	assert.True(t, ok)
}

func TestVolumeSpikeBelowThreshold(t *testing.T) {
	_, ok := CheckVolumeSpike("NABIL", 79999, 40000, 2.0)
	assert.False(t, ok)
}

func TestVolumeSpikeDegenerateAverage(t *testing.T) {
	_, ok := CheckVolumeSpike("NABIL", 100000, 0, 2.0)
	assert.False(t, ok)
}

// -----------------------------------------------------------------------------
// Analyze
// -----------------------------------------------------------------------------

func TestAnalyzeBothChecksIndependent(t *testing.T) {
	tick := models.MTick{
		Symbol:    "NABIL",
		Price:     1300,
		PrevClose: 1250,
		Volume:    100000,
		AvgVolume: 40000,
	}

	alerts := Analyze(tick, 3.0, 2.0)
	require.Len(t, alerts, 2)
	assert.Equal(t, models.AlertTypePrice, alerts[0].AlertType)
	assert.Equal(t, models.AlertTypeVolume, alerts[1].AlertType)
}

func TestAnalyzeQuietTick(t *testing.T) {
	tick := models.MTick{
		Symbol:    "NABIL",
		Price:     1255,
		PrevClose: 1250,
		Volume:    10000,
		AvgVolume: 40000,
	}

	assert.Empty(t, Analyze(tick, 3.0, 2.0))
}
