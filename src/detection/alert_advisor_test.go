package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------

func TestRecommendStrongUpMove(t *testing.T) {
	tick := models.MTick{
		Symbol:    "nabil",
		Price:     1350,
		Open:      1260,
		PrevClose: 1250,
		ChangePct: 8.0,
		Volume:    160000,
		AvgVolume: 40000,
	}

	rec := Recommend(tick, 3.0, 2.0)

	assert.Equal(t, "NABIL", rec.Symbol)
	assert.Equal(t, "buy", rec.Action)
	assert.Equal(t, "high", rec.RiskLevel)
	assert.Greater(t, rec.Score, 0.75)
	assert.Greater(t, rec.Confidence, 0.5)
	require.Len(t, rec.Reasons, 2)
	assert.Contains(t, rec.Reasons[0], "Price moved up")
	assert.Contains(t, rec.Reasons[1], "x average")
	assert.Equal(t, 8.0, rec.Features["change_pct"])
	assert.Equal(t, 4.0, rec.Features["volume_ratio"])
}

func TestRecommendStrongDownMove(t *testing.T) {
	tick := models.MTick{
		Symbol:    "NABIL",
		Price:     1150,
		Open:      1240,
		PrevClose: 1250,
		ChangePct: -8.0,
		Volume:    10000,
		AvgVolume: 40000,
	}

	rec := Recommend(tick, 3.0, 2.0)

	assert.Equal(t, "sell", rec.Action)
	assert.Less(t, rec.Score, -0.75)
	assert.Contains(t, rec.Reasons[0], "Price moved down")
}

func TestRecommendQuietTickHolds(t *testing.T) {
	tick := models.MTick{
		Symbol:    "NABIL",
		Price:     1252,
		Open:      1251,
		PrevClose: 1250,
		Volume:    40000,
		AvgVolume: 40000,
	}

	rec := Recommend(tick, 3.0, 2.0)

	assert.Equal(t, "hold", rec.Action)
	assert.Equal(t, "low", rec.RiskLevel)
	require.Len(t, rec.Reasons, 1)
	assert.Contains(t, rec.Reasons[0], "monitor")
}

func TestRecommendDegenerateInputs(t *testing.T) {
	rec := Recommend(models.MTick{Symbol: "NABIL"}, 0, 0)

	assert.Equal(t, "hold", rec.Action)
	assert.Equal(t, 1.0, rec.Features["volume_ratio"])
	assert.Equal(t, 0.0, rec.Features["change_pct"])
}
