package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
)

func newTestDB(t *testing.T, retentionDays int) *AsyncSQLiteDB {
	t.Helper()

	cfg := &models.MConfig{
		Storage: models.MStorageConfig{
			DBType:        "sqlite",
			DBPath:        filepath.Join(t.TempDir(), "archive.db"),
			RetentionDays: retentionDays,
		},
	}
	db, err := NewAsyncSQLiteDB(cfg, logger.NewLogger("ERROR", "storage-test"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func point(symbol string, ts int64, price float64) models.MTickPoint {
	return models.MTickPoint{
		Symbol:      symbol,
		Timestamp:   ts,
		Price:       price,
		TickVolume:  120,
		ChangePct:   1.5,
		DayProgress: 50,
	}
}

func TestSaveTicksBulkAndReplace(t *testing.T) {
	db := newTestDB(t, 30)
	now := time.Now().Unix()

	require.NoError(t, db.SaveTicksBulk([]models.MTickPoint{
		point("NABIL", now, 1300),
		point("NABIL", now+1, 1302),
		point("UPPER", now, 245),
	}))

	// Same (symbol, timestamp) replaces instead of duplicating.
	require.NoError(t, db.SaveTicksBulk([]models.MTickPoint{point("NABIL", now, 1305)}))

	var count int
	require.NoError(t, db.DB.QueryRow("SELECT COUNT(*) FROM ticks").Scan(&count))
	assert.Equal(t, 3, count)

	var price float64
	require.NoError(t, db.DB.QueryRow(
		"SELECT price FROM ticks WHERE symbol = ? AND timestamp = ?", "NABIL", now).Scan(&price))
	assert.Equal(t, 1305.0, price)
}

func TestSaveTicksBulkEmptyIsNoop(t *testing.T) {
	db := newTestDB(t, 30)
	assert.NoError(t, db.SaveTicksBulk(nil))
}

func TestSaveAlerts(t *testing.T) {
	db := newTestDB(t, 30)

	alerts := []models.MTriggeredAlert{
		{
			UserID: "u1",
			Alert: models.MSpikeAlert{
				Symbol:         "NABIL",
				AlertType:      models.AlertTypePrice,
				Direction:      models.DirectionUp,
				Magnitude:      4.2,
				CurrentValue:   1300,
				Threshold:      3.0,
				ReferenceValue: 1248,
				Timestamp:      models.NewAlertTimestamp(),
			},
		},
	}
	require.NoError(t, db.SaveAlerts(alerts))

	var userID, symbol string
	require.NoError(t, db.DB.QueryRow(
		"SELECT user_id, symbol FROM spike_alerts").Scan(&userID, &symbol))
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "NABIL", symbol)
}

func TestCleanupOldData(t *testing.T) {
	db := newTestDB(t, 7)
	now := time.Now().UTC()

	require.NoError(t, db.SaveTicksBulk([]models.MTickPoint{
		point("NABIL", now.Unix(), 1300),
		point("NABIL", now.AddDate(0, 0, -30).Unix(), 1200),
	}))

	old := models.MTriggeredAlert{UserID: "u1", Alert: models.MSpikeAlert{
		Symbol: "NABIL", AlertType: models.AlertTypePrice,
		Timestamp: now.AddDate(0, 0, -30).Format(time.RFC3339),
	}}
	fresh := models.MTriggeredAlert{UserID: "u1", Alert: models.MSpikeAlert{
		Symbol: "NABIL", AlertType: models.AlertTypePrice,
		Timestamp: now.Format(time.RFC3339),
	}}
	require.NoError(t, db.SaveAlerts([]models.MTriggeredAlert{old, fresh}))

	require.NoError(t, db.CleanupOldData())

	var ticks, alerts int
	require.NoError(t, db.DB.QueryRow("SELECT COUNT(*) FROM ticks").Scan(&ticks))
	require.NoError(t, db.DB.QueryRow("SELECT COUNT(*) FROM spike_alerts").Scan(&alerts))
	assert.Equal(t, 1, ticks)
	assert.Equal(t, 1, alerts)
}

func TestCleanupDisabledByRetention(t *testing.T) {
	db := newTestDB(t, 0)

	require.NoError(t, db.SaveTicksBulk([]models.MTickPoint{
		point("NABIL", time.Now().AddDate(0, 0, -365).Unix(), 1000),
	}))
	require.NoError(t, db.CleanupOldData())

	var ticks int
	require.NoError(t, db.DB.QueryRow("SELECT COUNT(*) FROM ticks").Scan(&ticks))
	assert.Equal(t, 1, ticks)
}
