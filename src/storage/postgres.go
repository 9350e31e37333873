package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"nepse-data-server/src/helpers"
	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		Config: cfg,
		Schema: cfg.Name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return &helpers.DatabaseError{DataServerError: helpers.DataServerError{
			Message: "failed to open postgres archive", Cause: err}}
	}

	if err := db.Ping(); err != nil {
		return &helpers.DatabaseError{DataServerError: helpers.DataServerError{
			Message: "postgres archive unreachable", Cause: err}}
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."ticks" (
			symbol TEXT,
			timestamp BIGINT,
			price DOUBLE PRECISION,
			tick_volume BIGINT,
			change_pct DOUBLE PRECISION,
			day_progress DOUBLE PRECISION,
			PRIMARY KEY (symbol, timestamp)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create ticks: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."spike_alerts" (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT,
			symbol TEXT,
			alert_type TEXT,
			direction TEXT,
			magnitude DOUBLE PRECISION,
			current_value DOUBLE PRECISION,
			threshold DOUBLE PRECISION,
			reference_value DOUBLE PRECISION,
			created_at TEXT
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create spike_alerts: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveTicksBulk(points []models.MTickPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."ticks" (symbol, timestamp, price, tick_volume, change_pct, day_progress)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			price = excluded.price,
			tick_volume = excluded.tick_volume,
			change_pct = excluded.change_pct,
			day_progress = excluded.day_progress
	`, d.Schema)

	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		_, err := stmt.Exec(p.Symbol, p.Timestamp, p.Price, p.TickVolume, p.ChangePct, p.DayProgress)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveAlerts(alerts []models.MTriggeredAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."spike_alerts" (user_id, symbol, alert_type, direction, magnitude, current_value, threshold, reference_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, d.Schema)

	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range alerts {
		a := t.Alert
		_, err := stmt.Exec(t.UserID, a.Symbol, a.AlertType, a.Direction, a.Magnitude,
			a.CurrentValue, a.Threshold, a.ReferenceValue, a.Timestamp)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	query := fmt.Sprintf(`DELETE FROM "%s"."ticks" WHERE timestamp < $1`, d.Schema)
	if _, err := d.DB.Exec(query, cutoff); err != nil {
		d.Logger.Error("Cleanup ticks error: %v", err)
	}

	cutoffRFC := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
	query = fmt.Sprintf(`DELETE FROM "%s"."spike_alerts" WHERE created_at < $1`, d.Schema)
	if _, err := d.DB.Exec(query, cutoffRFC); err != nil {
		d.Logger.Error("Cleanup spike_alerts error: %v", err)
	}

	d.Logger.Info("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
