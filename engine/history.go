package engine

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ftahirops/smartdash/model"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS device_health (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT    NOT NULL,
	device         TEXT    NOT NULL,
	checked_at     INTEGER NOT NULL,
	health         TEXT    NOT NULL,
	temperature    INTEGER,
	power_on_hours INTEGER NOT NULL DEFAULT 0,
	warnings       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_device_health_device ON device_health(device, checked_at);
`

// HistoryEntry is one device verdict from one collection run.
type HistoryEntry struct {
	RunID        string              `json:"runId"`
	Device       string              `json:"device"`
	CheckedAt    time.Time           `json:"checkedAt"`
	Health       model.HealthVerdict `json:"health"`
	Temperature  *int                `json:"temperature,omitempty"`
	PowerOnHours int64               `json:"powerOnHours"`
	Warnings     int                 `json:"warnings"` // attributes not Good
}

type historyRow struct {
	RunID        string        `db:"run_id"`
	Device       string        `db:"device"`
	CheckedAt    int64         `db:"checked_at"`
	Health       string        `db:"health"`
	Temperature  sql.NullInt64 `db:"temperature"`
	PowerOnHours int64         `db:"power_on_hours"`
	Warnings     int           `db:"warnings"`
}

func (r historyRow) entry() HistoryEntry {
	e := HistoryEntry{
		RunID:        r.RunID,
		Device:       r.Device,
		CheckedAt:    time.Unix(r.CheckedAt, 0).UTC(),
		Health:       model.HealthVerdict(r.Health),
		PowerOnHours: r.PowerOnHours,
		Warnings:     r.Warnings,
	}
	if r.Temperature.Valid {
		t := int(r.Temperature.Int64)
		e.Temperature = &t
	}
	return e
}

// History stores per-run device verdicts in SQLite.
type History struct {
	db         *sqlx.DB
	normalizer *Normalizer
	now        func() time.Time
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(path string, n *Normalizer) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	rawDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db := sqlx.NewDb(rawDB, "sqlite")
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	if n == nil {
		n = NewNormalizer(Thresholds{})
	}
	log.Debug().Str("path", path).Msg("history database ready")
	return &History{db: db, normalizer: n, now: time.Now}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// RecordRun normalizes the documents of one run and stores their verdicts.
func (h *History) RecordRun(ctx context.Context, runID string, docs []model.DeviceDocument) error {
	recs := make([]model.DeviceHealthRecord, 0, len(docs))
	for _, d := range docs {
		recs = append(recs, h.normalizer.NormalizeDocument(d))
	}
	return h.Record(ctx, runID, recs)
}

// Record stores normalized records under runID in one transaction.
func (h *History) Record(ctx context.Context, runID string, recs []model.DeviceHealthRecord) error {
	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO device_health
		(run_id, device, checked_at, health, temperature, power_on_hours, warnings)
		VALUES (:run_id, :device, :checked_at, :health, :temperature, :power_on_hours, :warnings)`)
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		checked := h.now()
		if r.LastChecked != nil {
			checked = *r.LastChecked
		}
		row := historyRow{
			RunID:        runID,
			Device:       r.Device,
			CheckedAt:    checked.Unix(),
			Health:       string(r.Health),
			PowerOnHours: r.PowerOnHours,
			Warnings:     countWarnings(r),
		}
		if r.Temperature != nil {
			row.Temperature = sql.NullInt64{Int64: int64(*r.Temperature), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("insert history for %s: %w", r.Device, err)
		}
	}
	return tx.Commit()
}

// DeviceHistory returns the newest entries for a device, newest first.
func (h *History) DeviceHistory(ctx context.Context, device string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	device = strings.TrimPrefix(device, "/dev/")
	var rows []historyRow
	if err := h.db.SelectContext(ctx, &rows, `SELECT run_id, device, checked_at, health, temperature, power_on_hours, warnings
		FROM device_health WHERE device = ? ORDER BY checked_at DESC, id DESC LIMIT ?`, device, limit); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	var out []HistoryEntry
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}

func countWarnings(r model.DeviceHealthRecord) int {
	n := 0
	for _, a := range r.SmartAttributes {
		if a.Status != model.HealthGood {
			n++
		}
	}
	return n
}
