// Package store keeps processed sample estimates in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"pbloss-mcp/internal/concordia"
	"pbloss-mcp/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when an estimate id is unknown.
var ErrNotFound = errors.New("estimate not found")

// Store wraps SQLite access for estimates.
type Store struct {
	db *sql.DB
}

// Estimate is one persisted sample outcome. Ages are in Ma.
type Estimate struct {
	ID         string
	SampleID   string
	SampleName string
	Status     string
	Reason     string
	Runs       int
	AgeMa      *float64
	LowerMa    *float64
	UpperMa    *float64
	MeanD      *float64
	MeanP      *float64
	MeanScore  *float64
	Settings   *model.CalculationSettings
	CreatedAt  time.Time
}

// Open opens or creates the database and applies migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS estimates (
			id TEXT PRIMARY KEY,
			sample_id TEXT NOT NULL,
			sample_name TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT NOT NULL,
			runs INTEGER NOT NULL,
			age_ma REAL,
			lower_ma REAL,
			upper_ma REAL,
			mean_d REAL,
			mean_p REAL,
			mean_score REAL,
			settings TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS estimate_runs (
			estimate_id TEXT NOT NULL,
			run_number INTEGER NOT NULL,
			age_ma REAL NOT NULL,
			PRIMARY KEY (estimate_id, run_number)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_estimates_sample_name ON estimates(sample_name);`,
		`CREATE INDEX IF NOT EXISTS idx_estimates_created_at ON estimates(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveSample stores a sample's current outcome and per-run optima and
// returns the new estimate id.
func (s *Store) SaveSample(ctx context.Context, sample *model.Sample, status, reason string) (id string, err error) {
	settings := []byte("{}")
	if sample.Settings != nil {
		if settings, err = json.Marshal(sample.Settings); err != nil {
			return "", err
		}
	}

	var age, lower, upper, meanD, meanP, meanScore *float64
	if o := sample.Optimal; o != nil {
		age, lower, upper = ptr(o.Age/concordia.Ma), ptr(o.LowerBound/concordia.Ma), ptr(o.UpperBound/concordia.Ma)
		meanD, meanP, meanScore = ptr(o.MeanDValue), ptr(o.MeanPValue), ptr(o.MeanScore)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id = uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO estimates (id, sample_id, sample_name, status, reason, runs, age_ma, lower_ma, upper_ma, mean_d, mean_p, mean_score, settings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sample.ID, sample.Name, status, reason, len(sample.Runs),
		age, lower, upper, meanD, meanP, meanScore,
		string(settings), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", err
	}

	if len(sample.Runs) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO estimate_runs (estimate_id, run_number, age_ma) VALUES (?, ?, ?)`)
		if err != nil {
			return "", err
		}
		defer stmt.Close()
		for _, r := range sample.Runs {
			row := r.ToRow()
			if _, err := stmt.ExecContext(ctx, id, row.RunNumber, row.OptimalAgeMa); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

const selectEstimate = `SELECT id, sample_id, sample_name, status, reason, runs, age_ma, lower_ma, upper_ma, mean_d, mean_p, mean_score, settings, created_at FROM estimates`

// Get loads one estimate.
func (s *Store) Get(ctx context.Context, id string) (Estimate, error) {
	rows, err := s.db.QueryContext(ctx, selectEstimate+` WHERE id = ?`, id)
	if err != nil {
		return Estimate{}, err
	}
	out, err := scanEstimates(rows)
	if err != nil {
		return Estimate{}, err
	}
	if len(out) == 0 {
		return Estimate{}, ErrNotFound
	}
	return out[0], nil
}

// List returns the most recent estimates first. An empty sample name
// matches every sample; limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, sampleName string, limit int) ([]Estimate, error) {
	query := selectEstimate
	var args []any
	if sampleName != "" {
		query += ` WHERE sample_name = ?`
		args = append(args, sampleName)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanEstimates(rows)
}

// RunAges returns an estimate's per-run optimal ages in Ma, by run number.
func (s *Store) RunAges(ctx context.Context, id string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT age_ma FROM estimate_runs WHERE estimate_id = ? ORDER BY run_number`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ages []float64
	for rows.Next() {
		var a float64
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		ages = append(ages, a)
	}
	return ages, rows.Err()
}

func scanEstimates(rows *sql.Rows) ([]Estimate, error) {
	defer rows.Close()
	var out []Estimate
	for rows.Next() {
		var (
			e                              Estimate
			age, lower, upper, d, p, score sql.NullFloat64
			settings, created              string
		)
		if err := rows.Scan(&e.ID, &e.SampleID, &e.SampleName, &e.Status, &e.Reason, &e.Runs,
			&age, &lower, &upper, &d, &p, &score, &settings, &created); err != nil {
			return nil, err
		}
		e.AgeMa, e.LowerMa, e.UpperMa = nullable(age), nullable(lower), nullable(upper)
		e.MeanD, e.MeanP, e.MeanScore = nullable(d), nullable(p), nullable(score)
		if settings != "{}" {
			var cs model.CalculationSettings
			if err := json.Unmarshal([]byte(settings), &cs); err != nil {
				return nil, fmt.Errorf("decode settings for %s: %w", e.ID, err)
			}
			e.Settings = &cs
		}
		if t, err := time.Parse(timeLayout, created); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func ptr(v float64) *float64 { return &v }

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return ptr(v.Float64)
}
