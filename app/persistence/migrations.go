package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
)

// migration is a single schema step, applied once and recorded in schema_version
type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, tx *sqlx.Tx) error
}

// migrations lists all schema steps in order. Never edit or reorder applied entries, append new ones.
var migrations = []migration{
	{version: 1, name: "jobs table", apply: execAll(
		`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			customer TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_date ON jobs(date, id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
	)},
	{version: 2, name: "job type", apply: execAll(
		`ALTER TABLE jobs ADD COLUMN job_type TEXT NOT NULL DEFAULT 'normal'`,
	)},
	{version: 3, name: "team and duration", apply: execAll(
		`ALTER TABLE jobs ADD COLUMN team TEXT NOT NULL DEFAULT ''`, // legacy comma-joined names, see version 5
		`ALTER TABLE jobs ADD COLUMN duration_days INTEGER NOT NULL DEFAULT 0`,
	)},
	{version: 4, name: "personnel table", apply: execAll(
		`CREATE TABLE IF NOT EXISTS personnel (name TEXT PRIMARY KEY)`,
	)},
	{version: 5, name: "job team relation", apply: migrateTeams},
	{version: 6, name: "legacy isler import", apply: importLegacy},
}

func execAll(queries ...string) func(ctx context.Context, tx *sqlx.Tx) error {
	return func(ctx context.Context, tx *sqlx.Tx) error {
		for _, q := range queries {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("failed to execute %q: %w", firstLine(q), err)
			}
		}
		return nil
	}
}

// migrateTeams creates the ordered job_team relation and moves legacy comma-joined team values into it
func migrateTeams(ctx context.Context, tx *sqlx.Tx) error {
	err := execAll(
		`CREATE TABLE IF NOT EXISTS job_team (
			job_id INTEGER NOT NULL,
			pos INTEGER NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (job_id, pos)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_team_name ON job_team(name)`,
	)(ctx, tx)
	if err != nil {
		return err
	}

	var legacy []struct {
		ID   int64  `db:"id"`
		Team string `db:"team"`
	}
	if err := tx.SelectContext(ctx, &legacy, `SELECT id, team FROM jobs WHERE team != ''`); err != nil {
		return fmt.Errorf("failed to load legacy teams: %w", err)
	}
	for _, l := range legacy {
		if err := insertTeam(ctx, tx, l.ID, SplitTeam(l.Team)); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET team = ''`); err != nil {
		return fmt.Errorf("failed to clear legacy teams: %w", err)
	}
	if len(legacy) > 0 {
		log.Printf("[INFO] moved legacy team lists of %d jobs", len(legacy))
	}
	return nil
}

// importLegacy copies records of the legacy "isler" table if the database has one
func importLegacy(ctx context.Context, tx *sqlx.Tx) error {
	var count int
	if err := tx.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='isler'`); err != nil {
		return fmt.Errorf("failed to check legacy table: %w", err)
	}
	if count == 0 {
		return nil
	}

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO jobs (id, date, customer, address, description, note, status)
		SELECT id, COALESCE(tarih, ''), COALESCE(musteri, ''), COALESCE(adres, ''),
			COALESCE(is_tanimi, ''), COALESCE(aciklama, ''),
			CASE durum WHEN 'Tamamlandı' THEN 'completed' ELSE 'pending' END
		FROM isler`)
	if err != nil {
		return fmt.Errorf("failed to import legacy jobs: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		log.Printf("[INFO] imported %d legacy jobs", n)
	}
	return nil
}

// migrate applies all migrations not yet recorded in schema_version
func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	var applied []int
	if err := s.db.SelectContext(ctx, &applied, `SELECT version FROM schema_version`); err != nil {
		return fmt.Errorf("failed to load applied migrations: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range migrations {
		if done[m.version] {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		log.Printf("[INFO] applied migration %d, %s", m.version, m.name)
	}
	return nil
}

func (s *SQLiteStore) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := m.apply(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		m.version, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to record version: %w", err)
	}
	return tx.Commit()
}

func firstLine(q string) string {
	q = strings.TrimSpace(q)
	if idx := strings.IndexByte(q, '\n'); idx > 0 {
		return q[:idx]
	}
	return q
}
