package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

// ErrDuplicate returned when a unique value already exists
var ErrDuplicate = errors.New("already exists")

// SQLiteStore implements persistence using SQLite
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens the database at dbPath and applies pending migrations
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// in-memory databases are per-connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to connect: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to migrate: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	log.Printf("[DEBUG] sqlite store ready at %s", dbPath)
	return s, nil
}

// dsn adds per-connection pragmas, WAL mode for file databases and a busy timeout for all
func dsn(dbPath string) string {
	pragmas := []string{"_pragma=busy_timeout(5000)"}
	if dbPath != ":memory:" {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(pragmas, "&")
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
