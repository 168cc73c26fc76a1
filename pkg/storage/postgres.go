package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Schema creates the key-value table used by PostgresStore. Rows are keyed by owner.
const Schema = `
CREATE TABLE IF NOT EXISTS client_kv (
    owner      TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (owner, key)
)`

var errNoOwner = errors.New("postgres store: no owner")

// PostgresStore keeps values in a shared Postgres table so preferences follow the user across machines.
// The table is shared, so a store only serves once it is scoped with Owner.
type PostgresStore struct {
	db    *sql.DB
	owner string
}

// NewPostgresStore opens dsn, trying a few connection parameter sets before giving up.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres store: empty DSN")
	}
	strategies := []string{
		addConnectionParams(dsn, "connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&connect_timeout=10"),
		dsn,
	}

	var lastErr error
	for _, strategy := range strategies {
		db, err := sql.Open("postgres", strategy)
		if err != nil {
			lastErr = err
			continue
		}
		db.SetMaxOpenConns(2)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err = db.Ping(); err != nil {
			lastErr = err
			db.Close()
			continue
		}
		return &PostgresStore{db: db}, nil
	}
	return nil, fmt.Errorf("postgres store: all connection strategies failed: %w", lastErr)
}

// NewPostgresStoreFromDB wraps an already opened handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Owner returns a store over the same connection that only sees rows of owner.
func (s *PostgresStore) Owner(owner string) *PostgresStore {
	return &PostgresStore{db: s.db, owner: strings.TrimSpace(owner)}
}

// addConnectionParams appends query parameters to a DSN URL
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}

// EnsureSchema creates the table if it does not exist.
func (s *PostgresStore) EnsureSchema() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("postgres store: create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Available() bool {
	return s != nil && s.db != nil && s.owner != "" && s.db.Ping() == nil
}

func (s *PostgresStore) Get(key string) (string, error) {
	if s.owner == "" {
		return "", errNoOwner
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM client_kv WHERE owner = $1 AND key = $2`, s.owner, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres store: get %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(key, value string) error {
	if s.owner == "" {
		return errNoOwner
	}
	_, err := s.db.Exec(`
        INSERT INTO client_kv (owner, key, value, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (owner, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
    `, s.owner, key, value)
	if err != nil {
		return fmt.Errorf("postgres store: set %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(key string) error {
	if s.owner == "" {
		return errNoOwner
	}
	if _, err := s.db.Exec(`DELETE FROM client_kv WHERE owner = $1 AND key = $2`, s.owner, key); err != nil {
		return fmt.Errorf("postgres store: delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
