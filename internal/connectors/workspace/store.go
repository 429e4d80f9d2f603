package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"protein-analysis-ui/internal/config"
)

// ErrNotFound is returned for unknown ids.
var ErrNotFound = errors.New("workspace: not found")

// Observer receives one call per store query.
type Observer func(operation string, durationSeconds float64, err error)

// Store keeps the app-owned workspace: datasets, saved queries and the
// activity log. It runs on sqlite or mysql.
type Store struct {
	db           *sql.DB
	driver       string
	location     string
	queryTimeout time.Duration
	observe      Observer
}

// ServiceStats is a lightweight health summary.
type ServiceStats struct {
	Driver       string `json:"driver"`
	Location     string `json:"location"`
	PingMS       int64  `json:"ping_ms"`
	Datasets     int64  `json:"datasets"`
	SavedQueries int64  `json:"saved_queries"`
	Activity     int64  `json:"activity"`
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS datasets (
  id VARCHAR(64) PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  version VARCHAR(32) NOT NULL,
  records BIGINT NOT NULL,
  size_bytes BIGINT NOT NULL,
  status VARCHAR(32) NOT NULL,
  format VARCHAR(32) NOT NULL,
  source VARCHAR(255) NOT NULL,
  description TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS saved_queries (
  id VARCHAR(64) PRIMARY KEY,
  owner VARCHAR(255) NOT NULL,
  name VARCHAR(255) NOT NULL,
  query TEXT NOT NULL,
  tipo VARCHAR(32) NOT NULL,
  created_at BIGINT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS activity (
  id VARCHAR(64) PRIMARY KEY,
  actor VARCHAR(255) NOT NULL,
  panel VARCHAR(32) NOT NULL,
  action VARCHAR(64) NOT NULL,
  detail TEXT NOT NULL,
  created_at BIGINT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_saved_queries_owner ON saved_queries(owner);`,
	`CREATE INDEX IF NOT EXISTS idx_activity_created ON activity(created_at);`,
}

// mysql has no CREATE INDEX IF NOT EXISTS; indexes are declared inline.
var mysqlSchema = []string{
	sqliteSchema[0],
	`CREATE TABLE IF NOT EXISTS saved_queries (
  id VARCHAR(64) PRIMARY KEY,
  owner VARCHAR(255) NOT NULL,
  name VARCHAR(255) NOT NULL,
  query TEXT NOT NULL,
  tipo VARCHAR(32) NOT NULL,
  created_at BIGINT NOT NULL,
  INDEX idx_saved_queries_owner (owner)
) DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS activity (
  id VARCHAR(64) PRIMARY KEY,
  actor VARCHAR(255) NOT NULL,
  panel VARCHAR(32) NOT NULL,
  action VARCHAR(64) NOT NULL,
  detail TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  INDEX idx_activity_created (created_at)
) DEFAULT CHARSET=utf8mb4;`,
}

// Open connects the store selected by cfg.StoreDriver.
func Open(cfg config.Config) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMySQL:
		return open("mysql", cfg.MySQLDSN(), fmt.Sprintf("%s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName), cfg.DBConnTimeout, cfg.DBQueryTimeout, mysqlSchema)
	case config.StoreDriverSQLite, "":
		return NewSQLiteStore(cfg.StoreSQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func NewSQLiteStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	return open("sqlite", path, path, 5*time.Second, 5*time.Second, sqliteSchema)
}

func open(driver, dsn, location string, connTimeout, queryTimeout time.Duration, schema []string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	if connTimeout <= 0 {
		connTimeout = 5 * time.Second
	}
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("workspace schema: %w", err)
		}
	}
	return &Store{db: db, driver: driver, location: location, queryTimeout: queryTimeout}, nil
}

// SetObserver reports every query to fn.
func (s *Store) SetObserver(fn Observer) {
	if s != nil {
		s.observe = fn
	}
}

func (s *Store) Enabled() bool {
	return s != nil && s.db != nil
}

func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ServiceStats pings the database and counts rows.
func (s *Store) ServiceStats(ctx context.Context) (out *ServiceStats, err error) {
	ctx, done := s.begin(ctx, "ServiceStats", &err)
	defer done()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return nil, err
	}
	out = &ServiceStats{Driver: s.driver, Location: s.location, PingMS: time.Since(start).Milliseconds()}
	for _, c := range []struct {
		table string
		dst   *int64
	}{
		{"datasets", &out.Datasets},
		{"saved_queries", &out.SavedQueries},
		{"activity", &out.Activity},
	} {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dst); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// begin applies the query timeout and returns a func that records the
// operation once the caller's named error is final.
func (s *Store) begin(ctx context.Context, op string, errp *error) (context.Context, func()) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	return ctx, func() {
		cancel()
		if s.observe != nil {
			s.observe(op, time.Since(start).Seconds(), *errp)
		}
	}
}
