package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"
	// Postgres via pgx database/sql bridge.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// SQLStorage implements Storage on database/sql. The same repositories serve
// SQLite and Postgres; only placeholders and the migration set differ.
type SQLStorage struct {
	dsn     string
	dialect dialect
	logger  *slog.Logger
	db      *sql.DB

	alerts     *sqlAlertRepo
	channels   *sqlChannelRepo
	deliveries *sqlDeliveryRepo
	rules      *sqlRuleRepo
}

// NewSQLiteStorage creates storage backed by the SQLite file at path.
func NewSQLiteStorage(path string, logger *slog.Logger) *SQLStorage {
	return &SQLStorage{dsn: path, dialect: sqliteDialect, logger: orDefault(logger)}
}

// NewPostgresStorage creates storage backed by the Postgres database at dsn.
func NewPostgresStorage(dsn string, logger *slog.Logger) *SQLStorage {
	return &SQLStorage{dsn: dsn, dialect: postgresDialect, logger: orDefault(logger)}
}

// New picks the implementation by driver name ("sqlite" or "postgres").
func New(driver, dsn string, logger *slog.Logger) (*SQLStorage, error) {
	switch driver {
	case "sqlite", "sqlite3", "":
		return NewSQLiteStorage(dsn, logger), nil
	case "postgres", "postgresql", "pgx":
		return NewPostgresStorage(dsn, logger), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Open initializes the database connection.
func (s *SQLStorage) Open(ctx context.Context) error {
	dsn := s.dsn
	if s.dialect.name == sqliteDialect.name {
		dsn = "file:" + s.dsn + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open(s.dialect.name, dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if s.dialect.name == sqliteDialect.name {
		db.SetMaxOpenConns(1) // SQLite is single-writer
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	s.db = db
	s.alerts = &sqlAlertRepo{db: db, d: s.dialect}
	s.channels = &sqlChannelRepo{db: db, d: s.dialect}
	s.deliveries = &sqlDeliveryRepo{db: db, d: s.dialect}
	s.rules = &sqlRuleRepo{db: db, d: s.dialect}

	return nil
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLStorage) DB() *sql.DB {
	return s.db
}

// Ping verifies the database is reachable.
func (s *SQLStorage) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not open")
	}
	return s.db.PingContext(ctx)
}

// Migrate runs database migrations.
func (s *SQLStorage) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db, s.dialect, s.logger)
}

// Driver reports the database/sql driver in use.
func (s *SQLStorage) Driver() string {
	return s.dialect.name
}

// Alerts returns the alert repository.
func (s *SQLStorage) Alerts() AlertRepository {
	return s.alerts
}

// Channels returns the channel preference repository.
func (s *SQLStorage) Channels() ChannelRepository {
	return s.channels
}

// Deliveries returns the delivery log repository.
func (s *SQLStorage) Deliveries() DeliveryRepository {
	return s.deliveries
}

// Rules returns the alert rule repository.
func (s *SQLStorage) Rules() RuleRepository {
	return s.rules
}
