// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Options tunes the connection pool and startup of New.
type Options struct {
	MaxOpenConns   int           // default 25
	ConnectTimeout time.Duration // how long to keep retrying the first ping; default 30s
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 25
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	queries
	db *sql.DB
}

var _ store.Store = (*PostgresStore)(nil)

// New connects to databaseURL, waiting up to opts.ConnectTimeout for the
// server to accept connections, and applies pending migrations.
func New(ctx context.Context, databaseURL string, opts Options) (*PostgresStore, error) {
	opts = opts.withDefaults()

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(max(opts.MaxOpenConns/5, 1))
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := waitReady(ctx, db, opts.ConnectTimeout, opts.Logger); err != nil {
		db.Close()
		return nil, err
	}
	version, err := runMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	opts.Logger.Info("database ready", "schema_version", version, "max_conns", opts.MaxOpenConns)

	return NewWithDB(db), nil
}

// NewWithDB wraps an already-open database without running migrations.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{queries: queries{db: db}, db: db}
}

// waitReady pings db until it answers or timeout elapses. The database
// container usually starts alongside the server, so early refusals are
// expected.
func waitReady(ctx context.Context, db *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := 250 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		logger.Debug("database not ready", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", err)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 4*time.Second)
	}
}

// runMigrations applies the embedded migrations and returns the resulting
// schema version.
func runMigrations(db *sql.DB) (uint, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// RunInTransaction runs fn against a store bound to one transaction,
// committing when fn returns nil.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&txStore{queries{db: tx}}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	queries
}

var _ store.Store = (*txStore)(nil)

// RunInTransaction reuses the open transaction.
func (s *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *txStore) Close() error { return nil }

// queries carries the read and write methods shared by PostgresStore and
// txStore.
type queries struct {
	db executor
}

func (q queries) ListCatalog(ctx context.Context, catalog model.Catalog, filter model.CatalogFilter) ([]model.CatalogItem, int, error) {
	return queryListCatalog(ctx, q.db, catalog, filter)
}

func (q queries) CreatePerson(ctx context.Context, p *model.Person) error {
	return queryCreatePerson(ctx, q.db, p)
}

func (q queries) GetPerson(ctx context.Context, id int64) (*model.Person, error) {
	return queryGetPerson(ctx, q.db, id)
}

func (q queries) FindPersonByPINFL(ctx context.Context, pinfl string) (*model.Person, error) {
	return queryFindPersonByPINFL(ctx, q.db, pinfl)
}

func (q queries) ListPeople(ctx context.Context, limit, offset int) ([]*model.Person, int, error) {
	return queryListPeople(ctx, q.db, limit, offset)
}
