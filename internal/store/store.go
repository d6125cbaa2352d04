package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/dotstake/indexer/internal/errs"
)

// dbtx is satisfied by *sql.DB and *sql.Tx, letting read/write helpers share
// one code path whether or not they run inside the per-block transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store is the single-writer, multi-reader relational store. One Store
// wraps one SQLite file; the API process opens its own handle and reopens
// it per poll to observe the writer's latest commits (a WAL snapshot
// workaround).
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if absent) the SQLite file at path, applies pragmas
// (WAL, foreign_keys, synchronous=NORMAL) and any pending schema migrations.
func Open(path string, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.NewFatal(errors.Wrap(err, "opening database"))
	}
	db.SetMaxOpenConns(1) // single-writer; modernc.org/sqlite serializes per *DB anyway

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errs.NewFatal(errors.Wrapf(err, "applying %q", pragma))
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + tableMigrations + ` (
		version    INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return errs.NewFatal(errors.Wrap(err, "creating schema_migrations"))
	}

	var current int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM ` + tableMigrations)
	if err := row.Scan(&current); err != nil {
		return errs.NewFatal(errors.Wrap(err, "reading schema version"))
	}

	for v := current + 1; v <= len(migrations); v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return errs.NewFatal(errors.Wrap(err, "beginning migration transaction"))
		}
		if _, err := tx.Exec(migrations[v-1]); err != nil {
			tx.Rollback()
			return errs.NewFatal(errors.Wrapf(err, "applying migration %d", v))
		}
		if _, err := tx.Exec(`INSERT INTO `+tableMigrations+` (version, applied_at) VALUES (?, ?)`, v, time.Now().UnixMilli()); err != nil {
			tx.Rollback()
			return errs.NewFatal(errors.Wrapf(err, "recording migration %d", v))
		}
		if err := tx.Commit(); err != nil {
			return errs.NewFatal(errors.Wrapf(err, "committing migration %d", v))
		}
		s.logger.Info("applied schema migration", zap.Int("version", v))
	}
	return nil
}

// Close flushes and closes the underlying database handle. The
// Supervisor's shutdown path closes the Store last.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw *sql.DB handle so callers that must combine a Store
// write with an EventInterpreter write in one logical transaction (the
// per-block contract) can open and manage that transaction themselves via
// WithTx, while every other read/write still goes through Store's own
// typed operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on any error fn returns — the "one logical transaction" unit
// the per-block contract and reimport worker rely on.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.NewTransient(errors.Wrap(err, "beginning transaction"))
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.NewTransient(errors.Wrap(err, "committing transaction"))
	}
	return nil
}

func blocksTable(chain ChainTag) string {
	if chain == ChainRC {
		return tableBlocksRC
	}
	return tableBlocksAH
}

func eventsTable(chain ChainTag) string {
	if chain == ChainRC {
		return tableEventsRC
	}
	return tableEventsAH
}
