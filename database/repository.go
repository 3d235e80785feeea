package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for health checks.
func (r *Repository) DB() *DB {
	return r.db
}

// Ping verifies the database connection is alive.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// txn rebinds placeholders the same way DB does.
type txn struct {
	*sql.Tx
	db *DB
}

func (t *txn) Exec(query string, args ...any) (sql.Result, error) {
	return t.Tx.Exec(t.db.Rebind(query), args...)
}

// inTx runs fn in a transaction, committing only if it returns nil.
func (r *Repository) inTx(fn func(tx *txn) error) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&txn{Tx: tx, db: r.db}); err != nil {
		return err
	}
	return tx.Commit()
}

// utc normalizes timestamps so SQLite's text comparison orders them correctly.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rowsAffected reports sql.ErrNoRows when an update or delete touched nothing.
func rowsAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
