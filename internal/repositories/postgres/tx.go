package postgres

import (
	"context"
	"database/sql"
	"errors"
)

type txContextKey struct{}

func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// store holds the shared connection pool and resolves the active querier,
// preferring a transaction carried on the context.
type store struct {
	db *sql.DB
}

func (s *store) querier(ctx context.Context) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return s.db
}

func (s *store) inTx(ctx context.Context) bool {
	_, ok := txFromContext(ctx)
	return ok
}

// RunInTx implements repositories.UnitOfWork. Repository calls made with the
// context passed to fn share one transaction and observe its uncommitted
// writes. Nested calls join the ambient transaction.
func (s *store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return wrapError("tx", errors.New("postgres: transaction function is nil"))
	}
	if s.inTx(ctx) {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("tx.begin", err)
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	return wrapError("tx.commit", tx.Commit())
}
