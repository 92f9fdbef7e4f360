package composables

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kwatuha/imes-sub010/pkg/constants"
	"github.com/kwatuha/imes-sub010/pkg/repo"
)

var (
	ErrNoTx   = errors.New("no transaction found in context")
	ErrNoPool = errors.New("no database pool found in context")
)

func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, constants.TxKey, tx)
}

// UseTx returns the transaction stored in ctx and falls back to the pool, so
// read paths work with or without an open transaction.
func UseTx(ctx context.Context) (repo.Tx, error) {
	tx := ctx.Value(constants.TxKey)
	if tx == nil {
		return UsePool(ctx)
	}
	return tx.(repo.Tx), nil
}

func WithPool(ctx context.Context, pool *pgxpool.Pool) context.Context {
	return context.WithValue(ctx, constants.PoolKey, pool)
}

func UsePool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, ok := ctx.Value(constants.PoolKey).(*pgxpool.Pool)
	if !ok || pool == nil {
		return nil, ErrNoPool
	}
	return pool, nil
}

// InTx runs fn in a new transaction taken from the pool in ctx. The
// transaction commits when fn returns nil and rolls back otherwise.
func InTx(ctx context.Context, fn func(context.Context) error) error {
	pool, err := UsePool(ctx)
	if err != nil {
		return err
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	return finish(ctx, tx, fn)
}

// InSavepoint runs fn inside a savepoint of the transaction in ctx. A failing
// fn rolls back to the savepoint and leaves the outer transaction usable.
func InSavepoint(ctx context.Context, fn func(context.Context) error) error {
	outer, ok := ctx.Value(constants.TxKey).(pgx.Tx)
	if !ok {
		return ErrNoTx
	}
	sp, err := outer.Begin(ctx)
	if err != nil {
		return err
	}
	return finish(ctx, sp, fn)
}

func finish(ctx context.Context, tx pgx.Tx, fn func(context.Context) error) error {
	if err := fn(WithTx(ctx, tx)); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// Transactor is the transaction boundary used by services. It lets tests
// substitute an in-memory implementation.
type Transactor interface {
	InTx(ctx context.Context, fn func(context.Context) error) error
	InSavepoint(ctx context.Context, fn func(context.Context) error) error
}

// PgTransactor implements Transactor with InTx and InSavepoint.
type PgTransactor struct{}

func (PgTransactor) InTx(ctx context.Context, fn func(context.Context) error) error {
	return InTx(ctx, fn)
}

func (PgTransactor) InSavepoint(ctx context.Context, fn func(context.Context) error) error {
	return InSavepoint(ctx, fn)
}
