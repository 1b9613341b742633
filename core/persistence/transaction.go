package persistence

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
)

type txStarter interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// WithTx returns an adapter running its commands on tx. It shares the
// builder, options, event bus and subscriptions of a.
func (a *Adapter[T]) WithTx(tx *sql.Tx) *Adapter[T] {
	clone := *a
	clone.db = tx
	clone.logger = a.logger.With(zap.Bool("tx", true))
	return &clone
}

// Transact runs fn with a transactional adapter. The transaction is rolled
// back when fn returns an error and committed otherwise.
func (a *Adapter[T]) Transact(ctx context.Context, fn func(tx *Adapter[T]) error) error {
	starter, ok := a.db.(txStarter)
	if !ok {
		return invalidOperation("connection cannot start a transaction")
	}
	tx, err := starter.BeginTx(ctx, nil)
	if err != nil {
		return dataAccess("begin", err)
	}
	a.logger.Debug("Transaction initiated")

	if err := fn(a.WithTx(tx)); err != nil {
		a.logger.Debug("Rolling back transaction", zap.Error(err))
		if rbErr := tx.Rollback(); rbErr != nil {
			a.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	a.logger.Debug("Committing transaction")
	if err := tx.Commit(); err != nil {
		return dataAccess("commit", err)
	}
	return nil
}
