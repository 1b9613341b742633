package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/command"
)

// begin runs the before-execute hook and applies the command timeout.
func (a *Adapter[T]) begin(ctx context.Context, cmd *command.Command) (context.Context, context.CancelFunc, error) {
	if a.opts.BeforeExecute != nil {
		if err := a.opts.BeforeExecute(ctx, cmd); err != nil {
			a.logger.Debug("Command canceled before execution", zap.String("sql", cmd.Text), zap.Error(err))
			return nil, nil, fmt.Errorf("%w: %w", ErrOperationCanceled, err)
		}
	}
	if a.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		return ctx, cancel, nil
	}
	return ctx, func() {}, nil
}

// exec runs a statement and returns the affected-row count, or -1 when the
// driver cannot report it.
func (a *Adapter[T]) exec(ctx context.Context, r Runner, op string, cmd *command.Command) (int64, error) {
	ctx, cancel, err := a.begin(ctx, cmd)
	if err != nil {
		return -1, err
	}
	defer cancel()

	a.logger.Debug("Executing SQL", zap.String("op", op), zap.String("sql", cmd.Text), zap.Int("params", len(cmd.Params)))
	start := time.Now()
	res, err := r.ExecContext(ctx, cmd.Text, cmd.Args(a.dialect)...)
	a.metrics.recordCommand(a.table, op, time.Since(start), err)
	if err != nil {
		a.logger.Error("Failed to execute command", zap.String("op", op), zap.Error(err), zap.String("sql", cmd.Text))
		return -1, &DataAccessError{Op: op, Index: -1, Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		a.logger.Debug("Driver cannot report affected rows", zap.String("op", op), zap.Error(err))
		return -1, nil
	}
	return n, nil
}

// query runs a statement returning rows. The caller closes the rows, then
// calls the returned cancel function.
func (a *Adapter[T]) query(ctx context.Context, r Runner, op string, cmd *command.Command) (*sql.Rows, context.CancelFunc, error) {
	ctx, cancel, err := a.begin(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	a.logger.Debug("Executing SQL", zap.String("op", op), zap.String("sql", cmd.Text), zap.Int("params", len(cmd.Params)))
	start := time.Now()
	rows, err := r.QueryContext(ctx, cmd.Text, cmd.Args(a.dialect)...)
	a.metrics.recordCommand(a.table, op, time.Since(start), err)
	if err != nil {
		cancel()
		a.logger.Error("Failed to execute query", zap.String("op", op), zap.Error(err), zap.String("sql", cmd.Text))
		return nil, nil, &DataAccessError{Op: op, Index: -1, Err: err}
	}
	return rows, cancel, nil
}

// readRecord runs cmd and returns its first row, or nil when it returns
// none.
func (a *Adapter[T]) readRecord(ctx context.Context, r Runner, op string, cmd *command.Command) (*record, error) {
	rows, cancel, err := a.query(ctx, r, op, cmd)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	if !rows.Next() {
		return nil, dataAccess(op, rows.Err())
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return nil, dataAccess(op, err)
	}
	return rec, nil
}

// scalar runs cmd and returns the first column of its first row as an int64.
func (a *Adapter[T]) scalar(ctx context.Context, op string, cmd *command.Command) (int64, error) {
	rows, cancel, err := a.query(ctx, a.db, op, cmd)
	if err != nil {
		return 0, err
	}
	defer cancel()
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, dataAccess(op, err)
		}
		return 0, nil
	}
	var n sql.NullInt64
	if err := rows.Scan(&n); err != nil {
		return 0, dataAccess(op, fmt.Errorf("failed to scan result: %w", err))
	}
	return n.Int64, nil
}

// session runs fn on one dedicated connection when the runner can hand one
// out, so that statement pairs observe the same session.
func (a *Adapter[T]) session(ctx context.Context, fn func(r Runner) error) error {
	c, ok := a.db.(connector)
	if !ok {
		return fn(a.db)
	}
	conn, err := c.Conn(ctx)
	if err != nil {
		return dataAccess("connect", err)
	}
	defer conn.Close()
	return fn(conn)
}

// sequence runs fn on a dedicated connection when cmds holds more than one
// statement, and on the adapter's runner otherwise.
func (a *Adapter[T]) sequence(ctx context.Context, cmds []*command.Command, fn func(r Runner) error) error {
	if len(cmds) > 1 {
		return a.session(ctx, fn)
	}
	return fn(a.db)
}
