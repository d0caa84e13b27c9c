package engine

import (
	"context"
	"log"

	"github.com/hashicorp/go-multierror"
)

// Tx is a transaction running on a connection. The connection stays usable through
// Conn while the transaction is pending.
type Tx struct {
	conn     *Conn
	behavior Behavior
	done     bool
}

// Conn returns the connection the transaction runs on.
func (tx *Tx) Conn() *Conn { return tx.conn }

// Behavior returns the behavior the transaction was started with.
func (tx *Tx) Behavior() Behavior { return tx.behavior }

// Commit ends the transaction keeping its changes. The transaction is done even if the
// commit fails, in that case it is rolled back.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	err := tx.end(ctx, "COMMIT")
	if err != nil {
		if _, rerr := tx.conn.conn.ExecContext(ctx, "ROLLBACK"); rerr != nil {
			log.Printf("[DEBUG] rollback after failed commit, %v", rerr)
		}
	}
	return err
}

// Rollback ends the transaction discarding its changes.
func (tx *Tx) Rollback(ctx context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	return tx.end(ctx, "ROLLBACK")
}

func (tx *Tx) end(ctx context.Context, stmt string) error {
	tx.done = true
	if tx.conn.tx == tx {
		tx.conn.tx = nil
	}
	var errs error
	if _, err := tx.conn.conn.ExecContext(ctx, stmt); err != nil {
		errs = multierror.Append(errs, err)
	}
	if tx.behavior == ReadOnly {
		if _, err := tx.conn.conn.ExecContext(ctx, "PRAGMA query_only = 0"); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs == nil && stmt == "COMMIT" {
		tx.conn.db.push(ctx)
	}
	return errs
}
