package boundary

import (
	"context"

	"github.com/EleDiaz/LibSql.Bindings/internal/bridge"
	"github.com/EleDiaz/LibSql.Bindings/internal/engine"
	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
)

// txEntry is what a transaction handle owns. ref is the borrowed connection handed out
// by TxConnection, released together with the transaction.
type txEntry struct {
	tx  *engine.Tx
	ref handle.Token
}

// Begin starts a transaction on conn. behavior is a boundary code, unknown codes start
// a deferred transaction. Codes: 1 begin failure.
func (b *Bridge) Begin(conn handle.Token, behavior int) (handle.Token, error) {
	c, err := b.conn(conn)
	if err != nil {
		return 0, err
	}
	tx, err := bridge.Block(b.rt, func(ctx context.Context) (*engine.Tx, error) {
		return c.Begin(ctx, engine.BehaviorFromCode(behavior))
	})
	if err != nil {
		return 0, fail(1, "Error creating transaction: %w", err)
	}
	return b.handles.Insert(handle.KindTransaction, &txEntry{tx: tx}), nil
}

// Commit ends tx keeping its changes. tx and its borrowed connection are released even
// if the commit fails. Codes: 1 commit failure.
func (b *Bridge) Commit(tx handle.Token) error {
	e, err := b.takeTx(tx)
	if err != nil {
		return err
	}
	if err := b.do(e.tx.Commit); err != nil {
		return fail(1, "Transaction Commit: %w", err)
	}
	return nil
}

// Rollback ends tx discarding its changes, releasing it like Commit.
// Codes: 1 rollback failure.
func (b *Bridge) Rollback(tx handle.Token) error {
	e, err := b.takeTx(tx)
	if err != nil {
		return err
	}
	if err := b.do(e.tx.Rollback); err != nil {
		return fail(1, "Transaction Rollback: %w", err)
	}
	return nil
}

// TxConnection returns a borrowed reference to the connection tx runs on. The reference
// works with every connection operation except Disconnect and dies with tx.
func (b *Bridge) TxConnection(tx handle.Token) (handle.Token, error) {
	e, err := handle.Lookup[*txEntry](b.handles, tx, handle.KindTransaction)
	if err != nil {
		return 0, badHandle(err)
	}
	if e.ref.IsNull() {
		e.ref = b.handles.Insert(handle.KindConnectionRef, e.tx.Conn())
	}
	return e.ref, nil
}

func (b *Bridge) takeTx(tx handle.Token) (*txEntry, error) {
	e, err := handle.Take[*txEntry](b.handles, tx, handle.KindTransaction)
	if err != nil {
		return nil, badHandle(err)
	}
	if !e.ref.IsNull() {
		_, _ = b.handles.Remove(e.ref, handle.KindConnectionRef)
	}
	return e, nil
}
