package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
)

// Conn is a single connection to a Database. A Conn is not meant for concurrent use,
// its mutex only protects the bookkeeping of open rows.
type Conn struct {
	db   *Database
	conn *sql.Conn

	tx      *Tx
	changes int64
	lastID  int64

	mu   sync.Mutex
	rows map[*Rows]struct{}
}

func newConn(db *Database, c *sql.Conn) *Conn {
	return &Conn{db: db, conn: c, rows: map[*Rows]struct{}{}}
}

// Query runs a statement and returns its rows. The rows stream from the engine and
// keep the connection busy until they are closed.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	src, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return c.track(src)
}

// Execute runs a statement and returns the number of changed rows.
func (c *Conn) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return c.applyResult(ctx, res), nil
}

// Prepare compiles a statement for repeated use on this connection.
func (c *Conn) Prepare(ctx context.Context, query string) (*Stmt, error) {
	st, err := c.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &Stmt{conn: c, query: query, stmt: st}, nil
}

// Begin starts a transaction with the given behavior. Read-only transactions are deferred
// transactions with writes refused by the engine until they end.
func (c *Conn) Begin(ctx context.Context, b Behavior) (*Tx, error) {
	if c.tx != nil {
		return nil, ErrTxInProgress
	}
	if _, err := c.conn.ExecContext(ctx, b.beginSQL()); err != nil {
		return nil, err
	}
	if b == ReadOnly {
		if _, err := c.conn.ExecContext(ctx, "PRAGMA query_only = 1"); err != nil {
			if _, rerr := c.conn.ExecContext(ctx, "ROLLBACK"); rerr != nil {
				log.Printf("[WARN] can't roll back read-only transaction, %v", rerr)
			}
			return nil, fmt.Errorf("read-only transaction: %w", err)
		}
	}
	c.tx = &Tx{conn: c, behavior: b}
	return c.tx, nil
}

// Reset brings the connection back to a clean state: open rows are closed, a pending
// transaction is rolled back and the change counters are cleared.
func (c *Conn) Reset(ctx context.Context) error {
	c.closeRows()
	if c.tx != nil {
		if err := c.tx.Rollback(ctx); err != nil {
			return err
		}
	}
	if err := c.rollbackPending(ctx); err != nil {
		return err
	}
	c.changes, c.lastID = 0, 0
	return nil
}

// Changes returns the rows changed by the last execute on this connection.
func (c *Conn) Changes() int64 { return c.changes }

// LastInsertRowID returns the rowid of the last insert on this connection.
func (c *Conn) LastInsertRowID() int64 { return c.lastID }

// InTx reports whether a transaction started with Begin is pending.
func (c *Conn) InTx() bool { return c.tx != nil }

// Close releases the connection. Open rows are closed and an unfinished transaction is
// rolled back, so the underlying connection goes back to the pool clean.
func (c *Conn) Close(ctx context.Context) error {
	c.closeRows()
	if c.tx != nil {
		if err := c.tx.Rollback(ctx); err != nil {
			log.Printf("[WARN] can't roll back transaction on close, %v", err)
		}
	}
	if err := c.rollbackPending(ctx); err != nil {
		log.Printf("[WARN] can't roll back pending transaction on close, %v", err)
	}
	return c.conn.Close()
}

func (c *Conn) applyResult(ctx context.Context, res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		n = 0
	}
	c.changes = n
	if id, err := res.LastInsertId(); err == nil {
		c.lastID = id
	}
	c.db.push(ctx)
	return n
}

// rollbackPending ends a transaction opened by a plain BEGIN statement. Only drivers
// reporting their autocommit state are checked.
func (c *Conn) rollbackPending(ctx context.Context) error {
	inTx := false
	err := c.conn.Raw(func(dc any) error {
		if ac, ok := dc.(interface{ AutoCommit() bool }); ok {
			inTx = !ac.AutoCommit()
		}
		return nil
	})
	if err != nil || !inTx {
		return err
	}
	_, err = c.conn.ExecContext(ctx, "ROLLBACK")
	return err
}

func (c *Conn) track(src *sql.Rows) (*Rows, error) {
	cols, err := src.Columns()
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	r := &Rows{conn: c, src: src, cols: cols}
	c.mu.Lock()
	c.rows[r] = struct{}{}
	c.mu.Unlock()
	return r, nil
}

func (c *Conn) untrack(r *Rows) {
	c.mu.Lock()
	delete(c.rows, r)
	c.mu.Unlock()
}

func (c *Conn) closeRows() {
	c.mu.Lock()
	open := make([]*Rows, 0, len(c.rows))
	for r := range c.rows {
		open = append(open, r)
	}
	c.mu.Unlock()
	for _, r := range open {
		if err := r.Close(); err != nil {
			log.Printf("[WARN] can't close rows, %v", err)
		}
	}
}
