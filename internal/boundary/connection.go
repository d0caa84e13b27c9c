package boundary

import (
	"context"
	"log"

	"github.com/EleDiaz/LibSql.Bindings/internal/bridge"
	"github.com/EleDiaz/LibSql.Bindings/internal/engine"
	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
)

// conn resolves a connection, owned or borrowed from a transaction.
func (b *Bridge) conn(tok handle.Token) (*engine.Conn, error) {
	c, err := handle.Lookup[*engine.Conn](b.handles, tok, handle.KindConnection, handle.KindConnectionRef)
	if err != nil {
		return nil, badHandle(err)
	}
	return c, nil
}

// Query runs sql and returns a rows handle. Codes: 1 bad sql or query failure.
func (b *Bridge) Query(conn handle.Token, sql string) (handle.Token, error) {
	return b.query(conn, sql, 1, nil)
}

// QueryPositional runs sql with positional parameters. Codes: 1 bad sql, 2 query failure.
func (b *Bridge) QueryPositional(conn handle.Token, sql string, values handle.Token) (handle.Token, error) {
	args, err := b.positionalArgs(values)
	if err != nil {
		return 0, err
	}
	return b.query(conn, sql, 2, args)
}

// QueryNamed runs sql with named parameters. Codes: 1 bad sql, 2 query failure.
func (b *Bridge) QueryNamed(conn handle.Token, sql string, values handle.Token) (handle.Token, error) {
	args, err := b.namedArgs(values)
	if err != nil {
		return 0, err
	}
	return b.query(conn, sql, 2, args)
}

func (b *Bridge) query(conn handle.Token, sql string, code int, args []any) (handle.Token, error) {
	c, err := b.conn(conn)
	if err != nil {
		return 0, err
	}
	if sql, err = decode(sql, 1, "Wrong SQL"); err != nil {
		return 0, err
	}
	rows, err := bridge.Block(b.rt, func(ctx context.Context) (*engine.Rows, error) {
		return c.Query(ctx, sql, args...)
	})
	if err != nil {
		return 0, fail(code, "Error executing statement: %w", err)
	}
	return b.handles.Insert(handle.KindRows, rows), nil
}

// ExecuteNone runs sql and returns the number of changed rows. Codes: 1 bad sql,
// 2 execution failure.
func (b *Bridge) ExecuteNone(conn handle.Token, sql string) (int64, error) {
	return b.execute(conn, sql, nil)
}

// ExecutePositional runs sql with positional parameters. Codes: 1 bad sql, 2 execution
// failure.
func (b *Bridge) ExecutePositional(conn handle.Token, sql string, values handle.Token) (int64, error) {
	args, err := b.positionalArgs(values)
	if err != nil {
		return 0, err
	}
	return b.execute(conn, sql, args)
}

// ExecuteNamed runs sql with named parameters. Codes: 1 bad sql, 2 execution failure.
func (b *Bridge) ExecuteNamed(conn handle.Token, sql string, values handle.Token) (int64, error) {
	args, err := b.namedArgs(values)
	if err != nil {
		return 0, err
	}
	return b.execute(conn, sql, args)
}

func (b *Bridge) execute(conn handle.Token, sql string, args []any) (int64, error) {
	c, err := b.conn(conn)
	if err != nil {
		return 0, err
	}
	if sql, err = decode(sql, 1, "Wrong SQL"); err != nil {
		return 0, err
	}
	n, err := bridge.Block(b.rt, func(ctx context.Context) (int64, error) {
		return c.Execute(ctx, sql, args...)
	})
	if err != nil {
		return 0, fail(2, "Error executing statement: %w", err)
	}
	return n, nil
}

// ExecuteBatch runs every statement of sql and returns a batch handle over their
// results. A failing statement stops the batch and is reported by NextBatch.
// Codes: 1 bad sql.
func (b *Bridge) ExecuteBatch(conn handle.Token, sql string) (handle.Token, error) {
	c, err := b.conn(conn)
	if err != nil {
		return 0, err
	}
	if sql, err = decode(sql, 1, "Wrong SQL"); err != nil {
		return 0, err
	}
	batch, err := bridge.Block(b.rt, func(ctx context.Context) (*engine.Batch, error) {
		return c.ExecuteBatch(ctx, sql), nil
	})
	if err != nil {
		return 0, fail(2, "Error executing statement: %w", err)
	}
	return b.handles.Insert(handle.KindBatchRows, batch), nil
}

// Prepare compiles sql into a statement handle. Codes: 1 bad sql or prepare failure.
func (b *Bridge) Prepare(conn handle.Token, sql string) (handle.Token, error) {
	c, err := b.conn(conn)
	if err != nil {
		return 0, err
	}
	if sql, err = decode(sql, 1, "Wrong SQL"); err != nil {
		return 0, err
	}
	st, err := bridge.Block(b.rt, func(ctx context.Context) (*engine.Stmt, error) {
		return c.Prepare(ctx, sql)
	})
	if err != nil {
		return 0, fail(1, "Error preparing statement: %w", err)
	}
	return b.handles.Insert(handle.KindStatement, st), nil
}

// LoadExtension loads a shared library extension, an empty entry point selects the
// default one. Codes: 2 bad path, 4 bad entry point, 6 load failure.
func (b *Bridge) LoadExtension(conn handle.Token, path, entry string) error {
	c, err := b.conn(conn)
	if err != nil {
		return err
	}
	if path, err = decode(path, 2, "Wrong path"); err != nil {
		return err
	}
	if entry, err = decode(entry, 4, "Wrong entry point"); err != nil {
		return err
	}
	err = b.do(func(ctx context.Context) error {
		return c.LoadExtension(ctx, path, entry)
	})
	if err != nil {
		return fail(6, "Error loading extension: %w", err)
	}
	return nil
}

// Reset rolls back pending work and clears the change counters of conn.
// Codes: 1 reset failure.
func (b *Bridge) Reset(conn handle.Token) error {
	c, err := b.conn(conn)
	if err != nil {
		return err
	}
	if err := b.do(c.Reset); err != nil {
		return fail(1, "Error resetting connection: %w", err)
	}
	return nil
}

// Changes returns the rows changed by the last execute on conn, 0 for a bad handle.
func (b *Bridge) Changes(conn handle.Token) uint64 {
	c, err := b.conn(conn)
	if err != nil {
		log.Printf("[WARN] changes, %v", err)
		return 0
	}
	return uint64(c.Changes())
}

// LastInsertRowID returns the rowid of the last insert on conn, 0 for a bad handle.
func (b *Bridge) LastInsertRowID(conn handle.Token) int64 {
	c, err := b.conn(conn)
	if err != nil {
		log.Printf("[WARN] last insert rowid, %v", err)
		return 0
	}
	return c.LastInsertRowID()
}

// Disconnect releases conn and closes it in the background. A connection borrowed from
// a transaction can't be disconnected.
func (b *Bridge) Disconnect(conn handle.Token) error {
	return release(b, conn, handle.KindConnection, func(c *engine.Conn) {
		b.rt.Spawn(func(ctx context.Context) {
			if err := c.Close(ctx); err != nil {
				log.Printf("[WARN] close connection, %v", err)
			}
		})
	})
}
