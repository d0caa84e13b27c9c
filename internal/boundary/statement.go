package boundary

import (
	"context"
	"log"

	"github.com/EleDiaz/LibSql.Bindings/internal/bridge"
	"github.com/EleDiaz/LibSql.Bindings/internal/engine"
	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
)

func (b *Bridge) stmt(tok handle.Token) (*engine.Stmt, error) {
	st, err := handle.Lookup[*engine.Stmt](b.handles, tok, handle.KindStatement)
	if err != nil {
		return nil, badHandle(err)
	}
	return st, nil
}

// QueryStmt runs stmt and returns a rows handle. Codes: 1 query failure.
func (b *Bridge) QueryStmt(stmt handle.Token) (handle.Token, error) {
	return b.queryStmt(stmt, nil)
}

// QueryStmtPositional runs stmt with positional parameters. Codes: 1 query failure.
func (b *Bridge) QueryStmtPositional(stmt, values handle.Token) (handle.Token, error) {
	args, err := b.positionalArgs(values)
	if err != nil {
		return 0, err
	}
	return b.queryStmt(stmt, args)
}

// QueryStmtNamed runs stmt with named parameters. Codes: 1 query failure.
func (b *Bridge) QueryStmtNamed(stmt, values handle.Token) (handle.Token, error) {
	args, err := b.namedArgs(values)
	if err != nil {
		return 0, err
	}
	return b.queryStmt(stmt, args)
}

func (b *Bridge) queryStmt(stmt handle.Token, args []any) (handle.Token, error) {
	st, err := b.stmt(stmt)
	if err != nil {
		return 0, err
	}
	rows, err := bridge.Block(b.rt, func(ctx context.Context) (*engine.Rows, error) {
		return st.Query(ctx, args...)
	})
	if err != nil {
		return 0, fail(1, "Error executing statement: %w", err)
	}
	return b.handles.Insert(handle.KindRows, rows), nil
}

// ExecuteStmt runs stmt and returns the number of changed rows. Codes: 2 execution failure.
func (b *Bridge) ExecuteStmt(stmt handle.Token) (int64, error) {
	return b.executeStmt(stmt, nil)
}

// ExecuteStmtPositional runs stmt with positional parameters. Codes: 2 execution failure.
func (b *Bridge) ExecuteStmtPositional(stmt, values handle.Token) (int64, error) {
	args, err := b.positionalArgs(values)
	if err != nil {
		return 0, err
	}
	return b.executeStmt(stmt, args)
}

// ExecuteStmtNamed runs stmt with named parameters. Codes: 2 execution failure.
func (b *Bridge) ExecuteStmtNamed(stmt, values handle.Token) (int64, error) {
	args, err := b.namedArgs(values)
	if err != nil {
		return 0, err
	}
	return b.executeStmt(stmt, args)
}

func (b *Bridge) executeStmt(stmt handle.Token, args []any) (int64, error) {
	st, err := b.stmt(stmt)
	if err != nil {
		return 0, err
	}
	n, err := bridge.Block(b.rt, func(ctx context.Context) (int64, error) {
		return st.Execute(ctx, args...)
	})
	if err != nil {
		return 0, fail(2, "Error executing statement: %w", err)
	}
	return n, nil
}

// RunStmt runs stmt to completion discarding its rows. Codes: 1 execution failure.
func (b *Bridge) RunStmt(stmt handle.Token) error {
	return b.runStmt(stmt, nil)
}

// RunStmtPositional runs stmt with positional parameters. Codes: 1 execution failure.
func (b *Bridge) RunStmtPositional(stmt, values handle.Token) error {
	args, err := b.positionalArgs(values)
	if err != nil {
		return err
	}
	return b.runStmt(stmt, args)
}

// RunStmtNamed runs stmt with named parameters. Codes: 1 execution failure.
func (b *Bridge) RunStmtNamed(stmt, values handle.Token) error {
	args, err := b.namedArgs(values)
	if err != nil {
		return err
	}
	return b.runStmt(stmt, args)
}

func (b *Bridge) runStmt(stmt handle.Token, args []any) error {
	st, err := b.stmt(stmt)
	if err != nil {
		return err
	}
	err = b.do(func(ctx context.Context) error {
		return st.Run(ctx, args...)
	})
	if err != nil {
		return fail(1, "Error executing statement: %w", err)
	}
	return nil
}

// ResetStmt makes stmt ready for another run. Codes: 1 finalized statement.
func (b *Bridge) ResetStmt(stmt handle.Token) error {
	st, err := b.stmt(stmt)
	if err != nil {
		return err
	}
	if err := st.Reset(); err != nil {
		return fail(1, "Error resetting statement: %w", err)
	}
	return nil
}

// FinalizeStmt releases the compiled statement, the handle stays valid until FreeStmt.
func (b *Bridge) FinalizeStmt(stmt handle.Token) error {
	st, err := b.stmt(stmt)
	if err != nil {
		return err
	}
	if err := b.do(func(context.Context) error { return st.Finalize() }); err != nil {
		log.Printf("[DEBUG] finalize statement, %v", err)
	}
	return nil
}

// FreeStmt releases stmt, finalizing it if needed.
func (b *Bridge) FreeStmt(stmt handle.Token) error {
	return release(b, stmt, handle.KindStatement, func(st *engine.Stmt) {
		if err := st.Finalize(); err != nil {
			log.Printf("[DEBUG] finalize statement on free, %v", err)
		}
	})
}
