package engine

import (
	"context"
	"database/sql"
)

// Stmt is a prepared statement bound to the connection that prepared it.
type Stmt struct {
	conn      *Conn
	query     string
	stmt      *sql.Stmt
	finalized bool
}

// SQL returns the statement text.
func (s *Stmt) SQL() string { return s.query }

// Query runs the statement with args and returns its rows.
func (s *Stmt) Query(ctx context.Context, args ...any) (*Rows, error) {
	if s.finalized {
		return nil, ErrStmtFinalized
	}
	src, err := s.stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return s.conn.track(src)
}

// Execute runs the statement with args and returns the number of changed rows.
func (s *Stmt) Execute(ctx context.Context, args ...any) (int64, error) {
	if s.finalized {
		return 0, ErrStmtFinalized
	}
	res, err := s.stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, err
	}
	return s.conn.applyResult(ctx, res), nil
}

// Run runs the statement to completion, discarding any rows it returns.
func (s *Stmt) Run(ctx context.Context, args ...any) error {
	if s.finalized {
		return ErrStmtFinalized
	}
	src, err := s.stmt.QueryContext(ctx, args...)
	if err != nil {
		return err
	}
	for src.Next() {
	}
	if err := src.Err(); err != nil {
		_ = src.Close()
		return err
	}
	return src.Close()
}

// Reset makes the statement ready for another run. Statements are reset after every
// run already, so only the finalized state is checked.
func (s *Stmt) Reset() error {
	if s.finalized {
		return ErrStmtFinalized
	}
	return nil
}

// Finalize releases the compiled statement. Finalizing twice is a no-op.
func (s *Stmt) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true
	return s.stmt.Close()
}
