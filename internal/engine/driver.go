package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// localDriver is the database/sql name local databases are opened with.
const localDriver = "sqlite3_stored"

func init() {
	sql.Register(localDriver, &storedDriver{})
}

// storedDriver is go-sqlite3 with declared type decoding switched off. Stock go-sqlite3
// hands DATE, DATETIME and TIMESTAMP cells back as time.Time and BOOLEAN cells as bool,
// rows of this driver carry every cell in the storage class sqlite holds it in.
type storedDriver struct {
	sqlite3.SQLiteDriver
}

func (d *storedDriver) Open(dsn string) (driver.Conn, error) {
	c, err := d.SQLiteDriver.Open(dsn)
	if err != nil {
		return nil, err
	}
	sc, ok := c.(*sqlite3.SQLiteConn)
	if !ok {
		return c, nil
	}
	return &storedConn{SQLiteConn: sc}, nil
}

type storedConn struct {
	*sqlite3.SQLiteConn
}

func (c *storedConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	rows, err := c.SQLiteConn.QueryContext(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return stored(rows), nil
}

func (c *storedConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	s, err := c.SQLiteConn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	ss, ok := s.(*sqlite3.SQLiteStmt)
	if !ok {
		return s, nil
	}
	return &storedStmt{SQLiteStmt: ss}, nil
}

func (c *storedConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

type storedStmt struct {
	*sqlite3.SQLiteStmt
}

func (s *storedStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	rows, err := s.SQLiteStmt.QueryContext(ctx, args)
	if err != nil {
		return nil, err
	}
	return stored(rows), nil
}

func (s *storedStmt) Query(args []driver.Value) (driver.Rows, error) {
	rows, err := s.SQLiteStmt.Query(args)
	if err != nil {
		return nil, err
	}
	return stored(rows), nil
}

// stored blanks the declared column types of go-sqlite3 rows. DeclTypes returns the
// slice Next decodes cells by, with no declared type every cell keeps its storage class.
func stored(rows driver.Rows) driver.Rows {
	if r, ok := rows.(*sqlite3.SQLiteRows); ok {
		clear(r.DeclTypes())
	}
	return rows
}
