package engine

import (
	"database/sql"
	"fmt"

	"github.com/EleDiaz/LibSql.Bindings/internal/value"
)

// Rows is the result set of a query. Rows either stream from the engine or, for
// results of a batch, replay a buffer collected when the batch ran.
type Rows struct {
	conn *Conn
	src  *sql.Rows
	cols []string

	buf  []*value.Row
	pos  int
	done bool
}

func bufferedRows(cols []string, buf []*value.Row) *Rows {
	return &Rows{cols: cols, buf: buf}
}

// ColumnCount returns the number of result columns.
func (r *Rows) ColumnCount() int { return len(r.cols) }

// ColumnName returns the name of column col.
func (r *Rows) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(r.cols) {
		return "", fmt.Errorf("%w: got index %d with %d columns", value.ErrOutOfRange, col, len(r.cols))
	}
	return r.cols[col], nil
}

// Columns returns a copy of the column names.
func (r *Rows) Columns() []string {
	res := make([]string, len(r.cols))
	copy(res, r.cols)
	return res
}

// Next returns the next row, or nil once the rows are exhausted. The row is a snapshot
// and stays valid after the rows are closed.
func (r *Rows) Next() (*value.Row, error) {
	if r.done {
		return nil, nil
	}
	if r.src == nil {
		if r.pos >= len(r.buf) {
			r.done = true
			return nil, nil
		}
		row := r.buf[r.pos]
		r.pos++
		return row, nil
	}

	if !r.src.Next() {
		err := r.src.Err()
		if cerr := r.Close(); err == nil {
			err = cerr
		}
		return nil, err
	}
	row, err := scanRow(r.src, len(r.cols))
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Close releases the rows, closing twice is a no-op.
func (r *Rows) Close() error {
	if r.done && r.src == nil {
		return nil
	}
	r.done = true
	r.buf = nil
	if r.src == nil {
		return nil
	}
	src := r.src
	r.src = nil
	if r.conn != nil {
		r.conn.untrack(r)
	}
	return src.Close()
}

// scanRow reads the current row of src into a snapshot.
func scanRow(src *sql.Rows, n int) (*value.Row, error) {
	raw := make([]any, n)
	dest := make([]any, n)
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := src.Scan(dest...); err != nil {
		return nil, err
	}
	cells := make([]value.Value, n)
	for i, x := range raw {
		v, err := value.FromDriver(x)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		cells[i] = v
	}
	return value.NewRow(cells), nil
}

// collect reads every remaining row of src and closes it.
func collect(src *sql.Rows) ([]string, []*value.Row, error) {
	defer src.Close()
	cols, err := src.Columns()
	if err != nil {
		return nil, nil, err
	}
	var rows []*value.Row
	for src.Next() {
		row, err := scanRow(src, len(cols))
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}
	if err := src.Err(); err != nil {
		return nil, nil, err
	}
	return cols, rows, nil
}
