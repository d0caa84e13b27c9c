package boundary

import (
	"context"
	"errors"
	"log"

	"github.com/EleDiaz/LibSql.Bindings/internal/bridge"
	"github.com/EleDiaz/LibSql.Bindings/internal/engine"
	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
	"github.com/EleDiaz/LibSql.Bindings/internal/value"
)

func (b *Bridge) rows(tok handle.Token) (*engine.Rows, error) {
	r, err := handle.Lookup[*engine.Rows](b.handles, tok, handle.KindRows)
	if err != nil {
		return nil, badHandle(err)
	}
	return r, nil
}

func (b *Bridge) row(tok handle.Token) (*value.Row, error) {
	r, err := handle.Lookup[*value.Row](b.handles, tok, handle.KindRow)
	if err != nil {
		return nil, badHandle(err)
	}
	return r, nil
}

// ColumnCount returns the number of result columns, -1 for a bad handle.
func (b *Bridge) ColumnCount(rows handle.Token) int {
	r, err := b.rows(rows)
	if err != nil {
		log.Printf("[WARN] column count, %v", err)
		return -1
	}
	return r.ColumnCount()
}

// ColumnName returns the name of column col. Codes: 1 index out of range or a name the
// caller can't receive.
func (b *Bridge) ColumnName(rows handle.Token, col int) (string, error) {
	r, err := b.rows(rows)
	if err != nil {
		return "", err
	}
	name, err := r.ColumnName(col)
	if err != nil {
		return "", fail(1, "Column index too big - %w", err)
	}
	if containsNUL(name) {
		return "", fail(1, "Invalid name: column %d contains a NUL byte", col)
	}
	return name, nil
}

// ColumnType returns the stored kind of column col in row. rows is the result the row
// was fetched from. Codes: 1 index out of range, 2 fetch failure.
func (b *Bridge) ColumnType(rows, row handle.Token, col int) (value.Kind, error) {
	r, err := b.rows(rows)
	if err != nil {
		return 0, err
	}
	if col < 0 || col >= r.ColumnCount() {
		return 0, fail(1, "Column index too big - got index %d with %d columns", col, r.ColumnCount())
	}
	cur, err := b.row(row)
	if err != nil {
		return 0, err
	}
	kind, err := cur.Kind(col)
	if err != nil {
		return 0, fail(2, "Error fetching value: %w", err)
	}
	return kind, nil
}

// NextRow fetches the next row of rows as a row handle. The null handle marks the end
// of the result. Codes: 1 fetch failure.
func (b *Bridge) NextRow(rows handle.Token) (handle.Token, error) {
	r, err := b.rows(rows)
	if err != nil {
		return 0, err
	}
	row, err := bridge.Block(b.rt, func(context.Context) (*value.Row, error) {
		return r.Next()
	})
	if err != nil {
		return 0, fail(1, "Error fetching next row: %w", err)
	}
	if row == nil {
		return 0, nil
	}
	return b.handles.Insert(handle.KindRow, row), nil
}

// FreeRows releases rows. Rows already fetched stay valid.
func (b *Bridge) FreeRows(rows handle.Token) error {
	return release(b, rows, handle.KindRows, func(r *engine.Rows) {
		if err := r.Close(); err != nil {
			log.Printf("[DEBUG] close rows, %v", err)
		}
	})
}

// FreeRow releases a row handle.
func (b *Bridge) FreeRow(row handle.Token) error {
	return release[*value.Row](b, row, handle.KindRow, nil)
}

// GetInt returns the integer at col. Codes: 1 not an integer, 2 fetch failure.
func (b *Bridge) GetInt(row handle.Token, col int) (int64, error) {
	r, err := b.row(row)
	if err != nil {
		return 0, err
	}
	v, err := r.Int(col)
	if err != nil {
		return 0, getError(err, "Value not an integer")
	}
	return v, nil
}

// GetFloat returns the float at col. Codes: 1 not a float, 2 fetch failure.
func (b *Bridge) GetFloat(row handle.Token, col int) (float64, error) {
	r, err := b.row(row)
	if err != nil {
		return 0, err
	}
	v, err := r.Float(col)
	if err != nil {
		return 0, getError(err, "Value not a float")
	}
	return v, nil
}

// GetString returns the text at col. Codes: 1 not a text, 2 fetch failure, 3 text with
// an embedded NUL byte.
func (b *Bridge) GetString(row handle.Token, col int) (string, error) {
	r, err := b.row(row)
	if err != nil {
		return "", err
	}
	v, err := r.Text(col)
	if err != nil {
		return "", getError(err, "Value not a string")
	}
	if containsNUL(v) {
		return "", fail(3, "Invalid string: column %d contains a NUL byte", col)
	}
	return v, nil
}

// GetBlob returns a copy of the blob at col. Codes: 1 not a blob, 2 fetch failure.
func (b *Bridge) GetBlob(row handle.Token, col int) ([]byte, error) {
	r, err := b.row(row)
	if err != nil {
		return nil, err
	}
	v, err := r.Blob(col)
	if err != nil {
		return nil, getError(err, "Value not a blob")
	}
	return v, nil
}

func getError(err error, mismatch string) error {
	if errors.Is(err, value.ErrTypeMismatch) {
		return fail(1, "%s: %w", mismatch, err)
	}
	return fail(2, "Error fetching value: %w", err)
}
