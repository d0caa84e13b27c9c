package value

import (
	"errors"
	"fmt"
)

// errors returned by typed row getters
var (
	ErrOutOfRange   = errors.New("column index out of range")
	ErrTypeMismatch = errors.New("value kind mismatch")
)

// Row is a materialized row snapshot, independent of the cursor it came from.
type Row struct {
	cells []Value
}

// NewRow makes a row from cells.
func NewRow(cells []Value) *Row {
	return &Row{cells: cells}
}

// Len returns the number of columns.
func (r *Row) Len() int { return len(r.cells) }

// Value returns the cell at col.
func (r *Row) Value(col int) (Value, error) {
	if col < 0 || col >= len(r.cells) {
		return Value{}, fmt.Errorf("%w: got index %d with %d columns", ErrOutOfRange, col, len(r.cells))
	}
	return r.cells[col], nil
}

// Kind returns the stored kind at col.
func (r *Row) Kind(col int) (Kind, error) {
	v, err := r.Value(col)
	if err != nil {
		return 0, err
	}
	return v.Kind(), nil
}

// Int returns the integer at col, with no conversion from other kinds.
func (r *Row) Int(col int) (int64, error) {
	v, err := r.typed(col, KindInteger)
	return v.i, err
}

// Float returns the float at col, with no conversion from other kinds.
func (r *Row) Float(col int) (float64, error) {
	v, err := r.typed(col, KindFloat)
	return v.f, err
}

// Text returns the text at col, with no conversion from other kinds.
func (r *Row) Text(col int) (string, error) {
	v, err := r.typed(col, KindText)
	return v.s, err
}

// Blob returns a copy of the blob at col, with no conversion from other kinds.
func (r *Row) Blob(col int) ([]byte, error) {
	v, err := r.typed(col, KindBlob)
	if err != nil {
		return nil, err
	}
	res := make([]byte, len(v.b))
	copy(res, v.b)
	return res, nil
}

func (r *Row) typed(col int, want Kind) (Value, error) {
	v, err := r.Value(col)
	if err != nil {
		return Value{}, err
	}
	if v.Kind() != want {
		return Value{}, fmt.Errorf("%w: column %d holds %s, not %s", ErrTypeMismatch, col, v.Kind(), want)
	}
	return v, nil
}
