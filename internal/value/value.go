// Package value defines the cell values that cross the boundary and their wire kind codes.
package value

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Kind is the column type code returned to callers. The numbering is part of the
// wire contract and must not change.
type Kind int8

// Kind codes
const (
	KindInteger Kind = 1
	KindFloat   Kind = 2
	KindText    Kind = 3
	KindBlob    Kind = 4
	KindNull    Kind = 5
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	case KindNull:
		return "null"
	default:
		return fmt.Sprintf("kind(%d)", int8(k))
	}
}

// TimestampFormat renders the time values the turso driver decodes text cells of
// date/time columns into.
const TimestampFormat = "2006-01-02 15:04:05.999999999-07:00"

// ErrUnsupported is returned by FromDriver for values that have no cell representation.
var ErrUnsupported = errors.New("unsupported value type")

// Value is a single typed cell or parameter.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Integer returns an integer value.
func Integer(v int64) Value { return Value{kind: KindInteger, i: v} }

// Float returns a float value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Text returns a text value.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Blob returns a blob value holding a copy of v.
func Blob(v []byte) Value {
	b := make([]byte, len(v))
	copy(b, v)
	return Value{kind: KindBlob, b: b}
}

// Kind returns the stored kind; the zero Value is null.
func (v Value) Kind() Kind {
	if v.kind == 0 {
		return KindNull
	}
	return v.kind
}

// Int returns the integer payload.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload.
func (v Value) Float() float64 { return v.f }

// Text returns the text payload.
func (v Value) Text() string { return v.s }

// Bytes returns the blob payload. The slice is shared, callers must not modify it.
func (v Value) Bytes() []byte { return v.b }

// Any returns the value in the form database/sql accepts as an argument.
func (v Value) Any() any {
	switch v.Kind() {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		if v.b == nil {
			return []byte{}
		}
		return v.b
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind() {
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindText:
		return v.s
	case KindBlob:
		return fmt.Sprintf("<blob %d bytes>", len(v.b))
	default:
		return "NULL"
	}
}

// FromDriver converts a value produced by a database/sql driver into a cell.
func FromDriver(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case int64:
		return Integer(v), nil
	case int:
		return Integer(int64(v)), nil
	case int32:
		return Integer(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d overflows int64", v)
		}
		return Integer(int64(v)), nil
	case float64:
		return Float(v), nil
	case float32:
		return Float(float64(v)), nil
	case string:
		return Text(v), nil
	case []byte:
		return Blob(v), nil
	case time.Time:
		return Text(v.Format(TimestampFormat)), nil
	default:
		return Value{}, fmt.Errorf("%w %T", ErrUnsupported, x)
	}
}
