// Package params accumulates typed parameter values before a query or execute call.
package params

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/EleDiaz/LibSql.Bindings/internal/value"
)

// errors returned by accumulators
var (
	ErrNegativeIndex = errors.New("negative parameter index")
	ErrInvalidText   = errors.New("invalid utf-8 text")
)

// Positional is an ordered, zero-based list of values. Binding past the end extends
// the list and fills the gap with nulls.
type Positional struct {
	values []value.Value
}

// NewPositional makes an empty accumulator.
func NewPositional() *Positional {
	return &Positional{}
}

// Bind stores v at index.
func (p *Positional) Bind(index int, v value.Value) error {
	if index < 0 {
		return fmt.Errorf("%w %d", ErrNegativeIndex, index)
	}
	if err := checkText(v); err != nil {
		return err
	}
	for len(p.values) <= index {
		p.values = append(p.values, value.Null())
	}
	p.values[index] = v
	return nil
}

// Len returns the current length.
func (p *Positional) Len() int { return len(p.values) }

// At returns the value at index; indices past the end read as null.
func (p *Positional) At(index int) value.Value {
	if index < 0 || index >= len(p.values) {
		return value.Null()
	}
	return p.values[index]
}

// Args returns a copy of the values in the form database/sql expects.
func (p *Positional) Args() []any {
	res := make([]any, len(p.values))
	for i, v := range p.values {
		res[i] = v.Any()
	}
	return res
}

// Pair is one named binding.
type Pair struct {
	Name  string
	Value value.Value
}

// Named is an insertion-ordered list of name/value pairs. The same name may be bound
// more than once, which one wins is up to the engine.
type Named struct {
	pairs []Pair
}

// NewNamed makes an empty accumulator.
func NewNamed() *Named {
	return &Named{}
}

// Bind appends name=v.
func (n *Named) Bind(name string, v value.Value) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w in parameter name", ErrInvalidText)
	}
	if err := checkText(v); err != nil {
		return err
	}
	n.pairs = append(n.pairs, Pair{Name: name, Value: v})
	return nil
}

// Len returns the number of bound pairs.
func (n *Named) Len() int { return len(n.pairs) }

// Pairs returns a copy of the bound pairs in insertion order.
func (n *Named) Pairs() []Pair {
	res := make([]Pair, len(n.pairs))
	copy(res, n.pairs)
	return res
}

// Args returns the pairs as sql.NamedArg values. The parameter prefix (":", "@" or "$")
// is dropped, the sqlite drivers try every prefix when resolving a name.
func (n *Named) Args() []any {
	res := make([]any, len(n.pairs))
	for i, p := range n.pairs {
		res[i] = sql.Named(trimPrefix(p.Name), p.Value.Any())
	}
	return res
}

func trimPrefix(name string) string {
	if name != "" && strings.ContainsRune(":@$", rune(name[0])) {
		return name[1:]
	}
	return name
}

func checkText(v value.Value) error {
	if v.Kind() == value.KindText && !utf8.ValidString(v.Text()) {
		return ErrInvalidText
	}
	return nil
}
