package boundary

import (
	"errors"

	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
	"github.com/EleDiaz/LibSql.Bindings/internal/params"
	"github.com/EleDiaz/LibSql.Bindings/internal/value"
)

// MakePositional returns a handle to an empty positional accumulator.
func (b *Bridge) MakePositional() handle.Token {
	return b.handles.Insert(handle.KindPositionalValues, params.NewPositional())
}

// FreePositional releases a positional accumulator.
func (b *Bridge) FreePositional(values handle.Token) error {
	return release[*params.Positional](b, values, handle.KindPositionalValues, nil)
}

// BindPositional stores v at the zero-based idx, padding with nulls.
// Codes: 1 bad index, 2 bad value.
func (b *Bridge) BindPositional(values handle.Token, idx int, v value.Value) error {
	p, err := handle.Lookup[*params.Positional](b.handles, values, handle.KindPositionalValues)
	if err != nil {
		return badHandle(err)
	}
	if err := p.Bind(idx, v); err != nil {
		if errors.Is(err, params.ErrNegativeIndex) {
			return fail(1, "Wrong param index: %w", err)
		}
		return fail(2, "Wrong param value: %w", err)
	}
	return nil
}

// BindPositionalBlob stores the first n bytes of data at idx. Codes: 1 bad index,
// 2 bad length.
func (b *Bridge) BindPositionalBlob(values handle.Token, idx int, data []byte, n int) error {
	blob, err := blobPrefix(data, n)
	if err != nil {
		return err
	}
	return b.BindPositional(values, idx, blob)
}

// MakeNamed returns a handle to an empty named accumulator.
func (b *Bridge) MakeNamed() handle.Token {
	return b.handles.Insert(handle.KindNamedValues, params.NewNamed())
}

// FreeNamed releases a named accumulator.
func (b *Bridge) FreeNamed(values handle.Token) error {
	return release[*params.Named](b, values, handle.KindNamedValues, nil)
}

// BindNamed appends name=v, name keeps its ":", "@" or "$" prefix if any.
// Codes: 1 bad name or text value.
func (b *Bridge) BindNamed(values handle.Token, name string, v value.Value) error {
	n, err := handle.Lookup[*params.Named](b.handles, values, handle.KindNamedValues)
	if err != nil {
		return badHandle(err)
	}
	if name, err = decode(name, 1, "Wrong named string"); err != nil {
		return err
	}
	if err := n.Bind(name, v); err != nil {
		return fail(1, "Wrong value string: %w", err)
	}
	return nil
}

// BindNamedBlob appends name=first n bytes of data. Codes: 1 bad name, 2 bad length.
func (b *Bridge) BindNamedBlob(values handle.Token, name string, data []byte, n int) error {
	blob, err := blobPrefix(data, n)
	if err != nil {
		return err
	}
	return b.BindNamed(values, name, blob)
}

func blobPrefix(data []byte, n int) (value.Value, error) {
	if n < 0 || n > len(data) {
		return value.Value{}, fail(2, "Wrong param value len: %d with %d bytes available", n, len(data))
	}
	return value.Blob(data[:n]), nil
}

func (b *Bridge) positionalArgs(values handle.Token) ([]any, error) {
	p, err := handle.Lookup[*params.Positional](b.handles, values, handle.KindPositionalValues)
	if err != nil {
		return nil, badHandle(err)
	}
	return p.Args(), nil
}

func (b *Bridge) namedArgs(values handle.Token) ([]any, error) {
	n, err := handle.Lookup[*params.Named](b.handles, values, handle.KindNamedValues)
	if err != nil {
		return nil, badHandle(err)
	}
	return n.Args(), nil
}
