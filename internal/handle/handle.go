// Package handle keeps every object handed across the C boundary in a slot table.
//
// Callers receive a Token instead of an address. A token packs the slot index, the
// slot generation and the kind of object stored there, so a freed, reused or
// mistyped token is detected on every use instead of touching released memory.
package handle

import (
	"errors"
	"fmt"
	"sync"
)

// Kind tags the type of object a token refers to.
type Kind uint8

// Kinds of boundary objects.
const (
	KindDatabase Kind = iota + 1
	KindConnection
	KindConnectionRef // borrowed view of a connection owned by a transaction
	KindStatement
	KindTransaction
	KindRows
	KindRow
	KindBatchRows
	KindPositionalValues
	KindNamedValues
)

func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindConnection:
		return "connection"
	case KindConnectionRef:
		return "borrowed connection"
	case KindStatement:
		return "statement"
	case KindTransaction:
		return "transaction"
	case KindRows:
		return "rows"
	case KindRow:
		return "row"
	case KindBatchRows:
		return "batch rows"
	case KindPositionalValues:
		return "positional values"
	case KindNamedValues:
		return "named values"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// errors returned by table lookups
var (
	ErrNullHandle   = errors.New("null handle")
	ErrStaleHandle  = errors.New("handle was already released")
	ErrKindMismatch = errors.New("handle has a different type")
)

// Token is an opaque handle value, zero is the null handle.
// Layout: kind (8 bits) | generation (24 bits) | index (32 bits).
type Token uint64

const genMask = 1<<24 - 1

func makeToken(kind Kind, gen uint32, idx uint32) Token {
	return Token(uint64(kind)<<56 | uint64(gen&genMask)<<32 | uint64(idx))
}

// Kind returns the kind encoded in the token.
func (t Token) Kind() Kind { return Kind(t >> 56) }

func (t Token) generation() uint32 { return uint32(t>>32) & genMask }

func (t Token) index() uint32 { return uint32(t) }

// IsNull reports whether t is the null handle.
func (t Token) IsNull() bool { return t == 0 }

func (t Token) String() string {
	if t.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%s#%d.%d", t.Kind(), t.index(), t.generation())
}

type slot struct {
	gen  uint32
	kind Kind
	live bool
	val  any
}

// Table is a generation-checked slot map, safe for concurrent use.
// It only guards its own bookkeeping, objects stored in it are not locked.
type Table struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
}

// NewTable makes an empty table.
func NewTable() *Table {
	return &Table{}
}

// Insert stores v and returns the token owning it.
func (t *Table) Insert(kind Kind, v any) Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		// generation starts at 1 so a token is never zero
		t.slots = append(t.slots, slot{gen: 0})
		idx = uint32(len(t.slots) - 1)
	}
	s := &t.slots[idx]
	s.gen = (s.gen + 1) & genMask
	if s.gen == 0 {
		s.gen = 1
	}
	s.kind, s.live, s.val = kind, true, v
	return makeToken(kind, s.gen, idx)
}

// Get returns the object behind tok. If kinds are given, the token must be one of them.
func (t *Table) Get(tok Token, kinds ...Kind) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, err := t.lookup(tok, kinds)
	if err != nil {
		return nil, err
	}
	return s.val, nil
}

// Remove releases the slot behind tok and returns the stored object.
// Removing the same token twice fails with ErrStaleHandle.
func (t *Table) Remove(tok Token, kinds ...Kind) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookup(tok, kinds)
	if err != nil {
		return nil, err
	}
	v := s.val
	s.live, s.val = false, nil
	t.free = append(t.free, tok.index())
	return v, nil
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots) - len(t.free)
}

func (t *Table) lookup(tok Token, kinds []Kind) (*slot, error) {
	if tok.IsNull() {
		return nil, ErrNullHandle
	}
	if len(kinds) > 0 && !contains(kinds, tok.Kind()) {
		return nil, fmt.Errorf("%w: got %s, want %v", ErrKindMismatch, tok.Kind(), kinds)
	}
	idx := tok.index()
	if int(idx) >= len(t.slots) {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, tok)
	}
	s := &t.slots[idx]
	if !s.live || s.gen != tok.generation() || s.kind != tok.Kind() {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, tok)
	}
	return s, nil
}

func contains(kinds []Kind, k Kind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Lookup is Get with a typed result.
func Lookup[T any](t *Table, tok Token, kinds ...Kind) (T, error) {
	var zero T
	v, err := t.Get(tok, kinds...)
	if err != nil {
		return zero, err
	}
	res, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrKindMismatch, tok, v)
	}
	return res, nil
}

// Take is Remove with a typed result.
func Take[T any](t *Table, tok Token, kinds ...Kind) (T, error) {
	var zero T
	v, err := t.Remove(tok, kinds...)
	if err != nil {
		return zero, err
	}
	res, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrKindMismatch, tok, v)
	}
	return res, nil
}
