// Package boundary implements every operation exposed across the C boundary in Go
// terms. Objects live in a handle table and callers only see tokens. Each operation
// reports failures as an *Error carrying the status code of that operation, so the C
// layer only converts arguments and results.
package boundary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/EleDiaz/LibSql.Bindings/internal/bridge"
	"github.com/EleDiaz/LibSql.Bindings/internal/engine"
	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
)

// Status codes shared by every operation. Other nonzero codes are private to each
// operation and documented on it.
const (
	CodeOK            = 0
	CodeNullOutput    = -1 // the caller passed a NULL output pointer
	CodeInvalidHandle = -2 // null, released or mistyped handle
)

// Error is a failed operation: the status code returned to the caller and the message
// written to its error out-parameter.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Code returns the status code for err, 0 for nil. Errors not raised by this package
// map to 1.
func Code(err error) int {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 1
}

func fail(code int, format string, args ...any) error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

func badHandle(err error) error {
	return &Error{Code: CodeInvalidHandle, Err: fmt.Errorf("Invalid handle: %w", err)}
}

// decode checks text received from the caller, label prefixes the message.
func decode(s string, code int, label string) (string, error) {
	if !utf8.ValidString(s) {
		return "", fail(code, "%s: invalid utf-8 sequence", label)
	}
	return s, nil
}

// Bridge dispatches boundary operations. The zero value is not usable, see New.
type Bridge struct {
	rt      *bridge.Runtime
	handles *handle.Table
}

var (
	sharedOnce sync.Once
	shared     *Bridge
)

// Shared returns the process-wide Bridge over the shared runtime.
func Shared() *Bridge {
	sharedOnce.Do(func() {
		shared = New(bridge.Shared())
	})
	return shared
}

// New makes a Bridge running engine work on rt.
func New(rt *bridge.Runtime) *Bridge {
	return &Bridge{rt: rt, handles: handle.NewTable()}
}

// Runtime returns the runtime engine work runs on.
func (b *Bridge) Runtime() *bridge.Runtime { return b.rt }

// Live returns the number of handles currently owned by callers.
func (b *Bridge) Live() int { return b.handles.Len() }

// EnableTracing switches debug logging on. It returns 1 the first time and 0 after.
func (b *Bridge) EnableTracing() int {
	if bridge.EnableDebugLog() {
		return 1
	}
	return 0
}

func (b *Bridge) engineOptions() []engine.Option {
	opts := b.rt.Options()
	return []engine.Option{
		engine.WithBusyTimeout(opts.BusyTimeout),
		engine.WithLoadStrategy(opts.TursoLoadStrategy),
		engine.WithCacheDir(opts.CacheDir),
		engine.WithScheduler(b.rt),
	}
}

// release removes tok and hands its object to done. Releasing the null handle is a
// no-op, releasing a stale one is logged and otherwise ignored.
func release[T any](b *Bridge, tok handle.Token, kind handle.Kind, done func(T)) error {
	if tok.IsNull() {
		return nil
	}
	v, err := handle.Take[T](b.handles, tok, kind)
	if err != nil {
		log.Printf("[WARN] can't release %s, %v", tok, err)
		return badHandle(err)
	}
	if done != nil {
		done(v)
	}
	return nil
}

// do runs fn on the runtime and waits for it.
func (b *Bridge) do(fn func(ctx context.Context) error) error {
	return b.rt.Do(fn)
}

func containsNUL(s string) bool { return strings.IndexByte(s, 0) >= 0 }
