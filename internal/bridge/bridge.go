// Package bridge converts operations on the asynchronous engine into blocking calls.
//
// A single Runtime is shared by the whole process. It is built lazily on first use from
// the LIBSQL_BRIDGE_* environment and is never torn down. Every boundary call that touches
// the engine submits its work to the runtime and waits for it, so callers on arbitrary
// foreign threads see a plain synchronous function.
package bridge

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"

	"github.com/EleDiaz/LibSql.Bindings/internal/config"
)

// Runtime is a bounded multi-worker executor safe for concurrent submission.
type Runtime struct {
	group   *syncs.SizedGroup
	workers int
	opts    config.Options
}

var (
	sharedOnce sync.Once
	shared     *Runtime
)

// Shared returns the process-wide runtime, building it on the first call.
// Failure to build it is fatal, the process can't proceed without an executor.
func Shared() *Runtime {
	sharedOnce.Do(func() {
		opts, err := config.Load()
		if err != nil {
			lgr.Fatalf("[ERROR] can't build bridge runtime, %v", err)
		}
		setupLog(opts.Debug)
		shared = New(opts)
		log.Printf("[DEBUG] bridge runtime started with %d workers", opts.Workers)
	})
	return shared
}

// New makes a runtime with opts.Workers concurrent workers.
func New(opts config.Options) *Runtime {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runtime{group: syncs.NewSizedGroup(workers), workers: workers, opts: opts}
}

// Options returns the settings the runtime was built with.
func (r *Runtime) Options() config.Options { return r.opts }

// Workers returns the executor size.
func (r *Runtime) Workers() int { return r.workers }

// Block submits fn to the executor and waits for its result. A panic inside fn is
// recovered and returned as an error, nothing unwinds into the caller.
func Block[T any](r *Runtime, fn func(ctx context.Context) (T, error)) (res T, err error) {
	done := make(chan struct{})
	r.group.Go(func(ctx context.Context) {
		defer close(done)
		defer func() {
			if p := recover(); p != nil {
				log.Printf("[ERROR] panic in bridged operation: %v\n%s", p, debug.Stack())
				err = fmt.Errorf("panic in bridged operation: %v", p)
			}
		}()
		res, err = fn(ctx)
	})
	<-done
	return res, err
}

// Do is Block for operations without a result.
func (r *Runtime) Do(fn func(ctx context.Context) error) error {
	_, err := Block(r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Spawn submits fn and returns immediately. There is no completion signal, resources
// released by fn are reclaimed eventually.
func (r *Runtime) Spawn(fn func(ctx context.Context)) {
	r.group.Go(func(ctx context.Context) {
		defer func() {
			if p := recover(); p != nil {
				log.Printf("[ERROR] panic in background task: %v", p)
			}
		}()
		fn(ctx)
	})
}

// Every runs fn on the executor each interval until ctx is done. Runs never overlap,
// a slow run delays the next tick. The ticking goroutine itself holds no worker.
func (r *Runtime) Every(ctx context.Context, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Do(func(context.Context) error { return fn(ctx) }); err != nil {
					log.Printf("[WARN] periodic task failed, %v", err)
				}
			}
		}
	}()
}

// Drain waits for every task submitted so far, including spawned ones.
func (r *Runtime) Drain() {
	r.group.Wait()
}
