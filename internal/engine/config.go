// Package engine adapts the sqlite engines behind the bridge to the small surface the
// boundary needs: databases, connections, statements, transactions, rows and batches.
//
// Plain local databases run on mattn/go-sqlite3. Encrypted local databases and
// replicas of a remote primary run on the turso driver, which owns both the aegis256
// encryption and the sync protocol.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	turso_libs "github.com/tursodatabase/turso-go-platform-libs"
	turso "turso.tech/database/tursogo"
)

// errors returned by the engine
var (
	ErrUnsupported    = errors.New("unsupported configuration")
	ErrNotReplica     = errors.New("database is not a replica")
	ErrTxDone         = errors.New("transaction done")
	ErrConnClosed     = errors.New("connection closed")
	ErrStmtFinalized  = errors.New("statement finalized")
	ErrRowsClosed     = errors.New("rows closed")
	ErrExtensionLoad  = errors.New("extension loading not available")
	ErrTxInProgress   = errors.New("transaction already in progress")
	ErrEmptyStatement = errors.New("empty statement")
)

// DefaultBusyTimeout matches the default of the turso driver.
const DefaultBusyTimeout = 5 * time.Second

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Config describes the database to open.
type Config struct {
	Path           string        // local file, or MemoryPath
	PrimaryURL     string        // remote primary, makes the database a replica
	AuthToken      string        // bearer token for the primary
	ReadYourWrites bool          // push local writes to the primary right after they are made
	EncryptionKey  string        // enables aegis256 encryption of the local file
	SyncInterval   time.Duration // periodic replica sync, zero disables it
	WithWebPKI     bool          // verify the primary with the system web PKI roots
}

// Backend names the engine serving a database.
type Backend int

// Backends.
const (
	BackendLocal Backend = iota
	BackendEncrypted
	BackendReplica
)

func (b Backend) String() string {
	switch b {
	case BackendLocal:
		return "local"
	case BackendEncrypted:
		return "encrypted"
	case BackendReplica:
		return "replica"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// Backend picks the engine for the config. Encryption of a replica is not supported.
func (c Config) Backend() (Backend, error) {
	switch {
	case c.PrimaryURL != "" && c.EncryptionKey != "":
		return 0, fmt.Errorf("%w: encryption of a replica", ErrUnsupported)
	case c.PrimaryURL != "":
		return BackendReplica, nil
	case c.EncryptionKey != "":
		return BackendEncrypted, nil
	default:
		return BackendLocal, nil
	}
}

// Behavior is the locking mode of a new transaction.
type Behavior int

// Transaction behaviors, the values are the codes used across the C boundary.
const (
	Deferred  Behavior = 1
	Immediate Behavior = 2
	Exclusive Behavior = 3
	ReadOnly  Behavior = 4
)

// BehaviorFromCode maps a boundary code to a behavior, unknown codes are deferred.
func BehaviorFromCode(code int) Behavior {
	switch b := Behavior(code); b {
	case Deferred, Immediate, Exclusive, ReadOnly:
		return b
	default:
		return Deferred
	}
}

func (b Behavior) beginSQL() string {
	switch b {
	case Immediate:
		return "BEGIN IMMEDIATE"
	case Exclusive:
		return "BEGIN EXCLUSIVE"
	default:
		return "BEGIN DEFERRED"
	}
}

func (b Behavior) String() string {
	switch b {
	case Deferred:
		return "deferred"
	case Immediate:
		return "immediate"
	case Exclusive:
		return "exclusive"
	case ReadOnly:
		return "read-only"
	default:
		return fmt.Sprintf("behavior(%d)", int(b))
	}
}

// Scheduler runs periodic work, the bridge runtime implements it.
type Scheduler interface {
	Every(ctx context.Context, interval time.Duration, fn func(ctx context.Context) error)
}

// Option customizes Open.
type Option func(*options)

type options struct {
	busyTimeout  time.Duration
	loadStrategy string
	scheduler    Scheduler
	clientName   string
	cacheDir     string
}

// WithBusyTimeout sets how long a connection waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.busyTimeout = d }
}

// WithLoadStrategy sets how the turso native library is located.
func WithLoadStrategy(s string) Option {
	return func(o *options) { o.loadStrategy = s }
}

// WithScheduler sets the runner of periodic replica syncs.
func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithClientName sets the client name reported to the primary.
func WithClientName(name string) Option {
	return func(o *options) { o.clientName = name }
}

// WithCacheDir sets where OpenRemote keeps replicas.
func WithCacheDir(dir string) Option {
	return func(o *options) { o.cacheDir = dir }
}

func makeOptions(opts []Option) options {
	res := options{busyTimeout: DefaultBusyTimeout, loadStrategy: "mixed", clientName: "libsql-bridge"}
	for _, opt := range opts {
		opt(&res)
	}
	return res
}

var tursoInit sync.Once

// initTurso loads the turso native library once per process.
func initTurso(strategy string) {
	tursoInit.Do(func() {
		log.Printf("[DEBUG] loading turso library, strategy %q", strategy)
		turso.InitLibrary(libraryConfig(strategy))
	})
}

func libraryConfig(strategy string) turso_libs.LoadTursoLibraryConfig {
	return turso_libs.LoadTursoLibraryConfig{LoadStrategy: turso_libs.LibraryLoadStrategy(strategy)}
}

// hexKey turns an encryption key into the 32 byte aegis256 key in hex. A key that is
// already 64 hex digits is used as is, anything else is hashed with sha256.
func hexKey(key string) string {
	if len(key) == 64 {
		if _, err := hex.DecodeString(key); err == nil {
			return strings.ToLower(key)
		}
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
