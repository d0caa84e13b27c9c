package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	turso "turso.tech/database/tursogo"
)

// Replicated reports the outcome of a replica sync.
type Replicated struct {
	FrameNo      int64     // number of pulls that brought changes since the database was opened
	FramesSynced int       // 1 if this sync applied remote changes, 0 otherwise
	Revision     string    // opaque server revision the replica is at
	PulledAt     time.Time // last successful pull, zero before the first
}

// Database is an opened database, safe for concurrent use.
type Database struct {
	backend        Backend
	path           string
	readYourWrites bool
	opts           options

	db      *sql.DB
	anchor  *sql.Conn // keeps a shared in-memory database alive
	replica *turso.TursoSyncDb

	stopSync context.CancelFunc
	frameNo  atomic.Int64

	mu     sync.Mutex
	closed bool
}

// Open opens the database described by cfg on the matching backend.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Database, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("empty database path")
	}
	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}
	o := makeOptions(opts)
	d := &Database{backend: backend, path: cfg.Path, readYourWrites: cfg.ReadYourWrites, opts: o}

	switch backend {
	case BackendLocal:
		err = d.openLocal(ctx)
	case BackendEncrypted:
		err = d.openEncrypted(ctx, cfg.EncryptionKey)
	case BackendReplica:
		err = d.openReplica(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	if backend == BackendReplica && cfg.SyncInterval > 0 && o.scheduler != nil {
		syncCtx, cancel := context.WithCancel(context.Background())
		d.stopSync = cancel
		o.scheduler.Every(syncCtx, cfg.SyncInterval, func(ctx context.Context) error {
			_, err := d.Sync(ctx)
			return err
		})
		log.Printf("[DEBUG] periodic sync of %s every %v", cfg.Path, cfg.SyncInterval)
	}
	log.Printf("[DEBUG] opened %s database %s", backend, cfg.Path)
	return d, nil
}

// OpenRemote opens a replica of the database at url, kept in the cache directory,
// and brings it up to date before returning.
func OpenRemote(ctx context.Context, url, authToken string, opts ...Option) (*Database, error) {
	path, err := replicaPath(makeOptions(opts).cacheDir, url)
	if err != nil {
		return nil, err
	}
	d, err := Open(ctx, Config{Path: path, PrimaryURL: url, AuthToken: authToken}, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := d.Sync(ctx); err != nil {
		if cerr := d.Close(); cerr != nil {
			log.Printf("[WARN] can't close replica %s, %v", path, cerr)
		}
		return nil, fmt.Errorf("initial sync: %w", err)
	}
	return d, nil
}

// replicaPath makes a stable local path for the replica of url. The file name is derived
// from the url so reopening the same remote reuses the replica.
func replicaPath(cacheDir, url string) (string, error) {
	if url == "" {
		return "", errors.New("empty url")
	}
	root := cacheDir
	if root == "" {
		if d, err := os.UserCacheDir(); err == nil {
			root = d
		} else {
			root = os.TempDir()
		}
	}
	dir := filepath.Join(root, "libsql-bridge", "replicas")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return filepath.Join(dir, uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()+".db"), nil
}

func (d *Database) openLocal(ctx context.Context) error {
	ms := d.opts.busyTimeout.Milliseconds()
	sep := "?"
	if strings.Contains(d.path, "?") {
		sep = "&"
	}
	dsn := fmt.Sprintf("%s%s_busy_timeout=%d", d.path, sep, ms)
	memory := d.path == MemoryPath
	if memory {
		// each connection to a plain :memory: dsn gets its own database, a named shared
		// cache database is visible to every connection of this Database
		dsn = fmt.Sprintf("file:memdb-%s?mode=memory&cache=shared&_busy_timeout=%d", uuid.NewString(), ms)
	}
	db, err := sql.Open(localDriver, dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	d.db = db
	if memory {
		anchor, err := db.Conn(ctx)
		if err != nil {
			_ = db.Close()
			return err
		}
		d.anchor = anchor
	}
	return nil
}

func (d *Database) openEncrypted(ctx context.Context, key string) error {
	initTurso(d.opts.loadStrategy)
	dsn := fmt.Sprintf("%s?experimental=encryption&encryption_cipher=aegis256&encryption_hexkey=%s&_busy_timeout=%d",
		d.path, hexKey(key), d.opts.busyTimeout.Milliseconds())
	db, err := sql.Open("turso", dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	d.db = db
	return nil
}

func (d *Database) openReplica(ctx context.Context, cfg Config) error {
	initTurso(d.opts.loadStrategy)
	checkAuthToken(cfg.AuthToken)
	if cfg.WithWebPKI {
		log.Printf("[DEBUG] web pki verification requested for %s, using system roots", cfg.PrimaryURL)
	}
	bootstrap := true
	replica, err := turso.NewTursoSyncDb(ctx, turso.TursoSyncDbConfig{
		Path:             cfg.Path,
		RemoteUrl:        cfg.PrimaryURL,
		AuthToken:        cfg.AuthToken,
		ClientName:       d.opts.clientName,
		BootstrapIfEmpty: &bootstrap,
	})
	if err != nil {
		return err
	}
	db, err := replica.Connect(ctx)
	if err != nil {
		return err
	}
	d.replica, d.db = replica, db
	return nil
}

// Backend returns the engine serving the database.
func (d *Database) Backend() Backend { return d.backend }

// Connect opens a new connection.
func (d *Database) Connect(ctx context.Context) (*Conn, error) {
	if d.isClosed() {
		return nil, errors.New("database closed")
	}
	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return newConn(d, c), nil
}

// Sync pushes local changes to the primary and pulls remote ones.
func (d *Database) Sync(ctx context.Context) (Replicated, error) {
	if d.replica == nil {
		return Replicated{}, ErrNotReplica
	}
	if err := d.replica.Push(ctx); err != nil {
		return Replicated{}, fmt.Errorf("push: %w", err)
	}
	changed, err := d.replica.Pull(ctx)
	if err != nil {
		return Replicated{}, fmt.Errorf("pull: %w", err)
	}
	res := Replicated{FrameNo: d.frameNo.Load()}
	if changed {
		res = Replicated{FrameNo: d.frameNo.Add(1), FramesSynced: 1}
	}
	stats, err := d.replica.Stats(ctx)
	if err != nil {
		log.Printf("[WARN] can't read sync stats of %s, %v", d.path, err)
		return res, nil
	}
	res = withStats(res, stats)
	if changed {
		log.Printf("[DEBUG] synced %s, frame %d, revision %q", d.path, res.FrameNo, res.Revision)
	}
	return res, nil
}

// withStats fills the server side position of a sync from the replica stats.
func withStats(res Replicated, stats turso.TursoSyncDbStats) Replicated {
	res.Revision = stats.Revision
	if stats.LastPullUnixTime > 0 {
		res.PulledAt = time.Unix(stats.LastPullUnixTime, 0).UTC()
	}
	return res
}

// push sends local changes to the primary, used after writes with read-your-writes on.
func (d *Database) push(ctx context.Context) {
	if d.replica == nil || !d.readYourWrites {
		return
	}
	if err := d.replica.Push(ctx); err != nil {
		log.Printf("[WARN] can't push local changes of %s, %v", d.path, err)
	}
}

// Close stops periodic sync and closes every connection. Closing twice is a no-op.
func (d *Database) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	if d.stopSync != nil {
		d.stopSync()
	}
	var errs error
	if d.anchor != nil {
		if err := d.anchor.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close anchor connection: %w", err))
		}
	}
	if err := d.db.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("close %s: %w", d.path, err))
	}
	log.Printf("[DEBUG] closed %s database %s", d.backend, d.path)
	return errs
}

func (d *Database) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
