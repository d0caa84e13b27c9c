package boundary

import (
	"context"
	"log"
	"time"

	"github.com/EleDiaz/LibSql.Bindings/internal/bridge"
	"github.com/EleDiaz/LibSql.Bindings/internal/engine"
	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
)

// SyncConfig describes a replica of a remote primary. Empty strings stand for absent
// values.
type SyncConfig struct {
	DBPath         string
	PrimaryURL     string
	AuthToken      string
	ReadYourWrites bool
	EncryptionKey  string
	SyncInterval   int // seconds, zero or less disables periodic sync
	WithWebPKI     bool
}

// OpenFile opens a local database. Codes: 1 bad path or open failure.
func (b *Bridge) OpenFile(path string) (handle.Token, error) {
	path, err := decode(path, 1, "Wrong URL")
	if err != nil {
		return 0, err
	}
	db, err := bridge.Block(b.rt, func(ctx context.Context) (*engine.Database, error) {
		return engine.Open(ctx, engine.Config{Path: path}, b.engineOptions()...)
	})
	if err != nil {
		return 0, fail(1, "Error opening URL %s: %w", path, err)
	}
	return b.handles.Insert(handle.KindDatabase, db), nil
}

// OpenRemote opens a remote database through a local replica synced on open.
// Codes: 1 bad url or open failure, 2 bad auth token.
func (b *Bridge) OpenRemote(url, authToken string, withWebPKI bool) (handle.Token, error) {
	url, err := decode(url, 1, "Wrong URL")
	if err != nil {
		return 0, err
	}
	if authToken, err = decode(authToken, 2, "Wrong Auth Token"); err != nil {
		return 0, err
	}
	if withWebPKI {
		log.Printf("[DEBUG] web pki requested for %s", url)
	}
	db, err := bridge.Block(b.rt, func(ctx context.Context) (*engine.Database, error) {
		return engine.OpenRemote(ctx, url, authToken, b.engineOptions()...)
	})
	if err != nil {
		return 0, fail(1, "Error opening URL %s: %w", url, err)
	}
	return b.handles.Insert(handle.KindDatabase, db), nil
}

// OpenSync opens a replica described by cfg. Codes: 1 bad path, 2 bad url, 3 bad auth
// token, 4 bad sync interval, 5 bad encryption key, 6 open failure, 7 unsupported
// combination of settings.
func (b *Bridge) OpenSync(cfg SyncConfig) (handle.Token, error) {
	var err error
	ec := engine.Config{ReadYourWrites: cfg.ReadYourWrites, WithWebPKI: cfg.WithWebPKI}
	if ec.Path, err = decode(cfg.DBPath, 1, "Wrong URL"); err != nil {
		return 0, err
	}
	if ec.PrimaryURL, err = decode(cfg.PrimaryURL, 2, "Wrong URL"); err != nil {
		return 0, err
	}
	if ec.AuthToken, err = decode(cfg.AuthToken, 3, "Wrong Auth Token"); err != nil {
		return 0, err
	}
	if cfg.SyncInterval > 0 {
		ec.SyncInterval = time.Duration(cfg.SyncInterval) * time.Second
		if ec.SyncInterval/time.Second != time.Duration(cfg.SyncInterval) {
			return 0, fail(4, "Wrong periodic sync interval: %d overflows", cfg.SyncInterval)
		}
	}
	if ec.EncryptionKey, err = decode(cfg.EncryptionKey, 5, "Wrong encryption key"); err != nil {
		return 0, err
	}
	if _, err := ec.Backend(); err != nil {
		return 0, fail(7, "Unsupported configuration: %w", err)
	}

	db, err := bridge.Block(b.rt, func(ctx context.Context) (*engine.Database, error) {
		return engine.Open(ctx, ec, b.engineOptions()...)
	})
	if err != nil {
		return 0, fail(6, "Error opening db path %s, primary url %s: %w", ec.Path, ec.PrimaryURL, err)
	}
	return b.handles.Insert(handle.KindDatabase, db), nil
}

// Connect opens a connection on db. Codes: 1 connection failure.
func (b *Bridge) Connect(db handle.Token) (handle.Token, error) {
	d, err := handle.Lookup[*engine.Database](b.handles, db, handle.KindDatabase)
	if err != nil {
		return 0, badHandle(err)
	}
	c, err := bridge.Block(b.rt, d.Connect)
	if err != nil {
		return 0, fail(1, "Unable to connect: %w", err)
	}
	return b.handles.Insert(handle.KindConnection, c), nil
}

// Sync brings the replica db up to date. Codes: 1 sync failure.
func (b *Bridge) Sync(db handle.Token) (engine.Replicated, error) {
	d, err := handle.Lookup[*engine.Database](b.handles, db, handle.KindDatabase)
	if err != nil {
		return engine.Replicated{}, badHandle(err)
	}
	rep, err := bridge.Block(b.rt, d.Sync)
	if err != nil {
		return engine.Replicated{}, fail(1, "Error syncing database: %w", err)
	}
	return rep, nil
}

// Close releases db. The handle is invalid when Close returns, the database itself is
// closed in the background.
func (b *Bridge) Close(db handle.Token) error {
	return release(b, db, handle.KindDatabase, func(d *engine.Database) {
		b.rt.Spawn(func(context.Context) {
			if err := d.Close(); err != nil {
				log.Printf("[WARN] close database, %v", err)
			}
		})
	})
}
