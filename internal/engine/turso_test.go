package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	turso_libs "github.com/tursodatabase/turso-go-platform-libs"
	turso "turso.tech/database/tursogo"
)

func TestLoadStrategy(t *testing.T) {
	assert.Equal(t, "mixed", makeOptions().loadStrategy)
	o := makeOptions(WithLoadStrategy("system"))
	assert.Equal(t, "system", o.loadStrategy)
	assert.Equal(t, turso_libs.LibraryLoadStrategy("system"), libraryConfig(o.loadStrategy).LoadStrategy)
}

func TestWithStats(t *testing.T) {
	res := withStats(Replicated{FrameNo: 3, FramesSynced: 1},
		turso.TursoSyncDbStats{Revision: "rev-42", LastPullUnixTime: 1700000000, CdcOperations: 7})
	assert.Equal(t, Replicated{FrameNo: 3, FramesSynced: 1, Revision: "rev-42",
		PulledAt: time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)}, res)

	res = withStats(Replicated{}, turso.TursoSyncDbStats{})
	assert.True(t, res.PulledAt.IsZero(), "no pull yet")
	assert.Empty(t, res.Revision)
}

// tests below need the turso native library, and a sync server for replicas
var (
	tursoTestRun = os.Getenv("LIBSQL_BRIDGE_TURSO_TEST") == "true"
	syncURL      = os.Getenv("LIBSQL_BRIDGE_SYNC_URL")
)

type recordingScheduler struct {
	calls     int
	intervals []time.Duration
}

func (s *recordingScheduler) Every(_ context.Context, interval time.Duration, _ func(ctx context.Context) error) {
	s.calls++
	s.intervals = append(s.intervals, interval)
}

func TestEncryptedDatabase(t *testing.T) {
	if !tursoTestRun {
		t.Skip("LIBSQL_BRIDGE_TURSO_TEST not set")
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "encrypted.db")

	db, err := Open(ctx, Config{Path: path, EncryptionKey: "correct horse battery staple"})
	require.NoError(t, err)
	assert.Equal(t, BackendEncrypted, db.Backend())
	c, err := db.Connect(ctx)
	require.NoError(t, err)
	_, err = c.Execute(ctx, "CREATE TABLE users (name TEXT, ssn TEXT)")
	require.NoError(t, err)
	_, err = c.Execute(ctx, "INSERT INTO users VALUES ('Alice', '123-45-6789')")
	require.NoError(t, err)
	_, err = c.Execute(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	require.NoError(t, err)
	require.NoError(t, c.Close(ctx))
	require.NoError(t, db.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "123-45-6789"), "plaintext on disk")

	db, err = Open(ctx, Config{Path: path, EncryptionKey: "correct horse battery staple"})
	require.NoError(t, err)
	defer db.Close()
	c, err = db.Connect(ctx)
	require.NoError(t, err)
	defer c.Close(ctx)
	assert.Equal(t, int64(1), count(t, c, "users"))

	err = c.LoadExtension(ctx, "ext.so", "")
	require.ErrorIs(t, err, ErrExtensionLoad)
}

func TestReplica(t *testing.T) {
	if syncURL == "" {
		t.Skip("LIBSQL_BRIDGE_SYNC_URL not set")
	}
	ctx := context.Background()
	sched := &recordingScheduler{}
	db, err := Open(ctx, Config{
		Path:           filepath.Join(t.TempDir(), "replica.db"),
		PrimaryURL:     syncURL,
		ReadYourWrites: true,
		SyncInterval:   time.Minute,
	}, WithScheduler(sched))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, BackendReplica, db.Backend())
	assert.Equal(t, 1, sched.calls)
	assert.Equal(t, []time.Duration{time.Minute}, sched.intervals)

	c, err := db.Connect(ctx)
	require.NoError(t, err)
	defer c.Close(ctx)
	_, err = c.Execute(ctx, "CREATE TABLE IF NOT EXISTS t(x)")
	require.NoError(t, err)
	_, err = c.Execute(ctx, "INSERT INTO t VALUES (1)")
	require.NoError(t, err)

	rep, err := db.Sync(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rep.FrameNo, int64(0))
	assert.Contains(t, []int{0, 1}, rep.FramesSynced)
}

func TestSchedulerIgnoredForLocalDatabases(t *testing.T) {
	sched := &recordingScheduler{}
	db, err := Open(context.Background(), Config{Path: MemoryPath, SyncInterval: time.Second}, WithScheduler(sched))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 0, sched.calls)
}
