package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	if testing.Short() {
		t.Skip("stress run skipped in short mode")
	}
	opts := options{
		DB:                filepath.Join(t.TempDir(), "stress.db"),
		Workers:           4,
		Duration:          500 * time.Millisecond,
		Seed:              100,
		IntegrityInterval: 150 * time.Millisecond,
	}
	st, err := run(context.Background(), opts)
	require.NoError(t, err)
	assert.Positive(t, st.Inserts.Load()+st.Selects.Load()+st.Updates.Load())
	assert.GreaterOrEqual(t, st.Integrity.Load(), int64(1))
	assert.False(t, st.Corruption.Load())
	t.Log(st)
}

func TestSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.db")
	require.NoError(t, seed(path, 10))
	require.NoError(t, seed(path, 5), "seeding an existing database adds records")
	require.NoError(t, seed(path, 0))
}
