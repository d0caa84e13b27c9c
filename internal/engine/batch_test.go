package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("results in order", func(t *testing.T) {
		c := connect(t, openLocal(t, MemoryPath))
		b := c.ExecuteBatch(ctx, "CREATE TABLE t(x); INSERT INTO t VALUES (1), (2); SELECT x FROM t ORDER BY x; SELECT x FROM t WHERE x > 5")
		require.NoError(t, b.Err())
		assert.Equal(t, 4, b.Len())

		for i := 0; i < 2; i++ {
			rows, ok, err := b.Next()
			require.NoError(t, err)
			require.True(t, ok)
			assert.Nil(t, rows, "statement %d has no result set", i)
		}

		rows, ok, err := b.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.NotNil(t, rows)
		assert.Equal(t, []string{"x"}, rows.Columns())
		var got []int64
		for {
			row, err := rows.Next()
			require.NoError(t, err)
			if row == nil {
				break
			}
			x, err := row.Int(0)
			require.NoError(t, err)
			got = append(got, x)
		}
		assert.Equal(t, []int64{1, 2}, got)

		rows, ok, err = b.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.NotNil(t, rows, "a query without matches still has a result set")
		row, err := rows.Next()
		require.NoError(t, err)
		assert.Nil(t, row)

		for i := 0; i < 2; i++ {
			rows, ok, err = b.Next()
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, rows)
		}
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		c := connect(t, openLocal(t, MemoryPath))
		_, err := c.Execute(ctx, "CREATE TABLE t(x)")
		require.NoError(t, err)

		b := c.ExecuteBatch(ctx, "INSERT INTO t VALUES (1); SELECT x FROM t; SELECT * FROM missing; INSERT INTO t VALUES (2)")
		require.Error(t, b.Err())
		assert.Equal(t, 2, b.Len())

		_, ok, err := b.Next()
		require.NoError(t, err)
		require.True(t, ok)
		rows, ok, err := b.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.NotNil(t, rows)

		for i := 0; i < 3; i++ {
			rows, ok, err = b.Next()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "statement 2")
			assert.Contains(t, err.Error(), "no such table")
			assert.False(t, ok)
			assert.Nil(t, rows)
		}
		assert.Equal(t, int64(1), count(t, c, "t"), "statements after the failure never run")
	})

	t.Run("empty script", func(t *testing.T) {
		c := connect(t, openLocal(t, MemoryPath))
		b := c.ExecuteBatch(ctx, "  -- nothing\n")
		rows, ok, err := b.Next()
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, rows)
	})

	t.Run("close drops pending results", func(t *testing.T) {
		c := connect(t, openLocal(t, MemoryPath))
		b := c.ExecuteBatch(ctx, "SELECT 1; SELECT 2")
		_, ok, err := b.Next()
		require.NoError(t, err)
		require.True(t, ok)
		b.Close()
		rows, ok, err := b.Next()
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, rows)
		assert.Equal(t, 2, b.Len())
	})
}
