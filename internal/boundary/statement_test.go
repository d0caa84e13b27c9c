package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EleDiaz/LibSql.Bindings/internal/value"
)

func TestPositionalParams(t *testing.T) {
	b, conn := open(t)
	exec(t, b, conn, "CREATE TABLE t (a INTEGER, b TEXT, c REAL, d BLOB)")

	values := b.MakePositional()
	defer b.FreePositional(values)
	require.NoError(t, b.BindPositional(values, 0, value.Integer(7)))
	require.NoError(t, b.BindPositional(values, 2, value.Float(0.25)))
	require.NoError(t, b.BindPositionalBlob(values, 3, []byte{1, 2, 3, 4}, 2))

	n, err := b.ExecutePositional(conn, "INSERT INTO t VALUES (?, ?, ?, ?)", values)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rows, row := queryOne(t, b, conn, "SELECT a, b, c, d FROM t")
	a, err := b.GetInt(row, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 7, a)
	kind, err := b.ColumnType(rows, row, 1)
	require.NoError(t, err)
	assert.Equal(t, value.KindNull, kind, "gap is padded with null")
	blob, err := b.GetBlob(row, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, blob)

	t.Run("bind errors", func(t *testing.T) {
		err := b.BindPositional(values, -1, value.Integer(1))
		assert.Equal(t, 1, Code(err))
		assert.Contains(t, err.Error(), "Wrong param index")
		err = b.BindPositional(values, 0, value.Text("\xff"))
		assert.Equal(t, 2, Code(err))
		assert.Contains(t, err.Error(), "Wrong param value")
		err = b.BindPositionalBlob(values, 0, []byte{1}, -1)
		assert.Equal(t, 2, Code(err))
		err = b.BindPositionalBlob(values, 0, []byte{1}, 2)
		assert.Equal(t, 2, Code(err))
		assert.Contains(t, err.Error(), "Wrong param value len")
	})

	t.Run("query", func(t *testing.T) {
		q := b.MakePositional()
		defer b.FreePositional(q)
		require.NoError(t, b.BindPositional(q, 0, value.Integer(7)))
		rows, err := b.QueryPositional(conn, "SELECT count(*) FROM t WHERE a = ?", q)
		require.NoError(t, err)
		defer b.FreeRows(rows)
		row, err := b.NextRow(rows)
		require.NoError(t, err)
		defer b.FreeRow(row)
		cnt, err := b.GetInt(row, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 1, cnt)
	})
}

func TestNamedParams(t *testing.T) {
	b, conn := open(t)
	exec(t, b, conn, "CREATE TABLE kv (k TEXT, v BLOB)")

	values := b.MakeNamed()
	defer b.FreeNamed(values)
	require.NoError(t, b.BindNamed(values, ":k", value.Text("héllo")))
	require.NoError(t, b.BindNamedBlob(values, "@v", []byte("payload"), 3))

	n, err := b.ExecuteNamed(conn, "INSERT INTO kv VALUES (:k, @v)", values)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, row := queryOne(t, b, conn, "SELECT k, v FROM kv")
	k, err := b.GetString(row, 0)
	require.NoError(t, err)
	assert.Equal(t, "héllo", k)
	v, err := b.GetBlob(row, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("pay"), v)

	t.Run("bind errors", func(t *testing.T) {
		err := b.BindNamed(values, "\xff", value.Integer(1))
		assert.Equal(t, 1, Code(err))
		assert.Contains(t, err.Error(), "Wrong named string")
		err = b.BindNamed(values, ":x", value.Text("\xfe"))
		assert.Equal(t, 1, Code(err))
		assert.Contains(t, err.Error(), "Wrong value string")
		err = b.BindNamedBlob(values, ":x", nil, 1)
		assert.Equal(t, 2, Code(err))
	})

	t.Run("query", func(t *testing.T) {
		q := b.MakeNamed()
		defer b.FreeNamed(q)
		require.NoError(t, b.BindNamed(q, "$k", value.Text("héllo")))
		rows, err := b.QueryNamed(conn, "SELECT count(*) FROM kv WHERE k = $k", q)
		require.NoError(t, err)
		defer b.FreeRows(rows)
		row, err := b.NextRow(rows)
		require.NoError(t, err)
		defer b.FreeRow(row)
		cnt, err := b.GetInt(row, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 1, cnt)
	})
}

func TestStatement(t *testing.T) {
	b, conn := open(t)
	exec(t, b, conn, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)")

	ins, err := b.Prepare(conn, "INSERT INTO t (name) VALUES (?)")
	require.NoError(t, err)
	defer b.FreeStmt(ins)

	for _, name := range []string{"a", "b", "c"} {
		values := b.MakePositional()
		require.NoError(t, b.BindPositional(values, 0, value.Text(name)))
		n, err := b.ExecuteStmtPositional(ins, values)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		require.NoError(t, b.FreePositional(values))
		require.NoError(t, b.ResetStmt(ins))
	}

	sel, err := b.Prepare(conn, "SELECT name FROM t WHERE id > :min ORDER BY id")
	require.NoError(t, err)
	defer b.FreeStmt(sel)
	named := b.MakeNamed()
	defer b.FreeNamed(named)
	require.NoError(t, b.BindNamed(named, ":min", value.Integer(1)))
	rows, err := b.QueryStmtNamed(sel, named)
	require.NoError(t, err)
	defer b.FreeRows(rows)
	var names []string
	for {
		row, err := b.NextRow(rows)
		require.NoError(t, err)
		if row.IsNull() {
			break
		}
		s, err := b.GetString(row, 0)
		require.NoError(t, err)
		names = append(names, s)
		require.NoError(t, b.FreeRow(row))
	}
	assert.Equal(t, []string{"b", "c"}, names)

	t.Run("run", func(t *testing.T) {
		del, err := b.Prepare(conn, "DELETE FROM t WHERE id = 1")
		require.NoError(t, err)
		defer b.FreeStmt(del)
		require.NoError(t, b.RunStmt(del))
		_, row := queryOne(t, b, conn, "SELECT count(*) FROM t")
		cnt, err := b.GetInt(row, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 2, cnt)
	})

	t.Run("finalized", func(t *testing.T) {
		st, err := b.Prepare(conn, "SELECT 1")
		require.NoError(t, err)
		require.NoError(t, b.FinalizeStmt(st))
		require.NoError(t, b.FinalizeStmt(st))

		_, err = b.QueryStmt(st)
		assert.Equal(t, 1, Code(err))
		_, err = b.ExecuteStmt(st)
		assert.Equal(t, 2, Code(err))
		assert.Equal(t, 1, Code(b.RunStmt(st)))
		assert.Equal(t, 1, Code(b.ResetStmt(st)))
		require.NoError(t, b.FreeStmt(st))
		assert.Equal(t, CodeInvalidHandle, Code(b.FreeStmt(st)))
	})
}

func TestTransaction(t *testing.T) {
	b, conn := open(t)
	exec(t, b, conn, "CREATE TABLE t (x INTEGER)")

	t.Run("commit", func(t *testing.T) {
		tx, err := b.Begin(conn, 2)
		require.NoError(t, err)
		ref, err := b.TxConnection(tx)
		require.NoError(t, err)
		again, err := b.TxConnection(tx)
		require.NoError(t, err)
		assert.Equal(t, ref, again)

		exec(t, b, ref, "INSERT INTO t VALUES (1)")
		assert.Equal(t, CodeInvalidHandle, Code(b.Disconnect(ref)), "borrowed connection can't be disconnected")

		require.NoError(t, b.Commit(tx))
		assert.Equal(t, CodeInvalidHandle, Code(b.Commit(tx)), "second commit is rejected")
		_, err = b.ExecuteNone(ref, "INSERT INTO t VALUES (2)")
		assert.Equal(t, CodeInvalidHandle, Code(err), "reference dies with the transaction")
	})

	t.Run("rollback", func(t *testing.T) {
		tx, err := b.Begin(conn, 1)
		require.NoError(t, err)
		exec(t, b, conn, "INSERT INTO t VALUES (3)")
		require.NoError(t, b.Rollback(tx))
		assert.Equal(t, CodeInvalidHandle, Code(b.Rollback(tx)))
	})

	t.Run("nested begin", func(t *testing.T) {
		tx, err := b.Begin(conn, 99)
		require.NoError(t, err)
		defer b.Rollback(tx)
		_, err = b.Begin(conn, 1)
		assert.Equal(t, 1, Code(err))
		assert.Contains(t, err.Error(), "Error creating transaction")
	})

	t.Run("read only", func(t *testing.T) {
		tx, err := b.Begin(conn, 4)
		require.NoError(t, err)
		_, err = b.ExecuteNone(conn, "INSERT INTO t VALUES (4)")
		assert.Equal(t, 2, Code(err))
		require.NoError(t, b.Rollback(tx))
		exec(t, b, conn, "DELETE FROM t WHERE x = 4")
	})

	_, row := queryOne(t, b, conn, "SELECT count(*), sum(x) FROM t")
	cnt, err := b.GetInt(row, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cnt)
}

func TestBatch(t *testing.T) {
	b, conn := open(t)

	t.Run("results in order", func(t *testing.T) {
		batch, err := b.ExecuteBatch(conn, "CREATE TABLE t (x); INSERT INTO t VALUES (1), (2); SELECT x FROM t ORDER BY x;")
		require.NoError(t, err)
		defer b.FreeBatch(batch)

		rows, more, err := b.NextBatch(batch)
		require.NoError(t, err)
		assert.True(t, more)
		assert.True(t, rows.IsNull(), "create has no result set")

		rows, more, err = b.NextBatch(batch)
		require.NoError(t, err)
		assert.True(t, more)
		assert.True(t, rows.IsNull())

		rows, more, err = b.NextBatch(batch)
		require.NoError(t, err)
		require.True(t, more)
		require.False(t, rows.IsNull())
		defer b.FreeRows(rows)
		assert.Equal(t, 1, b.ColumnCount(rows))
		row, err := b.NextRow(rows)
		require.NoError(t, err)
		defer b.FreeRow(row)
		x, err := b.GetInt(row, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 1, x)

		rows, more, err = b.NextBatch(batch)
		require.NoError(t, err)
		assert.False(t, more)
		assert.True(t, rows.IsNull())
	})

	t.Run("failing statement", func(t *testing.T) {
		batch, err := b.ExecuteBatch(conn, "SELECT 1; SELECT * FROM nowhere; SELECT 3")
		require.NoError(t, err)
		defer b.FreeBatch(batch)

		rows, more, err := b.NextBatch(batch)
		require.NoError(t, err)
		require.True(t, more)
		require.NoError(t, b.FreeRows(rows))

		for i := 0; i < 2; i++ {
			_, more, err = b.NextBatch(batch)
			assert.Equal(t, 2, Code(err))
			assert.Contains(t, err.Error(), "statement 1")
			assert.False(t, more)
		}
	})

	t.Run("bad sql", func(t *testing.T) {
		_, err := b.ExecuteBatch(conn, "SELECT '\xff'")
		assert.Equal(t, 1, Code(err))
	})
}

func TestConcurrentCallers(t *testing.T) {
	b := newBridge(t)
	db, err := b.OpenFile(":memory:")
	require.NoError(t, err)
	defer b.Close(db)

	done := make(chan error)
	for i := 0; i < 8; i++ {
		go func(i int) {
			c, err := b.Connect(db)
			if err != nil {
				done <- err
				return
			}
			defer b.Disconnect(c)
			values := b.MakePositional()
			defer b.FreePositional(values)
			if err := b.BindPositional(values, 0, value.Integer(int64(i))); err != nil {
				done <- err
				return
			}
			rows, err := b.QueryPositional(c, "SELECT ?", values)
			if err == nil {
				err = b.FreeRows(rows)
			}
			done <- err
		}(i)
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-done)
	}
}

func TestEcho(t *testing.T) {
	b, conn := open(t)
	text := "Grüße, 世界 🚀"
	blob := []byte{0x00, 0xff, 0x10, 0x00, 0x7f}

	values := b.MakePositional()
	defer b.FreePositional(values)
	require.NoError(t, b.BindPositional(values, 0, value.Text(text)))
	require.NoError(t, b.BindPositionalBlob(values, 1, blob, len(blob)))

	rows, err := b.QueryPositional(conn, "SELECT ?, ?", values)
	require.NoError(t, err)
	defer b.FreeRows(rows)
	row, err := b.NextRow(rows)
	require.NoError(t, err)
	defer b.FreeRow(row)

	got, err := b.GetString(row, 0)
	require.NoError(t, err)
	assert.Equal(t, text, got)
	gotBlob, err := b.GetBlob(row, 1)
	require.NoError(t, err)
	assert.Equal(t, blob, gotBlob)
	assert.Len(t, gotBlob, len(blob))
}
