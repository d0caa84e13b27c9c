package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openConn(t *testing.T) uint64 {
	t.Helper()
	db, res := openFile(filepath.Join(t.TempDir(), "capi.db"))
	require.Zero(t, res.code, res.msg)
	conn, res := connect(db)
	require.Zero(t, res.code, res.msg)
	t.Cleanup(func() {
		disconnect(conn)
		closeDatabase(db)
		api().Runtime().Drain()
	})
	return conn
}

func TestErrorMessage(t *testing.T) {
	conn := openConn(t)

	_, res := execute(conn, "CREATE TABLE t (x INTEGER)")
	require.Zero(t, res.code, res.msg)
	assert.False(t, res.touched, "success leaves out_err_msg alone")

	n, res := execute(conn, "INSERT INTO t VALUES (1), (2), (3)")
	require.Zero(t, res.code, res.msg)
	assert.EqualValues(t, 3, n)
	assert.EqualValues(t, 3, changes(conn))

	_, res = execute(conn, "NOT SQL")
	assert.Positive(t, res.code)
	assert.True(t, res.touched)
	assert.Contains(t, res.msg, "syntax error")

	_, res = connect(0)
	assert.Equal(t, -2, res.code)
	assert.NotEmpty(t, res.msg)

	t.Run("null out_err_msg", func(t *testing.T) {
		assert.Positive(t, executeNoMessage(conn, "NOT SQL"))
		assert.Zero(t, executeNoMessage(conn, "DELETE FROM t"))
	})
}

func TestNullOutput(t *testing.T) {
	conn := openConn(t)

	res := queryNullOutput(conn, "SELECT 1")
	assert.Equal(t, -1, res.code)
	assert.Equal(t, "output pointer is NULL", res.msg)

	rows, res := query(conn, "SELECT 1")
	require.Zero(t, res.code, res.msg)
	defer freeRows(rows)
	row, res := nextRow(rows)
	require.Zero(t, res.code, res.msg)
	defer freeRow(row)
	res = getIntNullOutput(row, 0)
	assert.Equal(t, -1, res.code)
	v, res := getInt(row, 0)
	require.Zero(t, res.code, res.msg)
	assert.EqualValues(t, 1, v)
}

func TestConnectionTransaction(t *testing.T) {
	conn := openConn(t)
	_, res := execute(conn, "CREATE TABLE t (x INTEGER)")
	require.Zero(t, res.code, res.msg)

	tx, res := begin(conn, 0)
	require.Zero(t, res.code, res.msg)

	_, code := txConnection(tx, true)
	assert.Equal(t, -1, code, "NULL output is rejected")

	ref, code := txConnection(tx, false)
	require.Zero(t, code)
	require.NotZero(t, ref)
	again, code := txConnection(tx, false)
	require.Zero(t, code)
	assert.Equal(t, ref, again, "the borrowed handle is reused")

	_, res = execute(ref, "INSERT INTO t VALUES (1)")
	require.Zero(t, res.code, res.msg)
	res = commit(tx)
	require.Zero(t, res.code, res.msg)

	_, code = txConnection(tx, false)
	assert.Equal(t, -2, code, "committed transaction")
	_, res = execute(ref, "INSERT INTO t VALUES (2)")
	assert.Equal(t, -2, res.code, "borrowed handle ends with the transaction")

	rows, res := query(conn, "SELECT count(*) FROM t")
	require.Zero(t, res.code, res.msg)
	defer freeRows(rows)
	row, res := nextRow(rows)
	require.Zero(t, res.code, res.msg)
	defer freeRow(row)
	n, res := getInt(row, 0)
	require.Zero(t, res.code, res.msg)
	assert.EqualValues(t, 1, n)
}

func TestBlobOwnership(t *testing.T) {
	conn := openConn(t)
	_, res := execute(conn, "CREATE TABLE t (b BLOB, s TEXT)")
	require.Zero(t, res.code, res.msg)

	values := makePositional()
	require.NotZero(t, values)
	defer freePositional(values)

	res = bindBlob(values, 0, []byte{0x00, 0x01, 0xff}, -1)
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.msg, "Wrong param value len")

	res = bindBlob(values, 0, []byte{0x00, 0x01, 0xff}, 3)
	require.Zero(t, res.code, res.msg)
	_, res = executePositional(conn, "INSERT INTO t (b, s) VALUES (?, 'x')", values)
	require.Zero(t, res.code, res.msg)

	rows, res := query(conn, "SELECT b, s FROM t")
	require.Zero(t, res.code, res.msg)
	defer freeRows(rows)
	row, res := nextRow(rows)
	require.Zero(t, res.code, res.msg)
	defer freeRow(row)

	kind, res := columnType(rows, row, 0)
	require.Zero(t, res.code, res.msg)
	assert.Equal(t, 4, kind)

	blob, res := getBlob(row, 0)
	require.Zero(t, res.code, res.msg)
	assert.Equal(t, []byte{0x00, 0x01, 0xff}, blob)
	again, res := getBlob(row, 0)
	require.Zero(t, res.code, res.msg)
	assert.Equal(t, blob, again, "every read hands out its own copy")

	s, res := getString(row, 1)
	require.Zero(t, res.code, res.msg)
	assert.Equal(t, "x", s)

	_, res = getBlob(row, 1)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.msg, "Value not a blob")
}

func TestBatchStatus(t *testing.T) {
	conn := openConn(t)

	batch, res := executeBatch(conn, "CREATE TABLE t (x); INSERT INTO t VALUES (7); SELECT x FROM t")
	require.Zero(t, res.code, res.msg)
	defer freeBatch(batch)

	for i := 0; i < 2; i++ {
		rows, res := nextBatch(batch)
		require.Zero(t, res.code, res.msg)
		assert.Zero(t, rows, "statement %d has no rows", i)
	}
	rows, res := nextBatch(batch)
	require.Zero(t, res.code, res.msg)
	require.NotZero(t, rows)
	row, res := nextRow(rows)
	require.Zero(t, res.code, res.msg)
	v, res := getInt(row, 0)
	require.Zero(t, res.code, res.msg)
	assert.EqualValues(t, 7, v)
	freeRow(row)
	freeRows(rows)

	rows, res = nextBatch(batch)
	assert.Equal(t, 1, res.code, "exhausted")
	assert.False(t, res.touched)
	assert.Zero(t, rows)

	failing, res := executeBatch(conn, "SELECT 1; SELECT * FROM missing; SELECT 2")
	require.Zero(t, res.code, res.msg)
	defer freeBatch(failing)
	rows, res = nextBatch(failing)
	require.Zero(t, res.code, res.msg)
	freeRows(rows)
	_, res = nextBatch(failing)
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.msg, "no such table")
	_, res = nextBatch(failing)
	assert.Equal(t, 2, res.code, "the failure is reported again")
}
