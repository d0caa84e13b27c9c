package main

/*
#include <stdlib.h>
#include "libsql_bridge.h"
*/
import "C"

import (
	"sync"
	"unsafe"
)

// Go typed wrappers calling the exports the way a C caller does, the package tests
// drive the library through them.

// cResult is the status of a call and what it left in out_err_msg.
type cResult struct {
	code    int
	msg     string
	touched bool // out_err_msg was written
}

var untouched = sync.OnceValue(func() *C.char { return C.CString("untouched") })

// call runs fn with out_err_msg preset to a marker. A message written by fn is copied
// and released with libsql_free_string.
func call(fn func(outErr **C.char) C.int) cResult {
	marker := untouched()
	out := marker
	res := cResult{code: int(fn(&out))}
	if out != marker {
		res.touched = true
		if out != nil {
			res.msg = C.GoString(out)
			libsql_free_string(out)
		}
	}
	return res
}

func withCString(s string, fn func(*C.char)) {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	fn(cs)
}

func openFile(path string) (db uint64, res cResult) {
	withCString(path, func(p *C.char) {
		var out C.libsql_database_t
		res = call(func(e **C.char) C.int { return libsql_open_file(p, &out, e) })
		db = uint64(out)
	})
	return db, res
}

func connect(db uint64) (uint64, cResult) {
	var out C.libsql_connection_t
	res := call(func(e **C.char) C.int { return libsql_connect(C.libsql_database_t(db), &out, e) })
	return uint64(out), res
}

func closeDatabase(db uint64) { libsql_close(C.libsql_database_t(db)) }

func disconnect(conn uint64) { libsql_disconnect(C.libsql_connection_t(conn)) }

func execute(conn uint64, sql string) (changes uint64, res cResult) {
	withCString(sql, func(s *C.char) {
		var out C.uint64_t
		res = call(func(e **C.char) C.int { return libsql_execute_none(C.libsql_connection_t(conn), s, &out, e) })
		changes = uint64(out)
	})
	return changes, res
}

// executeNoMessage runs sql with a NULL out_err_msg.
func executeNoMessage(conn uint64, sql string) (code int) {
	withCString(sql, func(s *C.char) {
		var out C.uint64_t
		code = int(libsql_execute_none(C.libsql_connection_t(conn), s, &out, nil))
	})
	return code
}

func executePositional(conn uint64, sql string, values uint64) (changes uint64, res cResult) {
	withCString(sql, func(s *C.char) {
		var out C.uint64_t
		res = call(func(e **C.char) C.int {
			return libsql_execute_positional(C.libsql_connection_t(conn), s, C.libsql_positional_values_t(values), &out, e)
		})
		changes = uint64(out)
	})
	return changes, res
}

func query(conn uint64, sql string) (rows uint64, res cResult) {
	withCString(sql, func(s *C.char) {
		var out C.libsql_rows_t
		res = call(func(e **C.char) C.int { return libsql_query(C.libsql_connection_t(conn), s, &out, e) })
		rows = uint64(out)
	})
	return rows, res
}

// queryNullOutput runs sql with a NULL out_rows.
func queryNullOutput(conn uint64, sql string) (res cResult) {
	withCString(sql, func(s *C.char) {
		res = call(func(e **C.char) C.int { return libsql_query(C.libsql_connection_t(conn), s, nil, e) })
	})
	return res
}

func nextRow(rows uint64) (uint64, cResult) {
	var out C.libsql_row_t
	res := call(func(e **C.char) C.int { return libsql_next_row(C.libsql_rows_t(rows), &out, e) })
	return uint64(out), res
}

func freeRows(rows uint64) { libsql_free_rows(C.libsql_rows_t(rows)) }

func freeRow(row uint64) { libsql_free_row(C.libsql_row_t(row)) }

func columnType(rows, row uint64, col int) (int, cResult) {
	var out C.int
	res := call(func(e **C.char) C.int {
		return libsql_column_type(C.libsql_rows_t(rows), C.libsql_row_t(row), C.int(col), &out, e)
	})
	return int(out), res
}

func getInt(row uint64, col int) (int64, cResult) {
	var out C.longlong
	res := call(func(e **C.char) C.int { return libsql_get_int(C.libsql_row_t(row), C.int(col), &out, e) })
	return int64(out), res
}

// getIntNullOutput reads a cell with a NULL out_value.
func getIntNullOutput(row uint64, col int) cResult {
	return call(func(e **C.char) C.int { return libsql_get_int(C.libsql_row_t(row), C.int(col), nil, e) })
}

func getString(row uint64, col int) (string, cResult) {
	var out *C.char
	res := call(func(e **C.char) C.int { return libsql_get_string(C.libsql_row_t(row), C.int(col), &out, e) })
	if out == nil {
		return "", res
	}
	defer libsql_free_string(out)
	return C.GoString(out), res
}

// getBlob copies a blob cell and releases it with libsql_free_blob.
func getBlob(row uint64, col int) ([]byte, cResult) {
	var out C.libsql_blob_t
	res := call(func(e **C.char) C.int { return libsql_get_blob(C.libsql_row_t(row), C.int(col), &out, e) })
	if out.ptr == nil {
		return nil, res
	}
	defer libsql_free_blob(out)
	return C.GoBytes(unsafe.Pointer(out.ptr), out.len), res
}

func makePositional() uint64 {
	var out C.libsql_positional_values_t
	libsql_make_positional_values(&out)
	return uint64(out)
}

func freePositional(values uint64) {
	libsql_free_positional_values(C.libsql_positional_values_t(values))
}

// bindBlob passes data with n as its length, n may not exceed len(data).
func bindBlob(values uint64, idx int, data []byte, n int) cResult {
	var p *C.uchar
	if len(data) > 0 {
		p = (*C.uchar)(C.CBytes(data))
		defer C.free(unsafe.Pointer(p))
	}
	return call(func(e **C.char) C.int {
		return libsql_positional_bind_blob(C.libsql_positional_values_t(values), C.int(idx), p, C.int(n), e)
	})
}

func executeBatch(conn uint64, sql string) (batch uint64, res cResult) {
	withCString(sql, func(s *C.char) {
		var out C.libsql_batch_rows_t
		res = call(func(e **C.char) C.int { return libsql_execute_batch(C.libsql_connection_t(conn), s, &out, e) })
		batch = uint64(out)
	})
	return batch, res
}

func nextBatch(batch uint64) (uint64, cResult) {
	var out C.libsql_rows_t
	res := call(func(e **C.char) C.int { return libsql_next_stmt_row_batchrows(C.libsql_batch_rows_t(batch), &out, e) })
	return uint64(out), res
}

func freeBatch(batch uint64) { libsql_free_batchrows(C.libsql_batch_rows_t(batch)) }

func begin(conn uint64, behavior int) (uint64, cResult) {
	var out C.libsql_transaction_t
	res := call(func(e **C.char) C.int {
		return libsql_transaction_with_behavior(C.libsql_connection_t(conn), &out, C.int(behavior), e)
	})
	return uint64(out), res
}

func commit(tx uint64) cResult {
	return call(func(e **C.char) C.int { return libsql_commit_transaction(C.libsql_transaction_t(tx), e) })
}

// txConnection borrows the connection of tx, with nullOut the output pointer is NULL.
func txConnection(tx uint64, nullOut bool) (uint64, int) {
	if nullOut {
		return 0, int(libsql_connection_transaction(C.libsql_transaction_t(tx), nil))
	}
	var out C.libsql_connection_t
	code := libsql_connection_transaction(C.libsql_transaction_t(tx), &out)
	return uint64(out), int(code)
}

func changes(conn uint64) uint64 { return uint64(libsql_changes(C.libsql_connection_t(conn))) }
