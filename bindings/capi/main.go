// Command capi builds the C library of the bridge:
//
//	go build -buildmode=c-shared -o libsql_bridge.so ./bindings/capi
//
// Every fallible call returns 0 on success and a nonzero status otherwise. On failure
// a malloc'ed message is written to out_err_msg when it is not NULL, release it with
// libsql_free_string. Outputs are written only on success. Handle and struct types are
// declared in libsql_bridge.h.
package main

/*
#include <stdlib.h>
#include "libsql_bridge.h"
*/
import "C"

import (
	"errors"
	"unsafe"

	"github.com/EleDiaz/LibSql.Bindings/internal/boundary"
	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
	"github.com/EleDiaz/LibSql.Bindings/internal/value"
)

var errNullOutput = errors.New("output pointer is NULL")

func api() *boundary.Bridge { return boundary.Shared() }

// status converts err to the returned status and writes its message to out.
func status(err error, out **C.char) C.int {
	if err == nil {
		return 0
	}
	if out != nil {
		*out = C.CString(err.Error())
	}
	return C.int(boundary.Code(err))
}

func nullOutput(out **C.char) C.int {
	if out != nil {
		*out = C.CString(errNullOutput.Error())
	}
	return boundary.CodeNullOutput
}

// goString copies a C string, NULL reads as the empty string.
func goString(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

func goBytes(p *C.uchar, n C.int) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(p), n)
}

func tok[T ~uint64](t T) handle.Token { return handle.Token(t) }

// database

//export libsql_enable_internal_tracing
func libsql_enable_internal_tracing() C.int {
	return C.int(api().EnableTracing())
}

//export libsql_open_file
func libsql_open_file(url *C.char, outDB *C.libsql_database_t, outErr **C.char) C.int {
	if outDB == nil {
		return nullOutput(outErr)
	}
	db, err := api().OpenFile(goString(url))
	if err != nil {
		return status(err, outErr)
	}
	*outDB = C.libsql_database_t(db)
	return 0
}

//export libsql_open_remote
func libsql_open_remote(url, authToken *C.char, withWebPKI C.char, outDB *C.libsql_database_t, outErr **C.char) C.int {
	if outDB == nil {
		return nullOutput(outErr)
	}
	db, err := api().OpenRemote(goString(url), goString(authToken), withWebPKI != 0)
	if err != nil {
		return status(err, outErr)
	}
	*outDB = C.libsql_database_t(db)
	return 0
}

//export libsql_open_sync_with_config
func libsql_open_sync_with_config(cfg C.libsql_config_t, outDB *C.libsql_database_t, outErr **C.char) C.int {
	if outDB == nil {
		return nullOutput(outErr)
	}
	db, err := api().OpenSync(boundary.SyncConfig{
		DBPath:         goString(cfg.db_path),
		PrimaryURL:     goString(cfg.primary_url),
		AuthToken:      goString(cfg.auth_token),
		ReadYourWrites: cfg.read_your_writes != 0,
		EncryptionKey:  goString(cfg.encryption_key),
		SyncInterval:   int(cfg.sync_interval),
		WithWebPKI:     cfg.with_webpki != 0,
	})
	if err != nil {
		return status(err, outErr)
	}
	*outDB = C.libsql_database_t(db)
	return 0
}

//export libsql_connect
func libsql_connect(db C.libsql_database_t, outConn *C.libsql_connection_t, outErr **C.char) C.int {
	if outConn == nil {
		return nullOutput(outErr)
	}
	conn, err := api().Connect(tok(db))
	if err != nil {
		return status(err, outErr)
	}
	*outConn = C.libsql_connection_t(conn)
	return 0
}

//export libsql_sync
func libsql_sync(db C.libsql_database_t, outReplicated *C.libsql_replicated_t, outErr **C.char) C.int {
	if outReplicated == nil {
		return nullOutput(outErr)
	}
	rep, err := api().Sync(tok(db))
	if err != nil {
		return status(err, outErr)
	}
	outReplicated.frame_no = C.int(rep.FrameNo)
	outReplicated.frames_synced = C.int(rep.FramesSynced)
	return 0
}

//export libsql_close
func libsql_close(db C.libsql_database_t) {
	_ = api().Close(tok(db))
}

// connection

//export libsql_query
func libsql_query(conn C.libsql_connection_t, sql *C.char, outRows *C.libsql_rows_t, outErr **C.char) C.int {
	if outRows == nil {
		return nullOutput(outErr)
	}
	return rowsResult(api().Query(tok(conn), goString(sql)))(outRows, outErr)
}

//export libsql_query_positional
func libsql_query_positional(conn C.libsql_connection_t, sql *C.char, values C.libsql_positional_values_t,
	outRows *C.libsql_rows_t, outErr **C.char) C.int {
	if outRows == nil {
		return nullOutput(outErr)
	}
	return rowsResult(api().QueryPositional(tok(conn), goString(sql), tok(values)))(outRows, outErr)
}

//export libsql_query_named
func libsql_query_named(conn C.libsql_connection_t, sql *C.char, values C.libsql_named_values_t,
	outRows *C.libsql_rows_t, outErr **C.char) C.int {
	if outRows == nil {
		return nullOutput(outErr)
	}
	return rowsResult(api().QueryNamed(tok(conn), goString(sql), tok(values)))(outRows, outErr)
}

// rowsResult writes a rows handle or the error of a query call.
func rowsResult(rows handle.Token, err error) func(*C.libsql_rows_t, **C.char) C.int {
	return func(out *C.libsql_rows_t, outErr **C.char) C.int {
		if err != nil {
			return status(err, outErr)
		}
		*out = C.libsql_rows_t(rows)
		return 0
	}
}

func changesResult(n int64, err error) func(*C.uint64_t, **C.char) C.int {
	return func(out *C.uint64_t, outErr **C.char) C.int {
		if err != nil {
			return status(err, outErr)
		}
		*out = C.uint64_t(n)
		return 0
	}
}

//export libsql_execute_none
func libsql_execute_none(conn C.libsql_connection_t, sql *C.char, outChanges *C.uint64_t, outErr **C.char) C.int {
	if outChanges == nil {
		return nullOutput(outErr)
	}
	return changesResult(api().ExecuteNone(tok(conn), goString(sql)))(outChanges, outErr)
}

//export libsql_execute_positional
func libsql_execute_positional(conn C.libsql_connection_t, sql *C.char, values C.libsql_positional_values_t,
	outChanges *C.uint64_t, outErr **C.char) C.int {
	if outChanges == nil {
		return nullOutput(outErr)
	}
	return changesResult(api().ExecutePositional(tok(conn), goString(sql), tok(values)))(outChanges, outErr)
}

//export libsql_execute_named
func libsql_execute_named(conn C.libsql_connection_t, sql *C.char, values C.libsql_named_values_t,
	outChanges *C.uint64_t, outErr **C.char) C.int {
	if outChanges == nil {
		return nullOutput(outErr)
	}
	return changesResult(api().ExecuteNamed(tok(conn), goString(sql), tok(values)))(outChanges, outErr)
}

//export libsql_execute_batch
func libsql_execute_batch(conn C.libsql_connection_t, sql *C.char, outBatch *C.libsql_batch_rows_t, outErr **C.char) C.int {
	if outBatch == nil {
		return nullOutput(outErr)
	}
	batch, err := api().ExecuteBatch(tok(conn), goString(sql))
	if err != nil {
		return status(err, outErr)
	}
	*outBatch = C.libsql_batch_rows_t(batch)
	return 0
}

//export libsql_prepare
func libsql_prepare(conn C.libsql_connection_t, sql *C.char, outStmt *C.libsql_stmt_t, outErr **C.char) C.int {
	if outStmt == nil {
		return nullOutput(outErr)
	}
	st, err := api().Prepare(tok(conn), goString(sql))
	if err != nil {
		return status(err, outErr)
	}
	*outStmt = C.libsql_stmt_t(st)
	return 0
}

//export libsql_transaction_with_behavior
func libsql_transaction_with_behavior(conn C.libsql_connection_t, outTx *C.libsql_transaction_t, behavior C.int,
	outErr **C.char) C.int {
	if outTx == nil {
		return nullOutput(outErr)
	}
	tx, err := api().Begin(tok(conn), int(behavior))
	if err != nil {
		return status(err, outErr)
	}
	*outTx = C.libsql_transaction_t(tx)
	return 0
}

//export libsql_load_extension
func libsql_load_extension(conn C.libsql_connection_t, path, entryPoint *C.char, outErr **C.char) C.int {
	return status(api().LoadExtension(tok(conn), goString(path), goString(entryPoint)), outErr)
}

//export libsql_reset
func libsql_reset(conn C.libsql_connection_t, outErr **C.char) C.int {
	return status(api().Reset(tok(conn)), outErr)
}

//export libsql_changes
func libsql_changes(conn C.libsql_connection_t) C.uint64_t {
	return C.uint64_t(api().Changes(tok(conn)))
}

//export libsql_last_insert_rowid
func libsql_last_insert_rowid(conn C.libsql_connection_t) C.int64_t {
	return C.int64_t(api().LastInsertRowID(tok(conn)))
}

//export libsql_disconnect
func libsql_disconnect(conn C.libsql_connection_t) {
	_ = api().Disconnect(tok(conn))
}

// statement

//export libsql_query_stmt
func libsql_query_stmt(stmt C.libsql_stmt_t, outRows *C.libsql_rows_t, outErr **C.char) C.int {
	if outRows == nil {
		return nullOutput(outErr)
	}
	return rowsResult(api().QueryStmt(tok(stmt)))(outRows, outErr)
}

//export libsql_query_stmt_positional
func libsql_query_stmt_positional(stmt C.libsql_stmt_t, values C.libsql_positional_values_t,
	outRows *C.libsql_rows_t, outErr **C.char) C.int {
	if outRows == nil {
		return nullOutput(outErr)
	}
	return rowsResult(api().QueryStmtPositional(tok(stmt), tok(values)))(outRows, outErr)
}

//export libsql_query_stmt_named
func libsql_query_stmt_named(stmt C.libsql_stmt_t, values C.libsql_named_values_t,
	outRows *C.libsql_rows_t, outErr **C.char) C.int {
	if outRows == nil {
		return nullOutput(outErr)
	}
	return rowsResult(api().QueryStmtNamed(tok(stmt), tok(values)))(outRows, outErr)
}

//export libsql_execute_stmt
func libsql_execute_stmt(stmt C.libsql_stmt_t, outChanges *C.uint64_t, outErr **C.char) C.int {
	if outChanges == nil {
		return nullOutput(outErr)
	}
	return changesResult(api().ExecuteStmt(tok(stmt)))(outChanges, outErr)
}

//export libsql_execute_stmt_positional
func libsql_execute_stmt_positional(stmt C.libsql_stmt_t, values C.libsql_positional_values_t,
	outChanges *C.uint64_t, outErr **C.char) C.int {
	if outChanges == nil {
		return nullOutput(outErr)
	}
	return changesResult(api().ExecuteStmtPositional(tok(stmt), tok(values)))(outChanges, outErr)
}

//export libsql_execute_stmt_named
func libsql_execute_stmt_named(stmt C.libsql_stmt_t, values C.libsql_named_values_t,
	outChanges *C.uint64_t, outErr **C.char) C.int {
	if outChanges == nil {
		return nullOutput(outErr)
	}
	return changesResult(api().ExecuteStmtNamed(tok(stmt), tok(values)))(outChanges, outErr)
}

//export libsql_run_stmt
func libsql_run_stmt(stmt C.libsql_stmt_t, outErr **C.char) C.int {
	return status(api().RunStmt(tok(stmt)), outErr)
}

//export libsql_run_stmt_positional
func libsql_run_stmt_positional(stmt C.libsql_stmt_t, values C.libsql_positional_values_t, outErr **C.char) C.int {
	return status(api().RunStmtPositional(tok(stmt), tok(values)), outErr)
}

//export libsql_run_stmt_named
func libsql_run_stmt_named(stmt C.libsql_stmt_t, values C.libsql_named_values_t, outErr **C.char) C.int {
	return status(api().RunStmtNamed(tok(stmt), tok(values)), outErr)
}

//export libsql_reset_stmt
func libsql_reset_stmt(stmt C.libsql_stmt_t, outErr **C.char) C.int {
	return status(api().ResetStmt(tok(stmt)), outErr)
}

//export libsql_finalize_stmt
func libsql_finalize_stmt(stmt C.libsql_stmt_t, outErr **C.char) C.int {
	return status(api().FinalizeStmt(tok(stmt)), outErr)
}

//export libsql_free_stmt
func libsql_free_stmt(stmt C.libsql_stmt_t) {
	_ = api().FreeStmt(tok(stmt))
}

// transaction

//export libsql_commit_transaction
func libsql_commit_transaction(tx C.libsql_transaction_t, outErr **C.char) C.int {
	return status(api().Commit(tok(tx)), outErr)
}

//export libsql_rollback_transaction
func libsql_rollback_transaction(tx C.libsql_transaction_t, outErr **C.char) C.int {
	return status(api().Rollback(tok(tx)), outErr)
}

//export libsql_connection_transaction
func libsql_connection_transaction(tx C.libsql_transaction_t, outConn *C.libsql_connection_t) C.int {
	if outConn == nil {
		return boundary.CodeNullOutput
	}
	conn, err := api().TxConnection(tok(tx))
	if err != nil {
		return status(err, nil)
	}
	*outConn = C.libsql_connection_t(conn)
	return 0
}

// rows

//export libsql_column_count
func libsql_column_count(rows C.libsql_rows_t) C.int {
	return C.int(api().ColumnCount(tok(rows)))
}

//export libsql_column_name
func libsql_column_name(rows C.libsql_rows_t, col C.int, outName **C.char, outErr **C.char) C.int {
	if outName == nil {
		return nullOutput(outErr)
	}
	name, err := api().ColumnName(tok(rows), int(col))
	if err != nil {
		return status(err, outErr)
	}
	*outName = C.CString(name)
	return 0
}

//export libsql_column_type
func libsql_column_type(rows C.libsql_rows_t, row C.libsql_row_t, col C.int, outType *C.int, outErr **C.char) C.int {
	if outType == nil {
		return nullOutput(outErr)
	}
	kind, err := api().ColumnType(tok(rows), tok(row), int(col))
	if err != nil {
		return status(err, outErr)
	}
	*outType = C.int(kind)
	return 0
}

//export libsql_next_row
func libsql_next_row(rows C.libsql_rows_t, outRow *C.libsql_row_t, outErr **C.char) C.int {
	if outRow == nil {
		return nullOutput(outErr)
	}
	row, err := api().NextRow(tok(rows))
	if err != nil {
		return status(err, outErr)
	}
	*outRow = C.libsql_row_t(row)
	return 0
}

//export libsql_free_rows
func libsql_free_rows(rows C.libsql_rows_t) {
	_ = api().FreeRows(tok(rows))
}

//export libsql_free_row
func libsql_free_row(row C.libsql_row_t) {
	_ = api().FreeRow(tok(row))
}

//export libsql_get_int
func libsql_get_int(row C.libsql_row_t, col C.int, outValue *C.longlong, outErr **C.char) C.int {
	if outValue == nil {
		return nullOutput(outErr)
	}
	v, err := api().GetInt(tok(row), int(col))
	if err != nil {
		return status(err, outErr)
	}
	*outValue = C.longlong(v)
	return 0
}

//export libsql_get_float
func libsql_get_float(row C.libsql_row_t, col C.int, outValue *C.double, outErr **C.char) C.int {
	if outValue == nil {
		return nullOutput(outErr)
	}
	v, err := api().GetFloat(tok(row), int(col))
	if err != nil {
		return status(err, outErr)
	}
	*outValue = C.double(v)
	return 0
}

//export libsql_get_string
func libsql_get_string(row C.libsql_row_t, col C.int, outValue **C.char, outErr **C.char) C.int {
	if outValue == nil {
		return nullOutput(outErr)
	}
	v, err := api().GetString(tok(row), int(col))
	if err != nil {
		return status(err, outErr)
	}
	*outValue = C.CString(v)
	return 0
}

//export libsql_get_blob
func libsql_get_blob(row C.libsql_row_t, col C.int, outBlob *C.libsql_blob_t, outErr **C.char) C.int {
	if outBlob == nil {
		return nullOutput(outErr)
	}
	v, err := api().GetBlob(tok(row), int(col))
	if err != nil {
		return status(err, outErr)
	}
	outBlob.ptr = (*C.char)(C.CBytes(v))
	outBlob.len = C.int(len(v))
	return 0
}

//export libsql_free_string
func libsql_free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

//export libsql_free_blob
func libsql_free_blob(b C.libsql_blob_t) {
	if b.ptr != nil {
		C.free(unsafe.Pointer(b.ptr))
	}
}

// batch

// libsql_next_stmt_row_batchrows returns 0 with the next result (a NULL handle for
// statements without rows), 1 once the batch is exhausted and 2 when a statement failed.
// Exhaustion is a nonzero status as in the libsql C API, out_rows and out_err_msg are
// left untouched then.
//
//export libsql_next_stmt_row_batchrows
func libsql_next_stmt_row_batchrows(batch C.libsql_batch_rows_t, outRows *C.libsql_rows_t, outErr **C.char) C.int {
	if outRows == nil {
		return nullOutput(outErr)
	}
	rows, more, err := api().NextBatch(tok(batch))
	if err != nil {
		return status(err, outErr)
	}
	if !more {
		return 1
	}
	*outRows = C.libsql_rows_t(rows)
	return 0
}

//export libsql_free_batchrows
func libsql_free_batchrows(batch C.libsql_batch_rows_t) {
	_ = api().FreeBatch(tok(batch))
}

// positional values

//export libsql_make_positional_values
func libsql_make_positional_values(out *C.libsql_positional_values_t) {
	if out != nil {
		*out = C.libsql_positional_values_t(api().MakePositional())
	}
}

//export libsql_free_positional_values
func libsql_free_positional_values(values C.libsql_positional_values_t) {
	_ = api().FreePositional(tok(values))
}

//export libsql_positional_bind_int
func libsql_positional_bind_int(values C.libsql_positional_values_t, idx C.int, v C.longlong, outErr **C.char) C.int {
	return status(api().BindPositional(tok(values), int(idx), value.Integer(int64(v))), outErr)
}

//export libsql_positional_bind_float
func libsql_positional_bind_float(values C.libsql_positional_values_t, idx C.int, v C.double, outErr **C.char) C.int {
	return status(api().BindPositional(tok(values), int(idx), value.Float(float64(v))), outErr)
}

//export libsql_positional_bind_null
func libsql_positional_bind_null(values C.libsql_positional_values_t, idx C.int, outErr **C.char) C.int {
	return status(api().BindPositional(tok(values), int(idx), value.Null()), outErr)
}

//export libsql_positional_bind_string
func libsql_positional_bind_string(values C.libsql_positional_values_t, idx C.int, v *C.char, outErr **C.char) C.int {
	return status(api().BindPositional(tok(values), int(idx), value.Text(goString(v))), outErr)
}

//export libsql_positional_bind_blob
func libsql_positional_bind_blob(values C.libsql_positional_values_t, idx C.int, v *C.uchar, n C.int, outErr **C.char) C.int {
	return status(api().BindPositionalBlob(tok(values), int(idx), goBytes(v, n), int(n)), outErr)
}

// named values

//export libsql_make_namedvalues
func libsql_make_namedvalues(out *C.libsql_named_values_t) {
	if out != nil {
		*out = C.libsql_named_values_t(api().MakeNamed())
	}
}

//export libsql_free_namedvalues
func libsql_free_namedvalues(values C.libsql_named_values_t) {
	_ = api().FreeNamed(tok(values))
}

//export libsql_named_bind_int
func libsql_named_bind_int(values C.libsql_named_values_t, name *C.char, v C.longlong, outErr **C.char) C.int {
	return status(api().BindNamed(tok(values), goString(name), value.Integer(int64(v))), outErr)
}

//export libsql_named_bind_float
func libsql_named_bind_float(values C.libsql_named_values_t, name *C.char, v C.double, outErr **C.char) C.int {
	return status(api().BindNamed(tok(values), goString(name), value.Float(float64(v))), outErr)
}

//export libsql_named_bind_null
func libsql_named_bind_null(values C.libsql_named_values_t, name *C.char, outErr **C.char) C.int {
	return status(api().BindNamed(tok(values), goString(name), value.Null()), outErr)
}

//export libsql_named_bind_string
func libsql_named_bind_string(values C.libsql_named_values_t, name, v *C.char, outErr **C.char) C.int {
	return status(api().BindNamed(tok(values), goString(name), value.Text(goString(v))), outErr)
}

//export libsql_named_bind_blob
func libsql_named_bind_blob(values C.libsql_named_values_t, name *C.char, v *C.uchar, n C.int, outErr **C.char) C.int {
	return status(api().BindNamedBlob(tok(values), goString(name), goBytes(v, n), int(n)), outErr)
}

func main() {}
