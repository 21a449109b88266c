// Package sqlcommon implements rdbms.DbInterface once, on top of
// database/sql, for every backend whose only real driver in this module's
// dependency pack is a database/sql driver (MySQL, SQLite, and the
// mssql-backed stand-in for ODBC). The PostgreSQL backend does not use
// this package: it talks to pgconn directly, mirroring the original
// driver's direct libpq calls (spec.md 9).
package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/GitMensch/gixsql/cobolvar"
	"github.com/GitMensch/gixsql/rdbms"
	"github.com/GitMensch/gixsql/rdbms/sqlparam"
)

// DSNBuilder renders a driver-specific data source name from the parsed
// connection info.
type DSNBuilder func(rdbms.ConnInfo, rdbms.ConnOptions) string

// resultSet is a fully materialized *sql.Rows, since database/sql does not
// let a caller seek backward through a live cursor and the original
// drivers' cursor semantics require exactly that (FETCH PRIOR, re-reading
// the current row).
type resultSet struct {
	rows      [][][]byte
	isNull    [][]bool
	numFields int
}

func (r *resultSet) numRows() int { return len(r.rows) }

// Driver is the shared database/sql-backed rdbms.DbInterface
// implementation.
type Driver struct {
	mu sync.Mutex

	driverName string
	buildDSN   DSNBuilder

	db *sql.DB

	autocommitOff   bool
	fixupParameters bool
	tx              *sql.Tx

	cursors   *rdbms.CursorTable
	prepared  *rdbms.PreparedTable
	stmts     map[string]*sql.Stmt
	resultSet map[string]*resultSet

	lastCode  int
	lastState string
	lastMsg   string

	logger *slog.Logger
}

// Init records the logger the driver should use for its own diagnostics.
func (d *Driver) Init(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	d.mu.Lock()
	d.logger = logger
	d.mu.Unlock()
}

// New constructs a Driver for the given database/sql driver name. dsn
// builds the connection string from parsed connection info.
func New(driverName string, dsn DSNBuilder) *Driver {
	return &Driver{
		driverName: driverName,
		buildDSN:   dsn,
		cursors:    rdbms.NewCursorTable(),
		prepared:   rdbms.NewPreparedTable(),
		stmts:      map[string]*sql.Stmt{},
		resultSet:  map[string]*resultSet{},
	}
}

// Connect opens the connection pool and, per spec.md 4.6 invariant 6,
// begins a transaction immediately since autocommit-off is a session
// convention this module enforces itself rather than something every wire
// protocol offers a connect-time flag for.
func (d *Driver) Connect(ctx context.Context, info rdbms.ConnInfo, opts rdbms.ConnOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	db, err := sql.Open(d.driverName, d.buildDSN(info, opts))
	if err != nil {
		d.setError(rdbms.RcConnFailed, "08001", err.Error())
		return rdbms.ErrConnectFailed
	}
	if err := db.PingContext(ctx); err != nil {
		d.setError(rdbms.RcConnFailed, "08001", err.Error())
		return rdbms.ErrConnectFailed
	}
	d.db = db
	d.autocommitOff = opts.AutocommitOff
	d.fixupParameters = opts.FixupParameters

	if d.autocommitOff {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			d.setError(rdbms.RcConnFailed, "08001", err.Error())
			return err
		}
		d.tx = tx
	}

	d.clearError()
	return nil
}

// Reset clears session-local bookkeeping without closing the pool.
func (d *Driver) Reset(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resultSet = map[string]*resultSet{}
	d.cursors = rdbms.NewCursorTable()
	d.prepared = rdbms.NewPreparedTable()
	for _, stmt := range d.stmts {
		stmt.Close()
	}
	d.stmts = map[string]*sql.Stmt{}
	d.clearError()
	return nil
}

// Disconnect closes the pool.
func (d *Driver) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

func (d *Driver) querier() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
} {
	if d.tx != nil {
		return d.tx
	}
	return d.db
}

func isTxTermination(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(q, "COMMIT") || strings.HasPrefix(q, "ROLLBACK")
}

func isSelect(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT")
}

func isUpdateOrDelete(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(q, "UPDATE") || strings.HasPrefix(q, "DELETE") || strings.HasPrefix(q, "INSERT")
}

func toDriverArgs(params []rdbms.ParamValue) ([]any, error) {
	args := make([]any, len(params))
	for i, p := range params {
		if p.Bytes == nil {
			args[i] = nil
			continue
		}
		marshaled, err := cobolvar.Marshal(cobolvar.Type(p.Type), p.Flags, p.Scale, p.Bytes)
		if err != nil {
			return nil, err
		}
		if cobolvar.Type(p.Type).IsNumeric() && !cobolvar.HasFlag(p.Flags, cobolvar.FlagBinary) {
			args[i] = string(marshaled)
		} else {
			args[i] = marshaled
		}
	}
	return args, nil
}

// Exec runs query with no bound parameters.
func (d *Driver) Exec(ctx context.Context, query string) (int64, int, error) {
	return d.execParams(ctx, "", query, nil)
}

// ExecParams runs query with bound parameters, storing any produced rows
// as the connection's current (non-cursor) result set.
func (d *Driver) ExecParams(ctx context.Context, query string, params []rdbms.ParamValue) (int64, int, error) {
	return d.execParams(ctx, "", query, params)
}

func (d *Driver) execParams(ctx context.Context, key, query string, params []rdbms.ParamValue) (int64, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return 0, rdbms.RcNotConn, rdbms.ErrNotConnected
	}

	if d.autocommitOff && isTxTermination(query) {
		var err error
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "COMMIT") {
			err = d.tx.Commit()
		} else {
			err = d.tx.Rollback()
		}
		if err != nil {
			d.setError(rdbms.RcError, "HY000", err.Error())
			return 0, d.lastCode, err
		}
		delete(d.resultSet, key)
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			d.setError(rdbms.RcError, "HY000", err.Error())
			return 0, d.lastCode, err
		}
		d.tx = tx
		d.clearError()
		return 0, rdbms.RcOK, nil
	}

	if d.fixupParameters {
		query = sqlparam.RewritePositional(query)
	}
	stmtSQL := sqlparam.ApplyStyle(query, "d", nil)
	args, err := toDriverArgs(params)
	if err != nil {
		d.setError(rdbms.RcError, "22000", err.Error())
		return 0, d.lastCode, err
	}

	if isSelect(stmtSQL) {
		rows, err := d.querier().QueryContext(ctx, stmtSQL, args...)
		if err != nil {
			d.setError(rdbms.RcError, "HY000", err.Error())
			return 0, d.lastCode, err
		}
		rs, err := materialize(rows)
		if err != nil {
			d.setError(rdbms.RcError, "HY000", err.Error())
			return 0, d.lastCode, err
		}
		d.clearError()
		d.resultSet[key] = rs
		return int64(rs.numRows()), rdbms.RcOK, nil
	}

	res, err := d.querier().ExecContext(ctx, stmtSQL, args...)
	if err != nil {
		d.setError(rdbms.RcError, "HY000", err.Error())
		return 0, d.lastCode, err
	}
	n, _ := res.RowsAffected()
	d.clearError()

	if isUpdateOrDelete(query) && n <= 0 {
		d.setError(rdbms.RcNoData, "02000", "no data")
		return n, rdbms.RcNoData, rdbms.ErrNoData
	}
	return n, rdbms.RcOK, nil
}

// Prepare records query under stmtName as a *sql.Stmt. Re-preparing a name
// that is still live fails without touching the connection, matching the
// pgsql backend's check-before-prepare order.
func (d *Driver) Prepare(ctx context.Context, stmtName, query string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return rdbms.ErrNotConnected
	}
	if d.prepared.Get(stmtName) != nil {
		d.setError(rdbms.RcPrepareFailed, rdbms.ErrPrepareFailed.SQLState, rdbms.ErrPrepareFailed.Message)
		return rdbms.ErrPrepareFailed
	}
	if d.fixupParameters {
		query = sqlparam.RewritePositional(query)
	}
	sqlText := sqlparam.ApplyStyle(query, "d", nil)
	stmt, err := d.db.PrepareContext(ctx, sqlText)
	if err != nil {
		d.setError(rdbms.RcError, "HY000", err.Error())
		return err
	}
	name := strings.ToLower(stmtName)
	d.stmts[name] = stmt
	d.prepared.Put(stmtName, query)
	d.clearError()
	return nil
}

// ExecPrepared runs the previously prepared statement.
func (d *Driver) ExecPrepared(ctx context.Context, stmtName string, params []rdbms.ParamValue) (int64, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := strings.ToLower(stmtName)
	stmt, ok := d.stmts[name]
	if !ok {
		return 0, rdbms.RcNotFound, rdbms.ErrStmtNotFound
	}
	args, err := toDriverArgs(params)
	if err != nil {
		d.setError(rdbms.RcError, "22000", err.Error())
		return 0, d.lastCode, err
	}

	query := d.prepared.Get(stmtName).Query
	if isSelect(query) {
		rows, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			d.setError(rdbms.RcError, "HY000", err.Error())
			return 0, d.lastCode, err
		}
		rs, err := materialize(rows)
		if err != nil {
			d.setError(rdbms.RcError, "HY000", err.Error())
			return 0, d.lastCode, err
		}
		d.clearError()
		d.resultSet[name] = rs
		return int64(rs.numRows()), rdbms.RcOK, nil
	}

	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		d.setError(rdbms.RcError, "HY000", err.Error())
		return 0, d.lastCode, err
	}
	n, _ := res.RowsAffected()
	d.clearError()
	return n, rdbms.RcOK, nil
}

// CursorDeclare registers decl, resolving PreparedSource if set.
func (d *Driver) CursorDeclare(ctx context.Context, decl rdbms.CursorDecl) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if decl.PreparedSource != "" {
		src, err := d.prepared.Source(decl.PreparedSource)
		if err != nil {
			return err
		}
		decl.Query = src
	}
	return d.cursors.Declare(decl)
}

func cursorKey(name string) string { return "cursor:" + strings.ToLower(name) }

// CursorOpen executes the cursor's query and materializes the full result
// set (database/sql, like the original drivers, gives no server-side
// scrollable cursor abstraction to lean on).
func (d *Driver) CursorOpen(ctx context.Context, name string, params []rdbms.ParamValue) error {
	cs := d.cursors.Get(name)
	if cs == nil {
		return rdbms.ErrCursorNotFound
	}
	_, rc, err := d.execParams(ctx, cursorKey(name), cs.Decl.Query, params)
	if err != nil && rc != rdbms.RcOK {
		return err
	}
	d.mu.Lock()
	rs := d.resultSet[cursorKey(name)]
	d.mu.Unlock()
	n := 0
	if rs != nil {
		n = rs.numRows()
	}
	return d.cursors.MarkOpen(name, n)
}

// CursorFetchOne advances the cursor's row pointer.
func (d *Driver) CursorFetchOne(ctx context.Context, name string, dir rdbms.FetchDirection) error {
	row, err := d.cursors.Advance(name, dir)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	rs := d.resultSet[cursorKey(name)]
	if rs == nil || row < 0 || row >= rs.numRows() {
		d.setError(rdbms.RcNoData, "02000", "no data")
		return rdbms.ErrNoData
	}
	return nil
}

// CursorClose ends the cursor's open state.
func (d *Driver) CursorClose(ctx context.Context, name string) error {
	if err := d.cursors.Close(name); err != nil {
		return err
	}
	d.mu.Lock()
	delete(d.resultSet, cursorKey(name))
	d.mu.Unlock()
	return nil
}

// GetResultSetValue reads one column of one row from the resolved result
// set.
func (d *Driver) GetResultSetValue(ctxType rdbms.ResultSetContextType, contextName string, row, col int, valueLen *uint64) ([]byte, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var key string
	switch ctxType {
	case rdbms.ContextCursor:
		key = cursorKey(contextName)
		if cs := d.cursors.Get(contextName); cs != nil && cs.CurrentRow != -1 {
			row = cs.CurrentRow
		}
	case rdbms.ContextPrepared:
		key = strings.ToLower(contextName)
	default:
		key = ""
	}

	rs := d.resultSet[key]
	if rs == nil || row < 0 || row >= rs.numRows() || col < 0 || col >= rs.numFields {
		return nil, false, fmt.Errorf("rdbms/sqlcommon: invalid resultset reference (row %d, col %d)", row, col)
	}
	if rs.isNull[row][col] {
		if valueLen != nil {
			*valueLen = 0
		}
		return nil, true, nil
	}
	val := rs.rows[row][col]
	if valueLen != nil {
		*valueLen = uint64(len(val))
	}
	return val, false, nil
}

// MoveToFirstRecord reports whether the named result set has at least one
// row.
func (d *Driver) MoveToFirstRecord(ctx context.Context, stmtName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := strings.ToLower(stmtName)
	rs, ok := d.resultSet[key]
	if !ok || rs == nil || rs.numRows() <= 0 {
		d.setError(rdbms.RcNoData, "02000", "no data")
		return rdbms.ErrNoData
	}
	return nil
}

// NativeFeatures reports what this backend can do natively; database/sql
// pools give none of the extras pgconn exposes directly.
func (d *Driver) NativeFeatures() rdbms.DbNativeFeature {
	return rdbms.FeaturePreparedStatements
}

// NumRows reports the row count of the named cursor's or statement's
// result set.
func (d *Driver) NumRows(ctx context.Context, cursorOrStmt string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rs, ok := d.resultSet[cursorKey(cursorOrStmt)]; ok && rs != nil {
		return rs.numRows(), nil
	}
	if rs, ok := d.resultSet[strings.ToLower(cursorOrStmt)]; ok && rs != nil {
		return rs.numRows(), nil
	}
	return -1, nil
}

// NumFields reports the column count of the named cursor's or statement's
// result set.
func (d *Driver) NumFields(ctx context.Context, cursorOrStmt string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rs, ok := d.resultSet[cursorKey(cursorOrStmt)]; ok && rs != nil {
		return rs.numFields, nil
	}
	if rs, ok := d.resultSet[strings.ToLower(cursorOrStmt)]; ok && rs != nil {
		return rs.numFields, nil
	}
	return -1, nil
}

func (d *Driver) LastErrorCode() int       { return d.lastCode }
func (d *Driver) LastErrorMessage() string { return d.lastMsg }
func (d *Driver) LastSQLState() string     { return d.lastState }

// SetProperty is unsupported by every database/sql-backed backend in this
// module.
func (d *Driver) SetProperty(prop rdbms.Property, value any) (rdbms.PropertySetResult, error) {
	return rdbms.PropertyUnsupported, nil
}

func (d *Driver) clearError() {
	d.lastCode = rdbms.RcOK
	d.lastMsg = ""
	d.lastState = "00000"
}

func (d *Driver) setError(code int, state, msg string) {
	d.lastCode = code
	d.lastState = state
	d.lastMsg = msg
}

// materialize reads every row of rows into memory, since none of this
// package's backends offer a scrollable server-side cursor to seek
// backward through on FETCH PRIOR.
func materialize(rows *sql.Rows) (*resultSet, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &resultSet{numFields: len(cols)}
	for rows.Next() {
		raw := make([]sql.RawBytes, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([][]byte, len(cols))
		nullRow := make([]bool, len(cols))
		for i, v := range raw {
			if v == nil {
				nullRow[i] = true
				continue
			}
			cp := make([]byte, len(v))
			copy(cp, v)
			row[i] = cp
		}
		rs.rows = append(rs.rows, row)
		rs.isNull = append(rs.isNull, nullRow)
	}
	return rs, rows.Err()
}

var _ rdbms.DbInterface = (*Driver)(nil)
