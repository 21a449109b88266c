// Package pgsql implements the PostgreSQL backend of rdbms.DbInterface on
// top of pgconn's low-level Exec/ExecParams/Prepare/ExecPrepared calls, the
// same layer libpq's C API exposes to the original driver this package is
// grounded on (spec.md 4.6, 9).
package pgsql

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/GitMensch/gixsql/cobolvar"
	"github.com/GitMensch/gixsql/rdbms"
	"github.com/GitMensch/gixsql/rdbms/sqlparam"
)

const (
	oidBytea   = 17
	oidNumeric = 1700
	oidVarchar = 1043
)

func init() {
	rdbms.Register("pgsql", func() rdbms.DbInterface { return New() })
}

// resultSet is a fully materialized query result: every row's column
// values as raw wire bytes, mirroring the original driver's habit of
// keeping the whole PGresult alive until the next exec on the same handle.
type resultSet struct {
	rows      [][][]byte
	fieldOIDs []uint32
	isNull    [][]bool
}

func (r *resultSet) numRows() int   { return len(r.rows) }
func (r *resultSet) numFields() int { return len(r.fieldOIDs) }

// Driver is the PostgreSQL rdbms.DbInterface implementation.
type Driver struct {
	mu sync.Mutex

	conn *pgconn.PgConn

	autocommitOff   bool
	fixupParameters bool

	cursors   *rdbms.CursorTable
	prepared  *rdbms.PreparedTable
	resultSet map[string]*resultSet // "" -> current (non-cursor, non-prepared) result

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

// New constructs an unconnected Driver.
func New() *Driver {
	return &Driver{
		cursors:   rdbms.NewCursorTable(),
		prepared:  rdbms.NewPreparedTable(),
		resultSet: map[string]*resultSet{},
	}
}

// Connect opens the libpq connection and, per spec.md 4.6 invariant 6,
// immediately starts a transaction since PostgreSQL itself has no
// autocommit-off mode to request at connect time.
func (d *Driver) Connect(ctx context.Context, info rdbms.ConnInfo, opts rdbms.ConnOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cfg := map[string]string{
		"dbname":   info.DBName,
		"host":     info.Host,
		"user":     info.Username,
		"password": info.Password,
	}
	if info.Port != 0 {
		cfg["port"] = strconv.Itoa(info.Port)
	}
	supported := []string{
		"hostaddr", "connect_timeout", "application_name", "keepalives",
		"keepalives_idle", "keepalives_interval", "keepalives_count",
		"sslmode", "requiressl", "sslcert", "sslkey", "sslrootcert",
		"sslcrl", "krbsrvname", "gsslib", "service",
	}
	for _, key := range supported {
		if v, ok := info.Options[key]; ok {
			cfg[key] = v
		}
	}

	var b strings.Builder
	for k, v := range cfg {
		if v == "" {
			continue
		}
		fmt.Fprintf(&b, "%s='%s' ", k, strings.ReplaceAll(v, "'", `\'`))
	}

	conn, err := pgconn.Connect(ctx, strings.TrimSpace(b.String()))
	if err != nil {
		d.setError(rdbms.RcConnFailed, "08001", err.Error())
		return rdbms.ErrConnectFailed
	}
	d.conn = conn

	if schema, ok := info.Options["default_schema"]; ok && schema != "" {
		if _, err := d.conn.Exec(ctx, "set search_path to "+schema).ReadAll(); err != nil {
			d.setError(rdbms.RcConnFailed, "08001", err.Error())
			return err
		}
	}

	d.autocommitOff = opts.AutocommitOff
	d.fixupParameters = opts.FixupParameters
	if d.autocommitOff {
		if _, err := d.conn.Exec(ctx, "BEGIN TRANSACTION").ReadAll(); err != nil {
			d.setError(rdbms.RcConnFailed, "08001", err.Error())
			return err
		}
	}

	d.clearError()
	return nil
}

// Reset closes and reopens nothing by itself (the caller re-Connects);
// it just clears session-local state, matching the original's habit of
// wiping last_error/last_rc/current_resultset_data on init().
func (d *Driver) Reset(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resultSet = map[string]*resultSet{}
	d.cursors = rdbms.NewCursorTable()
	d.prepared = rdbms.NewPreparedTable()
	d.clearError()
	return nil
}

// Disconnect closes the underlying libpq connection.
func (d *Driver) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close(ctx)
	d.conn = nil
	return err
}

func isTxTermination(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(q, "COMMIT") || strings.HasPrefix(q, "ROLLBACK")
}

func isUpdateOrDelete(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(q, "UPDATE") || strings.HasPrefix(q, "DELETE") || strings.HasPrefix(q, "INSERT")
}

// Exec runs query with no bound parameters.
func (d *Driver) Exec(ctx context.Context, query string) (int64, int, error) {
	return d.execParams(ctx, "", query, nil)
}

// ExecParams runs query with bound parameters, storing the result as the
// connection's current (non-cursor) result set.
func (d *Driver) ExecParams(ctx context.Context, query string, params []rdbms.ParamValue) (int64, int, error) {
	return d.execParams(ctx, "", query, params)
}

func (d *Driver) execParams(ctx context.Context, key, query string, params []rdbms.ParamValue) (int64, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return 0, rdbms.RcNotConn, rdbms.ErrNotConnected
	}

	if d.fixupParameters {
		query, _ = sqlparam.RewriteNumbered(query)
	}

	paramValues := make([][]byte, len(params))
	paramOIDs := make([]uint32, len(params))
	paramFormats := make([]int16, len(params))
	for i, p := range params {
		if p.Length == 0 && p.Bytes == nil {
			paramValues[i] = nil
		} else {
			marshaled, err := cobolvar.Marshal(cobolvar.Type(p.Type), p.Flags, p.Scale, p.Bytes)
			if err != nil {
				d.setError(rdbms.RcError, "22000", err.Error())
				return 0, d.lastCode, err
			}
			paramValues[i] = marshaled
		}
		paramOIDs[i] = pgsqlType(cobolvar.Type(p.Type), p.Flags)
		if cobolvar.HasFlag(p.Flags, cobolvar.FlagBinary) {
			paramFormats[i] = 1
		}
	}

	reader := d.conn.ExecParams(ctx, query, paramValues, paramOIDs, paramFormats, nil)
	rs, rowsAffected, err := drainResultReader(reader)
	if err != nil {
		d.setErrorFromPG(err)
		return 0, d.lastCode, err
	}
	d.clearError()

	if d.autocommitOff && isTxTermination(query) {
		delete(d.resultSet, key)
		if _, txErr := d.conn.Exec(ctx, "START TRANSACTION").ReadAll(); txErr != nil {
			d.setErrorFromPG(txErr)
			return 0, d.lastCode, txErr
		}
		return rowsAffected, rdbms.RcOK, nil
	}

	if isUpdateOrDelete(query) && rowsAffected <= 0 {
		d.setError(rdbms.RcNoData, "02000", "no data")
		return rowsAffected, rdbms.RcNoData, rdbms.ErrNoData
	}

	d.resultSet[key] = rs
	return rowsAffected, rdbms.RcOK, nil
}

// Prepare records query under stmtName for later ExecPrepared calls.
// stmtName is normalized to lower-case; re-preparing a name that is still
// live fails without touching the connection, matching the original
// driver's check-before-PQprepare order.
func (d *Driver) Prepare(ctx context.Context, stmtName, query string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return rdbms.ErrNotConnected
	}
	if d.prepared.Get(stmtName) != nil {
		d.setError(rdbms.RcPrepareFailed, rdbms.ErrPrepareFailed.SQLState, rdbms.ErrPrepareFailed.Message)
		return rdbms.ErrPrepareFailed
	}
	if d.fixupParameters {
		query, _ = sqlparam.RewriteNumbered(query)
	}
	name := strings.ToLower(stmtName)
	if _, err := d.conn.Prepare(ctx, name, query, nil); err != nil {
		d.setErrorFromPG(err)
		return err
	}
	d.prepared.Put(stmtName, query)
	d.clearError()
	return nil
}

// ExecPrepared runs the previously prepared statement with the given
// parameters and stores the result under the statement's own name.
func (d *Driver) ExecPrepared(ctx context.Context, stmtName string, params []rdbms.ParamValue) (int64, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return 0, rdbms.RcNotConn, rdbms.ErrNotConnected
	}
	name := strings.ToLower(stmtName)
	if d.prepared.Get(stmtName) == nil {
		return 0, rdbms.RcNotFound, rdbms.ErrStmtNotFound
	}

	paramValues := make([][]byte, len(params))
	paramFormats := make([]int16, len(params))
	for i, p := range params {
		paramValues[i] = p.Bytes
		if cobolvar.HasFlag(p.Flags, cobolvar.FlagBinary) {
			paramFormats[i] = 1
		}
	}

	reader := d.conn.ExecPrepared(ctx, name, paramValues, paramFormats, nil)
	rs, rowsAffected, err := drainResultReader(reader)
	if err != nil {
		d.setErrorFromPG(err)
		return 0, d.lastCode, err
	}
	d.clearError()
	d.resultSet[name] = rs
	return rowsAffected, rdbms.RcOK, nil
}

// CursorDeclare registers decl. If decl.PreparedSource is set, the cursor's
// query text is resolved from the named prepared statement (spec.md 4.6:
// DECLARE ... FOR :stmt-name).
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

// CursorOpen executes the cursor's query and materializes its full result
// set, matching the original driver's use of ordinary (non-server-side)
// PGresult objects to back all its cursors.
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

func cursorKey(name string) string { return "cursor:" + strings.ToLower(name) }

// CursorFetchOne advances the cursor's row pointer per direction; the
// actual value retrieval happens through GetResultSetValue.
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

// CursorClose ends the cursor's open state and releases its result set.
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
// set for the given context.
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
	if rs == nil || row < 0 || row >= rs.numRows() || col < 0 || col >= rs.numFields() {
		return nil, false, fmt.Errorf("rdbms/pgsql: invalid resultset reference (row %d, col %d)", row, col)
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

// MoveToFirstRecord reports whether the named result set (or the current
// one, if stmtName is empty) has at least one row.
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

// NativeFeatures reports what this backend can do natively.
func (d *Driver) NativeFeatures() rdbms.DbNativeFeature {
	return rdbms.FeatureResultSetRowCount | rdbms.FeaturePreparedStatements
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
		return rs.numFields(), nil
	}
	if rs, ok := d.resultSet[strings.ToLower(cursorOrStmt)]; ok && rs != nil {
		return rs.numFields(), nil
	}
	return -1, nil
}

func (d *Driver) LastErrorCode() int       { return d.lastCode }
func (d *Driver) LastErrorMessage() string { return d.lastMsg }
func (d *Driver) LastSQLState() string     { return d.lastState }

// SetProperty is unsupported by this backend, matching the original
// driver's set_property, whose switch has no cases and always falls
// through to PropertyUnsupported.
func (d *Driver) SetProperty(prop rdbms.Property, value any) (rdbms.PropertySetResult, error) {
	return rdbms.PropertyUnsupported, nil
}

// GetSchemas lists every non-system schema visible to the connection.
func (d *Driver) GetSchemas(ctx context.Context) ([]string, error) {
	rows, err := d.queryStrings(ctx,
		`SELECT schema_name FROM information_schema.schemata
		 WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		 ORDER BY schema_name`)
	return rows, err
}

// GetTables lists every base table in schema.
func (d *Driver) GetTables(ctx context.Context, schema string) ([]string, error) {
	return d.queryStrings(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		 ORDER BY table_name`, schema)
}

// GetColumns describes every column of schema.table in ordinal position.
func (d *Driver) GetColumns(ctx context.Context, schema, table string) ([]rdbms.ColumnInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil, rdbms.ErrNotConnected
	}
	reader := d.conn.ExecParams(ctx,
		`SELECT column_name, data_type, is_nullable, coalesce(character_maximum_length, 0)
		 FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2
		 ORDER BY ordinal_position`,
		[][]byte{[]byte(schema), []byte(table)}, nil, nil, nil)
	rs, _, err := drainResultReader(reader)
	if err != nil {
		return nil, err
	}
	cols := make([]rdbms.ColumnInfo, 0, rs.numRows())
	for _, row := range rs.rows {
		length, _ := strconv.Atoi(string(row[3]))
		cols = append(cols, rdbms.ColumnInfo{
			Name:     string(row[0]),
			DataType: string(row[1]),
			Nullable: string(row[2]) == "YES",
			Length:   length,
		})
	}
	return cols, nil
}

// GetIndexes lists every index defined on schema.table via pg_indexes.
func (d *Driver) GetIndexes(ctx context.Context, schema, table string) ([]rdbms.IndexInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil, rdbms.ErrNotConnected
	}
	reader := d.conn.ExecParams(ctx,
		`SELECT i.relname, a.attname, ix.indisunique
		 FROM pg_index ix
		 JOIN pg_class t ON t.oid = ix.indrelid
		 JOIN pg_class i ON i.oid = ix.indexrelid
		 JOIN pg_namespace n ON n.oid = t.relnamespace
		 JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		 WHERE n.nspname = $1 AND t.relname = $2
		 ORDER BY i.relname`,
		[][]byte{[]byte(schema), []byte(table)}, nil, nil, nil)
	rs, _, err := drainResultReader(reader)
	if err != nil {
		return nil, err
	}
	byName := map[string]*rdbms.IndexInfo{}
	var order []string
	for _, row := range rs.rows {
		name := string(row[0])
		idx, ok := byName[name]
		if !ok {
			idx = &rdbms.IndexInfo{Name: name, Unique: string(row[2]) == "t"}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, string(row[1]))
	}
	indexes := make([]rdbms.IndexInfo, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, *byName[name])
	}
	return indexes, nil
}

func (d *Driver) queryStrings(ctx context.Context, query string, args ...string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil, rdbms.ErrNotConnected
	}
	paramValues := make([][]byte, len(args))
	for i, a := range args {
		paramValues[i] = []byte(a)
	}
	reader := d.conn.ExecParams(ctx, query, paramValues, nil, nil, nil)
	rs, _, err := drainResultReader(reader)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, rs.numRows())
	for _, row := range rs.rows {
		out = append(out, string(row[0]))
	}
	return out, nil
}

var _ rdbms.DbInterface = (*Driver)(nil)
var _ rdbms.SchemaManager = (*Driver)(nil)

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

func (d *Driver) setErrorFromPG(err error) {
	if pgErr, ok := err.(*pgconn.PgError); ok {
		d.setError(rdbms.RcError, pgErr.Code, pgErr.Message)
		return
	}
	d.setError(rdbms.RcError, "HY000", err.Error())
}

func pgsqlType(t cobolvar.Type, flags uint32) uint32 {
	switch t {
	case cobolvar.Alphanumeric, cobolvar.Japanese:
		if cobolvar.HasFlag(flags, cobolvar.FlagBinary) {
			return oidBytea
		}
		return oidVarchar
	default:
		return oidNumeric
	}
}

// drainResultReader reads every row of a pgconn.ResultReader into memory
// and reports the affected-row count from its command tag, mirroring the
// original driver's habit of keeping the whole PGresult around until the
// next exec on the same handle.
func drainResultReader(reader *pgconn.ResultReader) (*resultSet, int64, error) {
	rs := &resultSet{}
	for reader.NextRow() {
		values := reader.Values()
		row := make([][]byte, len(values))
		nullRow := make([]bool, len(values))
		for i, v := range values {
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
	desc := reader.FieldDescriptions()
	rs.fieldOIDs = make([]uint32, len(desc))
	for i, fd := range desc {
		rs.fieldOIDs[i] = fd.DataTypeOID
	}
	tag, err := reader.Close()
	if err != nil {
		return nil, 0, err
	}
	return rs, tag.RowsAffected(), nil
}
