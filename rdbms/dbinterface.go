// Package rdbms defines the runtime driver contract generated ESQL calls
// bind against (spec.md 4.6), the connection/cursor/prepared-statement
// state shared by every backend, and the static registry that resolves a
// backend name to a concrete driver.
package rdbms

import (
	"context"
	"log/slog"
)

// Legacy numeric return codes, mirrored from the original driver contract
// so generated call sites and SQLCA-style status reporting keep the same
// meaning regardless of which backend is behind the connection.
const (
	RcOK            = 0
	RcNoData        = 100
	RcError         = -1
	RcNotFound      = -305
	RcPrepareFailed = -601
	RcConnFailed    = -930
	RcNotConn       = -931
	RcInvalidCurs   = -932
)

// DbNativeFeature is a bitfield describing the optional capabilities a
// backend exposes, queried via DbInterface.NativeFeatures.
type DbNativeFeature uint64

const (
	FeatureResultSetRowCount DbNativeFeature = 1 << iota
	FeatureAutocommitToggle
	FeaturePreparedStatements
	FeatureNativeCursors
)

// ResultSetContextType discriminates whether a value fetch reads from a
// live cursor, a non-cursor exec result, or a prepared-statement result.
type ResultSetContextType int

const (
	ContextCursor ResultSetContextType = iota
	ContextExec
	ContextPrepared
)

// ConnInfo carries the parsed pieces of a connection string, analogous to
// the original driver's IDataSourceInfo.
type ConnInfo struct {
	Host     string
	Port     int
	DBName   string
	Username string
	Password string
	Options  map[string]string
}

// ConnOptions carries session-level behavior toggles, analogous to
// IConnectionOptions: autocommit is always off per spec.md 4.6 invariant 6,
// so besides that flag it only carries the client encoding and the
// parameter-marker fixup toggle.
type ConnOptions struct {
	AutocommitOff  bool // always true; kept explicit for callers to assert on
	ClientEncoding string

	// FixupParameters, when set, has prepare/exec_params rewrite `?` and
	// `:name` markers in incoming SQL text into the backend's native
	// placeholder syntax before handing it to the driver (spec.md 4.6),
	// preserving quoted string literals.
	FixupParameters bool
}

// ParamValue is one bound parameter for exec_params/exec_prepared: its
// COBOL storage type, raw encoded bytes and the flags recorded on the host
// variable it came from.
type ParamValue struct {
	Type   int // cobolvar.Type, kept as int here to avoid an import cycle
	Bytes  []byte
	Length uint64
	Scale  int // decimal scale, for zoned/packed numeric types
	Flags  uint32
}

// DbInterface is the contract every backend driver implements. It mirrors
// IDbInterface from the original runtime, adapted to Go idioms: explicit
// context.Context on every blocking call, and (code int, err error)
// results instead of an out-parameter error string plus a separate
// get_error_code/get_error_message pair.
type DbInterface interface {
	// Init records the logger the driver should use for its own diagnostics.
	// It runs once, right after the factory constructs the interface and
	// before any other method is called.
	Init(logger *slog.Logger)

	Connect(ctx context.Context, info ConnInfo, opts ConnOptions) error
	Reset(ctx context.Context) error
	Disconnect(ctx context.Context) error

	Exec(ctx context.Context, query string) (rowsAffected int64, rc int, err error)
	ExecParams(ctx context.Context, query string, params []ParamValue) (rowsAffected int64, rc int, err error)

	Prepare(ctx context.Context, stmtName, query string) error
	ExecPrepared(ctx context.Context, stmtName string, params []ParamValue) (rowsAffected int64, rc int, err error)

	CursorDeclare(ctx context.Context, decl CursorDecl) error
	CursorOpen(ctx context.Context, name string, params []ParamValue) error
	CursorFetchOne(ctx context.Context, name string, direction FetchDirection) error
	CursorClose(ctx context.Context, name string) error

	GetResultSetValue(ctxType ResultSetContextType, contextName string, row, col int, valueLen *uint64) (value []byte, isNull bool, err error)
	MoveToFirstRecord(ctx context.Context, stmtName string) error

	NativeFeatures() DbNativeFeature
	NumRows(ctx context.Context, cursorOrStmt string) (int, error)
	NumFields(ctx context.Context, cursorOrStmt string) (int, error)

	LastErrorCode() int
	LastErrorMessage() string
	LastSQLState() string

	SetProperty(prop Property, value any) (PropertySetResult, error)
}

// Property enumerates the connection-level knobs a driver may recognize in
// SetProperty. Every backend in this module recognizes none of them; the
// enumeration exists because the original driver contract dispatches on a
// property name rather than failing SetProperty outright.
type Property int

const (
	PropertyClientEncoding Property = iota
	PropertyIdleInTransactionTimeout
	PropertyStatementTimeout
)

// PropertySetResult reports how SetProperty handled a property.
type PropertySetResult int

const (
	PropertyOK PropertySetResult = iota
	PropertyUnsupported
	PropertyInvalidValue
)

// SchemaManager is the optional catalogue-introspection half of a backend
// driver. A backend that has no notion of schemas/tables (or that has not
// implemented this yet) simply does not satisfy the interface; callers type
// assert for it.
type SchemaManager interface {
	GetSchemas(ctx context.Context) ([]string, error)
	GetTables(ctx context.Context, schema string) ([]string, error)
	GetColumns(ctx context.Context, schema, table string) ([]ColumnInfo, error)
	GetIndexes(ctx context.Context, schema, table string) ([]IndexInfo, error)
}

// ColumnInfo describes one column returned by SchemaManager.GetColumns.
type ColumnInfo struct {
	Name     string
	DataType string
	Nullable bool
	Length   int
}

// IndexInfo describes one index returned by SchemaManager.GetIndexes.
type IndexInfo struct {
	Name    string
	Columns []string
	Unique  bool
}

// FetchDirection is the cursor movement requested by a FETCH statement.
type FetchDirection int

const (
	FetchNext FetchDirection = iota
	FetchPrior
	FetchCurrent
)

// CursorDecl is the runtime-facing counterpart of esql.CursorDecl: it
// carries either a literal query or the name of a prepared statement to
// draw rows from.
type CursorDecl struct {
	Name           string
	Query          string
	PreparedSource string // set instead of Query when DECLARE ... FOR :stmt-name
	WithHold       bool
}
