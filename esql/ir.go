package esql

import "github.com/GitMensch/gixsql/cobolvar"

// Location pinpoints where an IR node originated in the original source,
// derived from the push/pop markers left by SourceConsolidation, so map
// files and diagnostics can point back at the file the programmer actually
// edited rather than the flattened intermediate buffer.
type Location struct {
	File   string
	Line   int
	Column int
	Length int
}

// HostVariable is a declaration made inside an
// EXEC SQL BEGIN/END DECLARE SECTION window.
type HostVariable struct {
	Name     string
	VarType  cobolvar.Type
	Length   int
	Scale    int
	Signed   bool
	Flags    uint32
	Location Location
}

// CursorDecl is an EXEC SQL DECLARE <name> CURSOR [WITH HOLD] FOR ...
// statement.
type CursorDecl struct {
	Name       string
	Query      string // literal SQL text, or "" if ParamRef is set
	ParamRef   string // host-variable name, when the cursor source is `:var`
	WithHold   bool
	Params     []string // ordered host-variable references
	Location   Location
}

// StatementKind enumerates the ESQL verbs recognized by the parser.
type StatementKind int

const (
	StmtConnect StatementKind = iota
	StmtDisconnect
	StmtDeclareCursor
	StmtOpen
	StmtFetch
	StmtClose
	StmtPrepare
	StmtExecute
	StmtExecuteImmediate
	StmtCommit
	StmtRollback
	StmtDML // generic INSERT/UPDATE/DELETE/SELECT INTO
)

// String renders the verb the way it appears in the generated call and the
// map file's "verb" column.
func (k StatementKind) String() string {
	switch k {
	case StmtConnect:
		return "CONNECT"
	case StmtDisconnect:
		return "DISCONNECT"
	case StmtDeclareCursor:
		return "DECLARE"
	case StmtOpen:
		return "OPEN"
	case StmtFetch:
		return "FETCH"
	case StmtClose:
		return "CLOSE"
	case StmtPrepare:
		return "PREPARE"
	case StmtExecute:
		return "EXECUTE"
	case StmtExecuteImmediate:
		return "EXECUTE IMMEDIATE"
	case StmtCommit:
		return "COMMIT"
	case StmtRollback:
		return "ROLLBACK"
	default:
		return "EXEC"
	}
}

// ParamRef binds a placeholder's ordinal position to the host-variable
// reference it stands for, in first-appearance order.
type ParamRef struct {
	Position int
	HostVar  string
	IsOutput bool
}

// Statement is one EXEC SQL ... END-EXEC block, rewritten so its SQL text
// carries backend-neutral ordered placeholders.
type Statement struct {
	ID         string // synthesized statement-id, see esql/processor.go
	Kind       StatementKind
	CursorName string // set for OPEN/FETCH/CLOSE/DECLARE
	StmtName   string // set for PREPARE/EXECUTE ... USING ... (prepared name)
	SQLText    string // with parameter markers rewritten to $n placeholders
	Params     []ParamRef
	FetchMode  string // NEXT | PREV | CUR, set for StmtFetch
	Location   Location
	Span       string // original token span, verbatim, for map output
}

// IR is the parser's output: every host-variable declaration, cursor
// declaration and ESQL statement found in one consolidated buffer, in
// source order. It is produced by ESQLParser and consumed, read-only, by
// ESQLProcessor — the only two components that ever see it, matching the
// "shared-ownership of pipeline steps and IR" design note in spec.md 9.
type IR struct {
	HostVars []HostVariable
	Cursors  []CursorDecl
	Stmts    []Statement
}

// FindHostVar looks up a declared host variable by name (case-insensitive,
// as COBOL identifiers are).
func (ir *IR) FindHostVar(name string) (*HostVariable, bool) {
	for i := range ir.HostVars {
		if equalFold(ir.HostVars[i].Name, name) {
			return &ir.HostVars[i], true
		}
	}
	return nil, false
}

// FindCursor looks up a declared cursor by name (case-insensitive).
func (ir *IR) FindCursor(name string) (*CursorDecl, bool) {
	for i := range ir.Cursors {
		if equalFold(ir.Cursors[i].Name, name) {
			return &ir.Cursors[i], true
		}
	}
	return nil, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
