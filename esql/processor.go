package esql

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/GitMensch/gixsql/cobolvar"
	"github.com/GitMensch/gixsql/rdbms/sqlparam"
)

// MapRecord is one row of the generated map file: a link from a generated
// call site back to the original source location (spec.md 4.4).
type MapRecord struct {
	GeneratedLine int
	OriginalFile  string
	OriginalLine  int
	OriginalCol   int
	Verb          string
	StatementID   string
}

// SymbolRecord is one row of the generated symbol file: a host variable's
// type/length/offset.
type SymbolRecord struct {
	Name    string
	VarType cobolvar.Type
	Length  int
	Scale   int
	Offset  int
}

// ESQLProcessor is the pipeline stage that transforms the IR back into
// target source text, replacing each ESQL statement with a runtime call
// sequence and emitting optional map/symbol files (spec.md 4.4).
type ESQLProcessor struct {
	baseStep

	Options interface {
		Bool(key string, def bool) bool
		String(key string, def string) string
	}
	Logger *slog.Logger
	Err    *ErrorData

	// IR is read from the parser step via shared pipeline state.
	IR *IR

	MapRecords    []MapRecord
	SymbolRecords []SymbolRecord

	stmtIdx int
}

// nextStatement returns IR statements in source order, one per call, or nil
// once exhausted. Both this pass and the parser's own pass visit EXEC SQL
// blocks strictly left-to-right, so consuming statements in that order here
// lines each generated call up with the block it replaces without having to
// re-derive file/line/column bookkeeping a second time.
func (p *ESQLProcessor) nextStatement() *Statement {
	if p.stmtIdx >= len(p.IR.Stmts) {
		return nil
	}
	s := &p.IR.Stmts[p.stmtIdx]
	p.stmtIdx++
	return s
}

// NewESQLProcessor constructs a processor step bound to ir, the IR produced
// by a preceding ESQLParser step.
func NewESQLProcessor(ir *IR, opts interface {
	Bool(string, bool) bool
	String(string, string) string
}, logger *slog.Logger, err *ErrorData) *ESQLProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ESQLProcessor{IR: ir, Options: opts, Logger: logger, Err: err}
}

// Name identifies the step for diagnostics.
func (p *ESQLProcessor) Name() string { return "esql-processor" }

// Run emits the generated third-generation source into Output, replacing
// each IR statement's original span with a runtime call sequence, and
// records map/symbol rows for the caller to persist if requested.
func (p *ESQLProcessor) Run(prev Step) bool {
	in := p.Input()
	if in == nil || in.Kind() != KindBuffer {
		p.Err.SetError(ErrSyntaxError, "esql processor: input is not a buffer")
		return false
	}
	if p.IR == nil {
		p.Err.SetError(ErrSyntaxError, "esql processor: no IR available (parser step did not run)")
		return false
	}

	paramsStyle := p.Options.String("params_style", "d")
	static := p.Options.Bool("emit_static_calls", false)
	picxAsVarchar := p.Options.Bool("picx_as_varchar", false)
	suffixes := parseVarlenSuffixes(p.Options.String("varlen_suffixes", "LEN,ARR"))

	var out strings.Builder
	lines := strings.Split(in.Buffer(), "\n")
	genLine := 0

	i := 0
	for i < len(lines) {
		line := lines[i]
		if pushMarkerRE.MatchString(line) || popMarkerRE.MatchString(line) {
			i++
			continue
		}
		if execSQLRE.MatchString(line) {
			block, endIdx, ok := collectBlock(lines, i)
			if !ok {
				i++
				continue
			}

			// BEGIN/END DECLARE SECTION and DECLARE ... CURSOR blocks never
			// produce an IR.Stmts entry (the parser files them as HostVars
			// or Cursors instead), so they must not consume one here either
			// — otherwise every statement after the first such block would
			// be paired with the wrong source location.
			body := strings.TrimSpace(execSQLRE.ReplaceAllString(block, ""))
			body = endExecRE.ReplaceAllString(body, "")
			upperBody := strings.ToUpper(strings.TrimSpace(body))
			isDeclareOnly := strings.HasPrefix(upperBody, "BEGIN DECLARE SECTION") ||
				strings.HasPrefix(upperBody, "END DECLARE SECTION") ||
				(strings.HasPrefix(upperBody, "DECLARE") && strings.Contains(upperBody, "CURSOR"))
			if isDeclareOnly {
				i = endIdx + 1
				continue
			}

			stmt := p.nextStatement()
			if stmt != nil {
				for _, wline := range p.emitCall(stmt, paramsStyle, static) {
					out.WriteString(wline)
					out.WriteByte('\n')
					genLine++
				}
				p.MapRecords = append(p.MapRecords, MapRecord{
					GeneratedLine: genLine,
					OriginalFile:  stmt.Location.File,
					OriginalLine:  stmt.Location.Line,
					OriginalCol:   stmt.Location.Column,
					Verb:          stmt.Kind.String(),
					StatementID:   stmt.ID,
				})
			}
			i = endIdx + 1
			continue
		}

		out.WriteString(line)
		out.WriteByte('\n')
		genLine++
		i++
	}

	for _, hv := range p.IR.HostVars {
		offset := 0
		if picxAsVarchar && hv.VarType == cobolvar.Alphanumeric && hv.Length > 32 {
			p.SymbolRecords = append(p.SymbolRecords, SymbolRecord{Name: suffixes.LenFieldName(hv.Name), VarType: cobolvar.UnsignedBinary, Length: 4, Offset: offset})
			p.SymbolRecords = append(p.SymbolRecords, SymbolRecord{Name: suffixes.ArrFieldName(hv.Name), VarType: cobolvar.Alphanumeric, Length: hv.Length, Offset: offset + 4})
			continue
		}
		p.SymbolRecords = append(p.SymbolRecords, SymbolRecord{Name: hv.Name, VarType: hv.VarType, Length: hv.Length, Scale: hv.Scale, Offset: offset})
	}

	p.SetOutput(NewBufferData(out.String()))
	return true
}

func parseVarlenSuffixes(spec string) cobolvar.VarlenSuffixes {
	parts := strings.Split(spec, ",")
	if len(parts) != 2 {
		return cobolvar.DefaultVarlenSuffixes
	}
	return cobolvar.VarlenSuffixes{Len: strings.TrimSpace(parts[0]), Arr: strings.TrimSpace(parts[1])}
}

// runtimeEntryPoint maps a statement kind to the runtime call the generated
// code invokes (spec.md 4.4).
func runtimeEntryPoint(kind StatementKind) string {
	switch kind {
	case StmtConnect:
		return "GIXSQL-CONNECT"
	case StmtDisconnect:
		return "GIXSQL-DISCONNECT"
	case StmtOpen:
		return "GIXSQL-OPEN-CURSOR"
	case StmtFetch:
		return "GIXSQL-FETCH"
	case StmtClose:
		return "GIXSQL-CLOSE-CURSOR"
	case StmtPrepare:
		return "GIXSQL-PREPARE"
	case StmtExecute, StmtExecuteImmediate:
		return "GIXSQL-EXECUTE-PREPARED"
	case StmtCommit:
		return "GIXSQL-COMMIT"
	case StmtRollback:
		return "GIXSQL-ROLLBACK"
	default:
		return "GIXSQL-EXEC"
	}
}

// emitCall renders the fixed-shape call sequence for stmt: a call to the
// runtime entry point, followed by one argument line per referenced host
// variable (address, declared length, type code, flag word).
func (p *ESQLProcessor) emitCall(stmt *Statement, paramsStyle string, static bool) []string {
	entry := runtimeEntryPoint(stmt.Kind)
	if stmt.ID == "" {
		// Derived from source location and verb rather than random: the same
		// input source must produce the same map file byte-for-byte
		// (spec.md 6), and a source location can hold at most one ESQL
		// statement, so file:line:verb is already unique within a run.
		seed := fmt.Sprintf("%s:%d:%s", stmt.Location.File, stmt.Location.Line, entry)
		stmt.ID = fmt.Sprintf("%016x", xxh3.HashString(seed))
	}
	callWord := "CALL"
	if static {
		callWord = "CALL STATIC"
	}

	var lines []string
	sql := stmt.SQLText
	if sql != "" {
		names := make([]string, len(stmt.Params))
		for i, pr := range stmt.Params {
			names[i] = pr.HostVar
		}
		sql = sqlparam.ApplyStyle(sql, paramsStyle, names)
	}

	switch stmt.Kind {
	case StmtOpen, StmtClose:
		lines = append(lines, fmt.Sprintf(`%s "%s" USING %s`, callWord, entry, stmt.CursorName))
	case StmtFetch:
		lines = append(lines, fmt.Sprintf(`%s "%s" USING %s, %s`, callWord, entry, stmt.CursorName, stmt.FetchMode))
	case StmtPrepare:
		lines = append(lines, fmt.Sprintf(`%s "%s" USING %s, "%s"`, callWord, entry, stmt.StmtName, escapeLiteral(sql)))
	case StmtExecute, StmtExecuteImmediate:
		lines = append(lines, fmt.Sprintf(`%s "%s" USING %s`, callWord, entry, stmt.StmtName))
	case StmtCommit, StmtRollback, StmtConnect, StmtDisconnect:
		lines = append(lines, fmt.Sprintf(`%s "%s"`, callWord, entry))
	default:
		lines = append(lines, fmt.Sprintf(`%s "%s" USING "%s"`, callWord, entry, escapeLiteral(sql)))
	}

	for _, pr := range stmt.Params {
		flags := uint32(0)
		if hv, ok := p.IR.FindHostVar(pr.HostVar); ok {
			if hv.VarType.IsBinary() {
				flags |= uint32(cobolvar.FlagBinary)
			}
			lines = append(lines, fmt.Sprintf("    ADDRESS OF %s, %d, %d, %d", hv.Name, hv.Length, int(hv.VarType), flags))
		} else {
			lines = append(lines, fmt.Sprintf("    ADDRESS OF %s, 0, 0, 0", pr.HostVar))
		}
	}

	return lines
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
