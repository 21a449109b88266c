package esql

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/GitMensch/gixsql/cobolvar"
	"github.com/GitMensch/gixsql/rdbms/sqlparam"
)

// ESQLParser is the pipeline stage that lexes and parses the consolidated
// buffer into the structured IR of host-variable declarations, cursor
// declarations and embedded SQL statements (spec.md 4.3).
type ESQLParser struct {
	baseStep

	Options interface {
		Bool(key string, def bool) bool
	}
	Logger *slog.Logger
	Err    *ErrorData

	// IR is the parser's result, made available to ESQLProcessor via
	// shared pipeline state (see esql/ir.go doc comment).
	IR *IR
}

// NewESQLParser constructs a parser step.
func NewESQLParser(opts interface{ Bool(string, bool) bool }, logger *slog.Logger, err *ErrorData) *ESQLParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &ESQLParser{Options: opts, Logger: logger, Err: err, IR: &IR{}}
}

// Name identifies the step for diagnostics.
func (p *ESQLParser) Name() string { return "esql-parser" }

var (
	pushMarkerRE = regexp.MustCompile(`^\*>GIX-FILE-PUSH (.+)$`)
	popMarkerRE  = regexp.MustCompile(`^\*>GIX-FILE-POP\s*$`)
	execSQLRE    = regexp.MustCompile(`(?i)EXEC\s+SQL`)
	endExecRE    = regexp.MustCompile(`(?i)END-EXEC\.?`)
)

type fileFrame struct {
	name string
	line int
}

// Run reads the consolidated Buffer input and populates p.IR.
func (p *ESQLParser) Run(prev Step) bool {
	in := p.Input()
	if in == nil || in.Kind() != KindBuffer {
		p.Err.SetError(ErrSyntaxError, "esql parser: input is not a buffer")
		return false
	}

	debug := p.Options != nil && p.Options.Bool("debug_parser_scanner", false)

	lines := strings.Split(in.Buffer(), "\n")
	stack := []fileFrame{{name: "<consolidated>"}}
	declareSection := false
	declaredNames := map[string]bool{}

	i := 0
	for i < len(lines) {
		raw := lines[i]

		if m := pushMarkerRE.FindStringSubmatch(raw); m != nil {
			stack = append(stack, fileFrame{name: m[1]})
			i++
			continue
		}
		if popMarkerRE.MatchString(raw) {
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			i++
			continue
		}

		top := &stack[len(stack)-1]
		top.line++
		loc := Location{File: top.name, Line: top.line, Column: 1, Length: len(raw)}

		if !execSQLRE.MatchString(raw) {
			if declareSection {
				trimmed := strings.TrimSpace(raw)
				if trimmed == "" || strings.HasPrefix(trimmed, "*") {
					i++
					continue
				}
				hv, ok, err := parseHostVarDecl(trimmed, loc)
				if err != nil {
					p.Err.SetErrorf(ErrSyntaxError, "%s:%d: %v", loc.File, loc.Line, err)
					return false
				}
				if ok {
					key := strings.ToUpper(hv.Name)
					if declaredNames[key] {
						p.Err.SetErrorf(ErrDuplicateDecl, "%s:%d: host variable %s declared twice in the same section", loc.File, loc.Line, hv.Name)
						return false
					}
					declaredNames[key] = true
					p.IR.HostVars = append(p.IR.HostVars, hv)
				}
			}
			i++
			continue
		}

		// Found "EXEC SQL": collect the full statement, which may span
		// multiple lines, up to END-EXEC (or, for BEGIN/END DECLARE
		// SECTION markers, up to the end of that same line).
		block, endIdx, ok := collectBlock(lines, i)
		if !ok {
			p.Err.SetErrorf(ErrUnexpectedEOF, "%s:%d: EXEC SQL block never terminated with END-EXEC", loc.File, loc.Line)
			return false
		}
		body := strings.TrimSpace(execSQLRE.ReplaceAllString(block, ""))
		body = endExecRE.ReplaceAllString(body, "")
		body = strings.TrimSpace(body)
		upperBody := strings.ToUpper(body)

		if debug {
			p.Logger.Debug("esql scanner: matched EXEC SQL block", "file", loc.File, "line", loc.Line, "body", body)
		}

		switch {
		case strings.HasPrefix(upperBody, "BEGIN DECLARE SECTION"):
			declareSection = true
			declaredNames = map[string]bool{}
		case strings.HasPrefix(upperBody, "END DECLARE SECTION"):
			declareSection = false
		case strings.HasPrefix(upperBody, "DECLARE") && strings.Contains(upperBody, "CURSOR"):
			cur, err := parseCursorDecl(body, loc)
			if err != nil {
				p.Err.SetErrorf(ErrSyntaxError, "%s:%d: %v", loc.File, loc.Line, err)
				return false
			}
			p.IR.Cursors = append(p.IR.Cursors, cur)
		default:
			stmt, err := parseStatement(body, loc)
			if err != nil {
				p.Err.SetErrorf(ErrSyntaxError, "%s:%d: %v", loc.File, loc.Line, err)
				return false
			}
			stmt.Span = block
			p.IR.Stmts = append(p.IR.Stmts, stmt)
		}

		i = endIdx + 1
	}

	if declareSection {
		p.Err.SetError(ErrUnexpectedEOF, "unterminated BEGIN DECLARE SECTION")
		return false
	}

	// The parser hands the buffer through unchanged; the processor works
	// from p.IR, not from re-scanning text.
	p.SetOutput(NewBufferData(in.Buffer()))
	return true
}

// collectBlock joins lines[start:] until a line containing END-EXEC is
// found (inclusive), or returns ok=false at EOF. BEGIN/END DECLARE SECTION
// markers are one-line statements and terminate immediately if the same
// line also carries END-EXEC; otherwise scanning continues normally.
func collectBlock(lines []string, start int) (string, int, bool) {
	var b strings.Builder
	for i := start; i < len(lines); i++ {
		line := lines[i]
		if pushMarkerRE.MatchString(line) || popMarkerRE.MatchString(line) {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
		if endExecRE.MatchString(line) {
			return b.String(), i, true
		}
	}
	return "", 0, false
}

func parseStatement(body string, loc Location) (Statement, error) {
	upper := strings.ToUpper(body)
	kind := StmtDML
	switch {
	case strings.HasPrefix(upper, "CONNECT"):
		kind = StmtConnect
	case strings.HasPrefix(upper, "DISCONNECT"):
		kind = StmtDisconnect
	case strings.HasPrefix(upper, "OPEN"):
		kind = StmtOpen
	case strings.HasPrefix(upper, "FETCH"):
		kind = StmtFetch
	case strings.HasPrefix(upper, "CLOSE"):
		kind = StmtClose
	case strings.HasPrefix(upper, "EXECUTE IMMEDIATE"):
		kind = StmtExecuteImmediate
	case strings.HasPrefix(upper, "EXECUTE"):
		kind = StmtExecute
	case strings.HasPrefix(upper, "PREPARE"):
		kind = StmtPrepare
	case strings.HasPrefix(upper, "COMMIT"):
		kind = StmtCommit
	case strings.HasPrefix(upper, "ROLLBACK"):
		kind = StmtRollback
	}

	stmt := Statement{Kind: kind, Location: loc}

	switch kind {
	case StmtOpen, StmtClose:
		fields := strings.Fields(body)
		if len(fields) >= 2 {
			stmt.CursorName = fields[1]
		}
	case StmtFetch:
		fields := strings.Fields(upper)
		mode := "NEXT"
		for _, f := range fields {
			switch f {
			case "PRIOR", "PREVIOUS":
				mode = "PREV"
			case "CURRENT":
				mode = "CUR"
			}
		}
		stmt.FetchMode = mode
		origFields := strings.Fields(body)
		if len(origFields) >= 2 {
			stmt.CursorName = origFields[1]
		}
	case StmtPrepare:
		fields := strings.Fields(body)
		if len(fields) >= 2 {
			stmt.StmtName = strings.TrimSuffix(fields[1], ",")
		}
		if idx := indexOfFold(upper, "FROM"); idx >= 0 {
			sqlSrc := strings.TrimSpace(body[idx+4:])
			rewritten, markers := sqlparam.RewriteNumbered(sqlSrc)
			stmt.SQLText = rewritten
			stmt.Params = markersToParams(markers)
		}
	case StmtExecute:
		fields := strings.Fields(body)
		if len(fields) >= 2 {
			stmt.StmtName = fields[1]
		}
		if idx := indexOfFold(upper, "USING"); idx >= 0 {
			usingClause := body[idx+5:]
			for _, name := range splitParamList(usingClause) {
				stmt.Params = append(stmt.Params, ParamRef{Position: len(stmt.Params) + 1, HostVar: name})
			}
		}
	default:
		rewritten, markers := sqlparam.RewriteNumbered(body)
		stmt.SQLText = rewritten
		stmt.Params = markersToParams(markers)
	}

	return stmt, nil
}

func markersToParams(markers []sqlparam.Marker) []ParamRef {
	params := make([]ParamRef, 0, len(markers))
	for i, m := range markers {
		name := m.Name
		if name == "" {
			name = "?"
		}
		params = append(params, ParamRef{Position: i + 1, HostVar: name})
	}
	return params
}

func indexOfFold(upper, keyword string) int {
	return strings.Index(upper, keyword)
}

func splitParamList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, ":")
		if part == "" {
			continue
		}
		out = append(out, strings.Fields(part)[0])
	}
	return out
}

var declareCursorRE = regexp.MustCompile(`(?i)^DECLARE\s+([A-Za-z0-9_\-]+)\s+CURSOR(\s+WITH\s+HOLD)?\s+FOR\s+(.*)$`)

func parseCursorDecl(body string, loc Location) (CursorDecl, error) {
	m := declareCursorRE.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return CursorDecl{}, fmt.Errorf("malformed DECLARE CURSOR statement: %q", body)
	}
	cur := CursorDecl{
		Name:     m[1],
		WithHold: m[2] != "",
		Location: loc,
	}
	src := strings.TrimSpace(m[3])
	if strings.HasPrefix(src, ":") {
		cur.ParamRef = strings.TrimPrefix(src, ":")
	} else {
		rewritten, markers := sqlparam.RewriteNumbered(src)
		cur.Query = rewritten
		for _, mk := range markers {
			name := mk.Name
			if name == "" {
				name = "?"
			}
			cur.Params = append(cur.Params, name)
		}
	}
	return cur, nil
}

var picRE = regexp.MustCompile(`(?i)PIC(?:TURE)?\s+([9XASV\(\)\d]+)`)

// parseHostVarDecl parses one line of a BEGIN/END DECLARE SECTION window
// into a HostVariable. Lines that do not start with a numeric level number
// or carry no PIC clause (group items, 88-level condition names) return
// ok=false without error; any level number with a PIC clause, 77 included,
// is accepted.
func parseHostVarDecl(line string, loc Location) (HostVariable, bool, error) {
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return HostVariable{}, false, nil
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return HostVariable{}, false, nil
	}
	name := fields[1]
	rest := strings.ToUpper(strings.Join(fields[2:], " "))

	picMatch := picRE.FindStringSubmatch(rest)
	if picMatch == nil {
		return HostVariable{}, false, nil
	}

	pic := picMatch[1]
	alnum := strings.ContainsAny(pic, "Xx")
	signed := strings.ContainsAny(pic, "Ss")
	length, scale := picLengthAndScale(pic)

	hv := HostVariable{Name: name, Length: length, Scale: scale, Signed: signed, Location: loc}

	switch {
	case alnum:
		hv.VarType = cobolvar.Alphanumeric
	case strings.Contains(rest, "COMP-3") || strings.Contains(rest, "COMPUTATIONAL-3") || strings.Contains(rest, "PACKED-DECIMAL"):
		if signed {
			hv.VarType = cobolvar.SignedNumberPD
		} else {
			hv.VarType = cobolvar.UnsignedNumberPD
		}
	case strings.Contains(rest, "COMP") || strings.Contains(rest, "BINARY"):
		if signed {
			hv.VarType = cobolvar.SignedBinary
		} else {
			hv.VarType = cobolvar.UnsignedBinary
		}
	case strings.Contains(rest, "SIGN") && strings.Contains(rest, "LEADING"):
		if strings.Contains(rest, "SEPARATE") {
			hv.VarType = cobolvar.SignedNumberLS
		} else {
			hv.VarType = cobolvar.SignedNumberLC
		}
	case signed && strings.Contains(rest, "SEPARATE"):
		hv.VarType = cobolvar.SignedNumberTS
	case signed:
		hv.VarType = cobolvar.SignedNumberTC
	default:
		hv.VarType = cobolvar.UnsignedNumber
	}

	return hv, true, nil
}

var repeatRE = regexp.MustCompile(`\((\d+)\)`)

// picLengthAndScale counts the digit/character positions in a PIC clause
// and the number of positions right of an implied decimal point (V).
func picLengthAndScale(pic string) (length, scale int) {
	afterV := false
	i := 0
	for i < len(pic) {
		c := pic[i]
		switch c {
		case 'V', 'v':
			afterV = true
			i++
		case '9', 'X', 'x', 'A', 'a', 'S', 's':
			n := 1
			if i+1 < len(pic) {
				if m := repeatRE.FindStringSubmatch(pic[i+1:]); m != nil && strings.HasPrefix(pic[i+1:], "(") {
					n, _ = strconv.Atoi(m[1])
					i += len(m[0])
				}
			}
			if c == '9' || c == 'X' || c == 'x' || c == 'A' || c == 'a' {
				length += n
				if afterV {
					scale += n
				}
			}
			i++
		default:
			i++
		}
	}
	return length, scale
}
