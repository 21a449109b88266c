package esql_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GitMensch/gixsql/cobolvar"
	"github.com/GitMensch/gixsql/esql"
)

func runParser(t *testing.T, buffer string) (*esql.ESQLParser, bool) {
	t.Helper()
	var errData esql.ErrorData
	p := esql.NewESQLParser(fakeOpts{}, nil, &errData)
	p.SetInput(esql.NewBufferData(buffer))
	ok := p.Run(nil)
	if !ok {
		t.Logf("parser error: %v", errData.Err())
	}
	return p, ok
}

func TestParserHostVariableDeclarations(t *testing.T) {
	buf := strings.Join([]string{
		"*>GIX-FILE-PUSH prog.cbl",
		"WORKING-STORAGE SECTION.",
		"EXEC SQL BEGIN DECLARE SECTION END-EXEC.",
		"01  WS-CUST-ID       PIC 9(5).",
		"01  WS-CUST-NAME     PIC X(30).",
		"01  WS-BALANCE       PIC S9(7)V99 COMP-3.",
		"EXEC SQL END DECLARE SECTION END-EXEC.",
		"*>GIX-FILE-POP",
		"",
	}, "\n")

	p, ok := runParser(t, buf)
	require.True(t, ok)
	require.Len(t, p.IR.HostVars, 3)

	id, found := p.IR.FindHostVar("ws-cust-id")
	require.True(t, found)
	require.Equal(t, cobolvar.UnsignedNumber, id.VarType)
	require.Equal(t, 5, id.Length)

	name, found := p.IR.FindHostVar("WS-CUST-NAME")
	require.True(t, found)
	require.Equal(t, cobolvar.Alphanumeric, name.VarType)
	require.Equal(t, 30, name.Length)

	bal, found := p.IR.FindHostVar("WS-BALANCE")
	require.True(t, found)
	require.Equal(t, cobolvar.SignedNumberPD, bal.VarType)
	require.Equal(t, 9, bal.Length)
	require.Equal(t, 2, bal.Scale)
}

func TestParserDuplicateDeclarationFails(t *testing.T) {
	buf := strings.Join([]string{
		"EXEC SQL BEGIN DECLARE SECTION END-EXEC.",
		"01  WS-ID PIC 9(5).",
		"01  WS-ID PIC 9(5).",
		"EXEC SQL END DECLARE SECTION END-EXEC.",
	}, "\n")

	_, ok := runParser(t, buf)
	require.False(t, ok)
}

func TestParserDeclareCursorForLiteralQuery(t *testing.T) {
	buf := "EXEC SQL DECLARE CUR1 CURSOR FOR SELECT ID, NAME FROM CUSTOMER WHERE ID = ? END-EXEC.\n"

	p, ok := runParser(t, buf)
	require.True(t, ok)
	require.Len(t, p.IR.Cursors, 1)

	cur, found := p.IR.FindCursor("cur1")
	require.True(t, found)
	require.False(t, cur.WithHold)
	require.Contains(t, cur.Query, "$1")
}

func TestParserDeclareCursorWithHoldForPreparedStatement(t *testing.T) {
	buf := "EXEC SQL DECLARE CUR2 CURSOR WITH HOLD FOR :STMT1 END-EXEC.\n"

	p, ok := runParser(t, buf)
	require.True(t, ok)
	cur, found := p.IR.FindCursor("CUR2")
	require.True(t, found)
	require.True(t, cur.WithHold)
	require.Equal(t, "STMT1", cur.ParamRef)
}

func TestParserExecuteImmediateAndPrepareUsing(t *testing.T) {
	buf := strings.Join([]string{
		"EXEC SQL PREPARE STMT1 FROM :WS-SQL-TEXT END-EXEC.",
		"EXEC SQL EXECUTE STMT1 USING :WS-ID, :WS-NAME END-EXEC.",
		"EXEC SQL SELECT COUNT(*) INTO :WS-CNT FROM CUSTOMER END-EXEC.",
	}, "\n")

	p, ok := runParser(t, buf)
	require.True(t, ok)
	require.Len(t, p.IR.Stmts, 3)

	require.Equal(t, "PREPARE", p.IR.Stmts[0].Kind.String())
	require.Equal(t, "STMT1", p.IR.Stmts[0].StmtName)

	require.Equal(t, "EXECUTE", p.IR.Stmts[1].Kind.String())
	require.Equal(t, []string{"WS-ID", "WS-NAME"}, paramNames(p.IR.Stmts[1].Params))

	require.Equal(t, "EXEC", p.IR.Stmts[2].Kind.String())
	require.Contains(t, p.IR.Stmts[2].SQLText, "SELECT COUNT(*)")
}

func paramNames(params []esql.ParamRef) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.HostVar
	}
	return names
}

func TestParserUnterminatedExecSqlFails(t *testing.T) {
	buf := "EXEC SQL SELECT 1 FROM DUAL\n"
	_, ok := runParser(t, buf)
	require.False(t, ok)
}

func TestParserRejectsNonBufferInput(t *testing.T) {
	var errData esql.ErrorData
	p := esql.NewESQLParser(fakeOpts{}, nil, &errData)
	p.SetInput(esql.NewFilenameData("prog.cbl"))
	require.False(t, p.Run(nil))
	require.Equal(t, esql.ErrSyntaxError, errData.Code)
}
