package esql_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GitMensch/gixsql/esql"
)

type fakeProcOpts struct {
	bools   map[string]bool
	strings map[string]string
}

func (o fakeProcOpts) Bool(key string, def bool) bool {
	if v, ok := o.bools[key]; ok {
		return v
	}
	return def
}

func (o fakeProcOpts) String(key string, def string) string {
	if v, ok := o.strings[key]; ok {
		return v
	}
	return def
}

func parseAndProcess(t *testing.T, buffer string, opts fakeProcOpts) (*esql.ESQLParser, *esql.ESQLProcessor, bool) {
	t.Helper()
	var errData esql.ErrorData
	parser := esql.NewESQLParser(fakeOpts{}, nil, &errData)
	parser.SetInput(esql.NewBufferData(buffer))
	require.True(t, parser.Run(nil), "parser failed: %v", errData.Err())

	proc := esql.NewESQLProcessor(parser.IR, opts, nil, &errData)
	proc.SetInput(parser.Output())
	ok := proc.Run(parser)
	if !ok {
		t.Logf("processor error: %v", errData.Err())
	}
	return parser, proc, ok
}

func TestProcessorEmitsCallForSimpleStatement(t *testing.T) {
	buf := "EXEC SQL SELECT COUNT(*) INTO :WS-CNT FROM CUSTOMER END-EXEC.\n"

	_, proc, ok := parseAndProcess(t, buf, fakeProcOpts{strings: map[string]string{"params_style": "d"}})
	require.True(t, ok)
	require.Contains(t, proc.Output().Buffer(), `CALL "GIXSQL-EXEC"`)
	require.Len(t, proc.MapRecords, 1)
	require.Equal(t, "EXEC", proc.MapRecords[0].Verb)
}

func TestProcessorEmitsStaticCallWhenConfigured(t *testing.T) {
	buf := "EXEC SQL COMMIT END-EXEC.\n"

	_, proc, ok := parseAndProcess(t, buf, fakeProcOpts{bools: map[string]bool{"emit_static_calls": true}})
	require.True(t, ok)
	require.Contains(t, proc.Output().Buffer(), `CALL STATIC "GIXSQL-COMMIT"`)
}

func TestProcessorMapsVerbsToRuntimeEntryPoints(t *testing.T) {
	buf := strings.Join([]string{
		"EXEC SQL DECLARE CUR1 CURSOR FOR SELECT ID FROM T END-EXEC.",
		"EXEC SQL OPEN CUR1 END-EXEC.",
		"EXEC SQL FETCH CUR1 INTO :WS-ID END-EXEC.",
		"EXEC SQL CLOSE CUR1 END-EXEC.",
	}, "\n")

	_, proc, ok := parseAndProcess(t, buf, fakeProcOpts{})
	require.True(t, ok)
	out := proc.Output().Buffer()

	// The DECLARE CURSOR block itself has no IR.Stmts entry and must not
	// consume one meant for OPEN/FETCH/CLOSE (a prior alignment bug shifted
	// every statement after a DECLARE-only block by one).
	require.Equal(t, 3, len(proc.MapRecords))
	require.Equal(t, "OPEN", proc.MapRecords[0].Verb)
	require.Equal(t, "FETCH", proc.MapRecords[1].Verb)
	require.Equal(t, "CLOSE", proc.MapRecords[2].Verb)

	require.Contains(t, out, `GIXSQL-OPEN-CURSOR" USING CUR1`)
	require.Contains(t, out, `GIXSQL-FETCH" USING CUR1, NEXT`)
	require.Contains(t, out, `GIXSQL-CLOSE-CURSOR" USING CUR1`)
}

func TestProcessorSkipsDeclareSectionBlocksWithoutConsumingStatements(t *testing.T) {
	buf := strings.Join([]string{
		"EXEC SQL BEGIN DECLARE SECTION END-EXEC.",
		"01  WS-ID PIC 9(5).",
		"EXEC SQL END DECLARE SECTION END-EXEC.",
		"EXEC SQL SELECT ID INTO :WS-ID FROM T WHERE ID = 1 END-EXEC.",
	}, "\n")

	_, proc, ok := parseAndProcess(t, buf, fakeProcOpts{})
	require.True(t, ok)
	require.Len(t, proc.MapRecords, 1)
	require.Equal(t, "EXEC", proc.MapRecords[0].Verb)
}

func TestProcessorSymbolRecordsFromHostVars(t *testing.T) {
	buf := strings.Join([]string{
		"EXEC SQL BEGIN DECLARE SECTION END-EXEC.",
		"01  WS-ID   PIC 9(5).",
		"01  WS-NAME PIC X(10).",
		"EXEC SQL END DECLARE SECTION END-EXEC.",
	}, "\n")

	_, proc, ok := parseAndProcess(t, buf, fakeProcOpts{})
	require.True(t, ok)
	require.Len(t, proc.SymbolRecords, 2)
	require.Equal(t, "WS-ID", proc.SymbolRecords[0].Name)
	require.Equal(t, "WS-NAME", proc.SymbolRecords[1].Name)
}

func TestProcessorSplitsLongVarcharIntoLenArrPair(t *testing.T) {
	longPic := "EXEC SQL BEGIN DECLARE SECTION END-EXEC.\n" +
		"01  WS-BIG-FIELD PIC X(64).\n" +
		"EXEC SQL END DECLARE SECTION END-EXEC.\n"

	_, proc, ok := parseAndProcess(t, longPic, fakeProcOpts{bools: map[string]bool{"picx_as_varchar": true}})
	require.True(t, ok)
	require.Len(t, proc.SymbolRecords, 2)
	require.Equal(t, "WS-BIG-FIELD-LEN", proc.SymbolRecords[0].Name)
	require.Equal(t, "WS-BIG-FIELD-ARR", proc.SymbolRecords[1].Name)
}

func TestProcessorRejectsMissingIR(t *testing.T) {
	var errData esql.ErrorData
	proc := esql.NewESQLProcessor(nil, fakeProcOpts{}, nil, &errData)
	proc.SetInput(esql.NewBufferData("anything"))
	require.False(t, proc.Run(nil))
	require.Equal(t, esql.ErrSyntaxError, errData.Code)
}
