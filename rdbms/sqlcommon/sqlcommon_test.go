package sqlcommon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GitMensch/gixsql/cobolvar"
	"github.com/GitMensch/gixsql/rdbms"
)

func TestIsTxTerminationRecognizesCommitAndRollback(t *testing.T) {
	require.True(t, isTxTermination("commit"))
	require.True(t, isTxTermination("  ROLLBACK  "))
	require.False(t, isTxTermination("SELECT 1"))
}

func TestIsSelectOnlyMatchesSelectPrefix(t *testing.T) {
	require.True(t, isSelect("  select * from t"))
	require.False(t, isSelect("UPDATE t SET a = 1"))
}

func TestIsUpdateOrDeleteRecognizesDMLVerbs(t *testing.T) {
	require.True(t, isUpdateOrDelete("update t set a = 1"))
	require.True(t, isUpdateOrDelete("DELETE FROM t"))
	require.True(t, isUpdateOrDelete("insert into t values (1)"))
	require.False(t, isUpdateOrDelete("SELECT 1"))
}

func TestCursorKeyLowercasesAndPrefixes(t *testing.T) {
	require.Equal(t, "cursor:cur1", cursorKey("CUR1"))
}

func TestToDriverArgsUsesStringForNumericAndBytesOtherwise(t *testing.T) {
	args, err := toDriverArgs([]rdbms.ParamValue{
		{Type: int(cobolvar.UnsignedNumber), Bytes: []byte("42")},
		{Type: int(cobolvar.Alphanumeric), Bytes: []byte("hello")},
		{Type: int(cobolvar.UnsignedNumber), Bytes: nil},
	})
	require.NoError(t, err)
	require.Equal(t, "42", args[0])
	require.Equal(t, []byte("hello"), args[1])
	require.Nil(t, args[2])
}

func TestToDriverArgsDecodesPackedDecimalWithScale(t *testing.T) {
	packed, err := cobolvar.EncodePacked(true, 4, -1234)
	require.NoError(t, err)
	args, err := toDriverArgs([]rdbms.ParamValue{
		{Type: int(cobolvar.SignedNumberPD), Bytes: packed, Scale: 2},
	})
	require.NoError(t, err)
	require.Equal(t, "-12.34", args[0])
}

func TestSetPropertyIsAlwaysUnsupported(t *testing.T) {
	d := New("sqlite", func(rdbms.ConnInfo, rdbms.ConnOptions) string { return "" })
	result, err := d.SetProperty(rdbms.PropertyStatementTimeout, 30)
	require.NoError(t, err)
	require.Equal(t, rdbms.PropertyUnsupported, result)
}

func TestClearAndSetErrorRoundTrip(t *testing.T) {
	d := New("sqlite", func(rdbms.ConnInfo, rdbms.ConnOptions) string { return "" })
	d.setError(rdbms.RcError, "HY000", "boom")
	require.Equal(t, rdbms.RcError, d.LastErrorCode())

	d.clearError()
	require.Equal(t, rdbms.RcOK, d.LastErrorCode())
	require.Equal(t, "00000", d.LastSQLState())
	require.Equal(t, "", d.LastErrorMessage())
}

func TestNumRowsAndNumFieldsUnknownKeyReturnsNegativeOne(t *testing.T) {
	d := New("sqlite", func(rdbms.ConnInfo, rdbms.ConnOptions) string { return "" })
	n, err := d.NumRows(nil, "nope")
	require.NoError(t, err)
	require.Equal(t, -1, n)

	n, err = d.NumFields(nil, "nope")
	require.NoError(t, err)
	require.Equal(t, -1, n)
}
