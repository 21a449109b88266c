package pgsql

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/GitMensch/gixsql/cobolvar"
	"github.com/GitMensch/gixsql/rdbms"
)

func TestIsTxTerminationRecognizesCommitAndRollback(t *testing.T) {
	require.True(t, isTxTermination("COMMIT"))
	require.True(t, isTxTermination("  rollback  "))
	require.False(t, isTxTermination("SELECT 1"))
}

func TestIsUpdateOrDeleteRecognizesDMLVerbs(t *testing.T) {
	require.True(t, isUpdateOrDelete("UPDATE t SET a = 1"))
	require.True(t, isUpdateOrDelete("delete from t"))
	require.True(t, isUpdateOrDelete("INSERT INTO t VALUES (1)"))
	require.False(t, isUpdateOrDelete("SELECT * FROM t"))
	require.False(t, isUpdateOrDelete("CREATE TABLE t (id INT)"))
}

func TestCursorKeyLowercasesAndPrefixes(t *testing.T) {
	require.Equal(t, "cursor:cur1", cursorKey("CUR1"))
}

func TestPgsqlTypeMapsAlphanumericToVarcharUnlessBinaryFlagged(t *testing.T) {
	require.Equal(t, uint32(oidVarchar), pgsqlType(cobolvar.Alphanumeric, 0))
	require.Equal(t, uint32(oidBytea), pgsqlType(cobolvar.Alphanumeric, uint32(cobolvar.FlagBinary)))
	require.Equal(t, uint32(oidVarchar), pgsqlType(cobolvar.Japanese, 0))
	require.Equal(t, uint32(oidNumeric), pgsqlType(cobolvar.UnsignedNumber, 0))
	require.Equal(t, uint32(oidNumeric), pgsqlType(cobolvar.SignedNumberPD, 0))
}

func TestSetErrorFromPGUsesPgErrorCodeWhenAvailable(t *testing.T) {
	d := New()
	d.setErrorFromPG(&pgconn.PgError{Code: "23505", Message: "duplicate key"})
	require.Equal(t, rdbms.RcError, d.LastErrorCode())
	require.Equal(t, "23505", d.LastSQLState())
	require.Equal(t, "duplicate key", d.LastErrorMessage())
}

func TestSetErrorFromPGFallsBackToGenericSQLStateForNonPgError(t *testing.T) {
	d := New()
	d.setErrorFromPG(errors.New("connection reset"))
	require.Equal(t, "HY000", d.LastSQLState())
	require.Equal(t, "connection reset", d.LastErrorMessage())
}

func TestClearErrorResetsToSuccessState(t *testing.T) {
	d := New()
	d.setError(rdbms.RcError, "HY000", "boom")
	d.clearError()
	require.Equal(t, rdbms.RcOK, d.LastErrorCode())
	require.Equal(t, "00000", d.LastSQLState())
	require.Equal(t, "", d.LastErrorMessage())
}

func TestSetPropertyIsAlwaysUnsupported(t *testing.T) {
	d := New()
	result, err := d.SetProperty(rdbms.PropertyClientEncoding, "UTF8")
	require.NoError(t, err)
	require.Equal(t, rdbms.PropertyUnsupported, result)
}
