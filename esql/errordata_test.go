package esql_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GitMensch/gixsql/esql"
)

func TestErrorDataFirstCodeWins(t *testing.T) {
	var e esql.ErrorData
	require.True(t, e.Success())

	e.SetError(esql.ErrBadInputFile, "first")
	e.SetError(esql.ErrBadOutputFile, "second")

	require.Equal(t, esql.ErrBadInputFile, e.Code)
	require.Equal(t, []string{"first", "second"}, e.Messages)
	require.False(t, e.Success())
}

func TestErrorDataSetErrorf(t *testing.T) {
	var e esql.ErrorData
	e.SetErrorf(esql.ErrSyntaxError, "unexpected token %q at line %d", "END-EXEC", 12)
	require.Equal(t, esql.ErrSyntaxError, e.Code)
	require.Contains(t, e.Messages[0], "END-EXEC")
}

func TestErrorDataWarningsDontFail(t *testing.T) {
	var e esql.ErrorData
	e.AddWarning("just a warning")
	require.True(t, e.Success())
	require.Len(t, e.Warnings, 1)
}

func TestErrorDataErr(t *testing.T) {
	var e esql.ErrorData
	require.NoError(t, e.Err())

	e.SetError(esql.ErrCopyNotFound, "COPY FOO not found")
	err := e.Err()
	require.Error(t, err)
	require.Contains(t, err.Error(), "COPY FOO not found")
}

func TestErrorDataReset(t *testing.T) {
	var e esql.ErrorData
	e.SetError(esql.ErrCopyCycle, "cycle detected")
	e.AddWarning("noise")
	e.Reset()

	require.True(t, e.Success())
	require.Nil(t, e.Messages)
	require.Nil(t, e.Warnings)
}
