package rdbms_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GitMensch/gixsql/rdbms"
)

func TestPreparedTablePutThenGetIsCaseInsensitive(t *testing.T) {
	tbl := rdbms.NewPreparedTable()
	tbl.Put("STMT1", "SELECT 1")

	stmt := tbl.Get("stmt1")
	require.NotNil(t, stmt)
	require.Equal(t, "STMT1", stmt.Name)
	require.Equal(t, "SELECT 1", stmt.Query)
}

func TestPreparedTableGetMissingReturnsNil(t *testing.T) {
	tbl := rdbms.NewPreparedTable()
	require.Nil(t, tbl.Get("nope"))
}

func TestPreparedTablePutReplacesExisting(t *testing.T) {
	tbl := rdbms.NewPreparedTable()
	tbl.Put("STMT1", "SELECT 1")
	tbl.Put("STMT1", "SELECT 2")

	stmt := tbl.Get("STMT1")
	require.Equal(t, "SELECT 2", stmt.Query)
}

func TestPreparedTableSourceReturnsQuery(t *testing.T) {
	tbl := rdbms.NewPreparedTable()
	tbl.Put("STMT1", "SELECT * FROM T")

	query, err := tbl.Source("STMT1")
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM T", query)
}

func TestPreparedTableSourceMissingFails(t *testing.T) {
	tbl := rdbms.NewPreparedTable()
	_, err := tbl.Source("NOPE")
	require.Error(t, err)
}
