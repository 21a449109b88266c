package rdbms_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GitMensch/gixsql/rdbms"
)

func TestCursorTableDeclareThenGet(t *testing.T) {
	tbl := rdbms.NewCursorTable()
	require.NoError(t, tbl.Declare(rdbms.CursorDecl{Name: "CUR1", Query: "SELECT 1"}))

	cs := tbl.Get("cur1")
	require.NotNil(t, cs)
	require.Equal(t, -1, cs.CurrentRow)
	require.False(t, cs.Open)
}

func TestCursorTableGetUnknownReturnsNil(t *testing.T) {
	tbl := rdbms.NewCursorTable()
	require.Nil(t, tbl.Get("nope"))
}

func TestCursorTableDeclareRejectsRedeclareWhileOpen(t *testing.T) {
	tbl := rdbms.NewCursorTable()
	require.NoError(t, tbl.Declare(rdbms.CursorDecl{Name: "CUR1"}))
	require.NoError(t, tbl.MarkOpen("CUR1", 3))

	err := tbl.Declare(rdbms.CursorDecl{Name: "cur1"})
	require.Error(t, err)
}

func TestCursorTableMarkOpenResetsCurrentRow(t *testing.T) {
	tbl := rdbms.NewCursorTable()
	require.NoError(t, tbl.Declare(rdbms.CursorDecl{Name: "CUR1"}))
	require.NoError(t, tbl.MarkOpen("CUR1", 5))

	cs := tbl.Get("CUR1")
	require.True(t, cs.Open)
	require.Equal(t, -1, cs.CurrentRow)
	require.Equal(t, 5, cs.NumRows)
}

func TestCursorTableMarkOpenUndeclaredFails(t *testing.T) {
	tbl := rdbms.NewCursorTable()
	require.Error(t, tbl.MarkOpen("NOPE", 0))
}

func TestCursorTableAdvanceNextFromInitialState(t *testing.T) {
	tbl := rdbms.NewCursorTable()
	require.NoError(t, tbl.Declare(rdbms.CursorDecl{Name: "CUR1"}))
	require.NoError(t, tbl.MarkOpen("CUR1", 10))

	row, err := tbl.Advance("CUR1", rdbms.FetchNext)
	require.NoError(t, err)
	require.Equal(t, 0, row)

	row, err = tbl.Advance("CUR1", rdbms.FetchNext)
	require.NoError(t, err)
	require.Equal(t, 1, row)
}

func TestCursorTableAdvancePriorNeverGoesBelowNegativeOne(t *testing.T) {
	tbl := rdbms.NewCursorTable()
	require.NoError(t, tbl.Declare(rdbms.CursorDecl{Name: "CUR1"}))
	require.NoError(t, tbl.MarkOpen("CUR1", 10))

	row, err := tbl.Advance("CUR1", rdbms.FetchPrior)
	require.NoError(t, err)
	require.Equal(t, -1, row)
}

func TestCursorTableAdvanceCurrentActsAsNextBeforeFirstFetch(t *testing.T) {
	tbl := rdbms.NewCursorTable()
	require.NoError(t, tbl.Declare(rdbms.CursorDecl{Name: "CUR1"}))
	require.NoError(t, tbl.MarkOpen("CUR1", 10))

	row, err := tbl.Advance("CUR1", rdbms.FetchCurrent)
	require.NoError(t, err)
	require.Equal(t, 0, row)

	row, err = tbl.Advance("CUR1", rdbms.FetchCurrent)
	require.NoError(t, err)
	require.Equal(t, 0, row)
}

func TestCursorTableAdvanceOnClosedCursorFails(t *testing.T) {
	tbl := rdbms.NewCursorTable()
	require.NoError(t, tbl.Declare(rdbms.CursorDecl{Name: "CUR1"}))

	_, err := tbl.Advance("CUR1", rdbms.FetchNext)
	require.Error(t, err)
}

func TestCursorTableCloseResetsRowButKeepsDeclaration(t *testing.T) {
	tbl := rdbms.NewCursorTable()
	require.NoError(t, tbl.Declare(rdbms.CursorDecl{Name: "CUR1", WithHold: true}))
	require.NoError(t, tbl.MarkOpen("CUR1", 2))
	_, err := tbl.Advance("CUR1", rdbms.FetchNext)
	require.NoError(t, err)

	require.NoError(t, tbl.Close("CUR1"))

	cs := tbl.Get("CUR1")
	require.False(t, cs.Open)
	require.Equal(t, -1, cs.CurrentRow)
	require.True(t, cs.Decl.WithHold)
}

func TestCursorTableCloseUndeclaredFails(t *testing.T) {
	tbl := rdbms.NewCursorTable()
	require.Error(t, tbl.Close("NOPE"))
}
