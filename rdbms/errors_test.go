package rdbms_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GitMensch/gixsql/rdbms"
)

func TestDbErrorMessageFormat(t *testing.T) {
	err := rdbms.NewDbError(-305, "26000", "prepared statement not found")
	require.Equal(t, "prepared statement not found (sqlstate 26000, code -305)", err.Error())
}

func TestSentinelErrorsCarryExpectedCodes(t *testing.T) {
	require.Equal(t, rdbms.RcNoData, rdbms.ErrNoData.Code)
	require.Equal(t, "02000", rdbms.ErrNoData.SQLState)
	require.Equal(t, rdbms.RcNotConn, rdbms.ErrNotConnected.Code)
	require.Equal(t, rdbms.RcConnFailed, rdbms.ErrConnectFailed.Code)
	require.Equal(t, rdbms.RcInvalidCurs, rdbms.ErrCursorNotFound.Code)
}

func TestSentinelErrorsSupportErrorsIs(t *testing.T) {
	wrapped := fmt.Errorf("backend failed: %w", rdbms.ErrUnimplemented)
	require.True(t, errors.Is(wrapped, rdbms.ErrUnimplemented))
	require.False(t, errors.Is(wrapped, rdbms.ErrStmtNotFound))
}
