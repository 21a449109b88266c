// Package sqlite implements the SQLite backend of rdbms.DbInterface on top
// of database/sql and modernc.org/sqlite, the pack's pure-Go SQLite driver.
package sqlite

import (
	"github.com/GitMensch/gixsql/rdbms"
	"github.com/GitMensch/gixsql/rdbms/sqlcommon"

	_ "modernc.org/sqlite"
)

func init() {
	rdbms.Register("sqlite", func() rdbms.DbInterface { return New() })
}

// Driver is the SQLite rdbms.DbInterface implementation, sharing its
// database/sql plumbing with the mysql and odbc backends via sqlcommon.
type Driver struct {
	*sqlcommon.Driver
}

// New constructs an unconnected Driver.
func New() *Driver {
	return &Driver{Driver: sqlcommon.New("sqlite", buildDSN)}
}

// buildDSN treats ConnInfo.DBName as the database file path, the only
// piece of connection info a local SQLite file needs.
func buildDSN(info rdbms.ConnInfo, opts rdbms.ConnOptions) string {
	return info.DBName
}

var _ rdbms.DbInterface = (*Driver)(nil)
