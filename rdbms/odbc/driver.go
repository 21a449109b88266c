// Package odbc implements the ODBC backend name from the original driver
// contract. No repository in this module's retrieval pack carries a real
// unixODBC binding, so this package backs "odbc" with
// github.com/microsoft/go-mssqldb instead, the closest thing the pack
// offers to a generic enterprise-database wire driver reachable through
// database/sql. Applications that need an actual ODBC DSN should register
// a different provider under the same name; this one is a stand-in.
package odbc

import (
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/GitMensch/gixsql/rdbms"
	"github.com/GitMensch/gixsql/rdbms/sqlcommon"
)

func init() {
	rdbms.Register("odbc", func() rdbms.DbInterface { return New() })
}

// Driver is the ODBC-slot rdbms.DbInterface implementation.
type Driver struct {
	*sqlcommon.Driver
}

// New constructs an unconnected Driver.
func New() *Driver {
	return &Driver{Driver: sqlcommon.New("sqlserver", buildDSN)}
}

func buildDSN(info rdbms.ConnInfo, opts rdbms.ConnOptions) string {
	u := &url.URL{
		Scheme: "sqlserver",
		Host:   info.Host,
		Path:   "/" + info.DBName,
	}
	if info.Username != "" {
		u.User = url.UserPassword(info.Username, info.Password)
	}
	if info.Port != 0 {
		u.Host = fmt.Sprintf("%s:%d", info.Host, info.Port)
	}
	return u.String()
}

var _ rdbms.DbInterface = (*Driver)(nil)
