// Package mysql implements the MySQL backend of rdbms.DbInterface on top of
// database/sql and github.com/go-sql-driver/mysql, the pack's only MySQL
// wire driver.
package mysql

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/GitMensch/gixsql/rdbms"
	"github.com/GitMensch/gixsql/rdbms/sqlcommon"
)

func init() {
	rdbms.Register("mysql", func() rdbms.DbInterface { return New() })
}

// Driver is the MySQL rdbms.DbInterface implementation. It delegates all
// of the shared plumbing (cursor/prepared-statement bookkeeping, result
// materialization, parameter marker rewriting) to sqlcommon, since
// database/sql already gives every SQL backend in this module the same
// query/exec/rows shape.
type Driver struct {
	*sqlcommon.Driver
}

// New constructs an unconnected Driver.
func New() *Driver {
	return &Driver{Driver: sqlcommon.New("mysql", buildDSN)}
}

func buildDSN(info rdbms.ConnInfo, opts rdbms.ConnOptions) string {
	var b strings.Builder
	if info.Username != "" {
		b.WriteString(info.Username)
		if info.Password != "" {
			b.WriteString(":" + info.Password)
		}
		b.WriteString("@")
	}
	host := info.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := info.Port
	if port == 0 {
		port = 3306
	}
	fmt.Fprintf(&b, "tcp(%s:%s)/%s", host, strconv.Itoa(port), info.DBName)
	params := []string{"parseTime=true"}
	if opts.ClientEncoding != "" {
		params = append(params, "charset="+opts.ClientEncoding)
	}
	if len(params) > 0 {
		b.WriteString("?" + strings.Join(params, "&"))
	}
	return b.String()
}

var _ rdbms.DbInterface = (*Driver)(nil)
