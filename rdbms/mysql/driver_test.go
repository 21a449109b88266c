package mysql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GitMensch/gixsql/rdbms"
)

func TestBuildDSNWithCredentialsAndDefaults(t *testing.T) {
	dsn := buildDSN(rdbms.ConnInfo{Username: "app", Password: "secret", DBName: "orders"}, rdbms.ConnOptions{})
	require.Equal(t, "app:secret@tcp(127.0.0.1:3306)/orders?parseTime=true", dsn)
}

func TestBuildDSNWithExplicitHostPortAndEncoding(t *testing.T) {
	dsn := buildDSN(
		rdbms.ConnInfo{Host: "db.internal", Port: 3307, DBName: "orders"},
		rdbms.ConnOptions{ClientEncoding: "utf8mb4"},
	)
	require.Equal(t, "tcp(db.internal:3307)/orders?parseTime=true&charset=utf8mb4", dsn)
}

func TestBuildDSNWithoutCredentialsOmitsUserinfo(t *testing.T) {
	dsn := buildDSN(rdbms.ConnInfo{DBName: "orders"}, rdbms.ConnOptions{})
	require.NotContains(t, dsn, "@")
}
