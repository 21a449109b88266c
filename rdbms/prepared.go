package rdbms

import (
	"fmt"
	"strings"
	"sync"
)

// PreparedStatement is the shared bookkeeping for one named prepared
// statement: its name and source text. NumFields and NumRows are not set by
// the drivers in this module and stay zero; the drivers report result shape
// from their own stored result sets.
type PreparedStatement struct {
	Name      string
	Query     string
	NumFields int
	NumRows   int
}

// PreparedTable is a name-keyed registry of PreparedStatement, mirroring
// the original driver's _prepared_stmts map. Names are case-folded like
// cursor names.
type PreparedTable struct {
	mu    sync.Mutex
	stmts map[string]*PreparedStatement
}

// NewPreparedTable constructs an empty table.
func NewPreparedTable() *PreparedTable {
	return &PreparedTable{stmts: map[string]*PreparedStatement{}}
}

// Put registers or replaces the named prepared statement. Re-preparing a
// name that is currently backing an open cursor is a caller error the
// backend driver must check before calling Put (spec.md 4.6 invariant 5).
func (t *PreparedTable) Put(name, query string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stmts[strings.ToLower(name)] = &PreparedStatement{Name: name, Query: query}
}

// Get returns the named prepared statement, or nil if it was never
// prepared.
func (t *PreparedTable) Get(name string) *PreparedStatement {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stmts[strings.ToLower(name)]
}

// Source returns the SQL text of a prepared statement, used to resolve a
// cursor declared as `DECLARE c CURSOR FOR :stmt-name` (spec.md 4.6).
func (t *PreparedTable) Source(name string) (string, error) {
	stmt := t.Get(name)
	if stmt == nil {
		return "", fmt.Errorf("rdbms: prepared statement %q not found", name)
	}
	return stmt.Query, nil
}
