package rdbms

import (
	"fmt"
	"strings"
	"sync"
)

// CursorState is the shared bookkeeping every backend driver keeps for one
// declared cursor: the SQL that opens it, whether it currently holds an
// open result set, and the current-row index used before the first fetch
// (spec.md 4.6 invariant 4: current-row-index is -1 before the first
// fetch).
type CursorState struct {
	Decl        CursorDecl
	Open        bool
	CurrentRow  int
	NumRows     int
	ResolvedSQL string // Decl.Query, or the prepared statement's source once resolved
}

// CursorTable is a name-keyed registry of CursorState, shared by every
// backend so cursor bookkeeping does not have to be reimplemented per
// driver. Names are folded to lower case, mirroring the original driver's
// convention that cursor names are case-insensitive.
type CursorTable struct {
	mu      sync.Mutex
	cursors map[string]*CursorState
}

// NewCursorTable constructs an empty table.
func NewCursorTable() *CursorTable {
	return &CursorTable{cursors: map[string]*CursorState{}}
}

func cursorKey(name string) string { return strings.ToLower(name) }

// Declare registers decl, returning an error if a cursor with the same name
// is already open (a cursor cannot be redeclared while live).
func (t *CursorTable) Declare(decl CursorDecl) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := cursorKey(decl.Name)
	if existing, ok := t.cursors[key]; ok && existing.Open {
		return fmt.Errorf("rdbms: cursor %q is already open", decl.Name)
	}
	t.cursors[key] = &CursorState{Decl: decl, CurrentRow: -1}
	return nil
}

// Get returns the named cursor's state, or nil if it was never declared.
func (t *CursorTable) Get(name string) *CursorState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursors[cursorKey(name)]
}

// MarkOpen transitions a declared cursor into the open state with row
// index reset to -1 (no fetch has happened yet).
func (t *CursorTable) MarkOpen(name string, numRows int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs, ok := t.cursors[cursorKey(name)]
	if !ok {
		return fmt.Errorf("rdbms: cursor %q was not declared", name)
	}
	cs.Open = true
	cs.CurrentRow = -1
	cs.NumRows = numRows
	return nil
}

// Advance moves the current row index per direction, returning the new
// index. Direction FetchPrior never goes below -1; FetchCurrent leaves the
// index unchanged unless no fetch has happened yet, in which case it
// behaves like FetchNext.
func (t *CursorTable) Advance(name string, dir FetchDirection) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs, ok := t.cursors[cursorKey(name)]
	if !ok || !cs.Open {
		return 0, fmt.Errorf("rdbms: cursor %q is not open", name)
	}
	switch dir {
	case FetchPrior:
		if cs.CurrentRow > -1 {
			cs.CurrentRow--
		}
	case FetchCurrent:
		if cs.CurrentRow == -1 {
			cs.CurrentRow = 0
		}
	default: // FetchNext
		cs.CurrentRow++
	}
	return cs.CurrentRow, nil
}

// Close removes the cursor's open state and resets its row index to -1.
// The declaration itself (WITH HOLD or not) stays in the table, so the
// cursor can be opened again without being redeclared.
func (t *CursorTable) Close(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs, ok := t.cursors[cursorKey(name)]
	if !ok {
		return fmt.Errorf("rdbms: cursor %q was not declared", name)
	}
	cs.Open = false
	cs.CurrentRow = -1
	return nil
}
