package esql

import (
	"fmt"
	"os"
	"strings"
)

// MapWriter serializes ESQLProcessor.MapRecords to the tab-separated map
// file format spec.md 6 describes: one row per generated call site, linking
// the line the codegen wrote back to the original source location it came
// from.
type MapWriter struct{}

// Write renders records to path.
func (MapWriter) Write(path string, records []MapRecord) error {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%d\t%s\t%d\t%d\t%s\t%s\n",
			r.GeneratedLine, r.OriginalFile, r.OriginalLine, r.OriginalCol, r.Verb, r.StatementID)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// SymbolWriter serializes ESQLProcessor.SymbolRecords to the tab-separated
// symbol file format spec.md 6 describes: one row per host variable (plus
// the synthetic LEN/ARR subfield rows a varlen PIC X expansion adds).
type SymbolWriter struct{}

// Write renders records to path.
func (SymbolWriter) Write(path string, records []SymbolRecord) error {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s\t%s\t%d\t%d\t%d\n", r.Name, r.VarType, r.Length, r.Scale, r.Offset)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
