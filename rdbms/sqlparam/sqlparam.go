// Package sqlparam implements parameter-marker recognition and rewriting
// shared by the ESQL parser (spec.md 4.3) and every SQL-based runtime
// driver's fixup_parameters pass (spec.md 4.6). The original C++
// implementation has one static pgsql_fixup_parameters helper reused by the
// PostgreSQL driver; since the marker syntax it rewrites (`?` and `:name`)
// is not PostgreSQL-specific, this package makes that helper available to
// every backend instead of duplicating the scan in each driver package.
package sqlparam

import "strings"

// Marker is one recognized parameter marker found in a piece of SQL text:
// its byte offset and length in the original text, and the host-variable
// name for a `:name` marker (empty for a positional `?` marker).
type Marker struct {
	Start int
	End   int
	Name  string // "" for `?`
}

// Scan walks sql outside quoted string literals and returns every `:name`
// or `?` marker it finds, in left-to-right order. Quoted strings
// (single-quoted, the only quoting SQL text uses for literals) are skipped
// verbatim so a `?` or `:name`-shaped substring inside a literal is never
// mistaken for a marker.
func Scan(sql string) []Marker {
	var markers []Marker
	inQuote := false
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case inQuote:
			if c == '\'' {
				if i+1 < len(sql) && sql[i+1] == '\'' {
					i += 2
					continue
				}
				inQuote = false
			}
			i++
		case c == '\'':
			inQuote = true
			i++
		case c == '?':
			markers = append(markers, Marker{Start: i, End: i + 1})
			i++
		case c == ':' && i+1 < len(sql) && isNameStart(sql[i+1]):
			j := i + 1
			for j < len(sql) && isNamePart(sql[j]) {
				j++
			}
			markers = append(markers, Marker{Start: i, End: j, Name: sql[i+1 : j]})
			i = j
		default:
			i++
		}
	}
	return markers
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNamePart(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9') || c == '-'
}

// RewriteNumbered replaces every `?`/`:name` marker in sql, in order of
// first appearance, with a `$1`, `$2`, ... placeholder, and returns the
// rewritten text alongside the ordered list of markers it replaced (so the
// caller can build the position -> host-variable-reference map). This is
// the transformation the spec calls params_style "a" at the parser level,
// and fixup_parameters at the runtime driver level.
func RewriteNumbered(sql string) (string, []Marker) {
	markers := Scan(sql)
	if len(markers) == 0 {
		return sql, nil
	}
	var b strings.Builder
	last := 0
	for i, m := range markers {
		b.WriteString(sql[last:m.Start])
		b.WriteString("$")
		b.WriteString(itoa(i + 1))
		last = m.End
	}
	b.WriteString(sql[last:])
	return b.String(), markers
}

// rewriteNamed replaces every marker with `:hostvarName`, used for
// params_style "c". names supplies the host-variable name for each marker
// in order (falling back to the marker's own name, if it had one).
// Unexported: no backend in this module natively accepts colon-style
// parameters at the driver boundary (pgsql wants $n, the database/sql
// backends want bare ?), so nothing outside this package's own tests calls
// it; params_style "c" for generated call sites is instead handled by
// ApplyStyle against the parser's canonical $n form.
func rewriteNamed(sql string, names []string) string {
	markers := Scan(sql)
	if len(markers) == 0 {
		return sql
	}
	var b strings.Builder
	last := 0
	for i, m := range markers {
		b.WriteString(sql[last:m.Start])
		b.WriteString(":")
		if i < len(names) && names[i] != "" {
			b.WriteString(names[i])
		} else {
			b.WriteString(m.Name)
		}
		last = m.End
	}
	b.WriteString(sql[last:])
	return b.String()
}

// RewritePositional replaces every marker with a bare `?`, used for
// params_style "d".
func RewritePositional(sql string) string {
	markers := Scan(sql)
	if len(markers) == 0 {
		return sql
	}
	var b strings.Builder
	last := 0
	for _, m := range markers {
		b.WriteString(sql[last:m.Start])
		b.WriteString("?")
		last = m.End
	}
	b.WriteString(sql[last:])
	return b.String()
}

// numberedRE-free scan for `$n` placeholders already produced by
// RewriteNumbered, used by ApplyStyle to translate the parser's canonical
// $n IR into whichever concrete params_style the generated call needs.
func scanNumbered(sql string) []Marker {
	var markers []Marker
	i := 0
	for i < len(sql) {
		if sql[i] == '$' && i+1 < len(sql) && sql[i+1] >= '1' && sql[i+1] <= '9' {
			j := i + 1
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			markers = append(markers, Marker{Start: i, End: j})
			i = j
			continue
		}
		i++
	}
	return markers
}

// ApplyStyle rewrites SQL text already in canonical `$n` form (the IR's
// SQLText, as produced by the parser) into the concrete placeholder syntax
// selected by params_style: "a" leaves it as $n, "d" produces bare `?`,
// "c" produces `:name` using names[i] for the i-th placeholder.
func ApplyStyle(sql string, style string, names []string) string {
	switch style {
	case "d":
		return rewriteNumberedToPositional(sql)
	case "c":
		return rewriteNumberedToNamed(sql, names)
	default: // "a" and anything unrecognized: numbered is already canonical
		return sql
	}
}

func rewriteNumberedToNamed(sql string, names []string) string {
	markers := scanNumbered(sql)
	if len(markers) == 0 {
		return sql
	}
	var b strings.Builder
	last := 0
	for i, m := range markers {
		b.WriteString(sql[last:m.Start])
		b.WriteString(":")
		if i < len(names) && names[i] != "" {
			b.WriteString(names[i])
		} else {
			b.WriteString("p")
			b.WriteString(itoa(i + 1))
		}
		last = m.End
	}
	b.WriteString(sql[last:])
	return b.String()
}

// RewritePositional above operates on raw `?`/`:name` markers; here we
// additionally need the $n -> ? case for statements already canonicalized
// by the parser.
func rewriteNumberedToPositional(sql string) string {
	markers := scanNumbered(sql)
	if len(markers) == 0 {
		return sql
	}
	var b strings.Builder
	last := 0
	for _, m := range markers {
		b.WriteString(sql[last:m.Start])
		b.WriteString("?")
		last = m.End
	}
	b.WriteString(sql[last:])
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
