package esql

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zeebo/xxh3"
)

// copyDirectiveRE matches a COPY directive: the keyword (case-insensitive),
// an identifier, an optional trailing REPLACING clause, and a terminating
// period. The identifier is letters, digits, '_', '-' and '$'; a dotted
// name such as FOO.CPY does not match and the line is copied through as is.
var copyDirectiveRE = regexp.MustCompile(`(?i)^(\s*)COPY\s+([A-Za-z0-9_\-\$]+)\s*(REPLACING\s+.*?)?\.\s*$`)

// origin records where a spliced line came from, for cycle detection and
// for the push/pop markers surrounding each inclusion.
type origin struct {
	absPath string
	digest  uint64
}

// SourceConsolidation is the pipeline stage that produces a single flat
// text buffer by recursively inlining copybook references (spec.md 4.2).
type SourceConsolidation struct {
	baseStep

	Resolver *CopyResolver
	Options  interface {
		Bool(key string, def bool) bool
	}
	Logger *slog.Logger
	Err    *ErrorData
}

// NewSourceConsolidation constructs a consolidation step bound to resolver
// and err, the shared ErrorData the driver inspects after a failed run.
func NewSourceConsolidation(resolver *CopyResolver, opts interface{ Bool(string, bool) bool }, logger *slog.Logger, err *ErrorData) *SourceConsolidation {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceConsolidation{Resolver: resolver, Options: opts, Logger: logger, Err: err}
}

// Name identifies the step for diagnostics.
func (s *SourceConsolidation) Name() string { return "source-consolidation" }

// Run reads the Filename input, recursively inlines every COPY directive it
// finds, and sets Output to a Buffer containing the full expansion.
func (s *SourceConsolidation) Run(prev Step) bool {
	in := s.Input()
	if in == nil || in.Kind() != KindFilename {
		s.Err.SetError(ErrBadInputFile, "source consolidation: input is not a filename")
		return false
	}

	abs, err := filepath.Abs(in.Filename())
	if err != nil {
		s.Err.SetErrorf(ErrBadInputFile, "source consolidation: %v", err)
		return false
	}

	var out strings.Builder
	stack := []origin{}
	if !s.inline(abs, &out, stack) {
		return false
	}

	s.SetOutput(NewBufferData(out.String()))
	return true
}

func digestPath(path string) uint64 {
	return xxh3.HashString(path)
}

// inline walks stack purely on xxh3 digest equality: at 64 bits, an
// accidental collision between two distinct copybook paths on the same
// inclusion chain is not a real-world concern, so the digest is the whole
// cycle test rather than a pre-filter in front of a string compare.
func (s *SourceConsolidation) inline(absPath string, out *strings.Builder, stack []origin) bool {
	digest := digestPath(absPath)
	for _, o := range stack {
		if o.digest == digest {
			cyclePaths := make([]string, 0, len(stack)+1)
			for _, so := range stack {
				cyclePaths = append(cyclePaths, so.absPath)
			}
			cyclePaths = append(cyclePaths, absPath)
			s.Err.SetErrorf(ErrCopyCycle, "COPY cycle detected: %s", strings.Join(cyclePaths, " -> "))
			return false
		}
	}
	stack = append(stack, origin{absPath: absPath, digest: digest})

	f, err := os.Open(absPath)
	if err != nil {
		s.Err.SetErrorf(ErrCopyNotFound, "cannot open %s: %v", absPath, err)
		return false
	}
	defer f.Close()

	emitDebug := s.Options != nil && s.Options.Bool("emit_debug_info", false)

	fmt.Fprintf(out, "*>GIX-FILE-PUSH %s\n", absPath)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if m := copyDirectiveRE.FindStringSubmatch(line); m != nil {
			name := m[2]
			replacing := strings.TrimSpace(m[3])

			target, ok := s.Resolver.Resolve(name)
			if !ok {
				s.Err.SetErrorf(ErrCopyNotFound, "copybook not found: %s (referenced from %s:%d)", name, absPath, lineNo)
				return false
			}

			if emitDebug && replacing != "" {
				fmt.Fprintf(out, "*> %s\n", replacing)
			}

			if !s.inline(target, out, stack) {
				return false
			}
			continue
		}

		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		s.Err.SetErrorf(ErrBadInputFile, "error reading %s: %v", absPath, err)
		return false
	}

	fmt.Fprintf(out, "*>GIX-FILE-POP\n")
	return true
}
