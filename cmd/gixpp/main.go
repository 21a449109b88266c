// Command gixpp is the ESQL preprocessor CLI: it consolidates copybooks,
// parses embedded SQL, and rewrites it into runtime call sequences
// (spec.md 6).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GitMensch/gixsql/esql"
	"github.com/GitMensch/gixsql/optval"
)

const version = "1.0.0"

type copyPathList []string

func (c *copyPathList) String() string { return strings.Join(*c, ",") }

func (c *copyPathList) Set(value string) error {
	sep := ":"
	if os.PathSeparator == '\\' {
		sep = ";"
	}
	*c = append(*c, strings.Split(value, sep)...)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("gixpp", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var copyPaths copyPathList
	fs.Var(&copyPaths, "I", "add a COPY search directory (repeatable)")
	fs.Var(&copyPaths, "copypath", "add a COPY search directory (repeatable)")

	var (
		showHelp     = fs.Bool("h", false, "show help")
		showHelpLong = fs.Bool("help", false, "show help")
		showVersion  = fs.Bool("V", false, "show version")
		showVerLong  = fs.Bool("version", false, "show version")
		infile       = fs.String("i", "", "input file")
		infileLong   = fs.String("infile", "", "input file")
		outfile      = fs.String("o", "", "output file")
		outfileLong  = fs.String("outfile", "", "output file")
		symfile      = fs.String("s", "", "symbol file")
		symfileLong  = fs.String("symfile", "", "symbol file")
		esqlMode     = fs.Bool("e", false, "run the ESQL translation pipeline")
		esqlModeLong = fs.Bool("esql", false, "run the ESQL translation pipeline")
		preprocCopy  = fs.Bool("p", false, "run source consolidation before parsing")
		preprocLong  = fs.Bool("esql-preprocess-copy", false, "run source consolidation before parsing")
		copyExts     = fs.String("E", "cpy,CPY", "COPY file extensions, comma-separated")
		copyExtsLong = fs.String("esql-copy-exts", "cpy,CPY", "COPY file extensions, comma-separated")
		paramStyle   = fs.String("z", "d", "parameter style: a|d|c")
		paramStyle2  = fs.String("param-style", "d", "parameter style: a|d|c")
		staticCalls  = fs.Bool("S", false, "emit static calls")
		staticLong   = fs.Bool("esql-static-calls", false, "emit static calls")
		debugInfo    = fs.Bool("g", false, "emit debug info comments")
		debugLong    = fs.Bool("debug-info", false, "emit debug info comments")
		consolidate  = fs.Bool("c", false, "run source consolidation only")
		consLong     = fs.Bool("consolidate", false, "run source consolidation only")
		keep         = fs.Bool("k", false, "keep temporary files")
		keepLong     = fs.Bool("keep", false, "keep temporary files")
		verbose      = fs.Bool("v", false, "verbose diagnostic output")
		verboseLong  = fs.Bool("verbose", false, "verbose diagnostic output")
		verboseDbg   = fs.Bool("d", false, "extra verbose diagnostic output")
		verboseDLong = fs.Bool("verbose-debug", false, "extra verbose diagnostic output")
		parserDbg    = fs.Bool("D", false, "trace the parser's line scanner")
		parserDLong  = fs.Bool("parser-scanner-debug", false, "trace the parser's line scanner")
		mapFile      = fs.Bool("m", false, "emit a map file")
		mapFileLong  = fs.Bool("map", false, "emit a map file")
		cobol85      = fs.Bool("C", false, "target COBOL85 call syntax")
		cobol85Long  = fs.Bool("cobol85", false, "target COBOL85 call syntax")
		varying      = fs.String("Y", "LEN,ARR", "varlen field-name suffixes")
		varyingLong  = fs.String("varying", "LEN,ARR", "varlen field-name suffixes")
		picxAs       = fs.String("P", "char", "PIC X rewrite mode: char|charf|varchar")
		picxAsLong   = fs.String("picx-as", "char", "PIC X rewrite mode: char|charf|varchar")
		noRecCode    = fs.String("no-rec-code", "", "override the NOT FOUND record code")
	)

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if firstNonEmpty(*showHelp, *showHelpLong) {
		fs.Usage()
		return 0
	}
	if firstNonEmpty(*showVersion, *showVerLong) {
		fmt.Println("gixpp version " + version)
		return 0
	}

	in := firstNonEmptyStr(*infile, *infileLong)
	out := firstNonEmptyStr(*outfile, *outfileLong)
	sym := firstNonEmptyStr(*symfile, *symfileLong)
	doEsql := firstNonEmpty(*esqlMode, *esqlModeLong)
	doConsolidate := firstNonEmpty(*consolidate, *consLong)
	doPreprocCopy := firstNonEmpty(*preprocCopy, *preprocLong)
	exts := firstNonEmptyStr(*copyExts, *copyExtsLong)
	style := firstNonEmptyStr(*paramStyle, *paramStyle2)
	static := firstNonEmpty(*staticCalls, *staticLong)
	debug := firstNonEmpty(*debugInfo, *debugLong)
	verboseFlag := firstNonEmpty(*verbose, *verboseLong)
	verboseDbgFlag := firstNonEmpty(*verboseDbg, *verboseDLong)
	parserDbgFlag := firstNonEmpty(*parserDbg, *parserDLong)
	emitMap := firstNonEmpty(*mapFile, *mapFileLong)
	emitCobol85 := firstNonEmpty(*cobol85, *cobol85Long)
	varlenSuffixes := firstNonEmptyStr(*varying, *varyingLong)
	picxMode := firstNonEmptyStr(*picxAs, *picxAsLong)
	keepTemp := firstNonEmpty(*keep, *keepLong)

	if !doEsql && !doConsolidate {
		fmt.Fprintln(os.Stderr, "gixpp: at least one of -e or -c is required")
		fs.Usage()
		return 1
	}

	if in == "" {
		fmt.Fprintln(os.Stderr, "gixpp: -i/--infile is required")
		return 1
	}

	if out == "" {
		out = "@"
	}
	if strings.TrimSuffix(filepath.Base(out), filepath.Ext(out)) == "@" {
		ext := ".cbl"
		if filepath.Ext(out) != "" {
			ext = filepath.Ext(out)
		}
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ext
	}

	if in == out {
		fmt.Fprintln(os.Stderr, "gixpp: input and output paths must differ")
		return 1
	}

	if noRecCode != nil && *noRecCode != "" {
		if n, err := strconv.Atoi(*noRecCode); err != nil || n < -999999999 || n > 999999999 {
			fmt.Fprintln(os.Stderr, "gixpp: --no-rec-code out of range")
			return 1
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(verboseDbgFlag),
	}))

	resolver := esql.NewCopyResolver(filepath.Dir(in), copyPaths, splitExts(exts))
	resolver.Verbose = verboseFlag
	resolver.Logf = func(format string, a ...any) { logger.Debug(fmt.Sprintf(format, a...)) }

	pp := esql.NewPreprocessor(logger)
	pp.Resolver = resolver
	pp.Verbose = verboseFlag
	pp.VerboseDbg = verboseDbgFlag
	pp.KeepTempFiles = keepTemp
	pp.SetInputFile(in)
	pp.SetOutputFile(out)

	pp.SetOpt("params_style", optval.String(style))
	pp.SetOpt("emit_static_calls", optval.Bool(static))
	pp.SetOpt("emit_debug_info", optval.Bool(debug))
	pp.SetOpt("emit_cobol85", optval.Bool(emitCobol85))
	pp.SetOpt("picx_as_varchar", optval.Bool(picxMode == "varchar"))
	pp.SetOpt("varlen_suffixes", optval.String(varlenSuffixes))
	pp.SetOpt("debug_parser_scanner", optval.Bool(parserDbgFlag))
	pp.SetOpt("preprocess_copy_files", optval.Bool(doPreprocCopy))
	pp.SetOpt("consolidated_map", optval.Bool(emitMap))
	pp.SetOpt("emit_map_file", optval.Bool(emitMap))
	pp.SetOpt("no_output", optval.Bool(false))

	pp.AddStep(esql.NewSourceConsolidation(resolver, pp, logger, &pp.Err))

	var processor *esql.ESQLProcessor
	if doEsql {
		parser := esql.NewESQLParser(pp, logger, &pp.Err)
		pp.AddStep(parser)

		processor = esql.NewESQLProcessor(parser.IR, pp, logger, &pp.Err)
		pp.AddStep(processor)
	}

	if !pp.Process() {
		fmt.Fprintf(os.Stderr, "gixpp: %v\n", pp.Err.Err())
		return pp.Err.Code
	}

	if lastStep := pp.LastOutput(); lastStep != nil && lastStep.Kind() == esql.KindBuffer {
		if err := os.WriteFile(out, []byte(lastStep.Buffer()), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "gixpp: writing output: %v\n", err)
			return 2
		}
	}

	if sym != "" && processor != nil {
		if err := (esql.SymbolWriter{}).Write(sym, processor.SymbolRecords); err != nil {
			fmt.Fprintf(os.Stderr, "gixpp: writing symbol file: %v\n", err)
			return 2
		}
	}

	if emitMap && processor != nil {
		mapPath := strings.TrimSuffix(out, filepath.Ext(out)) + ".map"
		if err := (esql.MapWriter{}).Write(mapPath, processor.MapRecords); err != nil {
			fmt.Fprintf(os.Stderr, "gixpp: writing map file: %v\n", err)
			return 2
		}
	}

	return 0
}

func firstNonEmpty(a, b bool) bool { return a || b }

func firstNonEmptyStr(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func splitExts(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		e = strings.TrimSpace(e)
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func logLevel(verboseDbg bool) slog.Level {
	if verboseDbg {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

