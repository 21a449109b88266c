package esql

// StepDataKind discriminates the two shapes a transformation step's input
// or output can take.
type StepDataKind int

const (
	// KindFilename means the payload is a path on disk.
	KindFilename StepDataKind = iota
	// KindBuffer means the payload is an in-memory text buffer.
	KindBuffer
)

// StepData is the tagged value passed between pipeline stages: either a
// filename or an in-memory buffer, never both.
type StepData struct {
	kind     StepDataKind
	filename string
	buffer   string
}

// NewFilenameData wraps a path as step data.
func NewFilenameData(path string) *StepData {
	return &StepData{kind: KindFilename, filename: path}
}

// NewBufferData wraps in-memory text as step data.
func NewBufferData(text string) *StepData {
	return &StepData{kind: KindBuffer, buffer: text}
}

// Kind reports whether this value holds a filename or a buffer.
func (d *StepData) Kind() StepDataKind { return d.kind }

// Filename returns the path payload; "" if this is a buffer.
func (d *StepData) Filename() string { return d.filename }

// Buffer returns the buffer payload; "" if this is a filename.
func (d *StepData) Buffer() string { return d.buffer }

// IsValid reports whether the data is usable as an input: a Filename value
// is valid only if the path is non-empty — whether the file actually exists
// is a distinct check (ErrInputNotExist) the driver makes afterward, so
// missing-file and bad-path failures report different codes; a Buffer value
// is valid if it is non-nil (an empty buffer is still valid — zero-length
// ESQL-free sources are legal input).
func (d *StepData) IsValid() bool {
	if d == nil {
		return false
	}
	switch d.kind {
	case KindFilename:
		return d.filename != ""
	case KindBuffer:
		return true
	default:
		return false
	}
}

// IsValidOutput applies the same rule as IsValid to an output: a filename
// only needs to be non-empty, and whether the file exists is not checked.
func (d *StepData) IsValidOutput() bool {
	if d == nil {
		return false
	}
	switch d.kind {
	case KindFilename:
		return d.filename != ""
	case KindBuffer:
		return true
	default:
		return false
	}
}
