package esql

// Step is a single stage of the translation pipeline: it reads a StepData
// input, performs its transformation, and produces a StepData output. A
// step reports failure by returning false and recording the reason on the
// shared ErrorData carried by the owning Preprocessor.
//
// Run receives the previous step in the chain (nil for the first step) so
// that a step can, in principle, inspect predecessor state; every step
// shipped in this package ignores it and relies solely on Input/Output.
type Step interface {
	// SetInput assigns this step's input, either by the driver (step 0) or
	// by the driver wiring in the previous step's output (step k>0).
	SetInput(data *StepData)

	// Input returns the step's current input, or nil if not yet set.
	Input() *StepData

	// SetOutput assigns this step's output. Used by the driver to inject
	// the configured output filename into the last step.
	SetOutput(data *StepData)

	// Output returns the step's produced output, or nil before Run
	// succeeds.
	Output() *StepData

	// Run executes the step against its current Input, populating Output
	// on success. prev is the previous step in the pipeline, or nil.
	Run(prev Step) bool

	// Name identifies the step for diagnostics and map/symbol file
	// provenance.
	Name() string
}

// baseStep implements the input/output bookkeeping shared by every
// concrete step so each step type need only implement Run and Name.
type baseStep struct {
	input  *StepData
	output *StepData
}

func (b *baseStep) SetInput(data *StepData)  { b.input = data }
func (b *baseStep) Input() *StepData         { return b.input }
func (b *baseStep) SetOutput(data *StepData) { b.output = data }
func (b *baseStep) Output() *StepData        { return b.output }
