package tracker

// NoOp is a Sink that discards everything. Agents fall back to it when
// telemetry is disabled so the recording call sites stay unconditional.
type NoOp struct{}

// NewNoOp returns a Sink that records nothing
func NewNoOp() NoOp {
	return NoOp{}
}

// Scalar discards the record
func (NoOp) Scalar(string, float64, int) {}

// Histogram discards the record
func (NoOp) Histogram(string, []float64, int) {}

// Save does nothing
func (NoOp) Save() error {
	return nil
}
