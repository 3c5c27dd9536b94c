// Package tracker implements telemetry sinks that record scalar and
// histogram summaries during an experiment and persist them once the
// experiment has finished.
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Sink records telemetry emitted by an agent during training or
// evaluation. Records accumulate in memory and are persisted by Save.
type Sink interface {
	// Scalar records a single named value at the given global step
	Scalar(tag string, value float64, step int)

	// Histogram records the distribution of a set of values at the
	// given global step
	Histogram(tag string, values []float64, step int)

	// Save persists all accumulated records
	Save() error
}

// ScalarRecord is one recorded scalar value
type ScalarRecord struct {
	Tag   string
	Value float64
	Step  int
}

// HistogramRecord is the binned summary of one recorded value
// distribution
type HistogramRecord struct {
	Tag          string
	Min          float64
	Max          float64
	Count        int
	Sum          float64
	SumSquares   float64
	BucketLimits []float64
	BucketCounts []float64
	Step         int
}

// records is what a file-backed Sink persists
type records struct {
	Scalars    []ScalarRecord
	Histograms []HistogramRecord
}

// Load reads back the records persisted by a file-backed Sink
func Load(filename string) ([]ScalarRecord, []HistogramRecord, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("load: could not open data file: %v",
			err)
	}
	defer file.Close()

	var data records
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, nil, fmt.Errorf("load: could not decode data: %v", err)
	}
	return data.Scalars, data.Histograms, nil
}
