package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// numBuckets is the number of histogram bins recorded per distribution
const numBuckets = 100

// GobSink is a file-backed Sink. Records accumulate in memory and are
// written as a single gob file on Save.
type GobSink struct {
	filename string
	data     records
}

// NewGobSink returns a Sink persisting to the given file
func NewGobSink(filename string) *GobSink {
	return &GobSink{filename: filename}
}

// Scalar records a single named value at the given global step
func (g *GobSink) Scalar(tag string, value float64, step int) {
	g.data.Scalars = append(g.data.Scalars, ScalarRecord{
		Tag:   tag,
		Value: value,
		Step:  step,
	})
}

// Histogram bins values into a fixed number of equal-width buckets and
// records the binned summary at the given global step. Empty value
// sets are ignored.
func (g *GobSink) Histogram(tag string, values []float64, step int) {
	if len(values) == 0 {
		return
	}

	min := floats.Min(values)
	max := floats.Max(values)

	var sum, sumSquares float64
	for _, v := range values {
		sum += v
		sumSquares += v * v
	}

	record := HistogramRecord{
		Tag:        tag,
		Min:        min,
		Max:        max,
		Count:      len(values),
		Sum:        sum,
		SumSquares: sumSquares,
		Step:       step,
	}

	if min == max {
		// Degenerate distribution, a single bucket holds everything
		record.BucketLimits = []float64{max}
		record.BucketCounts = []float64{float64(len(values))}
	} else {
		dividers := floats.Span(make([]float64, numBuckets+1), min, max)
		counts := stat.Histogram(nil, dividers, sortedCopy(values), nil)

		// Bucket limits are the upper edges, so the lowest divider is
		// dropped
		record.BucketLimits = dividers[1:]
		record.BucketCounts = counts
	}

	g.data.Histograms = append(g.data.Histograms, record)
}

// Save writes all accumulated records to the sink's file, creating
// parent directories as needed
func (g *GobSink) Save() error {
	if dir := filepath.Dir(g.filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save: could not create data directory: %v",
				err)
		}
	}

	file, err := os.Create(g.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(g.data); err != nil {
		return fmt.Errorf("save: could not encode data: %v", err)
	}
	return nil
}

// sortedCopy returns the values in ascending order without modifying
// the argument. stat.Histogram requires sorted input.
func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
