package tracker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGobSinkSaveLoadRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "telemetry", "run0.bin")
	sink := NewGobSink(filename)

	sink.Scalar("loss", 0.25, 10)
	sink.Scalar("loss", 0.20, 20)
	sink.Histogram("delay", []float64{1, 2, 3, 4}, 0)
	require.NoError(t, sink.Save())

	scalars, histograms, err := Load(filename)
	require.NoError(t, err)

	require.Len(t, scalars, 2)
	assert.Equal(t, ScalarRecord{Tag: "loss", Value: 0.25, Step: 10},
		scalars[0])
	assert.Equal(t, ScalarRecord{Tag: "loss", Value: 0.20, Step: 20},
		scalars[1])

	require.Len(t, histograms, 1)
	assert.Equal(t, "delay", histograms[0].Tag)
}

func TestHistogramSummary(t *testing.T) {
	sink := NewGobSink("unused")
	sink.Histogram("delay", []float64{4, 1, 3, 2}, 7)

	require.Len(t, sink.data.Histograms, 1)
	record := sink.data.Histograms[0]

	assert.Equal(t, 1.0, record.Min)
	assert.Equal(t, 4.0, record.Max)
	assert.Equal(t, 4, record.Count)
	assert.Equal(t, 10.0, record.Sum)
	assert.Equal(t, 30.0, record.SumSquares)
	assert.Equal(t, 7, record.Step)

	// Upper bucket edges only, one per bucket
	require.Len(t, record.BucketLimits, numBuckets)
	require.Len(t, record.BucketCounts, numBuckets)
	assert.Equal(t, 4.0, record.BucketLimits[numBuckets-1])

	var total float64
	for _, count := range record.BucketCounts {
		total += count
	}
	assert.Equal(t, 4.0, total)
}

func TestHistogramDegenerateDistribution(t *testing.T) {
	sink := NewGobSink("unused")
	sink.Histogram("delay", []float64{5, 5, 5}, 0)

	require.Len(t, sink.data.Histograms, 1)
	record := sink.data.Histograms[0]
	assert.Equal(t, []float64{5}, record.BucketLimits)
	assert.Equal(t, []float64{3}, record.BucketCounts)
}

func TestHistogramIgnoresEmptySet(t *testing.T) {
	sink := NewGobSink("unused")
	sink.Histogram("delay", nil, 0)
	assert.Empty(t, sink.data.Histograms)
}

func TestNoOpSink(t *testing.T) {
	sink := NewNoOp()
	sink.Scalar("loss", 1, 0)
	sink.Histogram("delay", []float64{1}, 0)
	assert.NoError(t, sink.Save())
}
