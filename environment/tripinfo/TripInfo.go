// Package tripinfo implements the per-episode vehicle trip artifact.
// Each finished episode leaves behind one XML file of per-vehicle trip
// records under the episode's output directory; delay statistics for
// an episode are computed by reading that file back.
package tripinfo

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
)

// DefaultLabel is the artifact filename used when no evaluation label
// is given
const DefaultLabel = "tripinfo.xml"

// Trip is one vehicle's trip record: when it entered the network, when
// it left, and how long it was held up on the way.
type Trip struct {
	ID       string  `xml:"id,attr"`
	Depart   float64 `xml:"depart,attr"`
	Arrival  float64 `xml:"arrival,attr"`
	Duration float64 `xml:"duration,attr"`
	TimeLoss float64 `xml:"timeLoss,attr"`
}

// tripInfos is the root element of the artifact file
type tripInfos struct {
	XMLName xml.Name `xml:"tripinfos"`
	Trips   []Trip   `xml:"tripinfo"`
}

// path returns the artifact filename for the given output directory
// and label. An empty label selects DefaultLabel.
func path(outputDir, label string) string {
	if label == "" {
		label = DefaultLabel
	}
	return filepath.Join(outputDir, label)
}

// Write writes the trip records of one episode to the artifact file
// keyed by outputDir and label, creating outputDir if needed. An
// existing artifact with the same label is replaced; episodes that
// must coexist use distinct labels.
func Write(outputDir, label string, trips []Trip) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("write: could not create output directory: %v", err)
	}

	data, err := xml.MarshalIndent(tripInfos{Trips: trips}, "", "    ")
	if err != nil {
		return fmt.Errorf("write: could not encode trips: %v", err)
	}
	data = append([]byte(xml.Header), data...)

	if err := os.WriteFile(path(outputDir, label), data, 0o644); err != nil {
		return fmt.Errorf("write: could not write artifact: %v", err)
	}
	return nil
}

// Read reads back the trip records of the episode keyed by outputDir
// and label
func Read(outputDir, label string) ([]Trip, error) {
	data, err := os.ReadFile(path(outputDir, label))
	if err != nil {
		return nil, fmt.Errorf("read: could not read artifact: %v", err)
	}

	var infos tripInfos
	if err := xml.Unmarshal(data, &infos); err != nil {
		return nil, fmt.Errorf("read: could not decode artifact: %v", err)
	}
	return infos.Trips, nil
}

// VehicleDelays returns the per-vehicle delays of the episode keyed by
// outputDir and label. The returned slice may be empty if no vehicle
// finished its trip.
func VehicleDelays(outputDir, label string) ([]float64, error) {
	trips, err := Read(outputDir, label)
	if err != nil {
		return nil, fmt.Errorf("vehicledelays: %v", err)
	}

	delays := make([]float64, len(trips))
	for i, trip := range trips {
		delays[i] = trip.TimeLoss
	}
	return delays, nil
}

// MeanDelay returns the mean of a set of per-vehicle delays. The mean
// of an empty set is undefined, so an empty delay set is an error that
// callers must special-case before averaging.
func MeanDelay(delays []float64) (float64, error) {
	if len(delays) == 0 {
		return 0, fmt.Errorf("meandelay: no vehicle delays to average")
	}
	return stat.Mean(delays, nil), nil
}
