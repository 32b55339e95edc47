package stats

import (
	"github.com/montanaflynn/stats"

	"github.com/glucolink/cgm/pointer"
	"github.com/glucolink/cgm/readings"
)

// Glycemic thresholds in mg/dL. Engine-level policy, deliberately not
// attached to individual readings.
const (
	LowThreshold      = 70
	HighThreshold     = 180
	VeryLowThreshold  = 54
	VeryHighThreshold = 250
)

// Snapshot is the aggregate picture of one reading set. Numeric fields are
// nil when the set is empty; counts are plain zeros. LowEventsCount counts
// the same readings as TimeBelowRangePercent; both fields are kept for
// schema compatibility.
type Snapshot struct {
	TotalReadings         int      `json:"totalReadings"`
	AvgGlucose            *float64 `json:"avgGlucose,omitempty"`
	MedianGlucose         *float64 `json:"medianGlucose,omitempty"`
	StdDeviation          *float64 `json:"stdDeviation,omitempty"`
	TimeInRangePercent    *float64 `json:"timeInRangePercent,omitempty"`
	TimeBelowRangePercent *float64 `json:"timeBelowRangePercent,omitempty"`
	TimeAboveRangePercent *float64 `json:"timeAboveRangePercent,omitempty"`
	LowEventsCount        int      `json:"lowEventsCount"`
	VeryLowEventsCount    int      `json:"veryLowEventsCount"`
	HighEventsCount       int      `json:"highEventsCount"`
	VeryHighEventsCount   int      `json:"veryHighEventsCount"`
	EstimatedA1C          *float64 `json:"estimatedA1c,omitempty"`
}

// Compute derives a Snapshot from a reading set. Pure: the input is never
// reordered and an empty set produces an empty snapshot, not an error.
//
// The range bands partition the set: below <70, in range [70,180), above
// >=180. A reading of exactly 180 therefore counts above range but is not a
// high event (>180), matching the counters this schema originated from.
func Compute(rs []readings.GlucoseReading) Snapshot {
	snapshot := Snapshot{TotalReadings: len(rs)}
	if len(rs) == 0 {
		return snapshot
	}

	values := make([]float64, 0, len(rs))
	var inRange, below, above int
	for _, reading := range rs {
		values = append(values, float64(reading.Value))

		switch {
		case reading.Value < LowThreshold:
			below++
			snapshot.LowEventsCount++
		case reading.Value >= HighThreshold:
			above++
		default:
			inRange++
		}

		if reading.Value < VeryLowThreshold {
			snapshot.VeryLowEventsCount++
		}
		if reading.Value > HighThreshold {
			snapshot.HighEventsCount++
		}
		if reading.Value > VeryHighThreshold {
			snapshot.VeryHighEventsCount++
		}
	}

	total := float64(len(rs))
	avg, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	stdDev, _ := stats.StdDevP(values)

	snapshot.AvgGlucose = pointer.FromAny(round(avg, 1))
	snapshot.MedianGlucose = pointer.FromAny(round(median, 1))
	snapshot.StdDeviation = pointer.FromAny(round(stdDev, 1))
	snapshot.TimeInRangePercent = pointer.FromAny(round(float64(inRange)/total*100, 2))
	snapshot.TimeBelowRangePercent = pointer.FromAny(round(float64(below)/total*100, 2))
	snapshot.TimeAboveRangePercent = pointer.FromAny(round(float64(above)/total*100, 2))
	snapshot.EstimatedA1C = pointer.FromAny(round(estimatedA1C(avg), 1))

	return snapshot
}

// estimatedA1C is the Glucose Management Indicator formula.
func estimatedA1C(avgGlucose float64) float64 {
	return (avgGlucose + 46.7) / 28.7
}

// round half away from zero.
func round(value float64, places int) float64 {
	rounded, _ := stats.Round(value, places)
	return rounded
}
