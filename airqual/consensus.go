package airqual

import (
	"math"
	"sort"

	log "github.com/sirupsen/logrus"
)

type Method string

const (
	MethodNone      Method = "none"
	MethodSingle    Method = "single"
	MethodMedian    Method = "median"
	MethodIQR       Method = "iqr"
	MethodModifiedZ Method = "modified_z"
)

const (
	iqrFactor       = 1.5
	modifiedZScale  = 0.6745
	modifiedZCutoff = 3.5
)

// ConsensusResult is the robust estimate over one metric plus what was left out of it.
type ConsensusResult struct {
	Value    float64   `json:"value"`
	Method   Method    `json:"method"`
	Excluded []float64 `json:"excluded,omitempty"`
	// all values were outliers and the median was used instead
	Fallback bool `json:"fallback,omitempty"`
}

// Consensus reduces independent readings of one metric to a single value.
func Consensus(values []float64) float64 {
	return Aggregate(values).Value
}

// Aggregate picks the outlier rejection method by sample size:
// median up to 3 values, IQR fences up to 6, modified Z-score beyond.
// An empty input yields 0.
func Aggregate(values []float64) ConsensusResult {
	switch n := len(values); {
	case n == 0:
		return ConsensusResult{Method: MethodNone}
	case n == 1:
		return ConsensusResult{Value: values[0], Method: MethodSingle}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var result ConsensusResult
	switch n := len(sorted); {
	case n <= 3:
		result = ConsensusResult{Value: median(sorted), Method: MethodMedian}
	case n <= 6:
		result = iqrMean(sorted)
	default:
		result = modifiedZMean(sorted)
	}

	log.Debugf("values: %v, method: %s, excluded: %v, result: %v", values, result.Method, result.Excluded, result.Value)
	return result
}

func iqrMean(sorted []float64) ConsensusResult {
	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1
	lower := q1 - iqrFactor*iqr
	upper := q3 + iqrFactor*iqr

	return inlierMean(sorted, MethodIQR, func(v float64) bool {
		return v >= lower && v <= upper
	})
}

func modifiedZMean(sorted []float64) ConsensusResult {
	m := median(sorted)

	deviations := make([]float64, len(sorted))
	for i, v := range sorted {
		deviations[i] = math.Abs(v - m)
	}
	sort.Float64s(deviations)
	mad := median(deviations)
	if mad == 0 {
		return ConsensusResult{Value: m, Method: MethodModifiedZ}
	}

	return inlierMean(sorted, MethodModifiedZ, func(v float64) bool {
		return math.Abs(modifiedZScale*(v-m)/mad) < modifiedZCutoff
	})
}

func inlierMean(sorted []float64, method Method, inlier func(float64) bool) ConsensusResult {
	var sum float64
	var count int
	var excluded []float64
	for _, v := range sorted {
		if inlier(v) {
			sum += v
			count++
		} else {
			excluded = append(excluded, v)
		}
	}

	if count == 0 {
		return ConsensusResult{Value: median(sorted), Method: method, Excluded: excluded, Fallback: true}
	}
	return ConsensusResult{Value: sum / float64(count), Method: method, Excluded: excluded}
}

// median of an ascending slice.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// percentile of an ascending slice, interpolating linearly between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	pos := float64(len(sorted)-1) * p / 100
	lo := math.Floor(pos)
	hi := math.Ceil(pos)
	if lo == hi {
		return sorted[int(lo)]
	}
	return sorted[int(lo)] + (sorted[int(hi)]-sorted[int(lo)])*(pos-lo)
}
