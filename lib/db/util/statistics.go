package util

import (
	"math"
	"sync"
)

// ----------------------------------------------------------------------------
// Table statistics
// ----------------------------------------------------------------------------

type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
}

// NewStats computes the standard deviation, minimum, maximum and mean of the values.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	minV, maxV := values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	mean := sum / float64(len(values))

	var sumSquaredDiffs float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiffs += diff * diff
	}

	return Stats{
		StdDeviation: math.Sqrt(sumSquaredDiffs / float64(len(values))),
		Min:          minV,
		Max:          maxV,
		Mean:         mean,
	}
}

// TableSummary describes the entries of one table as reported in db.DatabaseInfo metadata.
type TableSummary struct {
	Entries        int `json:"entries"`
	AvgValueSize   int `json:"avg_value_size"`
	MedianEstimate int `json:"median_value_size_estimate"`
	P99Estimate    int `json:"p99_value_size_estimate"`
}

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

var defaultBoundaries = []int{
	16, 64, 256, 1024, 4096, // bytes
	16384, 65536, 262144, 1048576, // KB
	4194304, 16777216, 67108864, // MB
	268435456, 1073741824, 4294967296,
}

// SizeHistogram tracks the distribution of key and value sizes with exponential buckets.
//
// Thread-safe: all methods are safe for concurrent use
type SizeHistogram struct {
	mutex   sync.RWMutex
	buckets []int64 // len(defaultBoundaries)+1, the last bucket holds all larger samples
	count   int64
	sum     int64
}

// NewSizeHistogram creates an empty histogram.
func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{buckets: make([]int64, len(defaultBoundaries)+1)}
}

// AddSample adds one size sample.
func (h *SizeHistogram) AddSample(size int) {
	idx := len(defaultBoundaries)
	for i, boundary := range defaultBoundaries {
		if size <= boundary {
			idx = i
			break
		}
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.buckets[idx]++
	h.count++
	h.sum += int64(size)
}

// Count returns the number of samples.
func (h *SizeHistogram) Count() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.count
}

// Sum returns the sum of all samples.
func (h *SizeHistogram) Sum() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.sum
}

// AverageSize returns the average sample size.
func (h *SizeHistogram) AverageSize() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// PercentileEstimate estimates the given percentile (0-100) from the bucket counts.
// The estimate is the midpoint of the bucket holding the percentile.
func (h *SizeHistogram) PercentileEstimate(percentile int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.count == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	target := int64(math.Ceil(float64(h.count) * float64(percentile) / 100.0))
	var cumulative int64
	for i, c := range h.buckets {
		cumulative += c
		if cumulative < target {
			continue
		}
		switch {
		case i == 0:
			return defaultBoundaries[0] / 2
		case i < len(defaultBoundaries):
			return (defaultBoundaries[i-1] + defaultBoundaries[i]) / 2
		default:
			return defaultBoundaries[len(defaultBoundaries)-1] * 2
		}
	}
	return int(h.sum / h.count)
}

// Summary condenses the histogram into a TableSummary.
func (h *SizeHistogram) Summary() TableSummary {
	return TableSummary{
		Entries:        int(h.Count()),
		AvgValueSize:   h.AverageSize(),
		MedianEstimate: h.PercentileEstimate(50),
		P99Estimate:    h.PercentileEstimate(99),
	}
}

// ----------------------------------------------------------------------------
// Byte helpers
// ----------------------------------------------------------------------------

// CopyBytes returns a copy of b that does not alias engine memory.
// The result is never nil, so an empty stored value stays distinguishable from "absent".
func CopyBytes(b []byte) []byte {
	return append(make([]byte, 0, len(b)), b...)
}
