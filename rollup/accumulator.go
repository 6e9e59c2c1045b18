// Copyright 2018-present Kuei-chun Chen. All rights reserved.
// accumulator.go

package rollup

import (
	"github.com/mongodb-labs/ftdc-go/decoder"
)

const toNanoseconds = 1e9

// Accumulator is a single-pass fold over a Sample sequence, producing the
// fixed, versioned vector of Statistics defined in spec.md §4.5.
type Accumulator struct {
	operationsTotal int64
	documentsTotal  int64
	sizeTotal       int64
	errorsTotal     int64
	durationTotal   int64
	timersTotal     int64

	previousDuration int64
	extracted        []float64
	minExtracted     int64
	maxExtracted     int64

	workersMin int64
	workersMax int64

	haveFirst bool
	firstTS   int64
	lastTS    int64
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add folds one Sample into the accumulator. Add must not be called again
// after Finalize.
func (a *Accumulator) Add(s decoder.Sample) error {
	ts, ok := decoder.GetInt64(s, "ts")
	if !ok {
		return &MissingFieldError{Field: "ts"}
	}

	duration, ok := decoder.GetInt64(s, "timers", "dur")
	if !ok {
		duration, ok = decoder.GetInt64(s, "timers", "duration")
		if !ok {
			return &MissingFieldError{Field: "duration"}
		}
	}
	extracted := duration - a.previousDuration
	a.previousDuration = duration

	if !a.haveFirst {
		a.haveFirst = true
		a.firstTS = ts
		a.minExtracted = extracted
		a.maxExtracted = extracted
	} else {
		if extracted < a.minExtracted {
			a.minExtracted = extracted
		}
		if extracted > a.maxExtracted {
			a.maxExtracted = extracted
		}
	}
	a.lastTS = ts
	a.extracted = append(a.extracted, float64(extracted))

	workers, _ := decoder.GetInt64(s, "gauges", "workers")
	// Reproduces the upstream behavior verbatim: both bounds are updated
	// via min(), so WorkersMax tracks the same value as WorkersMin. This
	// is flagged, not "fixed" — see DESIGN.md.
	if workers < a.workersMin {
		a.workersMin = workers
	}
	if workers < a.workersMax {
		a.workersMax = workers
	}

	if n, ok := decoder.GetInt64(s, "counters", "n"); ok {
		a.documentsTotal = n
	}
	if ops, ok := decoder.GetInt64(s, "counters", "ops"); ok {
		a.operationsTotal = ops
	}
	if size, ok := decoder.GetInt64(s, "counters", "size"); ok {
		a.sizeTotal = size
	}
	if errs, ok := decoder.GetInt64(s, "counters", "errors"); ok {
		a.errorsTotal = errs
	}
	if total, ok := decoder.GetInt64(s, "timers", "total"); ok {
		a.timersTotal = total
	}
	a.durationTotal = duration

	return nil
}

// Finalize computes the fixed vector of Statistics. It is idempotent:
// repeated calls recompute the same values from the same accumulated
// state without re-reading the Sample sequence.
func (a *Accumulator) Finalize() []Statistic {
	wallSeconds := 0.0
	if a.haveFirst {
		wallSeconds = float64(a.lastTS-a.firstTS) / 1000.0
	}

	divOrFallback := func(numer, denom, fallback float64) float64 {
		if denom > 0 {
			return numer / denom
		}
		return fallback
	}

	averageLatency := 0.0
	averageSize := 0.0
	if a.operationsTotal > 0 {
		averageLatency = float64(a.durationTotal) / float64(a.operationsTotal)
		averageSize = float64(a.sizeTotal) / float64(a.operationsTotal)
	}

	latencyMin, latencyMax := 0.0, 0.0
	if len(a.extracted) > 0 {
		latencyMin = float64(a.minExtracted)
		latencyMax = float64(a.maxExtracted)
	}

	quantileValues := mquantiles(a.extracted, []float64{0.5, 0.8, 0.9, 0.95, 0.99})

	stats := []Statistic{
		{"AverageLatency", averageLatency, 3, false},
		{"AverageSize", averageSize, 3, false},
		{"OperationThroughput", divOrFallback(float64(a.operationsTotal), wallSeconds, float64(a.operationsTotal)), 4, false},
		{"DocumentThroughput", divOrFallback(float64(a.documentsTotal), wallSeconds, float64(a.documentsTotal)), 0, false},
		{"ErrorRate", divOrFallback(float64(a.errorsTotal), wallSeconds, float64(a.errorsTotal)), 4, false},
		{"SizeThroughput", divOrFallback(float64(a.sizeTotal), wallSeconds, float64(a.sizeTotal)), 4, false},
		{"WorkersMin", float64(a.workersMin), 3, false},
		{"WorkersMax", float64(a.workersMax), 3, false},
		{"LatencyMin", latencyMin, 4, false},
		{"LatencyMax", latencyMax, 4, false},
		{"DurationTotal", wallSeconds * toNanoseconds, 4, false},
		{"ErrorsTotal", float64(a.errorsTotal), 3, false},
		{"OperationsTotal", float64(a.operationsTotal), 3, false},
		{"DocumentsTotal", float64(a.documentsTotal), 0, false},
		{"SizeTotal", float64(a.sizeTotal), 3, false},
		{"OverheadTotal", float64(a.timersTotal - a.durationTotal), 1, false},
		{"Latency50thPercentile", quantileValues[0], 4, false},
		{"Latency80thPercentile", quantileValues[1], 4, false},
		{"Latency90thPercentile", quantileValues[2], 4, false},
		{"Latency95thPercentile", quantileValues[3], 4, false},
		{"Latency99thPercentile", quantileValues[4], 4, false},
	}
	return stats
}
