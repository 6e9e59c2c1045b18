// Copyright 2018-present Kuei-chun Chen. All rights reserved.
// quantile.go

package rollup

import "gonum.org/v1/gonum/floats"

// mquantiles computes the plotting-position quantile estimator SciPy calls
// mstats.mquantiles with alphap = betap = 1/3 (Hyndman-Fan type 8), the
// estimator the original Python rollup uses for latency percentiles. The
// core only needs this contract (spec.md §1); the implementation here is
// the one concrete collaborator this module ships.
func mquantiles(data []float64, probs []float64) []float64 {
	out := make([]float64, len(probs))
	if len(data) == 0 {
		return out
	}
	sorted := append([]float64(nil), data...)
	floats.Sort(sorted)
	n := float64(len(sorted))
	const alphap = 1.0 / 3.0
	const betap = 1.0 / 3.0
	for i, p := range probs {
		out[i] = plottingPositionQuantile(sorted, n, p, alphap, betap)
	}
	return out
}

// plottingPositionQuantile follows SciPy mstats.mquantiles' _quantiles1D:
// compute a plotting position m, derive the (1-indexed) target rank aleph,
// clip its floor to [1, n-1], and linearly interpolate between the
// bracketing order statistics x[k-1] and x[k] (0-indexed).
func plottingPositionQuantile(sorted []float64, n, p, alphap, betap float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	m := alphap + p*(1-alphap-betap)
	aleph := n*p + m
	alephClipped := clampFloat(aleph, 1, n-1)
	k := int(floorFloat(alephClipped))
	gamma := clampFloat(aleph-float64(k), 0, 1)
	return (1-gamma)*sorted[k-1] + gamma*sorted[k]
}

func floorFloat(x float64) float64 {
	i := int64(x)
	if x < 0 && float64(i) != x {
		i--
	}
	return float64(i)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
