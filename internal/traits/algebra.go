// Package traits implements the TraitAlgebra reduction of an allocation
// matrix through robot traits into coverage and mismatch measures (spec
// §4.2), grounded on original_source's task_allocation_math.hpp.
package traits

import "gonum.org/v1/gonum/mat"

// Reducer maps an allocation A (M x N) and team traits Q (N x T) to an
// allocated-traits matrix (M x T). The default is matrix product A*Q.
type Reducer func(a, q *mat.Dense) *mat.Dense

// MatMulReducer is the default reduction, A*Q.
func MatMulReducer(a, q *mat.Dense) *mat.Dense {
	m, _ := a.Dims()
	_, t := q.Dims()
	out := mat.NewDense(m, t, nil)
	out.Mul(a, q)
	return out
}

// ThresholdCumulativeReducer sums a trait column across the coalition only
// if the sum exceeds the per-trait threshold, otherwise treats it as zero.
// This models traits that only contribute once a coalition-wide capability
// goes above a threshold (e.g. a lift needing more than a given combined
// payload).
func ThresholdCumulativeReducer(thresholds []float32) Reducer {
	return func(a, q *mat.Dense) *mat.Dense {
		m, n := a.Dims()
		_, t := q.Dims()
		out := mat.NewDense(m, t, nil)
		for i := 0; i < m; i++ {
			for k := 0; k < t; k++ {
				sum := 0.0
				for j := 0; j < n; j++ {
					if a.At(i, j) != 0 {
						sum += q.At(j, k)
					}
				}
				threshold := 0.0
				if k < len(thresholds) {
					threshold = float64(thresholds[k])
				}
				if sum > threshold {
					out.Set(i, k, sum)
				}
			}
		}
		return out
	}
}

// Allocated returns reduction(A, Q), an M x T matrix of covered traits.
func Allocated(a, q *mat.Dense, reduction Reducer) *mat.Dense {
	if reduction == nil {
		reduction = MatMulReducer
	}
	return reduction(a, q)
}

// Mismatch returns Y - allocated(A, Q, reduction).
func Mismatch(a, y, q *mat.Dense, reduction Reducer) *mat.Dense {
	allocated := Allocated(a, q, reduction)
	m, t := y.Dims()
	out := mat.NewDense(m, t, nil)
	out.Sub(y, allocated)
	return out
}

// PositiveMismatch is Mismatch clamped to >= 0, element-wise.
func PositiveMismatch(a, y, q *mat.Dense, reduction Reducer) *mat.Dense {
	mismatch := Mismatch(a, y, q, reduction)
	m, t := mismatch.Dims()
	out := mat.NewDense(m, t, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < t; j++ {
			v := mismatch.At(i, j)
			if v > 0 {
				out.Set(i, j, v)
			}
		}
	}
	return out
}

// TME (traits-mismatch error) is the scalar sum of PositiveMismatch; zero
// iff every trait is covered (spec §4.2, GLOSSARY).
func TME(a, y, q *mat.Dense, reduction Reducer) float64 {
	pm := PositiveMismatch(a, y, q, reduction)
	m, t := pm.Dims()
	total := 0.0
	for i := 0; i < m; i++ {
		for j := 0; j < t; j++ {
			total += pm.At(i, j)
		}
	}
	return total
}
