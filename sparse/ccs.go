// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

// MV accumulates y += A*x (trans=false) or y += Aᵀ*x (trans=true) for the CCS
// matrix described by pat/vals. y is never zeroed by MV: callers pre-fill it,
// matching the accumulate-into-existing-residual convention used throughout
// the KKT assembler.
func MV(pat *Pattern, vals []float64, x, y []float64, trans bool) {
	if trans {
		if len(x) != pat.Nrow || len(y) != pat.Ncol {
			panic("bound check error")
		}
		for j := 0; j < pat.Ncol; j++ {
			lo, hi := pat.Col(j)
			sum := 0.0
			for k := lo; k < hi; k++ {
				sum += vals[k] * x[pat.Rowind[k]]
			}
			y[j] += sum
		}
		return
	}
	if len(x) != pat.Ncol || len(y) != pat.Nrow {
		panic("bound check error")
	}
	for j := 0; j < pat.Ncol; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		lo, hi := pat.Col(j)
		for k := lo; k < hi; k++ {
			y[pat.Rowind[k]] += vals[k] * xj
		}
	}
}

// Trans computes the transpose of the CCS matrix (pat, vals) into the caller
// supplied (patT, valsT), whose column pointers already describe the
// transposed sparsity pattern. iw is scratch of length patT.Ncol (= pat.Nrow)
// used as a per-row write cursor, initialised here from patT.Colptr.
func Trans(pat *Pattern, vals []float64, patT *Pattern, valsT []float64, iw []int) {
	if patT.Nrow != pat.Ncol || patT.Ncol != pat.Nrow {
		panic("bound check error")
	}
	if len(iw) != patT.Ncol {
		panic("bound check error")
	}
	copy(iw, patT.Colptr[:patT.Ncol])
	for j := 0; j < pat.Ncol; j++ {
		lo, hi := pat.Col(j)
		for k := lo; k < hi; k++ {
			row := pat.Rowind[k]
			dst := iw[row]
			patT.Rowind[dst] = j
			valsT[dst] = vals[k]
			iw[row] = dst + 1
		}
	}
}

// Bilin returns the bilinear form xᵀ*A*y for the CCS matrix (pat, vals),
// visiting every stored entry once. A is assumed to carry both halves of its
// symmetric structure explicitly (as the KKT Hessian block does), so no
// separate lower/upper accumulation is required.
func Bilin(pat *Pattern, vals []float64, x, y []float64) float64 {
	if len(x) != pat.Ncol || len(y) != pat.Nrow {
		panic("bound check error")
	}
	sum := 0.0
	for j := 0; j < pat.Ncol; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		lo, hi := pat.Col(j)
		rowSum := 0.0
		for k := lo; k < hi; k++ {
			rowSum += vals[k] * y[pat.Rowind[k]]
		}
		sum += xj * rowSum
	}
	return sum
}

// ProjectColumn gathers the j-th column of (pat,vals) into the dense vector
// dst (which must have length pat.Nrow), optionally permuting row indices
// through perm (dst[perm[row]] = value) when perm is non-nil. dst is zeroed
// first.
func ProjectColumn(pat *Pattern, vals []float64, j int, dst []float64, perm []int) {
	Zero(dst)
	lo, hi := pat.Col(j)
	for k := lo; k < hi; k++ {
		row := pat.Rowind[k]
		if perm != nil {
			row = perm[row]
		}
		dst[row] += vals[k]
	}
}
