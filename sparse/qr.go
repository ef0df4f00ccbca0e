// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import "math"

// QR computes the numeric Householder QR factorization of the CCS matrix
// (pat, vals) into the fixed patterns carried by sym: for pivot step k it
// eliminates column sym.Pc[k] (read through the row permutation sym.Prinv)
// and writes the new triangular column into (sym.SpR, r) and the new
// sub-diagonal Householder components into (sym.SpV, v), with the pivot
// scalar in beta[k]. w is scratch of length at least pat.Ncol.
//
// Mathematically P*A*Pcᵀ = Q*R where P is the permutation sym.Prinv and Pc is
// the permutation sym.Pc; Q is represented implicitly by (v, beta) and is
// never materialised.
func QR(pat *Pattern, vals []float64, sym *Symbolic, v, r []float64, beta []float64, w []float64) {
	nz := pat.Ncol
	if sym.SpR.Ncol != nz || sym.SpV.Ncol != nz || len(beta) != nz || len(w) < nz {
		panic("bound check error")
	}
	x := w[:nz]

	for k := 0; k < nz; k++ {
		ProjectColumn(pat, vals, sym.Pc[k], x, sym.Prinv)

		for j := 0; j < k; j++ {
			applyPriorColumn(sym, v, r, beta, j, x)
		}

		up := buildHouseholder(k, nz, x)
		beta[k] = up

		rlo, rhi := sym.SpR.Col(k)
		for idx := rlo; idx < rhi; idx++ {
			r[idx] = x[sym.SpR.Rowind[idx]]
		}
		vlo, vhi := sym.SpV.Col(k)
		for idx := vlo; idx < vhi; idx++ {
			v[idx] = x[sym.SpV.Rowind[idx]]
		}
	}
}

// applyPriorColumn applies the Householder reflection built at pivot step j
// (stored in (sym.SpV,v) below the diagonal and beta[j] at the pivot, with
// its diagonal value living in (sym.SpR,r)) to the dense vector x.
func applyPriorColumn(sym *Symbolic, v, r []float64, beta []float64, j int, x []float64) {
	s := r[sym.SpR.Diag(j)]
	up := beta[j]
	b := s * up
	if b >= 0 {
		return
	}
	binv := 1 / b

	dot := up * x[j]
	lo, hi := sym.SpV.Col(j)
	for idx := lo; idx < hi; idx++ {
		dot += v[idx] * x[sym.SpV.Rowind[idx]]
	}
	if dot == 0 {
		return
	}
	dot *= binv
	x[j] += dot * up
	for idx := lo; idx < hi; idx++ {
		x[sym.SpV.Rowind[idx]] += dot * v[idx]
	}
}

// QRSolve solves A z = b, or Aᵀ z = b when trans is true, given the factors
// of P*A*Pcᵀ produced by QR; the permutations are undone internally. b is overwritten in place with the
// solution. w is scratch of length at least pat.Ncol (same nz as used by QR).
func QRSolve(sym *Symbolic, v, r []float64, beta []float64, b []float64, trans bool, w []float64) {
	nz := sym.SpR.Ncol
	if len(b) != nz || len(w) < nz {
		panic("bound check error")
	}
	x := w[:nz]

	if !trans {
		for i := 0; i < nz; i++ {
			x[sym.Prinv[i]] = b[i]
		}
		for k := 0; k < nz; k++ {
			applyPriorColumn(sym, v, r, beta, k, x)
		}
		for j := nz - 1; j >= 0; j-- {
			diag := r[sym.SpR.Diag(j)]
			if diag == 0 {
				panic("bound check error")
			}
			x[j] /= diag
			lo, hi := sym.SpR.Col(j)
			for idx := lo; idx < hi-1; idx++ {
				x[sym.SpR.Rowind[idx]] -= r[idx] * x[j]
			}
		}
		for k := 0; k < nz; k++ {
			b[sym.Pc[k]] = x[k]
		}
		return
	}

	for k := 0; k < nz; k++ {
		x[k] = b[sym.Pc[k]]
	}
	for j := 0; j < nz; j++ {
		lo, hi := sym.SpR.Col(j)
		for idx := lo; idx < hi-1; idx++ {
			row := sym.SpR.Rowind[idx]
			x[j] -= r[idx] * x[row]
		}
		diag := r[sym.SpR.Diag(j)]
		if diag == 0 {
			panic("bound check error")
		}
		x[j] /= diag
	}
	for k := nz - 1; k >= 0; k-- {
		applyPriorColumn(sym, v, r, beta, k, x)
	}
	for i := 0; i < nz; i++ {
		b[i] = x[sym.Prinv[i]]
	}
}

// QRSingular scans the diagonal of R, returning the number of diagonal
// entries whose magnitude falls below eps together with the smallest
// diagonal magnitude found (mina) and its pivot index (imina), unconditional
// of the threshold.
func QRSingular(sym *Symbolic, r []float64, eps float64) (rankDeficit int, mina float64, imina int) {
	nz := sym.SpR.Ncol
	mina = math.Inf(1)
	imina = -1
	for k := 0; k < nz; k++ {
		d := math.Abs(r[sym.SpR.Diag(k)])
		if d < mina {
			mina = d
			imina = k
		}
		if d < eps {
			rankDeficit++
		}
	}
	return
}

// QRColComb reconstructs the null-space direction associated with pivot
// imina+nulli (clamped to the last pivot) by back substitution through R,
// treating that pivot's diagonal as zero; it is the nulli-th near-zero
// diagonal entry only when those entries are contiguous from imina. The
// direction is written into the original (unpermuted) column space of out
// (length sym.SpR.Ncol). w is scratch of length at least sym.SpR.Ncol.
func QRColComb(sym *Symbolic, r []float64, imina, nulli int, out, w []float64) {
	nz := sym.SpR.Ncol
	y := w[:nz]
	Zero(y)

	j := imina + nulli
	if j >= nz {
		j = nz - 1
	}
	y[j] = 1

	for i := j; i >= 0; i-- {
		if i < j {
			if diag := r[sym.SpR.Diag(i)]; diag != 0 {
				y[i] /= diag
			} else {
				y[i] = 0
			}
		}
		lo, hi := sym.SpR.Col(i)
		for idx := lo; idx < hi; idx++ {
			if row := sym.SpR.Rowind[idx]; row < i {
				y[row] -= r[idx] * y[i]
			}
		}
	}

	Zero(out)
	for k := 0; k < nz; k++ {
		out[sym.Pc[k]] = y[k]
	}
}
