// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qpas

import "github.com/sparseqp/qpas/sparse"

// assembleKKT builds the numeric KKT matrix into ws.nzKKT, following the
// fixed sparsity pattern p.SpKKT. Row i of the (unreduced) saddle-point
// system is:
//
//	i < nx, lam[i]==0:  [ H_i  Aᵀ_i ]   (stationarity row, variable i free)
//	i < nx, lam[i]!=0:  [ e_i       ]   (variable i fixed at its active bound)
//	i>=nx,  lam[i]==0:  [ 0    -e_i ]   (slack i free: z_i == Ax_i identity row)
//	i>=nx,  lam[i]!=0:  [ A_i       ]   (constraint i fixed at its active bound)
//
// ws.scratch[:nz] is used as a dense row buffer.
func (ws *Workspace) assembleKKT() {
	p := &ws.d.Problem
	nz, nx := ws.d.nz, p.NX
	row := ws.scratch[:nz]
	sparse.Zero(row)

	for i := 0; i < nz; i++ {
		if i < nx {
			if ws.lam[i] == 0 {
				hlo, hhi := p.SpH.Col(i)
				for k := hlo; k < hhi; k++ {
					row[p.SpH.Rowind[k]] = ws.nzH[k]
				}
				alo, ahi := p.SpA.Col(i)
				for k := alo; k < ahi; k++ {
					row[nx+p.SpA.Rowind[k]] = ws.nzA[k]
				}
			} else {
				row[i] = 1
			}
		} else {
			if ws.lam[i] == 0 {
				row[i] = -1
			} else {
				tlo, thi := p.SpAT.Col(i - nx)
				for k := tlo; k < thi; k++ {
					row[p.SpAT.Rowind[k]] = ws.nzAT[k]
				}
			}
		}

		lo, hi := p.SpKKT.Col(i)
		for k := lo; k < hi; k++ {
			r := p.SpKKT.Rowind[k]
			ws.nzKKT[k] = row[r]
			row[r] = 0
		}
	}
}

// kktVector fills kktI (length nz) with the column component i contributes
// when inactive minus the column it contributes when active, independent
// of the current sign of lam[i] — used when probing whether flipping i
// would preserve nonsingularity.
func (ws *Workspace) kktVector(kktI []float64, i int) {
	p := &ws.d.Problem
	nx := p.NX
	sparse.Zero(kktI)
	if i < nx {
		hlo, hhi := p.SpH.Col(i)
		for k := hlo; k < hhi; k++ {
			kktI[p.SpH.Rowind[k]] = ws.nzH[k]
		}
		alo, ahi := p.SpA.Col(i)
		for k := alo; k < ahi; k++ {
			kktI[nx+p.SpA.Rowind[k]] = ws.nzA[k]
		}
	} else {
		tlo, thi := p.SpAT.Col(i - nx)
		for k := tlo; k < thi; k++ {
			kktI[p.SpAT.Rowind[k]] = -ws.nzAT[k]
		}
	}
	kktI[i] -= 1
}

// kktColumn fills kktI with the column that component i would contribute to
// the KKT matrix if its multiplier sign were `sign` (0 meaning free/inactive,
// nonzero meaning bound-active) instead of its current sign.
func (ws *Workspace) kktColumn(kktI []float64, i, sign int) {
	p := &ws.d.Problem
	nx := p.NX
	sparse.Zero(kktI)
	if i < nx {
		if sign == 0 {
			hlo, hhi := p.SpH.Col(i)
			for k := hlo; k < hhi; k++ {
				kktI[p.SpH.Rowind[k]] = ws.nzH[k]
			}
			alo, ahi := p.SpA.Col(i)
			for k := alo; k < ahi; k++ {
				kktI[nx+p.SpA.Rowind[k]] = ws.nzA[k]
			}
		} else {
			kktI[i] = 1
		}
	} else {
		if sign == 0 {
			kktI[i] = -1
		} else {
			tlo, thi := p.SpAT.Col(i - nx)
			for k := tlo; k < thi; k++ {
				kktI[p.SpAT.Rowind[k]] = ws.nzAT[k]
			}
		}
	}
}

// kktDot returns the inner product of v with the column component i would
// contribute under multiplier sign `sign`.
func (ws *Workspace) kktDot(v []float64, i, sign int) float64 {
	p := &ws.d.Problem
	nx := p.NX
	if i < nx {
		if sign == 0 {
			r := 0.0
			hlo, hhi := p.SpH.Col(i)
			for k := hlo; k < hhi; k++ {
				r += v[p.SpH.Rowind[k]] * ws.nzH[k]
			}
			alo, ahi := p.SpA.Col(i)
			for k := alo; k < ahi; k++ {
				r += v[nx+p.SpA.Rowind[k]] * ws.nzA[k]
			}
			return r
		}
		return v[i]
	}
	if sign == 0 {
		return -v[i]
	}
	r := 0.0
	tlo, thi := p.SpAT.Col(i - nx)
	for k := tlo; k < thi; k++ {
		r += v[p.SpAT.Rowind[k]] * ws.nzAT[k]
	}
	return r
}

// kktDot2 returns the inner product of v with the column component i
// contributes when active minus the column it contributes when inactive
// (the negative of kktVector's vector), independent of the current sign of
// lam[i] — i.e. how much v aligns with the change an active/inactive flip
// at i would make.
func (ws *Workspace) kktDot2(v []float64, i int) float64 {
	p := &ws.d.Problem
	nx := p.NX
	r := v[i]
	if i < nx {
		hlo, hhi := p.SpH.Col(i)
		for k := hlo; k < hhi; k++ {
			r -= v[p.SpH.Rowind[k]] * ws.nzH[k]
		}
		alo, ahi := p.SpA.Col(i)
		for k := alo; k < ahi; k++ {
			r -= v[nx+p.SpA.Rowind[k]] * ws.nzA[k]
		}
		return r
	}
	tlo, thi := p.SpAT.Col(i - nx)
	for k := tlo; k < thi; k++ {
		r += v[p.SpAT.Rowind[k]] * ws.nzAT[k]
	}
	return r
}

// kktResidual fills r (length nz) with the negative KKT residual at the
// current point: for an active bound, the distance left to travel to reach
// it; for a free variable, the stationarity violation (-infeas); for a free
// slack, the current multiplier (already zero by construction once
// converged).
func (ws *Workspace) kktResidual(r []float64) {
	nx := ws.d.Problem.NX
	for i := range r {
		switch {
		case ws.lam[i] > 0:
			r[i] = ws.ubz[i] - ws.z[i]
		case ws.lam[i] < 0:
			r[i] = ws.lbz[i] - ws.z[i]
		case i < nx:
			r[i] = ws.lam[i] - ws.infeas[i]
		default:
			r[i] = ws.lam[i]
		}
	}
}
