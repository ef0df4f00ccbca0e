// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qpas

import (
	"math"

	"github.com/sparseqp/qpas/sparse"
)

// prIndex tries to improve primal feasibility by activating the bound that
// is currently most violated, if that component is still free.
func (ws *Workspace) prIndex() (index, sign int) {
	if ws.ipr < 0 || ws.lam[ws.ipr] != 0 {
		return -1, 0
	}
	if ws.z[ws.ipr] < ws.lbz[ws.ipr] {
		return ws.ipr, -1
	}
	return ws.ipr, 1
}

// duCheck returns the worst-case stationarity violation that would result
// from setting lam[i] to zero (i.e. deactivating component i).
func (ws *Workspace) duCheck(i int) float64 {
	p := &ws.d.Problem
	nx := p.NX
	if i < nx {
		return math.Abs(ws.infeas[i] - ws.lam[i])
	}
	newDu := 0.0
	lo, hi := p.SpAT.Col(i - nx)
	for k := lo; k < hi; k++ {
		newDu = math.Max(newDu, math.Abs(ws.infeas[p.SpAT.Rowind[k]]-ws.nzAT[k]*ws.lam[i]))
	}
	return newDu
}

// duIndex tries to improve dual feasibility by deactivating the currently
// active constraint whose removal most reduces the stationarity violation
// without increasing the worst-case violation elsewhere.
func (ws *Workspace) duIndex() (index, sign int) {
	p := &ws.d.Problem
	nz := ws.d.nz
	w := ws.scratch[:nz]
	sparse.Zero(w)
	if ws.infeas[ws.idu] > 0 {
		w[ws.idu] = -1
	} else {
		w[ws.idu] = 1
	}
	sparse.MV(p.SpA, ws.nzA, w[:p.NX], w[p.NX:], false)

	bestInd, bestW := -1, 0.0
	for i := 0; i < nz; i++ {
		if w[i] == 0 {
			continue
		}
		if w[i] > 0 {
			if ws.lam[i] >= 0 {
				continue
			}
		} else if ws.lam[i] <= 0 {
			continue
		}
		if ws.duCheck(i) > ws.du {
			continue
		}
		if math.Abs(w[i]) > bestW {
			bestW, bestInd = math.Abs(w[i]), i
		}
	}
	if bestInd < 0 {
		return -1, 0
	}
	return bestInd, 0
}

// flipCheck tests whether activating component `index` with sign `sign`
// would make the KKT matrix singular. It returns needsRecovery=false when
// the new column is already independent of the rest (no risk). Otherwise it
// scans for a second component whose simultaneous deactivation would
// restore regularity, returned as (rIndex, rLam); rIndex is -1 when no such
// component exists, meaning the caller must refuse the original change.
func (ws *Workspace) flipCheck(index, sign int, e float64) (rIndex int, rLam float64, needsRecovery bool) {
	nz := ws.d.nz
	sym := ws.d.Sym

	ws.kktVector(ws.dz, index)
	sparse.QRSolve(sym, ws.nzV, ws.nzR, ws.beta, ws.dz, false, ws.scratch)
	if sparse.Nrm2(ws.dlam) < 1e-12 {
		return -1, 0, false
	}
	sparse.Scal(1/sparse.Nrm2(ws.dz), ws.dz)

	ws.kktVector(ws.dlam, index)
	sparse.QRSolve(sym, ws.nzV, ws.nzR, ws.beta, ws.dlam, true, ws.scratch)
	r := sparse.Nrm2(ws.dlam)
	if r < 1e-12 {
		return -1, 0, false
	}
	sparse.Scal(1/r, ws.dlam)

	ws.kktColumn(ws.dz, index, sign)
	sparse.QRSolve(sym, ws.nzV, ws.nzR, ws.beta, ws.dz, false, ws.scratch)
	if math.Abs(ws.dz[index]) >= 1e-12 {
		return -1, 0, false
	}

	antiSign := 1
	if sign != 0 {
		antiSign = 0
	}
	w := ws.scratch[:nz]
	ws.kktColumn(w, index, antiSign)
	sparse.Scal(1/sparse.Nrm2(w), w)

	rIndex = -1
	bestDuErr := math.Inf(1)
	for i := 0; i < nz; i++ {
		if i == index {
			continue
		}
		if ws.lam[i] == 0 {
			if ws.neverLower[i] != 0 && ws.neverUpper[i] != 0 {
				continue
			}
		} else if ws.neverZero[i] != 0 {
			continue
		}
		if math.Abs(ws.dz[i]) < 1e-12 {
			continue
		}
		if math.Abs(ws.kktDot2(ws.dlam, i)) < 1e-12 {
			continue
		}

		var newLam float64
		if ws.lam[i] == 0 {
			if ws.lbz[i]-ws.z[i] >= ws.z[i]-ws.ubz[i] {
				newLam = -ws.d.Problem.Dmin
			} else {
				newLam = ws.d.Problem.Dmin
			}
			continue
		} else {
			newLam = 0
		}

		newDuErr := ws.duCheck(i)

		free := 0
		if ws.lam[i] == 0 {
			free = 1
		}
		if math.Abs(ws.kktDot(w, i, free)) < 1e-12 {
			continue
		}

		if newDuErr < bestDuErr {
			bestDuErr = newDuErr
			rIndex = i
			rLam = newLam
		}
	}
	return rIndex, rLam, true
}

// flip decides the active-set change (if any) to apply this iteration: it
// prefers a regularity-restoring change identified by calcStep/scaleStep
// (rIndex, rSign), falls back to improving whichever of primal/dual error
// currently dominates, and — if activating that change would introduce
// singularity — looks for a compensating second change via flipCheck.
// cannotEnforce is true when no admissible change exists and *index must be
// abandoned for this iteration.
func (ws *Workspace) flip(index, sign, rIndex, rSign int) (newIndex, newSign int, cannotEnforce bool) {
	p := &ws.d.Problem
	e := math.Max(p.DuToPr*ws.pr, ws.du)

	if rIndex >= 0 && (rSign != 0 || ws.duCheck(rIndex) <= e) {
		index, sign = rIndex, rSign
	}

	if index == -1 && ws.tau > 1e-16 && (ws.ipr >= 0 || ws.idu >= 0) {
		if p.DuToPr*ws.pr >= ws.du {
			index, sign = ws.prIndex()
		} else {
			index, sign = ws.duIndex()
		}
	}

	if index >= 0 {
		if ws.sing == 0 {
			if rIndex, rLam, needsRecovery := ws.flipCheck(index, sign, e); needsRecovery {
				if rIndex >= 0 {
					ws.lam[rIndex] = rLam
				} else if sign != 0 {
					return -1, 0, true
				}
			}
		}
		if sign == 0 {
			ws.lam[index] = 0
		} else if sign > 0 {
			ws.lam[index] = p.Dmin
		} else {
			ws.lam[index] = -p.Dmin
		}
		return -2, 0, false
	}
	return index, sign, false
}

// Solve runs the active-set outer loop against the data loaded by the last
// Reset call, iterating primal-dual steps and active-set changes until both
// error measures fall within tolerance or the iteration budget is exhausted.
// An active-set change that cannot be made without losing regularity is
// skipped (and logged), and iteration continues.
//
// calcDependent is refreshed once per iteration unconditionally, rather
// than only when flip commits a change: takeStep always moves (z, lam), so
// pr/du must reflect the new point before the next calcStep regardless of
// whether the active set itself changed.
func (ws *Workspace) Solve(data *Data) Status {
	if err := ws.Reset(data); err != nil {
		return BadArgument
	}
	p := &ws.d.Problem

	ws.calcDependent()

	for iter := 0; iter < p.MaxIter; iter++ {
		if ws.pr <= p.TolPr && ws.du <= p.TolDu {
			if p.PrintIter && p.Logger.enable(LogIter) {
				p.Logger.log("%4d  pr=%.3e  du=%.3e  converged", iter, ws.pr, ws.du)
			}
			return Solved
		}

		rIndex, rSign := ws.calcStep()

		sign := 0
		index := -1
		ws.tau = 1
		ws.primalBlocking(math.Max(ws.pr, ws.du/p.DuToPr), &index, &sign)
		if ws.dualBlocking(math.Max(ws.pr*p.DuToPr, ws.du)) >= 0 {
			index, sign = -1, 0
		}
		ws.takeStep()

		var cannotEnforce bool
		index, _, cannotEnforce = ws.flip(index, sign, rIndex, rSign)
		if p.PrintIter && p.Logger.enable(LogIter) {
			p.Logger.log("%4d  pr=%.3e  du=%.3e  tau=%.3e  flip=%d", iter, ws.pr, ws.du, ws.tau, index)
			if cannotEnforce {
				p.Logger.log("%4d  cannot enforce active-set change, flip skipped", iter)
			}
		}
		ws.calcDependent()
	}
	return MaxIter
}
