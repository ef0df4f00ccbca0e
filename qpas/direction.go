// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qpas

import (
	"math"

	"github.com/sparseqp/qpas/sparse"
)

const flipCheckEps = 1e-12

// factorize assembles the KKT matrix for the current active set and
// refactorizes it, recording whether the factorization is singular (and, if
// so, the smallest-magnitude pivot and where it occurred).
func (ws *Workspace) factorize() {
	ws.assembleKKT()
	sym := ws.d.Sym
	sparse.QR(ws.d.SpKKT, ws.nzKKT, sym, ws.nzV, ws.nzR, ws.beta, ws.scratch)
	ws.sing, ws.mina, ws.imina = sparse.QRSingular(sym, ws.nzR, flipCheckEps)
}

// calcStep computes the primal-dual search direction (ws.dz, ws.dlam) and
// its dual-infeasibility tangent (ws.tinfeas) for the current active set,
// refactorizing first. When the factorization is singular it instead takes
// a null-space direction and asks scaleStep to find an active-set change
// that restores regularity before the direction can be trusted at tau=1.
func (ws *Workspace) calcStep() (rIndex, rSign int) {
	p := &ws.d.Problem
	nx, na, nz := p.NX, p.NA, ws.d.nz
	sym := ws.d.Sym

	ws.factorize()

	if ws.sing == 0 {
		ws.kktResidual(ws.dz)
		sparse.QRSolve(sym, ws.nzV, ws.nzR, ws.beta, ws.dz, true, ws.scratch)
	} else {
		sparse.QRColComb(sym, ws.nzR, ws.imina, 0, ws.dz, ws.scratch)
	}

	sparse.Zero(ws.dlam[:nx])
	sparse.MV(p.SpH, ws.nzH, ws.dz[:nx], ws.dlam[:nx], false)
	sparse.MV(p.SpA, ws.nzA, ws.dz[nx:], ws.dlam[:nx], true)
	sparse.Scal(-1, ws.dlam[:nx])
	for i := 0; i < nx; i++ {
		if ws.lam[i] == 0 {
			ws.dlam[i] = 0
		}
	}
	copy(ws.dlam[nx:], ws.dz[nx:])

	sparse.Zero(ws.dz[nx:])
	sparse.MV(p.SpA, ws.nzA, ws.dz[:nx], ws.dz[nx:], false)
	for i := 0; i < nz; i++ {
		if math.Abs(ws.dz[i]) < 1e-14 {
			ws.dz[i] = 0
		}
	}

	sparse.Zero(ws.tinfeas)
	sparse.MV(p.SpH, ws.nzH, ws.dz[:nx], ws.tinfeas, false)
	sparse.MV(p.SpA, ws.nzA, ws.dlam[nx:], ws.tinfeas, true)
	sparse.AXPY(1, ws.dlam[:nx], ws.tinfeas)

	_ = na
	return ws.scaleStep()
}

// scaleStep decides, when the current factorization is singular, which
// active-set change would restore regularity with the least disruption to
// the already-computed step, and scales (ws.dz, ws.dlam, ws.tinfeas) so that
// tau=1 lands exactly on that change. It returns rIndex=-1 when the
// factorization is non-singular (no scaling needed) or when singularity
// cannot be cured by any admissible change.
func (ws *Workspace) scaleStep() (rIndex, rSign int) {
	rIndex, rSign = -1, 0
	if ws.sing == 0 {
		return
	}
	p := &ws.d.Problem
	nx, nz := p.NX, ws.d.nz

	tpr := 0.0
	if ws.ipr >= 0 {
		if ws.z[ws.ipr] > ws.ubz[ws.ipr] {
			tpr = ws.dz[ws.ipr] / ws.pr
		} else {
			tpr = -ws.dz[ws.ipr] / ws.pr
		}
	}
	tdu := 0.0
	if ws.idu >= 0 {
		tdu = ws.tinfeas[ws.idu] / ws.infeas[ws.idu]
	}

	posOK, negOK := true, true
	var terr float64
	switch {
	case ws.pr > ws.du:
		if tpr < 0 {
			negOK = false
		} else if tpr > 0 {
			posOK = false
		}
		terr = tpr
	case ws.pr < ws.du:
		if tdu < 0 {
			negOK = false
		} else if tdu > 0 {
			posOK = false
		}
		terr = tdu
	default:
		switch {
		case (tpr > 0 && tdu < 0) || (tpr < 0 && tdu > 0):
			posOK, negOK = false, false
			terr = 0
		case math.Min(tpr, tdu) < 0:
			negOK = false
			terr = math.Max(tpr, tdu)
		case math.Max(tpr, tdu) > 0:
			posOK = false
			terr = math.Min(tpr, tdu)
		default:
			terr = 0
		}
	}

	if ws.ipr >= 0 && p.DuToPr*ws.pr >= ws.du && ws.lam[ws.ipr] != 0 && math.Abs(ws.dlam[ws.ipr]) > flipCheckEps {
		if (ws.lam[ws.ipr] > 0) == (ws.dlam[ws.ipr] > 0) {
			negOK = false
		} else {
			posOK = false
		}
	}

	// Factorize the transpose of the current KKT matrix to expose its
	// (left) null space: the row combinations that would become new,
	// independent constraints.
	sym := ws.d.Sym
	trT := ws.vrScratch[:ws.d.SpKKT.NNZ()]
	sparse.Trans(ws.d.SpKKT, ws.nzKKT, ws.d.SpKKT, trT, ws.iscratch[:nz])
	copy(ws.nzKKT, trT)
	sparse.QR(ws.d.SpKKT, ws.nzKKT, sym, ws.nzV, ws.nzR, ws.beta, ws.scratch)
	nullity, _, iminaT := sparse.QRSingular(sym, ws.nzR, flipCheckEps)

	tau := p.Inf
	w := ws.scratch[:nz]
	for nulli := 0; nulli < nullity; nulli++ {
		sparse.QRColComb(sym, ws.nzR, iminaT, nulli, w, ws.scratch[nz:])
		for i := 0; i < nz; i++ {
			var step float64
			if i < nx {
				step = ws.dz[i]
			} else {
				step = ws.dlam[i]
			}
			if math.Abs(step) < flipCheckEps {
				continue
			}
			if math.Abs(ws.kktDot2(w, i)) < flipCheckEps {
				continue
			}
			if ws.lam[i] == 0 {
				if math.Abs(ws.dz[i]) < flipCheckEps {
					continue
				}
				if ws.neverLower[i] == 0 {
					tauTest := (ws.lbz[i] - ws.z[i]) / ws.dz[i]
					if admissible(terr, tauTest) && math.Abs(tauTest) >= 1e-16 && math.Abs(tauTest) < math.Abs(tau) {
						tau, rIndex, rSign = tauTest, i, -1
					}
				}
				if ws.neverUpper[i] == 0 {
					tauTest := (ws.ubz[i] - ws.z[i]) / ws.dz[i]
					if admissible(terr, tauTest) && math.Abs(tauTest) >= 1e-16 && math.Abs(tauTest) < math.Abs(tau) {
						tau, rIndex, rSign = tauTest, i, 1
					}
				}
			} else {
				if math.Abs(ws.dlam[i]) < flipCheckEps {
					continue
				}
				if ws.neverZero[i] != 0 {
					continue
				}
				tauTest := -ws.lam[i] / ws.dlam[i]
				if (terr > 0 && tauTest > 0) || (terr < 0 && tauTest < 0) {
					continue
				}
				if (tauTest > 0 && !posOK) || (tauTest < 0 && !negOK) {
					continue
				}
				if math.Abs(tauTest) < math.Abs(tau) {
					tau, rIndex, rSign = tauTest, i, 0
				}
			}
		}
	}

	if rIndex < 0 {
		return -1, 0
	}
	sparse.Scal(tau, ws.dz)
	sparse.Scal(tau, ws.dlam)
	sparse.Scal(tau, ws.tinfeas)
	return rIndex, rSign
}

func admissible(terr, tauTest float64) bool {
	return !((terr > 0 && tauTest > 0) || (terr < 0 && tauTest < 0))
}
