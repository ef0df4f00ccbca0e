// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qpas

import "math"

// zeroBlocking reports whether the current point already violates its
// bounds by more than e in the direction the step would worsen further —
// if so the step must not be taken at all (tau=0).
func (ws *Workspace) zeroBlocking(e float64, index, sign *int) bool {
	blocked := false
	dzMax := 0.0
	for i := range ws.dz {
		if -ws.dz[i] > dzMax && ws.z[i] <= ws.lbz[i]-e {
			blocked = true
			if index != nil {
				*index = i
			}
			if sign != nil {
				*sign = -1
			}
		} else if ws.dz[i] > dzMax && ws.z[i] >= ws.ubz[i]+e {
			blocked = true
			if index != nil {
				*index = i
			}
			if sign != nil {
				*sign = 1
			}
		}
	}
	return blocked
}

// primalBlocking shortens ws.tau to the largest step that does not increase
// the maximum primal infeasibility beyond e, recording which bound (if any)
// became the binding one.
func (ws *Workspace) primalBlocking(e float64, index, sign *int) {
	if ws.zeroBlocking(e, index, sign) {
		ws.tau = 0
		return
	}
	for i := range ws.dz {
		if ws.dz[i] == 0 {
			continue
		}
		trial := ws.z[i] + ws.tau*ws.dz[i]
		if ws.dz[i] < 0 && trial < ws.lbz[i]-e {
			ws.tau = (ws.lbz[i] - e - ws.z[i]) / ws.dz[i]
			if index != nil {
				if ws.lam[i] < 0 {
					*index = -1
				} else {
					*index = i
				}
			}
			if sign != nil {
				*sign = -1
			}
		} else if ws.dz[i] > 0 && trial > ws.ubz[i]+e {
			ws.tau = (ws.ubz[i] + e - ws.z[i]) / ws.dz[i]
			if index != nil {
				if ws.lam[i] > 0 {
					*index = -1
				} else {
					*index = i
				}
			}
			if sign != nil {
				*sign = 1
			}
		}
		if ws.tau <= 0 {
			return
		}
	}
}

// dualBreakpoints fills tauList/indList with the sorted piecewise-linear
// breakpoints (in [0, tau]) where a currently-active multiplier would cross
// zero, terminated by a sentinel entry at tau itself with index -1. It
// returns the number of entries written.
func (ws *Workspace) dualBreakpoints(tauList []float64, indList []int, e, tau float64) int {
	tauList[0] = tau
	indList[0] = -1
	n := 1
	for i := range ws.lam {
		if ws.dlam[i] == 0 || ws.lam[i] == 0 {
			continue
		}
		trial := ws.lam[i] + tau*ws.dlam[i]
		if ws.lam[i] > 0 {
			if trial >= 0 {
				continue
			}
		} else if trial <= 0 {
			continue
		}
		newTau := -ws.lam[i] / ws.dlam[i]

		loc := 0
		for loc < n-1 && !(newTau < tauList[loc]) {
			loc++
		}
		n++
		nextTau, nextInd := newTau, i
		for j := loc; j < n; j++ {
			tauList[j], nextTau = nextTau, tauList[j]
			indList[j], nextInd = nextInd, indList[j]
		}
	}
	return n
}

// dualBlocking shortens ws.tau, if necessary, to the largest step that does
// not let the maximum dual infeasibility exceed e, walking the piecewise
// linear infeasibility envelope breakpoint by breakpoint and retiring
// crossed multipliers to zero as it goes. It returns the index of the
// component responsible for the binding constraint, or -1 if none bound.
func (ws *Workspace) dualBlocking(e float64) int {
	p := &ws.d.Problem
	nx, nz := p.NX, ws.d.nz
	// dualBreakpoints writes a sentinel plus up to one entry per
	// sign-crossing multiplier: nz+1 entries in the worst case (a fully
	// active set), so the scratch slices must hold more than nz.
	tauList := ws.scratch[:2*nz]
	indList := ws.iscratch[:2*nz]
	n := ws.dualBreakpoints(tauList, indList, e, ws.tau)

	duIndex := -1
	tauK := 0.0
	for j := 0; j < n; j++ {
		dtau := tauList[j] - tauK
		for k := 0; k < nx; k++ {
			newInfeas := ws.infeas[k] + dtau*ws.tinfeas[k]
			if math.Abs(newInfeas) > e {
				bound := e
				if newInfeas <= 0 {
					bound = -e
				}
				tau1 := math.Max(0, tauK+(bound-ws.infeas[k])/ws.tinfeas[k])
				if tau1 < ws.tau {
					ws.tau = tau1
					duIndex = k
				}
			}
		}
		step := math.Min(ws.tau-tauK, dtau)
		for k := 0; k < nx; k++ {
			ws.infeas[k] += step * ws.tinfeas[k]
		}
		if duIndex >= 0 {
			return duIndex
		}
		tauK = tauList[j]
		i := indList[j]
		if i < 0 {
			break
		}
		if ws.neverZero[i] == 0 {
			if i < nx {
				ws.tinfeas[i] -= ws.dlam[i]
			} else {
				tlo, thi := p.SpAT.Col(i - nx)
				for k := tlo; k < thi; k++ {
					ws.tinfeas[p.SpAT.Rowind[k]] -= ws.nzAT[k] * ws.dlam[i]
				}
			}
		}
	}
	return duIndex
}

// takeStep advances (ws.z, ws.lam) by ws.tau*(ws.dz, ws.dlam), then snaps
// each multiplier back to a sign-consistent magnitude: every multiplier
// keeps the sign it had before the step (zero stays zero, nonzero keeps at
// least Dmin in magnitude), except that a neverZero (equality) multiplier
// that crossed zero keeps its new sign.
func (ws *Workspace) takeStep() {
	p := &ws.d.Problem
	prevSign := ws.iscratch[:ws.d.nz]
	for i, l := range ws.lam {
		switch {
		case l > 0:
			prevSign[i] = 1
		case l < 0:
			prevSign[i] = -1
		default:
			prevSign[i] = 0
		}
	}

	for i := range ws.z {
		ws.z[i] += ws.tau * ws.dz[i]
	}
	for i := range ws.lam {
		ws.lam[i] += ws.tau * ws.dlam[i]
	}

	for i := range ws.lam {
		sign := prevSign[i]
		if ws.neverZero[i] != 0 {
			if sign < 0 && ws.lam[i] > 0 {
				sign = -sign
			} else if sign > 0 && ws.lam[i] < 0 {
				sign = -sign
			}
		}
		switch sign {
		case -1:
			ws.lam[i] = math.Min(ws.lam[i], -p.Dmin)
		case 1:
			ws.lam[i] = math.Max(ws.lam[i], p.Dmin)
		case 0:
			ws.lam[i] = 0
		}
	}
}
