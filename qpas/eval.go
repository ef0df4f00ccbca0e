// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qpas

import "github.com/sparseqp/qpas/sparse"

// calcDependent recomputes every quantity that depends on the current
// primal-dual point (ws.z, ws.lam) but not on the active set search itself:
// the objective value, the derived slacks z[nx:]=A·z[:nx], the Lagrangian
// gradient (stationarity residual), the bound-respecting multiplier values
// for primal variables whose bound is active, and the primal/dual error
// summaries.
func (ws *Workspace) calcDependent() {
	p := &ws.d.Problem
	nx, na := p.NX, p.NA

	x := ws.z[:nx]
	ws.f = 0.5*sparse.Bilin(p.SpH, ws.nzH, x, x) + sparse.Dot(x, ws.g)

	sparse.Zero(ws.z[nx:])
	sparse.MV(p.SpA, ws.nzA, x, ws.z[nx:], false)

	copy(ws.infeas, ws.g)
	sparse.MV(p.SpH, ws.nzH, x, ws.infeas, false)
	sparse.MV(p.SpA, ws.nzA, ws.lam[nx:], ws.infeas, true)

	for i := 0; i < nx; i++ {
		switch {
		case ws.lam[i] > 0:
			ws.lam[i] = max(-ws.infeas[i], p.Dmin)
		case ws.lam[i] < 0:
			ws.lam[i] = min(-ws.infeas[i], -p.Dmin)
		}
		ws.infeas[i] += ws.lam[i]
	}

	ws.calcPr()
	ws.calcDu()

	_ = na
}

// calcPr finds the largest bound violation across z[:nz].
func (ws *Workspace) calcPr() {
	ws.pr = 0
	ws.ipr = -1
	for i, zi := range ws.z {
		if zi > ws.ubz[i]+ws.pr {
			ws.pr = zi - ws.ubz[i]
			ws.ipr = i
		} else if zi < ws.lbz[i]-ws.pr {
			ws.pr = ws.lbz[i] - zi
			ws.ipr = i
		}
	}
}

// calcDu finds the largest stationarity violation across infeas[:nx].
func (ws *Workspace) calcDu() {
	ws.du = 0
	ws.idu = -1
	for i, v := range ws.infeas {
		if v > ws.du {
			ws.du = v
			ws.idu = i
		} else if v < -ws.du {
			ws.du = -v
			ws.idu = i
		}
	}
}
