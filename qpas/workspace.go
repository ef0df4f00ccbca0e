// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qpas

import (
	"errors"

	"github.com/sparseqp/qpas/sparse"
)

// Data is the numeric input to a solve: the Hessian and constraint Jacobian
// entries (paired with the Descriptor's fixed sparsity), the linear term,
// variable/constraint bounds, and a starting point and multiplier guess.
// Reset copies Z, Lbz, Ubz and Lam into the Workspace; NzH, NzA and G are
// kept by reference and read throughout the solve, so they must not be
// modified until Solve returns.
type Data struct {
	NzH, NzA []float64 // numeric entries, paired with Problem.SpH / SpA
	G        []float64 // linear term, length nx

	Z, Lbz, Ubz []float64 // length nz = nx+na
	Lam         []float64 // length nz, initial multiplier guess (sign fixes the initial active set)
}

// Work returns the lengths of the int and float64 buffers an Init call will
// need: the scratch region used internally by the QR engine and active-set
// bookkeeping, plus the persistent per-solve vectors.
func (d *Descriptor) Work() (szIW, szW int) {
	nz, nx := d.nz, d.NX
	nnzA := d.SpA.NNZ()
	nnzKKT := d.SpKKT.NNZ()
	nnzV := d.Sym.SpV.NNZ()
	nnzR := d.Sym.SpR.NNZ()

	szW = max(nz, 2*nz)
	szIW = max(nz, 2*nz) // dualBlocking's breakpoint index list can hold up to nz+1 entries

	szW += nnzKKT                 // nzKKT
	szW += nz                     // z
	szW += nz                     // lbz
	szW += nz                     // ubz
	szW += nz                     // lam
	szW += nz                     // dz
	szW += nz                     // dlam
	szW += max(nnzV+nnzR, nnzKKT) // [v,r], reused as trans(kkt) scratch
	szW += nz                     // beta
	szW += nnzA                   // trans(a)
	szW += nx                     // infeas
	szW += nx                     // tinfeas
	szIW += nz                    // neverzero
	szIW += nz                    // neverupper
	szIW += nz                    // neverlower
	return
}

// Init carves iw/w (sized per Work) into a Workspace. iw and w must remain
// live and unshared for the lifetime of the Workspace.
func (d *Descriptor) Init(iw []int, w []float64) *Workspace {
	nz, nx := d.nz, d.NX
	nnzA := d.SpA.NNZ()
	nnzKKT := d.SpKKT.NNZ()
	nnzV := d.Sym.SpV.NNZ()
	nnzR := d.Sym.SpR.NNZ()

	takeF := func(n int) []float64 {
		s := w[:n]
		w = w[n:]
		return s
	}
	takeI := func(n int) []int {
		s := iw[:n]
		iw = iw[n:]
		return s
	}

	ws := &Workspace{d: d}
	ws.nzKKT = takeF(nnzKKT)
	ws.z = takeF(nz)
	ws.lbz = takeF(nz)
	ws.ubz = takeF(nz)
	ws.lam = takeF(nz)
	ws.dz = takeF(nz)
	ws.dlam = takeF(nz)
	vr := takeF(max(nnzV+nnzR, nnzKKT))
	ws.nzV = vr[:nnzV]
	ws.nzR = vr[nnzV : nnzV+nnzR]
	ws.vrScratch = vr
	ws.beta = takeF(nz)
	ws.nzAT = takeF(nnzA)
	ws.infeas = takeF(nx)
	ws.tinfeas = takeF(nx)
	ws.neverZero = takeI(nz)
	ws.neverUpper = takeI(nz)
	ws.neverLower = takeI(nz)
	ws.scratch = w
	ws.iscratch = iw

	return ws
}

// Workspace is a per-solve carving of a Descriptor's buffers. Create one
// Workspace per goroutine driving concurrent solves against a shared
// Descriptor.
type Workspace struct {
	d *Descriptor

	nzKKT, nzAT      []float64
	z, lbz, ubz, lam []float64
	dz, dlam         []float64
	nzV, nzR, beta   []float64
	vrScratch        []float64
	infeas, tinfeas  []float64

	// flags, carried as 0/1 ints to stay within the caller-supplied iw buffer
	neverZero, neverUpper, neverLower []int

	scratch  []float64
	iscratch []int

	tau      float64
	sing     int
	mina     float64
	imina    int
	pr, du   float64
	ipr, idu int
	f        float64
	msg      string

	nzH, nzA, g []float64
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Reset loads data into the workspace, correcting the initial multiplier
// signs so they're consistent with the permitted sign of each component,
// and pre-computes the transposed constraint Jacobian. It returns an error
// if a component's bounds admit no feasible multiplier sign at all (lower
// and upper bound coincide while also both being declared ±∞).
func (ws *Workspace) Reset(data *Data) error {
	p := &ws.d.Problem
	nz := ws.d.nz

	if len(data.Z) != nz || len(data.Lbz) != nz || len(data.Ubz) != nz || len(data.Lam) != nz {
		panic("bound check error")
	}
	if len(data.G) != p.NX {
		panic("bound check error")
	}

	copy(ws.z, data.Z)
	copy(ws.lbz, data.Lbz)
	copy(ws.ubz, data.Ubz)
	copy(ws.lam, data.Lam)
	ws.nzH, ws.nzA, ws.g = data.NzH, data.NzA, data.G

	for i := 0; i < nz; i++ {
		if ws.lbz[i] > ws.ubz[i] {
			return errors.New("bounds infeasible: lbz exceeds ubz")
		}
	}

	ws.msg = ""
	ws.tau = 0
	ws.sing = 0

	for i := 0; i < nz; i++ {
		neverZero := ws.lbz[i] == ws.ubz[i]
		neverUpper := isInf(ws.ubz[i], p.Inf)
		neverLower := isInf(ws.lbz[i], p.Inf)
		ws.neverZero[i] = flag(neverZero)
		ws.neverUpper[i] = flag(neverUpper)
		ws.neverLower[i] = flag(neverLower)
		if neverZero && neverUpper && neverLower {
			return errors.New("component has no admissible multiplier sign")
		}
		switch {
		case neverZero && ws.lam[i] == 0:
			if neverUpper || ws.z[i]-ws.lbz[i] <= ws.ubz[i]-ws.z[i] {
				ws.lam[i] = -p.Dmin
			} else {
				ws.lam[i] = p.Dmin
			}
		case neverUpper && ws.lam[i] > 0:
			if neverZero {
				ws.lam[i] = -p.Dmin
			} else {
				ws.lam[i] = 0
			}
		case neverLower && ws.lam[i] < 0:
			if neverZero {
				ws.lam[i] = p.Dmin
			} else {
				ws.lam[i] = 0
			}
		}
	}

	sparse.Trans(p.SpA, data.NzA, p.SpAT, ws.nzAT, ws.iscratch[:p.NA])
	return nil
}

func isInf(v, inf float64) bool {
	return v >= inf || v <= -inf
}
