// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qpas implements an active-set solver for quadratic programs
//
//	minimize   ½ xᵀHx + gᵀx
//	subject to lbx ≤ x ≤ ubx,  lba ≤ Ax ≤ uba
//
// via repeated KKT saddle-point solves against a sparse QR factorization,
// following the primal-dual active-set method of Ferreau et al. (qpOASES)
// as specialised to a fixed sparsity pattern supplied by the caller.
package qpas

import (
	"errors"
	"math"
	"os"

	"github.com/sparseqp/qpas/sparse"
)

// Problem describes the fixed shape of a QP: variable/constraint counts,
// constraint sparsity, and the symbolic QR factors of the KKT matrix that
// results from that sparsity. Problem carries structure only; the numeric
// data (H, A, g, bounds, starting point) is supplied per solve via Data.
//
// The symbolic QR factors (Sym) are treated as an external input: whatever
// fill-reducing ordering or elimination-tree analysis produced them is out
// of scope for this package, which only performs the numeric factorization
// and triangular solves against the patterns it is given.
type Problem struct {
	NX, NA int // number of primal variables, number of linear constraints

	SpH   *sparse.Pattern // nx×nx, symmetric, both halves stored
	SpA   *sparse.Pattern // na×nx
	SpAT  *sparse.Pattern // nx×na, transpose of SpA
	SpKKT *sparse.Pattern // nz×nz, nz=nx+na

	Sym *sparse.Symbolic // symbolic QR factors of the KKT matrix

	Dmin      float64 // smallest permitted nonzero multiplier magnitude
	Inf       float64 // value treated as +∞ for bound comparisons
	DuToPr    float64 // relative weight of dual vs primal error
	TolPr     float64 // primal feasibility tolerance
	TolDu     float64 // dual feasibility tolerance
	MaxIter   int
	PrintIter bool    // when set, Solve writes one line per outer iteration
	Logger    *Logger // diagnostics sink; defaults to stdout when PrintIter is set
}

// New validates p and returns a Descriptor ready to size and carve a
// Workspace. The sparsity patterns and symbolic QR factors are retained by
// reference and must not be mutated afterwards.
func (p *Problem) New() (*Descriptor, error) {
	nz := p.NX + p.NA
	var err error
	switch {
	case p.NX <= 0:
		err = errors.New("number of variables must be greater than 0")
	case p.NA < 0:
		err = errors.New("number of constraints must not be negative")
	case p.SpH == nil || p.SpH.Nrow != p.NX || p.SpH.Ncol != p.NX:
		err = errors.New("hessian sparsity must be nx×nx")
	case p.SpA == nil || p.SpA.Nrow != p.NA || p.SpA.Ncol != p.NX:
		err = errors.New("constraint sparsity must be na×nx")
	case p.SpAT == nil || p.SpAT.Nrow != p.NX || p.SpAT.Ncol != p.NA:
		err = errors.New("transposed constraint sparsity must be nx×na")
	case p.SpKKT == nil || p.SpKKT.Nrow != nz || p.SpKKT.Ncol != nz:
		err = errors.New("kkt sparsity must be nz×nz")
	case p.Sym == nil || p.Sym.SpR == nil || p.Sym.SpV == nil:
		err = errors.New("symbolic qr factors are required")
	case p.Sym.SpR.Ncol != nz || p.Sym.SpV.Ncol != nz:
		err = errors.New("symbolic qr factors must have nz columns")
	case len(p.Sym.Prinv) != nz || len(p.Sym.Pc) != nz:
		err = errors.New("qr permutations must have length nz")
	case p.Dmin < 0:
		err = errors.New("dmin must not be negative")
	case p.TolPr < 0 || p.TolDu < 0:
		err = errors.New("tolerances must not be negative")
	case p.MaxIter <= 0:
		err = errors.New("max iteration must be greater than 0")
	}
	if err != nil {
		return nil, err
	}

	q := *p
	if q.Inf == 0 {
		q.Inf = math.Inf(1)
	}
	if q.DuToPr == 0 {
		q.DuToPr = 1
	}
	if q.Dmin == 0 {
		q.Dmin = 1e-12
	}
	if q.PrintIter && q.Logger == nil {
		q.Logger = &Logger{Level: LogIter, Out: os.Stdout}
	}
	return &Descriptor{Problem: q, nz: nz}, nil
}

// Descriptor is a validated, immutable Problem ready to size workspaces.
// A Descriptor may be shared by multiple goroutines, each driving its own
// Workspace.
type Descriptor struct {
	Problem
	nz int
}
