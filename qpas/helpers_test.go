// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qpas

import (
	"testing"

	"github.com/sparseqp/qpas/sparse"
)

// denseFull builds an m×n CCS pattern with every entry present, column
// major. Overinclusive patterns are always valid superset sparsity, so
// tests use them in place of the fill-reducing patterns a real symbolic
// analysis would produce.
func denseFull(m, n int) *sparse.Pattern {
	colptr := make([]int, n+1)
	var rowind []int
	for j := 0; j < n; j++ {
		colptr[j] = len(rowind)
		for i := 0; i < m; i++ {
			rowind = append(rowind, i)
		}
	}
	colptr[n] = len(rowind)
	return &sparse.Pattern{Nrow: m, Ncol: n, Colptr: colptr, Rowind: rowind}
}

func denseUpper(n int) *sparse.Pattern {
	colptr := make([]int, n+1)
	var rowind []int
	for j := 0; j < n; j++ {
		colptr[j] = len(rowind)
		for i := 0; i <= j; i++ {
			rowind = append(rowind, i)
		}
	}
	colptr[n] = len(rowind)
	return &sparse.Pattern{Nrow: n, Ncol: n, Colptr: colptr, Rowind: rowind}
}

func denseStrictLower(n int) *sparse.Pattern {
	colptr := make([]int, n+1)
	var rowind []int
	for j := 0; j < n; j++ {
		colptr[j] = len(rowind)
		for i := j + 1; i < n; i++ {
			rowind = append(rowind, i)
		}
	}
	colptr[n] = len(rowind)
	return &sparse.Pattern{Nrow: n, Ncol: n, Colptr: colptr, Rowind: rowind}
}

func identityPerm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// denseSymbolic builds an overinclusive QR symbolic factor set for an nz×nz
// KKT matrix, sufficient for any pivot order since no structural sparsity
// is assumed.
func denseSymbolic(nz int) *sparse.Symbolic {
	return &sparse.Symbolic{
		SpR:   denseUpper(nz),
		SpV:   denseStrictLower(nz),
		Prinv: identityPerm(nz),
		Pc:    identityPerm(nz),
	}
}

// testProblem bundles the dimensions and dense numeric data of a small QP,
// and builds a ready-to-solve Workspace.
type testProblem struct {
	nx, na int
	nzH    []float64 // nx×nx, column major, dense
	nzA    []float64 // na×nx, column major, dense (nil when na==0)
	g      []float64 // length nx
}

func (tp *testProblem) descriptor(t *testing.T, maxIter int) *Descriptor {
	t.Helper()
	nz := tp.nx + tp.na
	p := &Problem{
		NX:      tp.nx,
		NA:      tp.na,
		SpH:     denseFull(tp.nx, tp.nx),
		SpA:     denseFull(tp.na, tp.nx),
		SpAT:    denseFull(tp.nx, tp.na),
		SpKKT:   denseFull(nz, nz),
		Sym:     denseSymbolic(nz),
		Dmin:    1e-10,
		TolPr:   1e-9,
		TolDu:   1e-8,
		MaxIter: maxIter,
	}
	d, err := p.New()
	if err != nil {
		t.Fatalf("problem setup failed: %v", err)
	}
	return d
}

func (tp *testProblem) workspace(t *testing.T, maxIter int) (*Workspace, *Descriptor) {
	t.Helper()
	d := tp.descriptor(t, maxIter)
	szIW, szW := d.Work()
	ws := d.Init(make([]int, szIW), make([]float64, szW))
	return ws, d
}
