// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse provides fixed-pattern compressed-column sparse matrix
// primitives and a numeric QR engine driven by externally supplied symbolic
// factors. None of the operations in this package allocate: callers own the
// column pointer, row index and value buffers for the lifetime of a solve.
package sparse

// Pattern is a compressed-column sparsity structure (CCS). Colptr has length
// Ncol+1 and Rowind has length Colptr[Ncol]; within a column the row indices
// are ascending. A Pattern carries no values: callers pair it with a parallel
// []float64 slice of length Colptr[Ncol].
type Pattern struct {
	Nrow, Ncol int
	Colptr     []int
	Rowind     []int
}

// NNZ returns the number of structural nonzeros described by the pattern.
func (p *Pattern) NNZ() int {
	return p.Colptr[p.Ncol]
}

// Col returns the index range [lo,hi) into Rowind/values for column j.
func (p *Pattern) Col(j int) (lo, hi int) {
	return p.Colptr[j], p.Colptr[j+1]
}

// Diag returns the index into Rowind/values of the diagonal entry of column j,
// assuming the column's row indices are ascending and j itself is present as
// the last (largest) row index in the column — the layout produced by the QR
// engine for its triangular factor. It panics if the column is empty.
func (p *Pattern) Diag(j int) int {
	lo, hi := p.Col(j)
	if hi <= lo {
		panic("bound check error")
	}
	return hi - 1
}
