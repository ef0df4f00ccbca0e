// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

// Symbolic carries the fixed, problem-shape-dependent factors of a sparse QR
// factorization: the sparsity patterns of the strictly-below-diagonal
// Householder vectors (V) and the upper triangular factor (R), together with
// the row permutation Prinv (Prinv[origRow] = pivotRow) and column
// permutation Pc (Pc[k] = the original column eliminated at pivot step k)
// that were chosen ahead of time by whatever symbolic analysis produced this
// factor shape (fill-reducing ordering, elimination tree, etc — that
// analysis is out of scope here and is assumed to have already run; Symbolic
// is consumed, never computed, by this package).
type Symbolic struct {
	SpV, SpR  *Pattern
	Prinv, Pc []int
}
