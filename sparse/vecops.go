// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Fill sets every element of v to val.
func Fill(v []float64, val float64) {
	for i := range v {
		v[i] = val
	}
}

// Zero sets every element of v to zero.
func Zero(v []float64) {
	Fill(v, 0)
}

// Copy copies src into dst. Both must have equal length.
func Copy(dst, src []float64) {
	if len(dst) != len(src) {
		panic("bound check error")
	}
	copy(dst, src)
}

// AXPY computes y += alpha*x in place.
func AXPY(alpha float64, x, y []float64) {
	if len(x) != len(y) {
		panic("bound check error")
	}
	if alpha == 0 {
		return
	}
	floats.AddScaled(y, alpha, x)
}

// Dot returns the inner product of x and y.
func Dot(x, y []float64) float64 {
	if len(x) != len(y) {
		panic("bound check error")
	}
	return floats.Dot(x, y)
}

// Scal scales x by alpha in place.
func Scal(alpha float64, x []float64) {
	floats.Scale(alpha, x)
}

// Nrm2 returns the Euclidean norm of x.
func Nrm2(x []float64) float64 {
	return math.Sqrt(floats.Dot(x, x))
}
