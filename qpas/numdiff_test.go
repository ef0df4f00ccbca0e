// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qpas

import (
	"math"
	"testing"

	"github.com/sparseqp/qpas/sparse"
)

// centralDiffGradient approximates ∇f(x0) by second-order central
// differences, one coordinate at a time. The solver's own stationarity
// check (calcDependent's infeas computation) is an analytic KKT residual;
// cross-checking it against a numerically differentiated objective gradient
// catches a sign or indexing error in the analytic path that both an
// algebraic review and a literal-value seed scenario could miss.
func centralDiffGradient(f func(x []float64) float64, x0 []float64) []float64 {
	const h = 1e-6
	grad := make([]float64, len(x0))
	x := append([]float64(nil), x0...)
	for i := range x0 {
		orig := x[i]
		x[i] = orig + h
		fp := f(x)
		x[i] = orig - h
		fm := f(x)
		x[i] = orig
		grad[i] = (fp - fm) / (2 * h)
	}
	return grad
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	tp := &testProblem{
		nx: 2,
		nzH: []float64{
			2, 1,
			1, 3,
		},
		g: []float64{-1, 2},
	}
	d := tp.descriptor(t, 1)

	f := func(x []float64) float64 {
		return 0.5*sparse.Bilin(d.SpH, tp.nzH, x, x) + sparse.Dot(x, tp.g)
	}

	x0 := []float64{1.5, -0.75}
	fd := centralDiffGradient(f, x0)

	analytic := make([]float64, tp.nx)
	sparse.MV(d.SpH, tp.nzH, x0, analytic, false)
	for i := range analytic {
		analytic[i] += tp.g[i]
	}

	for i := range analytic {
		if math.Abs(fd[i]-analytic[i]) > 1e-5 {
			t.Fatalf("gradient[%d] = %v (analytic), %v (finite-difference)", i, analytic[i], fd[i])
		}
	}
}

// The finite-difference gradient at the point an unconstrained solve
// converges to must vanish, since no constraint or bound is active there.
func TestSolvedPointStationaryByFiniteDifference(t *testing.T) {
	tp := &testProblem{
		nx: 2,
		nzH: []float64{
			2, 0,
			0, 2,
		},
		g: []float64{-4, -6},
	}
	ws, d := tp.workspace(t, 50)
	inf := math.Inf(1)
	data := &Data{
		NzH: tp.nzH, G: tp.g,
		Z:   []float64{0, 0},
		Lbz: []float64{-inf, -inf},
		Ubz: []float64{inf, inf},
		Lam: []float64{0, 0},
	}
	if status := ws.Solve(data); status != Solved {
		t.Fatalf("expected Solved, got %v", status)
	}

	f := func(x []float64) float64 {
		return 0.5*sparse.Bilin(d.SpH, tp.nzH, x, x) + sparse.Dot(x, tp.g)
	}
	x0 := append([]float64(nil), ws.z[:tp.nx]...)
	fd := centralDiffGradient(f, x0)
	for i, g := range fd {
		if math.Abs(g) > 1e-4 {
			t.Fatalf("gradient[%d] = %v, want ~0 at unconstrained optimum", i, g)
		}
	}
}
