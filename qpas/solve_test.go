// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qpas

import (
	"math"
	"testing"

	"github.com/sparseqp/qpas/sparse"
)

const seedTol = 1e-6

// Scenario 1: tiny box-QP, no active bounds.
func TestSolveTinyBoxQP(t *testing.T) {
	tp := &testProblem{
		nx: 2,
		nzH: []float64{
			2, 0,
			0, 2,
		},
		g: []float64{-4, -6},
	}
	ws, _ := tp.workspace(t, 50)
	inf := math.Inf(1)
	data := &Data{
		NzH: tp.nzH, G: tp.g,
		Z:   []float64{0, 0},
		Lbz: []float64{0, 0},
		Ubz: []float64{inf, inf},
		Lam: []float64{0, 0},
	}
	status := ws.Solve(data)
	if status != Solved {
		t.Fatalf("expected Solved, got %v", status)
	}
	if math.Abs(ws.z[0]-2) > seedTol || math.Abs(ws.z[1]-3) > seedTol {
		t.Fatalf("x* = %v, want (2, 3)", ws.z)
	}
	if math.Abs(ws.lam[0]) > seedTol || math.Abs(ws.lam[1]) > seedTol {
		t.Fatalf("lam* = %v, want (0, 0)", ws.lam)
	}
	if math.Abs(ws.f-(-13)) > seedTol {
		t.Fatalf("f = %v, want -13", ws.f)
	}
}

// Scenario 2: one bound active.
func TestSolveActiveBound(t *testing.T) {
	tp := &testProblem{
		nx: 2,
		nzH: []float64{
			2, 0,
			0, 2,
		},
		g: []float64{-4, -6},
	}
	ws, _ := tp.workspace(t, 50)
	inf := math.Inf(1)
	data := &Data{
		NzH: tp.nzH, G: tp.g,
		Z:   []float64{0, 0},
		Lbz: []float64{0, 0},
		Ubz: []float64{1, inf},
		Lam: []float64{0, 0},
	}
	status := ws.Solve(data)
	if status != Solved {
		t.Fatalf("expected Solved, got %v", status)
	}
	if math.Abs(ws.z[0]-1) > seedTol || math.Abs(ws.z[1]-3) > seedTol {
		t.Fatalf("x* = %v, want (1, 3)", ws.z)
	}
	if ws.lam[0] <= 0 {
		t.Fatalf("lam[0] = %v, want > 0", ws.lam[0])
	}
	if math.Abs(ws.lam[1]) > seedTol {
		t.Fatalf("lam[1] = %v, want 0", ws.lam[1])
	}
	if math.Abs(ws.f-(-12)) > seedTol {
		t.Fatalf("f = %v, want -12", ws.f)
	}
}

// Scenario 3: single equality constraint.
func TestSolveEqualityConstrained(t *testing.T) {
	tp := &testProblem{
		nx: 2, na: 1,
		nzH: []float64{
			1, 0,
			0, 1,
		},
		nzA: []float64{1, 1}, // A = [1 1], column major 1x2
		g:   []float64{0, 0},
	}
	ws, _ := tp.workspace(t, 50)
	inf := math.Inf(1)
	data := &Data{
		NzH: tp.nzH, NzA: tp.nzA, G: tp.g,
		Z:   []float64{0, 0, 0},
		Lbz: []float64{-inf, -inf, 1},
		Ubz: []float64{inf, inf, 1},
		Lam: []float64{0, 0, 0},
	}
	status := ws.Solve(data)
	if status != Solved {
		t.Fatalf("expected Solved, got %v", status)
	}
	if math.Abs(ws.z[0]-0.5) > seedTol || math.Abs(ws.z[1]-0.5) > seedTol {
		t.Fatalf("x* = %v, want (0.5, 0.5)", ws.z[:2])
	}
	if math.Abs(ws.f-0.25) > seedTol {
		t.Fatalf("f = %v, want 0.25", ws.f)
	}
}

// Scenario 4: infeasible bounds must be rejected at Reset.
func TestResetRejectsInfeasibleBounds(t *testing.T) {
	tp := &testProblem{
		nx:  1,
		nzH: []float64{1},
		g:   []float64{0},
	}
	ws, _ := tp.workspace(t, 10)
	data := &Data{
		NzH: tp.nzH, G: tp.g,
		Z:   []float64{0},
		Lbz: []float64{1},
		Ubz: []float64{0},
		Lam: []float64{0},
	}
	if err := ws.Reset(data); err == nil {
		t.Fatalf("expected Reset to reject lbz > ubz")
	}
	if status := ws.Solve(data); status != BadArgument {
		t.Fatalf("expected BadArgument from Solve, got %v", status)
	}
}

// Scenario 5: singular H with a degenerate direction must not diverge.
func TestSolveSingularHessianDoesNotDiverge(t *testing.T) {
	tp := &testProblem{
		nx: 2,
		nzH: []float64{
			1, 1,
			1, 1,
		},
		g: []float64{-1, -1},
	}
	ws, _ := tp.workspace(t, 50)
	inf := math.Inf(1)
	data := &Data{
		NzH: tp.nzH, G: tp.g,
		Z:   []float64{0, 0},
		Lbz: []float64{-inf, -inf},
		Ubz: []float64{inf, inf},
		Lam: []float64{0, 0},
	}
	status := ws.Solve(data)
	if status != Solved && status != CannotEnforce && status != MaxIter {
		t.Fatalf("unexpected status %v", status)
	}
	for _, v := range ws.z {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("solver diverged: z = %v", ws.z)
		}
	}
	if status == Solved {
		if math.Abs(ws.z[0]+ws.z[1]-1) > 1e-4 {
			t.Fatalf("x1+x2 = %v, want 1", ws.z[0]+ws.z[1])
		}
	}
}

// Scenario 6: re-solving an already-converged instance must exit
// immediately with an unchanged point.
func TestSolveWarmStartIdempotence(t *testing.T) {
	tp := &testProblem{
		nx: 2,
		nzH: []float64{
			2, 0,
			0, 2,
		},
		g: []float64{-4, -6},
	}
	ws, _ := tp.workspace(t, 50)
	inf := math.Inf(1)
	data := &Data{
		NzH: tp.nzH, G: tp.g,
		Z:   []float64{0, 0},
		Lbz: []float64{0, 0},
		Ubz: []float64{1, inf},
		Lam: []float64{0, 0},
	}
	if status := ws.Solve(data); status != Solved {
		t.Fatalf("first solve: expected Solved, got %v", status)
	}
	x1 := append([]float64(nil), ws.z...)
	lam1 := append([]float64(nil), ws.lam...)

	data2 := &Data{
		NzH: tp.nzH, G: tp.g,
		Z:   append([]float64(nil), ws.z...),
		Lbz: data.Lbz, Ubz: data.Ubz,
		Lam: append([]float64(nil), ws.lam...),
	}
	if status := ws.Solve(data2); status != Solved {
		t.Fatalf("second solve: expected Solved, got %v", status)
	}
	for i := range x1 {
		if math.Abs(ws.z[i]-x1[i]) > 1e-10 {
			t.Fatalf("z changed on re-solve: %v vs %v", ws.z, x1)
		}
		if math.Abs(ws.lam[i]-lam1[i]) > 1e-10 {
			t.Fatalf("lam changed on re-solve: %v vs %v", ws.lam, lam1)
		}
	}
}

// Boundary: empty constraints (na=0) must reduce to one factorization and
// one step: with an iteration budget of 2, the first iteration takes the
// step and the second only confirms convergence.
func TestSolveEmptyConstraintsOneStep(t *testing.T) {
	tp := &testProblem{
		nx: 2,
		nzH: []float64{
			2, 0,
			0, 2,
		},
		g: []float64{-4, -6},
	}
	ws, _ := tp.workspace(t, 2)
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
}

// Boundary: a degenerate bound (lbz[i]==ubz[i]) pins the component: Reset
// sets neverZero and moves a zero initial multiplier off zero.
func TestDegenerateBoundPinsComponent(t *testing.T) {
	tp := &testProblem{
		nx: 2, na: 1,
		nzH: []float64{1, 0, 0, 1},
		nzA: []float64{1, 1},
		g:   []float64{0, 0},
	}
	ws, _ := tp.workspace(t, 50)
	data := &Data{
		NzH: tp.nzH, NzA: tp.nzA, G: tp.g,
		Z:   []float64{0, 0, 0},
		Lbz: []float64{-math.Inf(1), -math.Inf(1), 1},
		Ubz: []float64{math.Inf(1), math.Inf(1), 1},
		Lam: []float64{0, 0, 0},
	}
	if err := ws.Reset(data); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if ws.neverZero[2] == 0 {
		t.Fatalf("expected neverZero[2] to be set for a degenerate bound")
	}
	if ws.lam[2] == 0 {
		t.Fatalf("expected lam[2] to be corrected away from zero")
	}
}

// Invariant: sign discipline holds at every point a solve can report.
func TestSignDisciplineInvariant(t *testing.T) {
	tp := &testProblem{
		nx: 2,
		nzH: []float64{
			2, 0,
			0, 2,
		},
		g: []float64{-4, -6},
	}
	ws, _ := tp.workspace(t, 50)
	inf := math.Inf(1)
	data := &Data{
		NzH: tp.nzH, G: tp.g,
		Z:   []float64{0, 0},
		Lbz: []float64{0, 0},
		Ubz: []float64{1, inf},
		Lam: []float64{0, 0},
	}
	if status := ws.Solve(data); status != Solved {
		t.Fatalf("expected Solved, got %v", status)
	}
	for i := range ws.lam {
		if ws.neverZero[i] != 0 && ws.lam[i] == 0 {
			t.Fatalf("component %d: neverZero but lam == 0", i)
		}
		if ws.neverUpper[i] != 0 && ws.lam[i] > 0 {
			t.Fatalf("component %d: neverUpper but lam > 0", i)
		}
		if ws.neverLower[i] != 0 && ws.lam[i] < 0 {
			t.Fatalf("component %d: neverLower but lam < 0", i)
		}
	}
}

// Invariant: KKT stationarity and complementarity hold at a successful
// return, and calcDependent is idempotent.
func TestKKTStationarityAndComplementarity(t *testing.T) {
	tp := &testProblem{
		nx: 2, na: 1,
		nzH: []float64{1, 0, 0, 1},
		nzA: []float64{1, 1},
		g:   []float64{0, 0},
	}
	ws, _ := tp.workspace(t, 50)
	inf := math.Inf(1)
	data := &Data{
		NzH: tp.nzH, NzA: tp.nzA, G: tp.g,
		Z:   []float64{0, 0, 0},
		Lbz: []float64{-inf, -inf, 1},
		Ubz: []float64{inf, inf, 1},
		Lam: []float64{0, 0, 0},
	}
	if status := ws.Solve(data); status != Solved {
		t.Fatalf("expected Solved, got %v", status)
	}

	infeasBefore := append([]float64(nil), ws.infeas...)
	prBefore, duBefore := ws.pr, ws.du
	ws.calcDependent()
	if prBefore != ws.pr || duBefore != ws.du {
		t.Fatalf("calcDependent not idempotent: pr/du changed (%v,%v) -> (%v,%v)", prBefore, duBefore, ws.pr, ws.du)
	}
	for i := range infeasBefore {
		if infeasBefore[i] != ws.infeas[i] {
			t.Fatalf("calcDependent not idempotent: infeas changed at %d", i)
		}
	}

	if ws.du > tp.descriptor(t, 1).TolDu*10 {
		t.Fatalf("dual infeasibility too large at return: %v", ws.du)
	}

	for i := range ws.lam {
		switch {
		case ws.lam[i] > 0:
			if math.Abs(ws.z[i]-ws.ubz[i]) > 1e-6 {
				t.Fatalf("component %d: lam>0 but z=%v, ubz=%v", i, ws.z[i], ws.ubz[i])
			}
		case ws.lam[i] < 0:
			if math.Abs(ws.z[i]-ws.lbz[i]) > 1e-6 {
				t.Fatalf("component %d: lam<0 but z=%v, lbz=%v", i, ws.z[i], ws.lbz[i])
			}
		default:
			if ws.z[i] < ws.lbz[i]-1e-6 || ws.z[i] > ws.ubz[i]+1e-6 {
				t.Fatalf("component %d: lam==0 but z=%v outside [%v,%v]", i, ws.z[i], ws.lbz[i], ws.ubz[i])
			}
		}
	}
}

// Objective consistency: f must match ½ zᵀHz + gᵀz[:nx] to round-off at
// every reported point, not only at convergence.
func TestObjectiveConsistency(t *testing.T) {
	tp := &testProblem{
		nx: 2,
		nzH: []float64{
			2, 0,
			0, 2,
		},
		g: []float64{-4, -6},
	}
	ws, d := tp.workspace(t, 1)
	inf := math.Inf(1)
	data := &Data{
		NzH: tp.nzH, G: tp.g,
		Z:   []float64{5, -1},
		Lbz: []float64{-inf, -inf},
		Ubz: []float64{inf, inf},
		Lam: []float64{0, 0},
	}
	_ = ws.Solve(data)
	x := ws.z[:d.NX]
	want := 0.5*sparse.Bilin(d.SpH, tp.nzH, x, x) + sparse.Dot(x, tp.g)
	if math.Abs(ws.f-want) > 1e-9 {
		t.Fatalf("f = %v, want %v", ws.f, want)
	}
}
