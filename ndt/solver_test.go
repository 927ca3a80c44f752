// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndt

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/ndtreg/voxelmap"
	"github.com/cpmech/ndtreg/xform"
)

// randomCloud spreads n points over a 5x5x5 box, dense enough (about 8
// points per unit cell for n=1000) that BuildGrid can fit a Gaussian in
// every cell.
func randomCloud(n int, seed int64) [][3]float64 {
	rng := rand.New(rand.NewSource(seed))
	cloud := make([][3]float64, n)
	for i := range cloud {
		cloud[i] = [3]float64{rng.Float64() * 5, rng.Float64() * 5, rng.Float64() * 5}
	}
	return cloud
}

func Test_solver01_identityConvergence(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver01: identity guess on an aligned cloud")

	target := randomCloud(1000, 1)
	grid := voxelmap.BuildGrid(target, 1.0)

	var p Params
	p.SetDefault()
	p.SearchMethod = DIRECT7

	solver := NewSolver()
	solver.SetParams(p)
	solver.SetInputSource(target)
	solver.SetInputTarget(grid)
	solver.Align(nil)

	if solver.Iterations() > 2 {
		tst.Fatalf("expected nr_iterations <= 2, got %d", solver.Iterations())
	}
	// the accepted step is floored at trans_epsilon/2, so the converged pose
	// can sit up to that far from the (already aligned) optimum
	final := solver.FinalTransformation()
	tr := final.Translation()
	norm := math.Sqrt(tr[0]*tr[0] + tr[1]*tr[1] + tr[2]*tr[2])
	if norm > p.TransEpsilon {
		tst.Fatalf("expected ||final.translation|| <= %v, got %v", p.TransEpsilon, norm)
	}
	if solver.TransformationProbability() <= 0.3 {
		tst.Fatalf("expected trans_probability > 0.3, got %v", solver.TransformationProbability())
	}
	if !solver.HasConverged() {
		tst.Fatalf("expected convergence")
	}
}

func Test_solver02_trajectoryLength(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver02: trajectory length == nr_iterations + 1")

	target := randomCloud(300, 2)
	grid := voxelmap.BuildGrid(target, 1.0)

	var p Params
	p.SetDefault()
	p.SearchMethod = DIRECT7
	p.MaxIterations = 5

	solver := NewSolver()
	solver.SetParams(p)
	solver.SetInputSource(target)
	solver.SetInputTarget(grid)
	solver.Align(nil)

	chk.IntAssert(len(solver.TransformationArray()), solver.Iterations()+1)
}

func Test_solver02b_translationRecovery(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver02b: translation recovery from a nearby guess")

	target := randomCloud(600, 4)
	grid := voxelmap.BuildGrid(target, 1.0)

	trueT := [3]float64{2.0, -1.5, 0.3}
	source := make([][3]float64, len(target))
	for i, x := range target {
		source[i] = [3]float64{x[0] + trueT[0], x[1] + trueT[1], x[2] + trueT[2]}
	}

	var p Params
	p.SetDefault()
	p.SearchMethod = DIRECT7
	p.TransEpsilon = 0.01 // tighter step floor, so the recovered pose is sharp

	solver := NewSolver()
	solver.SetParams(p)
	solver.SetInputSource(source)
	solver.SetInputTarget(grid)

	// a guess within a fraction of a voxel of the truth, as an odometry
	// prior would supply
	guess := xform.Translate4(xform.Vec3{-1.9, 1.4, -0.25})
	solver.Align(&guess)

	// the recovered transform maps source back onto target: translation
	// should be the negation of the applied offset
	got := solver.FinalTransformation().Translation()
	chk.Float64(tst, "tx", 5e-2, got[0], -trueT[0])
	chk.Float64(tst, "ty", 5e-2, got[1], -trueT[1])
	chk.Float64(tst, "tz", 5e-2, got[2], -trueT[2])
}

func Test_solver03_emptySource(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver03: empty source cloud yields zero transformation probability")

	target := randomCloud(50, 3)
	grid := voxelmap.BuildGrid(target, 1.0)

	var p Params
	p.SetDefault()

	solver := NewSolver()
	solver.SetParams(p)
	solver.SetInputSource(nil)
	solver.SetInputTarget(grid)
	solver.Align(nil)

	chk.Float64(tst, "trans_probability", 1e-15, solver.TransformationProbability(), 0)
}

func Test_solver04_regularizedAlign(tst *testing.T) {

	//verbose()
	chk.PrintTitle("solver04: regularized align keeps the Hessian prior block symmetric")

	target := randomCloud(400, 5)
	grid := voxelmap.BuildGrid(target, 1.0)

	var p Params
	p.SetDefault()
	p.SearchMethod = DIRECT7
	p.MaxIterations = 3
	p.RegularizationScaleFactor = 0.01

	solver := NewSolver()
	solver.SetParams(p)
	solver.SetInputSource(target)
	solver.SetInputTarget(grid)
	prior := xform.Translate4(xform.Vec3{0.1, -0.1, 0})
	solver.SetRegularizationPose(&prior)
	solver.Align(nil)

	h := solver.FinalHessian()
	chk.Float64(tst, "H(0,1)==H(1,0)", 1e-9, h[0][1], h[1][0])
}
