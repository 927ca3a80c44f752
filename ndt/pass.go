// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndt

import (
	"sync"

	"github.com/cpmech/ndtreg/voxelmap"
	"github.com/cpmech/ndtreg/xform"
)

// PassResult is the output of one ParallelDerivativesPass: the total score,
// gradient, and (optionally) Hessian over every source point, plus the two
// bookkeeping scalars the Newton driver and scoring queries need.
type PassResult struct {
	Score                  float64
	Grad                   [6]float64
	Hess                   [6][6]float64
	NeighborhoodCount      int     // total voxels touched this pass, feeds the regularizer
	NearestVoxelLikelihood float64 // best per-point score_inc summed over points with >=1 neighbor, averaged
}

// pointJob is one source-point index dispatched to a worker.
type pointJob struct{ idx int }

// perPointResult is what a worker computes for one source point; reduction
// happens afterward, strictly in index order.
type perPointResult struct {
	score       float64
	best        float64 // max score_inc over this point's neighborhood ("nearest")
	hasNeighbor bool
	nbrCount    int
	grad        [6]float64
	hess        [6][6]float64
}

// ComputeDerivatives runs one derivatives pass: given the current pose p,
// the untransformed source cloud, and the target voxel map, it transforms
// the cloud, fans the per-point derivative assembly out
// across params.NumThreads workers, and reduces the results sequentially in
// source-point order so the totals are bit-identical regardless of thread
// count or scheduling. transformed is filled with T(p) applied to every
// source point and may be reused by the caller (e.g. the line search) on
// the next call.
func ComputeDerivatives(source [][3]float64, p [6]float64, target voxelmap.TargetVoxelMap, params *Params, computeHessian bool, transformed [][3]float64) (PassResult, [][3]float64) {
	res, transformed := computeDerivativesNoReg(source, p, target, params, computeHessian, transformed)

	// the regularizer is added once, after the parallel reduction, since it
	// needs the total neighborhood count of this pass
	if params.RegularizationActive() {
		priorT := params.RegularizationPose
		reg := ApplyRegularizer(p, priorT[0][3], priorT[1][3], params.RegularizationScaleFactor, res.NeighborhoodCount)
		res.Score += reg.ScoreDelta
		for k := 0; k < 6; k++ {
			res.Grad[k] += reg.GradDelta[k]
		}
		for a := 0; a < 6; a++ {
			for b := 0; b < 6; b++ {
				res.Hess[a][b] += reg.HessDelta[a][b]
			}
		}
	}

	return res, transformed
}

func computeDerivativesNoReg(source [][3]float64, p [6]float64, target voxelmap.TargetVoxelMap, params *Params, computeHessian bool, transformed [][3]float64) (PassResult, [][3]float64) {
	n := len(source)
	if cap(transformed) < n {
		transformed = make([][3]float64, n)
	}
	transformed = transformed[:n]

	t := xform.FromPose(p)
	for i, x := range source {
		transformed[i] = [3]float64(t.Apply(xform.Vec3(x)))
	}

	cache := NewAngleDerivativeCache(p, computeHessian)

	results := make([]perPointResult, n)

	nWorkers := params.NumThreads
	if nWorkers > n {
		nWorkers = n
	}
	if nWorkers < 1 {
		nWorkers = 1
	}

	jobs := make(chan pointJob, nWorkers)
	var wg sync.WaitGroup
	for w := 0; w < nWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results[job.idx] = computeOnePoint(source[job.idx], transformed[job.idx], target, params, cache, computeHessian)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- pointJob{idx: i}
	}
	close(jobs)
	wg.Wait()

	// Deterministic reduction: sequential, in source-point order. This is
	// what makes score/grad/Hessian invariant to thread count, not the
	// parallel phase above.
	var res PassResult
	var likelihoodSum float64
	var likelihoodCount int
	for i := 0; i < n; i++ {
		r := &results[i]
		res.Score += r.score
		for k := 0; k < 6; k++ {
			res.Grad[k] += r.grad[k]
		}
		for a := 0; a < 6; a++ {
			for b := 0; b < 6; b++ {
				res.Hess[a][b] += r.hess[a][b]
			}
		}
		res.NeighborhoodCount += r.nbrCount
		if r.hasNeighbor {
			likelihoodSum += r.best
			likelihoodCount++
		}
	}
	if likelihoodCount > 0 {
		res.NearestVoxelLikelihood = likelihoodSum / float64(likelihoodCount)
	}

	return res, transformed
}

// computeOnePoint gathers x's neighborhood per params.SearchMethod and
// accumulates its contribution; it never mutates shared state, so it is
// safe to call concurrently for distinct point indices.
func computeOnePoint(x, xTrans [3]float64, target voxelmap.TargetVoxelMap, params *Params, cache *AngleDerivativeCache, computeHessian bool) perPointResult {
	voxels := neighborhood(target, xTrans, params)

	var r perPointResult
	if len(voxels) == 0 {
		return r
	}

	// the point derivative depends only on x and the shared angle cache, so
	// it is built once and reused for every voxel in the neighborhood
	pd := NewPointDerivative(x, cache)
	j := float32JTo64(pd.J)
	var hb *HessianBlocks
	if computeHessian && pd.HasHessian {
		hb = &HessianBlocks{
			A: f32to64(pd.A), B: f32to64(pd.B), C: f32to64(pd.C),
			D: f32to64(pd.D), E: f32to64(pd.E), F: f32to64(pd.F),
		}
	}

	for _, v := range voxels {
		r.nbrCount++
		r.hasNeighbor = true

		acc := Accumulate(xTrans, v.Mean, v.Inv, j, hb, params.D1, params.D2)
		if acc.Skipped {
			continue
		}
		r.score += acc.ScoreInc
		if acc.ScoreInc > r.best {
			r.best = acc.ScoreInc
		}
		for k := 0; k < 6; k++ {
			r.grad[k] += acc.Grad[k]
		}
		if computeHessian {
			for a := 0; a < 6; a++ {
				for b := 0; b < 6; b++ {
					r.hess[a][b] += acc.Hess[a][b]
				}
			}
		}
	}
	return r
}

// neighborhood dispatches the voxel query by params.SearchMethod. The
// dispatch lives here, once per point, rather than being re-checked deeper
// in the inner accumulation loop.
func neighborhood(target voxelmap.TargetVoxelMap, xTrans [3]float64, params *Params) []*voxelmap.Voxel {
	switch params.SearchMethod {
	case KDTREE:
		voxels, _ := target.RadiusSearch(xTrans, params.Resolution)
		return voxels
	case DIRECT26:
		return target.NeighborhoodAtPoint(xTrans)
	case DIRECT7:
		return target.NeighborhoodAtPoint7(xTrans)
	case DIRECT1:
		return target.NeighborhoodAtPoint1(xTrans)
	default:
		return target.NeighborhoodAtPoint7(xTrans)
	}
}

func float32JTo64(j [4][6]float32) [3][6]float64 {
	var out [3][6]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 6; c++ {
			out[r][c] = float64(j[r][c])
		}
	}
	return out
}

func f32to64(v [3]float32) [3]float64 {
	return [3]float64{float64(v[0]), float64(v[1]), float64(v[2])}
}
