// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cpmech/ndtreg/voxelmap"
	"github.com/cpmech/ndtreg/xform"
)

// Solver is the registration engine's outer Newton loop: each iteration it
// computes score/gradient/Hessian over the source cloud, solves for a
// Newton direction via SVD, steps along it via StepLengthSearch, and tests
// convergence on the accepted step length.
//
// One Solver instance is scoped to a single Align call's worth of mutable
// state (trajectory, iteration counter, last score/Hessian); the target
// voxel map and params may be reused across many Align calls.
type Solver struct {
	source [][3]float64
	target voxelmap.TargetVoxelMap
	params Params

	regPose *xform.Mat4

	finalTransform xform.Mat4
	prevTransform  xform.Mat4
	trajectory     []xform.Mat4
	iterations     int
	converged      bool

	transProbability  float64
	nearestLikelihood float64
	finalHessian      [6][6]float64
}

// NewSolver builds a Solver with default Params; call SetParams to
// override before Align.
func NewSolver() *Solver {
	s := &Solver{}
	s.params.SetDefault()
	return s
}

// SetInputSource installs the cloud to be aligned.
func (s *Solver) SetInputSource(cloud [][3]float64) { s.source = cloud }

// SetInputTarget installs the voxel map the source is aligned against.
func (s *Solver) SetInputTarget(target voxelmap.TargetVoxelMap) { s.target = target }

// SetParams validates and installs p, recomputing the Gauss constants.
func (s *Solver) SetParams(p Params) {
	p.Validate()
	s.params = p
}

// Params returns the solver's current configuration.
func (s *Solver) Params() Params { return s.params }

// SetRegularizationPose installs (or clears, with nil) the prior pose that
// enables the longitudinal-distance regularizer once
// RegularizationScaleFactor>0.
func (s *Solver) SetRegularizationPose(prior *xform.Mat4) { s.regPose = prior }

// Align runs the Newton outer loop from guess, returning the transformed
// source cloud. guess==nil is treated as identity.
func (s *Solver) Align(guess *xform.Mat4) (output [][3]float64) {
	s.iterations = 0
	s.converged = false
	s.trajectory = s.trajectory[:0]

	g := xform.Identity4()
	if guess != nil {
		g = *guess
	}

	if s.regPose != nil {
		t := s.regPose.Translation()
		prior := [4][4]float64{}
		prior[0][3], prior[1][3] = t[0], t[1]
		s.params.RegularizationPose = &prior
	} else {
		s.params.RegularizationPose = nil
	}

	s.finalTransform = xform.Identity4()
	output = make([][3]float64, len(s.source))
	for i, x := range s.source {
		output[i] = [3]float64(x)
	}
	if !g.IsIdentity(0) {
		s.finalTransform = g
		for i, x := range s.source {
			output[i] = [3]float64(g.Apply(xform.Vec3(x)))
		}
	}

	s.trajectory = append(s.trajectory, s.finalTransform)

	p := s.finalTransform.Pose()

	passRes, transformed := ComputeDerivatives(s.source, p, s.target, &s.params, true, output)
	output = transformed
	score := passRes.Score
	grad := passRes.Grad
	hess := passRes.Hess
	s.nearestLikelihood = passRes.NearestVoxelLikelihood

	for !s.converged {
		s.prevTransform = s.finalTransform

		deltaP, ok := solveSVD(hess, grad)
		if !ok {
			s.converged = false
			s.finalHessian = hess
			s.setTerminalProbability(score)
			return output
		}

		deltaPNorm := vecNorm6(deltaP)
		if deltaPNorm == 0 || math.IsNaN(deltaPNorm) {
			// a real zero step means the pose is stationary; a NaN step means
			// the solve degenerated and the result cannot be trusted
			s.converged = !math.IsNaN(deltaPNorm)
			s.finalHessian = hess
			s.setTerminalProbability(score)
			return output
		}

		dir := scale6(deltaP, 1/deltaPNorm)

		stepRes := StepLengthSearch(s.source, p, &dir, deltaPNorm, s.params.StepSize, s.params.TransEpsilon/2, score, grad, hess, s.target, &s.params, output)
		output = stepRes.Transformed
		alpha := stepRes.Alpha
		step := scale6(dir, alpha)

		// the trajectory records the composed (cumulative) transform at each
		// iteration boundary, recomposed from the updated pose vector
		p = addStep(p, step, 1)
		s.finalTransform = xform.FromPose(p)
		s.trajectory = append(s.trajectory, s.finalTransform)

		score, grad, hess = stepRes.Score, stepRes.Grad, stepRes.Hess
		if !math.IsNaN(stepRes.Nearest) {
			s.nearestLikelihood = stepRes.Nearest
		}

		if s.iterations > s.params.MaxIterations || (s.iterations > 0 && math.Abs(alpha) < s.params.TransEpsilon) {
			s.converged = true
		}
		s.iterations++
	}

	s.finalHessian = hess
	s.setTerminalProbability(score)
	return output
}

func (s *Solver) setTerminalProbability(score float64) {
	if len(s.source) == 0 {
		s.transProbability = 0
		return
	}
	s.transProbability = score / float64(len(s.source))
}

// FinalTransformation returns the composed transform of the last Align call.
func (s *Solver) FinalTransformation() xform.Mat4 { return s.finalTransform }

// PreviousTransformation returns the transform held before the last Newton
// step of the last Align call.
func (s *Solver) PreviousTransformation() xform.Mat4 { return s.prevTransform }

// TransformationArray returns the per-iteration trajectory log, including
// the initial guess: one entry per Newton iteration plus the guess itself.
func (s *Solver) TransformationArray() []xform.Mat4 { return s.trajectory }

// TransformationProbability returns score/|source| from the last Align call.
func (s *Solver) TransformationProbability() float64 { return s.transProbability }

// NearestVoxelTransformationLikelihood returns the alternate fit metric
// computed during the last derivatives pass of Align: the per-point best
// voxel scores averaged over the points that found any neighbor at all.
func (s *Solver) NearestVoxelTransformationLikelihood() float64 { return s.nearestLikelihood }

// FinalHessian returns the 6x6 Hessian evaluated at the converged pose.
func (s *Solver) FinalHessian() [6][6]float64 { return s.finalHessian }

// HasConverged reports whether the last Align call converged.
func (s *Solver) HasConverged() bool { return s.converged }

// Iterations returns the number of Newton iterations the last Align call ran.
func (s *Solver) Iterations() int { return s.iterations }

// solveSVD solves H*deltaP = -grad via SVD, robust to a rank-deficient
// Hessian. ok is false only if H has no
// usable decomposition (never observed in practice for well-posed H, but
// checked per gonum's SVD contract).
func solveSVD(h [6][6]float64, grad [6]float64) (deltaP [6]float64, ok bool) {
	hd := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			hd.Set(i, j, h[i][j])
		}
	}
	var svd mat.SVD
	if !svd.Factorize(hd, mat.SVDFull) {
		return deltaP, false
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	negGrad := mat.NewVecDense(6, nil)
	for i := 0; i < 6; i++ {
		negGrad.SetVec(i, -grad[i])
	}

	// delta = V * Sigma^+ * U^T * negGrad
	var utg mat.VecDense
	utg.MulVec(u.T(), negGrad)
	sInvUtg := mat.NewVecDense(6, nil)
	const tol = 1e-12
	for i := 0; i < 6; i++ {
		sv := values[i]
		if sv > tol {
			sInvUtg.SetVec(i, utg.AtVec(i)/sv)
		}
	}
	var result mat.VecDense
	result.MulVec(&v, sInvUtg)
	for i := 0; i < 6; i++ {
		deltaP[i] = result.AtVec(i)
	}
	return deltaP, true
}

func vecNorm6(v [6]float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func scale6(v [6]float64, a float64) [6]float64 {
	var out [6]float64
	for i := range v {
		out[i] = v[i] * a
	}
	return out
}
