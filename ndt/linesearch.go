// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndt

import (
	"math"

	"github.com/cpmech/ndtreg/voxelmap"
)

// More-Thuente constants: mu is the sufficient-decrease constant, nu the
// curvature constant, mtMaxIters the hard cap on inner iterations.
const (
	mtMu       = 1e-4
	mtNu       = 0.9
	mtMaxIters = 10
)

// StepLengthResult is what StepLengthSearch hands back to the Newton driver:
// the accepted step length plus the (score, grad, Hessian) evaluated at it,
// so the outer loop never has to re-derive the pass it just paid for.
// Nearest is the nearest-voxel likelihood of the last derivatives pass, or
// NaN when no pass ran (the zero-step return), in which case the caller's
// previous value is still current.
type StepLengthResult struct {
	Alpha       float64
	Score       float64
	Grad        [6]float64
	Hess        [6][6]float64
	Nearest     float64
	Transformed [][3]float64
}

// psi is the auxiliary function ψ(α) = φ(α) - φ(0) - μ·α·φ'(0), used while
// the bracketing interval is still open.
func psi(alpha, phiAlpha, phi0, dphi0 float64) float64 {
	return phiAlpha - phi0 - mtMu*alpha*dphi0
}

func dpsi(dphiAlpha, dphi0 float64) float64 {
	return dphiAlpha - mtMu*dphi0
}

// updateInterval implements the Updating Algorithm of More & Thuente 1994:
// given the current bracket (al,fl,gl)-(au,fu,gu) and a new trial
// (at,ft,gt), it mutates the bracket endpoints in place and reports whether
// the interval has converged.
func updateInterval(al, fl, gl, au, fu, gu *float64, at, ft, gt float64) bool {
	switch {
	case ft > *fl:
		// U1
		*au, *fu, *gu = at, ft, gt
		return false
	case gt*(*al-at) > 0:
		// U2
		*al, *fl, *gl = at, ft, gt
		return false
	case gt*(*al-at) < 0:
		// U3
		*au, *fu, *gu = *al, *fl, *gl
		*al, *fl, *gl = at, ft, gt
		return false
	default:
		return true
	}
}

// cubicMinimizer computes the minimizer a_c of the cubic interpolating
// (al,fl,gl) and (at,ft,gt), eq. 2.4.52/2.4.56 of Sun & Yuan 2006.
func cubicMinimizer(al, fl, gl, at, ft, gt float64) float64 {
	z := 3*(ft-fl)/(at-al) - gt - gl
	w := math.Sqrt(z*z - gt*gl)
	return al + (at-al)*(w-gl-z)/(gt-gl+2*w)
}

// trialValueSelection implements the four-case trial value rule of
// More & Thuente 1994.
func trialValueSelection(al, fl, gl, au, fu, gu, at, ft, gt float64) float64 {
	switch {
	case ft > fl:
		// Case 1
		ac := cubicMinimizer(al, fl, gl, at, ft, gt)
		aq := al - 0.5*(al-at)*gl/(gl-(fl-ft)/(al-at))
		if math.Abs(ac-al) < math.Abs(aq-al) {
			return ac
		}
		return 0.5 * (aq + ac)
	case gt*gl < 0:
		// Case 2
		ac := cubicMinimizer(al, fl, gl, at, ft, gt)
		as := al - (al-at)/(gl-gt)*gl
		if math.Abs(ac-at) >= math.Abs(as-at) {
			return ac
		}
		return as
	case math.Abs(gt) <= math.Abs(gl):
		// Case 3
		ac := cubicMinimizer(al, fl, gl, at, ft, gt)
		as := al - (al-at)/(gl-gt)*gl
		var aNext float64
		if math.Abs(ac-at) < math.Abs(as-at) {
			aNext = ac
		} else {
			aNext = as
		}
		if at > al {
			return math.Min(at+0.66*(au-at), aNext)
		}
		return math.Max(at+0.66*(au-at), aNext)
	default:
		// Case 4: cubic minimizer over (au, at)
		return cubicMinimizer(au, fu, gu, at, ft, gt)
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StepLengthSearch finds the step length along dir from pose p. alphaInit is
// the initial trial (the Newton step norm), alphaMax/alphaMin the bounds the
// trial is always clipped into, and score/grad/hess the triple already
// computed at p. dir is mutated in place if it has to be flipped for
// non-descent; if the directional derivative is exactly zero the search
// returns alpha 0 with the caller's triple untouched. transformed is a
// reusable cloud buffer; target and params drive the derivatives pass each
// trial reinvokes.
//
// When params.UseLineSearch is false the clipped initial trial is evaluated
// once and accepted unconditionally. Otherwise the More-Thuente bracket
// refines it, working on the auxiliary ψ until the interval closes and on φ
// afterwards, for at most mtMaxIters inner evaluations.
func StepLengthSearch(source [][3]float64, p [6]float64, dir *[6]float64, alphaInit, alphaMax, alphaMin, score float64, grad [6]float64, hess [6][6]float64, target voxelmap.TargetVoxelMap, params *Params, transformed [][3]float64) StepLengthResult {
	phi0 := -score
	dphi0 := -dot6(grad, *dir)

	if dphi0 >= 0 {
		// not a descent direction
		if dphi0 == 0 {
			return StepLengthResult{Alpha: 0, Score: score, Grad: grad, Hess: hess, Nearest: math.NaN(), Transformed: transformed}
		}
		dphi0 = -dphi0
		for k := range dir {
			dir[k] = -dir[k]
		}
	}

	al, au := 0.0, 0.0
	fl := psi(al, phi0, phi0, dphi0)
	gl := dpsi(dphi0, dphi0)
	fu := psi(au, phi0, phi0, dphi0)
	gu := dpsi(dphi0, dphi0)

	// step_max == step_min skips the More-Thuente refinement entirely
	intervalConverged := (alphaMax - alphaMin) <= 0
	openInterval := true

	alphaT := clip(alphaInit, alphaMin, alphaMax)

	xt := addStep(p, *dir, alphaT)
	passRes, transformed := ComputeDerivatives(source, xt, target, params, true, transformed)

	if !params.UseLineSearch {
		return StepLengthResult{Alpha: alphaT, Score: passRes.Score, Grad: passRes.Grad, Hess: passRes.Hess, Nearest: passRes.NearestVoxelLikelihood, Transformed: transformed}
	}

	phiT := -passRes.Score
	dphiT := -dot6(passRes.Grad, *dir)
	psiT := psi(alphaT, phiT, phi0, dphi0)
	dpsiT := dpsi(dphiT, dphi0)

	iters := 0
	lastHess := passRes.Hess
	for !intervalConverged && iters < mtMaxIters && !(psiT <= 0 && dphiT <= -mtNu*dphi0) {
		if openInterval {
			alphaT = trialValueSelection(al, fl, gl, au, fu, gu, alphaT, psiT, dpsiT)
		} else {
			alphaT = trialValueSelection(al, fl, gl, au, fu, gu, alphaT, phiT, dphiT)
		}
		alphaT = clip(alphaT, alphaMin, alphaMax)

		xt = addStep(p, *dir, alphaT)
		passRes, transformed = ComputeDerivatives(source, xt, target, params, false, transformed)

		phiT = -passRes.Score
		dphiT = -dot6(passRes.Grad, *dir)
		psiT = psi(alphaT, phiT, phi0, dphi0)
		dpsiT = dpsi(dphiT, dphi0)

		// once ψ(α_t)≤0 and ψ'(α_t)≥0 the interval is closed: rewrite the
		// stored endpoints from ψ-form back to φ-form
		if openInterval && psiT <= 0 && dpsiT >= 0 {
			openInterval = false
			fl = fl + phi0 - mtMu*dphi0*al
			gl = gl + mtMu*dphi0
			fu = fu + phi0 - mtMu*dphi0*au
			gu = gu + mtMu*dphi0
		}

		if openInterval {
			intervalConverged = updateInterval(&al, &fl, &gl, &au, &fu, &gu, alphaT, psiT, dpsiT)
		} else {
			intervalConverged = updateInterval(&al, &fl, &gl, &au, &fu, &gu, alphaT, phiT, dphiT)
		}
		iters++
	}

	if iters > 0 {
		// the inner loop only needed gradients; recompute the full triple at
		// the accepted alpha so the Newton step gets a fresh Hessian that is
		// consistent with the returned score and gradient
		hessRes, t2 := ComputeDerivatives(source, xt, target, params, true, transformed)
		lastHess = hessRes.Hess
		transformed = t2
		passRes = hessRes
	}

	return StepLengthResult{Alpha: alphaT, Score: passRes.Score, Grad: passRes.Grad, Hess: lastHess, Nearest: passRes.NearestVoxelLikelihood, Transformed: transformed}
}

func addStep(p, dir [6]float64, alpha float64) [6]float64 {
	var out [6]float64
	for k := 0; k < 6; k++ {
		out[k] = p[k] + dir[k]*alpha
	}
	return out
}

func dot6(a, b [6]float64) float64 {
	var s float64
	for k := 0; k < 6; k++ {
		s += a[k] * b[k]
	}
	return s
}
