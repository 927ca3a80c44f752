// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ndt implements the Normal Distributions Transform registration
// solver: the analytic-derivative score/gradient/Hessian assembly, the
// More-Thuente line search, the Newton outer loop, and the independent
// scoring queries, all operating against a caller-supplied voxel map
// (see package voxelmap).
package ndt

import (
	"math"
	"runtime"

	"github.com/cpmech/gosl/chk"
)

// SearchMethod selects how a transformed source point's voxel neighborhood
// is gathered from the target map during a derivatives pass.
type SearchMethod int

const (
	// KDTREE performs a radius search with radius equal to the voxel resolution.
	KDTREE SearchMethod = iota
	// DIRECT26 gathers the 3x3x3 block of voxels around the point.
	DIRECT26
	// DIRECT7 gathers the containing voxel plus its 6 axis neighbors.
	DIRECT7
	// DIRECT1 gathers only the voxel containing the point.
	DIRECT1
)

// Params holds every bounded, validated configuration option of a Solver.
// The zero value is not usable; call SetDefault then override as needed,
// or call Validate after setting fields by hand.
type Params struct {

	// convergence
	TransEpsilon  float64 `json:"trans_epsilon"`  // convergence threshold on step norm
	MaxIterations int     `json:"max_iterations"` // hard cap on Newton iterations

	// line search
	StepSize      float64 `json:"step_size"`       // initial trial step α₀
	UseLineSearch bool    `json:"use_line_search"` // if false, accept α=StepSize unconditionally

	// voxel map geometry
	Resolution   float64      `json:"resolution"`    // voxel edge length r; enters d2, d3
	SearchMethod SearchMethod `json:"search_method"` // neighborhood gathering rule

	// concurrency
	NumThreads int `json:"num_threads"` // parallelism width of ParallelDerivativesPass; may be 1

	// regularization
	RegularizationScaleFactor float64        `json:"regularization_scale_factor"` // λ; 0 disables the regularizer
	RegularizationPose        *[4][4]float64 `json:"-"`                           // optional prior pose T_prior

	// Gauss mixture
	OutlierRatio float64 `json:"outlier_ratio"` // ρ∈(0,1), fixed at 0.55 by default

	// derived (recomputed by Validate from OutlierRatio and Resolution)
	D1, D2, D3 float64 `json:"-"`
}

// SetDefault populates p with the stock configuration: trans_epsilon 0.1,
// step_size 0.1, resolution 1.0, max_iterations 35, search_method
// KDTREE, outlier_ratio 0.55, regularization disabled, line search off, and
// NumThreads from runtime.GOMAXPROCS(0).
func (p *Params) SetDefault() {
	p.TransEpsilon = 0.1
	p.StepSize = 0.1
	p.Resolution = 1.0
	p.MaxIterations = 35
	p.SearchMethod = KDTREE
	p.NumThreads = runtime.GOMAXPROCS(0)
	p.RegularizationScaleFactor = 0
	p.RegularizationPose = nil
	p.OutlierRatio = 0.55
	p.UseLineSearch = false
	p.Validate()
}

// Validate bounds-checks every option and recomputes the Gauss constants
// d1, d2, d3 from OutlierRatio and Resolution. It panics via chk.Panic on
// an invalid configuration: a misconfigured solver cannot usefully run, so
// there is no recoverable error path here; callers that need one should
// validate fields themselves before construction.
func (p *Params) Validate() {
	if p.OutlierRatio <= 0 || p.OutlierRatio >= 1 {
		chk.Panic("ndt: outlier_ratio must be in (0,1); got %v", p.OutlierRatio)
	}
	if p.Resolution <= 0 {
		chk.Panic("ndt: resolution must be > 0; got %v", p.Resolution)
	}
	if p.NumThreads < 1 {
		chk.Panic("ndt: num_threads must be >= 1; got %v", p.NumThreads)
	}
	if p.RegularizationScaleFactor < 0 {
		chk.Panic("ndt: regularization_scale_factor must be >= 0; got %v", p.RegularizationScaleFactor)
	}
	if p.MaxIterations < 1 {
		chk.Panic("ndt: max_iterations must be >= 1; got %v", p.MaxIterations)
	}
	if p.StepSize <= 0 {
		chk.Panic("ndt: step_size must be > 0; got %v", p.StepSize)
	}
	p.D1, p.D2, p.D3 = GaussConstants(p.OutlierRatio, p.Resolution)
}

// GaussConstants computes (d1, d2, d3) of the Gauss mixture fitted from
// the outlier ratio ρ and voxel resolution r:
//
//	c1 = 10·(1-ρ), c2 = ρ/r³
//	d3 = -ln(c2)
//	d1 = -ln(c1+c2) - d3
//	d2 = -2·ln((-ln(c1·e^(-½) + c2) - d3)/d1)
//
// For the stock ρ=0.55, r=1.0 configuration d1 is negative, so the
// per-pair score increment -d1·exp(-d2·m/2) is positive and a larger
// total score means a better fit.
func GaussConstants(rho, r float64) (d1, d2, d3 float64) {
	c1 := 10 * (1 - rho)
	c2 := rho / (r * r * r)
	d3 = -math.Log(c2)
	d1 = -math.Log(c1+c2) - d3
	d2 = -2 * math.Log((-math.Log(c1*math.Exp(-0.5)+c2)-d3)/d1)
	return
}

// RegularizationActive reports whether the longitudinal-distance pose prior
// should be applied this pass: a prior pose is set and λ>0.
func (p *Params) RegularizationActive() bool {
	return p.RegularizationPose != nil && p.RegularizationScaleFactor > 0
}
