// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package voxelmap implements the target-side contract that the registration
// solver consumes: a read-only grid of Gaussian voxels over a target point
// cloud, queried by neighborhood. Construction of the grid (covariances,
// spatial indexing) is an external concern; this package supplies the
// TargetVoxelMap contract plus reference implementations good enough to
// exercise and test the solver end-to-end.
package voxelmap

// Voxel holds the Gaussian fitted to the points inside one grid cell: mean
// μ∈ℝ³ and inverse covariance Σ⁻¹∈ℝ³ˣ³, plus the integer leaf index that
// identifies it inside the owning map.
type Voxel struct {
	Leaf int           // leaf index, unique within the owning map
	Mean [3]float64    // μ
	Inv  [3][3]float64 // Σ⁻¹
}

// GetMean returns the voxel's mean μ.
func (v *Voxel) GetMean() [3]float64 { return v.Mean }

// GetInverseCov returns the voxel's inverse covariance Σ⁻¹.
func (v *Voxel) GetInverseCov() [3][3]float64 { return v.Inv }

// TargetVoxelMap is the read-only contract the solver consumes. It is built
// once from a target cloud and reused across many alignments; all methods
// must be safe for concurrent readers (the solver may query it from many
// goroutines in the same derivatives pass).
type TargetVoxelMap interface {
	// RadiusSearch returns every voxel whose mean lies within r of point,
	// along with the corresponding squared distances.
	RadiusSearch(point [3]float64, r float64) (voxels []*Voxel, dists []float64)

	// NeighborhoodAtPoint returns the voxel containing point plus its
	// 3x3x3 block of neighbors (up to 27, fewer at the grid's edges).
	NeighborhoodAtPoint(point [3]float64) []*Voxel

	// NeighborhoodAtPoint7 returns the voxel containing point plus its 6
	// axis-aligned neighbors (up to 7).
	NeighborhoodAtPoint7(point [3]float64) []*Voxel

	// NeighborhoodAtPoint1 returns only the voxel containing point, if any.
	NeighborhoodAtPoint1(point [3]float64) []*Voxel

	// LeafIndex returns the leaf index of the voxel whose mean is mean,
	// or -1 if the map holds no such voxel. Used by the scoring queries
	// to key the per-voxel score map.
	LeafIndex(mean [3]float64) int
}
