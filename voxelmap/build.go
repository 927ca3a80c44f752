// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package voxelmap

// BuildGrid fits one Gaussian per occupied cell of edge length resolution
// over points, and returns a ready-to-query Grid. This is a reference
// builder for tests and small targets; production voxel-grid construction
// (covariance regularization, KD-tree indexing, per-voxel minimum point
// counts) is a target-map concern, not the solver's.
func BuildGrid(points [][3]float64, resolution float64) *Grid {
	g := NewGrid(resolution)
	sums := make(map[cellKey][3]float64)
	sumsq := make(map[cellKey][3][3]float64)
	counts := make(map[cellKey]int)
	for _, p := range points {
		key := cellOf(p, resolution)
		s := sums[key]
		for d := 0; d < 3; d++ {
			s[d] += p[d]
		}
		sums[key] = s
		sq := sumsq[key]
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				sq[a][b] += p[a] * p[b]
			}
		}
		sumsq[key] = sq
		counts[key]++
	}
	for key, n := range counts {
		if n < 3 {
			continue // not enough points to fit a covariance
		}
		fn := float64(n)
		var mean [3]float64
		for d := 0; d < 3; d++ {
			mean[d] = sums[key][d] / fn
		}
		var cov [3][3]float64
		sq := sumsq[key]
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				cov[a][b] = sq[a][b]/fn - mean[a]*mean[b]
			}
		}
		inv, ok := invertSym3(cov)
		if !ok {
			continue // degenerate (e.g. collinear/coplanar) voxel; skip
		}
		g.AddVoxel(mean, inv)
	}
	return g
}

// invertSym3 inverts a 3x3 matrix via the adjugate/determinant formula,
// returning ok=false if it is singular to working precision.
func invertSym3(m [3][3]float64) (inv [3][3]float64, ok bool) {
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	if det == 0 {
		return inv, false
	}
	invDet := 1.0 / det
	inv[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) * invDet
	inv[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * invDet
	inv[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * invDet
	inv[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) * invDet
	inv[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * invDet
	inv[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * invDet
	inv[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) * invDet
	inv[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * invDet
	inv[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * invDet
	return inv, true
}
