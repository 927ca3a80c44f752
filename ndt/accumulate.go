// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndt

import "math"

// HessianBlocks names the six distinct 3-vector blocks of a PointDerivative's
// Hessian: block (3,3)=A, (3,4)=(4,3)=B, (3,5)=(5,3)=C,
// (4,4)=D, (4,5)=(5,4)=E, (5,5)=F. block(i,j) returns the zero vector for
// any (i,j) pair outside {3,4,5}x{3,4,5}.
type HessianBlocks struct {
	A, B, C, D, E, F [3]float64
}

func (h *HessianBlocks) block(i, j int) [3]float64 {
	switch {
	case i == 3 && j == 3:
		return h.A
	case (i == 3 && j == 4) || (i == 4 && j == 3):
		return h.B
	case (i == 3 && j == 5) || (i == 5 && j == 3):
		return h.C
	case i == 4 && j == 4:
		return h.D
	case (i == 4 && j == 5) || (i == 5 && j == 4):
		return h.E
	case i == 5 && j == 5:
		return h.F
	default:
		return [3]float64{}
	}
}

// AccumResult is the contribution of one (point, voxel) pair to the running
// score/gradient/Hessian totals of a derivatives pass.
type AccumResult struct {
	ScoreInc float64
	Grad     [6]float64
	Hess     [6][6]float64
	Skipped  bool // true if the Gauss weight was out of range or NaN
}

// Accumulate folds one (point, voxel) pair into the running
// score/gradient/Hessian: xTrans is the transformed source point, mean and
// invCov are the voxel's Gaussian parameters, j is the point's 3x6 spatial
// Jacobian (rows 0-2 of PointDerivative.J; row 3 is always zero and
// carries no information here), and hess is the point's Hessian blocks,
// nil when the pass does not need second derivatives. d1, d2 are the Gauss
// constants of the active Params.
func Accumulate(xTrans, mean [3]float64, invCov [3][3]float64, j [3][6]float64, hess *HessianBlocks, d1, d2 float64) AccumResult {
	var q [3]float64
	for i := 0; i < 3; i++ {
		q[i] = xTrans[i] - mean[i]
	}

	// Σ⁻¹·q
	var cinvQ [3]float64
	for i := 0; i < 3; i++ {
		cinvQ[i] = invCov[i][0]*q[0] + invCov[i][1]*q[1] + invCov[i][2]*q[2]
	}
	m := q[0]*cinvQ[0] + q[1]*cinvQ[1] + q[2]*cinvQ[2]

	w0 := math.Exp(-d2 * m / 2)
	scoreInc := -d1 * w0

	wScaled := d2 * w0
	if math.IsNaN(wScaled) || wScaled < 0 || wScaled > 1 {
		return AccumResult{Skipped: true}
	}
	w := d1 * wScaled

	// Σ⁻¹·J, a 3x6 matrix; column k is Σ⁻¹ applied to J's column k.
	var cinvJ [3][6]float64
	for k := 0; k < 6; k++ {
		var col [3]float64
		for r := 0; r < 3; r++ {
			col[r] = j[r][k]
		}
		for i := 0; i < 3; i++ {
			cinvJ[i][k] = invCov[i][0]*col[0] + invCov[i][1]*col[1] + invCov[i][2]*col[2]
		}
	}

	// α_k = qᵀ·Σ⁻¹·J_k
	var alpha [6]float64
	for k := 0; k < 6; k++ {
		alpha[k] = q[0]*cinvJ[0][k] + q[1]*cinvJ[1][k] + q[2]*cinvJ[2][k]
	}

	res := AccumResult{ScoreInc: scoreInc}
	for k := 0; k < 6; k++ {
		res.Grad[k] = w * alpha[k]
	}

	if hess == nil {
		return res
	}

	// H(i,j) = w·(-d2·α_i·α_j + qᵀ·Σ⁻¹·H_ij + J_jᵀ·Σ⁻¹·J_i), summed over all
	// 36 entries without assuming symmetry.
	for i := 0; i < 6; i++ {
		for jj := 0; jj < 6; jj++ {
			hij := hess.block(i, jj)
			qCinvHij := cinvQ[0]*hij[0] + cinvQ[1]*hij[1] + cinvQ[2]*hij[2]
			var jCinvJ float64
			for k := 0; k < 3; k++ {
				jCinvJ += j[k][jj] * cinvJ[k][i]
			}
			res.Hess[i][jj] = w * (-d2*alpha[i]*alpha[jj] + qCinvHij + jCinvJ)
		}
	}

	return res
}
