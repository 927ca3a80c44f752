// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndt

// PointDerivative is the per-point Jacobian/Hessian of the transform map
// T(x,p), built from a source point x and an AngleDerivativeCache
// shared by every point in the current pass. J is 4x6: rows 0-2 are the
// spatial Jacobian, row 3 is always zero (the homogeneous padding row).
// H is the 6x6 block layout of second derivatives, but only the six
// distinct 3-vectors a,b,c,d,e,f (the (3,3),(3,4),(3,5),(4,4),(4,5),(5,5)
// blocks, the only ones that are nonzero) are stored; DerivativeAccumulator
// reads them directly instead of indexing a sparse 24x6 matrix.
type PointDerivative struct {
	J [4][6]float32

	HasHessian       bool
	A, B, C, D, E, F [3]float32
}

// NewPointDerivative builds J (and, if cache.HasHessian(), H) for source
// point x=(x,y,z) using the single-precision hot-path table of cache.
func NewPointDerivative(x [3]float64, cache *AngleDerivativeCache) *PointDerivative {
	xf := [3]float32{float32(x[0]), float32(x[1]), float32(x[2])}

	pd := &PointDerivative{}
	pd.J[0][0], pd.J[1][1], pd.J[2][2] = 1, 1, 1

	// x_j_ang = j_ang * x4
	dot := func(row [4]float32) float32 {
		return row[0]*xf[0] + row[1]*xf[1] + row[2]*xf[2]
	}
	xJAng := [8]float32{}
	for i := 0; i < 8; i++ {
		xJAng[i] = dot(cache.JAng[i])
	}
	pd.J[1][3] = xJAng[0]
	pd.J[2][3] = xJAng[1]
	pd.J[0][4] = xJAng[2]
	pd.J[1][4] = xJAng[3]
	pd.J[2][4] = xJAng[4]
	pd.J[0][5] = xJAng[5]
	pd.J[1][5] = xJAng[6]
	pd.J[2][5] = xJAng[7]

	if !cache.HasHessian() {
		return pd
	}
	pd.HasHessian = true

	xHAng := [15]float32{}
	for i := 0; i < 15; i++ {
		xHAng[i] = dot(cache.HAng[i])
	}
	pd.A = [3]float32{0, xHAng[0], xHAng[1]}
	pd.B = [3]float32{0, xHAng[2], xHAng[3]}
	pd.C = [3]float32{0, xHAng[4], xHAng[5]}
	pd.D = [3]float32{xHAng[6], xHAng[7], xHAng[8]}
	pd.E = [3]float32{xHAng[9], xHAng[10], xHAng[11]}
	pd.F = [3]float32{xHAng[12], xHAng[13], xHAng[14]}
	return pd
}

// PointDerivativeDouble is the double-precision counterpart of
// PointDerivative, for callers that want full float64 fidelity rather than
// the float32 hot-path tables. J is 3x6 (the homogeneous row is never needed in double
// precision since it is always zero); the Hessian blocks are the same six
// 3-vectors, in float64.
type PointDerivativeDouble struct {
	J [3][6]float64

	HasHessian       bool
	A, B, C, D, E, F [3]float64
}

// NewPointDerivativeDouble mirrors NewPointDerivative but reads the
// double-precision vectors of cache directly rather than the float32
// table.
func NewPointDerivativeDouble(x [3]float64, cache *AngleDerivativeCache) *PointDerivativeDouble {
	pd := &PointDerivativeDouble{}
	pd.J[0][0], pd.J[1][1], pd.J[2][2] = 1, 1, 1

	dot := func(v [3]float64) float64 {
		return x[0]*v[0] + x[1]*v[1] + x[2]*v[2]
	}
	pd.J[1][3] = dot([3]float64(cache.JA))
	pd.J[2][3] = dot([3]float64(cache.JB))
	pd.J[0][4] = dot([3]float64(cache.JC))
	pd.J[1][4] = dot([3]float64(cache.JD))
	pd.J[2][4] = dot([3]float64(cache.JE))
	pd.J[0][5] = dot([3]float64(cache.JF))
	pd.J[1][5] = dot([3]float64(cache.JG))
	pd.J[2][5] = dot([3]float64(cache.JH))

	if !cache.HasHessian() {
		return pd
	}
	pd.HasHessian = true

	pd.A = [3]float64{0, dot([3]float64(cache.HA2)), dot([3]float64(cache.HA3))}
	pd.B = [3]float64{0, dot([3]float64(cache.HB2)), dot([3]float64(cache.HB3))}
	pd.C = [3]float64{0, dot([3]float64(cache.HC2)), dot([3]float64(cache.HC3))}
	pd.D = [3]float64{dot([3]float64(cache.HD1)), dot([3]float64(cache.HD2)), dot([3]float64(cache.HD3))}
	pd.E = [3]float64{dot([3]float64(cache.HE1)), dot([3]float64(cache.HE2)), dot([3]float64(cache.HE3))}
	pd.F = [3]float64{dot([3]float64(cache.HF1)), dot([3]float64(cache.HF2)), dot([3]float64(cache.HF3))}
	return pd
}
