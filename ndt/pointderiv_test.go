// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndt

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/ndtreg/xform"
)

func Test_pointderiv01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("pointderiv01: Jacobian columns at the identity pose")

	cache := NewAngleDerivativeCache([6]float64{}, true)
	pd := NewPointDerivativeDouble([3]float64{1, 2, 3}, cache)

	// translation block is the identity
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := 0.0
			if r == c {
				want = 1.0
			}
			chk.Float64(tst, "J translation", 1e-15, pd.J[r][c], want)
		}
	}

	// rotation generators applied to x=(1,2,3):
	//   d/drx -> (0,-z,y), d/dry -> (z,0,-x), d/drz -> (-y,x,0)
	chk.Array(tst, "dT/drx", 1e-15, []float64{pd.J[0][3], pd.J[1][3], pd.J[2][3]}, []float64{0, -3, 2})
	chk.Array(tst, "dT/dry", 1e-15, []float64{pd.J[0][4], pd.J[1][4], pd.J[2][4]}, []float64{3, 0, -1})
	chk.Array(tst, "dT/drz", 1e-15, []float64{pd.J[0][5], pd.J[1][5], pd.J[2][5]}, []float64{-2, 1, 0})
}

func Test_pointderiv02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("pointderiv02: Hessian blocks at the identity pose")

	cache := NewAngleDerivativeCache([6]float64{}, true)
	pd := NewPointDerivativeDouble([3]float64{1, 2, 3}, cache)

	chk.Array(tst, "a", 1e-15, pd.A[:], []float64{0, -2, -3})
	chk.Array(tst, "b", 1e-15, pd.B[:], []float64{0, 1, 0})
	chk.Array(tst, "c", 1e-15, pd.C[:], []float64{0, 0, 1})
	chk.Array(tst, "d", 1e-15, pd.D[:], []float64{-1, 0, -3})
	chk.Array(tst, "e", 1e-15, pd.E[:], []float64{0, 0, 2})
	chk.Array(tst, "f", 1e-15, pd.F[:], []float64{-1, -2, 0})
}

func Test_pointderiv03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("pointderiv03: float32 path mirrors the double-precision path")

	p := [6]float64{0.5, -0.25, 1.0, 0.3, -0.2, 0.45}
	cache := NewAngleDerivativeCache(p, true)
	x := [3]float64{1.5, -0.7, 2.2}

	pf := NewPointDerivative(x, cache)
	pdbl := NewPointDerivativeDouble(x, cache)

	for r := 0; r < 3; r++ {
		for c := 0; c < 6; c++ {
			chk.Float64(tst, "J", 1e-5, float64(pf.J[r][c]), pdbl.J[r][c])
		}
	}
	for i := 0; i < 3; i++ {
		chk.Float64(tst, "a", 1e-5, float64(pf.A[i]), pdbl.A[i])
		chk.Float64(tst, "d", 1e-5, float64(pf.D[i]), pdbl.D[i])
		chk.Float64(tst, "f", 1e-5, float64(pf.F[i]), pdbl.F[i])
	}

	// homogeneous padding row stays zero
	for c := 0; c < 6; c++ {
		chk.Float64(tst, "J padding row", 1e-15, float64(pf.J[3][c]), 0)
	}
}

func Test_pointderiv04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("pointderiv04: Jacobian against finite differences of the transform")

	p := [6]float64{0.1, 0.2, -0.3, 0.3, -0.2, 0.45}
	x := [3]float64{1.2, -0.8, 0.5}

	cache := NewAngleDerivativeCache(p, false)
	pd := NewPointDerivativeDouble(x, cache)

	const h = 1e-6
	for k := 0; k < 6; k++ {
		pp, pm := p, p
		pp[k] += h
		pm[k] -= h
		fp := xform.FromPose(pp).Apply(xform.Vec3(x))
		fm := xform.FromPose(pm).Apply(xform.Vec3(x))
		for r := 0; r < 3; r++ {
			fd := (fp[r] - fm[r]) / (2 * h)
			chk.Float64(tst, "dT/dp", 1e-6, pd.J[r][k], fd)
		}
	}
}
