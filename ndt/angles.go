// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndt

import (
	"math"

	"github.com/cpmech/ndtreg/xform"
)

// angleZeroTol is the near-zero-angle substitution threshold: below this
// magnitude cos/sin are replaced by their exact limiting values (1, 0) to
// avoid catastrophic cancellation near the identity rotation. It is a
// numerical-stability substitution, not a resolution limit; gradients at
// exactly zero remain well-defined.
const angleZeroTol = 1e-4

// AngleDerivativeCache precomputes, once per derivatives pass, the trig
// combinations that every source point's PointDerivative reuses. The
// double-precision vectors (JA..JH, HA2..HF3) are the source of truth,
// read directly by NewPointDerivativeDouble; the single-precision
// tables (JAng, HAng) are derived from them at construction so the two
// precisions cannot drift apart.
type AngleDerivativeCache struct {
	JA, JB, JC, JD, JE, JF, JG, JH xform.Vec3

	HA2, HA3      xform.Vec3
	HB2, HB3      xform.Vec3
	HC2, HC3      xform.Vec3
	HD1, HD2, HD3 xform.Vec3
	HE1, HE2, HE3 xform.Vec3
	HF1, HF2, HF3 xform.Vec3

	// JAng is the 8x4 single-precision table used by the hot-path
	// PointDerivative; column 3 is always zero padding.
	JAng [8][4]float32

	// HAng is the 15x4 single-precision table, only filled when the pass
	// computes Hessians.
	HAng [15][4]float32

	hasHessian bool
}

// NewAngleDerivativeCache builds the cache for pose p=(tx,ty,tz,rx,ry,rz).
// The Hessian vectors and table are left at their zero value unless
// computeHessian is true.
func NewAngleDerivativeCache(p [6]float64, computeHessian bool) *AngleDerivativeCache {
	cx, sx := angleCosSin(p[3])
	cy, sy := angleCosSin(p[4])
	cz, sz := angleCosSin(p[5])

	c := &AngleDerivativeCache{hasHessian: computeHessian}

	c.JA = xform.Vec3{-sx*sz + cx*sy*cz, -sx*cz - cx*sy*sz, -cx * cy}
	c.JB = xform.Vec3{cx*sz + sx*sy*cz, cx*cz - sx*sy*sz, -sx * cy}
	c.JC = xform.Vec3{-sy * cz, sy * sz, cy}
	c.JD = xform.Vec3{sx * cy * cz, -sx * cy * sz, sx * sy}
	c.JE = xform.Vec3{-cx * cy * cz, cx * cy * sz, -cx * sy}
	c.JF = xform.Vec3{-cy * sz, -cy * cz, 0}
	c.JG = xform.Vec3{cx*cz - sx*sy*sz, -cx*sz - sx*sy*cz, 0}
	c.JH = xform.Vec3{sx*cz + cx*sy*sz, cx*sy*cz - sx*sz, 0}

	rows := [8]xform.Vec3{c.JA, c.JB, c.JC, c.JD, c.JE, c.JF, c.JG, c.JH}
	for i, v := range rows {
		c.JAng[i] = [4]float32{float32(v[0]), float32(v[1]), float32(v[2]), 0}
	}

	if !computeHessian {
		return c
	}

	c.HA2 = xform.Vec3{-cx*sz - sx*sy*cz, -cx*cz + sx*sy*sz, sx * cy}
	c.HA3 = xform.Vec3{-sx*sz + cx*sy*cz, -cx*sy*sz - sx*cz, -cx * cy}

	c.HB2 = xform.Vec3{cx * cy * cz, -cx * cy * sz, cx * sy}
	c.HB3 = xform.Vec3{sx * cy * cz, -sx * cy * sz, sx * sy}

	c.HC2 = xform.Vec3{-sx*cz - cx*sy*sz, sx*sz - cx*sy*cz, 0}
	c.HC3 = xform.Vec3{cx*cz - sx*sy*sz, -sx*sy*cz - cx*sz, 0}

	c.HD1 = xform.Vec3{-cy * cz, cy * sz, sy}
	c.HD2 = xform.Vec3{-sx * sy * cz, sx * sy * sz, sx * cy}
	c.HD3 = xform.Vec3{cx * sy * cz, -cx * sy * sz, -cx * cy}

	c.HE1 = xform.Vec3{sy * sz, sy * cz, 0}
	c.HE2 = xform.Vec3{-sx * cy * sz, -sx * cy * cz, 0}
	c.HE3 = xform.Vec3{cx * cy * sz, cx * cy * cz, 0}

	c.HF1 = xform.Vec3{-cy * cz, cy * sz, 0}
	c.HF2 = xform.Vec3{-cx*sz - sx*sy*cz, -cx*cz + sx*sy*sz, 0}
	c.HF3 = xform.Vec3{-sx*sz + cx*sy*cz, -cx*sy*sz - sx*cz, 0}

	hrows := [15]xform.Vec3{
		c.HA2, c.HA3,
		c.HB2, c.HB3,
		c.HC2, c.HC3,
		c.HD1, c.HD2, c.HD3,
		c.HE1, c.HE2, c.HE3,
		c.HF1, c.HF2, c.HF3,
	}
	for i, v := range hrows {
		c.HAng[i] = [4]float32{float32(v[0]), float32(v[1]), float32(v[2]), 0}
	}

	return c
}

// HasHessian reports whether the Hessian vectors/table were computed.
func (c *AngleDerivativeCache) HasHessian() bool { return c.hasHessian }

// angleCosSin returns (cos(a), sin(a)), substituting the exact identity
// values within angleZeroTol of zero.
func angleCosSin(a float64) (c, s float64) {
	if math.Abs(a) < angleZeroTol {
		return 1, 0
	}
	return math.Cos(a), math.Sin(a)
}
