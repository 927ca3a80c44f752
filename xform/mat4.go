// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xform implements the 4x4 homogeneous rigid-transform algebra
// shared by the registration solver and the point-cloud/pose file readers:
// composing translation with the XYZ-Euler rotation, applying a transform to
// a point, and decomposing a rotation matrix back into XYZ-Euler angles.
package xform

import "math"

// Vec3 is a point or direction in ℝ³.
type Vec3 [3]float64

// Mat4 is a 4x4 homogeneous transform matrix, row-major.
type Mat4 [4][4]float64

// Identity4 returns the 4x4 identity matrix.
func Identity4() Mat4 {
	var m Mat4
	for i := 0; i < 4; i++ {
		m[i][i] = 1
	}
	return m
}

// IsIdentity reports whether m equals the identity to within tol.
func (m Mat4) IsIdentity(tol float64) bool {
	id := Identity4()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(m[i][j]-id[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// Mul returns m*n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i][k] * n[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// Apply transforms point p by m (rotation + translation).
func (m Mat4) Apply(p Vec3) Vec3 {
	var out Vec3
	for i := 0; i < 3; i++ {
		out[i] = m[i][0]*p[0] + m[i][1]*p[1] + m[i][2]*p[2] + m[i][3]
	}
	return out
}

// Translation returns m's translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[0][3], m[1][3], m[2][3]}
}

// Translate4 returns the homogeneous translation matrix for t.
func Translate4(t Vec3) Mat4 {
	m := Identity4()
	m[0][3], m[1][3], m[2][3] = t[0], t[1], t[2]
	return m
}

// RotationX returns the homogeneous rotation matrix for a right-handed
// rotation of a radians about the X axis.
func RotationX(a float64) Mat4 {
	m := Identity4()
	c, s := cosSin(a)
	m[1][1], m[1][2] = c, -s
	m[2][1], m[2][2] = s, c
	return m
}

// RotationY returns the homogeneous rotation matrix for a right-handed
// rotation of a radians about the Y axis.
func RotationY(a float64) Mat4 {
	m := Identity4()
	c, s := cosSin(a)
	m[0][0], m[0][2] = c, s
	m[2][0], m[2][2] = -s, c
	return m
}

// RotationZ returns the homogeneous rotation matrix for a right-handed
// rotation of a radians about the Z axis.
func RotationZ(a float64) Mat4 {
	m := Identity4()
	c, s := cosSin(a)
	m[0][0], m[0][1] = c, -s
	m[1][0], m[1][1] = s, c
	return m
}

// cosSin returns (cos(a), sin(a)), substituting the exact identity values
// when a is within 1e-4 of zero to avoid catastrophic cancellation near the
// identity rotation (the same threshold the solver's angle cache uses).
func cosSin(a float64) (c, s float64) {
	if math.Abs(a) < 1e-4 {
		return 1, 0
	}
	return math.Cos(a), math.Sin(a)
}

// FromPose composes the 4x4 transform for pose vector p=(tx,ty,tz,rx,ry,rz)
// as Translate(tx,ty,tz) * RotX(rx) * RotY(ry) * RotZ(rz), the convention
// used throughout the solver to turn a 6-DoF step or pose into a matrix.
func FromPose(p [6]float64) Mat4 {
	t := Translate4(Vec3{p[0], p[1], p[2]})
	rx := RotationX(p[3])
	ry := RotationY(p[4])
	rz := RotationZ(p[5])
	return t.Mul(rx).Mul(ry).Mul(rz)
}

// FromQuaternion builds the homogeneous rotation matrix for the unit
// quaternion (w,x,y,z); used when decoding the pose-list CSV format.
func FromQuaternion(w, x, y, z float64) Mat4 {
	m := Identity4()
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z
	m[0][0] = 1 - 2*(yy+zz)
	m[0][1] = 2 * (xy - wz)
	m[0][2] = 2 * (xz + wy)
	m[1][0] = 2 * (xy + wz)
	m[1][1] = 1 - 2*(xx+zz)
	m[1][2] = 2 * (yz - wx)
	m[2][0] = 2 * (xz - wy)
	m[2][1] = 2 * (yz + wx)
	m[2][2] = 1 - 2*(xx+yy)
	return m
}

// EulerXYZ decomposes m's rotation block into angles (rx,ry,rz) such that
// R = Rx(rx)·Ry(ry)·Rz(rz), the inverse of FromPose's rotation composition
// and the Go equivalent of Eigen's rotation.eulerAngles(0,1,2).
//
// Near ry = ±π/2 the decomposition is gimbal-locked: rx and rz become
// coupled (only their sum/difference is determined) and this function
// arbitrarily assigns the whole rotation to rz, returning rx=0. Callers
// that re-decompose a composed matrix every iteration (as the Newton
// driver does) inherit this discontinuity.
func (m Mat4) EulerXYZ() Vec3 {
	sy := clamp(m[0][2], -1, 1)
	ry := math.Asin(sy)
	cy := math.Cos(ry)
	const gimbalTol = 1e-9
	if cy < gimbalTol {
		rz := math.Atan2(m[1][0], m[1][1])
		return Vec3{0, ry, rz}
	}
	rx := math.Atan2(-m[1][2], m[2][2])
	rz := math.Atan2(-m[0][1], m[0][0])
	return Vec3{rx, ry, rz}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Pose returns the 6-vector (tx,ty,tz,rx,ry,rz) decomposed from m via
// Translation and EulerXYZ.
func (m Mat4) Pose() [6]float64 {
	t := m.Translation()
	r := m.EulerXYZ()
	return [6]float64{t[0], t[1], t[2], r[0], r[1], r[2]}
}
