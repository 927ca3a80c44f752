// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pointcloud

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/ndtreg/xform"
)

// Pose is one decoded record of the pose-list CSV format: a timestamp and
// the 4x4 homogeneous transform built from the position
// and unit quaternion fields. The trailing twist fields (vx..ωz) are not
// used by the registration engine.
type Pose struct {
	Timestamp float64
	Transform xform.Mat4
}

// LoadPoseCSV parses a pose-list CSV: a header line followed by records
//
//	timestamp,x,y,z,qw,qx,qy,qz,vx,vy,vz,ωx,ωy,ωz
//
// Only the first 8 fields are used; the rotation is built from the unit
// quaternion (qw,qx,qy,qz) via xform.FromQuaternion.
func LoadPoseCSV(path string) ([]Pose, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, chk.Err("pointcloud: cannot open %q: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // the twist columns beyond the first 8 are not required

	// skip header line
	if _, err := r.Read(); err != nil {
		return nil, chk.Err("pointcloud: %q: missing header: %v", path, err)
	}

	var poses []Pose
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		if len(rec) < 8 {
			return nil, chk.Err("pointcloud: %q: record has fewer than 8 fields: %v", path, rec)
		}
		vals := make([]float64, 8)
		for i := 0; i < 8; i++ {
			v, perr := strconv.ParseFloat(rec[i], 64)
			if perr != nil {
				return nil, chk.Err("pointcloud: %q: field %d not numeric: %q", path, i, rec[i])
			}
			vals[i] = v
		}
		t := xform.FromQuaternion(vals[4], vals[5], vals[6], vals[7])
		t[0][3], t[1][3], t[2][3] = vals[1], vals[2], vals[3]
		poses = append(poses, Pose{Timestamp: vals[0], Transform: t})
	}
	return poses, nil
}
