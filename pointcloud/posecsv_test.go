// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pointcloud

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cpmech/gosl/chk"
)

const poseCSV = `timestamp,x,y,z,qw,qx,qy,qz,vx,vy,vz,wx,wy,wz
0.0,1.0,2.0,3.0,1,0,0,0,0,0,0,0,0,0
0.1,4.0,5.0,6.0,1,0,0,0,0,0,0,0,0,0
`

func Test_posecsv01_identityRotation(tst *testing.T) {

	//verbose()
	chk.PrintTitle("posecsv01: identity quaternion rows decode to pure translation")

	dir := tst.TempDir()
	path := filepath.Join(dir, "poses.csv")
	if err := os.WriteFile(path, []byte(poseCSV), 0644); err != nil {
		tst.Fatalf("cannot write fixture: %v", err)
	}

	poses, err := LoadPoseCSV(path)
	if err != nil {
		tst.Fatalf("LoadPoseCSV failed: %v", err)
	}
	chk.IntAssert(len(poses), 2)
	chk.Float64(tst, "t0", 1e-15, poses[0].Timestamp, 0.0)
	chk.Float64(tst, "t1", 1e-15, poses[1].Timestamp, 0.1)

	tr0 := poses[0].Transform.Translation()
	chk.Float64(tst, "p0.x", 1e-15, tr0[0], 1.0)
	chk.Float64(tst, "p0.y", 1e-15, tr0[1], 2.0)
	chk.Float64(tst, "p0.z", 1e-15, tr0[2], 3.0)

	tr1 := poses[1].Transform.Translation()
	chk.Float64(tst, "p1.x", 1e-15, tr1[0], 4.0)
	chk.Float64(tst, "p1.y", 1e-15, tr1[1], 5.0)
	chk.Float64(tst, "p1.z", 1e-15, tr1[2], 6.0)

	// the identity quaternion leaves the rotation block at identity
	rotated := poses[0].Transform.Apply([3]float64{1, 0, 0})
	chk.Float64(tst, "Rx.x", 1e-15, rotated[0]-tr0[0], 1)
	chk.Float64(tst, "Rx.y", 1e-15, rotated[1]-tr0[1], 0)
	chk.Float64(tst, "Rx.z", 1e-15, rotated[2]-tr0[2], 0)
}

func Test_posecsv02_quarterTurn(tst *testing.T) {

	//verbose()
	chk.PrintTitle("posecsv02: a 90-degree yaw quaternion rotates x onto y")

	line := "0.0,0,0,0," + "0.7071067811865476,0,0,0.7071067811865476" + ",0,0,0,0,0,0\n"
	csv := "timestamp,x,y,z,qw,qx,qy,qz,vx,vy,vz,wx,wy,wz\n" + line

	dir := tst.TempDir()
	path := filepath.Join(dir, "poses.csv")
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		tst.Fatalf("cannot write fixture: %v", err)
	}

	poses, err := LoadPoseCSV(path)
	if err != nil {
		tst.Fatalf("LoadPoseCSV failed: %v", err)
	}
	chk.IntAssert(len(poses), 1)

	p := poses[0].Transform.Apply([3]float64{1, 0, 0})
	chk.Float64(tst, "Rx.x", 1e-8, p[0], 0)
	chk.Float64(tst, "Rx.y", 1e-8, p[1], 1)
	chk.Float64(tst, "Rx.z", 1e-8, p[2], 0)
}

func Test_posecsv03_missingFields(tst *testing.T) {

	//verbose()
	chk.PrintTitle("posecsv03: a record with fewer than 8 fields is rejected")

	dir := tst.TempDir()
	path := filepath.Join(dir, "poses.csv")
	bad := "timestamp,x,y,z,qw,qx,qy,qz\n0.0,1.0,2.0\n"
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		tst.Fatalf("%v", err)
	}

	if _, err := LoadPoseCSV(path); err == nil {
		tst.Fatalf("expected an error for a short record")
	}
}
