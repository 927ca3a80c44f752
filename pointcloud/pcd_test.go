// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pointcloud

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cpmech/gosl/chk"
)

const asciiPCD = `# .PCD v0.7 - Point Cloud Data file format
VERSION 0.7
FIELDS x y z
SIZE 4 4 4
TYPE F F F
COUNT 1 1 1
WIDTH 3
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 3
DATA ascii
0.0 0.0 0.0
1.5 -2.5 3.5
nan nan nan
`

func Test_pcd01_ascii(tst *testing.T) {

	//verbose()
	chk.PrintTitle("pcd01: ASCII PCD loads x,y,z and drops NaN rows")

	dir := tst.TempDir()
	path := filepath.Join(dir, "cloud.pcd")
	if err := os.WriteFile(path, []byte(asciiPCD), 0644); err != nil {
		tst.Fatalf("cannot write fixture: %v", err)
	}

	cloud, err := LoadPCD(path)
	if err != nil {
		tst.Fatalf("LoadPCD failed: %v", err)
	}
	chk.IntAssert(len(cloud), 2)
	chk.Float64(tst, "p0.x", 1e-15, cloud[0][0], 0.0)
	chk.Float64(tst, "p1.y", 1e-15, cloud[1][1], -2.5)
	chk.Float64(tst, "p1.z", 1e-15, cloud[1][2], 3.5)
}

func Test_pcd02_binary(tst *testing.T) {

	//verbose()
	chk.PrintTitle("pcd02: binary PCD decodes little-endian float32 rows")

	hdr := "VERSION 0.7\n" +
		"FIELDS x y z\n" +
		"SIZE 4 4 4\n" +
		"TYPE F F F\n" +
		"COUNT 1 1 1\n" +
		"WIDTH 2\n" +
		"HEIGHT 1\n" +
		"POINTS 2\n" +
		"DATA binary\n"

	var buf bytes.Buffer
	buf.WriteString(hdr)
	points := [][3]float32{{1, 2, 3}, {-4.5, 5.5, -6.5}}
	for _, p := range points {
		for _, v := range p {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
			buf.Write(b[:])
		}
	}

	dir := tst.TempDir()
	path := filepath.Join(dir, "cloud.pcd")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		tst.Fatalf("cannot write fixture: %v", err)
	}

	cloud, err := LoadPCD(path)
	if err != nil {
		tst.Fatalf("LoadPCD failed: %v", err)
	}
	chk.IntAssert(len(cloud), 2)
	chk.Float64(tst, "p0.x", 1e-6, cloud[0][0], 1)
	chk.Float64(tst, "p1.y", 1e-6, cloud[1][1], 5.5)
	chk.Float64(tst, "p1.z", 1e-6, cloud[1][2], -6.5)
}

func Test_pcd03_recursiveSortedConcat(tst *testing.T) {

	//verbose()
	chk.PrintTitle("pcd03: LoadPCDRecursive walks a directory in sorted filename order")

	dir := tst.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		tst.Fatalf("cannot create subdir: %v", err)
	}

	one := singlePointPCD(1, 1, 1)
	two := singlePointPCD(2, 2, 2)
	if err := os.WriteFile(filepath.Join(dir, "a.pcd"), []byte(one), 0644); err != nil {
		tst.Fatalf("%v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.PCD"), []byte(two), 0644); err != nil {
		tst.Fatalf("%v", err)
	}

	cloud, err := LoadPCDRecursive(dir)
	if err != nil {
		tst.Fatalf("LoadPCDRecursive failed: %v", err)
	}
	chk.IntAssert(len(cloud), 2)
	chk.Float64(tst, "p0.x", 1e-15, cloud[0][0], 1)
	chk.Float64(tst, "p1.x", 1e-15, cloud[1][0], 2)
}

func Test_pcd04_missingXYZField(tst *testing.T) {

	//verbose()
	chk.PrintTitle("pcd04: FIELDS without x/y/z is rejected")

	dir := tst.TempDir()
	path := filepath.Join(dir, "bad.pcd")
	bad := "VERSION 0.7\nFIELDS intensity\nSIZE 4\nTYPE F\nCOUNT 1\n" +
		"WIDTH 1\nHEIGHT 1\nPOINTS 1\nDATA ascii\n7.0\n"
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		tst.Fatalf("%v", err)
	}

	if _, err := LoadPCD(path); err == nil {
		tst.Fatalf("expected an error for missing x/y/z fields")
	}
}

func singlePointPCD(x, y, z float64) string {
	return "VERSION 0.7\n" +
		"FIELDS x y z\n" +
		"SIZE 4 4 4\n" +
		"TYPE F F F\n" +
		"COUNT 1 1 1\n" +
		"WIDTH 1\n" +
		"HEIGHT 1\n" +
		"POINTS 1\n" +
		"DATA ascii\n" +
		fmt.Sprintf("%v %v %v\n", x, y, z)
}
