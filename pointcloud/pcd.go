// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pointcloud implements the file-format collaborators of the
// registration engine: loading PCD point clouds (individually or by
// recursive directory scan) and parsing the pose-list CSV format. None of
// this package's logic feeds back into the
// solver's math; it only produces the [][3]float64 clouds and xform.Mat4
// poses that package ndt consumes.
package pointcloud

import (
	"bufio"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cpmech/gosl/chk"
)

// Cloud is a flat list of points, the form the solver and voxel-map
// builder consume directly.
type Cloud = [][3]float64

// pcdHeader is the subset of a PCD file's header fields this reader needs
// to locate the x,y,z fields and the data section.
type pcdHeader struct {
	fields   []string
	sizes    []int
	types    []byte
	counts   []int
	width    int
	height   int
	points   int
	dataMode string
}

// LoadPCD reads a single ASCII or binary PCD file and returns its points,
// using only the x,y,z fields. Additional fields such as intensity or
// color are skipped over, not decoded.
func LoadPCD(path string) (Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, chk.Err("pointcloud: cannot open %q: %v", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	hdr, err := readPCDHeader(r)
	if err != nil {
		return nil, chk.Err("pointcloud: %q: %v", path, err)
	}

	xi, yi, zi, err := xyzFieldIndices(hdr)
	if err != nil {
		return nil, chk.Err("pointcloud: %q: %v", path, err)
	}

	switch hdr.dataMode {
	case "ascii":
		return readPCDAscii(r, hdr, xi, yi, zi)
	case "binary":
		return readPCDBinary(r, hdr, xi, yi, zi)
	default:
		return nil, chk.Err("pointcloud: %q: unsupported DATA mode %q", path, hdr.dataMode)
	}
}

func xyzFieldIndices(hdr pcdHeader) (xi, yi, zi int, err error) {
	xi, yi, zi = -1, -1, -1
	for i, f := range hdr.fields {
		switch f {
		case "x":
			xi = i
		case "y":
			yi = i
		case "z":
			zi = i
		}
	}
	if xi < 0 || yi < 0 || zi < 0 {
		return 0, 0, 0, chk.Err("PCD FIELDS missing x/y/z")
	}
	return xi, yi, zi, nil
}

func readPCDHeader(r *bufio.Reader) (pcdHeader, error) {
	var hdr pcdHeader
	for {
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return hdr, chk.Err("unexpected EOF in header")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "FIELDS":
			hdr.fields = fields[1:]
		case "SIZE":
			for _, s := range fields[1:] {
				n, _ := strconv.Atoi(s)
				hdr.sizes = append(hdr.sizes, n)
			}
		case "TYPE":
			for _, s := range fields[1:] {
				hdr.types = append(hdr.types, s[0])
			}
		case "COUNT":
			for _, s := range fields[1:] {
				n, _ := strconv.Atoi(s)
				hdr.counts = append(hdr.counts, n)
			}
		case "WIDTH":
			hdr.width, _ = strconv.Atoi(fields[1])
		case "HEIGHT":
			hdr.height, _ = strconv.Atoi(fields[1])
		case "POINTS":
			hdr.points, _ = strconv.Atoi(fields[1])
		case "DATA":
			hdr.dataMode = fields[1]
			if hdr.points == 0 {
				hdr.points = hdr.width * hdr.height
			}
			return hdr, nil
		}
	}
}

func readPCDAscii(r *bufio.Reader, hdr pcdHeader, xi, yi, zi int) (Cloud, error) {
	cloud := make(Cloud, 0, hdr.points)
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			fields := strings.Fields(line)
			if len(fields) <= xi || len(fields) <= yi || len(fields) <= zi {
				return nil, chk.Err("ASCII data row has too few fields: %q", line)
			}
			x, ex := strconv.ParseFloat(fields[xi], 64)
			y, ey := strconv.ParseFloat(fields[yi], 64)
			z, ez := strconv.ParseFloat(fields[zi], 64)
			if ex != nil || ey != nil || ez != nil {
				return nil, chk.Err("ASCII data row has non-numeric x/y/z: %q", line)
			}
			if !math.IsNaN(x) && !math.IsNaN(y) && !math.IsNaN(z) {
				cloud = append(cloud, [3]float64{x, y, z})
			}
		}
		if err != nil {
			break
		}
	}
	return cloud, nil
}

func readPCDBinary(r *bufio.Reader, hdr pcdHeader, xi, yi, zi int) (Cloud, error) {
	stride := 0
	offsets := make([]int, len(hdr.fields))
	for i := range hdr.fields {
		offsets[i] = stride
		count := 1
		if i < len(hdr.counts) {
			count = hdr.counts[i]
		}
		size := 4
		if i < len(hdr.sizes) {
			size = hdr.sizes[i]
		}
		stride += size * count
	}

	cloud := make(Cloud, 0, hdr.points)
	row := make([]byte, stride)
	for i := 0; i < hdr.points; i++ {
		if _, err := readFull(r, row); err != nil {
			return nil, chk.Err("binary data truncated at point %d: %v", i, err)
		}
		x := float64(math.Float32frombits(binary.LittleEndian.Uint32(row[offsets[xi]:])))
		y := float64(math.Float32frombits(binary.LittleEndian.Uint32(row[offsets[yi]:])))
		z := float64(math.Float32frombits(binary.LittleEndian.Uint32(row[offsets[zi]:])))
		if !math.IsNaN(x) && !math.IsNaN(y) && !math.IsNaN(z) {
			cloud = append(cloud, [3]float64{x, y, z})
		}
	}
	return cloud, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// LoadPCDRecursive loads path as a single PCD file, or, if path is a
// directory, concatenates every file with a case-insensitive .pcd
// extension found by a recursive walk, in sorted filename order.
func LoadPCDRecursive(path string) (Cloud, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, chk.Err("pointcloud: no such path %q: %v", path, err)
	}
	if !info.IsDir() {
		return LoadPCD(path)
	}

	var files []string
	err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".pcd") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, chk.Err("pointcloud: walk %q: %v", path, err)
	}
	sort.Strings(files)

	var cloud Cloud
	for _, f := range files {
		part, err := LoadPCD(f)
		if err != nil {
			return nil, err
		}
		cloud = append(cloud, part...)
	}
	return cloud, nil
}
