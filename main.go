// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ndtreg loads a target and source point cloud (or directory of
// clouds), builds a reference voxel-map grid, runs the NDT registration
// solver, and reports the recovered pose.
package main

import (
	"flag"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/cpmech/ndtreg/ndt"
	"github.com/cpmech/ndtreg/pointcloud"
	"github.com/cpmech/ndtreg/voxelmap"
	"github.com/cpmech/ndtreg/xform"
)

func main() {

	targetPath := flag.String("target", "", "target point cloud (PCD file or directory)")
	sourcePath := flag.String("source", "", "source point cloud (PCD file or directory)")
	guessPath := flag.String("guess", "", "optional pose-list CSV; its first record seeds the initial guess")
	resolution := flag.Float64("resolution", 1.0, "voxel edge length")
	maxIter := flag.Int("max-iterations", 35, "hard cap on Newton iterations")
	searchMethod := flag.String("search", "kdtree", "neighborhood rule: kdtree, direct26, direct7, direct1")
	numThreads := flag.Int("threads", 0, "parallelism width (0 = GOMAXPROCS)")
	useLineSearch := flag.Bool("line-search", false, "enable the More-Thuente line search")
	flag.Parse()

	defer func() {
		if err := recover(); err != nil {
			io.PfRed("ERROR: %v\n", err)
		}
	}()

	if *targetPath == "" || *sourcePath == "" {
		chk.Panic("ndtreg: -target and -source are required")
	}

	io.Pf("ndtreg -- NDT point-cloud registration\n")

	target, err := pointcloud.LoadPCDRecursive(*targetPath)
	if err != nil {
		chk.Panic("%v", err)
	}
	source, err := pointcloud.LoadPCDRecursive(*sourcePath)
	if err != nil {
		chk.Panic("%v", err)
	}
	io.Pfcyan("loaded target: %d points, source: %d points\n", len(target), len(source))

	grid := voxelmap.BuildGrid(target, *resolution)
	io.Pf("built voxel grid: %d occupied voxels\n", grid.NumVoxels())

	var params ndt.Params
	params.SetDefault()
	params.Resolution = *resolution
	params.MaxIterations = *maxIter
	params.UseLineSearch = *useLineSearch
	if *numThreads > 0 {
		params.NumThreads = *numThreads
	}
	switch *searchMethod {
	case "kdtree":
		params.SearchMethod = ndt.KDTREE
	case "direct26":
		params.SearchMethod = ndt.DIRECT26
	case "direct7":
		params.SearchMethod = ndt.DIRECT7
	case "direct1":
		params.SearchMethod = ndt.DIRECT1
	default:
		chk.Panic("ndtreg: unknown -search %q", *searchMethod)
	}
	params.Validate()

	var guess *xform.Mat4
	if *guessPath != "" {
		poses, err := pointcloud.LoadPoseCSV(*guessPath)
		if err != nil {
			chk.Panic("%v", err)
		}
		if len(poses) == 0 {
			chk.Panic("ndtreg: -guess %q has no pose records", *guessPath)
		}
		guess = &poses[0].Transform
	}

	solver := ndt.NewSolver()
	solver.SetParams(params)
	solver.SetInputSource(source)
	solver.SetInputTarget(grid)
	solver.Align(guess)

	final := solver.FinalTransformation()
	t := final.Translation()
	r := final.EulerXYZ()
	io.Pfgreen("converged=%v iterations=%d\n", solver.HasConverged(), solver.Iterations())
	io.Pfyel("translation = (%.6f, %.6f, %.6f)\n", t[0], t[1], t[2])
	io.Pfyel("rotation xyz (rad) = (%.6f, %.6f, %.6f)\n", r[0], r[1], r[2])
	io.Pf("transformation_probability = %.6f\n", solver.TransformationProbability())
	io.Pf("nearest_voxel_transformation_likelihood = %.6f\n", solver.NearestVoxelTransformationLikelihood())
}
