// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndt

import (
	"math"

	"github.com/cpmech/ndtreg/voxelmap"
)

// VoxelIndex is the integer 3D address of a grid cell at the configured
// resolution, used by CalculateScore to report the cells whose query
// points found no neighbors. Being a comparable array, it doubles as the
// set key that keeps the reported cells distinct.
type VoxelIndex [3]int

// pointVoxelScoreInc is the Gauss-mixture score increment of one
// (point, voxel) pair under the current Gauss constants, the shared
// expression behind all three scoring queries.
func pointVoxelScoreInc(xTrans, mean [3]float64, invCov [3][3]float64, d1, d2 float64) float64 {
	var q [3]float64
	for i := 0; i < 3; i++ {
		q[i] = xTrans[i] - mean[i]
	}
	var cinvQ [3]float64
	for i := 0; i < 3; i++ {
		cinvQ[i] = invCov[i][0]*q[0] + invCov[i][1]*q[1] + invCov[i][2]*q[2]
	}
	m := q[0]*cinvQ[0] + q[1]*cinvQ[1] + q[2]*cinvQ[2]
	return -d1 * math.Exp(-d2*m/2)
}

// CalculateScore returns the sum of score increments over every
// (point, voxel) pair in a transformed cloud, normalized by the cloud
// size. It additionally returns the per-voxel average score (keyed by leaf
// index) and the grid cells that held a query point with zero neighbors.
func CalculateScore(cloud [][3]float64, target voxelmap.TargetVoxelMap, params *Params) (score float64, voxelScoreMap map[int]float64, emptyVoxels []VoxelIndex) {
	voxelScoreMap = make(map[int]float64)
	voxelCounts := make(map[int]int)
	emptySeen := make(map[VoxelIndex]bool)

	var total float64
	for _, xTrans := range cloud {
		voxels := neighborhood(target, xTrans, params)
		if len(voxels) == 0 {
			id := gridCellOf(xTrans, params.Resolution)
			if !emptySeen[id] {
				emptySeen[id] = true
				emptyVoxels = append(emptyVoxels, id)
			}
			continue
		}
		for _, v := range voxels {
			inc := pointVoxelScoreInc(xTrans, v.Mean, v.Inv, params.D1, params.D2)
			total += inc
			leaf := target.LeafIndex(v.Mean)
			voxelScoreMap[leaf] += inc
			voxelCounts[leaf]++
		}
	}
	for leaf, n := range voxelCounts {
		if n != 0 {
			voxelScoreMap[leaf] /= float64(n)
		}
	}

	if len(cloud) == 0 {
		return 0, voxelScoreMap, emptyVoxels
	}
	return total / float64(len(cloud)), voxelScoreMap, emptyVoxels
}

// CalculateTransformationProbability computes the same sum as
// CalculateScore without the side-effect maps, returning 0 for an empty
// cloud.
func CalculateTransformationProbability(cloud [][3]float64, target voxelmap.TargetVoxelMap, params *Params) float64 {
	if len(cloud) == 0 {
		return 0
	}
	var total float64
	for _, xTrans := range cloud {
		for _, v := range neighborhood(target, xTrans, params) {
			total += pointVoxelScoreInc(xTrans, v.Mean, v.Inv, params.D1, params.D2)
		}
	}
	return total / float64(len(cloud))
}

// CalculateNearestVoxelTransformationLikelihood keeps, per point, only the
// maximum score increment across its
// neighborhood, sum those maxima, and divide by the number of points that
// had at least one neighbor (0 if none did).
func CalculateNearestVoxelTransformationLikelihood(cloud [][3]float64, target voxelmap.TargetVoxelMap, params *Params) float64 {
	var sum float64
	var found int
	for _, xTrans := range cloud {
		voxels := neighborhood(target, xTrans, params)
		if len(voxels) == 0 {
			continue
		}
		var best float64
		for _, v := range voxels {
			inc := pointVoxelScoreInc(xTrans, v.Mean, v.Inv, params.D1, params.D2)
			if inc > best {
				best = inc
			}
		}
		sum += best
		found++
	}
	if found == 0 {
		return 0
	}
	return sum / float64(found)
}

// gridCellOf returns the integer 3D cell address of point at the given
// resolution, for the empty-voxel list of CalculateScore: a point with no
// neighborhood still addresses a cell.
func gridCellOf(point [3]float64, resolution float64) VoxelIndex {
	return VoxelIndex{
		int(math.Floor(point[0] / resolution)),
		int(math.Floor(point[1] / resolution)),
		int(math.Floor(point[2] / resolution)),
	}
}
