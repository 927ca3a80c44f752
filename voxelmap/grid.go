// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package voxelmap

import "math"

// cellKey is the integer 3D address of a grid cell.
type cellKey struct{ i, j, k int }

func cellOf(point [3]float64, resolution float64) cellKey {
	return cellKey{
		i: int(math.Floor(point[0] / resolution)),
		j: int(math.Floor(point[1] / resolution)),
		k: int(math.Floor(point[2] / resolution)),
	}
}

// Grid is a reference TargetVoxelMap backed by a hash map keyed on integer
// cell coordinates, with one Gaussian voxel per occupied cell. It answers
// DIRECT1/DIRECT7/DIRECT26 queries by touching only the addressed cells and
// answers KDTREE-style radius queries with a brute-force scan of nearby
// cells; this is sufficient for testing and for targets of modest size.
// Production deployments with millions of voxels are expected to supply
// their own TargetVoxelMap (e.g. backed by a real KD-tree).
type Grid struct {
	resolution float64
	cells      map[cellKey]*Voxel
	leaves     map[int]*Voxel
}

// NewGrid creates an empty grid with the given voxel edge length.
func NewGrid(resolution float64) *Grid {
	return &Grid{
		resolution: resolution,
		cells:      make(map[cellKey]*Voxel),
		leaves:     make(map[int]*Voxel),
	}
}

// Resolution returns the voxel edge length this grid was built with.
func (g *Grid) Resolution() float64 { return g.resolution }

// AddVoxel inserts or overwrites the voxel occupying the cell that contains
// mean, assigning it the next free leaf index if it is new.
func (g *Grid) AddVoxel(mean [3]float64, inv [3][3]float64) *Voxel {
	key := cellOf(mean, g.resolution)
	if v, ok := g.cells[key]; ok {
		v.Mean, v.Inv = mean, inv
		return v
	}
	v := &Voxel{Leaf: len(g.cells), Mean: mean, Inv: inv}
	g.cells[key] = v
	g.leaves[v.Leaf] = v
	return v
}

// NumVoxels returns the number of occupied cells.
func (g *Grid) NumVoxels() int { return len(g.cells) }

func (g *Grid) cellAt(point [3]float64) (*Voxel, bool) {
	v, ok := g.cells[cellOf(point, g.resolution)]
	return v, ok
}

// RadiusSearch implements TargetVoxelMap: a brute-force scan of the cube of
// cells within ceil(r/resolution) rings of point's own cell.
func (g *Grid) RadiusSearch(point [3]float64, r float64) (voxels []*Voxel, dists []float64) {
	c := cellOf(point, g.resolution)
	reach := int(math.Ceil(r / g.resolution))
	r2 := r * r
	for di := -reach; di <= reach; di++ {
		for dj := -reach; dj <= reach; dj++ {
			for dk := -reach; dk <= reach; dk++ {
				v, ok := g.cells[cellKey{c.i + di, c.j + dj, c.k + dk}]
				if !ok {
					continue
				}
				d2 := sqDist(point, v.Mean)
				if d2 <= r2 {
					voxels = append(voxels, v)
					dists = append(dists, d2)
				}
			}
		}
	}
	return
}

// NeighborhoodAtPoint implements TargetVoxelMap's 3x3x3 (DIRECT26) query.
func (g *Grid) NeighborhoodAtPoint(point [3]float64) []*Voxel {
	c := cellOf(point, g.resolution)
	var out []*Voxel
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			for dk := -1; dk <= 1; dk++ {
				if v, ok := g.cells[cellKey{c.i + di, c.j + dj, c.k + dk}]; ok {
					out = append(out, v)
				}
			}
		}
	}
	return out
}

// NeighborhoodAtPoint7 implements TargetVoxelMap's containing-voxel-plus-6-
// axis-neighbors (DIRECT7) query.
func (g *Grid) NeighborhoodAtPoint7(point [3]float64) []*Voxel {
	c := cellOf(point, g.resolution)
	offsets := [7]cellKey{
		{0, 0, 0},
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}
	var out []*Voxel
	for _, o := range offsets {
		if v, ok := g.cells[cellKey{c.i + o.i, c.j + o.j, c.k + o.k}]; ok {
			out = append(out, v)
		}
	}
	return out
}

// NeighborhoodAtPoint1 implements TargetVoxelMap's single-containing-voxel
// (DIRECT1) query.
func (g *Grid) NeighborhoodAtPoint1(point [3]float64) []*Voxel {
	if v, ok := g.cellAt(point); ok {
		return []*Voxel{v}
	}
	return nil
}

// LeafIndex implements TargetVoxelMap by looking up the cell addressed by
// mean, returning -1 if no voxel occupies that cell. Callers only ever
// pass back a mean obtained from a voxel this grid itself returned, so -1
// signals a mean that did not come from this grid.
func (g *Grid) LeafIndex(mean [3]float64) int {
	v, ok := g.cellAt(mean)
	if !ok {
		return -1
	}
	return v.Leaf
}

func sqDist(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}
