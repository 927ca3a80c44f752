// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndt

import "math"

// RegularizerContribution holds the score/gradient/Hessian adjustment of
// the longitudinal-distance pose prior.
type RegularizerContribution struct {
	ScoreDelta float64
	GradDelta  [6]float64
	HessDelta  [6][6]float64
}

// ApplyRegularizer computes the pose-prior contribution for pose p given a
// prior translation (priorTx, priorTy), scale factor lambda, and the
// neighborhood_count touched this iteration (which couples prior strength
// to data coverage). Callers should only invoke this when
// Params.RegularizationActive() is true.
func ApplyRegularizer(p [6]float64, priorTx, priorTy, lambda float64, neighborhoodCount int) RegularizerContribution {
	rz := p[5]
	cz, sz := math.Cos(rz), math.Sin(rz)

	dx := priorTx - p[0]
	dy := priorTy - p[1]
	l := dx*cz + dy*sz
	w := lambda * float64(neighborhoodCount)

	var c RegularizerContribution
	c.ScoreDelta = -w * l * l
	c.GradDelta[0] = 2 * w * cz * l
	c.GradDelta[1] = 2 * w * sz * l
	c.HessDelta[0][0] = -2 * w * cz * cz
	c.HessDelta[0][1] = -2 * w * cz * sz
	c.HessDelta[1][0] = c.HessDelta[0][1]
	c.HessDelta[1][1] = -2 * w * sz * sz
	return c
}
