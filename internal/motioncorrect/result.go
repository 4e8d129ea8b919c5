// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package motioncorrect

import "github.com/princeton-ecs/motioncorrect/internal/registration"

// Metric bundles the per-frame template-matching score surfaces produced
// by the last completed iteration.
type Metric struct {
	// Values holds one surface per frame, or nil entries for frames that
	// were empty/skipped. Discarded (left nil) when Params.KeepSurfaces is
	// false, since surface storage dominates peak memory for large N
	// (spec §5).
	Values  []*registration.Surface
	Optimum []float32
	Name    string
}

// MotionResult is the output bundle of a Run call (spec §3).
type MotionResult struct {
	// XShifts, YShifts are N x iteration matrices; column i holds the
	// per-frame shifts after iteration i.
	XShifts [][]float64
	YShifts [][]float64

	InputWidth, InputHeight, InputFrames int

	// Reference is the final H x W float32 template image.
	Reference []float32

	Metric Metric

	Params *Params

	// Iteration is the number of iterations actually performed. The
	// caller compares this against Params.MaxIter to detect a
	// non-convergent but non-error termination (spec §4.11).
	Iteration int

	// Empty marks which input frames were classified as black/empty.
	Empty []bool
}
