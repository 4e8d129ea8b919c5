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

// Package template builds the per-iteration reference image for motion
// correction: the per-pixel median across the (optionally rebinned)
// shifted stack, ignoring NaNs and empty frames.
package template

import "github.com/princeton-ecs/motioncorrect/internal/qselect"

// Bin rebins consecutive groups of b shifted frames by weighted summation,
// compensating for empty frames skipped within a group with a 1/count
// weight, per spec C10. b==1 returns the frames unchanged (a defensive
// copy). b is clamped to len(shifted) if it does not divide evenly.
func Bin(shifted [][]float32, empty []bool, width, height, b int) [][]float32 {
	n := len(shifted)
	if b < 1 {
		b = 1
	}
	if b > n || n%b != 0 {
		b = n
	}
	if b == 1 {
		out := make([][]float32, n)
		for i, f := range shifted {
			cp := make([]float32, len(f))
			copy(cp, f)
			out[i] = cp
		}
		return out
	}

	numBins := n / b
	out := make([][]float32, numBins)
	size := width * height
	for bin := 0; bin < numBins; bin++ {
		acc := make([]float32, size)
		var count int
		for i := bin * b; i < (bin+1)*b; i++ {
			if empty != nil && empty[i] {
				continue
			}
			count++
			for p := 0; p < size; p++ {
				acc[p] += shifted[i][p]
			}
		}
		if count > 0 {
			invCount := 1 / float32(count)
			for p := 0; p < size; p++ {
				acc[p] *= invCount
			}
		}
		out[bin] = acc
	}
	return out
}

// Build produces an H x W float32 reference image whose pixel (r,c) is the
// median across {bins[i][r,c] : value is not NaN}, where bins has already
// been produced by Bin (and thus already skips empty frames within each
// bin). width, height describe the frame dimensions.
func Build(bins [][]float32, width, height int) []float32 {
	out := make([]float32, width*height)
	n := len(bins)
	scratch := make([]float32, 0, n)
	for p := 0; p < width*height; p++ {
		scratch = scratch[:0]
		for i := 0; i < n; i++ {
			v := bins[i][p]
			if v == v { // not NaN
				scratch = append(scratch, v)
			}
		}
		if len(scratch) == 0 {
			out[p] = float32(0)
			continue
		}
		out[p] = qselect.Median(scratch, len(scratch))
	}
	return out
}

// ShiftBounds computes (min,max) over a slice of per-frame shifts, used to
// derive the recentering midpoint midX=(min+max)/2 (spec C10/C11).
func ShiftBounds(shifts []float64) (min, max float64) {
	if len(shifts) == 0 {
		return 0, 0
	}
	min, max = shifts[0], shifts[0]
	for _, s := range shifts[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return
}
