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

// Package blackframe classifies stack frames as statistically indistinguishable
// from the sensor noise floor, using a threshold bootstrapped from the first
// frame.
package blackframe

import (
	"math"

	"github.com/princeton-ecs/motioncorrect/internal/sstats"
)

// DefaultK is the default multiple of standard deviations above the mean
// used to set the per-pixel "zero" threshold when the caller does not
// supply a precomputed Tau.
const DefaultK = 5.0

// subsampleThreshold is the frame pixel count above which Bootstrap
// estimates mean and standard deviation from a random subsample instead of a full scan; a
// ScanImage frame can run into the tens of millions of pixels, and the
// bootstrap only needs to be approximately right.
const subsampleThreshold = 1 << 20
const subsampleSize = 1 << 16

// Bootstrap computes the noise-floor threshold tau = mean + k*sigma from the
// first frame's pixels, where sigma is the sample standard deviation (not
// sstats.RMS, which folds the mean itself into the root and so inflates tau
// for bright frames).
func Bootstrap(firstFrame []float32, k float64) (tau float32) {
	s := sstats.New()
	if len(firstFrame) > subsampleThreshold {
		sstats.AddSubsample(s, firstFrame, subsampleSize)
	} else {
		sstats.AddSlice(s, firstFrame)
	}
	return float32(s.Mean() + k*math.Sqrt(s.SampleVariance()))
}

// IsEmpty classifies frame (not the first frame of the stack — that one is
// always empty by construction, per spec C7) by counting pixels <= tau and
// comparing against the whole-frame expectation p^(H*W) * H*W.
func IsEmpty(frame []float32, tau float32, p float64) bool {
	n := len(frame)
	var count int
	for _, v := range frame {
		if v <= tau {
			count++
		}
	}
	threshold := math.Pow(p, float64(n)) * float64(n)
	return float64(count) >= threshold
}

// Detect classifies every frame in frames. frames[0] is always marked
// empty (it defines the noise floor). If tau is nil, it is bootstrapped
// from frames[0] with DefaultK; otherwise the supplied value overrides the
// bootstrap.
func Detect(frames [][]float32, p float64, tau *float32) []bool {
	empty := make([]bool, len(frames))
	if len(frames) == 0 {
		return empty
	}
	empty[0] = true

	t := tau
	var bootstrapped float32
	if t == nil {
		bootstrapped = Bootstrap(frames[0], DefaultK)
		t = &bootstrapped
	}

	for i := 1; i < len(frames); i++ {
		empty[i] = IsEmpty(frames[i], *t, p)
	}
	return empty
}
