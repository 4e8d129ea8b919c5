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

// Package sstats implements a single-pass weighted streaming statistics
// accumulator (Welford's algorithm), used to bootstrap the black-frame
// noise floor and by the motion-correction loop's whole-stack uniformity
// check.
package sstats

import (
	"math"

	"github.com/valyala/fastrand"
)

// Stats accumulates weighted mean, variance, min and max of a sample
// sequence in one pass.
type Stats struct {
	count   int64
	sumW    float64
	mean    float64
	m2      float64
	min     float64
	max     float64
}

// New returns a cleared accumulator.
func New() *Stats {
	s := &Stats{}
	s.Clear()
	return s
}

// Clear resets the accumulator to its zero state.
func (s *Stats) Clear() {
	s.count = 0
	s.sumW = 0
	s.mean = 0
	s.m2 = 0
	s.min = math.Inf(1)
	s.max = math.Inf(-1)
}

// Add folds a single weighted sample into the accumulator.
func (s *Stats) Add(x float64, w float64) {
	if w <= 0 {
		return
	}
	temp := w + s.sumW
	delta := x - s.mean
	r := delta * w / temp
	s.mean += r
	if s.sumW > 0 {
		s.m2 += s.sumW * delta * r
	}
	s.sumW = temp
	s.count++
	if x < s.min {
		s.min = x
	}
	if x > s.max {
		s.max = x
	}
}

// AddOther folds another accumulator's state into s with an overall weight
// multiplier w (w=1 for a plain union). Mathematically equivalent to
// replaying every sample that went into other through Add.
func (s *Stats) AddOther(other *Stats, w float64) {
	if other == nil || other.sumW <= 0 || w <= 0 {
		return
	}
	otherSumW := other.sumW * w
	temp := otherSumW + s.sumW
	delta := other.mean - s.mean
	r := delta * otherSumW / temp
	s.mean += r
	if s.sumW > 0 {
		s.m2 += s.sumW*delta*r + otherSumW*other.m2/other.sumW
	} else {
		s.m2 += otherSumW * other.m2 / other.sumW
	}
	s.sumW = temp
	s.count += other.count
	if other.min < s.min {
		s.min = other.min
	}
	if other.max > s.max {
		s.max = other.max
	}
}

func (s *Stats) Count() int64         { return s.count }
func (s *Stats) SumWeights() float64  { return s.sumW }
func (s *Stats) Mean() float64        { return s.mean }
func (s *Stats) Min() float64         { return s.min }
func (s *Stats) Max() float64         { return s.max }

// PopulationVariance returns M2/sumW, the biased (population) variance.
func (s *Stats) PopulationVariance() float64 {
	if s.sumW <= 0 {
		return 0
	}
	return s.m2 / s.sumW
}

// SampleVariance returns the Bessel-corrected variance, 0 when count<=1.
func (s *Stats) SampleVariance() float64 {
	if s.count <= 1 || s.sumW <= 0 {
		return 0
	}
	return (s.m2 / s.sumW) * float64(s.count) / float64(s.count-1)
}

// RMS returns the root of the population variance plus mean^2 (root mean
// square of the raw samples, not of deviations from the mean).
func (s *Stats) RMS() float64 {
	return math.Sqrt(s.PopulationVariance() + s.mean*s.mean)
}

// MeanUncertainty returns the standard error of the mean.
func (s *Stats) MeanUncertainty() float64 {
	if s.count <= 1 {
		return 0
	}
	return math.Sqrt(s.SampleVariance() / float64(s.count))
}

// AddSlice folds every sample of data into s with unit weight, promoting
// through float64 per internal/pixel's type-dispatch convention so NaN
// checks are exact regardless of source element kind.
func AddSlice(s *Stats, data []float32) {
	for _, v := range data {
		f := float64(v)
		if f != f { // NaN
			continue
		}
		s.Add(f, 1)
	}
}

// AddSubsample folds a uniform random subset of samples pixels into s,
// drawn with fastrand (non-cryptographic, but the noise-floor bootstrap
// does not need cryptographic randomness and fastrand avoids crypto/rand's
// syscall overhead when called per frame). Used instead of AddSlice when a
// frame is too large to scan in full on every bootstrap call.
func AddSubsample(s *Stats, data []float32, samples int) {
	n := uint32(len(data))
	if n == 0 {
		return
	}
	rng := fastrand.RNG{}
	for i := 0; i < samples; i++ {
		v := float64(data[rng.Uint32n(n)])
		if v != v { // NaN
			continue
		}
		s.Add(v, 1)
	}
}
