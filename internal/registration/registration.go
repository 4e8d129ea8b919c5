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

// Package registration estimates the rigid translation aligning one frame
// to a reference template: an integer-lattice correlation search (C8)
// followed by sub-pixel peak refinement.
package registration

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// CorrMethod selects the per-shift-candidate scoring function.
type CorrMethod int

const (
	SSD CorrMethod = iota
	SSDNormed
	XCorr
	NormXCorr
	CorrCoeff
	// NormCorrCoeffNormed is the default metric: a normalized correlation
	// coefficient robust to per-frame brightness/contrast drift.
	NormCorrCoeffNormed
)

// isSquaredDifference reports whether m is one of the SSD-family metrics,
// for which the log-parabolic sub-pixel fit is undefined (spec §9 open
// question: use quadratic refinement instead).
func (m CorrMethod) isSquaredDifference() bool {
	return m == SSD || m == SSDNormed
}

// higherIsBetter reports whether the metric is maximized (correlation
// family) or minimized (squared-difference family) at the true shift.
func (m CorrMethod) higherIsBetter() bool {
	return !m.isSquaredDifference()
}

// Surface holds the metric score for every candidate shift in
// [-maxShift,+maxShift]^2, row-major with dy as the row index.
type Surface struct {
	MaxShift int
	Values   []float32 // (2*maxShift+1)^2
	Method   CorrMethod
}

func (s *Surface) dim() int { return 2*s.MaxShift + 1 }

func (s *Surface) at(dy, dx int) float32 {
	return s.Values[(dy+s.MaxShift)*s.dim()+(dx+s.MaxShift)]
}

// score computes one metric's value at a candidate integer shift (dy, dx):
// frame pixel (r,c) is compared against template pixel (r+dy, c+dx). frame
// and template must share width/height; template is expected to already be
// cropped by maxShift on each side by the caller so every (r+dy, c+dx) is
// in-bounds (spec §4.8).
func score(method CorrMethod, frame []float32, template []float32, width, height, templateWidth, dy, dx int) float32 {
	// The correlation-coefficient metrics (CorrCoeff, NormCorrCoeffNormed)
	// need the paired, NaN-filtered samples as plain []float64 to hand to
	// gonum/stat; the other metrics are accumulated directly in the same
	// pass.
	var fBuf, tBuf []float64
	var sumFF, sumTT, sumFT float64
	needPairs := method == CorrCoeff || method == NormCorrCoeffNormed
	if needPairs {
		fBuf = make([]float64, 0, width*height)
		tBuf = make([]float64, 0, width*height)
	}

	for r := 0; r < height; r++ {
		tr := r + dy
		for c := 0; c < width; c++ {
			tc := c + dx
			fv := float64(frame[r*width+c])
			tv := float64(template[tr*templateWidth+tc])
			if fv != fv || tv != tv {
				continue
			}
			sumFF += fv * fv
			sumTT += tv * tv
			sumFT += fv * tv
			if needPairs {
				fBuf = append(fBuf, fv)
				tBuf = append(tBuf, tv)
			}
		}
	}
	if (needPairs && len(fBuf) == 0) || (!needPairs && sumFF == 0 && sumTT == 0 && sumFT == 0) {
		return float32(math.NaN())
	}

	switch method {
	case SSD:
		return float32(sumFF - 2*sumFT + sumTT)
	case SSDNormed:
		denom := math.Sqrt(sumFF * sumTT)
		if denom == 0 {
			return float32(math.NaN())
		}
		return float32((sumFF - 2*sumFT + sumTT) / denom)
	case XCorr:
		return float32(sumFT)
	case NormXCorr:
		denom := math.Sqrt(sumFF * sumTT)
		if denom == 0 {
			return float32(math.NaN())
		}
		return float32(sumFT / denom)
	case CorrCoeff:
		return float32(stat.Covariance(fBuf, tBuf, nil) * float64(len(fBuf)-1))
	default: // NormCorrCoeffNormed
		corr := stat.Correlation(fBuf, tBuf, nil)
		if math.IsNaN(corr) {
			return float32(math.NaN())
		}
		return float32(corr)
	}
}

// ComputeSurface evaluates method over every candidate shift in
// [-maxShift,+maxShift]^2. frame is width x height; template must be
// (width+2*maxShift) x (height+2*maxShift), pre-cropped so every candidate
// shift is representable (spec §4.8).
func ComputeSurface(frame []float32, width, height int, template []float32, templateWidth int, maxShift int, method CorrMethod) *Surface {
	s := &Surface{MaxShift: maxShift, Method: method}
	dim := s.dim()
	s.Values = make([]float32, dim*dim)
	for dy := -maxShift; dy <= maxShift; dy++ {
		for dx := -maxShift; dx <= maxShift; dx++ {
			// template pixel (r+dy+maxShift, c+dx+maxShift) in the padded
			// template buffer corresponds to (r+dy, c+dx) in the unpadded frame.
			s.Values[(dy+maxShift)*dim+(dx+maxShift)] = score(method, frame, template, width, height, templateWidth, dy+maxShift, dx+maxShift)
		}
	}
	return s
}

// peak locates the integer-shift extremum of the surface: argmax for
// correlation metrics, argmin for squared-difference metrics.
func (s *Surface) peak() (py, px int, onBoundary bool) {
	best := s.at(-s.MaxShift, -s.MaxShift)
	py, px = -s.MaxShift, -s.MaxShift
	better := func(a, b float32) bool {
		if s.Method.higherIsBetter() {
			return a > b
		}
		return a < b
	}
	for dy := -s.MaxShift; dy <= s.MaxShift; dy++ {
		for dx := -s.MaxShift; dx <= s.MaxShift; dx++ {
			v := s.at(dy, dx)
			if v != v {
				continue
			}
			if better(v, best) {
				best, py, px = v, dy, dx
			}
		}
	}
	onBoundary = py == -s.MaxShift || py == s.MaxShift || px == -s.MaxShift || px == s.MaxShift
	return
}

// Estimate runs the full C8 pipeline: integer peak search, then (if
// enabled and the peak is interior) sub-pixel refinement. Returns the
// refined shift (dx, dy) using the sign convention that a positive xShift
// means the output sampled the source at column c+xShift, the metric
// surface, and the optimum score value at the integer peak.
func Estimate(frame []float32, width, height int, template []float32, templateWidth int, maxShift int, method CorrMethod, subpixel bool) (dx, dy float64, surface *Surface, optimum float32) {
	surface = ComputeSurface(frame, width, height, template, templateWidth, maxShift, method)
	py, px, onBoundary := surface.peak()
	optimum = surface.at(py, px)

	if !subpixel || onBoundary {
		return -float64(px), -float64(py), surface, optimum
	}

	var xPeak, yPeak float64
	if method.isSquaredDifference() {
		xPeak = quadraticRefine(surface.at(py, px-1), surface.at(py, px), surface.at(py, px+1))
		yPeak = quadraticRefine(surface.at(py-1, px), surface.at(py, px), surface.at(py+1, px))
	} else {
		xPeak = logParabolicRefine(surface.at(py, px-1), surface.at(py, px), surface.at(py, px+1))
		yPeak = logParabolicRefine(surface.at(py-1, px), surface.at(py, px), surface.at(py+1, px))
	}

	return -(float64(px) + xPeak), -(float64(py) + yPeak), surface, optimum
}

// logParabolicRefine fits a log-parabola through three equally spaced
// samples centered on the peak and returns the fractional offset of its
// vertex from the center sample. Returns 0 if the denominator is zero
// (degenerate fit) rather than propagating NaN.
func logParabolicRefine(left, center, right float32) float64 {
	lnL, lnC, lnR := math.Log(float64(left)), math.Log(float64(center)), math.Log(float64(right))
	denom := 2*lnL - 4*lnC + 2*lnR
	if denom == 0 || math.IsNaN(denom) {
		return 0
	}
	v := (lnL - lnR) / denom
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// quadraticRefine is logParabolicRefine's analogue for squared-difference
// metrics, where a log-parabola is undefined because the surface is not
// strictly positive (spec §9 open question).
func quadraticRefine(left, center, right float32) float64 {
	l, c, r := float64(left), float64(center), float64(right)
	denom := 2*l - 4*c + 2*r
	if denom == 0 || math.IsNaN(denom) {
		return 0
	}
	v := (l - r) / denom
	if math.IsNaN(v) {
		return 0
	}
	return v
}
