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

// Package motioncorrect orchestrates black-frame detection, template
// matching, sub-pixel refinement, and frame warping into the iterative
// motion-correction loop (C11), the top-level entry point of this module.
package motioncorrect

import (
	"context"
	"fmt"
	"io"
	"math"
	"runtime"

	"github.com/princeton-ecs/motioncorrect/internal/blackframe"
	"github.com/princeton-ecs/motioncorrect/internal/registration"
	"github.com/princeton-ecs/motioncorrect/internal/sstats"
	"github.com/princeton-ecs/motioncorrect/internal/template"
	"github.com/princeton-ecs/motioncorrect/internal/warp"
)

// state names the five-state machine from spec §4.11: Init, Template,
// Estimate, Warp, Converged. Transitions: Init -> Template -> Estimate ->
// Warp -> Template (if not converged) -> Converged.
type state int

const (
	stateInit state = iota
	stateTemplate
	stateEstimate
	stateWarp
	stateConverged
)

// frameOutcome is the per-frame step result (spec §9 redesign flag: the
// black-frame branch's early return is replaced by an explicit enum
// instead of control flow that skips shift-history bookkeeping).
type frameOutcome int

const (
	outcomeCorrected frameOutcome = iota
	outcomeEmpty
	outcomeSkipped
)

// Run executes the full motion-correction loop over every frame in frames
// (already decoded to float32 scratch buffers by internal/source), per
// params, logging progress to logWriter if non-nil. ctx is checked once per
// frame for cancellation (spec §5).
func Run(ctx context.Context, frames [][]float32, width, height int, params *Params, logWriter io.Writer) (*MotionResult, error) {
	if params == nil {
		params = NewParamsDefault()
	}
	n := len(frames)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width/height must be positive, got %dx%d", ErrArguments, width, height)
	}
	if params.MaxShift < 0 {
		return nil, fmt.Errorf("%w: maxShift must be non-negative, got %d", ErrArguments, params.MaxShift)
	}
	for i, f := range frames {
		if len(f) != width*height {
			return nil, fmt.Errorf("%w: frame %d has length %d, want %d (%dx%d)", ErrArguments, i, len(f), width*height, width, height)
		}
	}
	if width*height < 3 {
		return nil, fmt.Errorf("%w: frame has fewer than 3 pixels", ErrInvalidInput)
	}

	// The whole-stack aggregate, not any single frame, is what must be
	// non-uniform: a stack containing an exact-zero frame alongside natural
	// frames is valid input (the zero frame is pinned to a zero shift by
	// black-frame detection below), only a stack that is uniform in its
	// entirety is undefined for registration.
	agg := sstats.New()
	for _, f := range frames {
		sstats.AddSlice(agg, f)
	}
	if agg.Min() == agg.Max() {
		return nil, fmt.Errorf("%w: input stack is uniform (min==max)", ErrInvalidInput)
	}

	maxThreads := params.MaxThreads
	if maxThreads <= 0 {
		maxThreads = runtime.NumCPU()
	}

	var empty []bool
	if params.BlackTolerance > 0 {
		empty = blackframe.Detect(frames, params.BlackTolerance, nil)
	} else {
		empty = make([]bool, n)
	}

	result := &MotionResult{
		InputWidth: width, InputHeight: height, InputFrames: n,
		Params: params,
		Empty:  empty,
	}

	rebin := params.MedianRebin
	if rebin < 1 {
		rebin = 1
	}
	numBins := n / rebin
	if numBins < 1 {
		numBins = 1
	}

	xShiftsCur := make([]float64, n)
	yShiftsCur := make([]float64, n)
	var imgRef []float32

	st := stateInit
	maxRelShift := -1.0 // +inf sentinel via first-pass bypass below
	for iteration := 0; ; {
		switch st {
		case stateInit:
			st = stateTemplate

		case stateTemplate:
			shifted := make([][]float32, n)
			for i := range frames {
				shifted[i] = make([]float32, width*height)
				if empty[i] {
					for p := range shifted[i] {
						shifted[i][p] = float32(nan())
					}
					continue
				}
				// registration.Estimate reports a shift as "output at c sampled
				// the source at c+xShift", the opposite sign of warp.Warp's
				// (dx, dy), so the recorded shifts are negated here.
				warp.Warp(shifted[i], frames[i], width, height, -xShiftsCur[i], -yShiftsCur[i], params.MethodInterp, float32(nan()))
			}
			bins := template.Bin(shifted, empty, width, height, rebin)
			imgRef = template.Build(bins, width, height)

			minX, maxX := template.ShiftBounds(xShiftsCur)
			minY, maxY := template.ShiftBounds(yShiftsCur)
			midX, midY := (minX+maxX)/2, (minY+maxY)/2
			if midX != 0 || midY != 0 {
				recentered := make([]float32, width*height)
				warp.Warp(recentered, imgRef, width, height, -midX, -midY, params.MethodInterp, float32(nan()))
				imgRef = recentered
			}
			st = stateEstimate

		case stateEstimate:
			if (maxRelShift >= 0 && maxRelShift < params.StopBelowShift) || iteration >= params.MaxIter {
				st = stateConverged
				continue
			}
			iteration++
			result.Iteration = iteration

			padded, paddedWidth := padTemplate(imgRef, width, height, params.MaxShift)
			surfaces := make([]*registration.Surface, n)
			optima := make([]float32, n)

			prevX := append([]float64(nil), xShiftsCur...)
			prevY := append([]float64(nil), yShiftsCur...)
			var localMaxRel float64
			var minX, maxX, minY, maxY float64
			first := true

			sem := make(chan struct{}, maxThreads)
			type frameResult struct {
				idx               int
				outcome           frameOutcome
				dx, dy            float64
				surface           *registration.Surface
				optimum           float32
			}
			results := make(chan frameResult, n)

			for i := 0; i < n; i++ {
				select {
				case <-ctx.Done():
					result.Iteration = iteration - 1
					return result, ErrCancelled
				default:
				}
				sem <- struct{}{}
				go func(i int) {
					defer func() { <-sem }()
					if empty[i] {
						results <- frameResult{idx: i, outcome: outcomeEmpty}
						return
					}
					if params.FrameSkip > 0 && i%(params.FrameSkip+1) != 0 {
						results <- frameResult{idx: i, outcome: outcomeSkipped}
						return
					}
					dx, dy, surf, opt := registration.Estimate(frames[i], width, height, padded, paddedWidth, params.MaxShift, params.MethodCorr, params.Subpixel)
					results <- frameResult{idx: i, outcome: outcomeCorrected, dx: dx, dy: dy, surface: surf, optimum: opt}
				}(i)
			}
			for i := 0; i < maxThreads; i++ {
				sem <- struct{}{}
			}
			for i := 0; i < n; i++ {
				r := <-results
				switch r.outcome {
				case outcomeEmpty:
					// shifts remain at previous iteration's values (spec §4.11 step 3)
				case outcomeSkipped:
					// FrameSkip leaves this frame's registration unrefreshed this
					// iteration; its carried-over shift still feeds the min/max
					// bounds used for recentering below, but it contributes no new
					// measurement, so it's left out of maxRelShift.
					dxPrev, dyPrev := prevX[r.idx], prevY[r.idx]
					if first || dxPrev < minX {
						minX = dxPrev
					}
					if first || dxPrev > maxX {
						maxX = dxPrev
					}
					if first || dyPrev < minY {
						minY = dyPrev
					}
					if first || dyPrev > maxY {
						maxY = dyPrev
					}
					first = false
				case outcomeCorrected:
					dxPrev, dyPrev := prevX[r.idx], prevY[r.idx]
					xShiftsCur[r.idx], yShiftsCur[r.idx] = r.dx, r.dy
					surfaces[r.idx] = r.surface
					optima[r.idx] = r.optimum

					rel := absf(r.dx-dxPrev)
					if d := absf(r.dy - dyPrev); d > rel {
						rel = d
					}
					if first || rel > localMaxRel {
						localMaxRel = rel
					}
					if first || r.dx < minX {
						minX = r.dx
					}
					if first || r.dx > maxX {
						maxX = r.dx
					}
					if first || r.dy < minY {
						minY = r.dy
					}
					if first || r.dy > maxY {
						maxY = r.dy
					}
					first = false
				}
			}
			maxRelShift = localMaxRel
			if logWriter != nil {
				fmt.Fprintf(logWriter, "Iteration %d: max relative shift %.4f px\n", iteration, maxRelShift)
			}

			midX, midY := (minX+maxX)/2, (minY+maxY)/2
			for i := 0; i < n; i++ {
				if empty[i] {
					continue
				}
				xShiftsCur[i] -= midX
				yShiftsCur[i] -= midY
			}

			result.XShifts = append(result.XShifts, append([]float64(nil), xShiftsCur...))
			result.YShifts = append(result.YShifts, append([]float64(nil), yShiftsCur...))
			if params.KeepSurfaces {
				result.Metric = Metric{Values: surfaces, Optimum: optima, Name: corrMethodName(params.MethodCorr)}
			} else {
				result.Metric = Metric{Optimum: optima, Name: corrMethodName(params.MethodCorr)}
			}

			st = stateWarp

		case stateWarp:
			st = stateTemplate

		case stateConverged:
			// The internal warp/median-build machinery always uses NaN to mark
			// pixels with no contributing sample (template.Build and
			// registration's score() both depend on that exact sentinel to
			// exclude them), regardless of params.EmptyValue. Once the loop has
			// converged, replace any such border NaNs in the reported reference
			// with the caller's configured empty sentinel, so EmptyValue has its
			// spec §3/§4.9 effect on the one output buffer Run returns without
			// disturbing registration math during the iterations themselves.
			result.Reference = fillNaN(imgRef, params.EmptyValue)
			return result, nil
		}
	}
}

// fillNaN returns a copy of img with every NaN pixel replaced by fill. A
// no-op copy when fill is itself NaN.
func fillNaN(img []float32, fill float32) []float32 {
	out := make([]float32, len(img))
	if fill != fill {
		copy(out, img)
		return out
	}
	for i, v := range img {
		if v != v {
			out[i] = fill
		} else {
			out[i] = v
		}
	}
	return out
}

func isUniform(frame []float32) bool {
	s := sstats.New()
	sstats.AddSlice(s, frame)
	return s.Min() == s.Max()
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func nan() float64 {
	return math.NaN()
}

func padTemplate(template []float32, width, height, maxShift int) ([]float32, int) {
	paddedWidth := width + 2*maxShift
	paddedHeight := height + 2*maxShift
	padded := make([]float32, paddedWidth*paddedHeight)
	for i := range padded {
		padded[i] = float32(nan())
	}
	for r := 0; r < height; r++ {
		copy(padded[(r+maxShift)*paddedWidth+maxShift:(r+maxShift)*paddedWidth+maxShift+width], template[r*width:(r+1)*width])
	}
	return padded, paddedWidth
}

func corrMethodName(m registration.CorrMethod) string {
	switch m {
	case registration.SSD:
		return "ssd"
	case registration.SSDNormed:
		return "ssdNormed"
	case registration.XCorr:
		return "xcorr"
	case registration.NormXCorr:
		return "normXCorr"
	case registration.CorrCoeff:
		return "corrCoeff"
	default:
		return "normCorrCoeffNormed"
	}
}
