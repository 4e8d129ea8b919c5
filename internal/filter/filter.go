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

// Package filter implements the neighborhood iterator shared by every local
// statistical filter (weighted-sum, median, absolute-minimum-from-reference,
// category-adaptive median) plus the four kernels themselves. A filter is
// any value satisfying Kernel; the traversal skeleton is a free function
// generic in that capability, replacing the virtual-inheritance filter base
// class the source distribution used.
package filter

import (
	"fmt"

	"github.com/princeton-ecs/motioncorrect/internal/errs"
	"github.com/princeton-ecs/motioncorrect/internal/qselect"
)

// Kernel is the capability bound every local filter must satisfy. Clear
// resets per-pixel accumulator state; Add admits one neighborhood sample;
// Compute returns the output value for the pixel just finished.
type Kernel interface {
	Clear()
	Add(value float32, maskIdx, srcIdx, targetIdx int)
	Compute() float32
}

// Mask describes an odd-sized mh x mw weight kernel, row-major like a frame.
// Weights is nil for kernels (AbsMinFromRef, Median, AdaptiveMedian) that
// only need the footprint shape, not per-cell weights.
type Mask struct {
	Width, Height int
	Weights       []float32 // len == Width*Height, NaN entries excluded
}

// Apply runs the neighborhood-iteration skeleton (spec C4) over an
// outW x outH output frame, reading src (same dimensions), centering mask on
// every output pixel and skipping neighbors that fall outside the image
// (no mirroring, wrap, or padding). If selection is non-nil, a false entry
// copies the source pixel through unchanged without invoking the kernel.
//
// Apply validates the mask and buffer shapes before any kernel work runs
// (spec §7): a non-odd mask dimension, a Weights buffer whose length does
// not match the mask area, or a src/dst/selection buffer whose length does
// not match width*height, is reported as errs.ErrArguments.
func Apply(dst, src []float32, width, height int, mask Mask, k Kernel, selection []bool) error {
	if mask.Width%2 == 0 || mask.Height%2 == 0 {
		return fmt.Errorf("%w: mask size %dx%d is not odd", errs.ErrArguments, mask.Width, mask.Height)
	}
	if mask.Weights != nil && len(mask.Weights) != mask.Width*mask.Height {
		return fmt.Errorf("%w: mask weights length %d does not match mask area %dx%d", errs.ErrArguments, len(mask.Weights), mask.Width, mask.Height)
	}
	area := width * height
	if len(src) != area {
		return fmt.Errorf("%w: src length %d does not match image %dx%d", errs.ErrArguments, len(src), width, height)
	}
	if len(dst) != area {
		return fmt.Errorf("%w: dst length %d does not match image %dx%d", errs.ErrArguments, len(dst), width, height)
	}
	if selection != nil && len(selection) != area {
		return fmt.Errorf("%w: selection length %d does not match image %dx%d", errs.ErrArguments, len(selection), width, height)
	}

	halfW, halfH := mask.Width/2, mask.Height/2
	for tr := 0; tr < height; tr++ {
		for tc := 0; tc < width; tc++ {
			target := tr*width + tc
			if selection != nil && !selection[target] {
				dst[target] = src[target]
				continue
			}
			k.Clear()
			for my := 0; my < mask.Height; my++ {
				sy := tr + my - halfH
				if sy < 0 || sy >= height {
					continue
				}
				for mx := 0; mx < mask.Width; mx++ {
					sx := tc + mx - halfW
					if sx < 0 || sx >= width {
						continue
					}
					maskIdx := my*mask.Width + mx
					if mask.Weights != nil {
						w := mask.Weights[maskIdx]
						if w != w { // NaN weight excluded
							continue
						}
					}
					srcIdx := sy*width + sx
					k.Add(src[srcIdx], maskIdx, srcIdx, target)
				}
			}
			dst[target] = k.Compute()
		}
	}
	return nil
}

// WeightedSum implements compute = sumPixels/sumWeight when
// sumWeight > MinWeight, else EmptyValue. Masked suppresses matching source
// positions when non-nil (true = excluded).
type WeightedSum struct {
	Weights    []float32 // len == mask area, parallel to maskIdx
	Masked     []bool    // len == image area, indexed by srcIdx; nil = no mask
	EmptyValue float32
	MinWeight  float32

	sumPixels float64
	sumWeight float64
}

func (k *WeightedSum) Clear() { k.sumPixels, k.sumWeight = 0, 0 }

func (k *WeightedSum) Add(value float32, maskIdx, srcIdx, targetIdx int) {
	if value != value {
		return
	}
	if k.Masked != nil && k.Masked[srcIdx] {
		return
	}
	w := float32(1)
	if k.Weights != nil {
		w = k.Weights[maskIdx]
		if w != w {
			return
		}
	}
	k.sumPixels += float64(value * w)
	k.sumWeight += float64(w)
}

func (k *WeightedSum) Compute() float32 {
	if k.sumWeight > float64(k.MinWeight) {
		return float32(k.sumPixels / k.sumWeight)
	}
	return k.EmptyValue
}

// AbsMinFromRef tracks the admitted pixel whose |pixel-Ref| is smallest.
type AbsMinFromRef struct {
	Ref        float32
	EmptyValue float32

	best    float32
	bestAbs float32
	seen    bool
}

func (k *AbsMinFromRef) Clear() { k.seen = false }

func (k *AbsMinFromRef) Add(value float32, maskIdx, srcIdx, targetIdx int) {
	if value != value {
		return
	}
	d := value - k.Ref
	if d < 0 {
		d = -d
	}
	if !k.seen || d < k.bestAbs {
		k.best, k.bestAbs, k.seen = value, d, true
	}
}

func (k *AbsMinFromRef) Compute() float32 {
	if !k.seen {
		return k.EmptyValue
	}
	return k.best
}

// Median pushes admitted pixels into a scratch buffer and returns their
// quickselect median.
type Median struct {
	EmptyValue float32

	scratch []float32
	n       int
}

func (k *Median) Clear() {
	if k.scratch == nil {
		k.scratch = make([]float32, 0, 9)
	}
	k.scratch = k.scratch[:0]
	k.n = 0
}

func (k *Median) Add(value float32, maskIdx, srcIdx, targetIdx int) {
	if value != value {
		return
	}
	k.scratch = append(k.scratch, value)
	k.n++
}

func (k *Median) Compute() float32 {
	if k.n == 0 {
		return k.EmptyValue
	}
	if k.n == 9 {
		return qselect.Median9(k.scratch)
	}
	return qselect.Median(k.scratch, k.n)
}

// CategoryMap assigns each mask position a category in [0,K); K or above
// means "ignore this mask position" (spec C5 adaptive median).
type CategoryMap struct {
	Categories []int // len == mask area, indexed by maskIdx
	K          int
}

// AdaptiveMedian visits categories in order 0..K-1, concatenating matching
// values onto the scratch buffer until accumulated length exceeds
// TargetFrac * totalPixelsInCategoriesSoFar, then returns that scratch's
// median. If no category meets the threshold, EmptyValue.
type AdaptiveMedian struct {
	Categories CategoryMap
	TargetFrac float32
	EmptyValue float32

	perCategory [][]float32
	totalSeen   []int
}

func (k *AdaptiveMedian) Clear() {
	if k.perCategory == nil {
		k.perCategory = make([][]float32, k.Categories.K)
		k.totalSeen = make([]int, k.Categories.K)
	}
	for i := range k.perCategory {
		k.perCategory[i] = k.perCategory[i][:0]
		k.totalSeen[i] = 0
	}
}

func (k *AdaptiveMedian) Add(value float32, maskIdx, srcIdx, targetIdx int) {
	cat := k.Categories.Categories[maskIdx]
	if cat < 0 || cat >= k.Categories.K {
		return
	}
	k.totalSeen[cat]++
	if value != value {
		return
	}
	k.perCategory[cat] = append(k.perCategory[cat], value)
}

func (k *AdaptiveMedian) Compute() float32 {
	scratch := make([]float32, 0, 9)
	totalPixels := 0
	for cat := 0; cat < k.Categories.K; cat++ {
		scratch = append(scratch, k.perCategory[cat]...)
		totalPixels += k.totalSeen[cat]
		if totalPixels > 0 && float32(len(scratch)) > k.TargetFrac*float32(totalPixels) {
			return qselect.Median(scratch, len(scratch))
		}
	}
	return k.EmptyValue
}
