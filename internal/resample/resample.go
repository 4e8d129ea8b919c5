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

// Package resample implements the condenser (precomputed area-weighted
// resampling tables between two rectangular grids) and the resample
// operator built on it. Used both standalone and fused into the warp
// pipeline's final stage (internal/warp).
package resample

const epsilon = 1e-15

// Condenser holds, for each target row/column, the integer range of
// contributing source rows/columns and their fractional overlap weights.
type Condenser struct {
	SrcW, SrcH int
	TgtW, TgtH int

	RowStart, RowBound []int
	ColStart, ColBound []int
	RowWeight          [][]float32
	ColWeight          [][]float32
}

// NewCondenser precomputes the per-axis weight tables for resampling a
// SrcW x SrcH grid down (or up) to TgtW x TgtH.
func NewCondenser(srcW, srcH, tgtW, tgtH int) *Condenser {
	c := &Condenser{SrcW: srcW, SrcH: srcH, TgtW: tgtW, TgtH: tgtH}
	c.RowStart, c.RowBound, c.RowWeight = computeAxis(srcH, tgtH)
	c.ColStart, c.ColBound, c.ColWeight = computeAxis(srcW, tgtW)
	return c
}

func computeAxis(numSource, numTarget int) (start, bound []int, weight [][]float32) {
	start = make([]int, numTarget)
	bound = make([]int, numTarget)
	weight = make([][]float32, numTarget)

	binWidth := float64(numSource) / float64(numTarget)
	for t := 0; t < numTarget; t++ {
		binStart := float64(t) * binWidth
		binEdge := binStart + binWidth
		start[t] = int(binStart + epsilon)
		bound[t] = int(binEdge - epsilon + 1)
		if bound[t] > numSource {
			bound[t] = numSource
		}

		w := make([]float32, 0, bound[t]-start[t])
		for pix := start[t]; pix < bound[t]; pix++ {
			pixUp := binEdge
			if pix < bound[t]-1 {
				pixUp = float64(pix + 1)
			}
			w = append(w, float32(pixUp-binStart))
			binStart = pixUp
		}
		weight[t] = w
	}
	return
}

// Resample fills dst (TgtW x TgtH) from src (SrcW x SrcH) using c's
// precomputed weight tables, accumulating the weighted mean per spec C6's
// incremental Welford-style update for numerical stability. NaN source
// pixels, zero/negative weights, and masked positions (masked != nil and
// true) are skipped; a target pixel with zero accumulated weight receives
// emptyValue.
func Resample(dst, src []float32, c *Condenser, masked []bool, emptyValue float32) {
	for tr := 0; tr < c.TgtH; tr++ {
		rs, rb := c.RowStart[tr], c.RowBound[tr]
		rw := c.RowWeight[tr]
		for tc := 0; tc < c.TgtW; tc++ {
			cs, cb := c.ColStart[tc], c.ColBound[tc]
			cw := c.ColWeight[tc]

			var mean, sumW float64
			for row := rs; row < rb; row++ {
				rW := float64(rw[row-rs])
				rowOff := row * c.SrcW
				for col := cs; col < cb; col++ {
					cW := float64(cw[col-cs])
					w := rW * cW
					if w <= 0 {
						continue
					}
					if masked != nil && masked[rowOff+col] {
						continue
					}
					x := float64(src[rowOff+col])
					if x != x {
						continue
					}
					wNew := sumW + w
					mean += (x - mean) * w / wNew
					sumW = wNew
				}
			}

			target := tr*c.TgtW + tc
			if sumW <= 0 {
				dst[target] = emptyValue
			} else {
				dst[target] = float32(mean)
			}
		}
	}
}
