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

// Package warp applies an integer or sub-pixel affine shift to a frame,
// optionally followed by a NaN-mask pass and the condenser
// (internal/resample).
package warp

import (
	"math"

	"github.com/princeton-ecs/motioncorrect/internal/resample"
)

// Interpolation selects the resampling kernel used for non-integer shifts.
type Interpolation int

const (
	Nearest Interpolation = iota
	Linear
	Cubic
	Area
	Lanczos4
	IntegerShift
)

// Warp shifts src (width x height) by (dx, dy) per the sign convention
// shifted[r,c] == src[r-dy, c-dx], writing into a same-size dst. Pixels
// whose source falls outside the image become emptyValue. Cubic and
// Lanczos4 need their whole 4x4 or 8x8 support window inside the image,
// so samples close to the border also become emptyValue.
func Warp(dst, src []float32, width, height int, dx, dy float64, interp Interpolation, emptyValue float32) {
	if interp == IntegerShift {
		idx, idy := int(math.Round(dx)), int(math.Round(dy))
		for r := 0; r < height; r++ {
			sr := r - idy
			for c := 0; c < width; c++ {
				sc := c - idx
				target := r*width + c
				if sr < 0 || sr >= height || sc < 0 || sc >= width {
					dst[target] = emptyValue
					continue
				}
				dst[target] = src[sr*width+sc]
			}
		}
		return
	}

	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			target := r*width + c
			sx, sy := float64(c)-dx, float64(r)-dy
			v, ok := sample(src, width, height, sx, sy, interp)
			if !ok {
				dst[target] = emptyValue
				continue
			}
			dst[target] = v
		}
	}
}

// WarpAndCondense warps src into a full-size scratch frame (pixels whose
// source falls outside the image become NaN), sets the pixels flagged in
// nanMask to NaN, and then resamples that frame into the target grid
// described by cond. The warp and the resample are two separate passes
// over a full-size intermediate; they are not fused into one loop.
func WarpAndCondense(dst []float32, src []float32, width, height int, dx, dy float64, interp Interpolation, cond *resample.Condenser, nanMask []bool, emptyValue float32) {
	warped := make([]float32, width*height)
	Warp(warped, src, width, height, dx, dy, interp, float32(math.NaN()))
	if nanMask != nil {
		for i, masked := range nanMask {
			if masked {
				warped[i] = float32(math.NaN())
			}
		}
	}
	resample.Resample(dst, warped, cond, nil, emptyValue)
}

func sample(src []float32, width, height int, x, y float64, interp Interpolation) (float32, bool) {
	switch interp {
	case Nearest:
		return sampleNearest(src, width, height, x, y)
	case Linear, Area:
		return sampleBilinear(src, width, height, x, y)
	case Cubic:
		return sampleBicubic(src, width, height, x, y)
	case Lanczos4:
		return sampleLanczos(src, width, height, x, y, 4)
	default:
		return sampleBilinear(src, width, height, x, y)
	}
}

func inBounds(width, height int, x, y int) bool {
	return x >= 0 && x < width && y >= 0 && y < height
}

func sampleNearest(src []float32, width, height int, x, y float64) (float32, bool) {
	xi, yi := int(math.Round(x)), int(math.Round(y))
	if !inBounds(width, height, xi, yi) {
		return 0, false
	}
	return src[yi*width+xi], true
}

func sampleBilinear(src []float32, width, height int, x, y float64) (float32, bool) {
	if x < 0 || y < 0 || x > float64(width-1) || y > float64(height-1) {
		return 0, false
	}
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := x0+1, y0+1
	if x1 >= width {
		x1 = x0
	}
	if y1 >= height {
		y1 = y0
	}
	fx, fy := x-float64(x0), y-float64(y0)
	v00 := float64(src[y0*width+x0])
	v10 := float64(src[y0*width+x1])
	v01 := float64(src[y1*width+x0])
	v11 := float64(src[y1*width+x1])
	top := v00 + (v10-v00)*fx
	bot := v01 + (v11-v01)*fx
	return float32(top + (bot-top)*fy), true
}

func cubicWeight(t float64) float64 {
	a := -0.5
	t = math.Abs(t)
	switch {
	case t <= 1:
		return (a+2)*t*t*t - (a+3)*t*t + 1
	case t < 2:
		return a*t*t*t - 5*a*t*t + 8*a*t - 4*a
	default:
		return 0
	}
}

func sampleBicubic(src []float32, width, height int, x, y float64) (float32, bool) {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	if !inBounds(width, height, x0-1, y0-1) || !inBounds(width, height, x0+2, y0+2) {
		return 0, false
	}
	var sum, wsum float64
	for j := -1; j <= 2; j++ {
		wy := cubicWeight(y - float64(y0+j))
		for i := -1; i <= 2; i++ {
			wx := cubicWeight(x - float64(x0+i))
			w := wx * wy
			sum += w * float64(src[(y0+j)*width+(x0+i)])
			wsum += w
		}
	}
	if wsum == 0 {
		return 0, false
	}
	return float32(sum / wsum), true
}

func lanczosWeight(t float64, a int) float64 {
	if t == 0 {
		return 1
	}
	af := float64(a)
	if t <= -af || t >= af {
		return 0
	}
	piT := math.Pi * t
	return af * math.Sin(piT) * math.Sin(piT/af) / (piT * piT)
}

func sampleLanczos(src []float32, width, height int, x, y float64, a int) (float32, bool) {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	if !inBounds(width, height, x0-a+1, y0-a+1) || !inBounds(width, height, x0+a, y0+a) {
		return 0, false
	}
	var sum, wsum float64
	for j := -a + 1; j <= a; j++ {
		wy := lanczosWeight(y-float64(y0+j), a)
		for i := -a + 1; i <= a; i++ {
			wx := lanczosWeight(x-float64(x0+i), a)
			w := wx * wy
			sum += w * float64(src[(y0+j)*width+(x0+i)])
			wsum += w
		}
	}
	if wsum == 0 {
		return 0, false
	}
	return float32(sum / wsum), true
}
