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

// Package mesh warps a frame through a sparse, time-varying control-point
// mesh instead of a single rigid shift: each mesh quad is split into two
// triangles and warped with its own locally linear (affine) map, which is
// far cheaper than a per-pixel non-linear solve and adequate when
// deformation is smooth relative to the mesh spacing (spec §6, C12).
package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/princeton-ecs/motioncorrect/internal/errs"
)

// Frame is a plain row-major grayscale image, mirroring the buffer shape
// used by internal/warp and internal/resample.
type Frame struct {
	Width, Height int
	Data          []float32
}

// triangle indexes three control points by their position in the
// row-major control-point grid.
type triangle [3]int

// affine2D maps (x,y,1) to (x',y') via a solved 3x3 linear system.
type affine2D struct {
	a, b, c float64 // x' = a*x + b*y + c
	d, e, f float64 // y' = d*x + e*y + f
}

func (t affine2D) apply(x, y float64) (float64, float64) {
	return t.a*x + t.b*y + t.c, t.d*x + t.e*y + t.f
}

// solveAffine finds the affine map taking the three (fx,fy) points to the
// three (tx,ty) points, i.e. target = affine(source).
func solveAffine(fx, fy, tx, ty [3]float64) (affine2D, error) {
	m := mat.NewDense(3, 3, []float64{
		fx[0], fy[0], 1,
		fx[1], fy[1], 1,
		fx[2], fy[2], 1,
	})
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return affine2D{}, fmt.Errorf("mesh: degenerate triangle: %w", err)
	}

	var coefX, coefY mat.VecDense
	coefX.MulVec(&inv, mat.NewVecDense(3, []float64{tx[0], tx[1], tx[2]}))
	coefY.MulVec(&inv, mat.NewVecDense(3, []float64{ty[0], ty[1], ty[2]}))

	return affine2D{
		a: coefX.AtVec(0), b: coefX.AtVec(1), c: coefX.AtVec(2),
		d: coefY.AtVec(0), e: coefY.AtVec(1), f: coefY.AtVec(2),
	}, nil
}

// gridTriangles splits a gridRows x gridCols regular control-point grid
// (row-major, the only layout supported; irregular/scattered meshes are a
// documented limitation requiring a real Delaunay triangulation, which
// this package does not implement) into two triangles per quad.
func gridTriangles(gridRows, gridCols int) []triangle {
	tris := make([]triangle, 0, 2*(gridRows-1)*(gridCols-1))
	idx := func(r, c int) int { return r*gridCols + c }
	for r := 0; r < gridRows-1; r++ {
		for c := 0; c < gridCols-1; c++ {
			tl, tr := idx(r, c), idx(r, c+1)
			bl, br := idx(r+1, c), idx(r+1, c+1)
			tris = append(tris, triangle{tl, tr, bl})
			tris = append(tris, triangle{tr, br, bl})
		}
	}
	return tris
}

// barycentricSign returns twice the signed area of the triangle (p0,p1,p2),
// used both to test triangle orientation and point membership.
func barycentricSign(px, py, qx, qy, rx, ry float64) float64 {
	return (px-rx)*(qy-ry) - (qx-rx)*(py-ry)
}

func pointInTriangle(x, y float64, ax, ay, bx, by, cx, cy float64) bool {
	d1 := barycentricSign(x, y, ax, ay, bx, by)
	d2 := barycentricSign(x, y, bx, by, cx, cy)
	d3 := barycentricSign(x, y, cx, cy, ax, ay)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func boundsOf(xs, ys [3]float64) (minX, minY, maxX, maxY float64) {
	minX, maxX = xs[0], xs[0]
	minY, maxY = ys[0], ys[0]
	for i := 1; i < 3; i++ {
		if xs[i] < minX {
			minX = xs[i]
		}
		if xs[i] > maxX {
			maxX = xs[i]
		}
		if ys[i] < minY {
			minY = ys[i]
		}
		if ys[i] > maxY {
			maxY = ys[i]
		}
	}
	return
}

func sampleBilinear(src Frame, x, y float64, outOfBounds float32) float32 {
	if x < 0 || y < 0 || x >= float64(src.Width-1) || y >= float64(src.Height-1) {
		if x < 0 || y < 0 || x > float64(src.Width-1) || y > float64(src.Height-1) {
			return outOfBounds
		}
	}
	x0, y0 := int(x), int(y)
	x1, y1 := x0+1, y0+1
	if x1 >= src.Width {
		x1 = x0
	}
	if y1 >= src.Height {
		y1 = y0
	}
	xr, yr := x-float64(x0), y-float64(y0)
	v00 := float64(src.Data[y0*src.Width+x0])
	v10 := float64(src.Data[y0*src.Width+x1])
	v01 := float64(src.Data[y1*src.Width+x0])
	v11 := float64(src.Data[y1*src.Width+x1])
	vTop := v00*(1-xr) + v10*xr
	vBot := v01*(1-xr) + v11*xr
	return float32(vTop*(1-yr) + vBot*yr)
}

// Warp resamples source onto a target frame of the same dimensions, using a
// per-triangle affine map derived from the control-point correspondences
// (xSample,ySample) -> (xTarget,yTarget). Both coordinate lists are
// row-major samples of a gridRows x gridCols regular mesh. Target pixels
// that fall outside every triangle receive outOfBounds.
func Warp(source Frame, xSample, ySample, xTarget, yTarget []float64, gridRows, gridCols int, outOfBounds float32) (Frame, error) {
	n := gridRows * gridCols
	if len(xSample) != n || len(ySample) != n || len(xTarget) != n || len(yTarget) != n {
		return Frame{}, fmt.Errorf("%w: mesh control point count mismatch: grid wants %d, got sample=%d/%d target=%d/%d",
			errs.ErrArguments, n, len(xSample), len(ySample), len(xTarget), len(yTarget))
	}

	dst := Frame{Width: source.Width, Height: source.Height, Data: make([]float32, source.Width*source.Height)}
	for i := range dst.Data {
		dst.Data[i] = outOfBounds
	}

	for _, tri := range gridTriangles(gridRows, gridCols) {
		sx := [3]float64{xSample[tri[0]], xSample[tri[1]], xSample[tri[2]]}
		sy := [3]float64{ySample[tri[0]], ySample[tri[1]], ySample[tri[2]]}
		tx := [3]float64{xTarget[tri[0]], xTarget[tri[1]], xTarget[tri[2]]}
		ty := [3]float64{yTarget[tri[0]], yTarget[tri[1]], yTarget[tri[2]]}

		// target -> source, so we can iterate target pixels and pull samples.
		inv, err := solveAffine(tx, ty, sx, sy)
		if err != nil {
			continue // degenerate triangle (collinear control points): leave gap as outOfBounds
		}

		minX, minY, maxX, maxY := boundsOf(tx, ty)
		r0, r1 := clampInt(int(minY), 0, dst.Height-1), clampInt(int(maxY)+1, 0, dst.Height-1)
		c0, c1 := clampInt(int(minX), 0, dst.Width-1), clampInt(int(maxX)+1, 0, dst.Width-1)

		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				fx, fy := float64(c), float64(r)
				if !pointInTriangle(fx, fy, tx[0], ty[0], tx[1], ty[1], tx[2], ty[2]) {
					continue
				}
				srcX, srcY := inv.apply(fx, fy)
				dst.Data[r*dst.Width+c] = sampleBilinear(source, srcX, srcY, outOfBounds)
			}
		}
	}
	return dst, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
