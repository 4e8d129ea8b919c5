package mesh

import "testing"

func TestGridTrianglesCount(t *testing.T) {
	tris := gridTriangles(3, 3)
	if len(tris) != 8 {
		t.Errorf("len(tris) = %d, want 8 (2 per quad, 2x2 quads)", len(tris))
	}
}

func TestPointInTriangle(t *testing.T) {
	if !pointInTriangle(1, 1, 0, 0, 4, 0, 0, 4) {
		t.Error("(1,1) should be inside the triangle (0,0)-(4,0)-(0,4)")
	}
	if pointInTriangle(10, 10, 0, 0, 4, 0, 0, 4) {
		t.Error("(10,10) should be outside the triangle (0,0)-(4,0)-(0,4)")
	}
}

func TestWarpRejectsControlPointMismatch(t *testing.T) {
	src := Frame{Width: 2, Height: 2, Data: []float32{1, 2, 3, 4}}
	_, err := Warp(src, []float64{0, 1}, []float64{0, 1}, []float64{0, 1}, []float64{0, 1}, 2, 2, -1)
	if err == nil {
		t.Error("expected error when control point count does not match gridRows*gridCols")
	}
}

func TestWarpIdentityIsUnchanged(t *testing.T) {
	width, height := 4, 4
	data := make([]float32, width*height)
	for i := range data {
		data[i] = float32(i)
	}
	src := Frame{Width: width, Height: height, Data: data}

	x := []float64{0, 3, 0, 3}
	y := []float64{0, 0, 3, 3}

	dst, err := Warp(src, x, y, x, y, 2, 2, -1)
	if err != nil {
		t.Fatalf("Warp error: %v", err)
	}
	for i := range data {
		if dst.Data[i] != data[i] {
			t.Errorf("dst.Data[%d] = %v, want %v (identity map)", i, dst.Data[i], data[i])
		}
	}
}

func TestWarpConstantShift(t *testing.T) {
	width, height := 4, 4
	data := make([]float32, width*height)
	for i := range data {
		data[i] = float32(i)
	}
	src := Frame{Width: width, Height: height, Data: data}

	xSample := []float64{0, 3, 0, 3}
	ySample := []float64{0, 0, 3, 3}
	xTarget := []float64{1, 4, 1, 4}
	yTarget := ySample

	dst, err := Warp(src, xSample, ySample, xTarget, yTarget, 2, 2, -1)
	if err != nil {
		t.Fatalf("Warp error: %v", err)
	}
	for r := 0; r < height; r++ {
		// column 0 falls outside every target-space triangle (the mesh was
		// shifted right by 1), so it keeps the out-of-bounds fill value.
		if dst.Data[r*width+0] != -1 {
			t.Errorf("dst[%d,0] = %v, want -1 (outside every triangle)", r, dst.Data[r*width+0])
		}
		for c := 1; c < width; c++ {
			want := src.Data[r*width+(c-1)]
			got := dst.Data[r*width+c]
			if got != want {
				t.Errorf("dst[%d,%d] = %v, want %v", r, c, got, want)
			}
		}
	}
}

func TestSolveAffineRecoversTranslation(t *testing.T) {
	fx := [3]float64{0, 1, 0}
	fy := [3]float64{0, 0, 1}
	tx := [3]float64{2, 3, 2}
	ty := [3]float64{5, 5, 6}

	a, err := solveAffine(fx, fy, tx, ty)
	if err != nil {
		t.Fatalf("solveAffine error: %v", err)
	}
	x, y := a.apply(0, 0)
	if x != 2 || y != 5 {
		t.Errorf("apply(0,0) = (%v,%v), want (2,5)", x, y)
	}
}

func TestSolveAffineDegenerateTriangle(t *testing.T) {
	fx := [3]float64{0, 1, 2}
	fy := [3]float64{0, 0, 0} // collinear
	tx := [3]float64{0, 1, 2}
	ty := [3]float64{0, 0, 0}

	_, err := solveAffine(fx, fy, tx, ty)
	if err == nil {
		t.Error("expected error for a collinear (degenerate) triangle")
	}
}
