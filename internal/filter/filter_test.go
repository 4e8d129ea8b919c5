package filter

import (
	"errors"
	"testing"

	"github.com/princeton-ecs/motioncorrect/internal/errs"
)

func TestApplyWeightedSumBoxBlur(t *testing.T) {
	width, height := 3, 3
	src := []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	dst := make([]float32, width*height)
	mask := Mask{Width: 3, Height: 3}
	k := &WeightedSum{EmptyValue: -1}
	if err := Apply(dst, src, width, height, mask, k, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Center pixel sees the whole 3x3 neighborhood; mean of 1..9 is 5.
	if dst[4] != 5 {
		t.Errorf("center = %v, want 5", dst[4])
	}
	// Corner pixel (0,0) only sees the 2x2 block {1,2,4,5}; mean is 3.
	if dst[0] != 3 {
		t.Errorf("corner = %v, want 3", dst[0])
	}
}

func TestApplySelectionPassthrough(t *testing.T) {
	width, height := 2, 2
	src := []float32{10, 20, 30, 40}
	dst := make([]float32, 4)
	mask := Mask{Width: 1, Height: 1}
	k := &WeightedSum{EmptyValue: -1}
	selection := []bool{true, false, true, false}
	if err := Apply(dst, src, width, height, mask, k, selection); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if dst[1] != src[1] || dst[3] != src[3] {
		t.Errorf("unselected pixels should pass through unchanged: dst=%v", dst)
	}
	if dst[0] != 10 || dst[2] != 30 {
		t.Errorf("selected pixels should be recomputed: dst=%v", dst)
	}
}

func TestMedianKernel(t *testing.T) {
	width, height := 3, 1
	src := []float32{9, 1, 5}
	dst := make([]float32, 3)
	mask := Mask{Width: 3, Height: 1}
	k := &Median{EmptyValue: -1}
	if err := Apply(dst, src, width, height, mask, k, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dst[1] != 5 {
		t.Errorf("middle pixel median = %v, want 5", dst[1])
	}
}

func TestAbsMinFromRef(t *testing.T) {
	width, height := 3, 1
	src := []float32{1, 10, 20}
	dst := make([]float32, 3)
	mask := Mask{Width: 3, Height: 1}
	k := &AbsMinFromRef{Ref: 9, EmptyValue: -1}
	if err := Apply(dst, src, width, height, mask, k, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// Middle pixel sees {1,10,20}; closest to 9 is 10.
	if dst[1] != 10 {
		t.Errorf("middle pixel = %v, want 10", dst[1])
	}
}

func TestAdaptiveMedian(t *testing.T) {
	width, height := 5, 1
	src := []float32{1, 2, 3, 4, 100}
	dst := make([]float32, width*height)
	mask := Mask{Width: 5, Height: 1}
	categories := CategoryMap{Categories: []int{0, 0, 0, 0, 1}, K: 2}
	k := &AdaptiveMedian{Categories: categories, TargetFrac: 0.5, EmptyValue: -1}
	if err := Apply(dst, src, width, height, mask, k, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// Category 0 alone ({1,2,3,4}) already exceeds 0.5*4=2 samples and is
	// visited first, so its median (2.5) should be returned without ever
	// touching category 1.
	if dst[2] != 2.5 {
		t.Errorf("center = %v, want 2.5", dst[2])
	}
}

func TestAdaptiveMedianEmptyValue(t *testing.T) {
	width, height := 1, 1
	src := []float32{42}
	dst := make([]float32, 1)
	mask := Mask{Width: 1, Height: 1}
	categories := CategoryMap{Categories: []int{5}, K: 2} // category 5 is out of range, ignored
	k := &AdaptiveMedian{Categories: categories, TargetFrac: 0.5, EmptyValue: -7}
	if err := Apply(dst, src, width, height, mask, k, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dst[0] != -7 {
		t.Errorf("dst[0] = %v, want EmptyValue -7", dst[0])
	}
}

func TestApplyRejectsNonOddMask(t *testing.T) {
	width, height := 3, 3
	src := make([]float32, width*height)
	dst := make([]float32, width*height)
	mask := Mask{Width: 2, Height: 3}
	err := Apply(dst, src, width, height, mask, &WeightedSum{}, nil)
	if !errors.Is(err, errs.ErrArguments) {
		t.Fatalf("err = %v, want errs.ErrArguments", err)
	}
}

func TestApplyRejectsMismatchedWeights(t *testing.T) {
	width, height := 3, 3
	src := make([]float32, width*height)
	dst := make([]float32, width*height)
	mask := Mask{Width: 3, Height: 3, Weights: []float32{1, 2, 3}} // want 9 entries
	err := Apply(dst, src, width, height, mask, &WeightedSum{}, nil)
	if !errors.Is(err, errs.ErrArguments) {
		t.Fatalf("err = %v, want errs.ErrArguments", err)
	}
}

func TestApplyRejectsMismatchedSelection(t *testing.T) {
	width, height := 3, 3
	src := make([]float32, width*height)
	dst := make([]float32, width*height)
	mask := Mask{Width: 1, Height: 1}
	selection := []bool{true, false} // want width*height == 9 entries
	err := Apply(dst, src, width, height, mask, &WeightedSum{}, selection)
	if !errors.Is(err, errs.ErrArguments) {
		t.Fatalf("err = %v, want errs.ErrArguments", err)
	}
}
