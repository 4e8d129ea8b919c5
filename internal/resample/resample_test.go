package resample

import "testing"

func TestResampleIdentity(t *testing.T) {
	c := NewCondenser(4, 4, 4, 4)
	src := []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	dst := make([]float32, 16)
	Resample(dst, src, c, nil, -1)
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("identity resample[%d] = %v, want %v", i, dst[i], src[i])
		}
	}
}

func TestResampleHalfDownsample(t *testing.T) {
	c := NewCondenser(4, 4, 2, 2)
	src := []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	dst := make([]float32, 4)
	Resample(dst, src, c, nil, -1)
	want := []float32{3.5, 5.5, 11.5, 13.5}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("downsample[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestResampleAllMaskedYieldsEmptyValue(t *testing.T) {
	c := NewCondenser(2, 2, 1, 1)
	src := []float32{1, 2, 3, 4}
	masked := []bool{true, true, true, true}
	dst := make([]float32, 1)
	Resample(dst, src, c, masked, -99)
	if dst[0] != -99 {
		t.Errorf("dst[0] = %v, want -99", dst[0])
	}
}

func TestResampleSkipsNaN(t *testing.T) {
	nan := float32(0)
	nan = nan / nan
	c := NewCondenser(2, 1, 1, 1)
	src := []float32{nan, 10}
	dst := make([]float32, 1)
	Resample(dst, src, c, nil, -1)
	if dst[0] != 10 {
		t.Errorf("dst[0] = %v, want 10 (NaN source excluded)", dst[0])
	}
}
