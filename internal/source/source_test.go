package source

import "testing"

func TestDetectSampleFormatExplicitTagWins(t *testing.T) {
	got := detectSampleFormat(8, -5, true, IEEEFP)
	if got != IEEEFP {
		t.Errorf("detectSampleFormat with explicit tag = %v, want IEEEFP", got)
	}
}

func TestDetectSampleFormatWideIsFloat(t *testing.T) {
	got := detectSampleFormat(32, 0, false, UInt)
	if got != IEEEFP {
		t.Errorf("detectSampleFormat(32 bits) = %v, want IEEEFP", got)
	}
}

func TestDetectSampleFormatNegativeMinIsSigned(t *testing.T) {
	got := detectSampleFormat(16, -100, false, UInt)
	if got != Int {
		t.Errorf("detectSampleFormat(negative min) = %v, want Int", got)
	}
}

func TestDetectSampleFormatNonNegativeMinIsUnsigned(t *testing.T) {
	got := detectSampleFormat(16, 0, false, Int)
	if got != UInt {
		t.Errorf("detectSampleFormat(min=0) = %v, want UInt", got)
	}
}

func TestInconsistentStackErrorMessage(t *testing.T) {
	err := &InconsistentStackError{FilePath: "frame007.tif", Reason: "got 512x512, want 256x256"}
	want := "inconsistent stack at frame007.tif: got 512x512, want 256x256"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
