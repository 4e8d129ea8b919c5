package blackframe

import "testing"

func TestBootstrap(t *testing.T) {
	frame := []float32{10, 10, 10, 10}
	tau := Bootstrap(frame, 0)
	if tau != 10 {
		t.Errorf("Bootstrap(k=0) on constant frame = %v, want 10", tau)
	}
}

func TestIsEmptyAllBelowTau(t *testing.T) {
	frame := []float32{1, 1, 1, 1}
	if !IsEmpty(frame, 5, 0.99) {
		t.Error("frame entirely below tau should be classified empty")
	}
}

func TestIsEmptyBrightFrame(t *testing.T) {
	frame := []float32{100, 100, 100, 100}
	if IsEmpty(frame, 5, 0.99) {
		t.Error("frame entirely above tau should not be classified empty")
	}
}

func TestDetectFirstFrameAlwaysEmpty(t *testing.T) {
	frames := [][]float32{{1, 1}, {1, 1}, {100, 100}}
	empty := Detect(frames, 0.5, nil)
	if !empty[0] {
		t.Error("frame 0 must always be marked empty by construction")
	}
}

func TestDetectUsesExplicitTau(t *testing.T) {
	frames := [][]float32{{0, 0}, {100, 100}}
	tau := float32(50)
	empty := Detect(frames, 0.5, &tau)
	if empty[1] {
		t.Error("frame above explicit tau should not be classified empty")
	}
}

func TestDetectEmptyFrameList(t *testing.T) {
	empty := Detect(nil, 0.5, nil)
	if len(empty) != 0 {
		t.Errorf("Detect(nil) = %v, want empty slice", empty)
	}
}
