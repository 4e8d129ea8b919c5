package motioncorrect

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/princeton-ecs/motioncorrect/internal/registration"
	"github.com/princeton-ecs/motioncorrect/internal/warp"
)

// makePatternFrame fills a width x height frame with a deterministic
// pseudo-random pattern, giving template matching a unique optimum to lock
// onto (a flat or low-period pattern risks spurious ties).
func makePatternFrame(width, height int) []float32 {
	frame := make([]float32, width*height)
	state := uint32(77)
	for i := range frame {
		state = state*1664525 + 1013904223
		frame[i] = float32(state%500) + 1
	}
	return frame
}

// shiftFrame returns a copy of frame translated by (dx,dy) integer pixels,
// via warp.Warp with IntegerShift, mirroring loop.go's own use of warp.Warp.
func shiftFrame(frame []float32, width, height int, dx, dy int) []float32 {
	out := make([]float32, width*height)
	warp.Warp(out, frame, width, height, float64(dx), float64(dy), warp.IntegerShift, 0)
	return out
}

func TestRunRejectsTooFewPixels(t *testing.T) {
	frames := [][]float32{{1}, {2}}
	_, err := Run(context.Background(), frames, 1, 1, nil, nil)
	if err == nil {
		t.Fatal("expected error for 1x1 frames")
	}
}

func TestRunRejectsUniformFrame(t *testing.T) {
	width, height := 4, 4
	frames := [][]float32{make([]float32, width*height)}
	_, err := Run(context.Background(), frames, width, height, nil, nil)
	if err == nil {
		t.Fatal("expected error for a uniform frame")
	}
}

func TestRunConvergesOnKnownShift(t *testing.T) {
	width, height := 12, 12
	ref := makePatternFrame(width, height)
	shifted := shiftFrame(ref, width, height, 2, -1)

	params := NewParamsDefault()
	params.MaxShift = 4
	params.MaxIter = 8
	params.Subpixel = false

	result, err := Run(context.Background(), [][]float32{ref, shifted}, width, height, params, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Iteration == 0 {
		t.Fatal("expected at least one iteration")
	}
	last := len(result.XShifts) - 1
	// Shifts are recentered around the midpoint of their range each iteration (loop.go's
	// midX/midY step), so only the *difference* between frame 0 and frame 1
	// is meaningful, not their absolute values.
	gotDX := result.XShifts[last][1] - result.XShifts[last][0]
	gotDY := result.YShifts[last][1] - result.YShifts[last][0]
	if math.Round(gotDX) != 2 || math.Round(gotDY) != -1 {
		t.Errorf("relative shift = (%v,%v), want (2,-1)", gotDX, gotDY)
	}
}

func TestRunRespectsMaxIter(t *testing.T) {
	width, height := 10, 10
	ref := makePatternFrame(width, height)
	shifted := shiftFrame(ref, width, height, 1, 1)

	params := NewParamsDefault()
	params.MaxIter = 2
	params.StopBelowShift = -1 // never satisfied, forcing the iteration cap

	result, err := Run(context.Background(), [][]float32{ref, shifted}, width, height, params, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Iteration != params.MaxIter {
		t.Errorf("Iteration = %d, want %d", result.Iteration, params.MaxIter)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	width, height := 8, 8
	ref := makePatternFrame(width, height)
	shifted := shiftFrame(ref, width, height, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, [][]float32{ref, shifted}, width, height, NewParamsDefault(), nil)
	if err != ErrCancelled {
		t.Errorf("err = %v, want ErrCancelled", err)
	}
}

// makeNoiseFrame fills a frame with small, non-uniform values meant to sit
// well below a bootstrapped noise-floor threshold, standing in for a
// near-black acquisition frame.
func makeNoiseFrame(width, height int, seed uint32) []float32 {
	frame := make([]float32, width*height)
	state := seed
	for i := range frame {
		state = state*1664525 + 1013904223
		frame[i] = float32(state % 6)
	}
	return frame
}

func TestRunSkipsBlackFrames(t *testing.T) {
	width, height := 10, 10
	noise0 := makeNoiseFrame(width, height, 1)
	bright := makePatternFrame(width, height)
	for i := range bright {
		bright[i] += 200
	}
	noise2 := makeNoiseFrame(width, height, 2)

	params := NewParamsDefault()
	params.BlackTolerance = 0.9
	params.MaxIter = 1

	result, err := Run(context.Background(), [][]float32{noise0, bright, noise2}, width, height, params, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !result.Empty[0] {
		t.Error("frame 0 must always be classified empty by construction")
	}
	if result.Empty[1] {
		t.Error("the bright frame should not have been classified empty")
	}
	if !result.Empty[2] {
		t.Error("the low-valued noise frame should have been classified empty")
	}
}

// TestRunTreatsExactZeroFrameAsEmptyNotFatal mirrors spec.md Scenario C: an
// exact-zero frame sitting among natural frames is itself uniform
// (min==max==0), but the stack as a whole is not, so Run must tolerate it
// via black-frame detection (pinned to a zero shift) rather than rejecting
// the whole run with ErrInvalidInput. The noise frame bootstraps a tight
// noise floor (as in TestRunSkipsBlackFrames) so the bright natural frame
// sits well above tau and only the exact-zero frame is classified empty.
func TestRunTreatsExactZeroFrameAsEmptyNotFatal(t *testing.T) {
	width, height := 10, 10
	noise0 := makeNoiseFrame(width, height, 1)
	bright := makePatternFrame(width, height)
	for i := range bright {
		bright[i] += 200
	}
	zero := make([]float32, width*height)

	params := NewParamsDefault()
	params.BlackTolerance = 0.5
	params.MaxShift = 3
	params.MaxIter = 2
	params.MethodInterp = warp.IntegerShift

	frames := [][]float32{noise0, bright, zero}
	result, err := Run(context.Background(), frames, width, height, params, nil)
	if err != nil {
		t.Fatalf("Run returned error for a stack containing one exact-zero frame: %v", err)
	}
	if !result.Empty[2] {
		t.Error("the exact-zero frame should have been classified empty, not fatal")
	}
	last := len(result.XShifts) - 1
	if result.XShifts[last][2] != 0 || result.YShifts[last][2] != 0 {
		t.Errorf("empty frame shift = (%v,%v), want (0,0)", result.XShifts[last][2], result.YShifts[last][2])
	}
}

func TestRunRejectsArgumentsMismatch(t *testing.T) {
	width, height := 4, 4
	frames := [][]float32{make([]float32, width*height), make([]float32, width*height-1)}
	_, err := Run(context.Background(), frames, width, height, nil, nil)
	if !errors.Is(err, ErrArguments) {
		t.Fatalf("err = %v, want ErrArguments", err)
	}
}

func TestIsUniform(t *testing.T) {
	if !isUniform([]float32{5, 5, 5}) {
		t.Error("constant frame should be uniform")
	}
	if isUniform([]float32{5, 6, 5}) {
		t.Error("non-constant frame should not be uniform")
	}
}

func TestAbsf(t *testing.T) {
	if absf(-3.5) != 3.5 {
		t.Errorf("absf(-3.5) = %v, want 3.5", absf(-3.5))
	}
	if absf(3.5) != 3.5 {
		t.Errorf("absf(3.5) = %v, want 3.5", absf(3.5))
	}
}

func TestPadTemplate(t *testing.T) {
	tpl := []float32{1, 2, 3, 4}
	padded, paddedWidth := padTemplate(tpl, 2, 2, 1)
	if paddedWidth != 4 {
		t.Fatalf("paddedWidth = %d, want 4", paddedWidth)
	}
	if padded[1*4+1] != 1 || padded[1*4+2] != 2 || padded[2*4+1] != 3 || padded[2*4+2] != 4 {
		t.Errorf("padded = %v, want the template placed at offset (1,1)", padded)
	}
	if !math.IsNaN(float64(padded[0])) {
		t.Errorf("padded border should be NaN, got %v", padded[0])
	}
}

func TestCorrMethodName(t *testing.T) {
	cases := map[registration.CorrMethod]string{
		registration.SSD:                 "ssd",
		registration.SSDNormed:           "ssdNormed",
		registration.XCorr:               "xcorr",
		registration.NormXCorr:           "normXCorr",
		registration.CorrCoeff:           "corrCoeff",
		registration.NormCorrCoeffNormed: "normCorrCoeffNormed",
	}
	for method, want := range cases {
		if got := corrMethodName(method); got != want {
			t.Errorf("corrMethodName(%v) = %q, want %q", method, got, want)
		}
	}
}

func TestParamsDefaults(t *testing.T) {
	p := NewParamsDefault()
	if p.MaxShift != 5 || p.MaxIter != 10 || p.MethodCorr != registration.NormCorrCoeffNormed {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestParamsUnmarshalJSONOverlaysDefaults(t *testing.T) {
	data := []byte(`{"maxShift": 9}`)
	var p Params
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if p.MaxShift != 9 {
		t.Errorf("MaxShift = %d, want 9 (explicit override)", p.MaxShift)
	}
	if p.MaxIter != 10 {
		t.Errorf("MaxIter = %d, want 10 (default retained)", p.MaxIter)
	}
	if p.MethodInterp != warp.Linear {
		t.Errorf("MethodInterp = %v, want default Linear", p.MethodInterp)
	}
}
