package source

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/princeton-ecs/motioncorrect/internal/pixel"
)

func TestConvertToFloat32Uint8(t *testing.T) {
	raw := []byte{0, 128, 255}
	out, err := ConvertToFloat32(pixel.U8, raw, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float32{0, 128, 255}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestConvertToFloat32Int16(t *testing.T) {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint16(raw[0:], uint16(int16(-1)))
	binary.LittleEndian.PutUint16(raw[2:], uint16(int16(300)))
	out, err := ConvertToFloat32(pixel.I16, raw, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != -1 || out[1] != 300 {
		t.Errorf("out = %v, want [-1 300]", out)
	}
}

func TestConvertToFloat32Float32(t *testing.T) {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, math.Float32bits(3.5))
	out, err := ConvertToFloat32(pixel.F32, raw, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 3.5 {
		t.Errorf("out[0] = %v, want 3.5", out[0])
	}
}

func TestConvertToFloat32Float64(t *testing.T) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint64(raw, math.Float64bits(2.25))
	out, err := ConvertToFloat32(pixel.F64, raw, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 2.25 {
		t.Errorf("out[0] = %v, want 2.25", out[0])
	}
}

func TestConvertToFloat32Unsupported(t *testing.T) {
	_, err := ConvertToFloat32(pixel.Tag(99), nil, 0)
	if err == nil {
		t.Error("expected error for unsupported tag")
	}
}
