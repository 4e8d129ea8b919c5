package pixel

import "testing"

func TestTagString(t *testing.T) {
	cases := map[Tag]string{U8: "u8", I16: "i16", F32: "f32", F64: "f64", Bool: "bool"}
	for tag, want := range cases {
		if got := tag.String(); got != want {
			t.Errorf("Tag(%d).String() = %q, want %q", tag, got, want)
		}
	}
}

func TestIsFloat(t *testing.T) {
	for _, tag := range []Tag{F32, F64} {
		if !tag.IsFloat() {
			t.Errorf("%s: IsFloat() = false, want true", tag)
		}
	}
	for _, tag := range []Tag{U8, I8, U16, I16, U32, I32, U64, I64} {
		if tag.IsFloat() {
			t.Errorf("%s: IsFloat() = true, want false", tag)
		}
	}
}

func TestDispatchSlice(t *testing.T) {
	var sum uint64
	err := DispatchSlice(U16, []uint16{1, 2, 3}, Dispatcher{
		U16: func(s []uint16) {
			for _, v := range s {
				sum += uint64(v)
			}
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != 6 {
		t.Errorf("sum = %d, want 6", sum)
	}
}

func TestDispatchSliceUnsupported(t *testing.T) {
	err := DispatchSlice(Bool, []bool{true}, Dispatcher{})
	if err == nil {
		t.Fatal("expected error for unregistered tag, got nil")
	}
	if _, ok := err.(*UnsupportedFormatError); !ok {
		t.Errorf("error type = %T, want *UnsupportedFormatError", err)
	}
}

func TestDispatchSliceNoCallback(t *testing.T) {
	err := DispatchSlice(F32, []float32{1}, Dispatcher{})
	if err == nil {
		t.Fatal("expected error when no callback registered for tag")
	}
}

func TestToFloat64(t *testing.T) {
	if got := ToFloat64(int16(-5)); got != -5.0 {
		t.Errorf("ToFloat64(int16(-5)) = %v, want -5.0", got)
	}
	if got := ToFloat64(uint8(200)); got != 200.0 {
		t.Errorf("ToFloat64(uint8(200)) = %v, want 200.0", got)
	}
}
