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

package source

import (
	"encoding/binary"
	"math"

	"github.com/princeton-ecs/motioncorrect/internal/pixel"
)

// decodeTyped parses a raw little-endian sample buffer of the given pixel
// tag into the corresponding concrete Go slice type. This byte-width-specific
// decoding has no type-agnostic shortcut (binary.LittleEndian has one method
// per word size), so it stays a switch; the widening that follows it is what
// C1 dispatch covers.
func decodeTyped(tag pixel.Tag, raw []byte, count int) (interface{}, error) {
	switch tag {
	case pixel.U8:
		out := make([]uint8, count)
		copy(out, raw[:count])
		return out, nil
	case pixel.I8:
		out := make([]int8, count)
		for i := 0; i < count; i++ {
			out[i] = int8(raw[i])
		}
		return out, nil
	case pixel.U16:
		out := make([]uint16, count)
		for i := 0; i < count; i++ {
			out[i] = binary.LittleEndian.Uint16(raw[i*2:])
		}
		return out, nil
	case pixel.I16:
		out := make([]int16, count)
		for i := 0; i < count; i++ {
			out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}
		return out, nil
	case pixel.U32:
		out := make([]uint32, count)
		for i := 0; i < count; i++ {
			out[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
		return out, nil
	case pixel.I32:
		out := make([]int32, count)
		for i := 0; i < count; i++ {
			out[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	case pixel.U64:
		out := make([]uint64, count)
		for i := 0; i < count; i++ {
			out[i] = binary.LittleEndian.Uint64(raw[i*8:])
		}
		return out, nil
	case pixel.I64:
		out := make([]int64, count)
		for i := 0; i < count; i++ {
			out[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return out, nil
	case pixel.F32:
		out := make([]float32, count)
		for i := 0; i < count; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	case pixel.F64:
		out := make([]float64, count)
		for i := 0; i < count; i++ {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return out, nil
	default:
		return nil, &pixel.UnsupportedFormatError{Reason: "ConvertToFloat32: " + tag.String()}
	}
}

// ConvertToFloat32 widens a raw little-endian sample buffer of the given
// pixel tag to float32. Used by the raw multi-page TIFF path (ScanImage
// stacks), where strips are read as untyped bytes with no decoder to hand
// typed slices to: decodeTyped parses the bytes into the tag's concrete
// slice type, then pixel.DispatchSlice drives the single C1 dispatch point
// that widens each of the ten supported variants to float32.
func ConvertToFloat32(tag pixel.Tag, raw []byte, count int) ([]float32, error) {
	typed, err := decodeTyped(tag, raw, count)
	if err != nil {
		return nil, err
	}
	out := make([]float32, count)
	err = pixel.DispatchSlice(tag, typed, pixel.Dispatcher{
		U8:  func(s []uint8) { widenTo(out, s) },
		I8:  func(s []int8) { widenTo(out, s) },
		U16: func(s []uint16) { widenTo(out, s) },
		I16: func(s []int16) { widenTo(out, s) },
		U32: func(s []uint32) { widenTo(out, s) },
		I32: func(s []int32) { widenTo(out, s) },
		U64: func(s []uint64) { widenTo(out, s) },
		I64: func(s []int64) { widenTo(out, s) },
		F32: func(s []float32) { copy(out, s) },
		F64: func(s []float64) { widenTo(out, s) },
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// widenTo widens each element of s into the matching position of out via
// pixel.ToFloat64, rounding back to float32 at the boundary (matching the
// precision internal/source's scratch buffers use throughout).
func widenTo[T pixel.Numeric](out []float32, s []T) {
	for i, v := range s {
		out[i] = float32(pixel.ToFloat64(v))
	}
}
