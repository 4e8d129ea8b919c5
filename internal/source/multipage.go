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
	"fmt"
	"os"

	"github.com/princeton-ecs/motioncorrect/internal/pixel"
)

const (
	tagImageWidth     = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagSampleFormat    = 339
	compressionNone    = 1
)

// MultiPageSource implements FrameSource over a single multi-IFD TIFF file
// (the typical ScanImage acquisition layout: tens of thousands of frames
// in one file). Each IFD is one frame; strips must be uncompressed, since
// golang.org/x/image/tiff only decodes a file's first page and cannot be
// reused here.
type MultiPageSource struct {
	data    []byte
	order   binary.ByteOrder
	offsets []uint32
	header  Header
	tag     pixel.Tag
	cursor  int
}

// NewMultiPageSource opens path and indexes every IFD without decoding
// pixel data.
func NewMultiPageSource(path string) (*MultiPageSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	offsets, order, err := walkIFDs(data)
	if err != nil {
		return nil, err
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("%s: no IFDs found", path)
	}

	s := &MultiPageSource{data: data, order: order, offsets: offsets}
	width, height, bits, format, err := s.frameGeometry(0)
	if err != nil {
		return nil, err
	}
	s.tag = tagFor(bits, format)
	s.header = Header{
		Width: width, Height: height, BitsPerSample: bits, SampleFormat: format,
		Frames: len(offsets), FirstFrame: 0, LastFrame: len(offsets) - 1,
	}
	for i := 1; i < len(offsets); i++ {
		w, h, b, f, err := s.frameGeometry(i)
		if err != nil {
			return nil, err
		}
		if w != width || h != height || b != bits || f != format {
			return nil, &InconsistentStackError{FilePath: path, Reason: fmt.Sprintf("IFD %d: got %dx%d/%d-bit/%v, want %dx%d/%d-bit/%v", i, w, h, b, f, width, height, bits, format)}
		}
	}
	return s, nil
}

func (s *MultiPageSource) Header() Header { return s.header }
func (s *MultiPageSource) Reset()         { s.cursor = 0 }

func (s *MultiPageSource) NextFrame() ([]float32, bool) {
	if s.cursor >= len(s.offsets) {
		return nil, false
	}
	data, err := s.readFrame(s.cursor)
	s.cursor++
	if err != nil {
		return nil, false
	}
	return data, true
}

func (s *MultiPageSource) entries(ifdIdx int) []ifdEntry {
	return readIFD(s.data, s.offsets[ifdIdx], s.order)
}

func (s *MultiPageSource) frameGeometry(ifdIdx int) (width, height, bits int, format SampleFormat, err error) {
	var compression uint32 = compressionNone
	var explicitFormat uint32
	hasFormat := false
	for _, e := range s.entries(ifdIdx) {
		switch e.tag {
		case tagImageWidth:
			width = int(e.asUint32(s.order))
		case tagImageLength:
			height = int(e.asUint32(s.order))
		case tagBitsPerSample:
			bits = int(e.asUint32(s.order))
		case tagCompression:
			compression = e.asUint32(s.order)
		case tagSampleFormat:
			explicitFormat = e.asUint32(s.order)
			hasFormat = true
		}
	}
	if compression != compressionNone {
		return 0, 0, 0, 0, fmt.Errorf("IFD %d: compressed strips not supported", ifdIdx)
	}
	format = detectSampleFormat(bits, 0, hasFormat, SampleFormat(explicitFormat-1))
	return width, height, bits, format, nil
}

func (s *MultiPageSource) readFrame(ifdIdx int) ([]float32, error) {
	width, height, bits, format, err := s.frameGeometry(ifdIdx)
	if err != nil {
		return nil, err
	}
	count := width * height

	var stripOffset, stripBytes uint32
	for _, e := range s.entries(ifdIdx) {
		switch e.tag {
		case tagStripOffsets:
			stripOffset = e.asUint32(s.order)
		case tagStripByteCounts:
			stripBytes = e.asUint32(s.order)
		}
	}
	if int(stripOffset)+int(stripBytes) > len(s.data) {
		return nil, fmt.Errorf("IFD %d: strip out of range", ifdIdx)
	}
	raw := s.data[stripOffset : stripOffset+stripBytes]
	return ConvertToFloat32(tagFor(bits, format), raw, count)
}

func tagFor(bits int, format SampleFormat) pixel.Tag {
	switch format {
	case IEEEFP:
		if bits == 64 {
			return pixel.F64
		}
		return pixel.F32
	case Int:
		switch bits {
		case 8:
			return pixel.I8
		case 16:
			return pixel.I16
		case 32:
			return pixel.I32
		default:
			return pixel.I64
		}
	default: // UInt
		switch bits {
		case 8:
			return pixel.U8
		case 16:
			return pixel.U16
		case 32:
			return pixel.U32
		default:
			return pixel.U64
		}
	}
}
