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
	"bufio"
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/tiff"
)

// FileListSource implements FrameSource over a list of single-frame TIFF
// files, one frame per file (the common multi-file acquisition layout).
// Every file must agree on (width, height, bitsPerSample, sampleFormat) or
// InconsistentStackError is returned from NewFileListSource.
type FileListSource struct {
	paths  []string
	header Header
	cursor int
}

// NewFileListSource opens and validates headers for every path, without
// reading pixel data (pixel data streams lazily from NextFrame).
func NewFileListSource(paths []string) (*FileListSource, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frames to process")
	}
	s := &FileListSource{paths: paths}
	var refWidth, refHeight, refBits int
	var refFormat SampleFormat
	for i, p := range paths {
		w, h, bits, format, err := peekTIFFHeader(p)
		if err != nil {
			return nil, fmt.Errorf("reading header of %s: %w", p, err)
		}
		if i == 0 {
			refWidth, refHeight, refBits, refFormat = w, h, bits, format
		} else if w != refWidth || h != refHeight || bits != refBits || format != refFormat {
			return nil, &InconsistentStackError{FilePath: p, Reason: fmt.Sprintf("got %dx%d/%d-bit/%v, want %dx%d/%d-bit/%v", w, h, bits, format, refWidth, refHeight, refBits, refFormat)}
		}
	}
	s.header = Header{
		Width: refWidth, Height: refHeight, BitsPerSample: refBits, SampleFormat: refFormat,
		Frames: len(paths), FirstFrame: 0, LastFrame: len(paths) - 1,
	}
	return s, nil
}

func (s *FileListSource) Header() Header { return s.header }

func (s *FileListSource) Reset() { s.cursor = 0 }

func (s *FileListSource) NextFrame() ([]float32, bool) {
	if s.cursor >= len(s.paths) {
		return nil, false
	}
	data, err := readTIFFAsFloat32(s.paths[s.cursor])
	s.cursor++
	if err != nil {
		return nil, false
	}
	return data, true
}

// peekTIFFHeader decodes just enough of a TIFF to report its geometry and
// sample encoding, via the standard decoder (adequate for single-page
// files; multi-page ScanImage stacks use the raw IFD walker in
// scanimage.go instead, since golang.org/x/image/tiff only ever exposes
// the first page).
func peekTIFFHeader(path string) (width, height, bitsPerSample int, format SampleFormat, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	defer f.Close()

	cfg, err := tiff.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	bits, sampleFormat := colorModelToBitsAndFormat(cfg.ColorModel)
	return cfg.Width, cfg.Height, bits, sampleFormat, nil
}

func readTIFFAsFloat32(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	out := make([]float32, width*height)

	switch g := img.(type) {
	case *image.Gray16:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out[y*width+x] = float32(g.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out[y*width+x] = float32(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		return nil, &UnsupportedColorModelError{Model: fmt.Sprintf("%T", img)}
	}
	return out, nil
}

// UnsupportedColorModelError is returned when a TIFF carries a color model
// outside grayscale 8/16-bit, rejected per the grayscale-only Non-goal.
type UnsupportedColorModelError struct {
	Model string
}

func (e *UnsupportedColorModelError) Error() string {
	return fmt.Sprintf("unsupported color model %s: this module is grayscale-only", e.Model)
}

func colorModelToBitsAndFormat(m color.Model) (bits int, format SampleFormat) {
	switch m {
	case color.Gray16Model:
		return 16, UInt
	case color.GrayModel:
		return 8, UInt
	default:
		return 0, UInt
	}
}

// WriteTIFF16 writes an H x W float32 frame as a 16-bit grayscale TIFF,
// linearly scaling [min,max] to the full uint16 range. Mirrors the
// teacher's WriteMonoTIFF16 (internal/fits/tiff16.go in the teacher repo),
// generalized from its RGB/mono split to motion-corrected grayscale-only
// output.
func WriteTIFF16(path string, data []float32, width, height int, min, max float32) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	defer w.Flush()

	img := image.NewGray16(image.Rect(0, 0, width, height))
	scale := float32(1) / (max - min)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := data[y*width+x]
			v = (v - min) * scale
			if v != v || v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(v * 65535)})
		}
	}
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Uncompressed, Predictor: false})
}
