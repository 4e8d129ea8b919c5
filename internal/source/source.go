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

// Package source implements the FrameSource/HeaderScanner external
// interfaces (spec §6) over TIFF stacks, plus ScanImage IMAGEDESCRIPTION
// synchronization extraction.
package source

import "fmt"

// SampleFormat mirrors the TIFF SampleFormat tag's three relevant values.
type SampleFormat int

const (
	UInt SampleFormat = iota
	Int
	IEEEFP
)

// Header describes stack geometry and encoding, consistent across every
// file of a multi-file stack.
type Header struct {
	Width, Height  int
	BitsPerSample  int
	SampleFormat   SampleFormat
	Frames         int
	// FirstFrame/LastFrame adopt the (first,last) range form for
	// maxNumFrames consistently (spec §9 open question decision), rather
	// than a max-count cap.
	FirstFrame, LastFrame int
}

// FrameSource yields frames of a stack one at a time in order. Frame data
// is returned pre-widened to float32, per the C1 pixel-dispatch contract,
// regardless of the original on-disk element kind (spec §9 open question:
// a single float32 scratch type was adopted over a separate int32 scratch
// path, see DESIGN.md).
type FrameSource interface {
	Header() Header
	NextFrame() (data []float32, ok bool)
	Reset()
}

// InconsistentStackError is returned when a multi-file stack's files
// disagree on (width, height, bits_per_sample, sample_format). The channel
// count is not compared.
type InconsistentStackError struct {
	FilePath string
	Reason   string
}

func (e *InconsistentStackError) Error() string {
	return fmt.Sprintf("inconsistent stack at %s: %s", e.FilePath, e.Reason)
}

// detectSampleFormat applies the heuristic spec §6 mandates when a TIFF
// carries no explicit SampleFormat tag: integer if bitsPerSample < 32 and
// sMinSampleValue >= 0, signed integer if that minimum is negative, IEEE
// float if bitsPerSample >= 32.
func detectSampleFormat(bitsPerSample int, sMinSampleValue float64, hasExplicitTag bool, explicitTag SampleFormat) SampleFormat {
	if hasExplicitTag {
		return explicitTag
	}
	if bitsPerSample >= 32 {
		return IEEEFP
	}
	if sMinSampleValue < 0 {
		return Int
	}
	return UInt
}
