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
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	tagImageDescription = 270
	tagStripOffsets     = 273
	tagStripByteCounts  = 279
)

// ifdEntry is one 12-byte directory entry of a TIFF IFD.
type ifdEntry struct {
	tag      uint16
	typ      uint16
	count    uint32
	valueRaw [4]byte
}

// walkIFDs returns the byte offset of every IFD ("page") in a TIFF file,
// by following the next-IFD-offset chain from the header. Used for
// multi-page ScanImage stacks, which golang.org/x/image/tiff cannot
// enumerate (its Decode only ever returns the first page).
func walkIFDs(data []byte) (offsets []uint32, order binary.ByteOrder, err error) {
	if len(data) < 8 {
		return nil, nil, fmt.Errorf("file too short to be TIFF")
	}
	switch string(data[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("not a TIFF file (bad byte-order mark)")
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, nil, fmt.Errorf("not a TIFF file (bad magic number)")
	}

	next := order.Uint32(data[4:8])
	for next != 0 {
		if int(next)+2 > len(data) {
			break
		}
		offsets = append(offsets, next)
		numEntries := int(order.Uint16(data[next : next+2]))
		nextIFDPos := int(next) + 2 + numEntries*12
		if nextIFDPos+4 > len(data) {
			break
		}
		next = order.Uint32(data[nextIFDPos : nextIFDPos+4])
	}
	return offsets, order, nil
}

// readIFD parses one IFD's entries at the given offset.
func readIFD(data []byte, offset uint32, order binary.ByteOrder) []ifdEntry {
	numEntries := int(order.Uint16(data[offset : offset+2]))
	entries := make([]ifdEntry, numEntries)
	for i := 0; i < numEntries; i++ {
		base := int(offset) + 2 + i*12
		e := ifdEntry{
			tag:   order.Uint16(data[base : base+2]),
			typ:   order.Uint16(data[base+2 : base+4]),
			count: order.Uint32(data[base+4 : base+8]),
		}
		copy(e.valueRaw[:], data[base+8:base+12])
		entries[i] = e
	}
	return entries
}

func (e ifdEntry) asUint32(order binary.ByteOrder) uint32 {
	return order.Uint32(e.valueRaw[:])
}

// stringValue resolves a TIFF ASCII-type entry (tagImageDescription) to its
// Go string, following the offset if the value does not fit inline.
func stringValue(data []byte, e ifdEntry, order binary.ByteOrder) string {
	n := int(e.count)
	if n <= 4 {
		return strings.TrimRight(string(e.valueRaw[:n]), "\x00")
	}
	off := e.asUint32(order)
	if int(off)+n > len(data) {
		return ""
	}
	raw := data[off : int(off)+n]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}

// SyncInfo is the per-stack ScanImage synchronization bundle extracted from
// every IFD's free-text IMAGEDESCRIPTION field (spec §6).
type SyncInfo struct {
	AcquisitionNumber int
	Epoch             [6]float64 // [Y,M,D,h,m,s.fff], from the first frame only
	FrameTimestamps   []float64  // one per frame, NaN where absent
	I2CPayloads       [][]byte   // one per frame, empty where absent
}

// ScanSyncInfo walks every IFD of the TIFF at path and extracts
// acquisitionNumbers (first frame only), frameTimestamps_sec (per frame),
// epoch (6-vector, first frame only), and I2CData (per-frame sync packet)
// from each IMAGEDESCRIPTION tag by exact field-name text match. payloadWidth
// is accepted but not read: I2CPayloads holds each frame's raw payload bytes
// with no reinterpretation, and payload lengths are not compared across
// frames. The caller converts I2CPayloads to its numeric type.
func ScanSyncInfo(path string, payloadWidth int) (*SyncInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	offsets, order, err := walkIFDs(data)
	if err != nil {
		return nil, err
	}

	info := &SyncInfo{
		FrameTimestamps: make([]float64, len(offsets)),
		I2CPayloads:     make([][]byte, len(offsets)),
	}
	for i, off := range offsets {
		entries := readIFD(data, off, order)
		var desc string
		for _, e := range entries {
			if e.tag == tagImageDescription {
				desc = stringValue(data, e, order)
				break
			}
		}
		if i == 0 {
			if v, ok := readScalarField(desc, "acquisitionNumbers"); ok {
				info.AcquisitionNumber = int(v)
			}
			if vec, ok := readVectorField(desc, "epoch"); ok && len(vec) == 6 {
				copy(info.Epoch[:], vec)
			}
		}
		if v, ok := readScalarField(desc, "frameTimestamps_sec"); ok {
			info.FrameTimestamps[i] = v
		} else {
			info.FrameTimestamps[i] = math.NaN()
		}
		info.I2CPayloads[i] = readI2CData(desc)
	}
	return info, nil
}

// readScalarField scans desc line by line for "name=value", matching
// getSyncInfo.cpp's readScalarField: locate the field name, skip to '=',
// parse a float64.
func readScalarField(desc, name string) (float64, bool) {
	for _, line := range strings.Split(desc, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, name) {
			continue
		}
		eq := strings.IndexByte(trimmed, '=')
		if eq < 0 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(trimmed[eq+1:]), 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// readVectorField scans desc for "name=[v1 v2 ...]", matching
// getSyncInfo.cpp's readVectorField.
func readVectorField(desc, name string) ([]float64, bool) {
	for _, line := range strings.Split(desc, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, name) {
			continue
		}
		open := strings.IndexByte(trimmed, '[')
		close := strings.IndexByte(trimmed, ']')
		if open < 0 || close < 0 || close < open {
			continue
		}
		fields := strings.Fields(trimmed[open+1 : close])
		vec := make([]float64, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				continue
			}
			vec = append(vec, v)
		}
		return vec, true
	}
	return nil, false
}

// readI2CData parses "I2CData={timestamp,{byte,byte,...}}" or the empty
// form "I2CData={}"; missing entirely yields a nil payload (caller treats
// as zero payload / NaN timestamp per spec §6).
func readI2CData(desc string) []byte {
	for _, line := range strings.Split(desc, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "I2CData") {
			continue
		}
		open := strings.IndexByte(trimmed, '{')
		close := strings.LastIndexByte(trimmed, '}')
		if open < 0 || close < 0 || close < open {
			return nil
		}
		inner := trimmed[open+1 : close]
		innerOpen := strings.IndexByte(inner, '{')
		innerClose := strings.LastIndexByte(inner, '}')
		if innerOpen < 0 || innerClose < 0 {
			return nil
		}
		fields := strings.Split(inner[innerOpen+1:innerClose], ",")
		payload := make([]byte, 0, len(fields))
		for _, f := range fields {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			v, err := strconv.ParseUint(f, 10, 8)
			if err != nil {
				continue
			}
			payload = append(payload, byte(v))
		}
		return payload
	}
	return nil
}
