// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imm

import (
	"encoding/binary"
	"math"
)

// headerSize is the fixed size in bytes of every per-frame header.
const headerSize = 1024

// Layout of the header fields this package consumes. Everything else in
// the 1024 bytes is opaque and preserved unexamined; these offsets are
// this package's own wire contract, not a third-party format spec.
const (
	offMode        = 0  // uint32, unused
	offCompressed  = 4  // uint32; 0 = dense, non-zero = sparse
	offRows        = 8  // uint32
	offCols        = 12 // uint32
	offBytes       = 16 // uint32, bytes per pixel
	offDlen        = 20 // uint32, records in this frame's payload
	offElapsed     = 24 // float64, seconds
	offCorecotick  = 32 // float64, detector tick
)

// FrameHeader is the metadata read once per frame. Rows*Cols is constant
// across a file; Dlen never exceeds Rows*Cols.
type FrameHeader struct {
	Rows          uint32
	Cols          uint32
	BytesPerPixel uint32
	Compressed    uint32
	Dlen          uint32
	Elapsed       float64
	Corecotick    float64
}

// Sparse reports whether this frame's payload is sparse (index/value
// pairs) rather than dense (one value per pixel).
func (h FrameHeader) Sparse() bool {
	return h.Compressed != 0
}

// Pixels returns Rows*Cols as an int, the number of pixels in one frame.
func (h FrameHeader) Pixels() int {
	return int(h.Rows) * int(h.Cols)
}

// decodeHeader reads a FrameHeader out of a raw headerSize-byte block.
func decodeHeader(b []byte) FrameHeader {
	return FrameHeader{
		Rows:          binary.LittleEndian.Uint32(b[offRows:]),
		Cols:          binary.LittleEndian.Uint32(b[offCols:]),
		BytesPerPixel: binary.LittleEndian.Uint32(b[offBytes:]),
		Compressed:    binary.LittleEndian.Uint32(b[offCompressed:]),
		Dlen:          binary.LittleEndian.Uint32(b[offDlen:]),
		Elapsed:       decodeFloat64(b[offElapsed:]),
		Corecotick:    decodeFloat64(b[offCorecotick:]),
	}
}

func decodeFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:8]))
}

// EncodeHeader writes h into a headerSize-byte block in this package's
// wire format. It exists for test fixtures (see immtest) that need to
// synthesize IMM files byte-for-byte without depending on package imm's
// internals.
func EncodeHeader(h FrameHeader) [headerSize]byte {
	var b [headerSize]byte
	binary.LittleEndian.PutUint32(b[offRows:], h.Rows)
	binary.LittleEndian.PutUint32(b[offCols:], h.Cols)
	binary.LittleEndian.PutUint32(b[offBytes:], h.BytesPerPixel)
	binary.LittleEndian.PutUint32(b[offCompressed:], h.Compressed)
	binary.LittleEndian.PutUint32(b[offDlen:], h.Dlen)
	binary.LittleEndian.PutUint64(b[offElapsed:], math.Float64bits(h.Elapsed))
	binary.LittleEndian.PutUint64(b[offCorecotick:], math.Float64bits(h.Corecotick))
	return b
}

// HeaderSize is the fixed byte length of every per-frame header.
const HeaderSize = headerSize
