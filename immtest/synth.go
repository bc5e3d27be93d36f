// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package immtest builds synthetic IMM files in memory so tests can
// exercise package imm without a real detector or a fixture binary
// checked into the repo.
package immtest

import (
	"bytes"
	"math/rand"
	"os"

	"github.com/argonne-xpcs/immingest/imm"
)

// Builder accumulates frames and renders them into one IMM byte stream.
// It is cheezy but enough to drive the ingest paths under test.
type Builder struct {
	rows, cols    uint32
	bytesPerPixel uint32
	buf           bytes.Buffer
}

// New returns a Builder for frames of the given geometry. bytesPerPixel
// is normally 2 (int16 dense values); it is carried through to every
// frame header unchanged.
func New(rows, cols, bytesPerPixel uint32) *Builder {
	return &Builder{rows: rows, cols: cols, bytesPerPixel: bytesPerPixel}
}

// AddDense appends one dense frame: len(values) must equal rows*cols.
func (b *Builder) AddDense(values []int16, elapsed, corecotick float64) {
	h := imm.FrameHeader{
		Rows: b.rows, Cols: b.cols, BytesPerPixel: b.bytesPerPixel,
		Compressed: 0, Dlen: uint32(len(values)),
		Elapsed: elapsed, Corecotick: corecotick,
	}
	hdr := imm.EncodeHeader(h)
	b.buf.Write(hdr[:])
	for _, v := range values {
		b.writeInt16(v)
	}
}

// AddSparse appends one sparse frame: idx and val must have equal
// length, at most rows*cols.
func (b *Builder) AddSparse(idx []uint32, val []int16, elapsed, corecotick float64) {
	h := imm.FrameHeader{
		Rows: b.rows, Cols: b.cols, BytesPerPixel: b.bytesPerPixel,
		Compressed: 1, Dlen: uint32(len(idx)),
		Elapsed: elapsed, Corecotick: corecotick,
	}
	hdr := imm.EncodeHeader(h)
	b.buf.Write(hdr[:])
	for _, i := range idx {
		b.writeUint32(i)
	}
	for _, v := range val {
		b.writeInt16(v)
	}
}

// Bytes returns the accumulated stream.
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

// WriteFile writes the accumulated stream to path with mode 0644.
func (b *Builder) WriteFile(path string) error {
	return os.WriteFile(path, b.buf.Bytes(), 0644)
}

func (b *Builder) writeInt16(v int16) {
	var raw [2]byte
	raw[0] = byte(uint16(v))
	raw[1] = byte(uint16(v) >> 8)
	b.buf.Write(raw[:])
}

func (b *Builder) writeUint32(v uint32) {
	var raw [4]byte
	raw[0] = byte(v)
	raw[1] = byte(v >> 8)
	raw[2] = byte(v >> 16)
	raw[3] = byte(v >> 24)
	b.buf.Write(raw[:])
}

// NoiseFrame generates a dense frame of rows*cols pixels centered on
// base with gaussian noise of the given standard deviation, using a
// seeded rand.Rand so callers get reproducible fixtures.
func NoiseFrame(rows, cols int, base, std float64, rng *rand.Rand) []int16 {
	out := make([]int16, rows*cols)
	for i := range out {
		out[i] = int16(base + rng.NormFloat64()*std)
	}
	return out
}

// NewRand returns a rand.Rand seeded deterministically from seed, for
// tests that need reproducible synthetic noise.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
