// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imm

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// FrameCursor owns the file handle and a reusable header buffer; it
// advances one frame at a time and never buffers more than one frame's
// payload. It is single-pass: seeking backwards is not supported after
// the initial positioning done by Open.
type FrameCursor struct {
	f    *os.File
	r    *bufio.Reader
	hbuf [headerSize]byte

	// Rows, Cols and BytesPerPixel are fixed for the lifetime of the
	// cursor, discovered from the first frame's header at Open time.
	Rows          uint32
	Cols          uint32
	BytesPerPixel uint32

	// FirstHeader is the decoded header of frame 0, captured at Open
	// time so callers can decide sparse vs dense for the whole stream
	// before consuming anything.
	FirstHeader FrameHeader
}

// OpenCursor opens path and reads its first header as a template,
// discovering Rows, Cols and BytesPerPixel. It does not consume the
// first frame's payload; the next ReadHeader call returns the same
// header that was peeked here.
func OpenCursor(path string) (*FrameCursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErrorf("open", err)
	}
	r := bufio.NewReaderSize(f, 1<<20)
	c := &FrameCursor{f: f, r: r}
	var hbuf [headerSize]byte
	n, err := io.ReadFull(r, hbuf[:])
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ioErrorf("open: read first header", err)
		}
		return nil, ioErrorf("open: read first header", err)
	}
	if n != headerSize {
		f.Close()
		return nil, errShortRead("open: read first header", headerSize, n)
	}
	h := decodeHeader(hbuf[:])
	c.Rows, c.Cols, c.BytesPerPixel = h.Rows, h.Cols, h.BytesPerPixel
	c.FirstHeader = h

	// Rewind so the caller's first ReadHeader() sees this same header.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, ioErrorf("open: rewind", err)
	}
	c.r.Reset(f)
	return c, nil
}

// Close releases the underlying file handle.
func (c *FrameCursor) Close() error {
	return c.f.Close()
}

// ReadHeader consumes exactly headerSize bytes and decodes them. It
// returns io.EOF (unwrapped, so callers can detect end of stream with
// errors.Is) when the file is exhausted exactly on a frame boundary.
func (c *FrameCursor) ReadHeader() (FrameHeader, error) {
	n, err := io.ReadFull(c.r, c.hbuf[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return FrameHeader{}, io.EOF
		}
		return FrameHeader{}, ioErrorf("read header", err)
	}
	if n != headerSize {
		return FrameHeader{}, errShortRead("read header", headerSize, n)
	}
	h := decodeHeader(c.hbuf[:])
	if h.Rows != c.Rows || h.Cols != c.Cols {
		return FrameHeader{}, formatErrorf("frame geometry changed: got %dx%d, want %dx%d", h.Rows, h.Cols, c.Rows, c.Cols)
	}
	return h, nil
}

// ReadSparsePayload reads dlen little-endian uint32 indices into outIdx,
// then optionally skips skipTail*4 bytes, then reads dlen little-endian
// int16 values into outVal, then optionally skips skipTail*2 bytes. The
// skip exists so a caller can cap the pixels-per-frame it actually
// decodes when dlen exceeds that cap: skipTail = dlen - cap.
func (c *FrameCursor) ReadSparsePayload(dlen int, outIdx []uint32, outVal []int16, skipTail int) error {
	if len(outIdx) < dlen || len(outVal) < dlen {
		return formatErrorf("sparse payload buffers too small: dlen=%d, idx cap=%d, val cap=%d", dlen, len(outIdx), len(outVal))
	}
	raw := make([]byte, dlen*4)
	if err := c.readFull(raw, "read sparse indices"); err != nil {
		return err
	}
	for i := 0; i < dlen; i++ {
		outIdx[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	if skipTail > 0 {
		if err := c.skip(int64(skipTail) * 4); err != nil {
			return err
		}
	}
	raw = make([]byte, dlen*2)
	if err := c.readFull(raw, "read sparse values"); err != nil {
		return err
	}
	for i := 0; i < dlen; i++ {
		outVal[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	if skipTail > 0 {
		if err := c.skip(int64(skipTail) * 2); err != nil {
			return err
		}
	}
	return nil
}

// ReadDensePayload reads countBytes bytes into outVal's backing int16
// buffer (little-endian), then skips skipTailBytes bytes forward.
func (c *FrameCursor) ReadDensePayload(outVal []int16, countBytes, skipTailBytes int) error {
	want := countBytes / 2
	if len(outVal) < want {
		return formatErrorf("dense payload buffer too small: need %d values, have %d", want, len(outVal))
	}
	raw := make([]byte, countBytes)
	if err := c.readFull(raw, "read dense payload"); err != nil {
		return err
	}
	for i := 0; i < want; i++ {
		outVal[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	if skipTailBytes > 0 {
		if err := c.skip(int64(skipTailBytes)); err != nil {
			return err
		}
	}
	return nil
}

// SkipFrame advances past one frame's payload without interpreting it.
// Sparse frames skip dlen*6 bytes (4-byte index + 2-byte value per
// record); dense frames skip dlen*bytesPerPixel bytes.
func (c *FrameCursor) SkipFrame(dlen int, compressed bool, bytesPerPixel uint32) error {
	if compressed {
		return c.skip(int64(dlen) * 6)
	}
	return c.skip(int64(dlen) * int64(bytesPerPixel))
}

func (c *FrameCursor) readFull(buf []byte, op string) error {
	n, err := io.ReadFull(c.r, buf)
	if err != nil {
		return ioErrorf(op, err)
	}
	if n != len(buf) {
		return errShortRead(op, len(buf), n)
	}
	return nil
}

func (c *FrameCursor) skip(n int64) error {
	if n <= 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, c.r, n)
	if err != nil {
		return ioErrorf("skip", err)
	}
	return nil
}
