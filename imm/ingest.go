// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imm

import (
	"log"
	"math"
)

// Ingest drives a FrameCursor through the pre-dark skip, dark window,
// pre-analysis skip and analysis window phases, then normalizes and
// returns a Result. Ingest.Run is strictly single-threaded: the cursor
// is never shared, and there is no suspension point visible to a
// caller. A *log.Logger may be set before Run to receive a handful of
// orchestration-level lines (dark-frame count, NaN-mean frames); a nil
// Logger means silent, matching this package's logging policy.
type Ingest struct {
	path  string
	calib Calibration

	// Logger, if non-nil, receives orchestration-level progress and
	// warning lines. The hot per-record loop never logs regardless.
	Logger *log.Logger
}

// New returns an Ingest for path with a private, validated copy of
// calib. calib is validated and deep-copied here so later mutation of
// the caller's value cannot affect this ingest (spec.md §8 S6).
func New(path string, calib Calibration) (*Ingest, error) {
	if err := calib.Validate(); err != nil {
		return nil, err
	}
	return &Ingest{path: path, calib: calib.clone()}, nil
}

func (in *Ingest) logf(format string, args ...interface{}) {
	if in.Logger != nil {
		in.Logger.Printf(format, args...)
	}
}

// Run executes the full ingest and returns the populated Result. Any
// I/O, format or config failure aborts accumulation and is returned
// unchanged; no partial Result is returned on failure.
func (in *Ingest) Run() (*Result, error) {
	c := in.calib
	if c.FrameStartTodo+c.FrameTodoCount < c.FrameStartTodo {
		return nil, formatErrorf("frameStartTodo+frames overflows")
	}

	cur, err := OpenCursor(in.path)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	pixels := c.Pixels()
	frameCap := c.effectivePixelsPerFrame()

	// The first frame's header decides sparse vs dense for the whole
	// stream, before any skipping begins.
	isSparse := cur.FirstHeader.Sparse()

	fcount := 0

	// Phase: SkipDark. Skip frames below DarkFrameStart.
	for fcount < c.DarkFrameStart {
		h, err := cur.ReadHeader()
		if err != nil {
			return nil, err
		}
		if err := cur.SkipFrame(int(h.Dlen), h.Sparse(), h.BytesPerPixel); err != nil {
			return nil, err
		}
		fcount++
	}

	// Phase: DarkRead. Only dense files accumulate a dark-frame buffer;
	// for sparse files the frames in [DarkFrameStart, DarkFrames) are
	// simply skipped, matching the source tool's behavior (spec.md §9
	// open question 1: the asymmetry is emergent, not a special case in
	// Reducer).
	var dark *DarkModel
	ff := c.flatField()
	if isSparse {
		for fcount < c.DarkFrames {
			h, err := cur.ReadHeader()
			if err != nil {
				return nil, err
			}
			if err := cur.SkipFrame(int(h.Dlen), h.Sparse(), h.BytesPerPixel); err != nil {
				return nil, err
			}
			fcount++
		}
	} else {
		k := c.DarkFrames - c.DarkFrameStart
		darkFrames := make([][]int16, 0, k)
		for fcount < c.DarkFrames {
			h, err := cur.ReadHeader()
			if err != nil {
				return nil, err
			}
			if int(h.Dlen) > frameCap {
				return nil, formatErrorf("dark frame %d: dlen %d exceeds pixels-per-frame cap %d", fcount, h.Dlen, frameCap)
			}
			buf := make([]int16, frameCap)
			countBytes := int(h.Dlen) * int(h.BytesPerPixel)
			if err := cur.ReadDensePayload(buf, countBytes, 0); err != nil {
				return nil, err
			}
			darkFrames = append(darkFrames, buf)
			fcount++
		}
		if len(darkFrames) > 0 {
			dark = computeDarkStats(darkFrames, ff, pixels)
			in.logf("imm: computed dark model from %d frames", len(darkFrames))
		}
	}

	// Phase: SkipToAnal. Skip frames below FrameStartTodo.
	for fcount < c.FrameStartTodo {
		h, err := cur.ReadHeader()
		if err != nil {
			return nil, err
		}
		if err := cur.SkipFrame(int(h.Dlen), h.Sparse(), h.BytesPerPixel); err != nil {
			return nil, err
		}
		fcount++
	}

	// Phase: Analyze.
	red := NewReducer(c, dark, isSparse)
	idxBuf := make([]uint32, frameCap)
	valBuf := make([]int16, frameCap)

	for (fcount - c.FrameStartTodo) < c.FrameTodoCount {
		h, err := cur.ReadHeader()
		if err != nil {
			return nil, err
		}
		f := fcount - c.FrameStartTodo
		dlen := int(h.Dlen)

		var payload PayloadIterator
		if h.Sparse() {
			skipTail := 0
			n := dlen
			if dlen > frameCap {
				skipTail = dlen - frameCap
				n = frameCap
			}
			if err := cur.ReadSparsePayload(n, idxBuf, valBuf, skipTail); err != nil {
				return nil, err
			}
			for _, idx := range idxBuf[:n] {
				if int(idx) >= pixels {
					return nil, formatErrorf("frame %d: pixel index %d out of range [0, %d)", f, idx, pixels)
				}
			}
			payload = sparsePayload{idx: idxBuf[:n], val: valBuf[:n]}
		} else {
			if dlen > frameCap {
				return nil, formatErrorf("frame %d: dlen %d exceeds pixels-per-frame cap %d", f, dlen, frameCap)
			}
			countBytes := dlen * int(h.BytesPerPixel)
			if err := cur.ReadDensePayload(valBuf, countBytes, 0); err != nil {
				return nil, err
			}
			payload = densePayload{val: valBuf[:dlen]}
		}

		red.ProcessFrame(f, h, payload)
		if isNaNOrInf(red.frameSums[f+c.FrameTodoCount]) {
			in.logf("imm: frame %d has no accepted pixels; frame mean is NaN/Inf", f)
		}
		fcount++
	}

	red.normalize()

	return &Result{
		SparseData:           red.store,
		IsSparse:             isSparse,
		TimestampClock:       red.timestampClock,
		TimestampTick:        red.timestampTick,
		FrameSums:            red.frameSums,
		PixelSums:            red.pixelSums,
		TotalPartitionMean:   red.totalPartitionMean,
		PartialPartitionMean: red.partialPartitionMean,
		DarkModel:            dark,
	}, nil
}

func isNaNOrInf(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
