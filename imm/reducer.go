// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imm

import "math"

// PayloadIterator yields (pixel, rawValue) pairs for one frame's
// payload, collapsing the sparse and dense wire shapes into a single
// shape Reducer can consume without knowing which one it's looking at.
type PayloadIterator interface {
	Len() int
	At(i int) (pixel int, raw float64)
}

// sparsePayload iterates (index[i], value[i]) pairs.
type sparsePayload struct {
	idx []uint32
	val []int16
}

func (s sparsePayload) Len() int { return len(s.idx) }
func (s sparsePayload) At(i int) (int, float64) {
	return int(s.idx[i]), float64(s.val[i])
}

// densePayload iterates (i, value[i]) pairs: the pixel index is the
// record's position.
type densePayload struct {
	val []int16
}

func (d densePayload) Len() int { return len(d.val) }
func (d densePayload) At(i int) (int, float64) {
	return i, float64(d.val[i])
}

// Reducer is the central per-frame accumulator: for every qualifying
// record in a frame's payload it updates per-pixel sums, the frame's
// running sum, the partition-mean tables, and appends into a
// SparseFrameStore. One Reducer is used across the whole analysis
// window of one ingest.
type Reducer struct {
	calib     Calibration
	flatField []float64
	dark      *DarkModel
	isSparse  bool

	totalPixels int
	framesTodo  int
	staticWindow int
	totalStaticPartitions int

	store *SparseFrameStore

	pixelSums           []float64
	totalPartitionMean  []float64 // length totalStaticPartitions
	partialPartitionMean []float64 // length windows*totalStaticPartitions
	frameSums           []float64 // length 2*framesTodo
	timestampClock      []float64 // length 2*framesTodo
	timestampTick       []float64 // length 2*framesTodo

	pixelCountInBin []float64 // length totalStaticPartitions, no mask filter

	windows int

	currentWindow  int
	framesInWindow int
}

// NewReducer allocates a Reducer for one ingest's analysis window. calib
// must already have passed Validate.
func NewReducer(calib Calibration, dark *DarkModel, isSparse bool) *Reducer {
	p := calib.Pixels()
	f := calib.FrameTodoCount
	s := calib.TotalStaticPartitions
	windows := (f + calib.StaticWindow - 1) / calib.StaticWindow

	pixelCountInBin := make([]float64, s)
	for _, sbin := range calib.SbinMask {
		pixelCountInBin[sbin-1]++
	}

	return &Reducer{
		calib:                calib,
		flatField:            calib.flatField(),
		dark:                 dark,
		isSparse:             isSparse,
		totalPixels:          p,
		framesTodo:           f,
		staticWindow:         calib.StaticWindow,
		totalStaticPartitions: s,
		store:                NewSparseFrameStore(p),
		pixelSums:            make([]float64, p),
		totalPartitionMean:   make([]float64, s),
		partialPartitionMean: make([]float64, windows*s),
		frameSums:            make([]float64, 2*f),
		timestampClock:       make([]float64, 2*f),
		timestampTick:        make([]float64, 2*f),
		pixelCountInBin:      pixelCountInBin,
		windows:              windows,
	}
}

// ProcessFrame accumulates one frame at ordinal f (0-based, within
// [0, framesTodo)) given its header and payload iterator.
func (r *Reducer) ProcessFrame(f int, h FrameHeader, payload PayloadIterator) {
	r.timestampClock[f] = float64(f + 1)
	r.timestampClock[f+r.framesTodo] = h.Elapsed
	r.timestampTick[f] = float64(f + 1)
	r.timestampTick[f+r.framesTodo] = h.Corecotick

	if f > 0 && f%r.staticWindow == 0 {
		r.currentWindow++
		r.framesInWindow = 0
	}
	r.framesInWindow++

	fsum := 0.0
	accepted := 0
	pixelMask := r.calib.PixelMask
	sbinMask := r.calib.SbinMask

	for i := 0; i < payload.Len(); i++ {
		p, v := payload.At(i)
		if pixelMask[p] == 0 {
			continue
		}
		if r.dark != nil {
			v = math.Max(v-r.dark.Avg[p], 0)
			thr := r.calib.DarkThreshold + r.calib.DarkSigma*r.dark.Std[p]
			if v <= thr {
				continue
			}
		}
		v *= r.flatField[p]

		accepted++
		fsum += v
		r.pixelSums[p] += v

		sbin := int(sbinMask[p]) - 1
		r.totalPartitionMean[sbin] += v
		r.partialPartitionMean[r.currentWindow*r.totalStaticPartitions+sbin] += v

		r.store.Append(p, int32(f), v)
	}

	r.frameSums[f] = float64(f + 1)
	denom := float64(accepted)
	if r.isSparse {
		denom = float64(r.totalPixels)
	}
	r.frameSums[f+r.framesTodo] = fsum / denom
}

// normalize divides the accumulated partition sums by their
// denominators exactly once. It must be called after the analysis
// window has been fully processed.
//
// The partial-window denominator uses framesInWindow as it stands after
// the loop, which equals the final window's frame count, not each
// window's own size; early windows are biased if the final window is
// short. This matches the source tool's behavior and is not treated as
// a bug here (spec.md §9 open question 3).
func (r *Reducer) normalize() {
	for s := 0; s < r.totalStaticPartitions; s++ {
		partialDenom := r.pixelCountInBin[s] * float64(r.framesInWindow) * r.calib.NormFactor
		for w := 0; w < r.windows; w++ {
			r.partialPartitionMean[w*r.totalStaticPartitions+s] /= partialDenom
		}
		totalDenom := r.pixelCountInBin[s] * float64(r.framesTodo) * r.calib.NormFactor
		r.totalPartitionMean[s] /= totalDenom
	}
}
