// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imm

// Result is the complete output of one Ingest.Run call. All slices are
// owned by the Result; callers must not mutate them.
type Result struct {
	// SparseData holds, per pixel, the ordered (frame, value) pairs that
	// survived masking and dark-threshold filtering.
	SparseData *SparseFrameStore

	// IsSparse records which wire shape the source file used. It drives
	// the frame-mean denominator convention recorded on FrameSums.
	IsSparse bool

	// TimestampClock and TimestampTick are each laid out as two
	// concatenated halves of length framesTodo: frame ordinals (1-based)
	// followed by the header's elapsed/corecotick value for that frame.
	TimestampClock []float64
	TimestampTick  []float64

	// FrameSums is laid out the same way: frame ordinals followed by
	// each frame's mean intensity over its accepted pixels (dense) or
	// all pixels (sparse).
	FrameSums []float64

	// PixelSums holds the per-pixel running sum of accepted, calibrated
	// intensity across the whole analysis window.
	PixelSums []float64

	// TotalPartitionMean and PartialPartitionMean hold the normalized
	// per-static-partition mean intensity: one value per partition for
	// Total, and one value per (window, partition) pair for Partial,
	// laid out window-major.
	TotalPartitionMean   []float64
	PartialPartitionMean []float64

	// DarkModel is the noise floor estimated from the dense dark-frame
	// prefix, or nil if none was computed.
	DarkModel *DarkModel
}
