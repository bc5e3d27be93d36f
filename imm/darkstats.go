// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imm

import "math"

// DarkModel is the per-pixel noise baseline estimated from a bounded
// prefix of dense dark frames. It is populated once and immutable
// thereafter. A nil *DarkModel means no dark frames were present and no
// threshold subtraction is applied during reduction.
type DarkModel struct {
	Avg []float64
	Std []float64
}

// computeDarkStats estimates avg/std for P pixels from K raw dense dark
// frames (each a flattened slice of at least P int16 values), multiplying
// each value by ff[p] before using Welford's one-pass recurrence. The final divisor for Std is K,
// a population standard deviation, not K-1; this choice is deliberate
// and must not be "fixed" to a sample estimator.
func computeDarkStats(darkFrames [][]int16, ff []float64, pixels int) *DarkModel {
	k := len(darkFrames)
	if k == 0 {
		return nil
	}
	avg := make([]float64, pixels)
	std := make([]float64, pixels)
	for i := 0; i < k; i++ {
		frame := darkFrames[i]
		n := float64(i + 1)
		for p := 0; p < pixels; p++ {
			x := float64(frame[p]) * ff[p]
			delta1 := x - avg[p]
			avg[p] += delta1 / n
			delta2 := x - avg[p]
			std[p] += delta1 * delta2
		}
	}
	for p := 0; p < pixels; p++ {
		std[p] = math.Sqrt(std[p] / float64(k))
	}
	return &DarkModel{Avg: avg, Std: std}
}
