// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoPixelCalib() Calibration {
	return Calibration{
		PixelMask:             []int16{1, 1},
		SbinMask:              []int32{1, 2},
		FrameWidth:            2,
		FrameHeight:           1,
		StaticWindow:          2,
		TotalStaticPartitions: 2,
		NormFactor:            1,
		FrameStartTodo:        0,
		FrameTodoCount:        4,
	}
}

func TestReducer_denseAccumulatesAndNormalizes(t *testing.T) {
	c := twoPixelCalib()
	r := NewReducer(c, nil, false)

	frames := [][]int16{{10, 20}, {12, 22}, {14, 24}, {16, 26}}
	for f, vals := range frames {
		r.ProcessFrame(f, FrameHeader{Elapsed: float64(f), Corecotick: float64(f)}, densePayload{val: vals})
	}
	r.normalize()

	// pixel 0 is in partition 1, pixel 1 in partition 2; NormFactor=1,
	// pixelCountInBin=1 for each, so TotalPartitionMean[s] is just the
	// mean over all 4 frames for that pixel.
	assert.InDelta(t, (10.0+12+14+16)/4, r.totalPartitionMean[0], 1e-9)
	assert.InDelta(t, (20.0+22+24+26)/4, r.totalPartitionMean[1], 1e-9)

	require.Equal(t, 2, r.store.Pixels())
	assert.Equal(t, 4, r.store.Len(0))
	assert.Equal(t, 4, r.store.Len(1))

	// dense frame mean divides by accepted count (both pixels accepted).
	assert.Equal(t, (10.0+20)/2, r.frameSums[0+r.framesTodo])
}

func TestReducer_maskedPixelNeverAccumulates(t *testing.T) {
	c := twoPixelCalib()
	c.PixelMask = []int16{1, 0}
	r := NewReducer(c, nil, false)

	r.ProcessFrame(0, FrameHeader{}, densePayload{val: []int16{10, 20}})

	assert.Equal(t, 1, r.store.Len(0))
	assert.Equal(t, 0, r.store.Len(1))
	assert.Equal(t, 10.0, r.pixelSums[0])
	assert.Equal(t, 0.0, r.pixelSums[1])
}

func TestReducer_darkSubtractionGatesByThreshold(t *testing.T) {
	c := twoPixelCalib()
	c.FrameTodoCount = 1
	c.DarkThreshold = 0
	c.DarkSigma = 1
	dark := &DarkModel{Avg: []float64{5, 5}, Std: []float64{1, 1}}
	r := NewReducer(c, dark, false)

	// pixel 0: 10-5=5 > threshold(0+1*1=1) -> accepted.
	// pixel 1: 6-5=1 <= threshold(1) -> rejected.
	r.ProcessFrame(0, FrameHeader{}, densePayload{val: []int16{10, 6}})

	assert.Equal(t, 1, r.store.Len(0))
	assert.Equal(t, 0, r.store.Len(1))
}

func TestReducer_sparseFrameMeanDividesByTotalPixels(t *testing.T) {
	c := twoPixelCalib()
	c.FrameTodoCount = 1
	r := NewReducer(c, nil, true)

	r.ProcessFrame(0, FrameHeader{}, sparsePayload{idx: []uint32{0}, val: []int16{10}})

	// only pixel 0 present; sparse denominator is totalPixels (2), not
	// accepted count (1).
	assert.Equal(t, 10.0/2, r.frameSums[0+r.framesTodo])
}

func TestReducer_windowTransitionResetsFramesInWindow(t *testing.T) {
	c := twoPixelCalib()
	c.StaticWindow = 2
	c.FrameTodoCount = 3
	r := NewReducer(c, nil, false)

	for f := 0; f < 3; f++ {
		r.ProcessFrame(f, FrameHeader{}, densePayload{val: []int16{1, 1}})
	}

	assert.Equal(t, 2, r.windows)
	assert.Equal(t, 1, r.currentWindow)
	assert.Equal(t, 1, r.framesInWindow)
}
