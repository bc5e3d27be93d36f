// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imm_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/argonne-xpcs/immingest/imm"
	"github.com/argonne-xpcs/immingest/immtest"
)

func baseCalib(width, height int) imm.Calibration {
	p := width * height
	mask := make([]int16, p)
	sbin := make([]int32, p)
	for i := range mask {
		mask[i] = 1
		sbin[i] = 1
	}
	return imm.Calibration{
		PixelMask:             mask,
		SbinMask:              sbin,
		FrameWidth:            width,
		FrameHeight:           height,
		StaticWindow:          10,
		TotalStaticPartitions: 1,
		NormFactor:            1,
	}
}

func TestIngest_denseNoDark(t *testing.T) {
	b := immtest.New(1, 4, 2)
	b.AddDense([]int16{1, 2, 3, 4}, 0, 10)
	b.AddDense([]int16{5, 6, 7, 8}, 1, 20)
	path := filepath.Join(t.TempDir(), "f.imm")
	require.NoError(t, b.WriteFile(path))

	calib := baseCalib(4, 1)
	calib.FrameTodoCount = 2

	ing, err := imm.New(path, calib)
	require.NoError(t, err)
	res, err := ing.Run()
	require.NoError(t, err)

	require.False(t, res.IsSparse)
	require.Nil(t, res.DarkModel)
	require.Equal(t, (1.0+2+3+4)/4, res.FrameSums[0+2])
	require.Equal(t, (5.0+6+7+8)/4, res.FrameSums[1+2])
}

func TestIngest_sparseNoDark(t *testing.T) {
	b := immtest.New(1, 4, 2)
	b.AddSparse([]uint32{0, 2}, []int16{10, 30}, 0, 0)
	path := filepath.Join(t.TempDir(), "f.imm")
	require.NoError(t, b.WriteFile(path))

	calib := baseCalib(4, 1)
	calib.FrameTodoCount = 1

	ing, err := imm.New(path, calib)
	require.NoError(t, err)
	res, err := ing.Run()
	require.NoError(t, err)

	require.True(t, res.IsSparse)
	require.Nil(t, res.DarkModel)
	// sparse denominator is totalPixels (4), not accepted count (2).
	require.Equal(t, (10.0+30)/4, res.FrameSums[0+1])
	require.Equal(t, 2, res.SparseData.Len(0))
	require.Equal(t, 0, res.SparseData.Len(1))
}

func TestIngest_denseWithDarkWindow(t *testing.T) {
	b := immtest.New(1, 2, 2)
	// two dark frames, both flat at 100.
	b.AddDense([]int16{100, 100}, 0, 0)
	b.AddDense([]int16{100, 100}, 0, 0)
	// one analysis frame: pixel 0 well above dark, pixel 1 at the floor.
	b.AddDense([]int16{200, 100}, 0, 0)
	path := filepath.Join(t.TempDir(), "f.imm")
	require.NoError(t, b.WriteFile(path))

	calib := baseCalib(2, 1)
	calib.DarkFrameStart = 0
	calib.DarkFrames = 2
	calib.DarkFrameEnd = 2
	calib.FrameStartTodo = 2
	calib.FrameTodoCount = 1
	calib.DarkThreshold = 0
	calib.DarkSigma = 1

	ing, err := imm.New(path, calib)
	require.NoError(t, err)
	res, err := ing.Run()
	require.NoError(t, err)

	require.NotNil(t, res.DarkModel)
	require.Equal(t, 1, res.SparseData.Len(0))
	require.Equal(t, 0, res.SparseData.Len(1))
}

func TestIngest_calibrationAliasingDoesNotAffectInFlightIngest(t *testing.T) {
	b := immtest.New(1, 2, 2)
	b.AddDense([]int16{1, 2}, 0, 0)
	path := filepath.Join(t.TempDir(), "f.imm")
	require.NoError(t, b.WriteFile(path))

	calib := baseCalib(2, 1)
	calib.FrameTodoCount = 1

	ing, err := imm.New(path, calib)
	require.NoError(t, err)

	calib.PixelMask[0] = 0 // mutate caller's copy after New returns.

	res, err := ing.Run()
	require.NoError(t, err)
	require.Equal(t, 1, res.SparseData.Len(0))
}

func TestIngest_invalidCalibrationRejected(t *testing.T) {
	calib := baseCalib(2, 1)
	calib.FrameTodoCount = 0
	_, err := imm.New("/nonexistent", calib)
	require.Error(t, err)
}

func TestIngest_missingFileIsIOError(t *testing.T) {
	calib := baseCalib(2, 1)
	calib.FrameTodoCount = 1
	ing, err := imm.New(filepath.Join(t.TempDir(), "missing.imm"), calib)
	require.NoError(t, err)
	_, err = ing.Run()
	var ioErr *imm.IOError
	require.ErrorAs(t, err, &ioErr)
}
