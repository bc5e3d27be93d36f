// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// imm-inspect runs a full ingest over one IMM file and prints a
// summary. Calibration here comes entirely from flags: an all-ones
// pixel mask, a single static partition, no flat-field, and no dark
// window unless requested. It is a demo entry point, not a substitute
// for loading a real calibration file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/argonne-xpcs/immingest/imm"
)

func mainImpl() error {
	rows := flag.Int("rows", 0, "frame height in pixels (0 = probe from file header)")
	cols := flag.Int("cols", 0, "frame width in pixels (0 = probe from file header)")
	staticWindow := flag.Int("window", 1000, "frames per static partition window")
	frameStart := flag.Int("start", 0, "first analysis frame, 0-based")
	frameCount := flag.Int("count", 0, "frames to analyze, 0 = probe and use remaining frames")
	darkStart := flag.Int("dark-start", 0, "first dark frame, 0-based")
	darkFrames := flag.Int("dark-frames", 0, "dark window end (exclusive), 0 = no dark subtraction")
	darkThreshold := flag.Float64("dark-threshold", 0, "flat dark threshold added to dark sigma")
	darkSigma := flag.Float64("dark-sigma", 5, "multiple of dark std added to the threshold")
	normFactor := flag.Float64("norm", 1, "partition-mean normalization factor")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		return fmt.Errorf("usage: imm-inspect [flags] <path.imm>")
	}
	path := args[0]

	probeRows, probeCols, probeFrames, err := probe(path)
	if err != nil {
		return err
	}
	if *rows == 0 {
		*rows = probeRows
	}
	if *cols == 0 {
		*cols = probeCols
	}
	if *frameCount == 0 {
		*frameCount = probeFrames - *frameStart
	}

	pixels := *rows * *cols
	pixelMask := make([]int16, pixels)
	sbinMask := make([]int32, pixels)
	for i := range pixelMask {
		pixelMask[i] = 1
		sbinMask[i] = 1
	}

	calib := imm.Calibration{
		PixelMask:             pixelMask,
		SbinMask:              sbinMask,
		NormFactor:            *normFactor,
		DarkThreshold:         *darkThreshold,
		DarkSigma:             *darkSigma,
		FrameWidth:            *cols,
		FrameHeight:           *rows,
		StaticWindow:          *staticWindow,
		TotalStaticPartitions: 1,
		DarkFrameStart:        *darkStart,
		DarkFrameEnd:          *darkFrames,
		DarkFrames:            *darkFrames,
		FrameStartTodo:        *frameStart,
		FrameTodoCount:        *frameCount,
	}

	ing, err := imm.New(path, calib)
	if err != nil {
		return err
	}
	result, err := ing.Run()
	if err != nil {
		return err
	}

	fmt.Printf("sparse:            %t\n", result.IsSparse)
	fmt.Printf("frames analyzed:   %d\n", *frameCount)
	fmt.Printf("dark model:        %t\n", result.DarkModel != nil)
	fmt.Printf("total partition mean: %v\n", result.TotalPartitionMean)
	if n := result.SparseData.Pixels(); n > 0 {
		fmt.Printf("pixel[0] hits:     %d\n", result.SparseData.Len(0))
	}
	return nil
}

// probe reads just enough of path to report the frame geometry and a
// lower bound on the frame count, without building a Calibration.
func probe(path string) (rows, cols, frames int, err error) {
	cur, err := imm.OpenCursor(path)
	if err != nil {
		return 0, 0, 0, err
	}
	defer cur.Close()
	rows, cols = int(cur.Rows), int(cur.Cols)
	for {
		h, err := cur.ReadHeader()
		if err != nil {
			break
		}
		if err := cur.SkipFrame(int(h.Dlen), h.Sparse(), h.BytesPerPixel); err != nil {
			break
		}
		frames++
	}
	return rows, cols, frames, nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nimm-inspect: %s.\n", err)
		os.Exit(1)
	}
}
