// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imm

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Calibration is the read-only input contract supplied by the caller.
// It is copied by New (see Ingest), so the caller is free to
// mutate or discard its own copy afterwards without affecting an
// in-flight ingest.
type Calibration struct {
	// PixelMask is non-zero for pixels to keep, zero for pixels to drop.
	// Length must equal FrameWidth*FrameHeight.
	PixelMask []int16
	// SbinMask assigns each pixel to a static partition in
	// [1, TotalStaticPartitions]. Length must equal FrameWidth*FrameHeight.
	SbinMask []int32
	// FlatField is the per-pixel multiplicative gain correction. Length
	// must equal FrameWidth*FrameHeight. A nil FlatField is treated as
	// all-ones.
	FlatField []float64

	DetEfficiency float64
	DetAdhuPhot   float64
	DetPreset     float64
	NormFactor    float64
	DarkThreshold float64
	DarkSigma     float64

	FrameWidth            int
	FrameHeight           int
	StaticWindow          int
	TotalStaticPartitions int

	DarkFrameStart int
	DarkFrameEnd   int
	DarkFrames     int

	FrameStartTodo int
	FrameTodoCount int

	// PixelsPerFrame caps the number of sparse records read per frame.
	// Zero means no cap (use FrameWidth*FrameHeight).
	PixelsPerFrame int
}

// Pixels returns FrameWidth*FrameHeight.
func (c Calibration) Pixels() int {
	return c.FrameWidth * c.FrameHeight
}

// effectivePixelsPerFrame applies the original tool's default: a
// caller-supplied cap below 1 means "no cap", i.e. the full frame.
func (c Calibration) effectivePixelsPerFrame() int {
	if c.PixelsPerFrame < 1 {
		return c.Pixels()
	}
	return c.PixelsPerFrame
}

// flatField returns c.FlatField, or an implicit all-ones slice of the
// right length if the caller left it nil. This replaces the source
// tool's null-flatfield branch (spec.md §9 open question 5), which
// attempted to write through the very pointer it had just checked for
// nil; here the all-ones case never touches a nil slice at all.
func (c Calibration) flatField() []float64 {
	if c.FlatField != nil {
		return c.FlatField
	}
	ff := make([]float64, c.Pixels())
	for i := range ff {
		ff[i] = 1.0
	}
	return ff
}

// Validate reports every violated invariant in c at once, aggregated
// with multierr, rather than failing fast on the first one found.
func (c Calibration) Validate() error {
	var err error
	p := c.Pixels()

	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		err = multierr.Append(err, &ConfigError{errors.New("FrameWidth and FrameHeight must be positive")})
	}
	if c.PixelMask == nil {
		err = multierr.Append(err, &ConfigError{errors.New("PixelMask is missing")})
	} else if len(c.PixelMask) != p {
		err = multierr.Append(err, &ConfigError{fmt.Errorf("PixelMask has %d entries, want %d", len(c.PixelMask), p)})
	}
	if len(c.SbinMask) != p {
		err = multierr.Append(err, &ConfigError{fmt.Errorf("SbinMask has %d entries, want %d", len(c.SbinMask), p)})
	} else {
		for i, s := range c.SbinMask {
			if s < 1 || int(s) > c.TotalStaticPartitions {
				err = multierr.Append(err, formatErrorf("SbinMask[%d] = %d, want in [1, %d]", i, s, c.TotalStaticPartitions))
				break
			}
		}
	}
	if c.FlatField != nil && len(c.FlatField) != p {
		err = multierr.Append(err, &ConfigError{fmt.Errorf("FlatField has %d entries, want %d", len(c.FlatField), p)})
	}
	if c.StaticWindow == 0 {
		err = multierr.Append(err, &ConfigError{errors.New("StaticWindow must not be zero")})
	}
	if c.TotalStaticPartitions <= 0 {
		err = multierr.Append(err, &ConfigError{errors.New("TotalStaticPartitions must be positive")})
	}
	if c.DarkFrameStart > c.DarkFrameEnd {
		err = multierr.Append(err, &ConfigError{fmt.Errorf("DarkFrameStart (%d) > DarkFrameEnd (%d)", c.DarkFrameStart, c.DarkFrameEnd)})
	}
	if c.FrameTodoCount <= 0 {
		err = multierr.Append(err, &ConfigError{errors.New("FrameTodoCount must be positive")})
	}
	return err
}

// clone returns a deep copy of c so New can sever aliasing with
// the caller's value (spec.md §8 S6: the calibration lifetime contract).
func (c Calibration) clone() Calibration {
	out := c
	out.PixelMask = append([]int16(nil), c.PixelMask...)
	out.SbinMask = append([]int32(nil), c.SbinMask...)
	if c.FlatField != nil {
		out.FlatField = append([]float64(nil), c.FlatField...)
	}
	return out
}
