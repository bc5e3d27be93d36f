// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package imm ingests XPCS detector recordings stored in the IMM
// container format and reduces them to a compact in-memory
// representation suitable for downstream correlation analysis.
//
// An IMM file is a sequence of fixed-size frame headers, each followed
// by a variable-length payload that is either dense (one value per
// pixel) or sparse (only non-zero pixels, as index/value pairs). This
// package never buffers more than one frame's payload at a time: it
// opens the file, streams frame by frame through a FrameCursor,
// estimates a per-pixel noise floor from a bounded prefix of dark
// frames (DarkStats), and then runs a single masked, thresholded,
// flat-field-corrected pass over the analysis window (Reducer) that
// simultaneously populates a per-pixel sparse time series
// (SparseFrameStore) and three aggregate reduction streams: per-pixel
// sums, per-frame means and per-partition means.
package imm
