// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imm

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// IOError wraps a failure to read the underlying file: not found, short
// read, or premature EOF during a header or payload.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("imm: io: %s: %s", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioErrorf(op string, err error) error {
	return &IOError{Op: op, Err: err}
}

// FormatError reports that the bytes on disk don't describe a valid IMM
// stream for the fields this package understands: a frame geometry
// mismatch, a dense payload longer than the pixels-per-frame cap, a
// sparse pixel index outside the frame, or an out-of-range static-bin
// index. A payload cut short by the end of the file is an IOError.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return "imm: format: " + e.Msg
}

func formatErrorf(format string, args ...interface{}) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// errShortRead reports a header or payload read that returned fewer
// bytes than requested, using humanize to keep the byte counts legible
// in logs (this is the one place this package formats byte sizes for a
// human rather than the wire).
func errShortRead(op string, want, got int) error {
	return ioErrorf(op, fmt.Errorf("wanted %s, got %s",
		humanize.Bytes(uint64(want)), humanize.Bytes(uint64(got))))
}

// ConfigError reports a violated Calibration invariant: a missing
// required field, an inverted dark-frame range, a zero static window,
// and so on. Validate collects every violation it finds via multierr
// rather than stopping at the first one.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "imm: config: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
