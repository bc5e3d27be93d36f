// Copyright 2024 The immingest Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package imm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparseFrameStore_appendAndRead(t *testing.T) {
	s := NewSparseFrameStore(3)
	require.Equal(t, 3, s.Pixels())

	s.Append(0, 1, 10.5)
	s.Append(0, 3, 11.5)
	s.Append(2, 1, 99.0)

	assert.Equal(t, 2, s.Len(0))
	assert.Equal(t, 0, s.Len(1))
	assert.Equal(t, 1, s.Len(2))

	if diff := cmp.Diff([]int32{1, 3}, s.Frames(0)); diff != "" {
		t.Errorf("Frames(0) mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]float64{10.5, 11.5}, s.Values(0)); diff != "" {
		t.Errorf("Values(0) mismatch:\n%s", diff)
	}
}

func TestSparseFrameStore_unusedPixelIsEmpty(t *testing.T) {
	s := NewSparseFrameStore(2)
	assert.Empty(t, s.Frames(1))
	assert.Empty(t, s.Values(1))
}
