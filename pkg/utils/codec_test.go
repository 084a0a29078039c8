// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt16Base64RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
	}{
		{"empty", []int16{}},
		{"single", []int16{42}},
		{"mixed sign", []int16{0, 1, -1, 32767, -32768}},
		{"large", func() []int16 {
			s := make([]int16, 50_000)
			for i := range s {
				s[i] = int16(i % 30000)
			}
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b64 := Int16ToBase64(tt.samples)
			got, err := Base64ToInt16(b64)
			require.NoError(t, err)
			assert.Equal(t, tt.samples, got)
		})
	}
}

func TestBase64ToInt16InvalidInput(t *testing.T) {
	_, err := Base64ToInt16("not-valid-base64!!!")
	assert.Error(t, err)
}

func TestMergeInt16(t *testing.T) {
	a := []int16{1, 2, 3}
	b := []int16{4, 5}
	merged := MergeInt16(a, b)
	assert.Equal(t, []int16{1, 2, 3, 4, 5}, merged)
	assert.Equal(t, len(a)+len(b), len(merged))
}

func TestMergeInt16Associative(t *testing.T) {
	a := []int16{1, 2}
	b := []int16{3, 4}
	c := []int16{5, 6}

	left := MergeInt16(MergeInt16(a, b), c)
	right := MergeInt16(a, MergeInt16(b, c))
	assert.Equal(t, left, right)
}

func TestFloatTo16BitPCMClamps(t *testing.T) {
	out := FloatTo16BitPCM([]float32{1.5, -1.5, 0})
	assert.Len(t, out, 6)
	// 1.5 clamps to 1.0 -> 0x7fff little-endian
	assert.Equal(t, byte(0xff), out[0])
	assert.Equal(t, byte(0x7f), out[1])
	// -1.5 clamps to -1.0 -> -0x8000 little-endian
	assert.Equal(t, byte(0x00), out[2])
	assert.Equal(t, byte(0x80), out[3])
}

func TestGenerateIDUniqueAndShaped(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateID("evt_", 12)
		require.True(t, strings.HasPrefix(id, "evt_"))
		require.Len(t, id, len("evt_")+12)
		require.False(t, seen[id], "collision: %s", id)
		seen[id] = true
	}
}

func TestGenerateIDDefaultLength(t *testing.T) {
	id := GenerateID("x_", 0)
	assert.Len(t, id, len("x_")+21)
}

func TestMillisFromSampleCount(t *testing.T) {
	tests := []struct {
		samples  int
		expected int
	}{
		{0, 0},
		{24000, 1000},
		{12000, 500},
		{1, 0},
		{23999, 999},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, MillisFromSampleCount(tt.samples))
	}
}

func TestSamplesFromMillis(t *testing.T) {
	assert.Equal(t, 24000, SamplesFromMillis(1000))
	assert.Equal(t, 0, SamplesFromMillis(0))
}
