// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package utils holds the primitive PCM/base64/ID helpers shared by the
// transport and conversation layers. Nothing here depends on the rest of
// the module so it can be imported freely.
package utils

import (
	"crypto/rand"
	"encoding/base64"
	"math"
)

// FloatTo16BitPCM converts normalized float32 samples in [-1, 1] into
// little-endian 16-bit PCM, matching the asymmetric clamp used by the Web
// Audio API reference implementations this client interoperates with.
func FloatTo16BitPCM(input []float32) []byte {
	out := make([]byte, len(input)*2)
	for i, f := range input {
		s := float64(f)
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7fff)
		}
		out[i*2] = byte(uint16(v))
		out[i*2+1] = byte(uint16(v) >> 8)
	}
	return out
}

// Int16ToBase64 encodes little-endian Int16 PCM samples as base64. The
// whole byte buffer is encoded in one call; encoding/base64 has no per-call
// size limit, so very large inputs need no chunking.
func Int16ToBase64(samples []int16) string {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		u := uint16(s)
		buf[i*2] = byte(u)
		buf[i*2+1] = byte(u >> 8)
	}
	return bytesToBase64(buf)
}

// Base64ToInt16 decodes a base64 string of little-endian 16-bit PCM into an
// Int16 slice. A malformed payload returns an error rather than panicking.
func Base64ToInt16(b64 string) ([]int16, error) {
	buf, err := base64ToBytes(b64)
	if err != nil {
		return nil, err
	}
	out := make([]int16, len(buf)/2)
	for i := range out {
		u := uint16(buf[i*2]) | uint16(buf[i*2+1])<<8
		out[i] = int16(u)
	}
	return out, nil
}

// bytesToBase64 encodes buf, pre-sizing the destination with
// base64.StdEncoding.EncodedLen so large audio buffers (full responses,
// not just one delta frame) never trigger encoding's own internal
// reallocation.
func bytesToBase64(buf []byte) string {
	dst := make([]byte, base64.StdEncoding.EncodedLen(len(buf)))
	base64.StdEncoding.Encode(dst, buf)
	return string(dst)
}

// base64ToBytes mirrors bytesToBase64 on the decode path with a
// pre-sized destination buffer.
func base64ToBytes(b64 string) ([]byte, error) {
	dst := make([]byte, base64.StdEncoding.DecodedLen(len(b64)))
	n, err := base64.StdEncoding.Decode(dst, []byte(b64))
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// MergeInt16 concatenates two Int16 PCM buffers into a new slice of length
// len(a)+len(b). The operation is associative: MergeInt16(MergeInt16(a,b),c)
// == MergeInt16(a, MergeInt16(b,c)).
func MergeInt16(a, b []int16) []int16 {
	out := make([]int16, len(a)+len(b))
	copy(out, a)
	copy(out[len(a):], b)
	return out
}

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GenerateID returns prefix + a cryptographically uniform random
// alphanumeric suffix of the given length (default 21 when length<=0).
func GenerateID(prefix string, length int) string {
	if length <= 0 {
		length = 21
	}
	// Bytes at or above the largest multiple of len(idAlphabet) that fits in
	// a byte are rejected, so every alphabet character is equally likely.
	limit := 256 - 256%len(idAlphabet)
	buf := make([]byte, length)
	out := make([]byte, 0, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand failure on a supported platform is effectively
			// impossible; fall back to a fixed-entropy pattern rather than
			// panicking in a library function.
			for i := range buf {
				buf[i] = idAlphabet[i%len(idAlphabet)]
			}
			return prefix + string(buf)
		}
		for _, b := range buf {
			if int(b) < limit && len(out) < length {
				out = append(out, idAlphabet[int(b)%len(idAlphabet)])
			}
		}
	}
	return prefix + string(out)
}

// millisFromSamples converts a 24kHz sample count into milliseconds using
// the same floor semantics as spec's `floor(sampleCount / 24000 * 1000)`.
func millisFromSamples(sampleCount int) int {
	return int(math.Floor(float64(sampleCount) / 24000.0 * 1000.0))
}

// MillisFromSampleCount exposes millisFromSamples for cancellation-offset
// computation in the client package.
func MillisFromSampleCount(sampleCount int) int {
	return millisFromSamples(sampleCount)
}

// SamplesFromMillis is the inverse of MillisFromSampleCount, used to slice
// the input-audio accumulator on a speech-stop boundary.
func SamplesFromMillis(ms int) int {
	return ms * 24
}
