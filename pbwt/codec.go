// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pbwt

import (
	"fmt"

	farm "github.com/dgryski/go-farm"
)

// Each byte of the stream encodes one run of identical bits. Bit 7 is the
// run's symbol; bits 6..0 decode the run length through a three-tier
// scheme so that a single byte can cover a run as long as 63,488:
//
//	bit6 == 0            : length = low 6 bits          (0..63)
//	bit6 == 1, bit5 == 0  : length = (low 5 bits) * 64    (0, 64, .., 1984)
//	bit6 == 1, bit5 == 1  : length = (low 5 bits) * 2048  (0, 2048, .., 63488)
const (
	tier2Threshold = 64         // below this, a run fits in a tier-1 (6-bit) byte
	tier3Threshold = 32 * 64    // 2048: below this, a tier-2 (64-multiple) byte suffices
	tier3RunMax    = 31 * 2048  // 63488: largest run a single tier-3 byte can cover
)

// runLen is a 128-entry lookup table mapping the low 7 bits of a codec byte
// to the run length it encodes. It is built once at package init, per the
// design note that a process-global decode table should be initialized
// eagerly rather than recomputed per call.
var runLen [128]int

func init() {
	for b := 0; b < 128; b++ {
		switch {
		case b&0x40 == 0:
			runLen[b] = b & 0x3F
		case b&0x20 == 0:
			runLen[b] = (b & 0x1F) * 64
		default:
			runLen[b] = (b & 0x1F) * 2048
		}
	}
}

// emitRun appends the bytes encoding a run of n copies of symbol s (0 or 1)
// to dst, and returns the extended slice. A run of length 0 is never
// emitted.
func emitRun(dst []byte, s byte, n int) []byte {
	sym := s << 7
	for n >= tier3RunMax {
		dst = append(dst, sym|0x7F)
		n -= tier3RunMax
	}
	if n >= tier3Threshold {
		dst = append(dst, sym|0x60|byte(n>>11))
		n &= 0x7FF
	}
	if n >= tier2Threshold {
		dst = append(dst, sym|0x40|byte(n>>6))
		n &= 0x3F
	}
	if n > 0 {
		dst = append(dst, sym|byte(n))
	}
	return dst
}

// EncodeColumn run-length encodes y, a length-M column of alleles in {0,1}
// terminated by a YSentinel byte at y[M], and appends the result to dst. It
// returns the extended slice.
//
// y must have the sentinel in place; EncodeColumn detects the end of a run
// purely by value inequality, so it never inspects a length counter to know
// when to stop.
func EncodeColumn(dst []byte, y []byte) []byte {
	m := len(y) - 1
	i := 0
	for i < m {
		s := y[i]
		j := i + 1
		for y[j] == s {
			j++
		}
		dst = emitRun(dst, s, j-i)
		i = j
	}
	return dst
}

// DecodeColumn decodes M allele values from src into dst[:M] (dst must have
// length >= M), stopping as soon as M values have been produced. It returns
// the number of bytes consumed from src and the number of 1-symbols
// unpacked.
//
// DecodeColumn performs no self-validation: a corrupt stream (e.g. a
// zero-length run byte in the middle of a column) is not detected here. Use
// Config.Check to catch corruption by decoding each appended column and
// comparing it with its source.
func DecodeColumn(src []byte, m int, dst []byte) (nRead int, ones int, err error) {
	pos := 0
	read := 0
	for pos < m {
		if read >= len(src) {
			return read, ones, fmt.Errorf("pbwt: truncated column stream at byte %d (decoded %d/%d symbols)", read, pos, m)
		}
		b := src[read]
		read++
		s := b >> 7
		n := runLen[b&0x7F]
		if n > m-pos {
			n = m - pos
		}
		fillRun(dst[pos:pos+n], s)
		if s == 1 {
			ones += n
		}
		pos += n
	}
	return read, ones, nil
}

// fillRun sets every byte of dst to s using a doubling block copy, which
// dominates a byte-at-a-time loop once runs get past a few dozen bytes —
// most runs in a real panel are much longer than that.
func fillRun(dst []byte, s byte) {
	if len(dst) == 0 {
		return
	}
	dst[0] = s
	filled := 1
	for filled < len(dst) {
		n := filled
		if n > len(dst)-filled {
			n = len(dst) - filled
		}
		copy(dst[filled:filled+n], dst[:n])
		filled += n
	}
}

// checksumColumn returns a fast, non-cryptographic fingerprint of a decoded
// column, used only by Config.Check to catch codec corruption (see
// Panel.AppendColumn). Grounded on the reference module's use of
// github.com/dgryski/go-farm for cheap one-shot hashing of byte buffers.
func checksumColumn(y []byte) uint64 {
	return farm.Hash64(y)
}
