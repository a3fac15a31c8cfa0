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

	"github.com/golang/snappy"
	"github.com/grailbio/pbwt/pbwterr"
)

// Matcher precomputes, from a full scan of a built Panel, the per-site rank
// structure Durbin's Algorithm 5 needs to match external haplotypes against
// the panel without replaying the prefix sort for every query. It stores,
// for each site k, the permutation a[k] entering that site (including one
// extra entry for the permutation entering site N, so a final match flush
// has haplotype identities to report) and the rank array u[k] of length
// M+1, where u[k][i] is the count of zeros among y[k][0..i) — so u[k][M] is
// simply the total zero count at the site, with no boundary special case.
// Divergence is not retained; see Match's collapse-reset comment.
//
// a[k] dominates the matcher's O(N*M) footprint and is compressed with
// snappy: panel permutations compress well, since haplotypes that haven't
// moved recently stay in contiguous runs.
type Matcher struct {
	m, n int
	a    [][]byte // snappy-compressed a[k], length n+1
	u    [][]int  // u[k], length n, each length m+1
}

// NewMatcher scans p in full and builds a Matcher.
func NewMatcher(p *Panel) (*Matcher, error) {
	mt := &Matcher{
		m: p.M,
		n: p.N,
		a: make([][]byte, p.N+1),
		u: make([][]int, p.N),
	}
	lastA, _, err := replay(p.M, p.N, p.Stream, false, func(k int, y []byte, a, d []int) error {
		mt.a[k] = encodeA(a)

		u := make([]int, p.M+1)
		zeros := 0
		for i, v := range y {
			u[i] = zeros
			if v == 0 {
				zeros++
			}
		}
		u[p.M] = zeros
		mt.u[k] = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	mt.a[p.N] = encodeA(lastA)
	return mt, nil
}

func encodeA(a []int) []byte {
	raw := make([]byte, len(a)*8)
	for i, v := range a {
		putUint64(raw[i*8:], uint64(v))
	}
	return snappy.Encode(nil, raw)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}

func (mt *Matcher) siteA(k int) ([]int, error) {
	raw, err := snappy.Decode(nil, mt.a[k])
	if err != nil {
		return nil, pbwterr.E(pbwterr.Invariant, fmt.Sprintf("matcher: decompress a[%d]", k), err)
	}
	a := make([]int, mt.m)
	for i := range a {
		a[i] = int(getUint64(raw[i*8:]))
	}
	return a, nil
}

// Match matches z, a length-N query haplotype, against the panel using the
// rank arrays of Algorithm 5, and reports shared runs to sink as
// (queryID, panelHaplotype, start, end).
//
// [f, g) is, at each site, the half-open range of sort positions (in the
// order entering that site) whose haplotypes currently share the suffix
// z[e..k) with z. When the range collapses (f' == g'), every haplotype in
// the pre-collapse range is reported over [e, k), and the range is reset
// to e=k+1, f=0, g=M, so every haplotype is a candidate again. At the end
// of the panel the remaining range is reported over [e, N). Nothing else
// is reported: a haplotype that leaves the range before it collapses is not
// reported for that run, and a run reported after a collapse at site k
// starts at k+1 or later even where the haplotype also agrees with z at k
// and earlier. Algorithm 5's divergence-array walk, which recovers the
// longest still-matching range after a collapse, is not performed, and the
// Matcher does not store d.
func (mt *Matcher) Match(queryID int, z []byte, sink MatchFunc) error {
	if len(z) != mt.n {
		return pbwterr.E(pbwterr.Shape, fmt.Sprintf("matcher: len(z)=%d, want %d", len(z), mt.n), nil)
	}
	e, f, g := 0, 0, mt.m
	for k := 0; k < mt.n; k++ {
		u := mt.u[k]
		c := u[mt.m]
		var fp, gp int
		if z[k] == 0 {
			fp, gp = u[f], u[g]
		} else {
			fp, gp = c+f-u[f], c+g-u[g]
		}

		if fp == gp {
			if err := mt.flush(queryID, k, e, f, g, sink); err != nil {
				return err
			}
			e, f, g = k+1, 0, mt.m
			continue
		}
		f, g = fp, gp
	}
	return mt.flush(queryID, mt.n, e, f, g, sink)
}

// flush reports every haplotype currently in [f, g) (sort positions
// entering site k) as matching z over [e, k).
func (mt *Matcher) flush(queryID, k, e, f, g int, sink MatchFunc) error {
	if g <= f {
		return nil
	}
	a, err := mt.siteA(k)
	if err != nil {
		return err
	}
	for i := f; i < g; i++ {
		if err := sink(Match{I: queryID, J: a[i], Start: e, End: k}); err != nil {
			return err
		}
	}
	return nil
}
