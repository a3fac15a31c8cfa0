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

	"github.com/grailbio/pbwt/circular"
	"github.com/grailbio/pbwt/pbwterr"
	"github.com/grailbio/pbwt/util"
)

// Panel is the invariant entity: M haplotypes over N sites, stored as a
// run-length-encoded column stream plus the permutation/divergence arrays
// left over from the most recent site. A Panel exclusively owns its
// storage and scratch buffers; it is never shared between concurrent
// constructions (see package doc).
type Panel struct {
	M int
	N int

	Sites  []Site
	Stream []byte

	cfg Config

	a []int // permutation array, length M
	d []int // divergence array, length M+1 (nil when cfg.SkipDivergence)
	y []byte // scratch sorted column, length M+1, y[M] always YSentinel

	// scratch buffers for the prefix-sort update, owned by the panel so
	// AppendColumn never allocates on the hot path.
	zeroA, oneA []int
	zeroD, oneD []int
}

// New creates an empty Panel for M haplotypes. M must be at least 2.
func New(m int, cfg Config) (*Panel, error) {
	if m < 2 {
		return nil, pbwterr.E(pbwterr.Shape, fmt.Sprintf("new panel: M=%d, want >= 2", m), nil)
	}
	p := &Panel{
		M:     m,
		cfg:   cfg,
		a:     make([]int, m),
		y:     make([]byte, m+1),
		zeroA: make([]int, m),
		oneA:  make([]int, m),
	}
	for i := range p.a {
		p.a[i] = i
	}
	p.y[m] = YSentinel
	if !cfg.SkipDivergence {
		p.d = make([]int, m+1)
		p.zeroD = make([]int, m)
		p.oneD = make([]int, m)
	}
	return p, nil
}

// FromStream wraps an already-encoded column stream (as read from a panel
// file) into a Panel, replaying it once to recover the permutation and
// divergence arrays entering a hypothetical site N, so the panel is ready
// for further AppendColumn calls as well as queries. Each site's 1-allele
// count F is recovered from the stream during that replay; site coordinates
// X are not part of the binary panel format, are left zero, and must be
// attached separately (see the sites-file reader).
func FromStream(m, n int, stream []byte, cfg Config) (*Panel, error) {
	p, err := New(m, cfg)
	if err != nil {
		return nil, err
	}
	p.Stream = stream
	p.N = n
	sites := make([]Site, 0, n)
	a, d, err := replay(m, n, stream, !cfg.SkipDivergence, func(k int, y []byte, a, d []int) error {
		ones := 0
		for _, v := range y {
			if v == 1 {
				ones++
			}
		}
		sites = append(sites, Site{F: ones})
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.a = a
	p.d = d
	p.Sites = sites
	return p, nil
}

// growStream ensures Stream has room for at least extra more bytes,
// doubling capacity via circular.NextExp2 rather than relying on append's
// own (unspecified) growth policy — adapted from the reference tree's use
// of NextExp2 to size circular buffers.
func (p *Panel) growStream(extra int) {
	need := len(p.Stream) + extra
	if cap(p.Stream) >= need {
		return
	}
	newCap := circular.NextExp2(need - 1)
	grown := make([]byte, len(p.Stream), newCap)
	copy(grown, p.Stream)
	p.Stream = grown
}

// AppendColumn presents the next site: column holds one allele per
// haplotype (length M, values in {0,1}) at genomic coordinate x. Sites must
// be presented in strictly increasing site order; AppendColumn advances the
// permutation (and, unless cfg.SkipDivergence, divergence) arrays and grows
// Stream with the newly encoded column.
func (p *Panel) AppendColumn(x int64, column []byte) error {
	if len(column) != p.M {
		return pbwterr.E(pbwterr.Shape, fmt.Sprintf("append column at site %d: len(column)=%d, want %d", p.N, len(column), p.M), nil)
	}
	ones := 0
	for i, hap := range p.a {
		v := column[hap]
		if v > 1 {
			return pbwterr.E(pbwterr.Format, fmt.Sprintf("append column at site %d: haplotype %d has non-binary allele %d", p.N, hap, v), nil)
		}
		p.y[i] = v
		if v == 1 {
			ones++
		}
	}

	k := p.N
	before := len(p.Stream)
	p.growStream(len(p.y))
	p.Stream = EncodeColumn(p.Stream, p.y)

	if p.cfg.Check {
		if err := p.verifyJustEncoded(before, k); err != nil {
			return err
		}
	}

	if p.cfg.SkipDivergence {
		p.a = updateAOnly(p.a, p.zeroA, p.oneA, p.y)
	} else {
		p.a, p.d = updateAD(p.a, p.d, p.zeroA, p.zeroD, p.oneA, p.oneD, p.y, k)
	}

	p.Sites = append(p.Sites, Site{X: x, F: ones})
	p.N++
	return nil
}

// verifyJustEncoded re-decodes the column just appended at Stream[off:] and
// compares it against p.y by byte count consumed, ones count, and checksum —
// a decode-and-compare self-check of the codec, run only under Config.Check
// (see spec §4.1 "Failure").
func (p *Panel) verifyJustEncoded(off, site int) error {
	got := make([]byte, p.M)
	nRead, ones, err := DecodeColumn(p.Stream[off:], p.M, got)
	if err != nil {
		return pbwterr.E(pbwterr.Invariant, fmt.Sprintf("check: site %d: decode failed", site), err)
	}
	if off+nRead != len(p.Stream) {
		return pbwterr.E(pbwterr.Invariant, fmt.Sprintf("check: site %d: encoded %d bytes, decode consumed %d", site, len(p.Stream)-off, nRead), nil)
	}
	wantOnes := 0
	for _, v := range p.y[:p.M] {
		if v == 1 {
			wantOnes++
		}
	}
	if ones != wantOnes {
		return pbwterr.E(pbwterr.Invariant, fmt.Sprintf("check: site %d: decode reported %d ones, want %d", site, ones, wantOnes), nil)
	}
	if checksumColumn(got) != checksumColumn(p.y[:p.M]) {
		return pbwterr.E(pbwterr.Invariant, fmt.Sprintf("check: site %d: decoded column does not match encoded column\n%s", site, mismatchMatrix(got, p.y[:p.M])), nil)
	}
	return nil
}

// mismatchMatrix renders the two disagreeing columns side by side (decoded
// on row 0, source on row 1) for the diagnostic attached to a check-mode
// invariant failure.
func mismatchMatrix(decoded, source []byte) util.Matrix {
	m := util.NewMatrix(2, len(decoded))
	for i, v := range decoded {
		m.Set(0, i, v)
	}
	for i, v := range source {
		m.Set(1, i, v)
	}
	return m
}

// A returns the current permutation array. The returned slice is owned by
// Panel and must not be retained past the next AppendColumn call.
func (p *Panel) A() []int { return p.a }

// D returns the current divergence array, or nil if the panel was built
// with Config.SkipDivergence. The returned slice is owned by Panel and must
// not be retained past the next AppendColumn call.
func (p *Panel) D() []int { return p.d }

// ColumnVisitor receives, for each site k in order, the arrays entering that
// site: a and d as they stood after incorporating sites [0, k) (so a[i], d[i]
// describe sort position i before site k is folded in), and y, the allele of
// a[i] at site k itself. The triple is self-consistent: y[i] is always the
// site-k allele of haplotype a[i]. IterateColumns calls visit once per site,
// k = 0..N-1; it never presents a terminal, y-less call (the match
// reporters make that call themselves, with the arrays replay returns).
type ColumnVisitor func(k int, y []byte, a []int, d []int) error

// IterateColumns decodes Stream from the start and streams each site's
// entering (a, d, y) triple to visit, in site order. It does not mutate the
// panel.
func (p *Panel) IterateColumns(visit ColumnVisitor) error {
	_, _, err := replay(p.M, p.N, p.Stream, !p.cfg.SkipDivergence, visit)
	return err
}

// replay decodes stream from scratch, driving the prefix-sort updater one
// site at a time. Before folding site k into (a, d), it calls visit (if
// non-nil) with the entering triple (y, a, d) for that site — this is the
// triple Durbin's match-reporting algorithms operate on. It returns the
// final (a, d), i.e. the arrays entering a hypothetical site N, which the
// match reporters additionally visit as a terminal, y-less pass to flush
// matches still open at the end of the panel.
func replay(m, n int, stream []byte, withDivergence bool, visit func(k int, y []byte, a, d []int) error) ([]int, []int, error) {
	a := make([]int, m)
	for i := range a {
		a[i] = i
	}
	var d []int
	var zeroD, oneD []int
	if withDivergence {
		d = make([]int, m+1)
		zeroD = make([]int, m)
		oneD = make([]int, m)
	}
	zeroA := make([]int, m)
	oneA := make([]int, m)
	y := make([]byte, m+1)
	y[m] = YSentinel

	off := 0
	for k := 0; k < n; k++ {
		nRead, _, err := DecodeColumn(stream[off:], m, y[:m])
		if err != nil {
			return nil, nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("replay: decode site %d", k), err)
		}
		off += nRead
		if visit != nil {
			if err := visit(k, y[:m], a, d); err != nil {
				return nil, nil, err
			}
		}
		if withDivergence {
			a, d = updateAD(a, d, zeroA, zeroD, oneA, oneD, y, k)
		} else {
			a = updateAOnly(a, zeroA, oneA, y)
		}
	}
	return a, d, nil
}
