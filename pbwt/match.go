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

	"github.com/grailbio/pbwt/pbwterr"
)

// LongMatches enumerates every pair of haplotypes that share an allele
// sequence of length at least minLength, reporting each to sink exactly
// once, at the site where the match ends (by divergence, or by reaching the
// end of the panel). Panel must have been built without
// Config.SkipDivergence.
//
// This is Durbin's Algorithm 3: at each site k, positions of the current
// sort order are partitioned into maximal runs sharing a divergence no more
// recent than k-minLength (so every haplotype in the run has already
// matched for at least minLength sites); within a run, a pair is reported
// the moment its members' alleles disagree at k, since that is exactly when
// their match stops extending. A final pass over the arrays entering a
// hypothetical site N flushes matches still open when the panel ends,
// ignoring the disagreement test (there is no further site to disagree at).
func LongMatches(p *Panel, minLength int, sink MatchFunc) error {
	if p.cfg.SkipDivergence {
		return pbwterr.E(pbwterr.Argument, "LongMatches: panel built with SkipDivergence", nil)
	}
	if minLength <= 0 {
		return pbwterr.E(pbwterr.Argument, fmt.Sprintf("LongMatches: minLength=%d, want > 0", minLength), nil)
	}
	if p.cfg.Check {
		sink = checkSelfMatch(sink)
	}
	finalA, finalD, err := replay(p.M, p.N, p.Stream, true, func(k int, y []byte, a, d []int) error {
		return reportLong(k, y, a, d, minLength, false, sink)
	})
	if err != nil {
		return err
	}
	return reportLong(p.N, nil, finalA, finalD, minLength, true, sink)
}

// checkSelfMatch wraps sink with the cheap half of check mode's match
// validation: a haplotype can never be reported as matching itself. Folded
// directly into the sink rather than re-scanning results afterward, so a
// violation surfaces at the exact match that produced it.
func checkSelfMatch(sink MatchFunc) MatchFunc {
	return func(m Match) error {
		if m.I == m.J {
			return pbwterr.E(pbwterr.Invariant, fmt.Sprintf("match: self-match reported for haplotype %d", m.I), nil)
		}
		return sink(m)
	}
}

// reportLong runs one column of Algorithm 3. y is nil exactly when terminal
// is true (the flush pass at the end of the panel, where there is no site-k
// column to compare divergence against).
func reportLong(k int, y []byte, a, d []int, minLength int, terminal bool, sink MatchFunc) error {
	m := len(a)
	cutoff := k - minLength
	i0 := 0
	for i := 1; i <= m; i++ {
		if i != m && d[i] <= cutoff {
			continue
		}
		if i-i0 > 1 {
			for ia := i0; ia < i; ia++ {
				for ib := ia + 1; ib < i; ib++ {
					if !terminal && y[ia] == y[ib] {
						continue
					}
					dmin := 0
					for j := ia + 1; j <= ib; j++ {
						if d[j] > dmin {
							dmin = d[j]
						}
					}
					if err := sink(Match{I: a[ia], J: a[ib], Start: dmin, End: k}); err != nil {
						return err
					}
				}
			}
		}
		i0 = i
	}
	return nil
}

// MaximalMatches enumerates matches that cannot be extended in either
// direction: at the site where one starts, the alleles immediately preceding
// it differ (or the match starts at site 0); at the site where it ends, the
// alleles immediately following it differ (or the match reaches site N).
// Not every such pair is reported: a position is skipped whenever any
// position in its matching block shares its allele at k (see below), so a
// pair whose match is covered by a longer match of one of its haplotypes
// may go unreported. Panel must have been built without
// Config.SkipDivergence.
//
// This is Durbin's Algorithm 4: for each sort position i at site k, the scan
// extends left while neighbors' divergence stays within d[i] (they share i's
// current match) and right while it stays within d[i+1], collecting the
// block of positions i currently matches. If any position visited while
// scanning carries the same allele as y[i], the pair(s) it would produce
// are not yet maximal — they will extend past k — so i is skipped this
// round; the final, terminal pass (k = N) suppresses that skip, since
// nothing can extend past the end of the panel.
func MaximalMatches(p *Panel, sink MatchFunc) error {
	if p.cfg.SkipDivergence {
		return pbwterr.E(pbwterr.Argument, "MaximalMatches: panel built with SkipDivergence", nil)
	}
	if p.cfg.Check {
		hm, err := NewHaplotypeMatrix(p)
		if err != nil {
			return err
		}
		sink = checkMaximal(p.N, hm, sink)
	}
	finalA, finalD, err := replay(p.M, p.N, p.Stream, true, func(k int, y []byte, a, d []int) error {
		return reportMaximal(k, y, a, d, false, sink)
	})
	if err != nil {
		return err
	}
	return reportMaximal(p.N, nil, finalA, finalD, true, sink)
}

// checkMaximal wraps sink with check mode's full match validation: besides
// the universal self-match check, a match the maximal reporter emits must
// genuinely be unextendable — the two haplotypes must disagree at the site
// immediately before Start (unless Start is 0) and at the site immediately
// after End-1 (unless End reaches N). Decoding the panel once up front
// (hm) rather than per match keeps this check linear in panel size instead
// of quadratic in match count.
func checkMaximal(n int, hm *HaplotypeMatrix, sink MatchFunc) MatchFunc {
	return func(m Match) error {
		if m.I == m.J {
			return pbwterr.E(pbwterr.Invariant, fmt.Sprintf("match: self-match reported for haplotype %d", m.I), nil)
		}
		if m.Start > 0 && hm.Allele(m.Start-1, m.I) == hm.Allele(m.Start-1, m.J) {
			return pbwterr.E(pbwterr.Invariant, fmt.Sprintf("match: (%d,%d) at [%d,%d) is not maximal: extends left past Start", m.I, m.J, m.Start, m.End), nil)
		}
		if m.End < n && hm.Allele(m.End, m.I) == hm.Allele(m.End, m.J) {
			return pbwterr.E(pbwterr.Invariant, fmt.Sprintf("match: (%d,%d) at [%d,%d) is not maximal: extends right past End", m.I, m.J, m.Start, m.End), nil)
		}
		return sink(m)
	}
}

// reportMaximal runs one column of Algorithm 4. y is nil exactly when
// terminal is true.
func reportMaximal(k int, y []byte, a, d []int, terminal bool, sink MatchFunc) error {
	m := len(a)
	for i := 0; i < m; i++ {
		extends := false

		left := i - 1
		for left >= 0 && d[left+1] <= d[i] {
			if !terminal && y[left] == y[i] {
				extends = true
			}
			left--
		}

		right := i + 1
		for right < m && d[right] <= d[i+1] {
			if !terminal && y[right] == y[i] {
				extends = true
			}
			right++
		}

		if extends {
			continue
		}

		if d[i] < k {
			for j := left + 1; j < i; j++ {
				if err := sink(Match{I: a[i], J: a[j], Start: d[i], End: k}); err != nil {
					return err
				}
			}
		}
		if d[i+1] < k {
			for j := i + 1; j < right; j++ {
				if err := sink(Match{I: a[i], J: a[j], Start: d[i+1], End: k}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
