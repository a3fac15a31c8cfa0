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

// Subsample builds a fresh panel containing only haplotypes [start, start+n),
// by decoding every site's full haplotype column and re-appending the
// selected slice. The input panel is left untouched; per the design note
// that sub-sampling yields a new panel rather than mutating in place.
func Subsample(p *Panel, start, n int, cfg Config) (*Panel, error) {
	if start < 0 || n <= 0 || start+n > p.M {
		return nil, pbwterr.E(pbwterr.Argument, fmt.Sprintf("subsample: start=%d n=%d, out of range for M=%d", start, n, p.M), nil)
	}
	out, err := New(n, cfg)
	if err != nil {
		return nil, err
	}
	column := make([]byte, p.M)
	err = haplotypeColumns(p, column, func(k int, col []byte) error {
		return out.AppendColumn(siteX(p, k), col[start:start+n])
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Subsites builds a fresh panel retaining only sites whose 1-allele
// frequency f/M exceeds fmin, additionally thinned to keep only a frac
// fraction of those (every 1/frac-th qualifying site, in order) when frac <
// 1. frac == 1.0 keeps every qualifying site.
func Subsites(p *Panel, fmin, frac float64, cfg Config) (*Panel, error) {
	if frac <= 0 || frac > 1 {
		return nil, pbwterr.E(pbwterr.Argument, fmt.Sprintf("subsites: frac=%g, want (0,1]", frac), nil)
	}
	out, err := New(p.M, cfg)
	if err != nil {
		return nil, err
	}
	column := make([]byte, p.M)
	var kept, seen float64
	err = haplotypeColumns(p, column, func(k int, col []byte) error {
		site := p.Sites[k]
		if float64(site.F) <= fmin*float64(p.M) {
			return nil
		}
		seen++
		if frac < 1 && (kept+1)/seen > frac {
			return nil
		}
		kept++
		return out.AppendColumn(site.X, col)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// haplotypeColumns decodes p's stream one site at a time, inverting the
// current permutation to recover the haplotype-indexed column (col[hap] =
// allele of hap at this site), and calls visit with it. column is caller-
// owned scratch of length p.M, reused and overwritten each call.
func haplotypeColumns(p *Panel, column []byte, visit func(k int, col []byte) error) error {
	return p.IterateColumns(func(k int, y []byte, a []int, d []int) error {
		for i, hap := range a {
			column[hap] = y[i]
		}
		return visit(k, column)
	})
}

func siteX(p *Panel, k int) int64 {
	if k < len(p.Sites) {
		return p.Sites[k].X
	}
	return int64(k)
}
