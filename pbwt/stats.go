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
	"runtime"

	"github.com/grailbio/base/traverse"
	"github.com/grailbio/pbwt/pbwterr"
)

// Stats summarizes a built panel: site count, mean minor-allele frequency,
// and encoded size. Computing it decodes every column, so it is offered as
// a separate, explicitly invoked pass (ComputeStats, run for -stats) rather than folded
// into construction.
type Stats struct {
	Sites        int
	Haplotypes   int
	EncodedBytes int
	MeanMAF      float64
}

// ComputeStats scans p and returns its summary statistics. The column
// stream is strictly forward-decoded to find each site's byte boundaries
// (§4.6, the codec offers no random access), but once those boundaries are
// known, each site's contribution to the summary is independent of every
// other's, so the per-site work fans out across parallelism goroutines via
// traverse.Each — this is a read-only scan over an already-built panel, not
// concurrent construction, which remains strictly single-threaded.
func ComputeStats(p *Panel, parallelism int) (Stats, error) {
	offsets := make([]int, p.N+1)
	if err := findOffsets(p, offsets); err != nil {
		return Stats{}, err
	}

	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > p.N {
		parallelism = p.N
	}
	if parallelism < 1 {
		parallelism = 1
	}

	mafs := make([]float64, p.N)
	err := traverse.Each(parallelism, func(job int) error {
		lo := (job * p.N) / parallelism
		hi := ((job + 1) * p.N) / parallelism
		col := make([]byte, p.M)
		for k := lo; k < hi; k++ {
			_, ones, err := DecodeColumn(p.Stream[offsets[k]:offsets[k+1]], p.M, col)
			if err != nil {
				return pbwterr.E(pbwterr.Invariant, fmt.Sprintf("stats: decode site %d", k), err)
			}
			if k < len(p.Sites) && ones != p.Sites[k].F {
				return pbwterr.E(pbwterr.Invariant, fmt.Sprintf("stats: site %d decoded %d ones, sites record says %d", k, ones, p.Sites[k].F), nil)
			}
			minor := ones
			if p.M-ones < minor {
				minor = p.M - ones
			}
			mafs[k] = float64(minor) / float64(p.M)
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	var sum float64
	for _, f := range mafs {
		sum += f
	}
	mean := 0.0
	if p.N > 0 {
		mean = sum / float64(p.N)
	}
	return Stats{
		Sites:        p.N,
		Haplotypes:   p.M,
		EncodedBytes: len(p.Stream),
		MeanMAF:      mean,
	}, nil
}

// findOffsets performs the one unavoidable sequential pass over the stream,
// recording the byte offset at which each site's encoding starts (and, at
// offsets[N], where the stream ends).
func findOffsets(p *Panel, offsets []int) error {
	col := make([]byte, p.M)
	off := 0
	for k := 0; k < p.N; k++ {
		offsets[k] = off
		nRead, _, err := DecodeColumn(p.Stream[off:], p.M, col)
		if err != nil {
			return pbwterr.E(pbwterr.Format, fmt.Sprintf("stats: scanning offsets, site %d", k), err)
		}
		off += nRead
	}
	offsets[p.N] = off
	return nil
}
