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

// Config carries the process-wide flags the reference tool kept as global
// mutable state (isCheck, isStats) as an explicit value instead, threaded
// through construction and reporting.
type Config struct {
	// Check enables expensive self-checks: re-decoding every appended
	// column and comparing it against the column that was just encoded
	// (Panel.AppendColumn), and validating every match LongMatches and
	// MaximalMatches report is self-consistent — no haplotype matches
	// itself, and a match MaximalMatches reports genuinely cannot be
	// extended in either direction. Violations surface as
	// pbwterr.Invariant errors.
	Check bool

	// Stats records that a summary (site count, haplotype count, encoded
	// byte count, mean minor allele frequency) was requested. Nothing is
	// collected during construction: the summary comes from ComputeStats, a
	// separate pass over the built panel, and no function in this package
	// reads this field.
	Stats bool

	// SkipDivergence selects the cheaper A-only prefix-sort update (no `d`
	// maintenance) for callers that only need the permutation array, e.g.
	// the external-matcher's replay pass. Match enumeration requires `d`
	// and must not be used on a panel built with SkipDivergence.
	SkipDivergence bool

	// Parallelism bounds the number of goroutines ComputeStats (-stats) uses
	// for its read-only scan of a built panel. Zero means runtime.NumCPU().
	// Match enumeration is single-threaded and does not use it.
	Parallelism int
}
