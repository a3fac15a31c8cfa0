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

// YSentinel terminates a column buffer so the codec can detect end-of-column
// by value inequality rather than by a separately tracked length. It must
// never appear as a real allele value.
const YSentinel byte = 2

// Site is one column's metadata: its genomic coordinate and the count of
// 1-alleles observed at it. Site order in a Panel's Sites slice is the
// order sites were appended in, not necessarily sorted by X.
type Site struct {
	X int64
	F int
}

// Match is one reported shared haplotype substring: haplotypes I and J agree
// on site range [Start, End).
type Match struct {
	I, J       int
	Start, End int
}

// MatchFunc is the sink match reporters feed one Match at a time. Returning
// a non-nil error aborts enumeration early and that error propagates to the
// reporter's caller.
type MatchFunc func(m Match) error
