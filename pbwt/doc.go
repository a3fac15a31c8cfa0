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

// Package pbwt implements the Positional Burrows-Wheeler Transform over
// panels of bi-allelic haplotypes: incremental construction of the
// prefix-sort permutation and divergence arrays, a three-level run-length
// codec for the resulting sorted columns, long/maximal match enumeration,
// and matching of an external haplotype against a built panel.
//
// The panel is the only stateful entity. Construction is strictly
// single-threaded and forward (site k must be presented before site k+1);
// everything else (match enumeration, external matching, sub-sampling) is
// read-only once a panel is built.
package pbwt
