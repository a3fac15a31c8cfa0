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

// HaplotypeMatrix is an on-demand, caller-owned decoding of a panel into
// N-rows-by-M-columns byte form, row k holding the allele of every
// haplotype at site k. It exists for -haps export and for check-mode
// comparisons against a reference matrix; its lifetime is not tied to the
// Panel it was built from (see design note on xHap).
type HaplotypeMatrix struct {
	M, N int
	rows [][]byte
}

// NewHaplotypeMatrix decodes p in full into a HaplotypeMatrix.
func NewHaplotypeMatrix(p *Panel) (*HaplotypeMatrix, error) {
	hm := &HaplotypeMatrix{M: p.M, N: p.N, rows: make([][]byte, p.N)}
	err := p.IterateColumns(func(k int, y []byte, a []int, d []int) error {
		row := make([]byte, p.M)
		for i, hap := range a {
			row[hap] = y[i]
		}
		hm.rows[k] = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hm, nil
}

// Row returns the allele of every haplotype at site k, indexed by
// haplotype. The returned slice is owned by HaplotypeMatrix.
func (hm *HaplotypeMatrix) Row(k int) []byte { return hm.rows[k] }

// Allele returns the allele of haplotype hap at site k.
func (hm *HaplotypeMatrix) Allele(k, hap int) byte { return hm.rows[k][hap] }

// Equal reports whether hm and other decode to the same M, N, and alleles.
func (hm *HaplotypeMatrix) Equal(other *HaplotypeMatrix) bool {
	if hm.M != other.M || hm.N != other.N {
		return false
	}
	for k := 0; k < hm.N; k++ {
		a, b := hm.rows[k], other.rows[k]
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}
