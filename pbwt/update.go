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

// updateAOnly advances the permutation array a, sorted entering site k, to
// the permutation sorted entering site k+1, given that site's sorted column
// y (indexed by current sort position, y[i] is the allele of haplotype
// a[i]). It is the stable bucket sort at the core of Durbin's Algorithm 1:
// haplotypes with a 0 at this site keep their relative order and sort ahead
// of haplotypes with a 1, which also keep their relative order.
//
// zeroA and oneA are caller-owned scratch buffers of length len(a); they are
// clobbered. updateAOnly returns a (reused in place).
func updateAOnly(a, zeroA, oneA []int, y []byte) []int {
	m := len(a)
	u, v := 0, 0
	for i := 0; i < m; i++ {
		if y[i] == 0 {
			zeroA[u] = a[i]
			u++
		} else {
			oneA[v] = a[i]
			v++
		}
	}
	copy(a[:u], zeroA[:u])
	copy(a[u:], oneA[:v])
	return a
}

// updateAD is updateAOnly extended with the divergence array maintenance of
// Durbin's Algorithm 2. d, entering this call, holds the start position of
// the longest match ending just above each a[i] (d has length len(a)+1; d[0]
// and d[len(a)] are boundary sentinels with no haplotype above or below to
// diverge from). k is the site just presented (the one y and the current a,
// d describe); the new divergence values record k+1, the earliest site a
// newly started match could extend back to.
//
// zeroA, zeroD, oneA, oneD are caller-owned scratch buffers of length
// len(a); they are clobbered. updateAD returns a, d (both reused in place).
func updateAD(a, d, zeroA, zeroD, oneA, oneD []int, y []byte, k int) ([]int, []int) {
	m := len(a)
	u, v := 0, 0
	p, q := k+1, k+1
	for i := 0; i < m; i++ {
		if d[i] > p {
			p = d[i]
		}
		if d[i] > q {
			q = d[i]
		}
		if y[i] == 0 {
			zeroA[u] = a[i]
			zeroD[u] = p
			u++
			p = 0
		} else {
			oneA[v] = a[i]
			oneD[v] = q
			v++
			q = 0
		}
	}
	copy(a[:u], zeroA[:u])
	copy(a[u:], oneA[:v])
	copy(d[:u], zeroD[:u])
	copy(d[u:m], oneD[:v])
	d[0] = k + 2
	d[m] = k + 2
	return a, d
}
