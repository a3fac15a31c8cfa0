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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPanel appends one column per row of haps (haps[k][i] is the allele of
// haplotype i at site k), returning the built panel.
func buildPanel(t *testing.T, cfg Config, haps [][]byte) *Panel {
	t.Helper()
	require.NotEmpty(t, haps)
	m := len(haps[0])
	p, err := New(m, cfg)
	require.NoError(t, err)
	for k, col := range haps {
		require.NoError(t, p.AppendColumn(int64(k), col))
	}
	return p
}

// s1Haplotypes is a commonly cited worked example: four haplotypes over
// five sites, 00000 / 00000 / 11111 / 00001.
func s1Haplotypes() [][]byte {
	raw := []string{"00000", "00000", "11111", "00001"}
	cols := make([][]byte, 5)
	for k := 0; k < 5; k++ {
		cols[k] = make([]byte, 4)
		for hap := 0; hap < 4; hap++ {
			cols[k][hap] = raw[hap][k] - '0'
		}
	}
	return cols
}

func TestAppendColumnAndIterate(t *testing.T) {
	p := buildPanel(t, Config{Check: true}, s1Haplotypes())
	assert.Equal(t, 4, p.M)
	assert.Equal(t, 5, p.N)

	var sawSites []int
	err := p.IterateColumns(func(k int, y []byte, a, d []int) error {
		sawSites = append(sawSites, k)
		assert.Len(t, y, p.M)
		assert.Len(t, a, p.M)
		assert.Len(t, d, p.M+1)
		// a must be a permutation of [0, M).
		seen := make([]bool, p.M)
		for _, hap := range a {
			require.False(t, seen[hap])
			seen[hap] = true
		}
		// The self-consistent triple invariant: y[i] is exactly the
		// site-k allele of haplotype a[i].
		for i, hap := range a {
			assert.Equal(t, s1Haplotypes()[k][hap], y[i])
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, sawSites)
}

func TestDivergenceSentinels(t *testing.T) {
	p := buildPanel(t, Config{}, s1Haplotypes())
	d := p.D()
	require.Len(t, d, p.M+1)
	assert.Equal(t, p.N+1, d[0])
	assert.Equal(t, p.N+1, d[p.M])
}

func TestFromStreamRoundTrip(t *testing.T) {
	p := buildPanel(t, Config{}, s1Haplotypes())
	p2, err := FromStream(p.M, p.N, p.Stream, Config{})
	require.NoError(t, err)
	assert.Equal(t, p.M, p2.M)
	assert.Equal(t, p.N, p2.N)
	assert.Equal(t, p.A(), p2.A())
	assert.Equal(t, p.D(), p2.D())
	require.Len(t, p2.Sites, p2.N)
	for k, s := range p.Sites {
		assert.Equal(t, s.F, p2.Sites[k].F)
	}
}

func TestAppendColumnRejectsWrongWidth(t *testing.T) {
	p, err := New(4, Config{})
	require.NoError(t, err)
	err = p.AppendColumn(0, []byte{0, 1, 0})
	assert.Error(t, err)
}

func TestAppendColumnRejectsNonBinary(t *testing.T) {
	p, err := New(4, Config{})
	require.NoError(t, err)
	err = p.AppendColumn(0, []byte{0, 1, 2, 0})
	assert.Error(t, err)
}

func TestNewRejectsSmallM(t *testing.T) {
	_, err := New(1, Config{})
	assert.Error(t, err)
}
